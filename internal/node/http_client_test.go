package node

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auria-labs/auria-agent/internal/models"
)

func TestNewHTTPClient_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "127.0.0.1:8080", "ftp://node", "http://", "::bad"} {
		t.Run(raw, func(t *testing.T) {
			_, err := NewHTTPClient(raw, nil)
			assert.Error(t, err)
		})
	}
}

func TestNewHTTPClient_KeepsPathPrefix(t *testing.T) {
	c, err := NewHTTPClient("http://node.local:8080/arc", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://node.local:8080/arc/", c.BaseURL())
	assert.Equal(t, "http://node.local:8080/arc/v1/generate", c.resolve(generatePath))

	c, err = NewHTTPClient("http://node.local:8080", nil)
	require.NoError(t, err)
	assert.Equal(t, "http://node.local:8080/healthz", c.resolve(healthPath))
}

func TestNewClients(t *testing.T) {
	clients, err := NewClients([]string{"http://a:1", "http://b:2"}, nil)
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "http://a:1/", clients[0].BaseURL())
	assert.Equal(t, "http://b:2/", clients[1].BaseURL())

	_, err = NewClients([]string{"http://a:1", "nope"}, nil)
	assert.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthz", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(status)
	}))
	defer server.Close()

	c, err := NewHTTPClient(server.URL, server.Client())
	require.NoError(t, err)

	assert.NoError(t, c.HealthCheck(context.Background()))

	status = http.StatusServiceUnavailable
	err = c.HealthCheck(context.Background())
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestHealthCheck_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c, err := NewHTTPClient(url, nil)
	require.NoError(t, err)

	err = c.HealthCheck(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrProtocol))
}

func TestGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req GenerateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, models.TierPro, req.Tier)
		assert.Equal(t, "user: hi\n", req.Prompt)
		assert.Equal(t, 64, req.MaxTokens)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(GenerateResponse{
			Tokens:          []string{"hel", "lo"},
			TokensGenerated: 2,
		})
	}))
	defer server.Close()

	c, err := NewHTTPClient(server.URL, server.Client())
	require.NoError(t, err)

	resp, err := c.Generate(context.Background(), &GenerateRequest{
		Tier:      models.TierPro,
		Prompt:    "user: hi\n",
		MaxTokens: 64,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"hel", "lo"}, resp.Tokens)
	assert.Equal(t, 2, resp.TokensGenerated)
}

func TestGenerate_WireFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, "NANO", raw["tier"])
		assert.Equal(t, float64(5), raw["max_tokens"])
		_, _ = w.Write([]byte(`{"tokens":["x"],"tokens_generated":1}`))
	}))
	defer server.Close()

	c, err := NewHTTPClient(server.URL, server.Client())
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), &GenerateRequest{Tier: models.TierNano, MaxTokens: 5})
	require.NoError(t, err)
}

func TestGenerate_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "tier not served", http.StatusBadRequest)
	}))
	defer server.Close()

	c, err := NewHTTPClient(server.URL, server.Client())
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), &GenerateRequest{Tier: models.TierMax})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "tier not served", statusErr.Body)
	assert.Contains(t, err.Error(), "status 400")
}

func TestGenerate_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	c, err := NewHTTPClient(server.URL, server.Client())
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), &GenerateRequest{Tier: models.TierMax})
	assert.ErrorIs(t, err, ErrProtocol)
}
