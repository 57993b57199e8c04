package models

import (
	"encoding/json"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Tier
		ok    bool
	}{
		{name: "padded lowercase", input: " standard ", want: TierStandard, ok: true},
		{name: "uppercase", input: "STANDARD", want: TierStandard, ok: true},
		{name: "mixed case", input: "Nano", want: TierNano, ok: true},
		{name: "pro", input: "pro", want: TierPro, ok: true},
		{name: "max with tabs", input: "\tMAX\n", want: TierMax, ok: true},
		{name: "unknown", input: "bogus", ok: false},
		{name: "empty", input: "", ok: false},
		{name: "namespaced is not a tier", input: "AURIA:PRO", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTier(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveModelTier(t *testing.T) {
	tests := []struct {
		model string
		want  Tier
		ok    bool
	}{
		{model: "AURIA:PRO", want: TierPro, ok: true},
		{model: "PRO", want: TierPro, ok: true},
		{model: "auria:nano", want: TierNano, ok: true},
		{model: "anything:Max", want: TierMax, ok: true},
		{model: "  AURIA:STANDARD  ", want: TierStandard, ok: true},
		{model: "AURIA:bogus", ok: false},
		{model: "a:b:PRO", ok: false},
		{model: "gpt-4", ok: false},
		{model: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got, ok := ResolveModelTier(tt.model)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTier_Valid(t *testing.T) {
	for _, tier := range AllTiers() {
		assert.True(t, tier.Valid(), tier)
	}
	assert.False(t, Tier("standard").Valid())
	assert.False(t, Tier("").Valid())
}

func TestTier_TextRoundTrip(t *testing.T) {
	var cfg struct {
		Tier Tier `json:"tier"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"tier":"pro"}`), &cfg))
	assert.Equal(t, TierPro, cfg.Tier)

	err := json.Unmarshal([]byte(`{"tier":"gold"}`), &cfg)
	assert.Error(t, err)

	out, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tier":"PRO"}`, string(out))
}

func TestNewID(t *testing.T) {
	pattern := regexp.MustCompile(`^auria_[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

	a, b := NewID(), NewID()
	assert.Regexp(t, pattern, a)
	assert.Regexp(t, pattern, b)
	assert.NotEqual(t, a, b)
}
