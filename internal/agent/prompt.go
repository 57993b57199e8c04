package agent

import (
	"strings"

	"github.com/auria-labs/auria-agent/internal/models"
)

// BuildPrompt linearizes the conversation as one "role: content" line per
// message, in order.
func BuildPrompt(msgs []models.ChatMessage) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	return b.String()
}
