package cli

import (
	"testing"
	"time"

	"github.com/Veraticus/spicebot/internal/chatbot"
	"github.com/stretchr/testify/assert"
)

func TestRenderParse(t *testing.T) {
	parser := chatbot.NewDefaultParser()
	now := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		message  string
		expected []string
		absent   []string
	}{
		{
			name:     "transaction",
			message:  "Hôm qua tôi chi 1.5tr cho xăng xe",
			expected: []string{"add_transaction", "1,500,000 VNĐ", "expense", "Di chuyển", "2024-03-14"},
			absent:   []string{"No entities"},
		},
		{
			name:     "explicit date stays unresolved",
			message:  "tôi chi 200k ăn uống ngày 20/03",
			expected: []string{"Date (as written)", "20/03", "200,000 VNĐ"},
		},
		{
			name:     "greeting",
			message:  "xin chào",
			expected: []string{"greeting", "0.80", "No entities extracted"},
			absent:   []string{"Amount"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RenderParse(tt.message, parser.Parse(tt.message, now))
			assert.Contains(t, out, "Parse result")
			for _, want := range tt.expected {
				assert.Contains(t, out, want)
			}
			for _, not := range tt.absent {
				assert.NotContains(t, out, not)
			}
		})
	}
}

func TestFormatHelpers(t *testing.T) {
	assert.Contains(t, FormatSuccess("done"), SuccessIcon+" done")
	assert.Contains(t, FormatError("failed"), ErrorIcon+" failed")
	assert.Contains(t, FormatWarning("careful"), "careful")
	assert.Contains(t, FormatInfo("note"), "note")
	assert.Contains(t, FormatTitle("spicebot"), "spicebot")
	assert.Contains(t, RenderBox("Title", "body"), "body")
}

func TestConfidenceStyle(t *testing.T) {
	assert.Equal(t, SuccessStyle.Render("x"), ConfidenceStyle(0.9).Render("x"))
	assert.Equal(t, InfoStyle.Render("x"), ConfidenceStyle(0.8).Render("x"))
	assert.Equal(t, WarningStyle.Render("x"), ConfidenceStyle(0.5).Render("x"))
}
