package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		redacted bool
	}{
		{"no private tags", "hello world", "hello world", false},
		{"single block", "public <private>secret</private> visible", "public  visible", true},
		{"multiple blocks", "a <private>x</private> b <private>y</private> c", "a  b  c", true},
		{"multiline block", "before <private>\nline 1\nline 2\n</private> after", "before  after", true},
		{"nested-looking tags", "<private>outer <private>inner</private> still</private> visible", "still</private> visible", true},
		{"block at start", "<private>secret</private> visible", "visible", true},
		{"only private", " <private>pin 1234</private> ", "", true},
		{"unclosed tag is kept", "code <private>1234", "code <private>1234", false},
		{"empty string", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, redacted := Redact(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.redacted, redacted)
		})
	}
}
