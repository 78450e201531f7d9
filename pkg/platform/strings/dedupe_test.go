package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "scope list with duplicates and padding",
			input:    []string{" openid ", "bank:accounts.basic:read", "openid", ""},
			expected: []string{"openid", "bank:accounts.basic:read"},
		},
		{
			name:     "whitespace only",
			input:    []string{"  ", ""},
			expected: []string{},
		},
		{
			name:     "case is preserved",
			input:    []string{"Foo", "foo"},
			expected: []string{"Foo", "foo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}
