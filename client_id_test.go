package mqttv3

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateClientID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"MAMA12354", true},
		{"a", true},
		{strings.Repeat("a", 22), true},
		{"", false},
		{strings.Repeat("a", 23), false},
		{"client/1", false},
		{"client 1", false},
		{"client-1", false},
		{"clíent", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := ValidateClientID(tt.id)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrBadClientIdent)
			}
		})
	}
}

func TestGenerateClientID(t *testing.T) {
	a := GenerateClientID()
	b := GenerateClientID()

	assert.NoError(t, ValidateClientID(a))
	assert.Len(t, a, 20)
	assert.NotEqual(t, a, b)
}
