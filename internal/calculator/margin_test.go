package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidMargin(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
	}{
		{"12.5%", true},
		{"100%", true},
		{"7%", true},
		{"0.5%", true},
		{"N/A", false},
		{"%", false},
		{".", false},
		{"", false},
		{"abc%", false},
		{"12,5%", false},
		{"-5%", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, ValidMargin(tt.raw), "value %q", tt.raw)
	}
}

func TestFirstValidMarginPreservesOrder(t *testing.T) {
	margin, ok := FirstValidMargin([]string{"12.5%", "abc%", "99%"})
	assert.True(t, ok)
	assert.Equal(t, "12.5%", margin)
}

func TestFirstValidMarginSkipsInvalidPrefix(t *testing.T) {
	margin, ok := FirstValidMargin([]string{"N/A", "abc%", "42%"})
	assert.True(t, ok)
	assert.Equal(t, "42%", margin)
}

func TestFirstValidMarginNoneValid(t *testing.T) {
	_, ok := FirstValidMargin([]string{"N/A", "%", "abc%"})
	assert.False(t, ok)

	_, ok = FirstValidMargin(nil)
	assert.False(t, ok)
}
