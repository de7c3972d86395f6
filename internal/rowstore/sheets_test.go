package rowstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnLetter(t *testing.T) {
	tests := []struct {
		column   int
		expected string
	}{
		{1, "A"},
		{2, "B"},
		{3, "C"},
		{26, "Z"},
		{27, "AA"},
		{28, "AB"},
		{52, "AZ"},
		{53, "BA"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, columnLetter(tt.column), "column %d", tt.column)
	}
}
