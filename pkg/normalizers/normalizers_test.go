package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercase and trim", input: "  Robert Smith  ", expected: "robert smith"},
		{name: "strips suffix", input: "Robert Smith Jr.", expected: "robert smith"},
		{name: "strips roman numeral suffix", input: "Henry Ford III", expected: "henry ford"},
		{name: "removes punctuation", input: "O'Brien, Mary-Anne", expected: "obrien maryanne"},
		{name: "collapses whitespace", input: "Robert   J.   Smith", expected: "robert j smith"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "bob@example.com", NormalizeEmail("  Bob@Example.COM "))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "15551234567", NormalizePhone("+1 (555) 123-4567"))
	assert.Equal(t, "", NormalizePhone("ext"))
}

func TestApplyChain(t *testing.T) {
	assert.Equal(t, "bob smith", ApplyChain("  Bob Smith  ", "trim", "lowercase"))
	// Unknown normalizers pass the value through untouched.
	assert.Equal(t, "x", ApplyChain("x", "nope"))
}
