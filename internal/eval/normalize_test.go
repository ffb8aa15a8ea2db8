package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText_CollapsesWhitespaceAndPunctuation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Acme   Corp.  ", "acme corp"},
		{"Hello,\tWorld!", "hello, world"},
		{"Crème Brûlée", "creme brulee"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeText(tt.in, DefaultNormalize), "input %q", tt.in)
	}
}

func TestNormalizeText_CasePreservedWithoutFold(t *testing.T) {
	got := NormalizeText("Acme Corp", NormalizeOptions{})
	assert.Equal(t, "Acme Corp", got)
}

func TestNormalizeNumber_StripsCurrencyAndSeparators(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"$1,234.56", 1234.56},
		{"€ 2.500,75", 2500.75},
		{"100", 100},
		{"(500)", -500},
		{"-42.5", -42.5},
	}
	for _, tt := range tests {
		got, err := NormalizeNumber(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "input %q", tt.in)
	}
}

func TestNormalizeNumber_FailsClosed(t *testing.T) {
	for _, in := range []string{"", "abc", "12abc34x"} {
		_, err := NormalizeNumber(in)
		assert.Error(t, err, "input %q", in)
	}
}
