package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"9876543210":       "9876543210",
		" 98765 43210 ":    "9876543210",
		"+91-98765-43210":  "9876543210",
		"919876543210":     "9876543210",
		"0091 98765 43210": "9876543210",
		"09876543210":      "9876543210",
		"(987) 654-3210":   "9876543210",
	}
	for in, want := range cases {
		got, err := Normalize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestNormalizeRejects(t *testing.T) {
	for _, in := range []string{"", "abc", "12345", "98765432101234", "819876543210"} {
		_, err := Normalize(in)
		assert.ErrorIs(t, err, ErrInvalid, in)
	}
}
