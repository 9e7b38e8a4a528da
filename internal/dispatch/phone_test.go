package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+358 40 123 4567", "+358401234567"},
		{"0401234567", "+358401234567"},
		{"040-123 4567", "+358401234567"},
		{"401234567", "+358401234567"},
		{"+46701234567", "+46701234567"},
		{" +358401234567 ", "+358401234567"},
	}
	for _, tc := range cases {
		got, err := NormalizePhone(tc.in, "+358")
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}

func TestNormalizePhoneRejectsEmpty(t *testing.T) {
	for _, in := range []string{"", "  ", "abc", "+", "0"} {
		_, err := NormalizePhone(in, "+358")
		require.Error(t, err, in)
	}
}
