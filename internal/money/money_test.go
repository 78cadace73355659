package money

import (
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/restaurant/services/ordering/internal/faults"
)

func TestParsePounds(t *testing.T) {
	cases := []struct {
		in   string
		want Pence
	}{
		{"9.99", 999},
		{"£9.99", 999},
		{"9,99", 999},
		{" 12.50 ", 1250},
		{"0", 0},
		{"3", 300},
		{"0.005", 1},
	}
	for _, tc := range cases {
		got, err := ParsePounds(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		require.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestParsePoundsRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "abc", "-1.00", "£-5"} {
		_, err := ParsePounds(in)
		require.Error(t, err, "input %q", in)
		require.True(t, faults.IsValidation(err), "input %q", in)
	}
}

func TestString(t *testing.T) {
	require.Equal(t, "£13.50", Pence(1350).String())
	require.Equal(t, "£0.05", Pence(5).String())
	require.Equal(t, "£0.00", Pence(0).String())
}

func TestPounds(t *testing.T) {
	require.InDelta(t, 13.5, Pence(1350).Pounds(), 0.0001)
}
