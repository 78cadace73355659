package postcode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsValid(t *testing.T) {
	valid := []string{"SW1A 1AA", "sw1a1aa", "M1 1AE", "B33 8TH", "CR2 6XH", "DN55 1PT", "GIR 0AA", " ec1a 1bb "}
	for _, pc := range valid {
		require.True(t, IsValid(pc), "postcode %q", pc)
	}

	invalid := []string{"", "ZZ", "12345", "SW1A 1A", "SW1A-1AA", "LONDON"}
	for _, pc := range invalid {
		require.False(t, IsValid(pc), "postcode %q", pc)
	}
}

func TestNormalize(t *testing.T) {
	require.Equal(t, "SW1A 1AA", Normalize("  sw1a 1aa "))
}

func TestServiceableWithNoPrefixesAllowsAllValid(t *testing.T) {
	checker := NewChecker(nil)
	require.True(t, checker.Serviceable("SW1A 1AA"))
	require.False(t, checker.Serviceable("ZZ"))
}

func TestServiceablePrefixAllowList(t *testing.T) {
	checker := NewChecker([]string{"SW1", "m1"})

	require.True(t, checker.Serviceable("SW1A 1AA"))
	require.True(t, checker.Serviceable("M1 1AE"))
	require.False(t, checker.Serviceable("B33 8TH"))
	require.False(t, checker.Serviceable("not a postcode"))
}
