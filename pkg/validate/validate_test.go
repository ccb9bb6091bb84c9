package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsEmail(t *testing.T) {
	t.Parallel()

	require.True(t, IsEmail("a@x.com"))
	require.True(t, IsEmail("first.last+tag@sub.example.io"))
	require.False(t, IsEmail(""))
	require.False(t, IsEmail("not-an-email"))
	require.False(t, IsEmail("missing@tld@twice.com"))
}

func TestIsID(t *testing.T) {
	t.Parallel()

	require.True(t, IsID("aB3_-aB3aB3aB3aB3aB3"))
	require.False(t, IsID("too-short"))
	require.False(t, IsID(strings.Repeat("a", 21)))
	require.False(t, IsID("aB3!-aB3aB3aB3aB3aB3"))
}

func TestIsExternalSubscriptionID(t *testing.T) {
	t.Parallel()

	require.True(t, IsExternalSubscriptionID("sub-001"))
	require.False(t, IsExternalSubscriptionID("x"))
	require.False(t, IsExternalSubscriptionID(strings.Repeat("a", 51)))
}
