package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectIDCanonicalForm(t *testing.T) {
	assert.Equal(t, DirectID("u1", "u2"), DirectID("u2", "u1"))
	assert.Equal(t, "dm:u1:u2", DirectID("u2", "u1"))
	assert.Equal(t, "dm:alice:bob", DirectID("bob", "alice"))
}

func TestParseDirectRoundTrip(t *testing.T) {
	a, b, err := ParseDirect(DirectID("homeowner-9", "builder-4"))
	require.NoError(t, err)
	assert.Equal(t, "builder-4", a)
	assert.Equal(t, "homeowner-9", b)
}

func TestParseDirectMalformed(t *testing.T) {
	for _, id := range []string{"", "general", "dm:", "dm:u1", "dm:u1:", "dm::u2"} {
		_, _, err := ParseDirect(id)
		assert.ErrorIs(t, err, ErrMalformedID, "id %q", id)
	}
}

func TestParseDirectRejectsSeparatorInUserID(t *testing.T) {
	// A user id carrying the separator makes the boundary ambiguous; the
	// parse fails closed instead of guessing a split.
	_, _, err := ParseDirect(DirectID("u2", "u:1"))
	assert.ErrorIs(t, err, ErrMalformedID)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindDirect, KindOf("dm:u1:u2"))
	assert.Equal(t, KindGroup, KindOf("claims-team"))
}

func TestOther(t *testing.T) {
	id := DirectID("u1", "u2")

	other, err := Other(id, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u2", other)

	other, err = Other(id, "u2")
	require.NoError(t, err)
	assert.Equal(t, "u1", other)
}
