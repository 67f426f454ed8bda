package geoip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_NotReady(t *testing.T) {
	r := NewResolver()

	assert.False(t, r.Ready())
	assert.Equal(t, Unknown, r.Resolve("8.8.8.8"),
		"lookups before the database is loaded must degrade, not fail")
}

func TestResolve_InvalidIP(t *testing.T) {
	r := NewResolver()

	assert.Equal(t, Unknown, r.Resolve("not-an-ip"))
	assert.Equal(t, Unknown, r.Resolve(""))
}

func TestOpen_MissingDatabase(t *testing.T) {
	r := NewResolver()

	err := r.Open("testdata/does-not-exist.mmdb")
	require.Error(t, err)

	// The resolver stays usable after a failed load.
	assert.False(t, r.Ready())
	assert.Equal(t, Unknown, r.Resolve("8.8.8.8"))
}

func TestClose_Idempotent(t *testing.T) {
	r := NewResolver()

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, Unknown, r.Resolve("8.8.8.8"))
}
