package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPBKDF2Store_RoundTrip(t *testing.T) {
	store := NewPBKDF2Store()

	hash, err := store.Hash("hunter22")
	require.NoError(t, err)
	require.Contains(t, hash, "$")

	assert.True(t, store.Verify("hunter22", hash))
	assert.False(t, store.Verify("hunter23", hash))
}

func TestPBKDF2Store_SaltsDiffer(t *testing.T) {
	store := NewPBKDF2Store()

	first, err := store.Hash("samepassword")
	require.NoError(t, err)
	second, err := store.Hash("samepassword")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, store.Verify("samepassword", first))
	assert.True(t, store.Verify("samepassword", second))
}

func TestPBKDF2Store_MalformedHash(t *testing.T) {
	store := NewPBKDF2Store()

	assert.False(t, store.Verify("whatever", "not-a-hash"))
	assert.False(t, store.Verify("whatever", "zz$zz"))

	hash, err := store.Hash("whatever")
	require.NoError(t, err)
	truncated := hash[:strings.Index(hash, "$")+4]
	assert.False(t, store.Verify("whatever", truncated))
}
