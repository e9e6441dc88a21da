package identity_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/narrative/identity"
)

func TestParseString(t *testing.T) {
	kp, err := identity.Generate()
	require.NoError(t, err)

	who := kp.Identity()
	parsed, err := identity.Parse(who.String())
	require.NoError(t, err)
	assert.True(t, parsed.Equal(who))
	assert.False(t, parsed.IsZero())
}

func TestParseRejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "0OIl", "3mJr7AoUXx2Wqd"} {
		_, err := identity.Parse(in)
		assert.ErrorIs(t, err, identity.ErrInvalid, in)
	}
}

func TestSystemAddressIsZero(t *testing.T) {
	// The 32-byte all-zero key encodes as 32 '1' characters.
	sys := identity.MustParse("11111111111111111111111111111111")
	assert.True(t, sys.IsZero())
}

func TestKeypairSaveLoad(t *testing.T) {
	kp, err := identity.Generate()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "keys", "author.json")
	require.NoError(t, kp.Save(path))

	loaded, err := identity.LoadKeypair(path)
	require.NoError(t, err)
	assert.Equal(t, kp.Identity(), loaded.Identity())

	msg := []byte("discord -> telegram")
	assert.True(t, identity.Verify(loaded.Identity(), msg, kp.Sign(msg)))
	assert.False(t, identity.Verify(loaded.Identity(), []byte("tampered"), kp.Sign(msg)))
}

func TestFromSecretKeyRejectsMismatch(t *testing.T) {
	a, err := identity.Generate()
	require.NoError(t, err)
	b, err := identity.Generate()
	require.NoError(t, err)

	// Seed from a, public half from b.
	bad := a.SecretKey()
	copy(bad[32:], b.Identity().Bytes())
	_, err = identity.FromSecretKey(bad)
	assert.Error(t, err)

	_, err = identity.FromSecretKey([]byte{1, 2, 3})
	assert.Error(t, err)

	good, err := identity.FromSecretKey(a.SecretKey())
	require.NoError(t, err)
	assert.Equal(t, a.Identity(), good.Identity())
}
