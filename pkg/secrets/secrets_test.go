package secrets_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/lifevault/pkg/secrets"
)

func keys(t *testing.T) ([]byte, []byte) {
	t.Helper()
	app, err := secrets.GenerateKey()
	require.NoError(t, err)
	scope, err := secrets.GenerateKey()
	require.NoError(t, err)
	return app, scope
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	app, scope := keys(t)

	sealed, err := secrets.EncryptString(app, scope, "JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "JBSWY3DPEHPK3PXP")

	plain, err := secrets.DecryptString(app, scope, sealed)
	require.NoError(t, err)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", plain)

	again, err := secrets.EncryptString(app, scope, "JBSWY3DPEHPK3PXP")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonces must differ")
}

func TestScopeIsolation(t *testing.T) {
	t.Parallel()

	app, scope := keys(t)
	sealed, err := secrets.EncryptBytes(app, scope, []byte("secret"))
	require.NoError(t, err)

	_, err = secrets.DecryptBytes(app, secrets.ScopeKey("other"), sealed)
	assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)

	sealed[len(sealed)-1] ^= 0xff
	_, err = secrets.DecryptBytes(app, scope, sealed)
	assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)

	_, err = secrets.DecryptBytes(app, scope, []byte("short"))
	assert.ErrorIs(t, err, secrets.ErrCiphertextTooShort)
}

func TestKeyValidation(t *testing.T) {
	t.Parallel()

	app, scope := keys(t)

	_, err := secrets.EncryptBytes(app[:16], scope, []byte("x"))
	assert.ErrorIs(t, err, secrets.ErrInvalidAppKey)
	_, err = secrets.EncryptBytes(app, scope[:8], []byte("x"))
	assert.ErrorIs(t, err, secrets.ErrInvalidScopeKey)

	parsed, err := secrets.ParseHexKey(strings.Repeat("ab", 32))
	require.NoError(t, err)
	assert.Len(t, parsed, 32)
	_, err = secrets.ParseHexKey("zz")
	assert.ErrorIs(t, err, secrets.ErrInvalidAppKey)

	assert.Equal(t, secrets.ScopeKey("a"), secrets.ScopeKey("a"))
	assert.NotEqual(t, secrets.ScopeKey("a"), secrets.ScopeKey("b"))
}
