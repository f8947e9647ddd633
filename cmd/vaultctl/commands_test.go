package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newRootCommand(&out).Run(context.Background(), append([]string{"vaultctl"}, args...))
	return out.String(), err
}

func TestKeygen(t *testing.T) {
	t.Parallel()

	out, err := run(t, "keygen")
	require.NoError(t, err)
	assert.Len(t, strings.TrimSpace(out), 64)
}

func TestTotpCodeThenVerify(t *testing.T) {
	t.Parallel()

	out, err := run(t, "totp", "code", "--secret", rfcSecret)
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.NotEmpty(t, fields)
	code := fields[0]
	assert.Len(t, code, 6)
	assert.Contains(t, out, "s left)")

	out, err = run(t, "totp", "verify", "--secret", rfcSecret, "--code", code)
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	_, err = run(t, "totp", "verify", "--secret", rfcSecret, "--code", "abcdef")
	require.Error(t, err)
}

func TestTotpCode_InvalidInput(t *testing.T) {
	t.Parallel()

	_, err := run(t, "totp", "code", "--secret", "not base32!")
	require.Error(t, err)

	_, err = run(t, "totp", "code", "--secret", rfcSecret, "--digits", "4")
	require.Error(t, err)

	_, err = run(t, "totp", "code", "--secret", rfcSecret, "--algorithm", "MD5")
	require.Error(t, err)
}

func TestTotpEnroll(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "qr.png")

	out, err := run(t, "totp", "enroll", "--account", "owner@example.com", "--qr", path)
	require.NoError(t, err)
	assert.Contains(t, out, "otpauth://totp/")
	assert.Contains(t, out, "secret: ")

	png, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestPinHash(t *testing.T) {
	t.Parallel()

	out, err := run(t, "pin-hash", "4821")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "$argon2id$"))

	_, err = run(t, "pin-hash", "12ab")
	require.Error(t, err)
}
