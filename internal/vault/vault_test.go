package vault

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/agentgate/core"
)

func newTestVault(t *testing.T) *Vault {
	v, err := New(MinIterations)
	require.NoError(t, err)
	return v
}

func TestNew(t *testing.T) {
	v, err := New(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultIterations, v.iterations)

	_, err = New(MinIterations - 1)
	assert.Error(t, err)
}

func TestVault_RoundTrip(t *testing.T) {
	v := newTestVault(t)

	for _, size := range []int{1, 15, 16, 17, 32, 64} {
		plain := make([]byte, size)
		_, err := rand.Read(plain)
		require.NoError(t, err)

		for _, password := range []string{"", "correct horse battery staple", "pässwörd"} {
			enc, err := v.Encrypt(plain, password)
			require.NoError(t, err)

			got, err := v.Decrypt(enc, password)
			require.NoError(t, err)
			assert.Equal(t, plain, got, "size=%d password=%q", size, password)
		}
	}
}

func TestVault_WrongPassword(t *testing.T) {
	v := newTestVault(t)
	plain := []byte("0123456789abcdef0123456789abcdef")

	enc, err := v.Encrypt(plain, "right")
	require.NoError(t, err)

	for _, password := range []string{"wrong", "Right", "right ", ""} {
		got, err := v.Decrypt(enc, password)
		assert.ErrorIs(t, err, core.ErrDecryption)
		assert.Nil(t, got)
	}
}

func TestVault_Tampered(t *testing.T) {
	v := newTestVault(t)

	enc, err := v.Encrypt([]byte("secret key material"), "pw")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(enc.CipherText)
	require.NoError(t, err)
	raw[0] ^= 0x01
	tampered := enc
	tampered.CipherText = base64.StdEncoding.EncodeToString(raw)

	_, err = v.Decrypt(tampered, "pw")
	assert.ErrorIs(t, err, core.ErrDecryption)

	badIV := enc
	badIV.IV = base64.StdEncoding.EncodeToString(make([]byte, 16))
	_, err = v.Decrypt(badIV, "pw")
	assert.ErrorIs(t, err, core.ErrDecryption)

	cases := []core.EncryptedKey{
		{CipherText: "!!", Salt: enc.Salt, IV: enc.IV},
		{CipherText: enc.CipherText, Salt: base64.StdEncoding.EncodeToString([]byte("short")), IV: enc.IV},
		{CipherText: base64.StdEncoding.EncodeToString([]byte("tiny")), Salt: enc.Salt, IV: enc.IV},
	}
	for _, c := range cases {
		_, err := v.Decrypt(c, "pw")
		assert.ErrorIs(t, err, core.ErrDecryption)
	}
}

func TestVault_FreshSaltAndIV(t *testing.T) {
	v := newTestVault(t)
	plain := []byte("same key")

	seenSalt := map[string]bool{}
	seenIV := map[string]bool{}
	for i := 0; i < 8; i++ {
		enc, err := v.Encrypt(plain, "same password")
		require.NoError(t, err)
		assert.False(t, seenSalt[enc.Salt], "salt reused")
		assert.False(t, seenIV[enc.IV], "iv reused")
		seenSalt[enc.Salt] = true
		seenIV[enc.IV] = true
	}
}

func TestDecryptionErrorDoesNotLeakPassword(t *testing.T) {
	v := newTestVault(t)
	enc, err := v.Encrypt([]byte("k"), "hunter2")
	require.NoError(t, err)

	_, err = v.Decrypt(enc, "hunter3")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "hunter")
	assert.Equal(t, core.KindDecryption, core.KindOf(err))
}

func TestZero(t *testing.T) {
	b := []byte{1, 2, 3}
	Zero(b)
	assert.Equal(t, []byte{0, 0, 0}, b)
}
