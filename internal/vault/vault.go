// Package vault encrypts custodial signing keys under a password-derived key.
//
// Keys are derived with PBKDF2-SHA256 into an AES-256 key and an HMAC-SHA256
// key. Plaintext is AES-256-CBC encrypted with PKCS#7 padding and the tag over
// iv||ciphertext is appended to the ciphertext, so a wrong password or a
// tampered blob is rejected before any padding is inspected.
package vault

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/layer-3/agentgate/core"
)

const (
	// MinIterations is the lowest accepted PBKDF2 iteration count
	MinIterations = 10000

	// DefaultIterations is used when a Vault is created with zero iterations
	DefaultIterations = 100000

	saltSize = 16
	keySize  = 32
	tagSize  = sha256.Size
)

// Vault encrypts and decrypts key material
type Vault struct {
	iterations int
}

// New creates a vault. iterations == 0 selects DefaultIterations.
func New(iterations int) (*Vault, error) {
	if iterations == 0 {
		iterations = DefaultIterations
	}
	if iterations < MinIterations {
		return nil, fmt.Errorf("pbkdf2 iterations %d below minimum %d", iterations, MinIterations)
	}
	return &Vault{iterations: iterations}, nil
}

// Encrypt seals plainKey under password with a fresh salt and IV
func (v *Vault) Encrypt(plainKey []byte, password string) (core.EncryptedKey, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return core.EncryptedKey{}, fmt.Errorf("failed to generate salt: %w", err)
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return core.EncryptedKey{}, fmt.Errorf("failed to generate iv: %w", err)
	}

	encKey, macKey := v.derive(password, salt)
	defer Zero(encKey)
	defer Zero(macKey)

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return core.EncryptedKey{}, fmt.Errorf("failed to create cipher: %w", err)
	}

	padded := pad(plainKey)
	defer Zero(padded)

	sealed := make([]byte, len(padded), len(padded)+tagSize)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(sealed, padded)
	sealed = append(sealed, tag(macKey, iv, sealed)...)

	return core.EncryptedKey{
		CipherText: base64.StdEncoding.EncodeToString(sealed),
		Salt:       base64.StdEncoding.EncodeToString(salt),
		IV:         base64.StdEncoding.EncodeToString(iv),
	}, nil
}

// Decrypt recovers the plaintext key. Callers own the returned slice and
// should Zero it once done. Any integrity failure yields core.ErrDecryption.
func (v *Vault) Decrypt(key core.EncryptedKey, password string) ([]byte, error) {
	sealed, err1 := base64.StdEncoding.DecodeString(key.CipherText)
	salt, err2 := base64.StdEncoding.DecodeString(key.Salt)
	iv, err3 := base64.StdEncoding.DecodeString(key.IV)
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, fmt.Errorf("malformed encoding: %w", core.ErrDecryption)
	}
	if len(salt) != saltSize || len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("malformed salt or iv: %w", core.ErrDecryption)
	}
	if len(sealed) < aes.BlockSize+tagSize || (len(sealed)-tagSize)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("malformed ciphertext: %w", core.ErrDecryption)
	}

	encKey, macKey := v.derive(password, salt)
	defer Zero(encKey)
	defer Zero(macKey)

	ct, mac := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]
	if !hmac.Equal(mac, tag(macKey, iv, ct)) {
		return nil, core.ErrDecryption
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	out, ok := unpad(plain)
	if !ok {
		Zero(plain)
		return nil, core.ErrDecryption
	}
	return out, nil
}

func (v *Vault) derive(password string, salt []byte) (encKey, macKey []byte) {
	dk := pbkdf2.Key([]byte(password), salt, v.iterations, 2*keySize, sha256.New)
	return dk[:keySize], dk[keySize:]
}

func tag(macKey, iv, ct []byte) []byte {
	h := hmac.New(sha256.New, macKey)
	h.Write(iv)
	h.Write(ct)
	return h.Sum(nil)
}

func pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	out := make([]byte, len(b), len(b)+n)
	copy(out, b)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad strips PKCS#7 padding in place, returning a subslice of b
func unpad(b []byte) ([]byte, bool) {
	if len(b) == 0 || len(b)%aes.BlockSize != 0 {
		return nil, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize {
		return nil, false
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, false
		}
	}
	return b[:len(b)-n], true
}

// Zero overwrites b with zeros
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
