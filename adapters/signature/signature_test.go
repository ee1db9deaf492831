package signature

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/agentgate/core"
)

const testMessage = "Sign this message to authenticate: n1"

func signAptos(t *testing.T, message string) (core.SignedMessage, ed25519.PrivateKey) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	return core.SignedMessage{
		Address:   AptosAddress(pub),
		PublicKey: "0x" + hex.EncodeToString(pub),
		Signature: "0x" + hex.EncodeToString(ed25519.Sign(priv, []byte(message))),
		Message:   message,
	}, priv
}

func signEthereum(t *testing.T, message string) core.SignedMessage {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	return core.SignedMessage{
		Address:   crypto.PubkeyToAddress(key.PublicKey).Hex(),
		PublicKey: hexutil.Encode(crypto.FromECDSAPub(&key.PublicKey)),
		Signature: hexutil.Encode(sig),
		Message:   message,
		Chain:     "ethereum",
	}
}

func TestAptos_Verify(t *testing.T) {
	scheme := NewAptos()
	msg, _ := signAptos(t, testMessage)

	assert.NoError(t, scheme.Verify(msg))

	// Addresses compare case- and padding-insensitively
	upper := msg
	upper.Address = "0x" + strings.ToUpper(strings.TrimPrefix(msg.Address, "0x"))
	assert.NoError(t, scheme.Verify(upper))
}

func TestAptos_Rejects(t *testing.T) {
	scheme := NewAptos()
	msg, _ := signAptos(t, testMessage)
	other, _ := signAptos(t, testMessage)

	cases := map[string]func(m *core.SignedMessage){
		"tampered message": func(m *core.SignedMessage) { m.Message = testMessage + "x" },
		"foreign address":  func(m *core.SignedMessage) { m.Address = other.Address },
		"foreign key":      func(m *core.SignedMessage) { m.PublicKey = other.PublicKey },
		"foreign sig":      func(m *core.SignedMessage) { m.Signature = other.Signature },
		"short sig":        func(m *core.SignedMessage) { m.Signature = "0x1234" },
		"bad hex key":      func(m *core.SignedMessage) { m.PublicKey = "0xzz" },
		"empty sig":        func(m *core.SignedMessage) { m.Signature = "" },
		"bad address":      func(m *core.SignedMessage) { m.Address = "not-an-address" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			m := msg
			mutate(&m)
			assert.ErrorIs(t, scheme.Verify(m), core.ErrInvalidSignature)
		})
	}
}

func TestNormalizeAptosAddress(t *testing.T) {
	got, ok := NormalizeAptosAddress("0x1")
	require.True(t, ok)
	assert.Equal(t, "0x"+strings.Repeat("0", 63)+"1", got)

	got, ok = NormalizeAptosAddress(" 0xABC ")
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(got, "abc"))

	for _, bad := range []string{"", "0x", "0xg1", "0x" + strings.Repeat("a", 65)} {
		_, ok := NormalizeAptosAddress(bad)
		assert.False(t, ok, bad)
	}
}

func TestEthereum_Verify(t *testing.T) {
	scheme := NewEthereum()
	msg := signEthereum(t, testMessage)

	assert.NoError(t, scheme.Verify(msg))

	// Lower-case address and no public key are accepted
	lower := msg
	lower.Address = strings.ToLower(msg.Address)
	lower.PublicKey = ""
	assert.NoError(t, scheme.Verify(lower))
}

func TestEthereum_Rejects(t *testing.T) {
	scheme := NewEthereum()
	msg := signEthereum(t, testMessage)
	other := signEthereum(t, testMessage)

	cases := map[string]func(m *core.SignedMessage){
		"tampered message": func(m *core.SignedMessage) { m.Message = testMessage + "x" },
		"foreign address":  func(m *core.SignedMessage) { m.Address = other.Address },
		"foreign key":      func(m *core.SignedMessage) { m.PublicKey = other.PublicKey },
		"short sig":        func(m *core.SignedMessage) { m.Signature = "0x1234" },
		"not hex":          func(m *core.SignedMessage) { m.Signature = "zz" },
		"bad address":      func(m *core.SignedMessage) { m.Address = "0x123" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			m := msg
			mutate(&m)
			assert.ErrorIs(t, scheme.Verify(m), core.ErrInvalidSignature)
		})
	}
}

func TestSchemes(t *testing.T) {
	_, err := NewSchemes("solana", NewAptos())
	assert.Error(t, err)

	schemes, err := NewSchemes("aptos", NewAptos(), NewEthereum())
	require.NoError(t, err)

	aptosMsg, _ := signAptos(t, testMessage)
	assert.NoError(t, schemes.Verify(aptosMsg))
	assert.NoError(t, schemes.Verify(signEthereum(t, testMessage)))

	aptosMsg.Chain = "solana"
	assert.ErrorIs(t, schemes.Verify(aptosMsg), core.ErrUnknownChain)
}

func TestSchemes_Normalize(t *testing.T) {
	schemes, err := NewSchemes("aptos", NewAptos(), NewEthereum())
	require.NoError(t, err)

	long := "0x" + strings.Repeat("0", 61) + "abc"
	for _, spelling := range []string{"0xabc", "0x0abc", "0xABC", long} {
		got, err := schemes.Normalize("", spelling)
		require.NoError(t, err, spelling)
		assert.Equal(t, long, got, spelling)
	}

	eth := signEthereum(t, testMessage)
	lower := strings.ToLower(eth.Address)
	for _, spelling := range []string{eth.Address, lower, "0x" + strings.ToUpper(lower[2:])} {
		got, err := schemes.Normalize("ethereum", spelling)
		require.NoError(t, err, spelling)
		assert.Equal(t, lower, got, spelling)
	}

	_, err = schemes.Normalize("ethereum", "0xabc")
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
	_, err = schemes.Normalize("ethereum", strings.TrimPrefix(lower, "0x"))
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
	_, err = schemes.Normalize("aptos", "0x"+strings.Repeat("a", 65))
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
	_, err = schemes.Normalize("solana", "0xabc")
	assert.ErrorIs(t, err, core.ErrUnknownChain)
}
