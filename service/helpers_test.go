package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/agentgate/adapters/signature"
	"github.com/layer-3/agentgate/adapters/store"
	"github.com/layer-3/agentgate/adapters/tokenizer"
	"github.com/layer-3/agentgate/core"
)

type recordingPublisher struct {
	mu           sync.Mutex
	logouts      []string
	transactions []core.TransactionResult
}

func (p *recordingPublisher) PublishLogout(ctx context.Context, address string, tokenID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logouts = append(p.logouts, tokenID)
	return nil
}

func (p *recordingPublisher) PublishTransaction(ctx context.Context, req core.ActionRequest, result core.TransactionResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transactions = append(p.transactions, result)
	return nil
}

// wallet is an Aptos account controlled by an in-memory key
type wallet struct {
	priv    ed25519.PrivateKey
	pub     ed25519.PublicKey
	address string
}

func newWallet(t *testing.T) wallet {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return wallet{priv: priv, pub: pub, address: signature.AptosAddress(pub)}
}

func (w wallet) sign(message string) core.SignedMessage {
	return core.SignedMessage{
		Address:   w.address,
		PublicKey: "0x" + hex.EncodeToString(w.pub),
		Signature: "0x" + hex.EncodeToString(ed25519.Sign(w.priv, []byte(message))),
		Message:   message,
	}
}

type authFixture struct {
	svc       *AuthService
	nonces    *store.MemoryNonceStore
	publisher *recordingPublisher
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	schemes, err := signature.NewSchemes("aptos", signature.NewAptos(), signature.NewEthereum())
	require.NoError(t, err)

	log, _ := test.NewNullLogger()
	nonces := store.NewMemoryNonceStore()
	publisher := &recordingPublisher{}

	svc := NewAuthService(
		AuthConfig{},
		tokenizer.NewJWTTokenizer(signKey),
		nonces,
		store.NewMemoryRevocationStore(),
		schemes,
		publisher,
		log,
	)
	return authFixture{svc: svc, nonces: nonces, publisher: publisher}
}
