package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/layer-3/agentgate/adapters/aptos"
	"github.com/layer-3/agentgate/core"
	"github.com/layer-3/agentgate/dispatcher"
	"github.com/layer-3/agentgate/internal/metrics"
	"github.com/layer-3/agentgate/internal/vault"
	"github.com/layer-3/agentgate/ports"
	"github.com/layer-3/agentgate/protocols"
)

// AgentService runs protocol actions on behalf of an authenticated wallet
// using the custodial agent key registered for it
type AgentService struct {
	keys       ports.KeyStore
	vault      *vault.Vault
	password   string
	registry   *protocols.Registry
	dispatcher *dispatcher.Dispatcher
	client     ports.NetworkClient
	eventPub   ports.EventPublisher
	log        logrus.FieldLogger
}

// NewAgentService creates the agent service. password unlocks every stored
// agent key and is never logged.
func NewAgentService(
	keys ports.KeyStore,
	v *vault.Vault,
	password string,
	registry *protocols.Registry,
	d *dispatcher.Dispatcher,
	client ports.NetworkClient,
	eventPub ports.EventPublisher,
	log logrus.FieldLogger,
) *AgentService {
	return &AgentService{
		keys:       keys,
		vault:      v,
		password:   password,
		registry:   registry,
		dispatcher: d,
		client:     client,
		eventPub:   eventPub,
		log:        log.WithField("component", "agent"),
	}
}

// ImportKey encrypts privateKey and registers it for walletAddress. It
// returns the account address the key controls.
func (s *AgentService) ImportKey(ctx context.Context, walletAddress, privateKey string) (string, error) {
	seed, err := aptos.ParsePrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	defer vault.Zero(seed)

	signer, err := aptos.NewSigner(seed)
	if err != nil {
		return "", err
	}
	account := signer.Address()
	signer.Wipe()

	encrypted, err := s.vault.Encrypt(seed, s.password)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt key: %w", err)
	}

	wallet := core.NormalizeAddress(walletAddress)
	if err := s.keys.SaveKey(ctx, wallet, core.AgentKey{AccountAddress: account, EncryptedKey: encrypted}); err != nil {
		return "", fmt.Errorf("failed to save key: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"wallet":  wallet,
		"account": account,
	}).Info("agent key imported")
	return account, nil
}

// Execute builds, signs and submits req. Errors are returned for requests
// that never reach the network; dispatch outcomes, failures included, are
// reported in the result.
func (s *AgentService) Execute(ctx context.Context, req core.ActionRequest) (core.TransactionResult, error) {
	req.WalletAddress = core.NormalizeAddress(req.WalletAddress)
	if err := req.Validate(); err != nil {
		return core.TransactionResult{}, err
	}

	// Reject unsupported pairs before touching key material
	if _, err := s.registry.Lookup(req.Protocol, req.Action, req.FungibleAsset); err != nil {
		return core.TransactionResult{}, err
	}

	key, err := s.keys.LoadKey(ctx, req.WalletAddress)
	if err != nil {
		return core.TransactionResult{}, err
	}
	req.Sender = key.AccountAddress

	payload, err := s.registry.Build(req)
	if err != nil {
		return core.TransactionResult{}, err
	}

	signer, err := s.unlock(key)
	if err != nil {
		return core.TransactionResult{}, err
	}

	start := time.Now()
	result := s.dispatcher.Dispatch(ctx, payload, signer, s.client)
	metrics.Dispatch(string(req.Protocol), string(req.Action), string(result.Status), time.Since(start))

	if err := s.eventPub.PublishTransaction(ctx, req, result); err != nil {
		s.log.WithError(err).Warn("failed to publish transaction event")
	}

	entry := s.log.WithFields(logrus.Fields{
		"wallet":   req.WalletAddress,
		"protocol": req.Protocol,
		"action":   req.Action,
		"status":   result.Status,
		"hash":     result.Hash,
	})
	if result.Failed() {
		entry.WithField("kind", result.Error.Kind).Warn("action failed")
	} else {
		entry.Info("action submitted")
	}
	return result, nil
}

// unlock decrypts key into a signer. The plaintext is zeroed before return;
// the signer holds its own copy until the dispatcher wipes it.
func (s *AgentService) unlock(key core.AgentKey) (ports.Signer, error) {
	seed, err := s.vault.Decrypt(key.EncryptedKey, s.password)
	if err != nil {
		return nil, err
	}
	defer vault.Zero(seed)

	signer, err := aptos.NewSigner(seed)
	if err != nil {
		return nil, fmt.Errorf("stored key: %v: %w", err, core.ErrDecryption)
	}
	if signer.Address() != key.AccountAddress {
		signer.Wipe()
		return nil, fmt.Errorf("stored key does not match its account: %w", core.ErrDecryption)
	}
	return signer, nil
}

// Actions lists the supported protocol actions
func (s *AgentService) Actions() []protocols.Entry {
	return s.registry.Entries()
}

// TransactionStatus returns the network's view of a submitted transaction
func (s *AgentService) TransactionStatus(ctx context.Context, hash string) (core.TransactionResult, error) {
	if !core.IsTransactionHash(hash) {
		return core.TransactionResult{}, fmt.Errorf("hash %q: %w", hash, core.ErrInvalidRequest)
	}
	return s.client.TransactionStatus(ctx, hash)
}
