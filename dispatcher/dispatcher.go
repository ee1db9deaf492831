// Package dispatcher wraps a protocol payload in a transaction envelope,
// signs it with an ephemeral key and submits it to the network exactly once.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/layer-3/agentgate/adapters/signature"
	"github.com/layer-3/agentgate/core"
	"github.com/layer-3/agentgate/ports"
)

const (
	DefaultTimeout      = 20 * time.Second
	DefaultMaxGasAmount = 10000
	DefaultGasUnitPrice = 100
	DefaultTxExpiry     = 60 * time.Second
	DefaultChainID      = 1
)

// Config holds envelope parameters and the submission deadline
type Config struct {
	Timeout      time.Duration
	MaxGasAmount uint64
	GasUnitPrice uint64
	TxExpiry     time.Duration
	ChainID      uint8
}

// Dispatcher submits payloads. It holds no key material between calls.
type Dispatcher struct {
	cfg     Config
	encoder ports.TransactionEncoder
	log     logrus.FieldLogger
	now     func() time.Time
}

// New creates a dispatcher, filling zero config values with defaults. The
// encoder alone decides what gets signed.
func New(cfg Config, encoder ports.TransactionEncoder, log logrus.FieldLogger) *Dispatcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxGasAmount == 0 {
		cfg.MaxGasAmount = DefaultMaxGasAmount
	}
	if cfg.GasUnitPrice == 0 {
		cfg.GasUnitPrice = DefaultGasUnitPrice
	}
	if cfg.TxExpiry == 0 {
		cfg.TxExpiry = DefaultTxExpiry
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = DefaultChainID
	}
	return &Dispatcher{
		cfg:     cfg,
		encoder: encoder,
		log:     log.WithField("component", "dispatcher"),
		now:     time.Now,
	}
}

// Dispatch signs payload with signer and submits it through client. The
// signer is wiped before Dispatch returns, whatever the outcome. Failures are
// reported in the result; a failed submission is never retried.
func (d *Dispatcher) Dispatch(ctx context.Context, payload core.TransactionPayload, signer ports.Signer, client ports.NetworkClient) core.TransactionResult {
	defer signer.Wipe()

	if payload == nil {
		return failed("", core.ErrorKindValidation, "empty payload", false)
	}
	if err := payload.Validate(); err != nil {
		return failed("", core.ErrorKindValidation, err.Error(), false)
	}

	sender, ok := signature.NormalizeAptosAddress(payload.SenderAddress())
	if !ok {
		return failed("", core.ErrorKindValidation, fmt.Sprintf("sender %q: %s", payload.SenderAddress(), core.ErrMalformedTx), false)
	}
	if signerAddr, _ := signature.NormalizeAptosAddress(signer.Address()); signerAddr != sender {
		return failed("", core.ErrorKindSignerMismatch, core.ErrSignerMismatch.Error(), false)
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	log := d.log.WithFields(logrus.Fields{
		"sender":   sender,
		"function": payload.EntryFunction().Function,
	})

	hash, err := d.submit(ctx, sender, payload, signer, client)
	if errors.Is(err, core.ErrMalformedTx) {
		log.WithError(err).Warn("payload cannot be encoded")
		return failed("", core.ErrorKindValidation, err.Error(), false)
	}
	if err != nil {
		timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
		log.WithError(err).WithField("timeout", timeout).Warn("submission failed")
		return failed(hash, core.ErrorKindSubmission, err.Error(), timeout)
	}

	log.WithField("hash", hash).Info("transaction submitted")
	return core.TransactionResult{Hash: hash, Status: core.StatusSubmitted}
}

func (d *Dispatcher) submit(ctx context.Context, sender string, payload core.TransactionPayload, signer ports.Signer, client ports.NetworkClient) (string, error) {
	seq, err := client.SequenceNumber(ctx, sender)
	if err != nil {
		return "", fmt.Errorf("sequence number: %w", err)
	}

	raw := core.RawTransaction{
		Sender:                  sender,
		SequenceNumber:          seq,
		MaxGasAmount:            d.cfg.MaxGasAmount,
		GasUnitPrice:            d.cfg.GasUnitPrice,
		ExpirationTimestampSecs: uint64(d.now().Add(d.cfg.TxExpiry).Unix()),
		ChainID:                 d.cfg.ChainID,
		Payload:                 payload.EntryFunction(),
	}

	msg, err := d.encoder.SigningMessage(raw)
	if err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}

	sig, err := signer.Sign(msg)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}

	hash, err := client.Submit(ctx, core.SignedTransaction{
		Raw:       raw,
		PublicKey: signer.PublicKey(),
		Signature: sig,
	})
	if err != nil {
		return hash, fmt.Errorf("submit: %w", err)
	}
	return hash, nil
}

func failed(hash string, kind core.ErrorKind, msg string, timeout bool) core.TransactionResult {
	return core.TransactionResult{
		Hash:   hash,
		Status: core.StatusFailed,
		Error:  &core.ErrorDetail{Kind: kind, Message: msg, Timeout: timeout},
	}
}
