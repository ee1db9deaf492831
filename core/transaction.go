package core

import (
	"fmt"
	"regexp"
)

// PayloadShape distinguishes the two on-chain calling conventions
type PayloadShape string

const (
	ShapeCoinStandard  PayloadShape = "coin"
	ShapeFungibleAsset PayloadShape = "fungible_asset"
)

// Address is a move address argument. Plain strings are move strings.
type Address string

// EntryFunction is the chain-agnostic form of a call, ready for an envelope.
// Arguments hold uint64, bool, string, Address, []byte or []any (a vector).
type EntryFunction struct {
	Function      string   `json:"function"`
	TypeArguments []string `json:"type_arguments"`
	Arguments     []any    `json:"arguments"`
}

// TransactionPayload is either a CoinStandardPayload or a FungibleAssetPayload
type TransactionPayload interface {
	Shape() PayloadShape
	SenderAddress() string
	EntryFunction() EntryFunction
	Validate() error
}

// CoinStandardPayload is typed by a move type argument. CoinType may be empty
// for entry functions that only move the native coin.
type CoinStandardPayload struct {
	Sender    string
	Function  string
	CoinType  string
	Arguments []any
}

func (p CoinStandardPayload) Shape() PayloadShape { return ShapeCoinStandard }
func (p CoinStandardPayload) SenderAddress() string { return p.Sender }

func (p CoinStandardPayload) EntryFunction() EntryFunction {
	typeArgs := []string{}
	if p.CoinType != "" {
		typeArgs = append(typeArgs, p.CoinType)
	}
	return EntryFunction{
		Function:      p.Function,
		TypeArguments: typeArgs,
		Arguments:     cloneArgs(p.Arguments),
	}
}

func (p CoinStandardPayload) Validate() error {
	if err := validateFunction(p.Function); err != nil {
		return err
	}
	if p.CoinType != "" && !typeTagRe.MatchString(p.CoinType) {
		return fmt.Errorf("coin type %q: %w", p.CoinType, ErrMalformedTx)
	}
	return nil
}

// FungibleAssetPayload is typed by the metadata object address passed as a
// runtime argument. Arguments already contain Metadata at the position the
// entry function expects.
type FungibleAssetPayload struct {
	Sender    string
	Function  string
	Metadata  string
	Arguments []any
}

func (p FungibleAssetPayload) Shape() PayloadShape { return ShapeFungibleAsset }
func (p FungibleAssetPayload) SenderAddress() string { return p.Sender }

func (p FungibleAssetPayload) EntryFunction() EntryFunction {
	return EntryFunction{
		Function:      p.Function,
		TypeArguments: []string{},
		Arguments:     cloneArgs(p.Arguments),
	}
}

func (p FungibleAssetPayload) Validate() error {
	if err := validateFunction(p.Function); err != nil {
		return err
	}
	if !accountAddressRe.MatchString(p.Metadata) {
		return fmt.Errorf("metadata %q: %w", p.Metadata, ErrMalformedTx)
	}
	for _, arg := range p.Arguments {
		if a, ok := arg.(Address); ok && string(a) == p.Metadata {
			return nil
		}
	}
	return fmt.Errorf("metadata not passed as argument: %w", ErrMalformedTx)
}

var (
	accountAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)
	txHashRe         = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	functionRe       = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}::[A-Za-z_][A-Za-z0-9_]*::[A-Za-z_][A-Za-z0-9_]*$`)
	typeTagRe        = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}::[A-Za-z_][A-Za-z0-9_]*::[A-Za-z_][A-Za-z0-9_]*(<.+>)?$`)
)

// IsAccountAddress reports whether s is a 0x-prefixed hex account address
func IsAccountAddress(s string) bool {
	return accountAddressRe.MatchString(s)
}

// IsTransactionHash reports whether s is a 0x-prefixed 32 byte hex hash
func IsTransactionHash(s string) bool {
	return txHashRe.MatchString(s)
}

func validateFunction(fn string) error {
	if !functionRe.MatchString(fn) {
		return fmt.Errorf("function %q: %w", fn, ErrMalformedTx)
	}
	return nil
}

func cloneArgs(args []any) []any {
	out := make([]any, len(args))
	copy(out, args)
	return out
}

// RawTransaction is the unsigned envelope around an entry function
type RawTransaction struct {
	Sender                  string
	SequenceNumber          uint64
	MaxGasAmount            uint64
	GasUnitPrice            uint64
	ExpirationTimestampSecs uint64
	ChainID                 uint8
	Payload                 EntryFunction
}

// SignedTransaction is a RawTransaction with its authenticator
type SignedTransaction struct {
	Raw       RawTransaction
	PublicKey []byte
	Signature []byte
}

// TxStatus is the lifecycle state reported for a dispatched transaction
type TxStatus string

const (
	StatusSubmitted TxStatus = "Submitted"
	StatusConfirmed TxStatus = "Confirmed"
	StatusFailed    TxStatus = "Failed"
)

// ErrorKind names the category of a dispatch failure
type ErrorKind string

const (
	ErrorKindValidation     ErrorKind = "ValidationError"
	ErrorKindSignerMismatch ErrorKind = "SignerMismatch"
	ErrorKindSubmission     ErrorKind = "SubmissionError"
	ErrorKindExecution      ErrorKind = "ExecutionError"
)

// ErrorDetail describes why a transaction failed
type ErrorDetail struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Timeout bool      `json:"timeout,omitempty"`
}

// TransactionResult is the normalized outcome of a dispatch
type TransactionResult struct {
	Hash   string       `json:"hash"`
	Status TxStatus     `json:"status"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// Failed reports whether the result carries a failure
func (r TransactionResult) Failed() bool {
	return r.Status == StatusFailed
}
