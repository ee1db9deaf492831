package aptos

import (
	"crypto/ed25519"
	"fmt"
	"strings"

	aptossdk "github.com/aptos-labs/aptos-go-sdk"
	"github.com/aptos-labs/aptos-go-sdk/bcs"

	"github.com/layer-3/agentgate/core"
)

// Ed25519 is variant 0 of TransactionAuthenticator
const ed25519Authenticator = 0

// BCSEncoder derives signing messages and submission bodies from the
// envelope alone. Nothing the node returns reaches the bytes a key signs.
type BCSEncoder struct{}

// NewBCSEncoder creates a transaction encoder
func NewBCSEncoder() *BCSEncoder {
	return &BCSEncoder{}
}

// SigningMessage returns the prehashed domain separator followed by the BCS
// encoding of txn
func (e *BCSEncoder) SigningMessage(txn core.RawTransaction) ([]byte, error) {
	raw, err := rawTransaction(txn)
	if err != nil {
		return nil, err
	}
	msg, err := raw.SigningMessage()
	if err != nil {
		return nil, fmt.Errorf("signing message: %v: %w", err, core.ErrMalformedTx)
	}
	return msg, nil
}

// SignedTransaction returns the BCS body accepted by the node's submit
// endpoint
func (e *BCSEncoder) SignedTransaction(txn core.SignedTransaction) ([]byte, error) {
	if len(txn.PublicKey) != ed25519.PublicKeySize || len(txn.Signature) != ed25519.SignatureSize {
		return nil, fmt.Errorf("ed25519 authenticator has wrong key or signature size: %w", core.ErrMalformedTx)
	}

	raw, err := rawTransaction(txn.Raw)
	if err != nil {
		return nil, err
	}
	rawBytes, err := bcs.Serialize(raw)
	if err != nil {
		return nil, fmt.Errorf("raw transaction: %v: %w", err, core.ErrMalformedTx)
	}

	ser := &bcs.Serializer{}
	ser.FixedBytes(rawBytes)
	ser.Uleb128(ed25519Authenticator)
	ser.WriteBytes(txn.PublicKey)
	ser.WriteBytes(txn.Signature)
	if err := ser.Error(); err != nil {
		return nil, fmt.Errorf("signed transaction: %v: %w", err, core.ErrMalformedTx)
	}
	return ser.ToBytes(), nil
}

func rawTransaction(txn core.RawTransaction) (*aptossdk.RawTransaction, error) {
	sender, err := parseAddress(txn.Sender)
	if err != nil {
		return nil, err
	}
	entry, err := entryFunction(txn.Payload)
	if err != nil {
		return nil, err
	}

	return &aptossdk.RawTransaction{
		Sender:                     sender,
		SequenceNumber:             txn.SequenceNumber,
		Payload:                    aptossdk.TransactionPayload{Payload: entry},
		MaxGasAmount:               txn.MaxGasAmount,
		GasUnitPrice:               txn.GasUnitPrice,
		ExpirationTimestampSeconds: txn.ExpirationTimestampSecs,
		ChainId:                    txn.ChainID,
	}, nil
}

func entryFunction(call core.EntryFunction) (*aptossdk.EntryFunction, error) {
	parts := strings.Split(call.Function, "::")
	if len(parts) != 3 {
		return nil, fmt.Errorf("function %q: %w", call.Function, core.ErrMalformedTx)
	}
	module, err := parseAddress(parts[0])
	if err != nil {
		return nil, err
	}

	typeArgs := make([]aptossdk.TypeTag, 0, len(call.TypeArguments))
	for _, s := range call.TypeArguments {
		tag, err := parseStructTag(s)
		if err != nil {
			return nil, err
		}
		typeArgs = append(typeArgs, tag)
	}

	args := make([][]byte, 0, len(call.Arguments))
	for i, arg := range call.Arguments {
		ser := &bcs.Serializer{}
		if err := writeArgument(ser, arg); err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		if err := ser.Error(); err != nil {
			return nil, fmt.Errorf("argument %d: %v: %w", i, err, core.ErrMalformedTx)
		}
		args = append(args, ser.ToBytes())
	}

	return &aptossdk.EntryFunction{
		Module:   aptossdk.ModuleId{Address: module, Name: parts[1]},
		Function: parts[2],
		ArgTypes: typeArgs,
		Args:     args,
	}, nil
}

func writeArgument(ser *bcs.Serializer, arg any) error {
	switch v := arg.(type) {
	case uint64:
		ser.U64(v)
	case bool:
		ser.Bool(v)
	case string:
		ser.WriteString(v)
	case []byte:
		ser.WriteBytes(v)
	case core.Address:
		addr, err := parseAddress(string(v))
		if err != nil {
			return err
		}
		ser.FixedBytes(addr[:])
	case []any:
		ser.Uleb128(uint32(len(v)))
		for _, elem := range v {
			if err := writeArgument(ser, elem); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unsupported argument type %T: %w", arg, core.ErrMalformedTx)
	}
	return nil
}

func parseAddress(s string) (aptossdk.AccountAddress, error) {
	var addr aptossdk.AccountAddress
	if !core.IsAccountAddress(s) {
		return addr, fmt.Errorf("address %q: %w", s, core.ErrMalformedTx)
	}
	if err := addr.ParseStringRelaxed(s); err != nil {
		return addr, fmt.Errorf("address %q: %v: %w", s, err, core.ErrMalformedTx)
	}
	return addr, nil
}

// parseStructTag parses addr::module::Name with optional generic parameters
func parseStructTag(s string) (aptossdk.TypeTag, error) {
	s = strings.TrimSpace(s)
	base, params := s, ""
	if i := strings.IndexByte(s, '<'); i >= 0 {
		if !strings.HasSuffix(s, ">") {
			return aptossdk.TypeTag{}, fmt.Errorf("type %q: %w", s, core.ErrMalformedTx)
		}
		base, params = s[:i], s[i+1:len(s)-1]
	}

	parts := strings.Split(base, "::")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return aptossdk.TypeTag{}, fmt.Errorf("type %q: %w", s, core.ErrMalformedTx)
	}
	addr, err := parseAddress(parts[0])
	if err != nil {
		return aptossdk.TypeTag{}, err
	}

	var typeParams []aptossdk.TypeTag
	if params != "" {
		for _, p := range splitTypeParams(params) {
			tag, err := parseStructTag(p)
			if err != nil {
				return aptossdk.TypeTag{}, err
			}
			typeParams = append(typeParams, tag)
		}
	}

	return aptossdk.TypeTag{Value: &aptossdk.StructTag{
		Address:    addr,
		Module:     parts[1],
		Name:       parts[2],
		TypeParams: typeParams,
	}}, nil
}

// splitTypeParams splits on commas outside nested angle brackets
func splitTypeParams(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}
