package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Protocol names a DeFi protocol reachable through the registry
type Protocol string

const (
	ProtocolJoule   Protocol = "joule"
	ProtocolEchelon Protocol = "echelon"
	ProtocolAries   Protocol = "aries"
	ProtocolAmnis   Protocol = "amnis"
	ProtocolThala   Protocol = "thala"
	ProtocolEcho    Protocol = "echo"
)

// Action is a logical DeFi operation
type Action string

const (
	ActionStake    Action = "stake"
	ActionUnstake  Action = "unstake"
	ActionLend     Action = "lend"
	ActionBorrow   Action = "borrow"
	ActionRepay    Action = "repay"
	ActionWithdraw Action = "withdraw"
)

var (
	maxU64   = decimal.RequireFromString("18446744073709551615")
	digitsRe = regexp.MustCompile(`^[0-9]+$`)
)

// ParseAmount parses a base-unit amount. It must be written as plain decimal
// digits and be a positive integer that fits an on-chain u64.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !digitsRe.MatchString(s) {
		return decimal.Decimal{}, fmt.Errorf("%q: %w", s, ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%q: %w", s, ErrInvalidAmount)
	}
	if !d.IsInteger() || !d.IsPositive() || d.GreaterThan(maxU64) {
		return decimal.Decimal{}, fmt.Errorf("%q: %w", s, ErrInvalidAmount)
	}
	return d, nil
}

// ActionRequest is a validated request to run a protocol action
type ActionRequest struct {
	Protocol      Protocol
	Action        Action
	WalletAddress string            // Session identity
	Sender        string            // On-chain account that will sign
	AssetType     string            // Coin type tag or fungible asset metadata address
	Amount        decimal.Decimal   // Base units
	FungibleAsset bool              // Selects the fungible-asset call shape
	Extra         map[string]string // Protocol specific parameters
}

// Param returns an extra parameter or def when absent
func (r ActionRequest) Param(name, def string) string {
	if v, ok := r.Extra[name]; ok && v != "" {
		return v
	}
	return def
}

// Validate checks request fields that do not depend on the protocol
func (r ActionRequest) Validate() error {
	if r.Protocol == "" || r.Action == "" {
		return fmt.Errorf("protocol and action are required: %w", ErrInvalidRequest)
	}
	if r.WalletAddress == "" {
		return fmt.Errorf("wallet address is required: %w", ErrInvalidAddress)
	}
	if !r.Amount.IsInteger() || !r.Amount.IsPositive() || r.Amount.GreaterThan(maxU64) {
		return ErrInvalidAmount
	}
	return nil
}

// BaseUnits returns Amount as a u64. Call after Validate.
func (r ActionRequest) BaseUnits() uint64 {
	return r.Amount.BigInt().Uint64()
}
