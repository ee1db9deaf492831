package protocols

import (
	"github.com/layer-3/agentgate/core"
)

// Liquid staking of the native coin. These entry functions take no type
// argument and have no fungible-asset variant.
func registerStaking(r *Registry, addrs Addresses) {
	r.Register(core.ProtocolAmnis, core.ActionStake, Variants{Coin: amnis(addrs.Amnis, "deposit_and_stake_entry")})
	r.Register(core.ProtocolAmnis, core.ActionUnstake, Variants{Coin: amnis(addrs.Amnis, "unstake_entry")})

	r.Register(core.ProtocolThala, core.ActionStake, Variants{Coin: amountOnly(fn(addrs.Thala, "scripts", "stake_APT_and_thAPT"))})
	r.Register(core.ProtocolThala, core.ActionUnstake, Variants{Coin: amountOnly(fn(addrs.Thala, "scripts", "unstake_thAPT"))})

	r.Register(core.ProtocolEcho, core.ActionStake, Variants{Coin: amountOnly(fn(addrs.Echo, "lsdmanage", "stake"))})
	r.Register(core.ProtocolEcho, core.ActionUnstake, Variants{Coin: amountOnly(fn(addrs.Echo, "lsdmanage", "unstake"))})
}

// amnis mints or burns stAPT for a recipient, the sender by default
func amnis(module, function string) Builder {
	return func(req core.ActionRequest) (core.TransactionPayload, error) {
		recipient, err := requireAddressParam(req, "recipient", req.Sender)
		if err != nil {
			return nil, err
		}

		return core.CoinStandardPayload{
			Sender:    req.Sender,
			Function:  fn(module, "router", function),
			Arguments: []any{req.BaseUnits(), core.Address(recipient)},
		}, nil
	}
}

func amountOnly(function string) Builder {
	return func(req core.ActionRequest) (core.TransactionPayload, error) {
		return core.CoinStandardPayload{
			Sender:    req.Sender,
			Function:  function,
			Arguments: []any{req.BaseUnits()},
		}, nil
	}
}
