package protocols

import (
	"github.com/layer-3/agentgate/core"
)

var echelonFunctions = map[core.Action]string{
	core.ActionLend:     "supply",
	core.ActionBorrow:   "borrow",
	core.ActionRepay:    "repay",
	core.ActionWithdraw: "withdraw",
}

// Echelon calls are addressed by market object. In the fungible-asset shape
// the market is the runtime address that types the call.
func registerEchelon(r *Registry, module string) {
	for action, function := range echelonFunctions {
		r.Register(core.ProtocolEchelon, action, Variants{
			Coin:          echelonCoin(module, function),
			FungibleAsset: echelonFungibleAsset(module, function),
		})
	}
}

func echelonCoin(module, function string) Builder {
	return func(req core.ActionRequest) (core.TransactionPayload, error) {
		coin, err := coinType(req)
		if err != nil {
			return nil, err
		}
		market, err := requireAddressParam(req, "market", "")
		if err != nil {
			return nil, err
		}

		return core.CoinStandardPayload{
			Sender:    req.Sender,
			Function:  fn(module, "scripts", function),
			CoinType:  coin,
			Arguments: []any{core.Address(market), req.BaseUnits()},
		}, nil
	}
}

func echelonFungibleAsset(module, function string) Builder {
	return func(req core.ActionRequest) (core.TransactionPayload, error) {
		market, err := requireAddressParam(req, "market", "")
		if err != nil {
			return nil, err
		}

		return core.FungibleAssetPayload{
			Sender:    req.Sender,
			Function:  fn(module, "scripts", function+"_fa"),
			Metadata:  market,
			Arguments: []any{core.Address(market), req.BaseUnits()},
		}, nil
	}
}
