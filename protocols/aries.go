package protocols

import (
	"github.com/layer-3/agentgate/core"
)

const ariesDefaultProfile = "Main account"

// Aries only exposes coin-standard entry points. Deposit and withdraw carry a
// flag that turns them into repay-only and allow-borrow respectively.
func registerAries(r *Registry, module string) {
	calls := map[core.Action]struct {
		function string
		flag     bool
	}{
		core.ActionLend:     {"deposit", false},
		core.ActionRepay:    {"deposit", true},
		core.ActionWithdraw: {"withdraw", false},
		core.ActionBorrow:   {"withdraw", true},
	}

	for action, call := range calls {
		r.Register(core.ProtocolAries, action, Variants{
			Coin: ariesCoin(module, call.function, call.flag),
		})
	}
}

func ariesCoin(module, function string, flag bool) Builder {
	return func(req core.ActionRequest) (core.TransactionPayload, error) {
		coin, err := coinType(req)
		if err != nil {
			return nil, err
		}

		return core.CoinStandardPayload{
			Sender:    req.Sender,
			Function:  fn(module, "controller", function),
			CoinType:  coin,
			Arguments: []any{req.Param("profile", ariesDefaultProfile), req.BaseUnits(), flag},
		}, nil
	}
}
