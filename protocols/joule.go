package protocols

import (
	"github.com/layer-3/agentgate/core"
)

// Joule positions are numbered; lending may open a new one
func registerJoule(r *Registry, module string) {
	for _, action := range []core.Action{core.ActionLend, core.ActionBorrow, core.ActionRepay, core.ActionWithdraw} {
		r.Register(core.ProtocolJoule, action, Variants{
			Coin:          jouleCoin(module, action),
			FungibleAsset: jouleFungibleAsset(module, action),
		})
	}
}

// jouleArgs returns the arguments that follow the position id and amount
func jouleArgs(req core.ActionRequest) (positionID string, tail []any, err error) {
	switch req.Action {
	case core.ActionLend:
		newPosition, err := boolParam(req, "newPosition", req.Param("positionId", "") == "")
		if err != nil {
			return "", nil, err
		}
		return req.Param("positionId", "0"), []any{newPosition}, nil
	case core.ActionBorrow, core.ActionWithdraw:
		positionID, err = requireParam(req, "positionId")
		// Empty oracle price update
		return positionID, []any{[]any{}}, err
	default:
		positionID, err = requireParam(req, "positionId")
		return positionID, nil, err
	}
}

func jouleCoin(module string, action core.Action) Builder {
	return func(req core.ActionRequest) (core.TransactionPayload, error) {
		coin, err := coinType(req)
		if err != nil {
			return nil, err
		}
		positionID, tail, err := jouleArgs(req)
		if err != nil {
			return nil, err
		}

		args := append([]any{positionID, req.BaseUnits()}, tail...)
		return core.CoinStandardPayload{
			Sender:    req.Sender,
			Function:  fn(module, "pool", string(action)),
			CoinType:  coin,
			Arguments: args,
		}, nil
	}
}

func jouleFungibleAsset(module string, action core.Action) Builder {
	return func(req core.ActionRequest) (core.TransactionPayload, error) {
		meta, err := metadata(req)
		if err != nil {
			return nil, err
		}
		positionID, tail, err := jouleArgs(req)
		if err != nil {
			return nil, err
		}

		args := append([]any{positionID, core.Address(meta), req.BaseUnits()}, tail...)
		return core.FungibleAssetPayload{
			Sender:    req.Sender,
			Function:  fn(module, "pool", string(action)+"_fa"),
			Metadata:  meta,
			Arguments: args,
		}, nil
	}
}
