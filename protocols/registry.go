// Package protocols maps logical DeFi actions onto protocol entry functions.
//
// Each (protocol, action) pair registers up to two builders, one per payload
// shape. The request's FungibleAsset flag picks the builder; a pair without a
// builder for the requested shape is unsupported. Builders are pure.
package protocols

import (
	"fmt"
	"sort"

	"github.com/layer-3/agentgate/core"
)

// Builder turns a validated request into a transaction payload
type Builder func(req core.ActionRequest) (core.TransactionPayload, error)

// Variants holds the builders of one (protocol, action) pair
type Variants struct {
	Coin          Builder
	FungibleAsset Builder
}

// Entry describes a registered pair for listing
type Entry struct {
	Protocol core.Protocol       `json:"protocol"`
	Action   core.Action         `json:"action"`
	Shapes   []core.PayloadShape `json:"shapes"`
}

type actionKey struct {
	protocol core.Protocol
	action   core.Action
}

// Registry is a lookup table of builders. It is read-only after setup.
type Registry struct {
	builders map[actionKey]Variants
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{builders: make(map[actionKey]Variants)}
}

// Register adds or replaces the builders for (protocol, action)
func (r *Registry) Register(protocol core.Protocol, action core.Action, v Variants) {
	r.builders[actionKey{protocol, action}] = v
}

// Lookup returns the builder for the requested shape
func (r *Registry) Lookup(protocol core.Protocol, action core.Action, fungibleAsset bool) (Builder, error) {
	v, ok := r.builders[actionKey{protocol, action}]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", protocol, action, core.ErrUnsupportedAction)
	}

	b := v.Coin
	if fungibleAsset {
		b = v.FungibleAsset
	}
	if b == nil {
		return nil, fmt.Errorf("%s/%s with fungibleAsset=%t: %w", protocol, action, fungibleAsset, core.ErrUnsupportedAction)
	}
	return b, nil
}

// Build selects a builder by the request's shape flag and runs it. The
// returned payload always has the requested shape and passes Validate.
func (r *Registry) Build(req core.ActionRequest) (core.TransactionPayload, error) {
	b, err := r.Lookup(req.Protocol, req.Action, req.FungibleAsset)
	if err != nil {
		return nil, err
	}

	payload, err := b(req)
	if err != nil {
		return nil, err
	}

	want := core.ShapeCoinStandard
	if req.FungibleAsset {
		want = core.ShapeFungibleAsset
	}
	if payload.Shape() != want {
		return nil, fmt.Errorf("%s/%s built %s payload, want %s: %w", req.Protocol, req.Action, payload.Shape(), want, core.ErrMalformedTx)
	}

	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return payload, nil
}

// Entries lists registered pairs sorted by protocol then action
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, 0, len(r.builders))
	for k, v := range r.builders {
		e := Entry{Protocol: k.protocol, Action: k.action}
		if v.Coin != nil {
			e.Shapes = append(e.Shapes, core.ShapeCoinStandard)
		}
		if v.FungibleAsset != nil {
			e.Shapes = append(e.Shapes, core.ShapeFungibleAsset)
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Protocol != entries[j].Protocol {
			return entries[i].Protocol < entries[j].Protocol
		}
		return entries[i].Action < entries[j].Action
	})
	return entries
}
