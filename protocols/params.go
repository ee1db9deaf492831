package protocols

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/layer-3/agentgate/core"
)

func fn(module, name, function string) string {
	return module + "::" + name + "::" + function
}

// coinType returns the asset as a move type tag for coin-standard calls
func coinType(req core.ActionRequest) (string, error) {
	if !strings.Contains(req.AssetType, "::") {
		return "", fmt.Errorf("coin-standard call needs a coin type, got %q: %w", req.AssetType, core.ErrInvalidRequest)
	}
	return req.AssetType, nil
}

// metadata returns the asset as an object address for fungible-asset calls
func metadata(req core.ActionRequest) (string, error) {
	if !core.IsAccountAddress(req.AssetType) {
		return "", fmt.Errorf("fungible-asset call needs a metadata address, got %q: %w", req.AssetType, core.ErrInvalidRequest)
	}
	return req.AssetType, nil
}

func requireParam(req core.ActionRequest, name string) (string, error) {
	v := req.Param(name, "")
	if v == "" {
		return "", fmt.Errorf("%s is required for %s/%s: %w", name, req.Protocol, req.Action, core.ErrInvalidRequest)
	}
	return v, nil
}

func requireAddressParam(req core.ActionRequest, name, def string) (string, error) {
	v := req.Param(name, def)
	if !core.IsAccountAddress(v) {
		return "", fmt.Errorf("%s must be an address, got %q: %w", name, v, core.ErrInvalidRequest)
	}
	return v, nil
}

func boolParam(req core.ActionRequest, name string, def bool) (bool, error) {
	v := req.Param(name, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", name, core.ErrInvalidRequest)
	}
	return b, nil
}
