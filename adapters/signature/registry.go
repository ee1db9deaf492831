package signature

import (
	"fmt"

	"github.com/layer-3/agentgate/core"
	"github.com/layer-3/agentgate/ports"
)

// Schemes selects a SignatureScheme by name
type Schemes struct {
	byName      map[string]ports.SignatureScheme
	defaultName string
}

// NewSchemes registers schemes; defaultName is used for requests without a chain
func NewSchemes(defaultName string, schemes ...ports.SignatureScheme) (*Schemes, error) {
	s := &Schemes{byName: make(map[string]ports.SignatureScheme), defaultName: defaultName}
	for _, scheme := range schemes {
		s.byName[scheme.Name()] = scheme
	}
	if _, ok := s.byName[defaultName]; !ok {
		return nil, fmt.Errorf("default scheme %q not registered", defaultName)
	}
	return s, nil
}

func (s *Schemes) scheme(name string) (ports.SignatureScheme, error) {
	if name == "" {
		name = s.defaultName
	}
	scheme, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, core.ErrUnknownChain)
	}
	return scheme, nil
}

// Verify dispatches msg to the scheme named by msg.Chain
func (s *Schemes) Verify(msg core.SignedMessage) error {
	scheme, err := s.scheme(msg.Chain)
	if err != nil {
		return err
	}
	return scheme.Verify(msg)
}

// Normalize returns the canonical form of address under the scheme named by
// chain
func (s *Schemes) Normalize(chain, address string) (string, error) {
	scheme, err := s.scheme(chain)
	if err != nil {
		return "", err
	}
	canonical, ok := scheme.NormalizeAddress(address)
	if !ok {
		return "", fmt.Errorf("%q is not a %s address: %w", address, scheme.Name(), core.ErrInvalidAddress)
	}
	return canonical, nil
}
