package ports

import "github.com/layer-3/agentgate/core"

// Tokenizer converts between sessions and signed credentials
type Tokenizer interface {
	SessionToToken(session *core.Session) (string, error)

	// TokenToSession verifies signature and expiry
	TokenToSession(token string) (*core.Session, error)
}
