package agentgate

import (
	"context"

	"github.com/layer-3/agentgate/core"
	"github.com/layer-3/agentgate/protocols"
)

// Client represents the public interface for interacting with the gateway
type Client interface {
	// Nonce requests a challenge for address under chain
	Nonce(ctx context.Context, address, chain string) (core.Challenge, error)

	// Verify submits a signed challenge and keeps the session cookie
	Verify(ctx context.Context, msg core.SignedMessage) (Session, error)

	// Logout revokes the current session and drops the cookie
	Logout(ctx context.Context) error

	// Session reports the current session
	Session(ctx context.Context) (Session, error)

	// ImportKey registers the agent key used for Execute
	ImportKey(ctx context.Context, privateKey string) (string, error)

	// Actions lists the supported protocol actions
	Actions(ctx context.Context) ([]protocols.Entry, error)

	// Execute runs a protocol action. A dispatch failure is returned as a
	// Failed result together with a *ResponseError.
	Execute(ctx context.Context, req ActionRequest) (core.TransactionResult, error)

	// TransactionStatus reports the network's view of a transaction
	TransactionStatus(ctx context.Context, hash string) (core.TransactionResult, error)
}
