package ports

import (
	"context"

	"github.com/layer-3/agentgate/core"
)

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishLogout(ctx context.Context, address string, tokenID string) error
	PublishTransaction(ctx context.Context, req core.ActionRequest, result core.TransactionResult) error
}
