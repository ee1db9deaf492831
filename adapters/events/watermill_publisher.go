package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/layer-3/agentgate/core"
	"github.com/layer-3/agentgate/ports"
)

const (
	TopicLogout       = "agentgate.logout"
	TopicTransactions = "agentgate.transactions"
)

// LogoutEvent represents a logout event
type LogoutEvent struct {
	Address string `json:"address"`
	TokenID string `json:"token_id"`
}

// TransactionEvent is emitted once per dispatch, successful or not
type TransactionEvent struct {
	WalletAddress string            `json:"wallet_address"`
	Sender        string            `json:"sender"`
	Protocol      core.Protocol     `json:"protocol"`
	Action        core.Action       `json:"action"`
	FungibleAsset bool              `json:"fungible_asset"`
	Amount        string            `json:"amount"`
	Hash          string            `json:"hash,omitempty"`
	Status        core.TxStatus     `json:"status"`
	Error         *core.ErrorDetail `json:"error,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	now       func() time.Time
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		now:       time.Now,
	}
}

// PublishLogout publishes a logout event keyed by the revoked token id
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address string, tokenID string) error {
	event := LogoutEvent{
		Address: address,
		TokenID: tokenID,
	}
	return p.publish(ctx, TopicLogout, tokenID, event)
}

// PublishTransaction publishes the outcome of a dispatch
func (p *WatermillPublisher) PublishTransaction(ctx context.Context, req core.ActionRequest, result core.TransactionResult) error {
	event := TransactionEvent{
		WalletAddress: req.WalletAddress,
		Sender:        req.Sender,
		Protocol:      req.Protocol,
		Action:        req.Action,
		FungibleAsset: req.FungibleAsset,
		Amount:        req.Amount.String(),
		Hash:          result.Hash,
		Status:        result.Status,
		Error:         result.Error,
		Timestamp:     p.now().UTC(),
	}
	return p.publish(ctx, TopicTransactions, watermill.NewUUID(), event)
}

func (p *WatermillPublisher) publish(ctx context.Context, topic, id string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(id, payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
