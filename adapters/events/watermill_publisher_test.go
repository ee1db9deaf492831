package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/agentgate/core"
)

func subscribe(t *testing.T, topic string) (*gochannel.GoChannel, <-chan *message.Message) {
	t.Helper()
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 4}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	messages, err := pubSub.Subscribe(ctx, topic)
	require.NoError(t, err)
	return pubSub, messages
}

func receive(t *testing.T, messages <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-messages:
		msg.Ack()
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestPublishLogout(t *testing.T) {
	pubSub, messages := subscribe(t, TopicLogout)
	pub := NewWatermillPublisher(pubSub)

	require.NoError(t, pub.PublishLogout(context.Background(), "0xabc", "token-1"))

	msg := receive(t, messages)
	assert.Equal(t, "token-1", msg.UUID)

	var event LogoutEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &event))
	assert.Equal(t, LogoutEvent{Address: "0xabc", TokenID: "token-1"}, event)
}

func TestPublishTransaction(t *testing.T) {
	pubSub, messages := subscribe(t, TopicTransactions)
	pub := &WatermillPublisher{
		publisher: pubSub,
		now:       func() time.Time { return time.Unix(1700000000, 0) },
	}

	req := core.ActionRequest{
		Protocol:      core.ProtocolJoule,
		Action:        core.ActionLend,
		WalletAddress: "0xwallet",
		Sender:        "0xagent",
		Amount:        decimal.NewFromInt(42),
		FungibleAsset: true,
	}
	result := core.TransactionResult{
		Status: core.StatusFailed,
		Error:  &core.ErrorDetail{Kind: core.ErrorKindSubmission, Message: "boom", Timeout: true},
	}
	require.NoError(t, pub.PublishTransaction(context.Background(), req, result))

	msg := receive(t, messages)
	assert.NotEmpty(t, msg.UUID)

	var event TransactionEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &event))
	assert.Equal(t, core.ProtocolJoule, event.Protocol)
	assert.Equal(t, "42", event.Amount)
	assert.True(t, event.FungibleAsset)
	assert.Equal(t, core.StatusFailed, event.Status)
	require.NotNil(t, event.Error)
	assert.True(t, event.Error.Timeout)
	assert.Empty(t, event.Hash)
	assert.True(t, event.Timestamp.Equal(time.Unix(1700000000, 0)))
}

func TestPublish_ClosedPublisher(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	require.NoError(t, pubSub.Close())

	err := NewWatermillPublisher(pubSub).PublishLogout(context.Background(), "0xabc", "token-1")
	assert.Error(t, err)
}
