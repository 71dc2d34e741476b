package bustest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishDeliversToSubscriber(t *testing.T) {
	b := New()
	var got []string
	b.Subscribe("order-service-commands", "order-service", func(ctx context.Context, topic string, key, value []byte) error {
		got = append(got, string(value))
		return nil
	})

	require.NoError(t, b.Publish(context.Background(), "order-service-commands", "saga-1", []byte("first")))
	require.NoError(t, b.Publish(context.Background(), "order-service-commands", "saga-1", []byte("second")))

	assert.Equal(t, []string{"first", "second"}, got)
	assert.Len(t, b.MessagesOn("order-service-commands"), 2)
	assert.Empty(t, b.MessagesOn("other-topic"))
}

func TestBus_HandlerErrorPropagatesFromPublish(t *testing.T) {
	b := New()
	b.Subscribe("t", "g", func(ctx context.Context, topic string, key, value []byte) error {
		return assert.AnError
	})
	err := b.Publish(context.Background(), "t", "k", []byte("v"))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestBus_ConsumeBlocksUntilContextCancelled(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- b.Consume(ctx, "order-service", []string{"order-service-commands"}, func(ctx context.Context, topic string, key, value []byte) error {
			return nil
		})
	}()

	require.NoError(t, b.Publish(context.Background(), "order-service-commands", "saga-1", []byte("x")))
	cancel()
	require.NoError(t, <-done)
}
