package orchestrator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/bus"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/bus/bustest"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/sagastore"
)

func newOrder() domain.OrderData {
	return domain.OrderData{
		OrderID:     uuid.New(),
		CustomerID:  uuid.New(),
		ProductID:   uuid.New(),
		Quantity:    2,
		TotalAmount: 19.98,
	}
}

func TestStartSaga_PersistsAndSendsFirstCommand(t *testing.T) {
	store := sagastore.NewMemoryStore()
	b := bustest.New()
	o := New(store, b, zerolog.Nop())

	order := newOrder()
	saga, err := o.StartSaga(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, domain.SagaStarted, saga.Status)

	msgs := b.MessagesOn(bus.TopicOrderCommands)
	require.Len(t, msgs, 1)
	assert.Equal(t, saga.ID.String(), msgs[0].Key)

	var cmd domain.Command
	require.NoError(t, json.Unmarshal(msgs[0].Value, &cmd))
	assert.Equal(t, domain.CommandCreateOrder, cmd.CommandType)
	assert.Equal(t, saga.ID, cmd.SagaID)
}

// TestHappyPath_AllFourStepsSucceed walks S1: CreateOrder -> ProcessPayment
// -> ReserveInventory -> ApproveOrder, all replying Success, ending
// saga.status == Completed.
func TestHappyPath_AllFourStepsSucceed(t *testing.T) {
	store := sagastore.NewMemoryStore()
	b := bustest.New()
	o := New(store, b, zerolog.Nop())

	saga, err := o.StartSaga(context.Background(), newOrder())
	require.NoError(t, err)

	wantTopics := []string{bus.TopicOrderCommands, bus.TopicPaymentCommands, bus.TopicInventoryCommands, bus.TopicOrderCommands}
	for i, wantTopic := range wantTopics {
		msgs := b.MessagesOn(wantTopic)
		var cmd domain.Command
		require.NoError(t, json.Unmarshal(msgs[len(msgs)-1].Value, &cmd))

		require.NoError(t, o.HandleReply(context.Background(), domain.SuccessReply(cmd.ID, saga.ID, nil)))

		reloaded, err := store.Get(context.Background(), saga.ID)
		require.NoError(t, err)
		if i < len(wantTopics)-1 {
			assert.Equal(t, domain.SagaStarted, reloaded.Status, "step %d", i)
		} else {
			assert.Equal(t, domain.SagaCompleted, reloaded.Status)
		}
	}
}

// TestCompensation_PaymentFailsTriggersOrderCancel walks S2: payment
// step fails, the orchestrator must compensate the order step (the only
// already-successful step) by sending CancelOrder, and finish
// Compensated once that compensation succeeds.
func TestCompensation_PaymentFailsTriggersOrderCancel(t *testing.T) {
	store := sagastore.NewMemoryStore()
	b := bustest.New()
	o := New(store, b, zerolog.Nop())

	saga, err := o.StartSaga(context.Background(), newOrder())
	require.NoError(t, err)

	createMsgs := b.MessagesOn(bus.TopicOrderCommands)
	var createCmd domain.Command
	require.NoError(t, json.Unmarshal(createMsgs[0].Value, &createCmd))
	require.NoError(t, o.HandleReply(context.Background(), domain.SuccessReply(createCmd.ID, saga.ID, nil)))

	paymentMsgs := b.MessagesOn(bus.TopicPaymentCommands)
	var paymentCmd domain.Command
	require.NoError(t, json.Unmarshal(paymentMsgs[0].Value, &paymentCmd))
	require.NoError(t, o.HandleReply(context.Background(), domain.FailedReply(paymentCmd.ID, saga.ID, "insufficient funds")))

	reloaded, err := store.Get(context.Background(), saga.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SagaCompensating, reloaded.Status)

	cancelMsgs := b.MessagesOn(bus.TopicOrderCommands)
	require.Len(t, cancelMsgs, 2, "expected CreateOrder then CancelOrder")
	var cancelCmd domain.Command
	require.NoError(t, json.Unmarshal(cancelMsgs[1].Value, &cancelCmd))
	assert.Equal(t, domain.CommandCancelOrder, cancelCmd.CommandType)

	require.NoError(t, o.HandleReply(context.Background(), domain.SuccessReply(cancelCmd.ID, saga.ID, nil)))
	reloaded, err = store.Get(context.Background(), saga.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SagaCompensated, reloaded.Status)
}

// TestCompensation_InventoryFailsCompensatesPaymentThenOrder walks S3:
// inventory fails after payment and order already succeeded, so both
// must be compensated in reverse order (payment first, then order).
func TestCompensation_InventoryFailsCompensatesPaymentThenOrder(t *testing.T) {
	store := sagastore.NewMemoryStore()
	b := bustest.New()
	o := New(store, b, zerolog.Nop())

	saga, err := o.StartSaga(context.Background(), newOrder())
	require.NoError(t, err)

	advance := func(topic string, index int) domain.Command {
		msgs := b.MessagesOn(topic)
		var cmd domain.Command
		require.NoError(t, json.Unmarshal(msgs[index].Value, &cmd))
		return cmd
	}

	createCmd := advance(bus.TopicOrderCommands, 0)
	require.NoError(t, o.HandleReply(context.Background(), domain.SuccessReply(createCmd.ID, saga.ID, nil)))

	paymentCmd := advance(bus.TopicPaymentCommands, 0)
	require.NoError(t, o.HandleReply(context.Background(), domain.SuccessReply(paymentCmd.ID, saga.ID, nil)))

	inventoryCmd := advance(bus.TopicInventoryCommands, 0)
	require.NoError(t, o.HandleReply(context.Background(), domain.FailedReply(inventoryCmd.ID, saga.ID, "insufficient inventory")))

	compensatePaymentCmd := advance(bus.TopicPaymentCommands, 1)
	assert.Equal(t, domain.CommandCompensatePayment, compensatePaymentCmd.CommandType)
	require.NoError(t, o.HandleReply(context.Background(), domain.SuccessReply(compensatePaymentCmd.ID, saga.ID, nil)))

	cancelOrderCmd := advance(bus.TopicOrderCommands, 1)
	assert.Equal(t, domain.CommandCancelOrder, cancelOrderCmd.CommandType)
	require.NoError(t, o.HandleReply(context.Background(), domain.SuccessReply(cancelOrderCmd.ID, saga.ID, nil)))

	reloaded, err := store.Get(context.Background(), saga.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SagaCompensated, reloaded.Status)
}

func TestHandleReply_UnknownSagaIsDroppedNotErrored(t *testing.T) {
	store := sagastore.NewMemoryStore()
	b := bustest.New()
	o := New(store, b, zerolog.Nop())

	err := o.HandleReply(context.Background(), domain.SuccessReply(uuid.New(), uuid.New(), nil))
	assert.NoError(t, err)
}

// TestRun_HandleMessageDecodesReplyAndAdvancesSaga calls handleMessage,
// the handler Run registers for the replies topic, directly with an
// encoded Success reply. It does not call Run itself: Run would have to
// be started in a second goroutine, and publishing before its Subscribe
// step has happened would race in a unit test.
func TestRun_HandleMessageDecodesReplyAndAdvancesSaga(t *testing.T) {
	store := sagastore.NewMemoryStore()
	b := bustest.New()
	o := New(store, b, zerolog.Nop())

	order := newOrder()
	saga, err := o.StartSaga(context.Background(), order)
	require.NoError(t, err)

	createOrderCmd := decodeCommand(t, b.MessagesOn(bus.TopicOrderCommands)[0])

	reply := domain.SuccessReply(createOrderCmd.ID, saga.ID, order)
	raw, err := json.Marshal(reply)
	require.NoError(t, err)

	require.NoError(t, o.handleMessage(context.Background(), bus.TopicOrderReplies, []byte(saga.ID.String()), raw))

	reloaded, err := store.Get(context.Background(), saga.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, reloaded.CurrentStep)
}

func TestRun_UndecodableReplyIsDroppedWithoutError(t *testing.T) {
	store := sagastore.NewMemoryStore()
	b := bustest.New()
	o := New(store, b, zerolog.Nop())

	err := o.handleMessage(context.Background(), bus.TopicOrderReplies, []byte("key"), []byte("not json"))
	assert.NoError(t, err)
}

func decodeCommand(t *testing.T, msg bustest.Message) domain.Command {
	t.Helper()
	var cmd domain.Command
	require.NoError(t, json.Unmarshal(msg.Value, &cmd))
	return cmd
}
