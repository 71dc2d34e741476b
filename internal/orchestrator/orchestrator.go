// Package orchestrator drives the order fulfillment saga: it starts new
// sagas from incoming orders and advances or compensates them as
// participant replies arrive.
//
// Grounded on the Rust SagaManager this system was distilled from
// (order-service/src/handlers.rs): the match over CommandStatus becomes
// a switch, context.get(...).unwrap() chains become explicit lookups
// with error returns, and the diesel AsChangeset update becomes one
// UPDATE statement issued by sagastore.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/bus"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/sagastore"
)

// Orchestrator owns the saga state machine. It is safe to call
// HandleReply concurrently across distinct sagas; callers must not call
// it concurrently for the same saga_id (the bus's partition-key
// ordering guarantee is what the real deployment relies on for that).
type Orchestrator struct {
	store      sagastore.Store
	producer   bus.Producer
	log        zerolog.Logger
	replyTopic string
}

// New builds an Orchestrator subscribed to the shared replies topic by
// default; call SetReplyTopic to override it (e.g. from --reply-topic).
func New(store sagastore.Store, producer bus.Producer, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{store: store, producer: producer, log: log, replyTopic: bus.TopicOrderReplies}
}

// SetReplyTopic overrides the topic Run subscribes to. A blank topic
// is ignored, leaving the default in place.
func (o *Orchestrator) SetReplyTopic(topic string) {
	if topic != "" {
		o.replyTopic = topic
	}
}

// Run consumes every participant's replies from the configured replies
// topic until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context, consumer bus.Consumer) error {
	return consumer.Consume(ctx, "orchestrator", []string{o.replyTopic}, o.handleMessage)
}

func (o *Orchestrator) handleMessage(ctx context.Context, topic string, key, value []byte) error {
	var reply domain.CommandReply
	if err := json.Unmarshal(value, &reply); err != nil {
		o.log.Warn().Err(err).Str("topic", topic).Msg("dropping undecodable reply")
		return nil
	}
	return o.HandleReply(ctx, reply)
}

// StartSaga constructs the fixed forward plan for orderData, persists
// it, and sends the first command. A publish failure here is raised to
// the caller (the HTTP handler), per spec §4.F's failure semantics,
// rather than only logged as in HandleReply. The saga row has already
// been persisted at that point and stays in Started status.
func (o *Orchestrator) StartSaga(ctx context.Context, orderData domain.OrderData) (*domain.SagaTransaction, error) {
	saga := domain.NewSagaTransaction(orderData)
	if err := o.store.Create(ctx, saga); err != nil {
		return nil, fmt.Errorf("orchestrator: persist new saga %s: %w", saga.ID, err)
	}

	step, ok := saga.CurrentStepDef()
	if !ok {
		return saga, fmt.Errorf("orchestrator: saga %s has no steps", saga.ID)
	}
	if err := o.sendCommand(ctx, saga, step.ServiceName, step.CommandType); err != nil {
		return saga, fmt.Errorf("orchestrator: send first command for saga %s: %w", saga.ID, err)
	}
	return saga, nil
}

// HandleReply applies one CommandReply to the saga it belongs to. A
// reply for an unknown saga is logged and dropped rather than treated
// as an error, since that's expected behavior for a reply replayed
// after its saga row was purged.
func (o *Orchestrator) HandleReply(ctx context.Context, reply domain.CommandReply) error {
	saga, err := o.store.Get(ctx, reply.SagaID)
	if errors.Is(err, sagastore.ErrNotFound) {
		o.log.Warn().Str("saga_id", reply.SagaID.String()).Str("command_id", reply.CommandID.String()).
			Msg("reply for unknown saga, dropping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("orchestrator: load saga %s: %w", reply.SagaID, err)
	}

	switch reply.Status {
	case domain.StatusSuccess:
		if saga.Status == domain.SagaCompensating {
			saga.AdvanceCompensationIndex()
			if err := o.processNextCompensation(ctx, saga); err != nil {
				o.log.Error().Err(err).Str("saga_id", saga.ID.String()).
					Msg("failed to send next compensation command, saga left pending")
			}
		} else {
			saga.AdvanceStep()
			if step, ok := saga.CurrentStepDef(); ok {
				if err := o.sendCommand(ctx, saga, step.ServiceName, step.CommandType); err != nil {
					o.log.Error().Err(err).Str("saga_id", saga.ID.String()).
						Msg("failed to send next forward command, saga left pending")
				}
			} else {
				saga.Status = domain.SagaCompleted
			}
		}

	case domain.StatusFailed:
		saga.Status = domain.SagaCompensating
		o.startCompensation(saga)
		if err := o.processNextCompensation(ctx, saga); err != nil {
			o.log.Error().Err(err).Str("saga_id", saga.ID.String()).
				Msg("failed to send first compensation command, saga left pending")
		}

	case domain.StatusCompensated:
		// Legacy path: no participant in this module emits this status
		// (see the design notes on the Compensated reply question), but
		// the branch is kept for wire compatibility with the original.
		saga.AdvanceCompensationIndex()
		if err := o.processNextCompensation(ctx, saga); err != nil {
			o.log.Error().Err(err).Str("saga_id", saga.ID.String()).
				Msg("failed to send next compensation command, saga left pending")
		}
	}

	if err := o.store.Update(ctx, saga); err != nil {
		return fmt.Errorf("orchestrator: persist saga %s: %w", saga.ID, err)
	}
	return nil
}

// startCompensation computes the reversed, compensation-bearing subset
// of the already-successful steps and stashes it in the saga context.
// current_step has not been advanced past the step that just failed,
// so CompensationSteps() already excludes it correctly.
func (o *Orchestrator) startCompensation(saga *domain.SagaTransaction) {
	saga.SetCompensationPlan(saga.CompensationSteps())
}

// processNextCompensation sends the compensation command at the
// current compensation cursor, or marks the saga Compensated once the
// cursor runs past the end of the plan.
func (o *Orchestrator) processNextCompensation(ctx context.Context, saga *domain.SagaTransaction) error {
	steps, idx, ok := saga.CompensationPlan()
	if !ok {
		return fmt.Errorf("orchestrator: saga %s has no compensation plan", saga.ID)
	}
	if idx >= len(steps) {
		saga.Status = domain.SagaCompensated
		return nil
	}
	step := steps[idx]
	if step.CompensationType == nil {
		return fmt.Errorf("orchestrator: saga %s compensation step %d has no compensation_type", saga.ID, idx)
	}
	return o.sendCommand(ctx, saga, step.ServiceName, *step.CompensationType)
}

func (o *Orchestrator) sendCommand(ctx context.Context, saga *domain.SagaTransaction, serviceName string, commandType domain.CommandType) error {
	payload, err := saga.CommandPayload(commandType)
	if err != nil {
		return err
	}
	cmd := domain.NewCommand(saga.ID, commandType, payload)
	raw, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("orchestrator: encode command %s: %w", cmd.ID, err)
	}
	topic := bus.CommandTopic(serviceName)
	if err := o.producer.Publish(ctx, topic, saga.ID.String(), raw); err != nil {
		return fmt.Errorf("orchestrator: publish to %s: %w", topic, err)
	}
	o.log.Info().Str("saga_id", saga.ID.String()).Str("command_type", string(commandType)).
		Str("topic", topic).Msg("command sent")
	return nil
}
