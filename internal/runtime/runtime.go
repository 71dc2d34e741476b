// Package runtime implements the participant command runtime shared by
// the order, payment and inventory services: consume a command,
// dispatch it to a handler under idempotency protection, and publish
// the reply.
//
// Grounded on the teacher's OutboxPublisher/ProcessedEventsRepository
// composition style (infrastructure/outbox, infrastructure/idempotency
// in the teacher repo), generalized from a single hard-coded event set
// to a pluggable handler-per-command-type table, and on
// order-service/src/handlers.rs's CommandHandler for the exact
// per-message sequence.
package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/bus"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/dbctx"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/domain"
	"github.com/rakhimjonshokirov/saga-order-fulfillment/internal/idempotency"
)

// errIdempotencyLostRace is returned from the RunTx closure to force a
// rollback when a concurrent delivery reserved the idempotency key
// first: the handler above already ran and mutated domain state inside
// this same transaction, and none of that may be committed once this
// delivery has lost the race.
var errIdempotencyLostRace = errors.New("runtime: idempotency key reserved by a concurrent delivery")

// HandlerFunc performs the domain mutation and any outbox inserts for
// one command, inside the transaction the Runtime opened for it. A
// domain-level failure (insufficient inventory, declined payment) is
// reported by returning a Failed reply with err == nil — the
// transaction still commits. A non-nil error aborts the transaction
// and leaves the message offset uncommitted for redelivery.
type HandlerFunc func(ctx context.Context, cmd domain.Command) (domain.CommandReply, error)

// TxRunner abstracts "run fn inside one local transaction" so Runtime
// doesn't import *sqlx.DB directly; production code passes
// dbctx.RunInTx bound to its *sqlx.DB, tests pass a no-op runner.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// SQLXTxRunner returns a TxRunner backed by db via internal/dbctx.
func SQLXTxRunner(db *sqlx.DB) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return dbctx.RunInTx(ctx, db, fn)
	}
}

// Runtime wires one participant's handler set to its idempotency store,
// transaction runner, and reply producer.
type Runtime struct {
	ServiceName string
	// CommandTopic overrides the topic Run subscribes to. Empty falls
	// back to bus.CommandTopic(ServiceName), which is what every
	// production binary uses unless --command-topic was passed.
	CommandTopic string
	Handlers     map[domain.CommandType]HandlerFunc
	Idempotency  idempotency.Store
	RunTx        TxRunner
	Producer     bus.Producer
	ReplyTopic   string
	Log          zerolog.Logger
}

// HandleMessage implements bus.Handler: it decodes value as a Command
// and runs the full per-message sequence from spec §4.C.
func (r *Runtime) HandleMessage(ctx context.Context, topic string, key, value []byte) error {
	var cmd domain.Command
	if err := json.Unmarshal(value, &cmd); err != nil {
		r.Log.Warn().Err(err).Str("topic", topic).Msg("runtime: undecodable command, dropping")
		return nil
	}

	reply, err := r.process(ctx, cmd)
	if err != nil {
		r.Log.Error().Err(err).Str("command_id", cmd.ID.String()).Str("saga_id", cmd.SagaID.String()).
			Msg("runtime: command processing failed, leaving offset uncommitted")
		return err
	}

	return r.sendReply(ctx, reply)
}

func (r *Runtime) process(ctx context.Context, cmd domain.Command) (domain.CommandReply, error) {
	guard := idempotency.New(r.Idempotency)

	if existing, found, err := r.Idempotency.Lookup(ctx, cmd.IdempotencyKey); err != nil {
		return domain.CommandReply{}, fmt.Errorf("runtime: idempotency lookup: %w", err)
	} else if found {
		return replyFromCache(cmd, existing), nil
	}

	handler, ok := r.Handlers[cmd.CommandType]
	if !ok {
		reply := domain.FailedReply(cmd.ID, cmd.SagaID, "Unsupported command type")
		if err := r.recordProcessed(ctx, cmd, reply); err != nil {
			return domain.CommandReply{}, err
		}
		return reply, nil
	}

	var reply domain.CommandReply
	txErr := r.RunTx(ctx, func(txCtx context.Context) error {
		var handlerErr error
		reply, handlerErr = handler(txCtx, cmd)
		if handlerErr != nil {
			return handlerErr
		}

		resultJSON, err := json.Marshal(reply.Result)
		if err != nil {
			return fmt.Errorf("runtime: encode result: %w", err)
		}
		_, already, err := guard.Reserve(txCtx, cmd.IdempotencyKey, cmd.ID, resultJSON)
		if err != nil {
			return fmt.Errorf("runtime: reserve idempotency key %s: %w", cmd.IdempotencyKey, err)
		}
		if already {
			// A concurrent delivery reserved this key first. The handler
			// above already mutated domain state in this same
			// transaction; none of it may be kept, so force a rollback
			// and replay the winner's cached reply instead.
			return errIdempotencyLostRace
		}
		return nil
	})
	if errors.Is(txErr, errIdempotencyLostRace) {
		existing, found, err := r.Idempotency.Lookup(ctx, cmd.IdempotencyKey)
		if err != nil {
			return domain.CommandReply{}, fmt.Errorf("runtime: re-read after lost idempotency race: %w", err)
		}
		if !found {
			return domain.CommandReply{}, fmt.Errorf("runtime: idempotency key %s reported a conflict but no row was found", cmd.IdempotencyKey)
		}
		return replyFromCache(cmd, existing), nil
	}
	if txErr != nil {
		return domain.CommandReply{}, txErr
	}
	return reply, nil
}

func (r *Runtime) recordProcessed(ctx context.Context, cmd domain.Command, reply domain.CommandReply) error {
	resultJSON, err := json.Marshal(reply.Result)
	if err != nil {
		return fmt.Errorf("runtime: encode result: %w", err)
	}
	if _, err := r.Idempotency.Insert(ctx, cmd.IdempotencyKey, cmd.ID, resultJSON); err != nil {
		return fmt.Errorf("runtime: insert processed command: %w", err)
	}
	return nil
}

func replyFromCache(cmd domain.Command, existing domain.ProcessedCommand) domain.CommandReply {
	var result any
	if len(existing.Result) > 0 {
		_ = json.Unmarshal(existing.Result, &result)
	}
	return domain.SuccessReply(cmd.ID, cmd.SagaID, result)
}

func (r *Runtime) sendReply(ctx context.Context, reply domain.CommandReply) error {
	raw, err := json.Marshal(reply)
	if err != nil {
		return fmt.Errorf("runtime: encode reply: %w", err)
	}
	if err := r.Producer.Publish(ctx, r.ReplyTopic, reply.SagaID.String(), raw); err != nil {
		return fmt.Errorf("runtime: publish reply: %w", err)
	}
	return nil
}

// Run starts consuming this participant's command topic until ctx is
// cancelled.
func (r *Runtime) Run(ctx context.Context, consumer bus.Consumer) error {
	topic := r.CommandTopic
	if topic == "" {
		topic = bus.CommandTopic(r.ServiceName)
	}
	return consumer.Consume(ctx, r.ServiceName+"-service", []string{topic}, r.HandleMessage)
}
