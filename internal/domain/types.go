// Package domain holds the wire and persistence types shared by the
// orchestrator and every participant: commands, replies, the saga plan,
// and the saga transaction itself.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CommandType is the closed set of commands a participant can receive.
type CommandType string

const (
	CommandCreateOrder          CommandType = "CreateOrder"
	CommandProcessPayment       CommandType = "ProcessPayment"
	CommandReserveInventory     CommandType = "ReserveInventory"
	CommandApproveOrder         CommandType = "ApproveOrder"
	CommandCancelOrder          CommandType = "CancelOrder"
	CommandCompensatePayment    CommandType = "CompensatePayment"
	CommandCompensateInventory  CommandType = "CompensateInventory"
)

// CommandStatus is the outcome a participant attaches to its reply.
type CommandStatus string

const (
	StatusSuccess     CommandStatus = "Success"
	StatusFailed      CommandStatus = "Failed"
	StatusCompensated CommandStatus = "Compensated"
)

// SagaStatus is the lifecycle state of a SagaTransaction.
type SagaStatus string

const (
	SagaStarted      SagaStatus = "Started"
	SagaInProgress   SagaStatus = "InProgress"
	SagaCompleted    SagaStatus = "Completed"
	SagaCompensating SagaStatus = "Compensating"
	SagaCompensated  SagaStatus = "Compensated"
	SagaFailed       SagaStatus = "Failed"
)

// Command is published on a participant's `{service_name}-commands` topic.
type Command struct {
	ID             uuid.UUID   `json:"id"`
	SagaID         uuid.UUID   `json:"saga_id"`
	CommandType    CommandType `json:"command_type"`
	Payload        any         `json:"payload"`
	IdempotencyKey string      `json:"idempotency_key"`
	CreatedAt      time.Time   `json:"created_at"`
}

// NewCommand builds a command with a fresh idempotency key of the form
// "{saga_id}_{nonce}". Per spec §9, the orchestrator generates a new
// nonce on every send attempt — a retried send is not deduplicated by
// the recipient. This is a documented limitation, not a bug.
func NewCommand(sagaID uuid.UUID, commandType CommandType, payload any) Command {
	return Command{
		ID:             uuid.New(),
		SagaID:         sagaID,
		CommandType:    commandType,
		Payload:        payload,
		IdempotencyKey: fmt.Sprintf("%s_%s", sagaID, uuid.NewString()),
		CreatedAt:      time.Now().UTC(),
	}
}

// CommandReply is published on `order-replies` by a participant.
type CommandReply struct {
	ID        uuid.UUID     `json:"id"`
	CommandID uuid.UUID     `json:"command_id"`
	SagaID    uuid.UUID     `json:"saga_id"`
	Status    CommandStatus `json:"status"`
	Result    any           `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// SuccessReply builds a Success reply carrying an optional result.
func SuccessReply(commandID, sagaID uuid.UUID, result any) CommandReply {
	return CommandReply{
		ID:        uuid.New(),
		CommandID: commandID,
		SagaID:    sagaID,
		Status:    StatusSuccess,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}
}

// FailedReply builds a Failed reply carrying a human-readable error.
func FailedReply(commandID, sagaID uuid.UUID, errMsg string) CommandReply {
	return CommandReply{
		ID:        uuid.New(),
		CommandID: commandID,
		SagaID:    sagaID,
		Status:    StatusFailed,
		Error:     errMsg,
		CreatedAt: time.Now().UTC(),
	}
}

// SagaStep is one step of a saga's forward plan, with its optional
// compensating counter-action and the service that executes it.
type SagaStep struct {
	CommandType       CommandType  `json:"command_type"`
	CompensationType  *CommandType `json:"compensation_type,omitempty"`
	ServiceName       string       `json:"service_name"`
}

// HasCompensation reports whether this step defines a compensating action.
func (s SagaStep) HasCompensation() bool {
	return s.CompensationType != nil
}

// OrderFulfillmentPlan is the fixed forward plan for the order
// fulfillment saga: create order → charge payment → reserve inventory →
// approve order, with compensations for every step but the last.
func OrderFulfillmentPlan() []SagaStep {
	cancelOrder := CommandCancelOrder
	compensatePayment := CommandCompensatePayment
	compensateInventory := CommandCompensateInventory
	return []SagaStep{
		{CommandType: CommandCreateOrder, CompensationType: &cancelOrder, ServiceName: "order"},
		{CommandType: CommandProcessPayment, CompensationType: &compensatePayment, ServiceName: "payment"},
		{CommandType: CommandReserveInventory, CompensationType: &compensateInventory, ServiceName: "inventory"},
		{CommandType: CommandApproveOrder, CompensationType: nil, ServiceName: "order"},
	}
}

// SagaTransaction is the persisted state of one saga instance.
type SagaTransaction struct {
	ID          uuid.UUID      `json:"id"`
	Steps       []SagaStep     `json:"steps"`
	CurrentStep int            `json:"current_step"`
	Status      SagaStatus     `json:"status"`
	Context     map[string]any `json:"context"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

const (
	contextOrderData          = "order_data"
	contextCompensationSteps  = "compensation_steps"
	contextCompensationIndex  = "compensation_index"
)

// NewSagaTransaction constructs a saga for a freshly accepted order.
// context["order_data"] is set here and, per the invariant in spec §3,
// must never be overwritten afterwards.
func NewSagaTransaction(orderData OrderData) *SagaTransaction {
	now := time.Now().UTC()
	return &SagaTransaction{
		ID:          uuid.New(),
		Steps:       OrderFulfillmentPlan(),
		CurrentStep: 0,
		Status:      SagaStarted,
		Context: map[string]any{
			contextOrderData: orderData,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CurrentStepDef returns the step at CurrentStep, or false if the plan
// is exhausted.
func (s *SagaTransaction) CurrentStepDef() (SagaStep, bool) {
	if s.CurrentStep < 0 || s.CurrentStep >= len(s.Steps) {
		return SagaStep{}, false
	}
	return s.Steps[s.CurrentStep], true
}

// AdvanceStep moves the cursor forward by one and touches UpdatedAt.
// It is a no-op once the plan is exhausted.
func (s *SagaTransaction) AdvanceStep() {
	if s.CurrentStep < len(s.Steps) {
		s.CurrentStep++
		s.UpdatedAt = time.Now().UTC()
	}
}

// CompensationSteps returns steps[0..CurrentStep), reversed, filtered to
// those carrying a compensation_type. CurrentStep is the index of the
// step that just failed (not yet advanced), so steps[0..CurrentStep)
// are exactly the already-successful steps.
func (s *SagaTransaction) CompensationSteps() []SagaStep {
	var out []SagaStep
	for i := s.CurrentStep - 1; i >= 0; i-- {
		if s.Steps[i].HasCompensation() {
			out = append(out, s.Steps[i])
		}
	}
	return out
}

// OrderDataFromContext decodes the order_data entry out of the saga
// context, tolerating both a live OrderData value (set at construction)
// and the map[string]any shape produced by a JSON round trip.
func (s *SagaTransaction) OrderDataFromContext() (OrderData, error) {
	raw, ok := s.Context[contextOrderData]
	if !ok {
		return OrderData{}, fmt.Errorf("saga %s: missing order_data in context", s.ID)
	}
	return decodeInto[OrderData](raw)
}
