package bus

import "time"

// producerTimeout bounds how long SendMessage waits for the broker to
// acknowledge a publish, per spec §4.D's "5s" reference timeout.
const producerTimeout = 5 * time.Second

// Fixed topic names, per spec §6's bus topology table.
const (
	TopicOrderCommands     = "order-service-commands"
	TopicPaymentCommands   = "payment-service-commands"
	TopicInventoryCommands = "inventory-service-commands"
	TopicOrderReplies      = "order-replies"

	TopicOrderEvents     = "order-events"
	TopicPaymentEvents   = "payment-events"
	TopicInventoryEvents = "inventory-events"
	TopicDomainEvents    = "domain-events"
)

// CommandTopic returns the command topic for a participant's short
// service name as `{serviceName}-service-commands` (e.g. "order" →
// "order-service-commands").
func CommandTopic(serviceName string) string {
	return serviceName + "-service-commands"
}

// EventTopic maps an outbox row's event_type to its destination topic
// per spec §6: named event types get their own topic, anything else
// falls through to domain-events.
func EventTopic(eventType string) string {
	switch eventType {
	case "OrderCreated":
		return TopicOrderEvents
	case "PaymentProcessed":
		return TopicPaymentEvents
	case "InventoryReserved":
		return TopicInventoryEvents
	default:
		return TopicDomainEvents
	}
}
