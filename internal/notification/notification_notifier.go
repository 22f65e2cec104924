package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"go-conge/internal/events"
	"go-conge/internal/messaging/kafka"
	"go-conge/internal/shared/contextutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const aggregateTypeLeaveRequest = "leave_request"

// OutboxNotifier queues status changes in outbox_events; the relay worker
// publishes them and the consumer turns them into inbox entries.
type OutboxNotifier struct {
	outbox kafka.OutboxRepository
	logger *zap.Logger
}

func NewOutboxNotifier(outbox kafka.OutboxRepository, logger ...*zap.Logger) *OutboxNotifier {
	l := zap.L().Named("notification.outbox_notifier")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("notification.outbox_notifier")
	}
	return &OutboxNotifier{outbox: outbox, logger: l}
}

func (n *OutboxNotifier) Notify(ctx context.Context, event *events.LeaveStatusChangedEvent) error {
	if event == nil {
		return nil
	}

	outboxEvent, err := NewOutboxEvent(contextutil.GetRequestID(ctx), *event)
	if err != nil {
		return err
	}
	if err := n.outbox.Create(ctx, outboxEvent); err != nil {
		return fmt.Errorf("queue leave status event: %w", err)
	}

	n.logger.Debug("leave status event queued",
		zap.String("outbox_id", outboxEvent.ID),
		zap.String("leave_request_id", event.LeaveRequestID),
		zap.String("status", event.NewStatus),
	)
	return nil
}

// NewOutboxEvent serializes event for the leave status topic, keyed by the request id.
func NewOutboxEvent(requestID string, event events.LeaveStatusChangedEvent) (kafka.OutboxEvent, error) {
	event.RequestID = requestID
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.OutboxEvent{}, fmt.Errorf("encode leave status event: %w", err)
	}

	outboxEvent := kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     requestID,
		AggregateType: aggregateTypeLeaveRequest,
		AggregateID:   event.LeaveRequestID,
		EventType:     events.LeaveStatusChangedEventType,
		Topic:         events.LeaveStatusChangedTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}
	if err := kafka.ValidateOutboxEvent(outboxEvent); err != nil {
		return kafka.OutboxEvent{}, err
	}
	return outboxEvent, nil
}

// StoreNotifier writes the inbox entry in-process when no broker is configured.
type StoreNotifier struct {
	service Service
}

func NewStoreNotifier(service Service) *StoreNotifier {
	return &StoreNotifier{service: service}
}

func (n *StoreNotifier) Notify(ctx context.Context, event *events.LeaveStatusChangedEvent) error {
	if event == nil {
		return nil
	}
	e := *event
	e.RequestID = contextutil.GetRequestID(ctx)
	return n.service.RecordStatusChange(ctx, e)
}
