package consumer

import (
	"context"
	"encoding/json"
	"time"

	"go-conge/internal/events"
	"go-conge/internal/shared/apperror"
	"go-conge/internal/shared/contextutil"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the part of *kafkago.Reader the consumer loop needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// StatusChangeRecorder stores the inbox entry for a status change.
type StatusChangeRecorder interface {
	RecordStatusChange(ctx context.Context, event events.LeaveStatusChangedEvent) error
}

// ConsumeLeaveStatusChanged turns status-changed events into notifications.
// Undecodable or invalid messages are committed and dropped. Storage failures
// are retried with backoff. A message that still fails is not committed here,
// but the loop moves on and the next commit on the partition advances the
// group offset past it, so it is only redelivered if the consumer restarts
// first. Notifications are best effort.
func ConsumeLeaveStatusChanged(
	ctx context.Context,
	reader MessageReader,
	recorder StatusChangeRecorder,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.leave_status")
	log.Info("leave status consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("leave status consumer stopped")
				return
			}
			log.Error("fetch leave status message failed", zap.Error(err))
			continue
		}

		handleMessage(ctx, reader, recorder, msg, log)
	}
}

func handleMessage(
	ctx context.Context,
	reader MessageReader,
	recorder StatusChangeRecorder,
	msg kafkago.Message,
	log *zap.Logger,
) {
	var event events.LeaveStatusChangedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		log.Error("decode leave status event failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		commit(ctx, reader, msg, log)
		return
	}

	msgCtx := ctx
	if event.RequestID != "" {
		msgCtx = contextutil.WithRequestID(ctx, event.RequestID)
	}

	if err := recordWithRetry(msgCtx, recorder, event); err != nil {
		if apperror.IsCode(err, apperror.CodeStorageError) {
			log.Error("record leave status notification failed",
				zap.String("event_id", event.EventID),
				zap.String("leave_request_id", event.LeaveRequestID),
				zap.Error(err),
			)
			return
		}
		log.Warn("invalid leave status event, skipping",
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
	}

	commit(ctx, reader, msg, log)
}

func commit(ctx context.Context, reader MessageReader, msg kafkago.Message, log *zap.Logger) {
	if err := reader.CommitMessages(ctx, msg); err != nil {
		log.Error("commit leave status message failed", zap.Error(err))
	}
}

const recordAttempts = 3

var retryBackoff = 500 * time.Millisecond

func recordWithRetry(ctx context.Context, recorder StatusChangeRecorder, event events.LeaveStatusChangedEvent) error {
	var err error
	for attempt := 1; attempt <= recordAttempts; attempt++ {
		err = recorder.RecordStatusChange(ctx, event)
		if err == nil || !apperror.IsCode(err, apperror.CodeStorageError) {
			return err
		}
		if attempt == recordAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	return err
}
