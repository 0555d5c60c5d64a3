package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"orchid/models"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TypeEndReminder is the asynq task type for end-of-session reminders.
const TypeEndReminder = "session:end_reminder"

// QueueName is the asynq queue reminders are enqueued on.
const QueueName = "default"

// EndReminderPayload is the task payload handed to the worker when the
// reminder fires.
type EndReminderPayload struct {
	KTVID       string `json:"ktvId"`
	BookingID   string `json:"bookingId"`
	ServiceName string `json:"serviceName"`
	EndTime     string `json:"endTime"` // RFC 3339
}

// AsynqService implements Service on top of an asynq queue.
type AsynqService struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	logger    *zap.Logger
}

// NewAsynqService builds a reminder service over the given redis connection.
func NewAsynqService(opt asynq.RedisClientOpt, logger *zap.Logger) *AsynqService {
	return &AsynqService{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		logger:    logger,
	}
}

// ScheduleEndReminder enqueues a reminder task processed at the session's end
// time and returns its task id.
func (s *AsynqService) ScheduleEndReminder(ctx context.Context, ktvID string, rec models.ActiveSession) (string, error) {
	payload, err := json.Marshal(EndReminderPayload{
		KTVID:       ktvID,
		BookingID:   rec.ID,
		ServiceName: rec.Booking.ServiceName,
		EndTime:     rec.EndTime().Format(time.RFC3339),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal reminder payload: %w", err)
	}

	task := asynq.NewTask(TypeEndReminder, payload)
	info, err := s.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueName),
		asynq.TaskID(uuid.New().String()),
		asynq.ProcessAt(rec.EndTime()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue end reminder: %w", err)
	}

	s.logger.Info("scheduled end-of-session reminder",
		zap.String("ktvId", ktvID),
		zap.String("bookingId", rec.ID),
		zap.String("taskId", info.ID),
	)
	return info.ID, nil
}

// Cancel deletes a scheduled reminder task. Cancelling a task that already
// fired or was never scheduled is not an error.
func (s *AsynqService) Cancel(ctx context.Context, taskID string) error {
	err := s.inspector.DeleteTask(QueueName, taskID)
	if err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
		return fmt.Errorf("failed to cancel reminder %s: %w", taskID, err)
	}
	return nil
}

// Close releases the underlying queue connections.
func (s *AsynqService) Close() error {
	return s.client.Close()
}
