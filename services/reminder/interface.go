package reminder

import (
	"context"

	"orchid/models"
)

// Service schedules an end-of-session reminder for an active session and
// cancels one by its task id. The tracker only stores the returned id;
// delivery of the fired reminder is someone else's job.
type Service interface {
	ScheduleEndReminder(ctx context.Context, ktvID string, rec models.ActiveSession) (string, error)
	Cancel(ctx context.Context, taskID string) error
}
