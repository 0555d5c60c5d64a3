package session

import (
	"context"
	"sync"
	"time"

	archiveRepo "orchid/database/repository/archive"
	"orchid/models"
	"orchid/services/reminder"
	"orchid/storage"

	"go.uber.org/zap"
)

// Snapshot is the read view of one technician's tracked session state.
// Hydrated distinguishes the Unknown state from Idle: a nil Record only means
// "no active session" once Hydrated is true.
type Snapshot struct {
	Hydrated       bool                  `json:"hydrated"`
	Record         *models.ActiveSession `json:"record"`
	ReminderTaskID *string               `json:"reminderTaskId"`
	Remaining      *models.Remaining     `json:"remaining"`
}

// TrackerService is the source of truth for "does this KTV have an active
// booking in progress, and how much time remains".
type TrackerService interface {
	// Hydrate loads the technician's state from durable storage and returns
	// the resulting view. Idempotent; a second call re-reads and overwrites.
	Hydrate(ctx context.Context, ktvID string) Snapshot
	// Snapshot returns the current view, or ErrNotHydrated before Hydrate.
	Snapshot(ctx context.Context, ktvID string) (Snapshot, error)
	// SetActiveSession records the server-confirmed booking start, cancelling
	// the scheduled reminder of any session it replaces. It reports whether
	// the record was also persisted; on a false return the in-memory state is
	// still updated.
	SetActiveSession(ctx context.Context, ktvID string, rec models.ActiveSession) bool
	// SetReminderTask stores the reminder correlation id, or removes it when
	// taskID is nil. Reports persistence success like SetActiveSession.
	// Hydration status is untouched.
	SetReminderTask(ctx context.Context, ktvID string, taskID *string) bool
	// Tick recomputes the in-memory countdown of every hydrated session.
	// Nothing is persisted.
	Tick(now time.Time)
	// Clear ends the session: cancels any scheduled reminder, archives the
	// record when it ran to completion or expiry, and removes both durable
	// keys. Hydration status is left intact.
	Clear(ctx context.Context, ktvID string, reason models.ClearReason) error
}

// DefaultTrackerService implements TrackerService over the durable store.
type DefaultTrackerService struct {
	Store     *storage.Store
	Reminders reminder.Service                     // optional; nil skips reminder cancellation
	Archive   archiveRepo.SessionArchiveRepository // optional; nil skips archiving
	Logger    *zap.Logger

	mu     sync.Mutex
	states map[string]*ktvState
}

// NewDefaultTrackerService builds a tracker over the given durable store.
func NewDefaultTrackerService(store *storage.Store, reminders reminder.Service, archive archiveRepo.SessionArchiveRepository, logger *zap.Logger) *DefaultTrackerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultTrackerService{
		Store:     store,
		Reminders: reminders,
		Archive:   archive,
		Logger:    logger,
		states:    make(map[string]*ktvState),
	}
}

// ktvState is the per-technician in-memory state, guarded by its own mutex so
// writers for one KTV never block another. The single-writer assumption the
// client app relied on informally is a real lock here.
type ktvState struct {
	mu             sync.Mutex
	hydrated       bool
	record         *models.ActiveSession
	reminderTaskID *string
	remaining      *models.Remaining
}

func (s *DefaultTrackerService) state(ktvID string) *ktvState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[ktvID]
	if !ok {
		st = &ktvState{}
		s.states[ktvID] = st
	}
	return st
}
