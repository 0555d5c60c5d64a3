package session

import (
	"context"
	"time"

	"orchid/models"
	"orchid/storage"

	"go.uber.org/zap"
)

// Hydrate loads the technician's record and reminder id from the durable
// store. A stored record whose end time has already passed is surfaced with
// an expired countdown rather than auto-cleared; the caller acknowledges it
// through Clear.
func (s *DefaultTrackerService) Hydrate(ctx context.Context, ktvID string) Snapshot {
	st := s.state(ktvID)
	st.mu.Lock()
	defer st.mu.Unlock()

	var rec models.ActiveSession
	if s.Store.Get(ctx, storage.KeyActiveSession.For(ktvID), &rec) {
		st.record = &rec
	} else {
		st.record = nil
	}

	var taskID string
	if s.Store.Get(ctx, storage.KeyReminderTask.For(ktvID), &taskID) {
		st.reminderTaskID = &taskID
	} else {
		st.reminderTaskID = nil
	}

	st.refreshRemaining(time.Now())
	st.hydrated = true
	return st.snapshot()
}

// Snapshot returns the current view. The countdown it carries is the one
// computed by the last hydrate, mutation or tick; it is at most one tick
// interval stale, never persisted.
func (s *DefaultTrackerService) Snapshot(ctx context.Context, ktvID string) (Snapshot, error) {
	st := s.state(ktvID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.hydrated {
		return Snapshot{}, ErrNotHydrated
	}
	return st.snapshot(), nil
}

// SetActiveSession records the booking start in memory and persists it. The
// in-memory state is updated even when persistence fails; the record is then
// lost on process death, which is the store's accepted durability gap.
// Replacing a still-tracked session cancels its scheduled reminder so the
// superseded task never fires.
func (s *DefaultTrackerService) SetActiveSession(ctx context.Context, ktvID string, rec models.ActiveSession) bool {
	st := s.state(ktvID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.hydrated {
		// A restart may have left a scheduled reminder in durable storage;
		// load it so the replacement below can cancel it.
		var taskID string
		if s.Store.Get(ctx, storage.KeyReminderTask.For(ktvID), &taskID) {
			st.reminderTaskID = &taskID
		}
	}

	if st.reminderTaskID != nil {
		if s.Reminders != nil {
			if err := s.Reminders.Cancel(ctx, *st.reminderTaskID); err != nil {
				s.Logger.Warn("failed to cancel superseded reminder",
					zap.String("ktvId", ktvID),
					zap.String("taskId", *st.reminderTaskID),
					zap.Error(err),
				)
			}
		}
		st.reminderTaskID = nil
		s.Store.Remove(ctx, storage.KeyReminderTask.For(ktvID))
	}

	st.record = &rec
	st.refreshRemaining(time.Now())
	st.hydrated = true

	persisted := s.Store.Set(ctx, storage.KeyActiveSession.For(ktvID), rec)
	if !persisted {
		s.Logger.Warn("active session not persisted, in-memory only",
			zap.String("ktvId", ktvID),
			zap.String("bookingId", rec.ID),
		)
	}
	return persisted
}

// SetReminderTask stores or removes the reminder correlation id.
func (s *DefaultTrackerService) SetReminderTask(ctx context.Context, ktvID string, taskID *string) bool {
	st := s.state(ktvID)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.reminderTaskID = taskID

	key := storage.KeyReminderTask.For(ktvID)
	if taskID == nil {
		return s.Store.Remove(ctx, key)
	}
	return s.Store.Set(ctx, key, *taskID)
}

// Tick recomputes the countdown of every hydrated session in memory. It is
// driven by a caller-owned ticker; the tracker has no timer of its own.
func (s *DefaultTrackerService) Tick(now time.Time) {
	s.mu.Lock()
	states := make([]*ktvState, 0, len(s.states))
	for _, st := range s.states {
		states = append(states, st)
	}
	s.mu.Unlock()

	for _, st := range states {
		st.mu.Lock()
		if st.hydrated {
			st.refreshRemaining(now)
		}
		st.mu.Unlock()
	}
}

// Clear ends the tracked session. Both durable keys are removed, a scheduled
// reminder is cancelled, and completed or expired sessions are archived. The
// state stays hydrated so the technician lands in Idle, not Unknown.
func (s *DefaultTrackerService) Clear(ctx context.Context, ktvID string, reason models.ClearReason) error {
	if !reason.Valid() {
		return ErrInvalidReason
	}

	st := s.state(ktvID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.hydrated {
		// Clearing an unhydrated state still has to see the durable entries,
		// otherwise the reminder id could leak.
		var rec models.ActiveSession
		if s.Store.Get(ctx, storage.KeyActiveSession.For(ktvID), &rec) {
			st.record = &rec
		}
		var taskID string
		if s.Store.Get(ctx, storage.KeyReminderTask.For(ktvID), &taskID) {
			st.reminderTaskID = &taskID
		}
	}

	if st.reminderTaskID != nil && s.Reminders != nil {
		if err := s.Reminders.Cancel(ctx, *st.reminderTaskID); err != nil {
			s.Logger.Warn("failed to cancel end-of-session reminder",
				zap.String("ktvId", ktvID),
				zap.String("taskId", *st.reminderTaskID),
				zap.Error(err),
			)
		}
	}

	if st.record != nil && s.Archive != nil && reason != models.ClearCanceled {
		archived := models.ArchivedSession{
			KTVID:           ktvID,
			BookingID:       st.record.ID,
			Status:          st.record.Status,
			StartTime:       st.record.StartTime,
			DurationMinutes: st.record.DurationMinutes,
			Booking:         st.record.Booking,
			Reason:          reason,
			EndedAt:         time.Now(),
		}
		if _, err := s.Archive.Create(ctx, archived); err != nil {
			s.Logger.Warn("failed to archive ended session",
				zap.String("ktvId", ktvID),
				zap.String("bookingId", st.record.ID),
				zap.Error(err),
			)
		}
	}

	s.Store.Remove(ctx, storage.KeyActiveSession.For(ktvID))
	s.Store.Remove(ctx, storage.KeyReminderTask.For(ktvID))

	st.record = nil
	st.reminderTaskID = nil
	st.remaining = nil
	st.hydrated = true
	return nil
}

// refreshRemaining recomputes the derived countdown. Caller holds st.mu.
func (st *ktvState) refreshRemaining(now time.Time) {
	if st.record == nil {
		st.remaining = nil
		return
	}
	remaining := ComputeRemaining(st.record.EndTime(), now)
	st.remaining = &remaining
}

// snapshot copies the state so callers never alias tracker internals.
// Caller holds st.mu.
func (st *ktvState) snapshot() Snapshot {
	snap := Snapshot{Hydrated: st.hydrated}
	if st.record != nil {
		rec := *st.record
		snap.Record = &rec
	}
	if st.reminderTaskID != nil {
		id := *st.reminderTaskID
		snap.ReminderTaskID = &id
	}
	if st.remaining != nil {
		rem := *st.remaining
		snap.Remaining = &rem
	}
	return snap
}
