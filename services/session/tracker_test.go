package session

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"orchid/models"
	"orchid/storage"
)

type stubReminder struct {
	scheduled []string
	canceled  []string
}

func (s *stubReminder) ScheduleEndReminder(ctx context.Context, ktvID string, rec models.ActiveSession) (string, error) {
	s.scheduled = append(s.scheduled, rec.ID)
	return "task-" + rec.ID, nil
}

func (s *stubReminder) Cancel(ctx context.Context, taskID string) error {
	s.canceled = append(s.canceled, taskID)
	return nil
}

type stubArchive struct {
	created []models.ArchivedSession
}

func (s *stubArchive) Create(ctx context.Context, record models.ArchivedSession) (string, error) {
	s.created = append(s.created, record)
	return record.BookingID, nil
}

func (s *stubArchive) GetByID(ctx context.Context, id string) (*models.ArchivedSession, error) {
	return nil, errors.New("not found")
}

func (s *stubArchive) GetByKTVID(ctx context.Context, ktvID string) ([]models.ArchivedSession, error) {
	var out []models.ArchivedSession
	for _, r := range s.created {
		if r.KTVID == ktvID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubArchive) DeleteByID(ctx context.Context, id string) error {
	return nil
}

// failingBackend simulates a storage layer that rejects every operation.
type failingBackend struct{}

func (failingBackend) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("backend down")
}

func (failingBackend) Set(ctx context.Context, key string, data []byte) error {
	return errors.New("backend down")
}

func (failingBackend) Delete(ctx context.Context, key string) error {
	return errors.New("backend down")
}

func testRecord(start time.Time) models.ActiveSession {
	return models.ActiveSession{
		ID:              "bk-100",
		Status:          models.StatusOngoing,
		StartTime:       start,
		DurationMinutes: 60,
		Booking: models.BookingSnapshot{
			ServiceName:  "Aromatherapy Massage",
			CustomerName: "Linh",
			Address:      "12 Nguyen Hue, District 1",
		},
	}
}

func newTestTracker(backend storage.Backend) (*DefaultTrackerService, *stubReminder, *stubArchive) {
	reminders := &stubReminder{}
	archive := &stubArchive{}
	tracker := NewDefaultTrackerService(storage.NewStore(backend, nil), reminders, archive, nil)
	return tracker, reminders, archive
}

func TestSnapshotBeforeHydrate(t *testing.T) {
	tracker, _, _ := newTestTracker(storage.NewMemoryBackend())

	_, err := tracker.Snapshot(context.Background(), "ktv-1")
	if !errors.Is(err, ErrNotHydrated) {
		t.Fatalf("expected ErrNotHydrated before hydrate, got %v", err)
	}

	// After hydrating an empty store the state is Idle, not Unknown.
	snap := tracker.Hydrate(context.Background(), "ktv-1")
	if !snap.Hydrated {
		t.Fatal("hydrate must mark the state hydrated")
	}
	if snap.Record != nil {
		t.Fatalf("empty store should hydrate to no record, got %+v", snap.Record)
	}
}

func TestHydrateIdempotent(t *testing.T) {
	backend := storage.NewMemoryBackend()
	tracker, _, _ := newTestTracker(backend)

	tracker.SetActiveSession(context.Background(), "ktv-1", testRecord(time.Now()))

	reader, _, _ := newTestTracker(backend)
	first := reader.Hydrate(context.Background(), "ktv-1")
	second := reader.Hydrate(context.Background(), "ktv-1")

	// The derived countdown moves with the clock; compare everything else.
	first.Remaining, second.Remaining = nil, nil
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("hydrate not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestRoundTripAcrossRestart(t *testing.T) {
	backend := storage.NewMemoryBackend()
	tracker, _, _ := newTestTracker(backend)

	rec := testRecord(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	if !tracker.SetActiveSession(context.Background(), "ktv-1", rec) {
		t.Fatal("expected persistence to succeed on memory backend")
	}
	taskID := "task-bk-100"
	tracker.SetReminderTask(context.Background(), "ktv-1", &taskID)

	// A fresh tracker over the same backend stands in for a process restart.
	restarted, _, _ := newTestTracker(backend)
	snap := restarted.Hydrate(context.Background(), "ktv-1")

	if snap.Record == nil || !reflect.DeepEqual(*snap.Record, rec) {
		t.Fatalf("restored record differs: got %+v, want %+v", snap.Record, rec)
	}
	if snap.ReminderTaskID == nil || *snap.ReminderTaskID != taskID {
		t.Fatalf("restored reminder task id differs: got %v", snap.ReminderTaskID)
	}
}

func TestClearWipesBothDurableKeys(t *testing.T) {
	backend := storage.NewMemoryBackend()
	tracker, reminders, archive := newTestTracker(backend)

	tracker.SetActiveSession(context.Background(), "ktv-1", testRecord(time.Now()))
	taskID := "task-bk-100"
	tracker.SetReminderTask(context.Background(), "ktv-1", &taskID)

	if err := tracker.Clear(context.Background(), "ktv-1", models.ClearCompleted); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	if backend.Len() != 0 {
		t.Fatalf("expected both durable keys removed, %d entries remain", backend.Len())
	}
	if len(reminders.canceled) != 1 || reminders.canceled[0] != taskID {
		t.Fatalf("expected reminder %s cancelled, got %v", taskID, reminders.canceled)
	}
	if len(archive.created) != 1 || archive.created[0].Reason != models.ClearCompleted {
		t.Fatalf("expected completed session archived, got %+v", archive.created)
	}

	restarted, _, _ := newTestTracker(backend)
	snap := restarted.Hydrate(context.Background(), "ktv-1")
	if snap.Record != nil || snap.ReminderTaskID != nil {
		t.Fatalf("hydrate after clear should be empty, got %+v", snap)
	}

	// Clearing leaves the state hydrated (Idle, not Unknown).
	snap, err := tracker.Snapshot(context.Background(), "ktv-1")
	if err != nil {
		t.Fatalf("snapshot after clear: %v", err)
	}
	if !snap.Hydrated || snap.Record != nil || snap.Remaining != nil {
		t.Fatalf("state after clear should be hydrated and empty, got %+v", snap)
	}
}

func TestReplacingSessionCancelsOldReminder(t *testing.T) {
	backend := storage.NewMemoryBackend()
	tracker, reminders, _ := newTestTracker(backend)

	first := testRecord(time.Now())
	tracker.SetActiveSession(context.Background(), "ktv-1", first)
	taskID := "task-bk-100"
	tracker.SetReminderTask(context.Background(), "ktv-1", &taskID)

	second := testRecord(time.Now())
	second.ID = "bk-200"
	tracker.SetActiveSession(context.Background(), "ktv-1", second)

	// The superseded booking's reminder must not fire at its old end time.
	if len(reminders.canceled) != 1 || reminders.canceled[0] != taskID {
		t.Fatalf("expected superseded reminder %s cancelled, got %v", taskID, reminders.canceled)
	}

	snap, err := tracker.Snapshot(context.Background(), "ktv-1")
	if err != nil {
		t.Fatalf("snapshot after replacement: %v", err)
	}
	if snap.ReminderTaskID != nil {
		t.Fatalf("stale reminder id kept after replacement: %v", *snap.ReminderTaskID)
	}

	var stored string
	if storage.NewStore(backend, nil).Get(context.Background(), storage.KeyReminderTask.For("ktv-1"), &stored) {
		t.Fatalf("durable reminder key kept after replacement: %q", stored)
	}
}

func TestReplacementAfterRestartCancelsDurableReminder(t *testing.T) {
	backend := storage.NewMemoryBackend()
	seeder, _, _ := newTestTracker(backend)

	seeder.SetActiveSession(context.Background(), "ktv-1", testRecord(time.Now()))
	taskID := "task-bk-100"
	seeder.SetReminderTask(context.Background(), "ktv-1", &taskID)

	// A fresh tracker that was never hydrated stands in for a restarted
	// process whose client starts a new session straight away.
	restarted, reminders, _ := newTestTracker(backend)
	rec := testRecord(time.Now())
	rec.ID = "bk-300"
	restarted.SetActiveSession(context.Background(), "ktv-1", rec)

	if len(reminders.canceled) != 1 || reminders.canceled[0] != taskID {
		t.Fatalf("expected durable reminder %s cancelled on replacement, got %v", taskID, reminders.canceled)
	}

	var stored string
	if storage.NewStore(backend, nil).Get(context.Background(), storage.KeyReminderTask.For("ktv-1"), &stored) {
		t.Fatalf("durable reminder key survived replacement: %q", stored)
	}
}

func TestSetReminderTaskKeepsUnknownState(t *testing.T) {
	tracker, _, _ := newTestTracker(storage.NewMemoryBackend())

	taskID := "task-1"
	tracker.SetReminderTask(context.Background(), "ktv-1", &taskID)

	// Storing the correlation id alone must not turn Unknown into Idle.
	_, err := tracker.Snapshot(context.Background(), "ktv-1")
	if !errors.Is(err, ErrNotHydrated) {
		t.Fatalf("expected ErrNotHydrated after SetReminderTask, got %v", err)
	}
}

func TestClearRejectsUnknownReason(t *testing.T) {
	tracker, _, _ := newTestTracker(storage.NewMemoryBackend())

	err := tracker.Clear(context.Background(), "ktv-1", models.ClearReason("abandoned"))
	if !errors.Is(err, ErrInvalidReason) {
		t.Fatalf("expected ErrInvalidReason, got %v", err)
	}
}

func TestFailedPersistenceDoesNotFailMutation(t *testing.T) {
	tracker, _, _ := newTestTracker(failingBackend{})

	rec := testRecord(time.Now())
	persisted := tracker.SetActiveSession(context.Background(), "ktv-1", rec)
	if persisted {
		t.Fatal("expected persisted=false on a failing backend")
	}

	// In-memory state must still reflect the record for this process.
	snap, err := tracker.Snapshot(context.Background(), "ktv-1")
	if err != nil {
		t.Fatalf("snapshot after failed persist: %v", err)
	}
	if snap.Record == nil || snap.Record.ID != rec.ID {
		t.Fatalf("in-memory record lost on persist failure: %+v", snap)
	}
}

func TestExpiredRecordSurfacedAtHydrate(t *testing.T) {
	backend := storage.NewMemoryBackend()
	store := storage.NewStore(backend, nil)

	// A session that ended days ago, e.g. the app was killed mid-booking.
	stale := testRecord(time.Now().Add(-72 * time.Hour))
	store.Set(context.Background(), storage.KeyActiveSession.For("ktv-1"), stale)

	tracker, _, _ := newTestTracker(backend)
	snap := tracker.Hydrate(context.Background(), "ktv-1")

	// The record is surfaced once with an expired countdown, not auto-cleared;
	// the client acknowledges it through Clear.
	if snap.Record == nil {
		t.Fatal("expired record should be surfaced at hydrate")
	}
	if snap.Remaining == nil || !snap.Remaining.Expired {
		t.Fatalf("expected expired countdown, got %+v", snap.Remaining)
	}

	var kept models.ActiveSession
	if !store.Get(context.Background(), storage.KeyActiveSession.For("ktv-1"), &kept) {
		t.Fatal("hydrate must not remove the durable record")
	}
}

func TestTickRecomputesCountdown(t *testing.T) {
	tracker, _, _ := newTestTracker(storage.NewMemoryBackend())

	start := time.Now()
	tracker.SetActiveSession(context.Background(), "ktv-1", testRecord(start))

	snap, _ := tracker.Snapshot(context.Background(), "ktv-1")
	if snap.Remaining == nil || snap.Remaining.Expired {
		t.Fatalf("fresh session should not be expired, got %+v", snap.Remaining)
	}

	tracker.Tick(start.Add(61 * time.Minute))

	snap, _ = tracker.Snapshot(context.Background(), "ktv-1")
	if snap.Remaining == nil || !snap.Remaining.Expired {
		t.Fatalf("tick past end time should flag expiry, got %+v", snap.Remaining)
	}
}
