// Package storage is the durable key-value layer backing the session tracker.
// Values are small JSON documents under a closed set of well-known keys,
// namespaced per technician.
package storage

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
)

// ErrNotFound is returned by a Backend when the key has no value.
var ErrNotFound = errors.New("storage: key not found")

// Key names the well-known entries a technician's namespace may hold. The
// set is closed: KeyLanguage and KeyLocationPermission are client preference
// entries written by the mobile app through this same store, reserved here so
// no other writer claims the names.
type Key string

const (
	KeyActiveSession      Key = "active_session"
	KeyReminderTask       Key = "reminder_task"
	KeyLanguage           Key = "language"
	KeyLocationPermission Key = "location_permission"
	KeyDeviceID           Key = "device_id"
	KeyAuthToken          Key = "auth_token"
)

// For returns the namespaced storage key for the given technician.
func (k Key) For(ktvID string) string {
	return "ktv:" + ktvID + ":" + string(k)
}

// Backend is the raw persistence API. Implementations return ErrNotFound for
// absent keys and typed errors for everything else; the swallowing happens in
// Store, not here, so stricter callers can still see what went wrong.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Store wraps a Backend with the contract the tracker relies on: no call
// panics or returns an error. Absent, corrupt, and unreadable entries all
// report false; a value that fails to decode is treated as never written.
type Store struct {
	backend Backend
	logger  *zap.Logger
}

// NewStore returns a Store over the given backend.
func NewStore(backend Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{backend: backend, logger: logger}
}

// Get reads and decodes the value at key into out. It returns false when the
// key is absent, the read fails, or the stored JSON does not decode.
func (s *Store) Get(ctx context.Context, key string, out interface{}) bool {
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("storage get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Warn("storage entry corrupt, treating as absent", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set serializes v and writes it at key, reporting success.
func (s *Store) Set(ctx context.Context, key string, v interface{}) bool {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("storage marshal failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := s.backend.Set(ctx, key, data); err != nil {
		s.logger.Warn("storage set failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Remove deletes the entry at key, reporting success. Removing an absent key
// succeeds.
func (s *Store) Remove(ctx context.Context, key string) bool {
	if err := s.backend.Delete(ctx, key); err != nil {
		s.logger.Warn("storage remove failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}
