// File: models/archive.go
package models

import "time"

// ClearReason explains why an active session was removed from the tracker.
type ClearReason string

const (
	ClearCompleted ClearReason = "completed"
	ClearCanceled  ClearReason = "canceled"
	ClearExpired   ClearReason = "expired"
)

// Valid reports whether the reason is one of the known clear reasons.
func (r ClearReason) Valid() bool {
	switch r {
	case ClearCompleted, ClearCanceled, ClearExpired:
		return true
	}
	return false
}

// ArchivedSession is the retained record of a session after it ended.
type ArchivedSession struct {
	ID              string          `bson:"id" json:"id"`                           // Unique ID for the archive entry
	KTVID           string          `bson:"ktvId" json:"ktvId"`                     // Owner technician
	BookingID       string          `bson:"bookingId" json:"bookingId"`             // Original booking ID
	Status          SessionStatus   `bson:"status" json:"status"`                   // Last known lifecycle stage
	StartTime       time.Time       `bson:"startTime" json:"startTime"`             // When the service period began
	DurationMinutes int             `bson:"durationMinutes" json:"durationMinutes"` // Expected service length
	Booking         BookingSnapshot `bson:"booking" json:"booking"`                 // Snapshot for display
	Reason          ClearReason     `bson:"reason" json:"reason"`                   // Why the session ended
	EndedAt         time.Time       `bson:"endedAt" json:"endedAt"`                 // When the tracker cleared it
	CreatedAt       time.Time       `bson:"createdAt" json:"createdAt"`
}
