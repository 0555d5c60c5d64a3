package models

import "time"

// SessionStatus mirrors the booking lifecycle stage reported by the booking API.
type SessionStatus int

const (
	StatusPending SessionStatus = iota
	StatusConfirmed
	StatusOngoing
	StatusCompleted
	StatusCanceled
)

// ActiveSession is the client-side projection of a KTV's single in-progress
// booking. The tracker holds at most one per KTV; concurrent jobs are not
// representable.
type ActiveSession struct {
	ID              string          `json:"id"`
	Status          SessionStatus   `json:"status"`
	StartTime       time.Time       `json:"start_time"`
	DurationMinutes int             `json:"duration"`
	Booking         BookingSnapshot `json:"booking"`
}

// BookingSnapshot is a denormalized copy of the booking details, kept so the
// session remains displayable without a round trip to the booking API.
type BookingSnapshot struct {
	ServiceName   string `json:"service_name"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	Address       string `json:"address"`
}

// EndTime returns the moment the service period is expected to finish.
func (s ActiveSession) EndTime() time.Time {
	return s.StartTime.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// Remaining is the countdown derived from an active session's end time.
// It is recomputed from the wall clock on every read and never persisted.
type Remaining struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Expired bool `json:"expired"`
}
