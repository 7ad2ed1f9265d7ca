package models

import (
	"fmt"
	"time"
)

// Outcome is how an enrollment request ended.
type Outcome string

const (
	OutcomeSucceeded  Outcome = "succeeded"
	OutcomeExpired    Outcome = "expired"
	OutcomeDismissed  Outcome = "dismissed"
	OutcomeSuperseded Outcome = "superseded"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSucceeded, OutcomeExpired, OutcomeDismissed, OutcomeSuperseded:
		return true
	}
	return false
}

// Enrollment records the result of one tag enrollment request.
type Enrollment struct {
	id        string
	sequence  int
	trackPath string
	outcome   Outcome
	tagID     string
	startedAt time.Time
	endedAt   time.Time
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewEnrollment creates an [Enrollment] for the given track and outcome.
func NewEnrollment(trackPath string, outcome Outcome, tagID string, startedAt, endedAt time.Time) *Enrollment {
	now := time.Now()
	return &Enrollment{
		trackPath: trackPath,
		outcome:   outcome,
		tagID:     tagID,
		startedAt: startedAt,
		endedAt:   endedAt,
		createdAt: now,
		updatedAt: now,
	}
}

func (e *Enrollment) ID() string            { return e.id }
func (e *Enrollment) Sequence() int         { return e.sequence }
func (e *Enrollment) TrackPath() string     { return e.trackPath }
func (e *Enrollment) Outcome() Outcome      { return e.outcome }
func (e *Enrollment) TagID() string         { return e.tagID }
func (e *Enrollment) StartedAt() time.Time  { return e.startedAt }
func (e *Enrollment) EndedAt() time.Time    { return e.endedAt }
func (e *Enrollment) CreatedAt() time.Time  { return e.createdAt }
func (e *Enrollment) UpdatedAt() time.Time  { return e.updatedAt }
func (e *Enrollment) DeletedAt() *time.Time { return e.deletedAt }

func (e *Enrollment) SetID(id string)           { e.id = id }
func (e *Enrollment) SetSequence(seq int)       { e.sequence = seq }
func (e *Enrollment) SetCreatedAt(t time.Time)  { e.createdAt = t }
func (e *Enrollment) SetUpdatedAt(t time.Time)  { e.updatedAt = t }
func (e *Enrollment) SetDeletedAt(t *time.Time) { e.deletedAt = t }

// Elapsed is how long the request was pending.
func (e *Enrollment) Elapsed() time.Duration {
	return e.endedAt.Sub(e.startedAt)
}

// Validate checks required fields.
func (e *Enrollment) Validate() error {
	if e.id == "" {
		return fmt.Errorf("enrollment ID is required")
	}
	if e.trackPath == "" {
		return fmt.Errorf("enrollment track path is required")
	}
	if !e.outcome.Valid() {
		return fmt.Errorf("invalid enrollment outcome: %q", e.outcome)
	}
	if e.endedAt.Before(e.startedAt) {
		return fmt.Errorf("enrollment ended before it started")
	}
	return nil
}
