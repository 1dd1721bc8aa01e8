// Package storage defines the two persistence backends a session can use:
// a Remote table service and a local Documents key-value store.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrMalformed marks stored content that could not be parsed.
	ErrMalformed = errors.New("malformed storage")
	// ErrHabitNotFound is returned by habit updates and deletes that matched
	// no row for the owner.
	ErrHabitNotFound = errors.New("habit row not found")
)

// Remote is the table-oriented persistence service. Habit rows are keyed
// by (owner, id); log rows by (owner, habit, date) and written with
// last-write-wins upserts.
type Remote interface {
	// ListHabits returns the owner's habits ordered by created_at.
	ListHabits(ctx context.Context, ownerID string) ([]HabitRow, error)
	// InsertHabit stores a new habit and returns its id. An empty row.ID is
	// assigned by the store.
	InsertHabit(ctx context.Context, row HabitRow) (string, error)
	// UpdateHabit and DeleteHabit return ErrHabitNotFound when no row
	// matches.
	UpdateHabit(ctx context.Context, row HabitRow) error
	DeleteHabit(ctx context.Context, ownerID, habitID string) error

	UpsertLog(ctx context.Context, row LogRow) error
	// ListLog returns the owner's whole log history.
	ListLog(ctx context.Context, ownerID string) ([]LogRow, error)

	Close() error
}

// Documents is a key-value store of whole JSON documents per owner. A
// missing key reads as nil, nil.
type Documents interface {
	Get(ownerID, key string) ([]byte, error)
	Put(ownerID, key string, value []byte) error
	Close() error
}
