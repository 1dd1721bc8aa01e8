package server

import (
	"github.com/brk3/habitlog/pkg/datekey"
	"github.com/brk3/habitlog/pkg/habit"
)

type HabitListResponse struct {
	Habits []habit.Habit `json:"habits"`
}

// HabitResponse is returned by habit create and update, together with the
// day log so the caller can re-render without another request.
type HabitResponse struct {
	Habit habit.Habit    `json:"habit"`
	Today DayLogResponse `json:"today"`
}

type DayLogResponse struct {
	Date    datekey.Key              `json:"date"`
	Entries map[string]EntryResponse `json:"entries"`
}

// EntryMutationResponse reports whether a log mutation applied. A mutation
// on an unknown habit, or of the wrong kind, leaves the log untouched.
type EntryMutationResponse struct {
	Applied bool           `json:"applied"`
	Today   DayLogResponse `json:"today"`
}

// EntryResponse flattens both entry kinds. Counter entries always carry
// count, target and is_complete; checkbox entries carry state.
type EntryResponse struct {
	Type       habit.Kind          `json:"type"`
	State      habit.CheckboxState `json:"state,omitempty"`
	Count      *int                `json:"count,omitempty"`
	Target     *int                `json:"target,omitempty"`
	IsComplete *bool               `json:"is_complete,omitempty"`
}

type OffsetResponse struct {
	Date datekey.Key `json:"date"`
}

// SessionRequest carries an ID token from one of the configured providers.
// Provider may be omitted when only one is configured.
type SessionRequest struct {
	Provider string `json:"provider,omitempty"`
	IDToken  string `json:"id_token"`
}

type SessionResponse struct {
	OwnerID string `json:"owner_id"`
	Token   string `json:"token"`
}

type CountRequest struct {
	Count int `json:"count"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func entryResponse(e habit.Entry) EntryResponse {
	switch e := e.(type) {
	case habit.CheckboxEntry:
		return EntryResponse{Type: habit.KindCheckbox, State: e.State}
	case habit.CounterEntry:
		count, target, complete := e.Count, e.Target, e.IsComplete()
		return EntryResponse{Type: habit.KindCounter, Count: &count, Target: &target, IsComplete: &complete}
	}
	return EntryResponse{}
}

func dayLogResponse(date datekey.Key, day habit.DayLog) DayLogResponse {
	entries := make(map[string]EntryResponse, len(day))
	for id, e := range day {
		entries[id] = entryResponse(e)
	}
	return DayLogResponse{Date: date, Entries: entries}
}

// Entry converts the response back to a habit.Entry.
func (r EntryResponse) Entry() habit.Entry {
	switch r.Type {
	case habit.KindCounter:
		var e habit.CounterEntry
		if r.Target != nil {
			e.Target = *r.Target
		}
		if r.Count != nil {
			e = e.WithCount(*r.Count)
		}
		return e
	default:
		return habit.CheckboxEntry{State: r.State}
	}
}
