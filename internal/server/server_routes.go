package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/brk3/habitlog/internal/logger"
	"github.com/brk3/habitlog/internal/syncer"
	"github.com/brk3/habitlog/pkg/datekey"
	"github.com/brk3/habitlog/pkg/habit"
	"github.com/brk3/habitlog/pkg/versioninfo"
	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	if err := writeJSON(w, code, ErrorResponse{Error: msg}); err != nil {
		logger.Error("Failed to serialize error response", "error", err)
	}
}

// writeDomainError maps tracker errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *habit.ValidationError
	switch {
	case errors.As(err, &verr):
		if err := writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: "invalid habit", Fields: verr.Map()}); err != nil {
			logger.Error("Failed to serialize validation response", "error", err)
		}
	case errors.Is(err, habit.ErrLimitExceeded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, habit.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, datekey.ErrInvalidDateKey):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("Unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) getVersionInfo(w http.ResponseWriter, _ *http.Request) {
	if err := writeJSON(w, http.StatusOK, versioninfo.Current()); err != nil {
		logger.Error("Failed to serialize version info response", "error", err)
	}
}

func (s *Server) listHabits(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	habits := sess.Habits()
	if habits == nil {
		habits = []habit.Habit{}
	}
	logger.Debug("Listed habits", "owner_id", sess.Owner(), "count", len(habits))
	if err := writeJSON(w, http.StatusOK, HabitListResponse{Habits: habits}); err != nil {
		logger.Error("Failed to serialize habit list response", "owner_id", sess.Owner(), "error", err)
	}
}

func (s *Server) createHabit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	var req HabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Invalid JSON in create habit request", "owner_id", sess.Owner(), "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	h, err := sess.Add(req.Draft())
	if err != nil {
		logger.Debug("Rejected new habit", "owner_id", sess.Owner(), "error", err)
		writeDomainError(w, err)
		return
	}
	logger.Info("Habit created", "owner_id", sess.Owner(), "habit_id", h.ID, "type", h.Kind)
	UpdateActiveHabitsForUser(sess.Owner(), len(sess.Habits()))

	resp := HabitResponse{Habit: h, Today: todayResponse(sess)}
	if err := writeJSON(w, http.StatusCreated, resp); err != nil {
		logger.Error("Failed to serialize create habit response", "owner_id", sess.Owner(), "error", err)
	}
}

func (s *Server) updateHabit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	habitID := chi.URLParam(r, "habit_id")
	var req HabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Invalid JSON in update habit request", "owner_id", sess.Owner(), "habit_id", habitID, "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	h, err := sess.Update(habitID, req.Draft())
	if err != nil {
		logger.Debug("Rejected habit update", "owner_id", sess.Owner(), "habit_id", habitID, "error", err)
		writeDomainError(w, err)
		return
	}
	logger.Info("Habit updated", "owner_id", sess.Owner(), "habit_id", h.ID)

	resp := HabitResponse{Habit: h, Today: todayResponse(sess)}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.Error("Failed to serialize update habit response", "owner_id", sess.Owner(), "error", err)
	}
}

func (s *Server) deleteHabit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	habitID := chi.URLParam(r, "habit_id")
	logger.Info("Deleting habit", "owner_id", sess.Owner(), "habit_id", habitID)

	sess.Remove(habitID)
	UpdateActiveHabitsForUser(sess.Owner(), len(sess.Habits()))

	if err := writeJSON(w, http.StatusOK, todayResponse(sess)); err != nil {
		logger.Error("Failed to serialize delete habit response", "owner_id", sess.Owner(), "error", err)
	}
}

func (s *Server) getToday(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	if err := writeJSON(w, http.StatusOK, todayResponse(sess)); err != nil {
		logger.Error("Failed to serialize day log response", "owner_id", sess.Owner(), "error", err)
	}
}

func (s *Server) getDay(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r)
	date, err := datekey.Parse(chi.URLParam(r, "date"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := dayLogResponse(date, sess.EntriesFor(date))
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.Error("Failed to serialize day log response", "owner_id", sess.Owner(), "date", date, "error", err)
	}
}

func (s *Server) getOffset(w http.ResponseWriter, r *http.Request) {
	date, err := datekey.Parse(chi.URLParam(r, "date"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	days, err := strconv.Atoi(chi.URLParam(r, "days"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "days must be an integer")
		return
	}
	shifted, err := datekey.Offset(date, days)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, OffsetResponse{Date: shifted}); err != nil {
		logger.Error("Failed to serialize offset response", "error", err)
	}
}

func (s *Server) toggleEntry(w http.ResponseWriter, r *http.Request) {
	s.mutateEntry(w, r, "toggle", func(sess syncer.Session, habitID string) bool {
		_, ok := sess.Toggle(habitID)
		return ok
	})
}

func (s *Server) setEntryCount(w http.ResponseWriter, r *http.Request) {
	var req CountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	s.mutateEntry(w, r, "set_count", func(sess syncer.Session, habitID string) bool {
		_, ok := sess.SetCount(habitID, req.Count)
		return ok
	})
}

func (s *Server) incrementEntry(w http.ResponseWriter, r *http.Request) {
	s.mutateEntry(w, r, "increment", func(sess syncer.Session, habitID string) bool {
		_, ok := sess.IncrementCount(habitID)
		return ok
	})
}

func (s *Server) mutateEntry(w http.ResponseWriter, r *http.Request, op string, apply func(syncer.Session, string) bool) {
	sess := sessionFromContext(r)
	habitID := chi.URLParam(r, "habit_id")

	applied := apply(sess, habitID)
	logger.Debug("Log mutation", "op", op, "owner_id", sess.Owner(), "habit_id", habitID, "date", sess.Today(), "applied", applied)

	resp := EntryMutationResponse{Applied: applied, Today: todayResponse(sess)}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.Error("Failed to serialize log mutation response", "op", op, "owner_id", sess.Owner(), "error", err)
	}
}

func todayResponse(sess syncer.Session) DayLogResponse {
	today := sess.Today()
	return dayLogResponse(today, sess.EntriesFor(today))
}
