package server

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/brk3/habitlog/pkg/habit"
)

// HabitRequest is the body of habit create and update. Target is kept raw:
// a value that is not a whole number becomes a target field error next to
// any other bad field instead of failing the whole decode.
type HabitRequest struct {
	Name   string          `json:"name"`
	Type   habit.Kind      `json:"type"`
	Target json.RawMessage `json:"target,omitempty"`
	Icon   string          `json:"icon,omitempty"`
	Unit   string          `json:"unit,omitempty"`
}

func (req HabitRequest) Draft() habit.Draft {
	return habit.Draft{
		Name:   req.Name,
		Kind:   req.Type,
		Target: wholeNumber(req.Target),
		Icon:   req.Icon,
		Unit:   req.Unit,
	}
}

// wholeNumber reads a JSON number or numeric string. Anything that is not a
// whole number reads as 0, which validation rejects for counters.
func wholeNumber(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0
	}

	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	default:
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0
	}
	return int(f)
}
