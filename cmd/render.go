package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/brk3/habitlog/internal/server"
	"github.com/brk3/habitlog/pkg/habit"
)

var checkboxMarks = map[habit.CheckboxState]string{
	habit.StatePending: "[ ]",
	habit.StateDone:    "[x]",
	habit.StateMissed:  "[-]",
}

// renderDay prints one line per habit in list order, followed by entries
// whose habit has since been removed.
func renderDay(w io.Writer, habits []habit.Habit, day server.DayLogResponse) {
	fmt.Fprintln(w, day.Date)
	if len(day.Entries) == 0 {
		fmt.Fprintln(w, "  no entries")
		return
	}

	seen := make(map[string]bool, len(habits))
	for _, h := range habits {
		e, ok := day.Entries[h.ID]
		if !ok {
			continue
		}
		seen[h.ID] = true
		fmt.Fprintln(w, "  "+entryLine(e, label(h), h.Unit)+"  "+h.ID)
	}

	var orphans []string
	for id := range day.Entries {
		if !seen[id] {
			orphans = append(orphans, id)
		}
	}
	sort.Strings(orphans)
	for _, id := range orphans {
		fmt.Fprintln(w, "  "+entryLine(day.Entries[id], "(removed habit)", "")+"  "+id)
	}
}

func entryLine(e server.EntryResponse, name, unit string) string {
	switch e.Type {
	case habit.KindCounter:
		c := e.Entry().(habit.CounterEntry)
		line := fmt.Sprintf("[%d/%d] %s", c.Count, c.Target, name)
		if unit != "" {
			line += " (" + unit + ")"
		}
		if c.IsComplete() {
			line += " ✓"
		}
		return line
	default:
		mark, ok := checkboxMarks[e.State]
		if !ok {
			mark = checkboxMarks[habit.StatePending]
		}
		return mark + " " + name
	}
}

func label(h habit.Habit) string {
	return strings.TrimSpace(h.Icon + " " + h.Name)
}

func renderHabits(w io.Writer, habits []habit.Habit) {
	if len(habits) == 0 {
		fmt.Fprintln(w, "No habits yet. Add one with \"habits add\".")
		return
	}
	for _, h := range habits {
		kind := string(h.Kind)
		if h.Kind == habit.KindCounter && h.Target != nil {
			kind = fmt.Sprintf("counter, target %d", *h.Target)
			if h.Unit != "" {
				kind += " " + h.Unit
			}
		}
		fmt.Fprintf(w, "%s  %s (%s)\n", h.ID, label(h), kind)
	}
}
