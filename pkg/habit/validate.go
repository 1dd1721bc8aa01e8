package habit

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Normalize trims the free-text fields of d and drops fields that do not
// apply to its kind.
func (d Draft) Normalize() Draft {
	d.Name = strings.TrimSpace(d.Name)
	d.Icon = strings.TrimSpace(d.Icon)
	d.Unit = strings.TrimSpace(d.Unit)
	if d.Kind != KindCounter {
		d.Target = 0
		d.Unit = ""
	}
	return d
}

// Validate checks a normalized draft and returns a *ValidationError naming
// every bad field, or nil.
func (d Draft) Validate() error {
	verr := &ValidationError{}

	switch n := utf8.RuneCountInString(d.Name); {
	case n == 0:
		verr.add("name", "Name is required.")
	case n > MaxNameLength:
		verr.add("name", fmt.Sprintf("Name must be at most %d characters.", MaxNameLength))
	}

	if !d.Kind.Valid() {
		verr.add("type", fmt.Sprintf("Type must be %q or %q.", KindCheckbox, KindCounter))
	}
	if d.Kind == KindCounter && d.Target < MinTarget {
		verr.add("target", fmt.Sprintf("Target must be a whole number of %d or more.", MinTarget))
	}
	if utf8.RuneCountInString(d.Icon) > MaxIconLength {
		verr.add("icon", fmt.Sprintf("Icon must be at most %d characters.", MaxIconLength))
	}
	if utf8.RuneCountInString(d.Unit) > MaxUnitLength {
		verr.add("unit", fmt.Sprintf("Unit must be at most %d characters.", MaxUnitLength))
	}

	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

// Apply copies a normalized draft onto h, leaving ID and CreatedAt alone.
func (d Draft) Apply(h Habit) Habit {
	h.Name = d.Name
	h.Kind = d.Kind
	h.Icon = d.Icon
	h.Unit = d.Unit
	h.Target = nil
	if d.Kind == KindCounter {
		t := d.Target
		h.Target = &t
	}
	return h
}
