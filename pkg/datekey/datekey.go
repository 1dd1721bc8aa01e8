// Package datekey produces canonical calendar-day identifiers ("YYYY-MM-DD")
// and does day arithmetic on them. Keys sort lexicographically in date order.
package datekey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const layout = "2006-01-02"

var ErrInvalidDateKey = errors.New("invalid date key")

// Key is an owner-local calendar day.
type Key string

func (k Key) String() string {
	return string(k)
}

// Clock supplies the current wall-clock time. Tests pin it with Fixed.
type Clock interface {
	Now() time.Time
}

// SystemClock reports time.Now in Location (time.Local when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// Fixed is a Clock that always reports the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time {
	return time.Time(f)
}

// FixedDay returns a Clock pinned to noon on the given key. It panics on a
// malformed key and is meant for tests and tooling.
func FixedDay(k Key) Fixed {
	y, m, d, err := split(k)
	if err != nil {
		panic(err)
	}
	return Fixed(time.Date(y, time.Month(m), d, 12, 0, 0, 0, time.Local))
}

// FromTime returns the key of the calendar day t falls on, in t's location.
func FromTime(t time.Time) Key {
	return Key(t.Format(layout))
}

// Today resolves the current day from c.
func Today(c Clock) Key {
	return FromTime(c.Now())
}

// Parse validates s and returns it in canonical zero-padded form.
func Parse(s string) (Key, error) {
	y, m, d, err := split(Key(s))
	if err != nil {
		return "", err
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", fmt.Errorf("%w: %q is not a calendar day", ErrInvalidDateKey, s)
	}
	return FromTime(t), nil
}

// Offset returns the day that is days away from k. Arithmetic is done on
// the civil calendar so DST transitions cannot shift the result.
func Offset(k Key, days int) (Key, error) {
	y, m, d, err := split(k)
	if err != nil {
		return "", err
	}
	return FromTime(time.Date(y, time.Month(m), d+days, 0, 0, 0, 0, time.UTC)), nil
}

func split(k Key) (year, month, day int, err error) {
	parts := strings.Split(string(k), "-")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidDateKey, k)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, convErr := strconv.Atoi(p)
		if convErr != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidDateKey, k)
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], nil
}
