package datekey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffset(t *testing.T) {
	cases := []struct {
		key  Key
		days int
		want Key
	}{
		{"2024-02-28", 1, "2024-02-29"},
		{"2023-02-28", 1, "2023-03-01"},
		{"2024-01-01", -1, "2023-12-31"},
		{"2024-12-31", 1, "2025-01-01"},
		{"2024-03-10", 0, "2024-03-10"},
		{"2024-03-01", -30, "2024-01-31"},
	}
	for _, c := range cases {
		got, err := Offset(c.key, c.days)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "Offset(%s, %d)", c.key, c.days)
	}
}

func TestOffset_Malformed(t *testing.T) {
	for _, k := range []Key{"", "2024-02", "2024-xx-01", "not-a-date", "2024-01-01-01"} {
		_, err := Offset(k, 1)
		assert.ErrorIs(t, err, ErrInvalidDateKey, "key %q", k)
	}
}

func TestParse(t *testing.T) {
	got, err := Parse("2024-2-9")
	require.NoError(t, err)
	assert.Equal(t, Key("2024-02-09"), got)

	_, err = Parse("2023-02-29")
	assert.ErrorIs(t, err, ErrInvalidDateKey)

	_, err = Parse("2024-13-01")
	assert.ErrorIs(t, err, ErrInvalidDateKey)
}

func TestToday_UsesClock(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	c := Fixed(time.Date(2024, 6, 30, 23, 30, 0, 0, loc))
	assert.Equal(t, Key("2024-06-30"), Today(c))

	// 14:30 UTC on the 30th is already the 1st in UTC+10
	c = Fixed(time.Date(2024, 6, 30, 14, 30, 0, 0, time.UTC).In(loc))
	assert.Equal(t, Key("2024-07-01"), Today(c))
}

func TestFixedDay(t *testing.T) {
	assert.Equal(t, Key("2025-01-15"), Today(FixedDay("2025-01-15")))
	assert.Panics(t, func() { FixedDay("garbage") })
}

func TestKeysSortLexicographically(t *testing.T) {
	a, _ := Parse("2024-9-30")
	b, _ := Parse("2024-10-01")
	assert.Less(t, string(a), string(b))
}
