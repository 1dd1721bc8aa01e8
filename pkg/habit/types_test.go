package habit

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckboxCycle(t *testing.T) {
	s := StatePending
	want := []CheckboxState{StateDone, StateMissed, StatePending, StateDone, StateMissed, StatePending}
	for i, w := range want {
		s = s.Next()
		assert.Equal(t, w, s, "after %d toggles", i+1)
	}
	assert.Equal(t, StateDone, CheckboxState("bogus").Next())
}

func TestCounterWithCount_Clamps(t *testing.T) {
	e := CounterEntry{Target: 5}
	for _, v := range []int{-10, -1, 0, 1, 4, 5, 6, 100} {
		got := e.WithCount(v)
		want := max(0, min(v, 5))
		assert.Equal(t, want, got.Count, "WithCount(%d)", v)
		assert.Equal(t, want == 5, got.IsComplete(), "IsComplete after WithCount(%d)", v)
	}
}

func TestNewEntry(t *testing.T) {
	target := 8
	assert.Equal(t, CheckboxEntry{State: StatePending}, NewEntry(Habit{Kind: KindCheckbox}))
	assert.Equal(t, CounterEntry{Count: 0, Target: 8}, NewEntry(Habit{Kind: KindCounter, Target: &target}))
}

func TestDraftValidate_CollectsAllFields(t *testing.T) {
	d := Draft{Name: "   ", Kind: KindCounter, Target: 1, Unit: strings.Repeat("g", MaxUnitLength+1)}.Normalize()
	err := d.Validate()
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	fields := verr.Map()
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "target")
	assert.Contains(t, fields, "unit")
	assert.Len(t, verr.Fields, 3)
}

func TestDraftValidate(t *testing.T) {
	cases := []struct {
		name  string
		draft Draft
		bad   string
	}{
		{"valid checkbox", Draft{Name: "Brush teeth", Kind: KindCheckbox}, ""},
		{"valid counter", Draft{Name: "Water", Kind: KindCounter, Target: 8, Unit: "glasses"}, ""},
		{"name at limit", Draft{Name: strings.Repeat("a", MaxNameLength), Kind: KindCheckbox}, ""},
		{"multibyte name at limit", Draft{Name: strings.Repeat("é", MaxNameLength), Kind: KindCheckbox}, ""},
		{"name too long", Draft{Name: strings.Repeat("a", MaxNameLength+1), Kind: KindCheckbox}, "name"},
		{"unknown kind", Draft{Name: "x", Kind: "slider"}, "type"},
		{"counter target too small", Draft{Name: "x", Kind: KindCounter, Target: 1}, "target"},
		{"checkbox ignores target", Draft{Name: "x", Kind: KindCheckbox, Target: -4}, ""},
		{"icon too long", Draft{Name: "x", Kind: KindCheckbox, Icon: "123456789"}, "icon"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.draft.Normalize().Validate()
			if c.bad == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Map(), c.bad)
		})
	}
}

func TestDraftApply(t *testing.T) {
	h := Habit{ID: "h1", Name: "old", Kind: KindCounter}
	h = Draft{Name: " Read ", Kind: KindCheckbox, Target: 9, Unit: "pages"}.Normalize().Apply(h)
	assert.Equal(t, "h1", h.ID)
	assert.Equal(t, "Read", h.Name)
	assert.Nil(t, h.Target)
	assert.Empty(t, h.Unit)

	h = Draft{Name: "Read", Kind: KindCounter, Target: 20, Unit: "pages"}.Normalize().Apply(h)
	require.NotNil(t, h.Target)
	assert.Equal(t, 20, *h.Target)
	assert.Equal(t, "pages", h.Unit)
}

func TestStoredEntry_Load(t *testing.T) {
	var s StoredEntry
	require.NoError(t, json.Unmarshal([]byte(`{"type":"counter","count":9,"target":5,"done":false}`), &s))
	e, err := s.Load()
	require.NoError(t, err)
	c := e.(CounterEntry)
	assert.Equal(t, 5, c.Count)
	assert.True(t, c.IsComplete())

	require.NoError(t, json.Unmarshal([]byte(`{"type":"checkbox","state":"missed"}`), &s))
	e, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, CheckboxEntry{State: StateMissed}, e)

	_, err = StoredEntry{Type: "counter"}.Load()
	assert.Error(t, err)
	_, err = StoredEntry{Type: "nope"}.Load()
	assert.Error(t, err)
}

func TestStore_RecomputesDone(t *testing.T) {
	b, err := json.Marshal(Store(CounterEntry{Count: 3, Target: 3}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"counter","count":3,"target":3,"done":true}`, string(b))

	b, err = json.Marshal(Store(CheckboxEntry{State: StateDone}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"checkbox","state":"done"}`, string(b))
}
