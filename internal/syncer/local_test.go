package syncer

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/brk3/habitlog/internal/storage/bolt"
	"github.com/brk3/habitlog/pkg/datekey"
	"github.com/brk3/habitlog/pkg/habit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKeys = Keys{Habits: "habit-tracker-habits", Log: "habit-tracker-log"}

type memDocs struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	putErr error
	puts   int
}

func newMemDocs() *memDocs {
	return &memDocs{data: map[string][]byte{}}
}

func (m *memDocs) Get(owner, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.data[owner+"/"+key], nil
}

func (m *memDocs) Put(owner, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	m.data[owner+"/"+key] = value
	return nil
}

func (m *memDocs) Close() error { return nil }

func (m *memDocs) storedLog(t *testing.T, owner string) habit.StoredLog {
	t.Helper()
	var out habit.StoredLog
	require.NoError(t, json.Unmarshal(m.data[owner+"/"+testKeys.Log], &out))
	return out
}

func TestLocal_MalformedDocumentsYieldEmptyDefaults(t *testing.T) {
	docs := newMemDocs()
	docs.data["alice/"+testKeys.Habits] = []byte(`{not json`)
	docs.data["alice/"+testKeys.Log] = []byte(`[1,2,3]`)

	s, err := LoadLocal(docs, "alice", testKeys, datekey.FixedDay(testDay))
	require.NoError(t, err)
	assert.Empty(t, s.Habits())
	assert.Empty(t, s.EntriesFor("2024-04-30"))

	// the next write replaces the bad content
	assert.JSONEq(t, `[]`, string(docs.data["alice/"+testKeys.Habits]))
	assert.JSONEq(t, `{}`, string(docs.data["alice/"+testKeys.Log]))
}

func TestLocal_StoreErrorIsReturned(t *testing.T) {
	docs := newMemDocs()
	docs.getErr = errors.New("disk gone")
	_, err := LoadLocal(docs, "alice", testKeys, datekey.FixedDay(testDay))
	assert.Error(t, err)
}

func TestLocal_MigratesLegacyLogOnLoad(t *testing.T) {
	docs := newMemDocs()
	docs.data["alice/"+testKeys.Habits] = []byte(`[{"id":"h_1","name":"Floss","type":"checkbox","target":null,"icon":"🦷","order":0}]`)
	docs.data["alice/"+testKeys.Log] = []byte(`{
		"2024-04-30": {"h_1": {"type":"checkbox","done":true}},
		"2024-04-29": {"h_1": {"type":"checkbox","done":false}}
	}`)

	s, err := LoadLocal(docs, "alice", testKeys, datekey.FixedDay(testDay))
	require.NoError(t, err)
	assert.Equal(t, habit.CheckboxEntry{State: habit.StateDone}, s.EntriesFor("2024-04-30")["h_1"])
	assert.Equal(t, habit.CheckboxEntry{State: habit.StatePending}, s.EntriesFor("2024-04-29")["h_1"])
	assert.Equal(t, habit.CheckboxEntry{State: habit.StatePending}, s.EntriesFor(testDay)["h_1"])

	stored := docs.storedLog(t, "alice")
	b, err := json.Marshal(stored["2024-04-30"]["h_1"])
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"checkbox","state":"done"}`, string(b))
}

func TestLocal_EveryChangeRewritesBothDocuments(t *testing.T) {
	docs := newMemDocs()
	s, err := LoadLocal(docs, "alice", testKeys, datekey.FixedDay(testDay), seqIDs())
	require.NoError(t, err)

	h, err := s.Add(habit.Draft{Name: "Pages", Kind: habit.KindCounter, Target: 5})
	require.NoError(t, err)
	_, ok := s.SetCount(h.ID, 3)
	require.True(t, ok)

	stored := docs.storedLog(t, "alice")
	e, err := stored[testDay][h.ID].Load()
	require.NoError(t, err)
	assert.Equal(t, habit.CounterEntry{Count: 3, Target: 5}, e)

	var habits []habit.Habit
	require.NoError(t, json.Unmarshal(docs.data["alice/"+testKeys.Habits], &habits))
	require.Len(t, habits, 1)
	assert.Equal(t, h.ID, habits[0].ID)

	before := docs.puts
	_, ok = s.Toggle(h.ID)
	assert.False(t, ok)
	assert.Equal(t, before, docs.puts, "no-op mutations do not write")
}

func TestLocal_WriteFailureKeepsLocalState(t *testing.T) {
	docs := newMemDocs()
	s, err := LoadLocal(docs, "alice", testKeys, datekey.FixedDay(testDay), seqIDs())
	require.NoError(t, err)
	docs.putErr = errors.New("read-only")

	h, err := s.Add(habit.Draft{Name: "Floss", Kind: habit.KindCheckbox})
	require.NoError(t, err)
	e, ok := s.Toggle(h.ID)
	require.True(t, ok)
	assert.Equal(t, habit.CheckboxEntry{State: habit.StateDone}, e)
}

func TestLocal_ReloadFromBolt(t *testing.T) {
	store, err := bolt.Open(filepath.Join(t.TempDir(), "habits.db"))
	require.NoError(t, err)
	defer store.Close()

	s, err := LoadLocal(store, "alice", testKeys, datekey.FixedDay(testDay), seqIDs())
	require.NoError(t, err)
	floss, err := s.Add(habit.Draft{Name: "Floss", Kind: habit.KindCheckbox})
	require.NoError(t, err)
	water, err := s.Add(habit.Draft{Name: "Water", Kind: habit.KindCounter, Target: 8, Unit: "glasses"})
	require.NoError(t, err)
	s.Toggle(floss.ID)
	s.Toggle(floss.ID)
	s.IncrementCount(water.ID)
	s.Remove(floss.ID)

	// the next day, from a fresh session
	next, err := datekey.Offset(testDay, 1)
	require.NoError(t, err)
	reloaded, err := LoadLocal(store, "alice", testKeys, datekey.FixedDay(next))
	require.NoError(t, err)

	hs := reloaded.Habits()
	require.Len(t, hs, 1)
	assert.Equal(t, "glasses", hs[0].Unit)

	day := reloaded.EntriesFor(testDay)
	assert.Equal(t, habit.CheckboxEntry{State: habit.StateMissed}, day[floss.ID])
	assert.Equal(t, habit.CounterEntry{Count: 1, Target: 8}, day[water.ID])

	today := reloaded.EntriesFor(next)
	assert.Len(t, today, 1)
	assert.Equal(t, habit.CounterEntry{Count: 0, Target: 8}, today[water.ID])

	other, err := LoadLocal(store, "bob", testKeys, datekey.FixedDay(next))
	require.NoError(t, err)
	assert.Empty(t, other.Habits())
}
