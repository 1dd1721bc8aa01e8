package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/brk3/habitlog/internal/config"
	"github.com/brk3/habitlog/internal/server"
	"github.com/brk3/habitlog/internal/syncer"
	"github.com/brk3/habitlog/internal/testutil"
	"github.com/brk3/habitlog/pkg/datekey"
	"github.com/brk3/habitlog/pkg/habit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memDocs struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memDocs) Get(owner, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[owner+"/"+key], nil
}

func (m *memDocs) Put(owner, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[owner+"/"+key] = value
	return nil
}

func (m *memDocs) Close() error { return nil }

// newTestClient serves a local-storage server; a non-nil iss turns auth on
// with iss as the only identity provider.
func newTestClient(t *testing.T, iss *testutil.Issuer) *Client {
	t.Helper()
	cfg := config.Default()
	docs := &memDocs{data: map[string][]byte{}}
	keys := syncer.Keys{Habits: cfg.Storage.Local.HabitsKey, Log: cfg.Storage.Local.LogKey}

	var opts []server.Option
	if iss != nil {
		cfg.Auth.Enabled = true
		opts = append(opts, server.WithAuthProviders(map[string]*server.AuthProvider{
			"test": server.NewAuthProvider("Test IdP", iss.Verifier(), nil),
		}))
	}
	srv, err := server.New(&cfg, func(_ context.Context, owner string) (syncer.Session, error) {
		return syncer.LoadLocal(docs, owner, keys, datekey.FixedDay("2024-05-01"))
	}, opts...)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return New(ts.URL + "/")
}

func TestClient_HabitLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, nil)

	created, err := c.CreateHabit(ctx, habit.Draft{Name: "Water", Kind: habit.KindCounter, Target: 2})
	require.NoError(t, err)
	id := created.Habit.ID

	habits, err := c.ListHabits(ctx)
	require.NoError(t, err)
	require.Len(t, habits, 1)
	assert.Equal(t, id, habits[0].ID)

	res, err := c.Increment(ctx, id)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	res, err = c.Increment(ctx, id)
	require.NoError(t, err)
	assert.True(t, *res.Today.Entries[id].IsComplete)

	res, err = c.SetCount(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, habit.CounterEntry{Count: 0, Target: 2}, res.Today.Entries[id].Entry())

	res, err = c.Toggle(ctx, id)
	require.NoError(t, err)
	assert.False(t, res.Applied)

	updated, err := c.UpdateHabit(ctx, id, habit.Draft{Name: "Hydrate", Kind: habit.KindCounter, Target: 4})
	require.NoError(t, err)
	assert.Equal(t, "Hydrate", updated.Habit.Name)
	// today's entry keeps the target it was created with
	assert.Equal(t, habit.CounterEntry{Count: 0, Target: 2}, updated.Today.Entries[id].Entry())

	day, err := c.DeleteHabit(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, day.Entries, id)

	habits, err = c.ListHabits(ctx)
	require.NoError(t, err)
	assert.Empty(t, habits)
}

func TestClient_DaysAndOffsets(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, nil)

	today, err := c.Today(ctx)
	require.NoError(t, err)
	assert.Equal(t, datekey.Key("2024-05-01"), today.Date)

	yesterday, err := c.Offset(ctx, today.Date, -1)
	require.NoError(t, err)
	assert.Equal(t, datekey.Key("2024-04-30"), yesterday)

	day, err := c.Day(ctx, yesterday)
	require.NoError(t, err)
	assert.Empty(t, day.Entries)

	_, err = c.Day(ctx, "2024-13-01")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestClient_ValidationError(t *testing.T) {
	c := newTestClient(t, nil)

	_, err := c.CreateHabit(context.Background(), habit.Draft{Name: "", Kind: "weekly"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, apiErr.Fields, "name")
	assert.Contains(t, apiErr.Fields, "type")
}

func TestClient_Login(t *testing.T) {
	ctx := context.Background()
	iss := testutil.NewIssuer(t)
	c := newTestClient(t, iss)

	_, err := c.ListHabits(ctx)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	err = c.Login(ctx, "test", testutil.NewIssuer(t).IDToken("alice", time.Hour))
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Empty(t, c.Token)

	require.NoError(t, c.Login(ctx, "test", iss.IDToken("alice", time.Hour)))
	assert.NotEmpty(t, c.Token)
	_, err = c.ListHabits(ctx)
	assert.NoError(t, err)
}

func TestClient_Version(t *testing.T) {
	c := newTestClient(t, nil)
	v, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, v.Version)
}
