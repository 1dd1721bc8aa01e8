package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/brk3/habitlog/internal/server"
	"github.com/brk3/habitlog/pkg/datekey"
	"github.com/brk3/habitlog/pkg/habit"
	"github.com/brk3/habitlog/pkg/versioninfo"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
	// Token is sent as a Bearer token when set. Login fills it in.
	Token string
}

func New(base string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(base, "/"),
		HTTP:    http.DefaultClient,
	}
}

// APIError is a non-2xx response. Fields is set for validation failures.
type APIError struct {
	Status  int
	Message string
	Fields  map[string]string
}

func (e *APIError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%d: %s", e.Status, e.Message)
	}
	var parts []string
	for f, msg := range e.Fields {
		parts = append(parts, f+": "+msg)
	}
	sort.Strings(parts)
	return fmt.Sprintf("%d: %s (%s)", e.Status, e.Message, strings.Join(parts, "; "))
}

// Login trades an ID token from provider for a session token. provider may
// be empty when the server has a single identity provider.
func (c *Client) Login(ctx context.Context, provider, idToken string) error {
	var out server.SessionResponse
	if err := c.do(ctx, http.MethodPost, "/session", server.SessionRequest{Provider: provider, IDToken: idToken}, &out); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	c.Token = out.Token
	return nil
}

func (c *Client) ListHabits(ctx context.Context) ([]habit.Habit, error) {
	var out server.HabitListResponse
	if err := c.do(ctx, http.MethodGet, "/habits", nil, &out); err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	return out.Habits, nil
}

func (c *Client) CreateHabit(ctx context.Context, d habit.Draft) (*server.HabitResponse, error) {
	var out server.HabitResponse
	if err := c.do(ctx, http.MethodPost, "/habits", d, &out); err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	return &out, nil
}

func (c *Client) UpdateHabit(ctx context.Context, id string, d habit.Draft) (*server.HabitResponse, error) {
	var out server.HabitResponse
	if err := c.do(ctx, http.MethodPut, "/habits/"+url.PathEscape(id), d, &out); err != nil {
		return nil, fmt.Errorf("update habit %s: %w", id, err)
	}
	return &out, nil
}

func (c *Client) DeleteHabit(ctx context.Context, id string) (*server.DayLogResponse, error) {
	var out server.DayLogResponse
	if err := c.do(ctx, http.MethodDelete, "/habits/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, fmt.Errorf("delete habit %s: %w", id, err)
	}
	return &out, nil
}

func (c *Client) Today(ctx context.Context) (*server.DayLogResponse, error) {
	var out server.DayLogResponse
	if err := c.do(ctx, http.MethodGet, "/log/today", nil, &out); err != nil {
		return nil, fmt.Errorf("today: %w", err)
	}
	return &out, nil
}

func (c *Client) Day(ctx context.Context, date datekey.Key) (*server.DayLogResponse, error) {
	var out server.DayLogResponse
	if err := c.do(ctx, http.MethodGet, "/log/"+url.PathEscape(string(date)), nil, &out); err != nil {
		return nil, fmt.Errorf("log %s: %w", date, err)
	}
	return &out, nil
}

func (c *Client) Offset(ctx context.Context, date datekey.Key, days int) (datekey.Key, error) {
	var out server.OffsetResponse
	path := "/log/" + url.PathEscape(string(date)) + "/offset/" + strconv.Itoa(days)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", fmt.Errorf("offset %s by %d: %w", date, days, err)
	}
	return out.Date, nil
}

func (c *Client) Toggle(ctx context.Context, habitID string) (*server.EntryMutationResponse, error) {
	return c.mutate(ctx, http.MethodPost, habitID, "toggle", nil)
}

func (c *Client) SetCount(ctx context.Context, habitID string, n int) (*server.EntryMutationResponse, error) {
	return c.mutate(ctx, http.MethodPut, habitID, "count", server.CountRequest{Count: n})
}

func (c *Client) Increment(ctx context.Context, habitID string) (*server.EntryMutationResponse, error) {
	return c.mutate(ctx, http.MethodPost, habitID, "increment", nil)
}

func (c *Client) Version(ctx context.Context) (*versioninfo.VersionInfo, error) {
	var out versioninfo.VersionInfo
	if err := c.do(ctx, http.MethodGet, "/version", nil, &out); err != nil {
		return nil, fmt.Errorf("version: %w", err)
	}
	return &out, nil
}

func (c *Client) mutate(ctx context.Context, method, habitID, op string, body any) (*server.EntryMutationResponse, error) {
	var out server.EntryMutationResponse
	if err := c.do(ctx, method, "/log/today/"+url.PathEscape(habitID)+"/"+op, body, &out); err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, habitID, err)
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{Status: res.StatusCode, Message: res.Status}
		var er server.ErrorResponse
		if err := json.NewDecoder(res.Body).Decode(&er); err == nil && er.Error != "" {
			apiErr.Message = er.Error
			apiErr.Fields = er.Fields
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
