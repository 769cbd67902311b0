package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"asamblea/internal/attendance"
	"asamblea/internal/config"
	"asamblea/internal/meeting"
)

// HTTPDoer describes the HTTP client used by the backend client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Service is the remote collaborator the console depends on.
type Service interface {
	MeetingOfToday(ctx context.Context) (meeting.Meeting, error)
	UpdatePhase(ctx context.Context, meetingID string, phase meeting.Phase) error
	GenerateRoster(ctx context.Context, meetingID string) error
	Register(ctx context.Context, reg attendance.Registration) (attendance.Entry, error)
	Roster(ctx context.Context, meetingID string) ([]attendance.Entry, error)
}

// Client is the HTTP implementation of Service.
type Client struct {
	baseURL  string
	token    string
	client   HTTPDoer
	location *time.Location
}

// Option customizes a Client.
type Option func(*Client)

// WithLocation sets the zone used for timestamps the backend sends without an offset.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.location = loc
		}
	}
}

// NewFromConfig builds a client from the backend section.
func NewFromConfig(cfg *config.Config) *Client {
	if cfg == nil {
		return NewClient("", "", nil)
	}
	return NewClient(cfg.Backend.BaseURL, cfg.Backend.APIToken,
		&http.Client{Timeout: cfg.BackendTimeout()}, WithLocation(cfg.Location()))
}

// NewClient constructs a client. A nil doer uses a client with a 10s timeout.
// Naive timestamps are read in time.Local unless WithLocation says otherwise.
func NewClient(baseURL, token string, doer HTTPDoer, opts ...Option) *Client {
	if doer == nil {
		doer = &http.Client{Timeout: 10 * time.Second}
	}
	c := &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:    strings.TrimSpace(token),
		client:   doer,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MeetingOfToday returns today's meeting or ErrNoMeeting.
func (c *Client) MeetingOfToday(ctx context.Context) (meeting.Meeting, error) {
	const op = "meeting of today"
	resp, err := c.do(ctx, op, http.MethodGet, "/meetings/today", nil)
	if err != nil {
		return meeting.Meeting{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusNotFound:
		return meeting.Meeting{}, ErrNoMeeting
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return meeting.Meeting{}, newAPIError(op, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return meeting.Meeting{}, fmt.Errorf("%s: read body: %w", op, err)
	}
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return meeting.Meeting{}, ErrNoMeeting
	}
	var payload meetingPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return meeting.Meeting{}, fmt.Errorf("%s: decode: %w", op, err)
	}
	if payload.ID == "" {
		return meeting.Meeting{}, ErrNoMeeting
	}
	return payload.toMeeting(c.location)
}

// UpdatePhase mirrors a phase change. The endpoint is idempotent.
func (c *Client) UpdatePhase(ctx context.Context, meetingID string, phase meeting.Phase) error {
	const op = "update meeting phase"
	path := "/meetings/" + url.PathEscape(meetingID) + "/phase"
	return c.expectOK(ctx, op, http.MethodPut, path, phasePayload{Phase: string(phase)})
}

// GenerateRoster asks the backend to materialise the roster for a meeting.
func (c *Client) GenerateRoster(ctx context.Context, meetingID string) error {
	return c.expectOK(ctx, "generate roster", http.MethodPost, "/attendance/generate", generatePayload{MeetingID: meetingID})
}

// Register records attendance for one member and returns the updated entry.
func (c *Client) Register(ctx context.Context, reg attendance.Registration) (attendance.Entry, error) {
	const op = "register attendance"
	resp, err := c.do(ctx, op, http.MethodPost, "/attendance/register", reg)
	if err != nil {
		return attendance.Entry{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return attendance.Entry{}, newAPIError(op, resp)
	}
	var payload entryPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return attendance.Entry{}, fmt.Errorf("%s: decode: %w", op, err)
	}
	if payload.MemberID == "" {
		payload.MemberID = flexID(reg.Identifier)
	}
	return payload.toEntry(), nil
}

// Roster fetches the full roster snapshot for a meeting.
func (c *Client) Roster(ctx context.Context, meetingID string) ([]attendance.Entry, error) {
	const op = "fetch roster"
	path := "/attendance/roster"
	if meetingID != "" {
		path += "?" + url.Values{"meeting_id": {meetingID}}.Encode()
	}
	resp, err := c.do(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, newAPIError(op, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	var entries []entryPayload
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped rosterPayload
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}
		entries = wrapped.Entries
	} else if len(trimmed) > 0 {
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}
	}

	out := make([]attendance.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.toEntry())
	}
	return out, nil
}

func (c *Client) expectOK(ctx context.Context, op, method, path string, body any) error {
	resp, err := c.do(ctx, op, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return newAPIError(op, resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body any) (*http.Response, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp, nil
}
