// Package client talks to a running GymRest server's gym master API over
// HTTP. It backs the gymctl CLI and the remote MCP mode.
package client

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

	"github.com/claude/gymrest/internal/engine"
	"github.com/claude/gymrest/internal/models"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// engineErrors are the sentinels whose text the server echoes back.
var engineErrors = []error{
	engine.ErrUnknownTimer,
	engine.ErrUnknownSession,
	engine.ErrSessionExists,
	engine.ErrForbidden,
	engine.ErrInvalidDuration,
	engine.ErrInvalidPatch,
	engine.ErrGymMasterDisabled,
}

// Is reports whether the server error carries target's message, so callers
// can match engine sentinels with errors.Is across the wire.
func (e *APIError) Is(target error) bool {
	for _, sentinel := range engineErrors {
		if target == sentinel {
			return e.Message == sentinel.Error()
		}
	}
	return false
}

// Client calls the GymRest REST API with operator credentials.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client targeting baseURL. apiKey is sent as X-API-Key
// when non-empty.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: marshal %s: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("client: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("client: decode %s: %w", path, err)
	}
	return nil
}

func userPath(userID, suffix string) string {
	return "/api/v1/gym/users/" + url.PathEscape(userID) + suffix
}

// Status returns the gym master status.
func (c *Client) Status(ctx context.Context) (engine.GymStatus, error) {
	var st engine.GymStatus
	err := c.do(ctx, http.MethodGet, "/api/v1/gym", nil, &st)
	return st, err
}

// SetMode toggles gym master mode. A non-nil gymSessionID also sets the
// current gym session; an empty string clears it.
func (c *Client) SetMode(ctx context.Context, enabled bool, gymSessionID *string) (engine.GymStatus, error) {
	body := map[string]any{"enabled": enabled}
	if gymSessionID != nil {
		body["current_gym_session_id"] = *gymSessionID
	}
	var st engine.GymStatus
	err := c.do(ctx, http.MethodPut, "/api/v1/gym", body, &st)
	return st, err
}

// ActiveSessions lists every user's active session.
func (c *Client) ActiveSessions(ctx context.Context) ([]models.WorkoutSession, error) {
	var out []models.WorkoutSession
	err := c.do(ctx, http.MethodGet, "/api/v1/gym/sessions", nil, &out)
	return out, err
}

// ActiveTimers lists every active rest timer.
func (c *Client) ActiveTimers(ctx context.Context) ([]models.RestTimer, error) {
	var out []models.RestTimer
	err := c.do(ctx, http.MethodGet, "/api/v1/gym/timers", nil, &out)
	return out, err
}

type endedTimer struct {
	ElapsedSeconds int `json:"elapsed_seconds"`
}

// StopUserTimer stops a user's rest timer and returns the seconds rested.
func (c *Client) StopUserTimer(ctx context.Context, userID string) (int, error) {
	var out endedTimer
	err := c.do(ctx, http.MethodPost, userPath(userID, "/timer/stop"), nil, &out)
	return out.ElapsedSeconds, err
}

// SkipUserTimer skips a user's rest timer and returns the seconds rested.
func (c *Client) SkipUserTimer(ctx context.Context, userID string) (int, error) {
	var out endedTimer
	err := c.do(ctx, http.MethodPost, userPath(userID, "/timer/skip"), nil, &out)
	return out.ElapsedSeconds, err
}

// ExtendUserTimer adds seconds to a user's rest timer target.
func (c *Client) ExtendUserTimer(ctx context.Context, userID string, seconds int) (models.RestTimer, error) {
	var out models.RestTimer
	err := c.do(ctx, http.MethodPost, userPath(userID, "/timer/extend"), map[string]int{"seconds": seconds}, &out)
	return out, err
}

// EndUserSession ends a user's workout session and returns its summary.
func (c *Client) EndUserSession(ctx context.Context, userID string) (models.SessionSummary, error) {
	var out models.SessionSummary
	err := c.do(ctx, http.MethodDelete, userPath(userID, "/session"), nil, &out)
	return out, err
}
