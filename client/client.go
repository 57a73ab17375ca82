// Package client talks to the eventreg REST API on behalf of the user held
// in a session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	model "github.com/jlynch25/eventreg/models"
)

// TokenSource supplies the bearer token, typically a *session.Store.
type TokenSource interface {
	Token() string
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Msg        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Msg)
}

// Client is an API client. The zero value is not usable; use New.
type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// RegisterResult is the body of a successful registration.
type RegisterResult struct {
	Msg              string   `json:"msg"`
	RegisteredEvents []string `json:"registeredEvents"`
}

// ListEvents fetches every event.
func (c *Client) ListEvents(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	err := c.do(ctx, http.MethodGet, "/api/events", nil, &events)
	return events, err
}

// Register signs the session user up for eventID.
func (c *Client) Register(ctx context.Context, eventID string) (*RegisterResult, error) {
	var res RegisterResult
	if err := c.do(ctx, http.MethodPost, "/api/events/register", map[string]string{"eventId": eventID}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// RegisteredEvents fetches the session user's events.
func (c *Client) RegisteredEvents(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	err := c.do(ctx, http.MethodGet, "/api/events/registered", nil, &events)
	return events, err
}

// Me fetches the session user's profile.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var failure struct {
			Msg string `json:"msg"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&failure); err == nil {
			apiErr.Msg = failure.Msg
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
