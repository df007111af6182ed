// Package gateway talks to the catalog's PHP HTTP API: it lists orderable
// records and pushes re-ranked positions back.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cateradmin/api/internal/auth"
	"github.com/cateradmin/api/internal/config"
	"github.com/cateradmin/api/internal/rank"
)

const (
	maxResponseBytes = 10 << 20
	tokenTTL         = 5 * time.Minute
)

// Errors returned by the gateway.
var (
	ErrList    = errors.New("list catalog failed")
	ErrPersist = errors.New("persist positions failed")
)

// PersistError reports a rejected or failed persist call. The working set is
// untouched by a failed persist, so the caller may retry.
type PersistError struct {
	Status  int
	Message string
	Err     error
}

func (e *PersistError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", ErrPersist, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%v: status %d: %s", ErrPersist, e.Status, e.Message)
	default:
		return fmt.Sprintf("%v: %s", ErrPersist, e.Message)
	}
}

func (e *PersistError) Unwrap() error { return e.Err }

func (e *PersistError) Is(target error) bool { return target == ErrPersist }

// envelope is the {success, message, data} shape most catalog endpoints use.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Client is an HTTP client for the catalog API.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
}

// NewClient creates a Client. An empty secret sends no Authorization header.
func NewClient(baseURL, secret string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		http:    &http.Client{Timeout: timeout},
	}
}

// List fetches every record of the scheme's catalog as rank items.
func (c *Client) List(ctx context.Context, scheme config.Scheme) ([]rank.Item, error) {
	req, err := c.newRequest(ctx, http.MethodGet, scheme, scheme.ListPath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrList, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrList, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrList, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrList, resp.StatusCode, messageOf(body))
	}

	raw, err := unwrapList(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrList, err)
	}

	items := make([]rank.Item, 0, len(raw))
	for i, r := range raw {
		it, err := decodeRecord(scheme, r)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrList, i, err)
		}
		items = append(items, it)
	}
	return items, nil
}

// Persist posts the full working set as a JSON array of
// {id, position, <scheme fields>} records. Either the whole set is accepted
// or a *PersistError is returned.
func (c *Client) Persist(ctx context.Context, scheme config.Scheme, items []rank.Item) error {
	payload, err := json.Marshal(encodeRecords(scheme, items))
	if err != nil {
		return &PersistError{Err: err}
	}

	req, err := c.newRequest(ctx, http.MethodPost, scheme, scheme.PersistPath, bytes.NewReader(payload))
	if err != nil {
		return &PersistError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &PersistError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &PersistError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &PersistError{Status: resp.StatusCode, Message: messageOf(body)}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		// Some endpoints answer with plain text on success.
		return nil
	}
	if env.Success != nil && !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = "rejected by server"
		}
		return &PersistError{Status: resp.StatusCode, Message: msg}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method string, scheme config.Scheme, path string, body io.Reader) (*http.Request, error) {
	if path == "" {
		return nil, fmt.Errorf("scheme %q has no %s path", scheme.Name, strings.ToLower(method))
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	if c.secret != "" {
		sessionID, _ := auth.SessionIDFromContext(ctx)
		token, err := auth.GenerateToken(c.secret, sessionID, scheme.Name, tokenTTL)
		if err != nil {
			return nil, fmt.Errorf("sign token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// unwrapList accepts either an envelope or a bare JSON array.
func unwrapList(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.New("empty response")
	}

	var list []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return list, nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Success != nil && !*env.Success {
		return nil, fmt.Errorf("rejected by server: %s", env.Message)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, nil
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	return list, nil
}

// messageOf pulls a human-readable message out of an error body.
func messageOf(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return env.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
