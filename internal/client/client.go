// Package client talks to the record service over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/verte-zerg/tuimeteor/internal/model"
	"github.com/verte-zerg/tuimeteor/internal/player"
	"github.com/verte-zerg/tuimeteor/internal/records"
	"github.com/verte-zerg/tuimeteor/internal/server"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 5 * time.Second

// Client implements records.Gateway and records.Admin against a server.
type Client struct {
	base *url.URL
	http *http.Client
}

// New returns a client for the service at baseURL.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{base: u, http: &http.Client{Timeout: timeout}}, nil
}

// UpsertPlayer creates or renames a player.
func (c *Client) UpsertPlayer(ctx context.Context, id, name string) (model.Player, error) {
	if err := player.ValidateID(id); err != nil {
		return model.Player{}, fmt.Errorf("%w: %w", records.ErrValidation, err)
	}
	var p model.Player
	err := c.do(ctx, http.MethodPost, "/api/players", nil, server.PlayerRequest{ID: id, Name: name}, "", &p)
	return p, err
}

// RaiseBestScore submits a best-score candidate.
func (c *Client) RaiseBestScore(ctx context.Context, id string, score int) (model.Player, error) {
	if err := player.ValidateID(id); err != nil {
		return model.Player{}, fmt.Errorf("%w: %w", records.ErrValidation, err)
	}
	var p model.Player
	err := c.do(ctx, http.MethodPost, "/api/players/"+id+"/best", nil, server.BestRequest{Score: score}, "", &p)
	return p, err
}

// GetPlayer fetches one player.
func (c *Client) GetPlayer(ctx context.Context, id string) (model.Player, error) {
	if err := player.ValidateID(id); err != nil {
		return model.Player{}, fmt.Errorf("%w: %w", records.ErrValidation, err)
	}
	var p model.Player
	err := c.do(ctx, http.MethodGet, "/api/players/"+id, nil, nil, "", &p)
	return p, err
}

// Leaderboard fetches the ranked players, optionally for one group.
func (c *Client) Leaderboard(ctx context.Context, limit int, group string) ([]model.Player, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if group != "" {
		q.Set("group", group)
	}
	var players []model.Player
	err := c.do(ctx, http.MethodGet, "/api/leaderboard", q, nil, "", &players)
	return players, err
}

// Groups fetches per-group aggregates.
func (c *Client) Groups(ctx context.Context) ([]model.GroupSummary, error) {
	var groups []model.GroupSummary
	err := c.do(ctx, http.MethodGet, "/api/groups", nil, nil, "", &groups)
	return groups, err
}

// RecordRound uploads a finished round.
func (c *Client) RecordRound(ctx context.Context, r model.RoundRecord) error {
	return c.do(ctx, http.MethodPost, "/api/rounds", nil, r, "", nil)
}

// ListRounds fetches a player's latest rounds.
func (c *Client) ListRounds(ctx context.Context, id string, limit int) ([]model.RoundRecord, error) {
	if err := player.ValidateID(id); err != nil {
		return nil, fmt.Errorf("%w: %w", records.ErrValidation, err)
	}
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var rounds []model.RoundRecord
	err := c.do(ctx, http.MethodGet, "/api/players/"+id+"/rounds", q, nil, "", &rounds)
	return rounds, err
}

// ClearGroup resets or deletes a group.
func (c *Client) ClearGroup(ctx context.Context, token, group string, mode model.ClearMode) (int64, error) {
	var resp server.ClearResponse
	err := c.do(ctx, http.MethodPost, "/api/admin/clear-group", nil,
		server.ClearRequest{Group: group, Mode: string(mode)}, token, &resp)
	return resp.Affected, err
}

// ClearAll resets or deletes every player.
func (c *Client) ClearAll(ctx context.Context, token string, mode model.ClearMode) (int64, error) {
	var resp server.ClearResponse
	err := c.do(ctx, http.MethodPost, "/api/admin/clear-all", nil,
		server.ClearRequest{Mode: string(mode)}, token, &resp)
	return resp.Affected, err
}

// Watch streams live events to fn until ctx is done or the connection drops.
func (c *Client) Watch(ctx context.Context, fn func(model.LiveEvent)) error {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path += "/api/live"
	header := http.Header{}
	header.Set(server.RequestIDHeader, uuid.NewString())
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("%w: failed to open live feed: %w", records.ErrUnavailable, err)
	}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
			_ = conn.Close()
		}
	}()
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("%w: live feed closed: %w", records.ErrUnavailable, err)
		}
		var ev model.LiveEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			continue
		}
		fn(ev)
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, token string, out any) error {
	u := *c.base
	u.Path += path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(server.RequestIDHeader, uuid.NewString())
	if token != "" {
		req.Header.Set(server.AdminTokenHeader, token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", records.ErrUnavailable, method, path, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()

	var env server.Envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&env); err != nil {
		return fmt.Errorf("%w: %s %s: status %d: undecodable response", records.ErrUnavailable, method, path, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK || !env.OK {
		return statusError(resp.StatusCode, env)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

func statusError(status int, env server.Envelope) error {
	msg := env.Message
	if msg == "" {
		msg = env.Error
	}
	var sentinel error
	switch status {
	case http.StatusBadRequest:
		sentinel = records.ErrValidation
	case http.StatusUnauthorized:
		sentinel = records.ErrUnauthorized
	case http.StatusForbidden:
		sentinel = records.ErrAdminDisabled
	default:
		sentinel = records.ErrUnavailable
	}
	msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
	if msg == "" || msg == sentinel.Error() {
		return fmt.Errorf("%w: status %d", sentinel, status)
	}
	return fmt.Errorf("%w: %s", sentinel, msg)
}
