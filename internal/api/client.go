package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"weekly-trivia/internal/domain"
	"weekly-trivia/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Client talks to the trivia backend. Every call except the leaderboard
// carries the session cookies; a 401 from any call maps to
// domain.ErrUnauthorized.
type Client struct {
	base    *url.URL
	http    *http.Client
	anon    *http.Client
	jar     *persistentJar
	store   CredentialStore
	profile string
	timeout time.Duration
	metrics *metrics.Metrics
	log     zerolog.Logger
}

type Option func(*Client)

// WithCredentialStore persists session cookies under profile.
func WithCredentialStore(store CredentialStore, profile string) Option {
	return func(c *Client) {
		c.store = store
		c.profile = profile
	}
}

// WithTimeout bounds each request. Zero means no client-side deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	c := &Client{base: base, profile: "default", log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	c.jar = newPersistentJar(base, c.store, c.profile, c.log)
	c.http = &http.Client{Jar: c.jar, Timeout: c.timeout}
	c.anon = &http.Client{Timeout: c.timeout}
	return c, nil
}

// Restore loads persisted cookies; it reports whether any were found.
func (c *Client) Restore(ctx context.Context) (bool, error) {
	return c.jar.restore(ctx)
}

// ForgetSession drops local cookies and the persisted copy.
func (c *Client) ForgetSession(ctx context.Context) error {
	return c.jar.reset(ctx)
}

func (c *Client) CheckAuth(ctx context.Context) (domain.AuthStatus, error) {
	var status domain.AuthStatus
	err := c.do(ctx, c.http, "auth_check", http.MethodGet, "/auth/check", nil, &status)
	return status, err
}

// Login authenticates or registers the account. The backend reports a wrong
// PIN with success=false rather than a status code.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.AuthStatus, error) {
	var reply authReply
	if err := c.do(ctx, c.http, "auth", http.MethodPost, "/auth", creds, &reply); err != nil {
		return domain.AuthStatus{}, err
	}
	if !reply.Success {
		if reply.Message == "" {
			return domain.AuthStatus{}, domain.ErrInvalidCredentials
		}
		return domain.AuthStatus{}, fmt.Errorf("%w: %s", domain.ErrInvalidCredentials, reply.Message)
	}
	return domain.AuthStatus{Authenticated: true, Username: reply.Username}, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, c.http, "logout", http.MethodPost, "/logout", nil, nil)
}

// Leaderboard is fetched anonymously.
func (c *Client) Leaderboard(ctx context.Context, window string, limit int) ([]domain.LeaderboardEntry, error) {
	q := url.Values{}
	q.Set("window", window)
	q.Set("limit", strconv.Itoa(limit))
	entries := []domain.LeaderboardEntry{}
	err := c.do(ctx, c.anon, "leaderboard", http.MethodGet, "/leaderboard?"+q.Encode(), nil, &entries)
	return entries, err
}

func (c *Client) UserStats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	err := c.do(ctx, c.http, "user_stats", http.MethodGet, "/user/stats", nil, &stats)
	return stats, err
}

func (c *Client) GuestStats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	err := c.do(ctx, c.http, "guest_stats", http.MethodGet, "/guest/stats", nil, &stats)
	return stats, err
}

func (c *Client) SetGuestName(ctx context.Context, name string) error {
	return c.do(ctx, c.http, "guest_name", http.MethodPost, "/guest/name", guestNameRequest{DisplayName: name}, nil)
}

func (c *Client) StartRound(ctx context.Context) (domain.Round, error) {
	var payload roundPayload
	if err := c.do(ctx, c.http, "round_start", http.MethodPost, "/trivia/round/start", struct{}{}, &payload); err != nil {
		return domain.Round{}, err
	}
	return payload.toRound()
}

func (c *Client) SubmitRound(ctx context.Context, sub domain.Submission) (domain.Outcome, error) {
	if (sub.SelectedIndex == nil) == (sub.TextAnswer == nil) {
		return domain.Outcome{}, errors.New("submission needs exactly one of selected_index and text_answer")
	}
	var payload submitPayload
	if err := c.do(ctx, c.http, "round_submit", http.MethodPost, "/trivia/round/submit", sub, &payload); err != nil {
		return domain.Outcome{}, err
	}
	return payload.toOutcome(), nil
}

func (c *Client) FinalizeRound(ctx context.Context, qid string) (domain.Result, error) {
	var payload submitPayload
	if err := c.do(ctx, c.http, "round_finalize", http.MethodPost, "/trivia/round/finalize", finalizeRequest{QID: qid}, &payload); err != nil {
		return domain.Result{}, err
	}
	return payload.toResult(), nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	started := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(op, 0, started)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	c.metrics.ObserveRequest(op, resp.StatusCode, started)
	c.log.Debug().
		Str("op", op).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("dur", time.Since(started)).
		Msg("api")

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w", op, domain.ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.RequestError{Op: op, Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode reply: %w", op, err)
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var reply errorReply
	if err := json.Unmarshal(data, &reply); err == nil {
		if reply.Detail != "" {
			return reply.Detail
		}
		if reply.Message != "" {
			return reply.Message
		}
	}
	return strings.TrimSpace(string(data))
}
