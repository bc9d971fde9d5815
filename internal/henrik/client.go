// Package henrik talks to the remote match statistics API.
package henrik

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/valstats/matchcache/internal/models"
)

const (
	DefaultBaseURL   = "https://api.henrikdev.xyz/valorant"
	DefaultUserAgent = "matchcache/0.1 (+https://github.com/valstats/matchcache)"

	maxBodyBytes  = 32 << 20
	maxErrorBytes = 512
)

// Config configures a Client
type Config struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client holds the transport shared by every Session.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	logger    *zap.SugaredLogger
}

// NewClient creates a client. Zero fields take defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		http:      cfg.HTTPClient,
		logger:    cfg.Logger.Sugar(),
	}
}

// Session binds a caller credential and an optional rate gate to the client.
// Every call made through one Session shares the gate.
type Session struct {
	c    *Client
	auth string
	gate *RateGate
}

// Session returns a Session sending auth verbatim as the Authorization header.
func (c *Client) Session(auth string, gate *RateGate) *Session {
	return &Session{c: c, auth: auth, gate: gate}
}

// ListQuery selects a page of a player's match list.
type ListQuery struct {
	Region   string
	Platform string
	Name     string
	Tag      string
	Mode     string
	Size     int
	Start    int
}

// ListMatches returns the summaries of a player's recent matches.
func (s *Session) ListMatches(ctx context.Context, q ListQuery) ([]models.MatchSummary, error) {
	if err := models.ValidateRegion(q.Region); err != nil {
		return nil, err
	}
	if err := models.ValidatePlatform(q.Platform); err != nil {
		return nil, err
	}
	if q.Mode == "" {
		q.Mode = models.ModeCustom
	}

	path := fmt.Sprintf("/v4/matches/%s/%s/%s/%s",
		q.Region, q.Platform, url.PathEscape(q.Name), url.PathEscape(q.Tag))
	query := url.Values{}
	query.Set("mode", q.Mode)
	query.Set("size", strconv.Itoa(q.Size))
	query.Set("start", strconv.Itoa(q.Start))

	doc, err := s.get(ctx, "matches", path, query)
	if err != nil {
		return nil, err
	}
	if _, ok := doc["data"].([]any); !ok {
		return nil, &models.RemoteError{Op: "matches", Err: fmt.Errorf("unexpected response: 'data' is not an array")}
	}
	return models.ParseSummaries(doc), nil
}

// MatchDetail returns the full payload of one match.
func (s *Session) MatchDetail(ctx context.Context, region, matchID string) (models.Document, error) {
	return s.get(ctx, "match", fmt.Sprintf("/v4/match/%s/%s", region, url.PathEscape(matchID)), nil)
}

// Rank returns the tier name of a player.
func (s *Session) Rank(ctx context.Context, region, platform, puuid string) (string, error) {
	doc, err := s.get(ctx, "mmr", fmt.Sprintf("/v3/by-puuid/mmr/%s/%s/%s", region, platform, url.PathEscape(puuid)), nil)
	if err != nil {
		return "", err
	}
	tier, ok := models.RankTier(doc)
	if !ok {
		return "", &models.RemoteError{Op: "mmr", Err: fmt.Errorf("no tier in response")}
	}
	return tier, nil
}

// Account resolves a riot id to a puuid.
func (s *Session) Account(ctx context.Context, name, tag string) (string, error) {
	doc, err := s.get(ctx, "account", fmt.Sprintf("/v1/account/%s/%s", url.PathEscape(name), url.PathEscape(tag)), nil)
	if err != nil {
		return "", err
	}
	puuid, ok := models.AccountPUUID(doc)
	if !ok {
		return "", &models.RemoteError{Op: "account", Err: fmt.Errorf("no puuid in response")}
	}
	return puuid, nil
}

func (s *Session) get(ctx context.Context, op, path string, query url.Values) (models.Document, error) {
	endpoint := s.c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var doc models.Document
	err := s.gate.Do(ctx, func() error {
		var err error
		doc, err = s.do(ctx, op, endpoint)
		return err
	})
	return doc, err
}

func (s *Session) do(ctx context.Context, op, endpoint string) (models.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &models.RemoteError{Op: op, Err: err}
	}
	if s.auth != "" {
		req.Header.Set("Authorization", s.auth)
	}
	req.Header.Set("User-Agent", s.c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.c.http.Do(req)
	remoteDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		remoteRequests.WithLabelValues(op, "error").Inc()
		return nil, &models.RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	remoteRequests.WithLabelValues(op, statusClass(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		s.c.logger.Debugw("Remote request failed", "op", op, "status", resp.StatusCode)
		return nil, &models.RemoteError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &models.RemoteError{Op: op, Err: fmt.Errorf("reading body: %w", err)}
	}
	doc, err := models.DecodeDocument(body)
	if err != nil {
		return nil, &models.RemoteError{Op: op, Err: err}
	}
	return doc, nil
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
