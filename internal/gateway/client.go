// Package gateway implements the HTTP client for the Web Hydra backends: the
// WAF API, the threat-intelligence API, and the patch-recommendation
// endpoint.
//
// # Degradation contract
//
// Every fetch method performs exactly one HTTP request and converts any
// failure (unreachable backend, non-2xx status, malformed body) into the
// typed empty value for that resource: nil for singular objects, an empty
// slice for collections, an empty map for maps. No background fetch ever
// returns an error to its caller; the model retains its previous state and
// the UI degrades to stale data instead of crashing. A malformed response is
// never partially applied.
//
// # Authentication
//
// When a bearer token is held it is attached to every WAF request. An HTTP
// 401 clears the held token (and the persisted copy, when a TokenStore is
// wired) before the empty value is returned, so the next login starts clean.
//
// # Timeouts
//
// Feed and health endpoints run under tighter per-call deadlines than
// regular fetches so a slow provider bounds UI latency instead of inheriting
// the general request budget.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/webhydra/console/internal/config"
	"github.com/webhydra/console/internal/model"
)

// TokenStore persists the cleared-token side effect of a 401 response.
type TokenStore interface {
	ClearAuthToken() error
}

// Option is a functional option for New that customises Client behaviour.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client, used by tests to
// point the gateway at an httptest server transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken seeds the bearer token, typically from a persisted session.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTokenStore wires the store that mirrors token clearing on 401.
func WithTokenStore(ts TokenStore) Option {
	return func(c *Client) { c.tokens = ts }
}

// Client is the remote data gateway. It is safe for concurrent use; the
// token is the only mutable field and is guarded.
type Client struct {
	wafBase  string
	tiBase   string
	patchURL string

	reqTimeout    time.Duration
	feedTimeout   time.Duration
	healthTimeout time.Duration

	http   *http.Client
	logger *slog.Logger
	tokens TokenStore

	mu    sync.Mutex
	token string
}

// New creates a Client from the console configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		wafBase:       cfg.WAFBaseURL,
		tiBase:        cfg.TIBaseURL,
		patchURL:      cfg.PatchURL,
		reqTimeout:    cfg.Timeouts.Request,
		feedTimeout:   cfg.Timeouts.Feed,
		healthTimeout: cfg.Timeouts.Health,
		http:          &http.Client{},
		logger:        logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the held bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the held bearer token, empty when none.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// clearToken drops the held token and mirrors the removal to the store.
func (c *Client) clearToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	if c.tokens != nil {
		_ = c.tokens.ClearAuthToken()
	}
}

// getJSON performs one authenticated GET against rawURL under timeout and
// decodes the body into out. It returns a non-nil error for any transport,
// status, or decode failure; out is untouched unless decoding succeeded in
// full.
func (c *Client) getJSON(ctx context.Context, rawURL string, timeout time.Duration, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("gateway: build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.clearToken()
		return fmt.Errorf("gateway: %s: unauthorized", rawURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway: %s: status %d", rawURL, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gateway: %s: decode: %w", rawURL, err)
	}
	return nil
}

// setHeaders attaches the JSON content type and, when held, the bearer token.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// warn logs a degraded fetch at warn level.
func (c *Client) warn(resource string, err error) {
	c.logger.Warn("gateway: fetch degraded",
		slog.String("resource", resource),
		slog.String("error", err.Error()),
	)
}

// ── WAF resources ────────────────────────────────────────────────────────────

// FetchKPIs returns the KPI snapshot, or nil on any failure.
func (c *Client) FetchKPIs(ctx context.Context) *model.KPISnapshot {
	var kpis model.KPISnapshot
	if err := c.getJSON(ctx, c.wafBase+"/kpis", c.reqTimeout, &kpis); err != nil {
		c.warn("kpis", err)
		return nil
	}
	return &kpis
}

// FetchAlerts returns up to limit recent alerts, or an empty slice on
// failure.
func (c *Client) FetchAlerts(ctx context.Context, limit int) []model.Alert {
	var body struct {
		Alerts []model.Alert `json:"alerts"`
	}
	u := fmt.Sprintf("%s/alerts?limit=%d", c.wafBase, limit)
	if err := c.getJSON(ctx, u, c.reqTimeout, &body); err != nil {
		c.warn("alerts", err)
		return []model.Alert{}
	}
	return body.Alerts
}

// FetchTraffic returns the traffic time series, or an empty slice on
// failure.
func (c *Client) FetchTraffic(ctx context.Context) []int {
	var body struct {
		TrafficData []int `json:"trafficData"`
	}
	if err := c.getJSON(ctx, c.wafBase+"/traffic", c.reqTimeout, &body); err != nil {
		c.warn("traffic", err)
		return []int{}
	}
	return body.TrafficData
}

// FetchOWASP returns the per-category attack counts, or an empty map on
// failure.
func (c *Client) FetchOWASP(ctx context.Context) map[string]int {
	counts := map[string]int{}
	if err := c.getJSON(ctx, c.wafBase+"/owasp", c.reqTimeout, &counts); err != nil {
		c.warn("owasp", err)
		return map[string]int{}
	}
	return counts
}

// FetchHeatmap returns the day×hour intensity grid, or an empty slice on
// failure.
func (c *Client) FetchHeatmap(ctx context.Context) [][]float64 {
	var body struct {
		Heatmap [][]float64 `json:"heatmap"`
	}
	if err := c.getJSON(ctx, c.wafBase+"/heatmap", c.reqTimeout, &body); err != nil {
		c.warn("heatmap", err)
		return [][]float64{}
	}
	return body.Heatmap
}

// FetchLogs returns a window of the request log, or an empty slice on
// failure.
func (c *Client) FetchLogs(ctx context.Context, limit, offset int) []model.LogEntry {
	var body struct {
		Logs []model.LogEntry `json:"logs"`
	}
	u := fmt.Sprintf("%s/logs?limit=%d&offset=%d", c.wafBase, limit, offset)
	if err := c.getJSON(ctx, u, c.reqTimeout, &body); err != nil {
		c.warn("logs", err)
		return []model.LogEntry{}
	}
	return body.Logs
}

// FetchSyslogs returns a window of the syslog stream, or an empty slice on
// failure.
func (c *Client) FetchSyslogs(ctx context.Context, limit, offset int) []model.LogEntry {
	var body struct {
		Logs []model.LogEntry `json:"logs"`
	}
	u := fmt.Sprintf("%s/syslog?limit=%d&offset=%d", c.wafBase, limit, offset)
	if err := c.getJSON(ctx, u, c.reqTimeout, &body); err != nil {
		c.warn("syslog", err)
		return []model.LogEntry{}
	}
	return body.Logs
}

// FetchRules returns the server's rule set, or an empty slice on failure.
func (c *Client) FetchRules(ctx context.Context) []model.Rule {
	var body struct {
		Rules []model.Rule `json:"rules"`
	}
	if err := c.getJSON(ctx, c.wafBase+"/rules", c.reqTimeout, &body); err != nil {
		c.warn("rules", err)
		return []model.Rule{}
	}
	return body.Rules
}

// ToggleRule flips a server-side rule and returns the updated rule, or nil
// on failure.
func (c *Client) ToggleRule(ctx context.Context, id int, enabled bool) *model.Rule {
	ctx, cancel := context.WithTimeout(ctx, c.reqTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/rules/%d?enabled=%t", c.wafBase, id, enabled)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, nil)
	if err != nil {
		c.warn("rules", err)
		return nil
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		c.warn("rules", err)
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		c.clearToken()
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.warn("rules", fmt.Errorf("gateway: toggle rule %d: status %d", id, resp.StatusCode))
		return nil
	}
	var body struct {
		Rule *model.Rule `json:"rule"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.warn("rules", err)
		return nil
	}
	return body.Rule
}

// FetchSettings returns the backend settings, or nil on failure.
func (c *Client) FetchSettings(ctx context.Context) *model.Settings {
	var s model.Settings
	if err := c.getJSON(ctx, c.wafBase+"/settings", c.reqTimeout, &s); err != nil {
		c.warn("settings", err)
		return nil
	}
	return &s
}

// UpdateSettings pushes new backend settings and returns the saved result,
// or nil on failure. Unlike background fetches this is a user-initiated
// action, so callers surface the nil as an inline failure message.
func (c *Client) UpdateSettings(ctx context.Context, s model.Settings) *model.Settings {
	body, err := json.Marshal(s)
	if err != nil {
		c.warn("settings", err)
		return nil
	}
	saved := new(model.Settings)
	if err := c.doJSON(ctx, http.MethodPut, c.wafBase+"/settings", body, c.reqTimeout, saved); err != nil {
		c.warn("settings", err)
		return nil
	}
	return saved
}

// TriggerTraining asks the backend to start a server-side training run.
func (c *Client) TriggerTraining(ctx context.Context) bool {
	var body struct {
		Started bool `json:"started"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.wafBase+"/train", nil, c.reqTimeout, &body); err != nil {
		c.warn("train", err)
		return false
	}
	return body.Started
}

// FetchTrainingStatus returns the backend's training status, or nil on
// failure.
func (c *Client) FetchTrainingStatus(ctx context.Context) *model.TrainingState {
	var st model.TrainingState
	if err := c.getJSON(ctx, c.wafBase+"/train/status", c.reqTimeout, &st); err != nil {
		c.warn("train", err)
		return nil
	}
	return &st
}

// doJSON issues method with an optional JSON body and decodes the response
// into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, rawURL string, body []byte, timeout time.Duration, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return fmt.Errorf("gateway: build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway: %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		c.clearToken()
		return fmt.Errorf("gateway: %s: unauthorized", rawURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway: %s: status %d", rawURL, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gateway: %s: decode: %w", rawURL, err)
	}
	return nil
}

// ── login ────────────────────────────────────────────────────────────────────

// loginResponse is the wire shape of POST /login.
type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
	User    struct {
		Username string `json:"username"`
		Role     string `json:"role"`
	} `json:"user"`
}

// Login authenticates against the WAF backend. The boolean result is false
// only when the backend could not be reached at all, letting the auth model
// fall back to local accounts; a definitive rejection reports reachable with
// Success=false.
func (c *Client) Login(ctx context.Context, username, password string) (model.LoginResult, bool) {
	payload, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return model.LoginResult{Message: "Network error during login"}, false
	}

	ctx, cancel := context.WithTimeout(ctx, c.reqTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.wafBase+"/login", bytes.NewReader(payload))
	if err != nil {
		return model.LoginResult{Message: "Network error during login"}, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.warn("login", err)
		return model.LoginResult{Message: "Network error during login"}, false
	}
	defer resp.Body.Close()

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.warn("login", err)
		return model.LoginResult{Message: "Network error during login"}, false
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !body.Success {
		msg := body.Message
		if msg == "" {
			msg = "Login failed"
		}
		return model.LoginResult{Success: false, Message: msg}, true
	}

	c.SetToken(body.Token)
	return model.LoginResult{
		Success:  true,
		Username: body.User.Username,
		Role:     model.Role(body.User.Role),
		Token:    body.Token,
	}, true
}

// ── health ───────────────────────────────────────────────────────────────────

// CheckWAFHealth probes the WAF backend under the tight health deadline.
func (c *Client) CheckWAFHealth(ctx context.Context) model.HealthStatus {
	return c.probe(ctx, c.wafBase+"/health")
}

// CheckTIHealth probes the TI backend. Any response, even an error status,
// means the server is reachable.
func (c *Client) CheckTIHealth(ctx context.Context) model.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	u := c.tiBase + "/virustotal?" + url.Values{"type": {"ip"}, "value": {"test"}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return model.HealthStatus{Online: false, Err: err.Error()}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return model.HealthStatus{Online: false, Err: err.Error()}
	}
	resp.Body.Close()
	return model.HealthStatus{Online: true}
}

// CheckAllHealth probes both backends concurrently.
func (c *Client) CheckAllHealth(ctx context.Context) model.HealthReport {
	var (
		report model.HealthReport
		wg     sync.WaitGroup
	)
	wg.Add(2)
	go func() { defer wg.Done(); report.WAF = c.CheckWAFHealth(ctx) }()
	go func() { defer wg.Done(); report.TI = c.CheckTIHealth(ctx) }()
	wg.Wait()
	return report
}

// probe issues a GET and reports Online only for a 2xx response.
func (c *Client) probe(ctx context.Context, rawURL string) model.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return model.HealthStatus{Online: false, Err: err.Error()}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return model.HealthStatus{Online: false, Err: err.Error()}
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return model.HealthStatus{Online: false, Err: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	return model.HealthStatus{Online: true}
}
