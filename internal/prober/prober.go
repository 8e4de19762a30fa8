// Package prober implements the Odoo liveness probe. A probe keeps a session
// cookie on disk, checks it against the login endpoint and re-initializes it
// through the database selector when the session is rejected or no database
// has been provisioned yet.
//
// One call to CheckHealth is one invocation: there is no retry inside it. The
// container scheduler calls it again on its next interval.
package prober

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dandantas/odoo-probe/internal/model"
)

// Odoo endpoints and cookie
const (
	LoginPath         = "/web/login"
	SelectorPath      = "/web/database/selector"
	SessionCookieName = "session_id"
)

// maxDrainBytes bounds how much of a response body is read before closing
const maxDrainBytes = 64 * 1024

// HTTPDoer is the subset of *http.Client used by the prober
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenStore persists the session token
type TokenStore interface {
	Load() (string, bool, error)
	Save(token string) error
}

// RestoreLock reports whether a data restore is running
type RestoreLock interface {
	Active() bool
}

// Prober runs the liveness state machine against one Odoo instance
type Prober struct {
	baseURL string
	client  HTTPDoer
	tokens  TokenStore
	lock    RestoreLock
}

// New creates a prober for baseURL
func New(baseURL string, client HTTPDoer, tokens TokenStore, lock RestoreLock) (*Prober, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("base URL must start with http:// or https://")
	}
	if parsed.Host == "" {
		return nil, errors.New("base URL must include a host")
	}
	if client == nil {
		return nil, errors.New("http client is required")
	}
	if tokens == nil {
		return nil, errors.New("token store is required")
	}

	return &Prober{
		baseURL: strings.TrimRight(parsed.String(), "/"),
		client:  client,
		tokens:  tokens,
		lock:    lock,
	}, nil
}

// BaseURL returns the probed base URL
func (p *Prober) BaseURL() string {
	return p.baseURL
}

// Report is the terminal outcome of one invocation
type Report struct {
	Result        model.ProbeResult
	States        []model.ProbeState
	StatusCode    int
	SentToken     string
	ReceivedToken string
	TokenSaved    bool
	RestoreLocked bool
	Err           error
}

// Healthy reports whether the invocation ended healthy
func (r Report) Healthy() bool {
	return r.Result == model.ResultHealthy
}

// Classify maps a login-probe response to a probe result.
// Only a redirect to the database selector needs re-initialization among 3xx.
func Classify(statusCode int, location string) model.ProbeResult {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return model.ResultHealthy
	case statusCode >= 300 && statusCode < 400:
		if redirectsToSelector(location) {
			return model.ResultNeedsReinit
		}
		return model.ResultHealthy
	case statusCode >= 400 && statusCode < 500:
		return model.ResultNeedsReinit
	default:
		return model.ResultUnhealthy
	}
}

// redirectsToSelector matches on the Location path only, so a login page
// carrying the selector in its redirect parameter does not count.
func redirectsToSelector(location string) bool {
	u, err := url.Parse(location)
	return err == nil && strings.HasPrefix(u.Path, SelectorPath)
}

// CheckHealth runs a full invocation starting from the restore-lock check
func (p *Prober) CheckHealth(ctx context.Context) Report {
	r := &run{prober: p, ctx: ctx}
	r.execute(model.StateStart)
	return r.report
}

// InitializeSession obtains a fresh session from the database selector,
// sending hintToken as the session cookie when it is not empty.
func (p *Prober) InitializeSession(ctx context.Context, hintToken string) Report {
	r := &run{prober: p, ctx: ctx, hint: hintToken}
	r.execute(model.StateInitSession)
	return r.report
}

// run carries the state of a single invocation
type run struct {
	prober *Prober
	ctx    context.Context
	token  string
	hint   string
	report Report
}

func (r *run) execute(state model.ProbeState) {
	for state != model.StateDone {
		r.report.States = append(r.report.States, state)
		switch state {
		case model.StateStart:
			state = r.start()
		case model.StateProbeLogin:
			state = r.probeLogin()
		case model.StateInitSession:
			state = r.initSession()
		default:
			state = r.fail(&ProbeError{
				Kind: KindUnexpectedResponse,
				Err:  fmt.Errorf("unknown probe state %q", state),
			})
		}
	}
	r.report.States = append(r.report.States, model.StateDone)
}

func (r *run) start() model.ProbeState {
	if r.prober.lock != nil && r.prober.lock.Active() {
		slog.Info("Restore in progress, reporting healthy")
		r.report.RestoreLocked = true
		r.report.Result = model.ResultHealthy
		return model.StateDone
	}

	token, ok, err := r.prober.tokens.Load()
	if err != nil {
		slog.Warn("Failed to load session token, initializing a new session", "error", err)
		return model.StateInitSession
	}
	if !ok {
		slog.Debug("No session token persisted")
		return model.StateInitSession
	}

	r.token = token
	return model.StateProbeLogin
}

func (r *run) probeLogin() model.ProbeState {
	r.report.SentToken = r.token

	resp, err := r.do(http.MethodHead, LoginPath, r.token)
	if err != nil {
		return r.fail(&ProbeError{Kind: KindNetworkUnreachable, PriorCookie: r.token, Err: err})
	}
	defer drain(resp)

	r.report.StatusCode = resp.StatusCode
	location := resp.Header.Get("Location")

	slog.Debug("Login probe response",
		"status_code", resp.StatusCode,
		"location", location,
	)

	switch Classify(resp.StatusCode, location) {
	case model.ResultHealthy:
		if resp.StatusCode < 300 {
			r.rotate(sessionCookie(resp))
		}
		r.report.Result = model.ResultHealthy
		return model.StateDone
	case model.ResultNeedsReinit:
		slog.Info("Session rejected, re-initializing",
			"status_code", resp.StatusCode,
			"location", location,
		)
		r.hint = r.token
		return model.StateInitSession
	}

	kind := KindUnexpectedResponse
	if resp.StatusCode >= 500 {
		kind = KindServerError
	}
	return r.fail(&ProbeError{
		Kind:        kind,
		StatusCode:  resp.StatusCode,
		PriorCookie: r.token,
		Headers:     resp.Header.Clone(),
	})
}

func (r *run) initSession() model.ProbeState {
	if r.report.SentToken == "" {
		r.report.SentToken = r.hint
	}

	resp, err := r.do(http.MethodGet, SelectorPath, r.hint)
	if err != nil {
		return r.fail(&ProbeError{Kind: KindNetworkUnreachable, PriorCookie: r.hint, Err: err})
	}
	defer drain(resp)

	r.report.StatusCode = resp.StatusCode

	token := sessionCookie(resp)
	if token == "" {
		return r.fail(&ProbeError{
			Kind:        KindSessionCookieMissing,
			PriorCookie: r.hint,
			Headers:     resp.Header.Clone(),
		})
	}

	if err := r.prober.tokens.Save(token); err != nil {
		return r.fail(&ProbeError{Kind: KindUnexpectedResponse, PriorCookie: r.hint, Err: err})
	}

	slog.Info("Session initialized", "status_code", resp.StatusCode)

	r.report.ReceivedToken = token
	r.report.TokenSaved = true
	r.report.Result = model.ResultHealthy
	return model.StateDone
}

// rotate persists a new token returned on a successful login probe.
// A write failure does not change the health result.
func (r *run) rotate(token string) {
	if token == "" || token == r.token {
		return
	}
	r.report.ReceivedToken = token
	if err := r.prober.tokens.Save(token); err != nil {
		slog.Error("Failed to persist rotated session token", "error", err)
		return
	}
	r.report.TokenSaved = true
	slog.Info("Session token rotated")
}

func (r *run) fail(err *ProbeError) model.ProbeState {
	r.report.Result = model.ResultUnhealthy
	r.report.Err = err

	attrs := []any{"error_kind", string(err.Kind)}
	if err.StatusCode != 0 {
		attrs = append(attrs, "status_code", err.StatusCode)
	}
	if err.Kind == KindServerError {
		attrs = append(attrs, "session_cookie", err.PriorCookie, "headers", formatHeaders(err.Headers))
	}
	if err.Err != nil {
		attrs = append(attrs, "error", err.Err.Error())
	}
	slog.Error(err.sentinel().Error(), attrs...)

	return model.StateDone
}

func (r *run) do(method, path, token string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(r.ctx, method, r.prober.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	}
	return r.prober.client.Do(req)
}

// sessionCookie returns the non-empty session cookie set by resp, if any
func sessionCookie(resp *http.Response) string {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == SessionCookieName && cookie.Value != "" {
			return cookie.Value
		}
	}
	return ""
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	resp.Body.Close()
}

// formatHeaders renders headers as sorted "Name: value" lines
func formatHeaders(h http.Header) string {
	if len(h) == 0 {
		return ""
	}
	var b strings.Builder
	if err := h.Write(&b); err != nil {
		return ""
	}
	return strings.TrimSpace(b.String())
}
