package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/apierr"
	"github.com/Frbastoseng/bdgd-aneel-sub001/pkg/logger"
	"github.com/Frbastoseng/bdgd-aneel-sub001/pkg/metrics"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// DefaultRefreshTimeout bounds a refresh call so queued requests are always released.
const DefaultRefreshTimeout = 30 * time.Second

// CredentialSource is the gateway's view of the credential store.
type CredentialSource interface {
	AccessCredential() string
	RefreshCredential() string
	// SetCredentials replaces both credentials atomically.
	SetCredentials(ctx context.Context, access, refresh string) error
	// Clear empties the session and reports whether it held anything.
	Clear(ctx context.Context) bool
}

// Navigator is implemented by the hosting application to turn a session expiry
// into a navigation to its login surface.
type Navigator interface {
	AtLoginSurface() bool
	RedirectToLogin()
}

// SessionExpired describes a terminal authorization failure that cleared a live session.
type SessionExpired struct {
	Reason string
	At     time.Time
}

// Options configures a Gateway.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	RefreshTimeout time.Duration
	// Limiter throttles outbound requests (resends and refresh calls included). Optional.
	Limiter          *rate.Limiter
	Navigator        Navigator
	OnSessionExpired func(SessionExpired)
}

// Gateway sends API requests with the current access credential and recovers
// transparently, at most once per request, from access-credential expiry.
type Gateway struct {
	baseURL        string
	client         *http.Client
	refreshTimeout time.Duration
	limiter        *rate.Limiter
	nav            Navigator
	onExpired      func(SessionExpired)

	creds CredentialSource
	coord *RefreshCoordinator
}

func New(opts Options, creds CredentialSource) (*Gateway, error) {
	if creds == nil {
		return nil, errors.New("gateway: credential source is required")
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		return nil, errors.New("gateway: base URL is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	rt := opts.RefreshTimeout
	if rt <= 0 {
		rt = DefaultRefreshTimeout
	}
	return &Gateway{
		baseURL:        base,
		client:         hc,
		refreshTimeout: rt,
		limiter:        opts.Limiter,
		nav:            opts.Navigator,
		onExpired:      opts.OnSessionExpired,
		creds:          creds,
		coord:          NewRefreshCoordinator(),
	}, nil
}

// Coordinator exposes the refresh coordinator (read-only use: Refreshing/Waiting).
func (g *Gateway) Coordinator() *RefreshCoordinator { return g.coord }

// Send executes req. Non-2xx answers return both the response and a classified
// *apierr.StatusError; transport failures return a nil response and an error wrapping
// apierr.ErrServer. Transport and server errors are never retried here.
func (g *Gateway) Send(ctx context.Context, req *Request) (*Response, error) {
	sentWith := g.creds.AccessCredential()
	resp, err := g.do(ctx, req, sentWith)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, g.result(resp)
	}
	if IsExempt(req.Path) {
		// the credential used for this auth operation is itself invalid
		g.creds.Clear(ctx)
		return resp, g.result(resp)
	}

	access, err := g.renew(ctx, sentWith)
	if err != nil {
		return resp, err
	}

	// single resend; a second 401 goes back to the caller as-is
	metrics.Retries.Inc()
	resp, err = g.do(ctx, req, access)
	if err != nil {
		return nil, err
	}
	return resp, g.result(resp)
}

// renew obtains a credential to resend with, joining or leading a refresh.
func (g *Gateway) renew(ctx context.Context, sentWith string) (string, error) {
	t := g.coord.AcquireOrWait(sentWith, g.creds.AccessCredential)
	switch {
	case t.Renewed:
		if t.Access == "" {
			return "", fmt.Errorf("%w: session was cleared", apierr.ErrUnauthorized)
		}
		return t.Access, nil
	case t.Wait != nil:
		metrics.RefreshWaiters.Inc()
		select {
		case o := <-t.Wait:
			return o.Access, o.Err
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", apierr.ErrServer, ctx.Err())
		}
	}
	return g.lead(ctx)
}

// lead runs the refresh protocol. The outcome is committed to the credential store
// before waiters are released, so no released request observes the old state. Host
// callbacks (SessionExpired, redirect) run only after the coordinator is resolved, so
// they may issue requests of their own.
func (g *Gateway) lead(ctx context.Context) (string, error) {
	resolved := false
	defer func() {
		if !resolved {
			g.coord.Resolve(Outcome{Err: fmt.Errorf("%w: refresh aborted", apierr.ErrUnauthorized)})
		}
	}()

	out, reason := g.refreshOnce(ctx)
	cleared := false
	if out.Err != nil {
		cleared = g.creds.Clear(ctx)
	}
	n := g.coord.Resolve(out)
	resolved = true
	logger.Debugf("gateway: refresh resolved ok=%t waiters=%d", out.Err == nil, n)

	if cleared {
		g.sessionExpired(reason)
	}
	return out.Access, out.Err
}

// refreshOnce calls the refresh endpoint and stores a new pair. A failed Outcome comes
// with the reason reported in SessionExpired.
func (g *Gateway) refreshOnce(ctx context.Context) (Outcome, string) {
	refresh := g.creds.RefreshCredential()
	if refresh == "" {
		metrics.RefreshAttempts.WithLabelValues("missing").Inc()
		return Outcome{Err: fmt.Errorf("%w: no refresh credential", apierr.ErrUnauthorized)}, "no refresh credential"
	}

	pair, err := g.callRefresh(ctx, refresh)
	if err != nil {
		logger.Warnf("gateway: credential refresh failed: %v", err)
		return Outcome{Err: refreshFailure(err)}, "refresh failed"
	}

	if pair.RefreshToken == "" {
		// backend did not rotate the refresh credential
		pair.RefreshToken = refresh
	}
	if perr := g.creds.SetCredentials(ctx, pair.AccessToken, pair.RefreshToken); perr != nil {
		logger.Warnf("gateway: persisting refreshed credentials failed: %v", perr)
	}
	metrics.RefreshAttempts.WithLabelValues("success").Inc()
	return Outcome{Access: pair.AccessToken}, ""
}

// TokenPair is the body of a successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
}

// callRefresh is detached from the caller's cancellation (its result is shared with
// every waiter) and bounded by the refresh timeout.
func (g *Gateway) callRefresh(ctx context.Context, refresh string) (*TokenPair, error) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.refreshTimeout)
	defer cancel()

	req, err := NewJSONRequest(http.MethodPost, PathRefresh, map[string]string{"refresh_token": refresh})
	if err != nil {
		return nil, err
	}
	resp, err := g.do(rctx, req, "")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			metrics.RefreshAttempts.WithLabelValues("timeout").Inc()
			return nil, fmt.Errorf("%w: %w", apierr.ErrRefreshTimeout, err)
		}
		metrics.RefreshAttempts.WithLabelValues("error").Inc()
		return nil, err
	}
	if cerr := apierr.Classify(resp.StatusCode, resp.detail()); cerr != nil {
		if resp.StatusCode == http.StatusUnauthorized {
			metrics.RefreshAttempts.WithLabelValues("rejected").Inc()
		} else {
			metrics.RefreshAttempts.WithLabelValues("error").Inc()
		}
		return nil, cerr
	}
	var pair TokenPair
	if err := resp.Decode(&pair); err != nil {
		metrics.RefreshAttempts.WithLabelValues("error").Inc()
		return nil, err
	}
	if pair.AccessToken == "" {
		metrics.RefreshAttempts.WithLabelValues("error").Inc()
		return nil, errors.New("refresh response without access credential")
	}
	return &pair, nil
}

func refreshFailure(cause error) error {
	if errors.Is(cause, apierr.ErrRefreshTimeout) {
		return fmt.Errorf("%w: %w", apierr.ErrUnauthorized, cause)
	}
	return fmt.Errorf("%w: refresh failed: %v", apierr.ErrUnauthorized, cause)
}

// sessionExpired emits SessionExpired and redirects to login unless already there.
// Callers invoke it only when their Clear actually ended a live session, so repeated
// terminal failures on an already-empty session are silent.
func (g *Gateway) sessionExpired(reason string) {
	metrics.SessionExpired.Inc()
	logger.Warnf("gateway: session expired (%s)", reason)
	if g.onExpired != nil {
		g.onExpired(SessionExpired{Reason: reason, At: time.Now().UTC()})
	}
	if g.nav != nil && !g.nav.AtLoginSurface() {
		g.nav.RedirectToLogin()
	}
}

// do performs one HTTP exchange and reads the whole body.
func (g *Gateway) do(ctx context.Context, req *Request, access string) (*Response, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", apierr.ErrServer, err)
		}
	}
	u := g.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vv := range req.Header {
		for _, v := range vv {
			hreq.Header.Add(k, v)
		}
	}
	if hreq.Header.Get("Accept") == "" {
		hreq.Header.Set("Accept", "application/json")
	}
	if access != "" {
		hreq.Header.Set("Authorization", "Bearer "+access)
	}
	rid := uuid.NewString()
	hreq.Header.Set("X-Request-ID", rid)

	start := time.Now()
	hresp, err := g.client.Do(hreq)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues("transport").Inc()
		logger.L().Warn().Str("request_id", rid).Str("method", req.Method).Str("path", req.Path).Err(err).Msg("gateway: transport failure")
		return nil, fmt.Errorf("%w: %s %s: %w", apierr.ErrServer, req.Method, req.Path, err)
	}
	defer hresp.Body.Close()
	b, err := io.ReadAll(hresp.Body)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues("transport").Inc()
		return nil, fmt.Errorf("%w: read response: %w", apierr.ErrServer, err)
	}
	logger.L().Debug().Str("request_id", rid).Str("method", req.Method).Str("path", req.Path).
		Int("status", hresp.StatusCode).Bool("bearer", access != "").Dur("elapsed", time.Since(start)).Msg("gateway: response")

	metrics.GatewayRequests.WithLabelValues(statusClass(hresp.StatusCode)).Inc()
	return &Response{StatusCode: hresp.StatusCode, Header: hresp.Header, Body: b, RequestID: rid}, nil
}

func (g *Gateway) result(resp *Response) error {
	return apierr.Classify(resp.StatusCode, resp.detail())
}

func statusClass(code int) string {
	switch {
	case code == http.StatusUnauthorized:
		return "unauthorized"
	case code >= 500:
		return "server"
	case code >= 400:
		return "client"
	}
	return "ok"
}
