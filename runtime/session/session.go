package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adliye/lexgate/legal"
	"github.com/adliye/lexgate/runtime/telemetry"
)

// Session is a borrowed, single-operation view over a backend client.
// Concurrent borrows of the same source are independent logical sessions
// sharing the cookie jar and CSRF cache underneath.
type Session struct {
	entry   *entry
	logger  telemetry.Logger
	release func()
}

// Release returns the concurrency slot to the pool. Safe to call twice.
func (s *Session) Release() { s.release() }

// Do sends req with the source's headers profile applied and classifies the
// transport-level failures. Callers own the response body.
func (s *Session) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if s.entry.limiter != nil {
		if err := s.entry.limiter.Wait(ctx); err != nil {
			return nil, legal.Timeoutf("rate limit wait for %s: %v", s.entry.source, err)
		}
	}
	req = req.WithContext(ctx)
	s.applyProfile(req)

	resp, err := s.entry.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, legal.Timeoutf("%s request to %s timed out", s.entry.source, req.URL.Path)
		}
		return nil, legal.AsFault(err)
	}
	return resp, nil
}

// GetBytes issues a GET and returns the full body after status
// classification.
func (s *Session) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, legal.Invalidf("url", "bad request url: %v", err)
	}
	return s.roundTrip(ctx, req)
}

// PostJSON issues a POST with an exact, pre-marshaled JSON body. The body is
// forwarded byte for byte: some backends reject canonicalized JSON.
func (s *Session) PostJSON(ctx context.Context, rawURL string, body []byte) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, legal.Invalidf("url", "bad request url: %v", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Accept", "application/json")
	return s.roundTrip(ctx, req)
}

// PostForm issues an URL-encoded form POST.
func (s *Session) PostForm(ctx context.Context, rawURL string, form url.Values) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, legal.Invalidf("url", "bad request url: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	return s.roundTrip(ctx, req)
}

func (s *Session) roundTrip(ctx context.Context, req *http.Request) ([]byte, error) {
	resp, err := s.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, legal.BackendFailuref(resp.StatusCode, "", "reading %s response: %v", s.entry.source, err)
	}
	if err := ClassifyStatus(resp.StatusCode, body); err != nil {
		s.entry.failCount.Add(1)
		return nil, err
	}
	return body, nil
}

// applyProfile sets the identity headers unless the request already carries
// an override.
func (s *Session) applyProfile(req *http.Request) {
	p := s.entry.cfg.Profile
	setDefault(req, "User-Agent", p.UserAgent)
	setDefault(req, "Accept-Language", p.AcceptLanguage)
	setDefault(req, "Referer", p.Referer)
	setDefault(req, "Origin", p.Origin)
	for k, v := range p.Extra {
		setDefault(req, k, v)
	}
}

func setDefault(req *http.Request, key, value string) {
	if value != "" && req.Header.Get(key) == "" {
		req.Header.Set(key, value)
	}
}

// CSRFToken returns the cached anti-forgery token for subEndpoint, warming
// the session via fetch when the cache is cold. Concurrent cold callers are
// collapsed into a single landing-page fetch; everyone reuses its result.
func (s *Session) CSRFToken(ctx context.Context, subEndpoint string, fetch func(context.Context) (string, error)) (string, error) {
	e := s.entry
	e.csrfMu.RLock()
	token, ok := e.csrf[subEndpoint]
	e.csrfMu.RUnlock()
	if ok && token != "" {
		return token, nil
	}

	v, err, _ := e.warm.Do(subEndpoint, func() (any, error) {
		// Another caller may have warmed the cache while we queued.
		e.csrfMu.RLock()
		cached, ok := e.csrf[subEndpoint]
		e.csrfMu.RUnlock()
		if ok && cached != "" {
			return cached, nil
		}
		fetched, err := fetch(ctx)
		if err != nil {
			return "", err
		}
		e.csrfMu.Lock()
		e.csrf[subEndpoint] = fetched
		e.lastRefreshed = time.Now()
		e.csrfMu.Unlock()
		return fetched, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// InvalidateCSRF drops the stored token so the next use re-warms the
// session. This is the on_auth_failure hook.
func (s *Session) InvalidateCSRF(subEndpoint string) {
	s.entry.csrfMu.Lock()
	delete(s.entry.csrf, subEndpoint)
	s.entry.csrfMu.Unlock()
}

// WithAuthRetry runs op and, when it reports AuthExpired, invalidates the
// token for subEndpoint and retries exactly once. A second auth failure is
// surfaced as BackendFailure.
func (s *Session) WithAuthRetry(ctx context.Context, subEndpoint string, op func(context.Context) error) error {
	err := op(ctx)
	if err == nil || legal.KindOf(err) != legal.KindAuthExpired {
		return err
	}
	s.logger.Warn(ctx, "auth token rejected, re-warming session",
		"source", string(s.entry.source), "sub_endpoint", subEndpoint)
	s.InvalidateCSRF(subEndpoint)
	err = op(ctx)
	if err != nil && legal.KindOf(err) == legal.KindAuthExpired {
		return legal.BackendFailuref(0, "", "%s auth failed twice on %s", s.entry.source, subEndpoint)
	}
	return err
}

// ClassifyStatus maps a backend HTTP status to the closed fault taxonomy.
// 2xx passes; 401/403/419 report AuthExpired so the caller can re-warm once;
// 429 and challenge pages report AccessDenied.
func ClassifyStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		if looksLikeChallenge(body) {
			return legal.AccessDeniedf("backend served a bot challenge page")
		}
		return nil
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == 419:
		return legal.AuthExpiredf("backend rejected credentials with status %d", status)
	case status == http.StatusTooManyRequests:
		return legal.AccessDeniedf("backend rate limited the client (429)")
	case status == http.StatusNotFound:
		return legal.NotFoundf("backend returned 404")
	default:
		return legal.BackendFailuref(status, string(firstN(body, 200)), "backend returned status %d", status)
	}
}

// looksLikeChallenge detects the common interstitial markers served with a
// 200 by the CDN in front of two of the backends.
func looksLikeChallenge(body []byte) bool {
	if len(body) == 0 {
		return false
	}
	head := bytes.ToLower(firstN(body, 2048))
	return bytes.Contains(head, []byte("cf-challenge")) ||
		bytes.Contains(head, []byte("checking your browser")) ||
		bytes.Contains(head, []byte("captcha-delivery"))
}

func firstN(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
