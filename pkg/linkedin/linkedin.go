// Package linkedin scrapes LinkedIn individual and company profiles through
// the Voyager JSON API using an li_at session cookie.
package linkedin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/codeGROOVE-dev/linkedinbot/pkg/auth"
	"github.com/codeGROOVE-dev/linkedinbot/pkg/httpcache"
	"github.com/codeGROOVE-dev/linkedinbot/pkg/profile"
)

const (
	defaultBaseURL = "https://www.linkedin.com"
	defaultTimeout = 10 * time.Second

	voyagerAccept = "application/json"
	pageInstance  = "urn:li:page:d_flagship3_profile_view_base;"
)

// Client scrapes LinkedIn with caller-supplied session tokens. A Client holds
// no credentials; each scrape builds its own cookie session.
type Client struct {
	cache   httpcache.Cacher
	logger  *slog.Logger
	baseURL *url.URL
	timeout time.Duration
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cache   httpcache.Cacher
	logger  *slog.Logger
	baseURL string
	timeout time.Duration
}

// WithHTTPCache sets the HTTP cache.
func WithHTTPCache(httpCache httpcache.Cacher) Option {
	return func(c *config) { c.cache = httpCache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithBaseURL points the client at a different host, such as a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *config) { c.baseURL = baseURL }
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// New creates a LinkedIn client.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &config{
		logger:  slog.Default(),
		baseURL: defaultBaseURL,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	base, err := url.Parse(strings.TrimSuffix(cfg.baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", cfg.baseURL)
	}
	if cfg.timeout <= 0 {
		cfg.timeout = defaultTimeout
	}

	cfg.logger.DebugContext(ctx, "linkedin client created", "base_url", base.String(), "cached", cfg.cache != nil)

	return &Client{
		cache:   cfg.cache,
		logger:  cfg.logger,
		baseURL: base,
		timeout: cfg.timeout,
	}, nil
}

// session is one authenticated conversation with LinkedIn.
type session struct {
	client *Client
	http   *http.Client
	csrf   string
}

// newSession builds a cookie session for token and establishes the
// JSESSIONID that Voyager requires as a CSRF token.
func (c *Client) newSession(ctx context.Context, token string) (*session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: an li_at token is required", profile.ErrNoCookies)
	}

	jar, err := auth.NewCookieJar(cookieDomain(c.baseURL), map[string]string{auth.TokenCookie: token})
	if err != nil {
		return nil, fmt.Errorf("cookie jar creation failed: %w", err)
	}

	s := &session{
		client: c,
		http: &http.Client{
			Jar:     jar,
			Timeout: c.timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= 1 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}

	if err := s.ensureJSESSIONID(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureJSESSIONID visits the feed so LinkedIn sets JSESSIONID. If it does
// not, a locally minted value is used; Voyager only checks that the cookie
// and the Csrf-Token header agree.
func (s *session) ensureJSESSIONID(ctx context.Context) error {
	if v := s.cookie("JSESSIONID"); v != "" {
		s.csrf = v
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.client.baseURL.String()+"/feed/", http.NoBody)
	if err != nil {
		return err
	}
	setHeaders(req)

	// Never cached: the point is the Set-Cookie on the response.
	if _, err := httpcache.FetchURL(ctx, nil, s.http, req, s.client.logger); err != nil {
		if mapped := classify(err); errors.Is(mapped, profile.ErrAuthRequired) || errors.Is(mapped, context.Canceled) {
			return fmt.Errorf("establish session: %w", mapped)
		}
		s.client.logger.DebugContext(ctx, "feed request failed, minting JSESSIONID", "error", err)
	}

	if v := s.cookie("JSESSIONID"); v != "" {
		s.client.logger.DebugContext(ctx, "got JSESSIONID from response")
		s.csrf = v
		return nil
	}

	s.csrf = fmt.Sprintf("ajax:%019d", rand.Int64()) //nolint:gosec // not a secret
	s.http.Jar.SetCookies(s.client.baseURL, []*http.Cookie{{Name: "JSESSIONID", Value: s.csrf, Path: "/"}})
	s.client.logger.DebugContext(ctx, "minted JSESSIONID")
	return nil
}

func (s *session) cookie(name string) string {
	for _, c := range s.http.Jar.Cookies(s.client.baseURL) {
		if c.Name == name {
			return strings.Trim(c.Value, `"`)
		}
	}
	return ""
}

// voyager fetches a Voyager API path (relative to /voyager/api/) and returns
// the JSON body. Errors are mapped onto the profile sentinels.
func (s *session) voyager(ctx context.Context, path string) ([]byte, error) {
	apiURL := s.client.baseURL.String() + "/voyager/api/" + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}
	s.setVoyagerHeaders(req)

	s.client.logger.DebugContext(ctx, "fetching voyager api", "path", path)

	body, err := httpcache.FetchURLWithValidator(ctx, s.client.cache, s.http, req, s.client.logger, gjson.ValidBytes)
	if err != nil {
		return nil, classify(err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: %s did not return JSON", profile.ErrAuthRequired, path)
	}
	return body, nil
}

func (s *session) setVoyagerHeaders(req *http.Request) {
	req.Header.Set("User-Agent", httpcache.UserAgent)
	req.Header.Set("Accept", voyagerAccept)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("X-Li-Lang", "en_US")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	req.Header.Set("X-Li-Page-Instance", pageInstance+uuid.NewString())
	req.Header.Set("Csrf-Token", s.csrf)
}

func setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", httpcache.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("DNT", "1")
	req.Header.Set("Sec-GPC", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-User", "?1")
}

// statusRequestDenied is LinkedIn's non-standard status for throttled clients.
const statusRequestDenied = 999

// classify maps HTTP failures onto the profile sentinel errors, keeping the
// original error in the chain.
func classify(err error) error {
	var httpErr *httpcache.HTTPError
	if !errors.As(err, &httpErr) {
		return err
	}
	switch code := httpErr.StatusCode; {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return fmt.Errorf("%w: %w", profile.ErrAuthRequired, err)
	case code >= 300 && code < 400:
		// Voyager redirects expired sessions to the login wall.
		return fmt.Errorf("%w: %w", profile.ErrAuthRequired, err)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %w", profile.ErrProfileNotFound, err)
	case code == http.StatusTooManyRequests, code == statusRequestDenied:
		return fmt.Errorf("%w: %w", profile.ErrRateLimited, err)
	default:
		return err
	}
}

// cookieDomain returns the domain session cookies are scoped to for base.
func cookieDomain(base *url.URL) string {
	host := base.Hostname()
	if host == auth.Domain || strings.HasSuffix(host, "."+auth.Domain) {
		return auth.Domain
	}
	return host
}

var (
	publicIDRe    = regexp.MustCompile(`/in/([^/?#]+)`)
	companySlugRe = regexp.MustCompile(`/company/([^/?#]+)`)
)

// PublicID extracts the public identifier from a profile URL. Bare
// identifiers are returned unchanged.
func PublicID(s string) string {
	return slug(publicIDRe, s)
}

// CompanySlug extracts the universal name from a company URL. Bare slugs are
// returned unchanged.
func CompanySlug(s string) string {
	return slug(companySlugRe, s)
}

func slug(re *regexp.Regexp, s string) string {
	s = strings.TrimSpace(s)
	if m := re.FindStringSubmatch(s); len(m) > 1 {
		id := m[1]
		if strings.Contains(id, "%") {
			if decoded, err := url.PathUnescape(id); err == nil {
				return decoded
			}
		}
		return id
	}
	if strings.ContainsAny(s, "/?#") {
		return ""
	}
	return s
}
