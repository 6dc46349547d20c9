// Package linkedinbot loads one LinkedIn profile, individual or company, and
// answers field lookups against it.
//
// A Session is built once with Open, which performs the only fetch. Every
// query afterwards is a read-only lookup gated by the session's mode:
//
//	s, err := linkedinbot.Open(ctx, token, "company", "spacex")
//	if err != nil {
//		return err
//	}
//	fields, err := s.Overview("name", "num_employees")
package linkedinbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/linkedinbot/pkg/httpcache"
	"github.com/codeGROOVE-dev/linkedinbot/pkg/linkedin"
	"github.com/codeGROOVE-dev/linkedinbot/pkg/profile"
)

// Errors returned by Open and the query operations.
var (
	// ErrUnsupportedMode is returned by Open for a mode other than
	// individual, in or company.
	ErrUnsupportedMode = profile.ErrUnsupportedMode

	// ErrUpstreamFetch is returned by Open when the scraper fails. The
	// scraper's error stays in the chain.
	ErrUpstreamFetch = errors.New("upstream fetch failed")

	// ErrInvalidField matches *InvalidFieldError.
	ErrInvalidField = errors.New("invalid field")

	// ErrWrongMode matches *WrongModeError.
	ErrWrongMode = errors.New("operation not available for this mode")
)

// CompanyOptions selects the optional parts of a company scrape.
type CompanyOptions = linkedin.CompanyOptions

// Scraper fetches profile records. *linkedin.Client is the default.
type Scraper interface {
	ScrapeIndividual(ctx context.Context, token, userID string) (profile.Record, error)
	ScrapeCompany(ctx context.Context, token, companyID string, opts CompanyOptions) (profile.Record, error)
}

// Session holds the record of one profile.
type Session struct {
	record profile.Record
	logger *slog.Logger
	target string
	mode   profile.Mode
}

// Option configures Open.
type Option func(*config)

type config struct {
	scraper Scraper
	cache   httpcache.Cacher
	logger  *slog.Logger
	company CompanyOptions
	timeout time.Duration
}

// WithScraper replaces the default LinkedIn scraper.
func WithScraper(s Scraper) Option {
	return func(c *config) { c.scraper = s }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithHTTPCache sets the HTTP cache used by the default scraper.
func WithHTTPCache(httpCache httpcache.Cacher) Option {
	return func(c *config) { c.cache = httpCache }
}

// WithCompanyOptions sets the options passed to company scrapes.
func WithCompanyOptions(opts CompanyOptions) Option {
	return func(c *config) { c.company = opts }
}

// WithTimeout sets the per-request timeout of the default scraper.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// Open scrapes the profile of targetID and returns a Session over it.
//
// mode is "individual" or "in" for a person and "company" for a company,
// ignoring case. Any other mode fails with ErrUnsupportedMode before anything
// is fetched. A scraper failure, or a scraper returning no record, fails with
// ErrUpstreamFetch.
func Open(ctx context.Context, token, mode, targetID string, opts ...Option) (*Session, error) {
	m, err := profile.ParseMode(mode)
	if err != nil {
		return nil, err
	}

	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	if cfg.scraper == nil {
		lopts := []linkedin.Option{linkedin.WithLogger(cfg.logger)}
		if cfg.cache != nil {
			lopts = append(lopts, linkedin.WithHTTPCache(cfg.cache))
		}
		if cfg.timeout > 0 {
			lopts = append(lopts, linkedin.WithTimeout(cfg.timeout))
		}
		client, err := linkedin.New(ctx, lopts...)
		if err != nil {
			return nil, fmt.Errorf("create scraper: %w", err)
		}
		cfg.scraper = client
	}

	cfg.logger.DebugContext(ctx, "opening profile", "mode", m, "target", targetID)

	var rec profile.Record
	switch m {
	case profile.ModeIndividual:
		rec, err = cfg.scraper.ScrapeIndividual(ctx, token, targetID)
	case profile.ModeCompany:
		rec, err = cfg.scraper.ScrapeCompany(ctx, token, targetID, cfg.company)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrUpstreamFetch, m, targetID, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("%w: %s %s: scraper returned no record", ErrUpstreamFetch, m, targetID)
	}

	cfg.logger.InfoContext(ctx, "profile loaded", "mode", m, "target", targetID, "sections", len(rec))

	return &Session{
		record: rec.Clone(),
		logger: cfg.logger,
		target: targetID,
		mode:   m,
	}, nil
}

// Mode returns the session's mode.
func (s *Session) Mode() profile.Mode { return s.mode }

// Target returns the identifier the session was opened with.
func (s *Session) Target() string { return s.target }

// Record returns a copy of the full record.
func (s *Session) Record() profile.Record { return s.record.Clone() }
