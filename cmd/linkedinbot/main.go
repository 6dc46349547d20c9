// Command linkedinbot scrapes a LinkedIn individual or company profile and
// prints selected fields.
//
// Usage:
//
//	linkedinbot spencernicol skills
//	linkedinbot -mode company spacex overview name num_employees
//	linkedinbot -format yaml https://www.linkedin.com/in/spencernicol/
//
// The li_at session token is taken from -token, the config file or
// LINKEDINBOT_TOKEN, LINKEDIN_LI_AT, local browser cookie stores, or an
// interactive browser sign-in with -login, in that order.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"

	"github.com/codeGROOVE-dev/linkedinbot/pkg/auth"
	"github.com/codeGROOVE-dev/linkedinbot/pkg/config"
	"github.com/codeGROOVE-dev/linkedinbot/pkg/httpcache"
	"github.com/codeGROOVE-dev/linkedinbot/pkg/linkedinbot"
	"github.com/codeGROOVE-dev/linkedinbot/pkg/profile"
)

var errNoToken = errors.New("no LinkedIn token: pass -token, set LINKEDINBOT_TOKEN or LINKEDIN_LI_AT, or use -login")

// operation prints one kind of result. Keyed operations print every allowed
// field when none are named.
type operation struct {
	print   func(p *linkedinbot.Printer, fields []string) error
	section profile.Section
}

var operations = map[string]operation{
	"personal_info": {
		section: profile.SectionPersonalInfo,
		print:   func(p *linkedinbot.Printer, f []string) error { return p.PersonalInfo(f...) },
	},
	"experiences": {
		section: profile.SectionExperiences,
		print:   func(p *linkedinbot.Printer, f []string) error { return p.Experiences(f...) },
	},
	"accomplishments": {
		section: profile.SectionAccomplishments,
		print:   func(p *linkedinbot.Printer, f []string) error { return p.Accomplishments(f...) },
	},
	"overview": {
		section: profile.SectionOverview,
		print:   func(p *linkedinbot.Printer, f []string) error { return p.Overview(f...) },
	},
	"skills":    {print: func(p *linkedinbot.Printer, _ []string) error { return p.Skills() }},
	"interests": {print: func(p *linkedinbot.Printer, _ []string) error { return p.Interests() }},
	"jobs":      {print: func(p *linkedinbot.Printer, _ []string) error { return p.Jobs() }},
	"record":    {print: func(p *linkedinbot.Printer, _ []string) error { return p.Record() }},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

//nolint:funlen,gocognit // flag handling reads best in one place
func run(ctx context.Context, args []string, stdout, stderr io.Writer, extra ...linkedinbot.Option) int {
	fs := flag.NewFlagSet("linkedinbot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	mode := fs.String("mode", "", "profile kind: individual (or in) or company (default individual)")
	token := fs.String("token", "", "li_at session cookie")
	configPath := fs.String("config", "", "YAML config file (default "+config.DefaultPath()+" if present)")
	format := fs.String("format", "", "output format: json or yaml (default json)")
	login := fs.Bool("login", false, "sign in through a Chrome window when no token is found")
	noBrowser := fs.Bool("no-browser", false, "disable reading cookies from browser stores")
	noCache := fs.Bool("no-cache", false, "disable HTTP caching")
	cacheTTL := fs.Duration("cache-ttl", 0, "cache time-to-live (default 7 days)")
	noJobs := fs.Bool("no-jobs", false, "skip job listings for companies")
	verbose := fs.Bool("v", false, "verbose logging")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: linkedinbot [options] <target> [operation [fields...]]")
		fmt.Fprintln(stderr, "\nOptions:")
		fs.PrintDefaults()
		fmt.Fprintln(stderr, "\nOperations:")
		fmt.Fprintln(stderr, "  individual: personal_info, experiences, skills, accomplishments, interests")
		fmt.Fprintln(stderr, "  company:    overview, jobs")
		fmt.Fprintln(stderr, "  either:     record (default, prints everything)")
	}

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return 1
	}

	target := fs.Arg(0)
	opName := "record"
	if fs.NArg() > 1 {
		opName = fs.Arg(1)
	}
	var fields []string
	if fs.NArg() > 2 {
		fields = fs.Args()[2:]
	}
	op, ok := operations[opName]
	if !ok {
		fmt.Fprintf(stderr, "Error: unknown operation %q (want one of %v)\n", opName, operationNames())
		return 1
	}
	if len(fields) == 0 && op.section != "" {
		fields = profile.AllowedFields(op.section)
	}

	loaderOpts := []config.Option{config.WithOptionalConfigFile(config.DefaultPath())}
	if *configPath != "" {
		loaderOpts = []config.Option{config.WithConfigFile(*configPath)}
	}
	cfg, err := config.NewLoader(loaderOpts...).Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	if *format != "" {
		cfg.Format = *format
	}
	if *noBrowser {
		cfg.Browser = false
	}
	if *noCache {
		cfg.Cache.Enabled = false
	}
	if *cacheTTL > 0 {
		cfg.Cache.TTL = *cacheTTL
	}
	if *noJobs {
		cfg.Jobs = false
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	outFormat, err := linkedinbot.ParseFormat(cfg.Format)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel}))

	if *token != "" {
		cfg.Token = *token
	}
	tok, err := resolveToken(ctx, cfg, *login, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	opts := []linkedinbot.Option{
		linkedinbot.WithLogger(logger),
		linkedinbot.WithCompanyOptions(linkedinbot.CompanyOptions{Jobs: cfg.Jobs}),
		linkedinbot.WithTimeout(cfg.Timeout),
	}
	if cfg.Cache.Enabled {
		httpCache, err := newCache(cfg.Cache)
		if err != nil {
			logger.Warn("failed to initialize cache, continuing without cache", "error", err)
		} else {
			defer func() {
				if err := httpCache.Close(); err != nil {
					logger.Warn("failed to close cache", "error", err)
				}
				stats := httpcache.CacheStats()
				logger.Debug("cache stats", "hits", stats.Hits, "misses", stats.Misses, "hit_rate", stats.HitRate())
			}()
			logger.Debug("HTTP cache initialized", "ttl", cfg.Cache.TTL.String())
			opts = append(opts, linkedinbot.WithHTTPCache(httpCache))
		}
	}
	opts = append(opts, extra...)

	s, err := linkedinbot.Open(ctx, tok, cfg.Mode, target, opts...)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	p := linkedinbot.NewPrinter(stdout, s, linkedinbot.WithFormat(outFormat))
	if err := op.print(p, fields); err != nil {
		fmt.Fprintf(stderr, "Output error: %v\n", err)
		return 1
	}
	return 0
}

// resolveToken finds an li_at token, falling back to an interactive browser
// sign-in when allowed.
func resolveToken(ctx context.Context, cfg *config.Config, login bool, logger *slog.Logger) (string, error) {
	sources := []auth.Source{auth.NewTokenSource(cfg.Token), auth.EnvSource{}}
	if cfg.Browser {
		sources = append(sources, auth.NewBrowserSource(logger))
	}
	tok, err := auth.Token(ctx, sources...)
	if err != nil {
		return "", fmt.Errorf("read cookies: %w", err)
	}
	if tok != "" {
		return tok, nil
	}
	if !login {
		return "", errNoToken
	}
	return auth.Login(ctx, auth.LoginOptions{Logger: logger})
}

func newCache(c config.Cache) (*httpcache.Cache, error) {
	if c.Dir != "" {
		return httpcache.NewWithPath(c.TTL, c.Dir)
	}
	return httpcache.New(c.TTL)
}

func operationNames() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
