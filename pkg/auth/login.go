package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// ErrLoginTimeout is returned when the user does not finish signing in
// before the login deadline.
var ErrLoginTimeout = errors.New("browser login timed out")

const loginURL = "https://www.linkedin.com/login"

// LoginOptions configures an interactive browser login.
type LoginOptions struct {
	Logger       *slog.Logger
	Timeout      time.Duration // how long to wait for the user; default 5 minutes
	PollInterval time.Duration // how often to check for li_at; default 1 second
	ExecPath     string        // optional Chrome binary
	Headless     bool          // only useful when a profile is already signed in
}

// Login opens a Chrome window at the LinkedIn sign-in page and waits for the
// user to sign in, then returns the li_at session cookie. The program never
// sees the user's credentials, only the resulting cookie.
func Login(ctx context.Context, opts LoginOptions) (string, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}

	browserCtx, cancel, err := newBrowserContext(ctx, opts)
	if err != nil {
		return "", err
	}
	defer cancel()

	opts.Logger.InfoContext(ctx, "waiting for LinkedIn sign-in in browser window", "timeout", opts.Timeout)

	if err := chromedp.Run(browserCtx, chromedp.Navigate(loginURL)); err != nil {
		return "", fmt.Errorf("open login page: %w", err)
	}

	deadline := time.Now().Add(opts.Timeout)
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	for {
		token, err := readToken(browserCtx)
		if err != nil {
			return "", fmt.Errorf("read browser cookies: %w", err)
		}
		if token != "" {
			opts.Logger.InfoContext(ctx, "LinkedIn sign-in detected")
			return token, nil
		}
		if time.Now().After(deadline) {
			return "", ErrLoginTimeout
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// newBrowserContext starts Chrome and returns a context bound to its first tab.
func newBrowserContext(ctx context.Context, opts LoginOptions) (context.Context, context.CancelFunc, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-extensions", true),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx, network.Enable()); err != nil {
		browserCancel()
		allocCancel()
		return nil, nil, fmt.Errorf("enable network events: %w", err)
	}

	return browserCtx, func() {
		browserCancel()
		allocCancel()
	}, nil
}

// readToken returns the li_at cookie from the browser, or "" if not yet set.
func readToken(ctx context.Context) (string, error) {
	var token string
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().WithURLs([]string{"https://www.linkedin.com"}).Do(ctx)
		if err != nil {
			return err
		}
		token = tokenFromCookies(cookies)
		return nil
	}))
	return token, err
}

func tokenFromCookies(cookies []*network.Cookie) string {
	for _, c := range cookies {
		if c.Name == TokenCookie && c.Value != "" {
			return c.Value
		}
	}
	return ""
}
