package auth

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all" // Import all browser cookie stores
	"github.com/browserutils/kooky/browser/chrome"
	"github.com/browserutils/kooky/browser/firefox"
)

// essentialCookies are the LinkedIn cookies worth carrying from a browser.
var essentialCookies = []string{TokenCookie, "JSESSIONID", "lidc", "bcookie"}

// firefoxStores are glob patterns, relative to $HOME, for Firefox-format
// cookie databases kooky does not find on its own.
var firefoxStores = []string{
	"Library/Application Support/zen/Profiles/*/cookies.sqlite",
	"Library/Application Support/Firefox/Profiles/*/cookies.sqlite",
	".zen/*/cookies.sqlite",
	".mozilla/firefox/*/cookies.sqlite",
}

// chromeStores are glob patterns, relative to $HOME, for Chrome-format
// cookie databases kooky does not find on its own.
var chromeStores = []string{
	"Library/Application Support/Google/Chrome Canary/*/Cookies",
}

// BrowserSource reads LinkedIn cookies from local browser cookie stores.
type BrowserSource struct {
	logger *slog.Logger
	home   string
}

// NewBrowserSource creates a new browser cookie source.
func NewBrowserSource(logger *slog.Logger) *BrowserSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserSource{logger: logger, home: os.Getenv("HOME")}
}

// Cookies returns LinkedIn cookies from the first browser store that has them.
func (s *BrowserSource) Cookies(ctx context.Context) (map[string]string, error) {
	s.logger.DebugContext(ctx, "reading browser cookies", "domain", Domain)

	if cookies := s.tryStores(ctx, firefoxStores, firefox.ReadCookies); len(cookies) > 0 {
		return cookies, nil
	}
	if cookies := s.tryStores(ctx, chromeStores, chrome.ReadCookies); len(cookies) > 0 {
		return cookies, nil
	}

	// Fall back to kooky's automatic browser detection
	kookies, err := kooky.ReadCookies(ctx, kooky.Valid, kooky.DomainHasSuffix(Domain))
	if err != nil {
		s.logger.DebugContext(ctx, "failed to read browser cookies", "error", err)
		return nil, nil //nolint:nilnil // failed browser read is not a fatal error
	}
	if len(kookies) == 0 {
		return nil, nil //nolint:nilnil // no browser cookies is not an error
	}

	return s.filterEssential(ctx, kookies), nil
}

type readFunc func(ctx context.Context, filename string, filters ...kooky.Filter) ([]*kooky.Cookie, error)

// tryStores reads each cookie database matching patterns until one yields
// LinkedIn cookies.
func (s *BrowserSource) tryStores(ctx context.Context, patterns []string, read readFunc) map[string]string {
	if s.home == "" {
		return nil
	}

	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(s.home, pattern))
		if err != nil || len(matches) == 0 {
			continue
		}
		for _, f := range matches {
			kookies, err := read(ctx, f, kooky.Valid, kooky.DomainHasSuffix(Domain))
			if err != nil {
				if strings.Contains(err.Error(), "decrypt") || strings.Contains(err.Error(), "encryption") {
					s.logger.WarnContext(ctx, "browser cookies exist but cannot be decrypted",
						"store", f,
						"hint", "set LINKEDIN_LI_AT or pass -token")
				} else {
					s.logger.DebugContext(ctx, "failed to read cookie store", "store", f, "error", err)
				}
				continue
			}
			if len(kookies) == 0 {
				continue
			}
			s.logger.DebugContext(ctx, "found browser cookies",
				"profile", filepath.Base(filepath.Dir(f)),
				"count", len(kookies))
			if cookies := s.filterEssential(ctx, kookies); len(cookies) > 0 {
				return cookies
			}
		}
	}

	return nil
}

// filterEssential keeps only the cookies LinkedIn needs for an authenticated session.
func (s *BrowserSource) filterEssential(ctx context.Context, kookies []*kooky.Cookie) map[string]string {
	want := make(map[string]bool, len(essentialCookies))
	for _, name := range essentialCookies {
		want[name] = true
	}

	cookies := make(map[string]string)
	for _, c := range kookies {
		if want[c.Name] {
			cookies[c.Name] = c.Value
		}
	}

	var found, missing []string
	for _, name := range essentialCookies {
		if _, ok := cookies[name]; ok {
			found = append(found, name)
		} else {
			missing = append(missing, name)
		}
	}
	if len(found) > 0 {
		s.logger.InfoContext(ctx, "browser cookies found", "keys", found)
	}
	if len(missing) > 0 {
		s.logger.DebugContext(ctx, "browser cookies missing", "keys", missing)
	}

	return cookies
}
