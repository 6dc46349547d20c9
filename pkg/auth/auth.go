// Package auth discovers the LinkedIn session cookies used to authenticate
// scraping requests.
package auth

import (
	"context"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
)

// TokenCookie is the LinkedIn session cookie that serves as the auth token.
const TokenCookie = "li_at"

// Domain is the cookie domain LinkedIn sessions are scoped to.
const Domain = "linkedin.com"

// NewCookieJar creates an http.CookieJar populated with the given cookies for a domain.
func NewCookieJar(domain string, cookies map[string]string) (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse("https://" + domain)
	if err != nil {
		return nil, err
	}

	// IP hosts only accept host-only cookies.
	cookieDomain := "." + domain
	if net.ParseIP(domain) != nil {
		cookieDomain = ""
	}

	var httpCookies []*http.Cookie
	for name, value := range cookies {
		if value != "" {
			httpCookies = append(httpCookies, &http.Cookie{
				Name:   name,
				Value:  value,
				Domain: cookieDomain,
				Path:   "/",
			})
		}
	}

	jar.SetCookies(u, httpCookies)
	return jar, nil
}

// Source represents a source of LinkedIn session cookies.
type Source interface {
	// Cookies returns the available cookies, or nil if the source has none.
	Cookies(ctx context.Context) (map[string]string, error)
}

// ChainSources returns cookies from the first source that provides them.
func ChainSources(ctx context.Context, sources ...Source) (map[string]string, error) {
	for _, src := range sources {
		cookies, err := src.Cookies(ctx)
		if err != nil {
			return nil, err
		}
		if len(cookies) > 0 {
			return cookies, nil
		}
	}
	return nil, nil //nolint:nilnil // no source had cookies, but this is not an error
}

// Token returns the li_at value from the first source that has one.
// It returns "" when no source carries a token.
func Token(ctx context.Context, sources ...Source) (string, error) {
	for _, src := range sources {
		cookies, err := src.Cookies(ctx)
		if err != nil {
			return "", err
		}
		if tok := cookies[TokenCookie]; tok != "" {
			return tok, nil
		}
	}
	return "", nil
}
