package auth

import "context"

// StaticSource provides cookies from a static map.
// This is useful for testing or when the token is passed on the command line.
type StaticSource struct {
	cookies map[string]string
}

// NewStaticSource creates a cookie source from a static map.
func NewStaticSource(cookies map[string]string) *StaticSource {
	return &StaticSource{cookies: cookies}
}

// NewTokenSource creates a cookie source holding only an li_at token.
// An empty token yields a source with no cookies.
func NewTokenSource(token string) *StaticSource {
	if token == "" {
		return &StaticSource{}
	}
	return &StaticSource{cookies: map[string]string{TokenCookie: token}}
}

// Cookies returns a copy of the static cookies.
func (s *StaticSource) Cookies(_ context.Context) (map[string]string, error) {
	if len(s.cookies) == 0 {
		return nil, nil //nolint:nilnil // empty static source is not an error
	}
	result := make(map[string]string, len(s.cookies))
	for k, v := range s.cookies {
		result[k] = v
	}
	return result, nil
}
