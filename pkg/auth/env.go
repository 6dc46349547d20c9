package auth

import (
	"context"
	"os"
	"sort"
)

// envVars maps environment variable names to LinkedIn cookie names.
var envVars = map[string]string{
	"LINKEDIN_LI_AT":      "li_at",
	"LINKEDIN_JSESSIONID": "JSESSIONID",
	"LINKEDIN_LIDC":       "lidc",
	"LINKEDIN_BCOOKIE":    "bcookie",
}

// EnvSource reads cookies from environment variables.
type EnvSource struct{}

// Cookies returns the cookies set through LINKEDIN_* environment variables.
func (EnvSource) Cookies(_ context.Context) (map[string]string, error) {
	cookies := make(map[string]string)
	for envVar, cookieName := range envVars {
		if value := os.Getenv(envVar); value != "" {
			cookies[cookieName] = value
		}
	}

	if len(cookies) == 0 {
		return nil, nil //nolint:nilnil // no env vars set is not an error
	}
	return cookies, nil
}

// EnvVars returns the environment variable names EnvSource reads, sorted.
// This is useful for generating help messages.
func EnvVars() []string {
	vars := make([]string, 0, len(envVars))
	for envVar := range envVars {
		vars = append(vars, envVar)
	}
	sort.Strings(vars)
	return vars
}
