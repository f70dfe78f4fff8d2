package utils

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/jakechorley/activity-log/internal/config"
)

// OAuth scopes for Google APIs
const (
	ScopeSheets = "https://www.googleapis.com/auth/spreadsheets"
)

// requiredScopes returns all scopes required by the application
func requiredScopes() []string {
	return []string{
		ScopeSheets,
	}
}

// GetHTTPClient returns an HTTP client that authenticates as the service account.
// Tokens are fetched on first use and refreshed automatically; the first token
// is requested eagerly so broken credentials fail at startup.
func GetHTTPClient(ctx context.Context, creds *config.ServiceAccountCredentials) (*http.Client, error) {
	jwtConfig, err := google.JWTConfigFromJSON(creds.JSON(), requiredScopes()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create jwt config: %w", err)
	}

	tokenSource := oauth2.ReuseTokenSource(nil, jwtConfig.TokenSource(ctx))
	if _, err := tokenSource.Token(); err != nil {
		return nil, fmt.Errorf("failed to get service account token: %w", err)
	}

	return oauth2.NewClient(ctx, tokenSource), nil
}
