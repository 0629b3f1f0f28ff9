package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// ErrMissingToken is returned when an OAuth client is configured but no
// token has been stored yet.
var ErrMissingToken = errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")

// OAuthConfig parses an installed-app OAuth client with the spreadsheet scope.
func OAuthConfig(clientJSON []byte) (*oauth2.Config, error) {
	cfg, err := goauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client: %w", err)
	}
	return cfg, nil
}

// OAuthClientFromEnv reads GOOGLE_OAUTH_CLIENT_JSON or
// GOOGLE_OAUTH_CLIENT_FILE. It returns nil bytes when neither is set.
func OAuthClientFromEnv() ([]byte, error) {
	return inlineOrFile("GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE")
}

// LoadToken reads a token saved by SaveToken.
func LoadToken(data []byte) (*oauth2.Token, error) {
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, errors.New("parse oauth token: token has neither access nor refresh token")
	}
	return &tok, nil
}

// SaveToken writes tok to path readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return fmt.Errorf("write token: %w", err)
	}
	return f.Close()
}

// tokenSourceFromEnv builds a refreshing token source from the OAuth client
// and the stored token. It returns nil when no OAuth client is configured.
func tokenSourceFromEnv(ctx context.Context) (oauth2.TokenSource, error) {
	clientJSON, err := OAuthClientFromEnv()
	if err != nil || clientJSON == nil {
		return nil, err
	}
	cfg, err := OAuthConfig(clientJSON)
	if err != nil {
		return nil, err
	}
	tokenJSON, err := inlineOrFile("GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE")
	if err != nil {
		return nil, err
	}
	if tokenJSON == nil {
		return nil, ErrMissingToken
	}
	tok, err := LoadToken(tokenJSON)
	if err != nil {
		return nil, err
	}
	return cfg.TokenSource(ctx, tok), nil
}

func inlineOrFile(inlineKey, fileKey string) ([]byte, error) {
	if v := strings.TrimSpace(os.Getenv(inlineKey)); v != "" {
		return []byte(v), nil
	}
	path := strings.TrimSpace(os.Getenv(fileKey))
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fileKey, err)
	}
	return data, nil
}
