package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

const testOAuthClient = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`

func clearOAuthEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE",
		"GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestOAuthConfig(t *testing.T) {
	cfg, err := OAuthConfig([]byte(testOAuthClient))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ClientID != "test" || len(cfg.Scopes) != 1 {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	if _, err := OAuthConfig([]byte("{}")); err == nil {
		t.Fatal("expected error for malformed client")
	}
}

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	want := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := SaveToken(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("token file mode = %v, want 0600", perm)
	}

	data, _ := os.ReadFile(path)
	got, err := LoadToken(data)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken || !got.Expiry.Equal(want.Expiry) {
		t.Fatalf("token mismatch: %+v", got)
	}
}

func TestLoadTokenRejectsEmptyAndInvalid(t *testing.T) {
	if _, err := LoadToken([]byte("invalid-json")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := LoadToken([]byte(`{"token_type":"Bearer"}`)); err == nil {
		t.Fatal("expected error for a token without credentials")
	}
}

func TestTokenSourceFromEnv(t *testing.T) {
	ctx := context.Background()

	t.Run("no oauth client configured", func(t *testing.T) {
		clearOAuthEnv(t)
		ts, err := tokenSourceFromEnv(ctx)
		if err != nil || ts != nil {
			t.Fatalf("got %v, %v; want nil, nil", ts, err)
		}
	})

	t.Run("client without token", func(t *testing.T) {
		clearOAuthEnv(t)
		t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", testOAuthClient)
		if _, err := tokenSourceFromEnv(ctx); !errors.Is(err, ErrMissingToken) {
			t.Fatalf("expected ErrMissingToken, got %v", err)
		}
	})

	t.Run("client and inline token", func(t *testing.T) {
		clearOAuthEnv(t)
		t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", testOAuthClient)
		t.Setenv("GOOGLE_OAUTH_TOKEN_JSON", `{"access_token":"test","token_type":"Bearer","expiry":"2099-01-01T00:00:00Z"}`)
		ts, err := tokenSourceFromEnv(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tok, err := ts.Token()
		if err != nil || tok.AccessToken != "test" {
			t.Fatalf("token = %v, %v", tok, err)
		}
	})

	t.Run("unreadable token file", func(t *testing.T) {
		clearOAuthEnv(t)
		t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", testOAuthClient)
		t.Setenv("GOOGLE_OAUTH_TOKEN_FILE", "/nonexistent/token.json")
		_, err := tokenSourceFromEnv(ctx)
		if err == nil || !strings.Contains(err.Error(), "GOOGLE_OAUTH_TOKEN_FILE") {
			t.Fatalf("expected file error, got %v", err)
		}
	})
}
