// Command sheets-auth runs the OAuth consent flow once and stores the token
// the ledger worker uses to write the spreadsheet mirror.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/gladysonss/opensheets-app-sub000/internal/cli"
	"github.com/gladysonss/opensheets-app-sub000/internal/log"
	gsheet "github.com/gladysonss/opensheets-app-sub000/internal/sheets/google"
)

const authTimeout = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := log.New(log.Config{Level: log.ParseLevel(os.Getenv("LOG_LEVEL")), Component: log.ComponentApp, Output: os.Stderr})

	clientJSON, err := gsheet.OAuthClientFromEnv()
	if err == nil && clientJSON == nil {
		err = errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
	}
	if err != nil {
		cli.Fatal(logger, "OAuth client unavailable", err)
	}
	cfg, err := gsheet.OAuthConfig(clientJSON)
	if err != nil {
		cli.Fatal(logger, "OAuth client unavailable", err)
	}

	port := os.Getenv("OAUTH_REDIRECT_PORT")
	if port == "" {
		port = "8085"
	}
	cfg.RedirectURL = "http://localhost:" + port + "/callback"

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	tok, err := authorize(ctx, cfg, ":"+port)
	if err != nil {
		cli.Fatal(logger, "Authorization failed", err)
	}

	out := os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")
	if out == "" {
		out = "token.json"
	}
	if err := gsheet.SaveToken(out, tok); err != nil {
		cli.Fatal(logger, "Failed to save token", err)
	}
	logger.Info("Saved OAuth token", "path", out)
}

// authorize serves the redirect callback on addr and exchanges the returned
// code for a token.
func authorize(ctx context.Context, cfg *oauth2.Config, addr string) (*oauth2.Token, error) {
	state := uuid.NewString()
	codes := make(chan string, 1)
	failures := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			select {
			case failures <- fmt.Errorf("consent denied: %s", q.Get("error")):
			default:
			}
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
		default:
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
			select {
			case codes <- q.Get("code"):
			default:
			}
		}
	})
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failures <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Open this URL to authorize:\n%s\n", cfg.AuthCodeURL(state, oauth2.AccessTypeOffline))

	select {
	case code := <-codes:
		tok, err := cfg.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("token exchange: %w", err)
		}
		return tok, nil
	case err := <-failures:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("authorization aborted: %w", ctx.Err())
	}
}
