package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// loadOAuthConfig reads an installed-app client secret downloaded from the Google Cloud console.
func loadOAuthConfig(path string) (*oauth2.Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading client secret: %w", err)
	}
	cfg, err := google.ConfigFromJSON(b, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing client secret %s: %w", path, err)
	}
	return cfg, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decoding token %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating token file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		_ = f.Close() //nolint:errcheck // the encode error is the one worth reporting
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing token file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing token file: %w", err)
	}
	return nil
}

// tokenFromWeb runs the "open this URL, paste the code" exchange.
func tokenFromWeb(ctx context.Context, cfg *oauth2.Config, in io.Reader, out io.Writer) (*oauth2.Token, error) {
	authURL := cfg.AuthCodeURL("freetime", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(out, "Open the following URL in a browser and authorize access to your calendar:\n\n%s\n\n", authURL)
	fmt.Fprint(out, "Paste the authorization code: ")

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading authorization code: %w", err)
		}
		return nil, errors.New("no authorization code entered")
	}
	code := strings.TrimSpace(scanner.Text())
	if code == "" {
		return nil, errors.New("no authorization code entered")
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return tok, nil
}

// persistingTokenSource writes refreshed tokens back to disk.
type persistingTokenSource struct {
	base   oauth2.TokenSource
	logger *slog.Logger
	last   *oauth2.Token
	path   string
	mu     sync.Mutex
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil || p.last.AccessToken != tok.AccessToken {
		if err := saveToken(p.path, tok); err != nil {
			p.logger.Warn("failed to save refreshed token", "path", p.path, "error", err)
		} else {
			p.logger.Debug("saved refreshed token", "path", p.path, "expiry", tok.Expiry)
		}
		p.last = tok
	}
	return tok, nil
}

// tokenSource returns credentials from tokenPath, running the web flow when none are stored.
func tokenSource(ctx context.Context, cfg *oauth2.Config, tokenPath string, in io.Reader, out io.Writer, logger *slog.Logger) (oauth2.TokenSource, error) {
	tok, err := loadToken(tokenPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Debug("no stored token, starting authorization", "path", tokenPath)
		tok, err = tokenFromWeb(ctx, cfg, in, out)
		if err != nil {
			return nil, err
		}
		if err := saveToken(tokenPath, tok); err != nil {
			return nil, err
		}
		fmt.Fprintf(out, "Saved credentials to %s\n", tokenPath)
	case err != nil:
		return nil, err
	}

	return &persistingTokenSource{
		base:   cfg.TokenSource(ctx, tok),
		last:   tok,
		path:   tokenPath,
		logger: logger,
	}, nil
}
