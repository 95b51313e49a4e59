package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"golang.org/x/oauth2"
	"golang.org/x/text/language"

	"github.com/codeGROOVE-dev/freetime/pkg/availability"
)

func init() {
	color.NoColor = true
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseOptionsDefaults(t *testing.T) {
	o, err := parseOptions([]string{"-a", "1"}, envMap(nil), io.Discard)
	if err != nil {
		t.Fatalf("parseOptions() error: %v", err)
	}
	if o.format != "text" || o.days != 14 || o.businessStart != 10 || o.businessEnd != 18 || o.bufferMinutes != 30 {
		t.Errorf("unexpected defaults: %+v", o)
	}
	if o.timezone != "Asia/Tokyo" || o.location.String() != "Asia/Tokyo" {
		t.Errorf("timezone = %q (%v)", o.timezone, o.location)
	}
	if o.calendarID != "primary" || o.credentials != "client_secret.json" {
		t.Errorf("calendar = %q, credentials = %q", o.calendarID, o.credentials)
	}
	if o.lang != language.Japanese {
		t.Errorf("lang = %v, want ja", o.lang)
	}
	if !strings.HasSuffix(o.tokenFile, filepath.Join(".credentials", "freetime.json")) {
		t.Errorf("tokenFile = %q", o.tokenFile)
	}

	cfg := o.availabilityConfig()
	if cfg.MinDuration != time.Hour || cfg.Buffer != 30*time.Minute || !cfg.ExcludeHolidays {
		t.Errorf("availabilityConfig() = %+v", cfg)
	}
}

func TestParseOptionsFlagsAndEnv(t *testing.T) {
	env := envMap(map[string]string{
		"FREETIME_TIMEZONE":         "UTC",
		"FREETIME_CALENDAR_ID":      "team@example.com",
		"GOOGLE_CLIENT_SECRET_FILE": "/etc/freetime/secret.json",
		"FREETIME_TOKEN_FILE":       "/tmp/token.json",
		"CACHE_DIR":                 "/tmp/cache",
	})
	o, err := parseOptions([]string{
		"-f", "json", "-a", "2.5", "-t", "-w", "en-US", "--include-holidays",
		"--days", "7", "--business-start", "9", "--business-end", "17", "--buffer", "15",
		"--calendar", "me@example.com",
	}, env, io.Discard)
	if err != nil {
		t.Fatalf("parseOptions() error: %v", err)
	}
	if o.format != "json" || o.minHours != 2.5 || !o.showTotal || !o.includeHolidays || o.days != 7 {
		t.Errorf("flags not applied: %+v", o)
	}
	if o.lang != language.English {
		t.Errorf("lang = %v, want en", o.lang)
	}
	if o.calendarID != "me@example.com" {
		t.Errorf("flag should win over env: calendar = %q", o.calendarID)
	}
	if o.timezone != "UTC" || o.credentials != "/etc/freetime/secret.json" || o.tokenFile != "/tmp/token.json" || o.cacheDir != "/tmp/cache" {
		t.Errorf("env fallbacks not applied: %+v", o)
	}

	cfg := o.availabilityConfig()
	if cfg.MinDuration != 150*time.Minute || cfg.Buffer != 15*time.Minute || cfg.ExcludeHolidays {
		t.Errorf("availabilityConfig() = %+v", cfg)
	}
	ro := o.reportOptions()
	if ro.BusinessStartHour != 9 || ro.MinHours != 2.5 || ro.ExcludeHolidays || !ro.ShowTotal {
		t.Errorf("reportOptions() = %+v", ro)
	}
}

func TestParseOptionsRejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad format", []string{"-f", "xml"}},
		{"bad language", []string{"-w", "fr"}},
		{"bad timezone", []string{"--timezone", "Mars/Olympus"}},
		{"bad holiday source", []string{"--holiday-source", "outlook"}},
		{"zero days", []string{"--days", "0"}},
		{"negative minimum", []string{"-a", "-1"}},
		{"inverted hours", []string{"--business-start", "18", "--business-end", "10"}},
		{"negative buffer", []string{"--buffer", "-5"}},
		{"positional argument", []string{"-a", "1", "extra"}},
		{"unknown flag", []string{"--nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseOptions(tt.args, envMap(nil), io.Discard); err == nil {
				t.Errorf("parseOptions(%v) should fail", tt.args)
			}
		})
	}
}

func TestParseOptionsVersion(t *testing.T) {
	o, err := parseOptions([]string{"--version", "-f", "xml"}, envMap(nil), io.Discard)
	if err != nil {
		t.Fatalf("--version should short-circuit validation: %v", err)
	}
	if !o.version {
		t.Error("version flag not set")
	}
}

func TestExtraHolidayIsRepeatable(t *testing.T) {
	o, err := parseOptions([]string{
		"--holiday-source", "builtin", "--extra-holiday", "2026-12-28", "--extra-holiday", "2026-12-29",
	}, envMap(nil), io.Discard)
	if err != nil {
		t.Fatalf("parseOptions() error: %v", err)
	}
	if len(o.extraHolidays) != 2 || o.extraHolidays[1] != "2026-12-29" {
		t.Errorf("extraHolidays = %v", o.extraHolidays)
	}

	oracle, closeFn, err := holidayOracle(context.Background(), o, http.DefaultClient, discardLogger())
	if err != nil {
		t.Fatalf("holidayOracle() error: %v", err)
	}
	defer closeFn()
	ok, err := oracle.IsHoliday(context.Background(), time.Date(2026, 12, 28, 0, 0, 0, 0, o.location))
	if err != nil || !ok {
		t.Errorf("IsHoliday(2026-12-28) = %v, %v; want custom holiday", ok, err)
	}
}

func TestWrite(t *testing.T) {
	o, err := parseOptions([]string{"-a", "1", "-t", "--daily-summary"}, envMap(nil), io.Discard)
	if err != nil {
		t.Fatalf("parseOptions() error: %v", err)
	}
	start := time.Date(2026, 10, 20, 10, 30, 0, 0, o.location)
	slots := []availability.FreeSlot{{Start: start, End: start.Add(7 * time.Hour), DurationHours: 7}}

	var buf bytes.Buffer
	if err := write(&buf, slots, o); err != nil {
		t.Fatalf("write() error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Found 1 available time slots:", "2026-10-20(火) 10:30 - 17:30", "合計空き時間: 7.00時間", "Free time per day"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	o.format = "json"
	buf.Reset()
	if err := write(&buf, slots, o); err != nil {
		t.Fatalf("write() error: %v", err)
	}
	if !strings.Contains(buf.String(), `"duration_minutes": 420`) || !strings.Contains(buf.String(), `"total_hours": 7`) {
		t.Errorf("unexpected json:\n%s", buf.String())
	}
}

func TestExplain(t *testing.T) {
	tests := []struct {
		kind availability.ErrorKind
		want string
	}{
		{availability.KindAuthorization, "authorize again"},
		{availability.KindQuota, "quota"},
		{availability.KindConnectivity, "could not reach"},
	}
	for _, tt := range tests {
		err := &availability.SourceError{Op: "events.list", Kind: tt.kind, Err: errors.New("boom")}
		if got := explain(err); !strings.Contains(got, tt.want) {
			t.Errorf("explain(%v) = %q, want mention of %q", tt.kind, got, tt.want)
		}
	}
	if got := explain(errors.New("plain")); got != "plain" {
		t.Errorf("explain(plain) = %q", got)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	tok := &oauth2.Token{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer", Expiry: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
	if err := saveToken(path, tok); err != nil {
		t.Fatalf("saveToken() error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %v, want 0600", perm)
	}

	got, err := loadToken(path)
	if err != nil {
		t.Fatalf("loadToken() error: %v", err)
	}
	if got.AccessToken != "at" || got.RefreshToken != "rt" || !got.Expiry.Equal(tok.Expiry) {
		t.Errorf("loadToken() = %+v", got)
	}

	if _, err := loadToken(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing token error = %v, want ErrNotExist", err)
	}
}

func tokenServer(t *testing.T, accessToken string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"`+accessToken+`","refresh_token":"refresh","token_type":"Bearer","expires_in":3600}`) //nolint:errcheck // test server
	}))
}

func TestTokenSourceRunsWebFlowOnce(t *testing.T) {
	srv := tokenServer(t, "fresh")
	defer srv.Close()

	cfg := &oauth2.Config{
		ClientID:    "id",
		RedirectURL: "http://localhost",
		Endpoint:    oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
	}
	path := filepath.Join(t.TempDir(), "token.json")

	var prompt bytes.Buffer
	ts, err := tokenSource(context.Background(), cfg, path, strings.NewReader("the-code\n"), &prompt, discardLogger())
	if err != nil {
		t.Fatalf("tokenSource() error: %v", err)
	}
	if !strings.Contains(prompt.String(), srv.URL+"/auth") {
		t.Errorf("prompt does not show the auth URL:\n%s", prompt.String())
	}
	tok, err := ts.Token()
	if err != nil || tok.AccessToken != "fresh" {
		t.Fatalf("Token() = %v, %v", tok, err)
	}

	// A stored token means no prompt the second time.
	prompt.Reset()
	if _, err := tokenSource(context.Background(), cfg, path, strings.NewReader(""), &prompt, discardLogger()); err != nil {
		t.Fatalf("tokenSource() with stored token error: %v", err)
	}
	if prompt.Len() != 0 {
		t.Errorf("unexpected prompt with a stored token:\n%s", prompt.String())
	}
}

func TestTokenFromWebRequiresCode(t *testing.T) {
	cfg := &oauth2.Config{Endpoint: oauth2.Endpoint{AuthURL: "https://example.com/auth"}}
	if _, err := tokenFromWeb(context.Background(), cfg, strings.NewReader("\n"), io.Discard); err == nil {
		t.Error("tokenFromWeb() should fail on an empty code")
	}
}

func TestPersistingTokenSourceSavesRefreshes(t *testing.T) {
	srv := tokenServer(t, "refreshed")
	defer srv.Close()

	cfg := &oauth2.Config{ClientID: "id", Endpoint: oauth2.Endpoint{TokenURL: srv.URL + "/token"}}
	path := filepath.Join(t.TempDir(), "token.json")
	expired := &oauth2.Token{AccessToken: "old", RefreshToken: "refresh", Expiry: time.Now().Add(-time.Hour)}
	if err := saveToken(path, expired); err != nil {
		t.Fatalf("saveToken() error: %v", err)
	}

	ts, err := tokenSource(context.Background(), cfg, path, strings.NewReader(""), io.Discard, discardLogger())
	if err != nil {
		t.Fatalf("tokenSource() error: %v", err)
	}
	tok, err := ts.Token()
	if err != nil {
		t.Fatalf("Token() error: %v", err)
	}
	if tok.AccessToken != "refreshed" {
		t.Errorf("AccessToken = %q, want refreshed", tok.AccessToken)
	}

	stored, err := loadToken(path)
	if err != nil {
		t.Fatalf("loadToken() error: %v", err)
	}
	if stored.AccessToken != "refreshed" {
		t.Errorf("refreshed token not persisted: %q", stored.AccessToken)
	}
}

func TestLoadOAuthConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client_secret.json")
	secret := `{"installed":{"client_id":"cid","client_secret":"cs","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`
	if err := os.WriteFile(path, []byte(secret), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := loadOAuthConfig(path)
	if err != nil {
		t.Fatalf("loadOAuthConfig() error: %v", err)
	}
	if cfg.ClientID != "cid" || len(cfg.Scopes) != 1 || !strings.Contains(cfg.Scopes[0], "calendar.readonly") {
		t.Errorf("config = %+v", cfg)
	}

	if _, err := loadOAuthConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("missing secret should fail")
	}
}
