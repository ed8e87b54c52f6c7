package app

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ffctl/internal/config"
	"ffctl/internal/ff"
	"ffctl/internal/testutil"
)

// fakeAPI serves canned platform responses and counts the requests it saw.
type fakeAPI struct {
	*httptest.Server
	requests atomic.Int64
}

// newFakeAPI starts a fakeAPI. Every path but /auth requires the token that
// /auth hands out.
func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{}
	responses := map[string]string{
		"/auth":         `{"data":{"accessToken":"tok-1","expires":"Tue, 03 Jun 2025 09:00:00 GMT","tokenType":"Bearer"}}`,
		"/environments": `{"data":[{"id":"us_env_dev","accountId":"us_acc_1","name":"Development","isProd":false}]}`,
		"/spaces":       `{"data":[{"id":"us_sp_1","name":"Onboarding","environmentId":"us_env_dev"}]}`,
		"/workbooks":    `{"data":[{"id":"us_wb_1","name":"Contacts","spaceId":"us_sp_1"}]}`,
		"/guests":       `{"data":[{"id":"us_g_1","email":"guest@example.com","spaces":[{"id":"us_sp_1"}]}]}`,
	}
	api.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.requests.Add(1)
		body, ok := responses[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.URL.Path != "/auth" && r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"errors":[{"message":"bad token"}]}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(api.Close)
	return api
}

func newTestConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.NewConfig("host-1", base)
	cfg.API.BaseURL = baseURL
	cfg.API.ClientID = "cid"
	cfg.API.Secret = "csecret"
	cfg.Database = config.DatabaseConfig{Type: "memory"}
	cfg.Vaults = []config.VaultConfig{{Type: "memory", Name: "test"}}
	cfg.Encryption = config.EncryptionConfig{Type: "test"}
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, opts Options) (*FFApp, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	opts.Out = &out
	if opts.Stderr == nil {
		opts.Stderr = &bytes.Buffer{}
	}
	opts.Clock = testutil.FixedClock()
	opts.IDs = testutil.NewStubIDGenerator()
	a, err := NewFFApp(context.Background(), cfg, opts)
	if err != nil {
		t.Fatalf("NewFFApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a, &out
}

func TestFFApp_SyncRecordsRun(t *testing.T) {
	srv := newFakeAPI(t)
	cfg := newTestConfig(t, srv.URL)
	a, out := newTestApp(t, cfg, Options{Operation: "Sync"})

	res, err := a.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	want := &ff.SyncResult{Environments: 1, Spaces: 1, Workbooks: 1, Guests: 1}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("Sync() mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out.String(), "Synced 1 environments, 1 spaces, 1 workbooks, 1 guests") {
		t.Errorf("output missing summary: %q", out.String())
	}

	for _, name := range []string{ff.SnapshotToken, ff.SnapshotEnvironments, ff.SnapshotSpaces, ff.SnapshotWorkbooks, ff.SnapshotGuests} {
		if _, err := os.Stat(filepath.Join(cfg.DataDir, name)); err != nil {
			t.Errorf("snapshot %s not written: %v", name, err)
		}
	}

	env, err := os.ReadFile(cfg.Credentials.EnvFile)
	if err != nil {
		t.Fatalf("reading env file: %v", err)
	}
	if !strings.Contains(string(env), `FLATFILE_API_KEY="tok-1"`) {
		t.Errorf("env file = %q, want API key line", env)
	}

	runs, err := a.GetHistory(10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("GetHistory() = %d runs, want 1", len(runs))
	}
	if runs[0].RunID != "run-1" || runs[0].Operation != "Sync" || runs[0].Status != ff.RunRunning {
		t.Errorf("run = %+v, want running Sync", runs[0])
	}

	_, snaps, err := a.GetRun(runs[0].ID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	var names []string
	for _, s := range snaps {
		names = append(names, s.Name)
	}
	wantNames := []string{ff.SnapshotEnvironments, ff.SnapshotSpaces, ff.SnapshotWorkbooks, ff.SnapshotGuests}
	if diff := cmp.Diff(wantNames, names); diff != "" {
		t.Errorf("recorded snapshots mismatch (-want +got):\n%s", diff)
	}

	if a.op.Status != ff.RunSuccess {
		t.Errorf("op.Status = %q, want %q", a.op.Status, ff.RunSuccess)
	}
}

func TestFFApp_AuthenticateReusesFreshCache(t *testing.T) {
	srv := newFakeAPI(t)
	cfg := newTestConfig(t, srv.URL)
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		t.Fatal(err)
	}
	cached := []byte("{\n    \"access_token\": \"tok-1\",\n    \"expires\": \"Tue, 03 Jun 2025 08:00:00 GMT\",\n    \"token_type\": \"Bearer\"\n}\n")
	cachePath := filepath.Join(cfg.DataDir, ff.SnapshotToken)
	if err := os.WriteFile(cachePath, cached, 0600); err != nil {
		t.Fatal(err)
	}

	a, _ := newTestApp(t, cfg, Options{Operation: "Authenticate"})
	tok, err := a.Authenticate(context.Background(), false)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if tok != "tok-1" {
		t.Errorf("Authenticate() = %q, want %q", tok, "tok-1")
	}
	if n := srv.requests.Load(); n != 0 {
		t.Errorf("server saw %d requests, want 0", n)
	}
	got, err := os.ReadFile(cachePath)
	if err != nil {
		t.Fatalf("reading token cache: %v", err)
	}
	if diff := cmp.Diff(string(cached), string(got)); diff != "" {
		t.Errorf("token cache rewritten (-want +got):\n%s", diff)
	}

	if _, err := a.Authenticate(context.Background(), true); err != nil {
		t.Fatalf("Authenticate(force) error = %v", err)
	}
	if n := srv.requests.Load(); n != 1 {
		t.Errorf("server saw %d requests after force, want 1", n)
	}
	if got, _ := os.ReadFile(cachePath); bytes.Equal(got, cached) {
		t.Error("forced Authenticate() left the token cache untouched")
	}
}

func TestFFApp_ReadOnlyCommandsDoNotRecord(t *testing.T) {
	srv := newFakeAPI(t)
	cfg := newTestConfig(t, srv.URL)
	a, _ := newTestApp(t, cfg, Options{Operation: "NumberedEnvironments"})

	if err := os.WriteFile(filepath.Join(cfg.DataDir, ff.SnapshotEnvironments),
		[]byte(`[{"id":"us_env_dev","name":"Development"}]`), 0644); err != nil {
		t.Fatal(err)
	}

	envs, err := a.NumberedEnvironments()
	if err != nil {
		t.Fatalf("NumberedEnvironments() error = %v", err)
	}
	if len(envs) != 1 {
		t.Errorf("NumberedEnvironments() = %d, want 1", len(envs))
	}
	if a.op.Persisted() {
		t.Error("read-only command persisted a run")
	}
}

func TestFFApp_SkipAuthWithoutCache(t *testing.T) {
	srv := newFakeAPI(t)
	cfg := newTestConfig(t, srv.URL)
	a, _ := newTestApp(t, cfg, Options{Operation: "ListSpaces", SkipAuth: true})

	_, err := a.ListSpaces(context.Background())
	if !errors.Is(err, ff.ErrNotAuthenticated) {
		t.Fatalf("ListSpaces() error = %v, want ErrNotAuthenticated", err)
	}
	if a.op.Status != ff.RunError {
		t.Errorf("op.Status = %q, want %q", a.op.Status, ff.RunError)
	}
}

func TestFFApp_ExportImportRoundTrip(t *testing.T) {
	srv := newFakeAPI(t)
	cfg := newTestConfig(t, srv.URL)
	prompter := NewPrompter(strings.NewReader("passphrase\n"), &bytes.Buffer{})
	a, _ := newTestApp(t, cfg, Options{Operation: "Export", Prompter: prompter})

	if _, err := a.ListEnvironments(context.Background()); err != nil {
		t.Fatalf("ListEnvironments() error = %v", err)
	}
	envPath := filepath.Join(cfg.DataDir, ff.SnapshotEnvironments)
	original, err := os.ReadFile(envPath)
	if err != nil {
		t.Fatal(err)
	}

	id, count, err := a.Export()
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Export() count = %d, want 1", count)
	}

	ids, err := a.ListExports()
	if err != nil {
		t.Fatalf("ListExports() error = %v", err)
	}
	if diff := cmp.Diff([]string{id}, ids); diff != "" {
		t.Errorf("ListExports() mismatch (-want +got):\n%s", diff)
	}

	if err := os.WriteFile(envPath, []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Import(id); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	got, err := os.ReadFile(envPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, original) {
		t.Errorf("imported environments = %q, want %q", got, original)
	}
}

func TestFFApp_IndexBlueprintsDefaultsToConfig(t *testing.T) {
	srv := newFakeAPI(t)
	cfg := newTestConfig(t, srv.URL)
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "Sales"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "Sales", "lead_intake_blueprint.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg.Blueprints.Root = root
	a, _ := newTestApp(t, cfg, Options{Operation: "IndexBlueprints"})

	entries, err := a.IndexBlueprints("")
	if err != nil {
		t.Fatalf("IndexBlueprints() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("IndexBlueprints() = %d entries, want 1", len(entries))
	}
	if _, err := os.Stat(filepath.Join(cfg.DataDir, ff.SnapshotBlueprints)); err != nil {
		t.Errorf("blueprint index not written: %v", err)
	}
}

func TestNewFFApp_RequiresMigratedHistory(t *testing.T) {
	srv := newFakeAPI(t)
	cfg := newTestConfig(t, srv.URL)
	cfg.Database = config.DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(cfg.BaseDir, "db")}

	_, err := NewFFApp(context.Background(), cfg, Options{Operation: "ListSpaces", Out: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
	if err == nil {
		t.Fatal("NewFFApp() expected error for unmigrated history, got nil")
	}

	if err := InitHistory(cfg); err != nil {
		t.Fatalf("InitHistory() error = %v", err)
	}
	a, err := NewFFApp(context.Background(), cfg, Options{Operation: "ListSpaces", Out: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("NewFFApp() after InitHistory error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestGenerateKeys(t *testing.T) {
	cfg := config.NewConfig("host-1", t.TempDir())

	if err := GenerateKeys(cfg, "passphrase"); err != nil {
		t.Fatalf("GenerateKeys() error = %v", err)
	}
	for _, p := range []string{cfg.Encryption.PublicKeyPath, cfg.Encryption.PrivateKeyPath} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("key file %s not written: %v", p, err)
		}
	}
	if err := GenerateKeys(cfg, "passphrase"); err == nil {
		t.Error("GenerateKeys() expected error when keys exist, got nil")
	}
}
