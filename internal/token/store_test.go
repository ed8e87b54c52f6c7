package token

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ffctl/internal/ff"
)

func TestFileTokenStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access_token.json")
	store := NewFileTokenStore(path)

	fields := ff.Record{
		"access_token": "tok",
		"expires":      "Mon, 02 Jan 2034 15:04:05 GMT",
		"token_type":   "Bearer",
		"expires_in":   json.Number("3600"),
	}
	if err := store.Save(fields); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := &ff.Token{AccessToken: "tok", Expires: "Mon, 02 Jan 2034 15:04:05 GMT", TokenType: "Bearer"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	// Extra fields are kept in the file.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("cache is not JSON: %v", err)
	}
	if raw["expires_in"] != float64(3600) {
		t.Errorf("expires_in = %v, want 3600", raw["expires_in"])
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("cache permissions = %o, want 600", perm)
	}
}

func TestFileTokenStore_LoadNotAuthenticated(t *testing.T) {
	tests := []struct {
		name    string
		content *string
	}{
		{name: "missing file"},
		{name: "malformed JSON", content: ptr("{not json")},
		{name: "no access token", content: ptr(`{"expires":"x"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "access_token.json")
			if tt.content != nil {
				if err := os.WriteFile(path, []byte(*tt.content), 0600); err != nil {
					t.Fatal(err)
				}
			}

			_, err := NewFileTokenStore(path).Load()
			if !errors.Is(err, ff.ErrNotAuthenticated) {
				t.Errorf("Load() error = %v, want ErrNotAuthenticated", err)
			}
		})
	}
}

func ptr(s string) *string { return &s }
