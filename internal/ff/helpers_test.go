package ff_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"ffctl/internal/ff"
	"ffctl/internal/snapshot"
	"ffctl/internal/testutil"
	"ffctl/internal/token"
)

// fixture bundles a service with the fakes behind it.
type fixture struct {
	svc      *ff.FFService
	platform *testutil.FakePlatform
	snaps    *snapshot.MemoryStore
	tokens   *token.FileTokenStore
	creds    *testutil.CredentialsRecorder
	clock    *testutil.StubClock
	out      *bytes.Buffer
}

func newFixture(t *testing.T, mods ...func(*ff.Deps)) *fixture {
	t.Helper()
	f := &fixture{
		platform: testutil.NewFakePlatform(),
		snaps:    snapshot.NewMemoryStore(),
		tokens:   token.NewFileTokenStore(filepath.Join(t.TempDir(), ff.SnapshotToken)),
		creds:    &testutil.CredentialsRecorder{},
		clock:    testutil.FixedClock(),
		out:      &bytes.Buffer{},
	}
	deps := ff.Deps{
		Platform:    f.platform,
		Snapshots:   f.snaps,
		Tokens:      f.tokens,
		Credentials: f.creds,
		Clock:       f.clock,
		Out:         f.out,
	}
	for _, mod := range mods {
		mod(&deps)
	}
	f.svc = ff.NewFFService(deps)
	return f
}

// seed writes v as a snapshot.
func (f *fixture) seed(t *testing.T, name string, v any) {
	t.Helper()
	if _, err := f.snaps.WriteJSON(name, v); err != nil {
		t.Fatalf("seeding %s: %v", name, err)
	}
}

// snapshot decodes a written snapshot into generic JSON for comparison.
func (f *fixture) snapshot(t *testing.T, name string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(f.snaps.String(name)), &v); err != nil {
		t.Fatalf("decoding %s: %v (content %q)", name, err, f.snaps.String(name))
	}
	return v
}

func devAndProd() []ff.Environment {
	return []ff.Environment{
		{ID: "us_env_dev", AccountID: "us_acc_1", Name: "dev", GuestAuthentication: []string{"magic_link"}, Features: map[string]any{}},
		{ID: "us_env_prod", AccountID: "us_acc_1", Name: "prod", IsProduction: true, GuestAuthentication: []string{}, Features: map[string]any{}},
	}
}

func twoSpaces() []ff.Space {
	return []ff.Space{
		{ID: "us_sp_b", Name: "Beta", EnvironmentID: "us_env_dev", EnvironmentName: "dev"},
		{ID: "us_sp_a", Name: "Alpha", EnvironmentID: "us_env_prod", EnvironmentName: "prod"},
	}
}
