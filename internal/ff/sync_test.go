package ff_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ffctl/internal/ff"
	"ffctl/internal/testutil"
)

func seedPlatform(p *testutil.FakePlatform) {
	p.Environments = []ff.Record{
		{"id": "us_env_dev", "name": "dev"},
		{"id": "us_env_prod", "name": "prod"},
	}
	p.Spaces["us_env_dev"] = []ff.Record{{"id": "us_sp_1", "name": "One"}}
	p.Spaces["us_env_prod"] = []ff.Record{{"id": "us_sp_2", "name": "Two"}}
	p.Workbooks["us_sp_1"] = []ff.Record{{"id": "us_wb_1", "name": "Contacts"}}
	p.Guests["us_sp_1"] = []ff.Record{guest("g1", "us_sp_1")}
	p.Guests["us_sp_2"] = []ff.Record{guest("g2", "us_sp_2")}
}

func TestSync(t *testing.T) {
	f := newFixture(t)
	seedPlatform(f.platform)

	res, err := f.svc.Sync(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	want := &ff.SyncResult{Environments: 2, Spaces: 2, Workbooks: 1, Guests: 2}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("Sync() mismatch (-want +got):\n%s", diff)
	}

	wantCalls := []string{
		"GET /environments",
		"GET /spaces us_env_dev",
		"GET /spaces us_env_prod",
		"GET /workbooks us_sp_1",
		"GET /workbooks us_sp_2",
		"GET /guests us_sp_1",
		"GET /guests us_sp_2",
	}
	if diff := cmp.Diff(wantCalls, f.platform.Calls()); diff != "" {
		t.Errorf("platform calls mismatch (-want +got):\n%s", diff)
	}
	for _, name := range []string{ff.SnapshotEnvironments, ff.SnapshotSpaces, ff.SnapshotWorkbooks, ff.SnapshotGuests} {
		if !f.snaps.Exists(name) {
			t.Errorf("snapshot %s not written", name)
		}
	}
}

func TestSync_MergesPartialFailures(t *testing.T) {
	f := newFixture(t)
	seedPlatform(f.platform)
	f.platform.SpaceErrs["us_env_prod"] = testutil.HTTPError(http.StatusNotFound, "/spaces")
	f.platform.GuestErrs["us_sp_1"] = testutil.HTTPError(http.StatusBadRequest, "/guests")

	res, err := f.svc.Sync(context.Background(), "tok")
	pe, ok := ff.AsPartial(err)
	if !ok {
		t.Fatalf("Sync() error = %v, want PartialError", err)
	}
	if pe.Operation != "sync" || len(pe.Failures) != 2 {
		t.Errorf("PartialError = %+v, want 2 sync failures", pe)
	}
	if res.Spaces != 1 || res.Guests != 0 {
		t.Errorf("Sync() = %+v, want 1 space and 0 guests", res)
	}
}

func TestSync_FatalStopsChain(t *testing.T) {
	f := newFixture(t)
	seedPlatform(f.platform)
	f.platform.WorkbookErrs["us_sp_1"] = testutil.HTTPError(http.StatusUnauthorized, "/workbooks")

	if _, err := f.svc.Sync(context.Background(), "tok"); err == nil {
		t.Fatal("Sync() expected error, got nil")
	}
	if f.snaps.Exists(ff.SnapshotGuests) {
		t.Error("guests fetched after a fatal error")
	}
}
