package ff_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"ffctl/internal/ff"
	"ffctl/internal/snapshot"
	"ffctl/internal/testutil"
	"ffctl/internal/vault"
)

func TestExportImport_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		encrypted bool
	}{
		{name: "plain"},
		{name: "encrypted", encrypted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := testutil.NewTestVault()
			var enc ff.Encryptor
			if tt.encrypted {
				enc = testutil.NewTestEncryptor("hunter2")
			}
			f := newFixture(t, func(d *ff.Deps) {
				d.Vault = v
				d.Encryptor = enc
			})
			f.seed(t, ff.SnapshotEnvironments, devAndProd())
			f.seed(t, ff.SnapshotSpaces, twoSpaces())
			if _, err := f.snaps.WriteRaw(ff.SnapshotBlueprints, []byte("Orders,orders_blueprint.json,sales\r\n")); err != nil {
				t.Fatal(err)
			}
			// Signal files are not exported.
			if _, err := f.snaps.WriteRaw(ff.SignalSecretKey, []byte("sk")); err != nil {
				t.Fatal(err)
			}

			exportID, count, err := f.svc.Export("host-1")
			if err != nil {
				t.Fatalf("Export() error = %v", err)
			}
			if count != 3 {
				t.Errorf("Export() count = %d, want 3", count)
			}
			if exportID != "20250602T090000Z" {
				t.Errorf("Export() id = %q, want %q", exportID, "20250602T090000Z")
			}

			keys, err := v.List(ff.ExportPrefix("host-1"))
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			for _, key := range keys {
				if tt.encrypted != strings.HasSuffix(key, ".age") {
					t.Errorf("key %q: encrypted = %v", key, tt.encrypted)
				}
			}

			restored := snapshot.NewMemoryStore()
			g := newFixture(t, func(d *ff.Deps) {
				d.Vault = v
				d.Encryptor = enc
				d.Snapshots = restored
			})
			asked := 0
			n, err := g.svc.Import("host-1", exportID, func() (string, error) {
				asked++
				return "hunter2", nil
			})
			if err != nil {
				t.Fatalf("Import() error = %v", err)
			}
			if n != 3 {
				t.Errorf("Import() count = %d, want 3", n)
			}
			wantAsked := 0
			if tt.encrypted {
				wantAsked = 1
			}
			if asked != wantAsked {
				t.Errorf("passphrase requested %d times, want %d", asked, wantAsked)
			}

			for _, name := range []string{ff.SnapshotEnvironments, ff.SnapshotSpaces, ff.SnapshotBlueprints} {
				if got, want := restored.String(name), f.snaps.String(name); got != want {
					t.Errorf("%s = %q, want %q", name, got, want)
				}
			}
			if restored.Exists(ff.SignalSecretKey) {
				t.Error("signal file was exported")
			}
		})
	}
}

func TestExport_NothingToExport(t *testing.T) {
	f := newFixture(t, func(d *ff.Deps) { d.Vault = testutil.NewTestVault() })

	if _, _, err := f.svc.Export("host-1"); err == nil {
		t.Error("Export() expected error with no snapshots, got nil")
	}
}

func TestExport_NoVault(t *testing.T) {
	f := newFixture(t)
	f.seed(t, ff.SnapshotEnvironments, devAndProd())

	if _, _, err := f.svc.Export("host-1"); err == nil {
		t.Error("Export() expected error without a vault, got nil")
	}
}

func TestExport_SameSecondGetsNewID(t *testing.T) {
	v := testutil.NewTestVault()
	f := newFixture(t, func(d *ff.Deps) { d.Vault = v })
	f.seed(t, ff.SnapshotEnvironments, devAndProd())

	var ids []string
	for i := 0; i < 3; i++ {
		id, _, err := f.svc.Export("host-1")
		if err != nil {
			t.Fatalf("Export() #%d error = %v", i+1, err)
		}
		ids = append(ids, id)
	}
	want := []string{"20250602T090000Z", "20250602T090000Z-1", "20250602T090000Z-2"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("export ids mismatch (-want +got):\n%s", diff)
	}

	got, err := f.svc.ListExports("host-1")
	if err != nil {
		t.Fatalf("ListExports() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListExports() mismatch (-want +got):\n%s", diff)
	}

	// A later second starts again without a suffix.
	f.clock.Advance(time.Second)
	id, _, err := f.svc.Export("host-1")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if id != "20250602T090001Z" {
		t.Errorf("Export() id = %q, want %q", id, "20250602T090001Z")
	}
}

func TestListExports(t *testing.T) {
	v := vault.NewMemoryVault("test")
	for _, key := range []string{
		"host-1/exports/20250602T090000Z/spaces.json",
		"host-1/exports/20250601T090000Z/spaces.json",
		"host-1/exports/20250601T090000Z/users.json",
		"host-2/exports/20250603T090000Z/spaces.json",
	} {
		if err := v.Put(key, bytes.NewReader(nil), 0); err != nil {
			t.Fatal(err)
		}
	}
	f := newFixture(t, func(d *ff.Deps) { d.Vault = v })

	got, err := f.svc.ListExports("host-1")
	if err != nil {
		t.Fatalf("ListExports() error = %v", err)
	}
	want := []string{"20250601T090000Z", "20250602T090000Z"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListExports() mismatch (-want +got):\n%s", diff)
	}
}

func TestImport_Errors(t *testing.T) {
	v := testutil.NewTestVault()
	enc := testutil.NewTestEncryptor("right")
	f := newFixture(t, func(d *ff.Deps) {
		d.Vault = v
		d.Encryptor = enc
	})
	f.seed(t, ff.SnapshotUsers, []ff.Record{{"id": "u1"}})
	exportID, _, err := f.svc.Export("host-1")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	tests := []struct {
		name       string
		exportID   string
		passphrase ff.PassphraseFunc
	}{
		{name: "empty id", exportID: ""},
		{name: "id with slash", exportID: "../x"},
		{name: "unknown export", exportID: "19990101T000000Z"},
		{name: "wrong passphrase", exportID: exportID, passphrase: func() (string, error) { return "wrong", nil }},
		{name: "passphrase error", exportID: exportID, passphrase: func() (string, error) { return "", errors.New("no tty") }},
		{name: "no passphrase source", exportID: exportID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restored := snapshot.NewMemoryStore()
			g := newFixture(t, func(d *ff.Deps) {
				d.Vault = v
				d.Encryptor = enc
				d.Snapshots = restored
			})

			if _, err := g.svc.Import("host-1", tt.exportID, tt.passphrase); err == nil {
				t.Fatal("Import() expected error, got nil")
			}
			if restored.Exists(ff.SnapshotUsers) {
				t.Error("snapshot written despite import failure")
			}
		})
	}
}
