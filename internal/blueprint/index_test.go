package blueprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("creating dir: %v", err)
		}
		if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
			t.Fatalf("writing %s: %v", f, err)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"foo_bar_blueprint.json", "Foo Bar"},
		{"EMPLOYEE_blueprint.js", "Employee"},
		{"  spaced__out_blueprint.ts", "Spaced Out"},
		{"blueprint.json", ""},
		{"a_blueprint_b_blueprint.json", "A"},
		{"mIxEd cAse_blueprint.json", "Mixed Case"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			if got := DisplayName(tt.file); got != tt.want {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.file, got, tt.want)
			}
		})
	}
}

func TestIndex(t *testing.T) {
	t.Run("indexes matching files with folder basename", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root,
			"Templates/foo_bar_blueprint.json",
			"Templates/readme.md",
			"Templates/Blueprint_upper.json",
		)

		got, err := Index(root, nil)
		if err != nil {
			t.Fatalf("Index() error = %v", err)
		}
		want := []Entry{{Name: "Foo Bar", File: "foo_bar_blueprint.json", Folder: "Templates"}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Index() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("skips underscore directories and everything below them", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root,
			"_drafts/wip_blueprint.json",
			"_drafts/nested/deep_blueprint.json",
			"live/hr_blueprint.json",
		)

		got, err := Index(root, nil)
		if err != nil {
			t.Fatalf("Index() error = %v", err)
		}
		want := []Entry{{Name: "Hr", File: "hr_blueprint.json", Folder: "live"}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Index() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("underscore root is skipped", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "_archive")
		writeTree(t, root,
			"top_blueprint.json",
			"team/hr_blueprint.json",
		)

		for _, r := range []string{root, root + string(filepath.Separator)} {
			got, err := Index(r, nil)
			if err != nil {
				t.Fatalf("Index(%q) error = %v", r, err)
			}
			if diff := cmp.Diff([]Entry{}, got); diff != "" {
				t.Errorf("Index(%q) mismatch (-want +got):\n%s", r, diff)
			}
		}
	})

	t.Run("applies configured and file patterns", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root,
			"a/one_blueprint.json",
			"a/one_blueprint.bak",
			"archive/old_blueprint.json",
			"b/two_blueprint.json",
		)
		if err := os.WriteFile(filepath.Join(root, IgnoreFileName), []byte("archive\n"), 0644); err != nil {
			t.Fatalf("writing ignore file: %v", err)
		}

		got, err := Index(root, []string{"*.bak"})
		if err != nil {
			t.Fatalf("Index() error = %v", err)
		}
		want := []Entry{
			{Name: "One", File: "one_blueprint.json", Folder: "a"},
			{Name: "Two", File: "two_blueprint.json", Folder: "b"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("Index() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("missing root is an error", func(t *testing.T) {
		if _, err := Index(filepath.Join(t.TempDir(), "nope"), nil); err == nil {
			t.Error("Index() expected error for missing root")
		}
	})
}

func TestEncodeCSV(t *testing.T) {
	data, err := EncodeCSV([]Entry{
		{Name: "Foo Bar", File: "foo_bar_blueprint.json", Folder: "Templates"},
		{Name: "Quoted, Name", File: "q_blueprint.json", Folder: "x"},
	})
	if err != nil {
		t.Fatalf("EncodeCSV() error = %v", err)
	}
	want := "Foo Bar,foo_bar_blueprint.json,Templates\r\n\"Quoted, Name\",q_blueprint.json,x\r\n"
	if got := string(data); got != want {
		t.Errorf("EncodeCSV() = %q, want %q", got, want)
	}
}
