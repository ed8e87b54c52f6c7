package token

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEnvFile_SetAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		initial *string
		want    string
	}{
		{
			name: "creates file with placeholders",
			want: "FLATFILE_API_KEY=\"tok\"\nFLATFILE_ENVIRONMENT=\"\"\nUSERNAME=\nPASSWORD=\n",
		},
		{
			name:    "replaces key and keeps other lines",
			initial: ptr("# comment\nFLATFILE_API_KEY=\"old\"\nFLATFILE_ENVIRONMENT=\"us_env_1\"\nOTHER = spaced \n"),
			want:    "# comment\nFLATFILE_API_KEY=\"tok\"\nFLATFILE_ENVIRONMENT=\"us_env_1\"\nOTHER = spaced \n",
		},
		{
			name:    "replaces every matching line",
			initial: ptr("FLATFILE_API_KEY=a\nX=1\nFLATFILE_API_KEY=b"),
			want:    "FLATFILE_API_KEY=\"tok\"\nX=1\nFLATFILE_API_KEY=\"tok\"",
		},
		{
			name:    "keeps CRLF line endings",
			initial: ptr("FLATFILE_API_KEY=a\r\nX=1\r\n"),
			want:    "FLATFILE_API_KEY=\"tok\"\r\nX=1\r\n",
		},
		{
			name:    "appends when missing",
			initial: ptr("X=1"),
			want:    "X=1\nFLATFILE_API_KEY=\"tok\"\n",
		},
		{
			name:    "appends to empty file",
			initial: ptr(""),
			want:    "FLATFILE_API_KEY=\"tok\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ".env")
			if tt.initial != nil {
				if err := os.WriteFile(path, []byte(*tt.initial), 0600); err != nil {
					t.Fatal(err)
				}
			}

			if err := NewEnvFile(path).SetAPIKey("tok"); err != nil {
				t.Fatalf("SetAPIKey() error = %v", err)
			}

			got, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != tt.want {
				t.Errorf("file = %q, want %q", got, tt.want)
			}
		})
	}
}
