package token

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"ffctl/internal/ff"
)

// APIKeyVar is the credentials file variable holding the current token.
const APIKeyVar = "FLATFILE_API_KEY"

// EnvFile is a dotenv-style credentials file. Only the API key line is ever
// rewritten.
type EnvFile struct {
	path string
}

func NewEnvFile(path string) *EnvFile {
	return &EnvFile{path: path}
}

func (f *EnvFile) Path() string {
	return f.path
}

// SetAPIKey replaces every line starting with APIKeyVar, leaving all other
// lines untouched. A missing file is created with empty placeholders; a file
// without the variable gets it appended.
func (f *EnvFile) SetAPIKey(key string) error {
	line := fmt.Sprintf("%s=%q", APIKeyVar, key)

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		content := strings.Join([]string{
			line,
			`FLATFILE_ENVIRONMENT=""`,
			"USERNAME=",
			"PASSWORD=",
		}, "\n") + "\n"
		if err := writeFile(f.path, []byte(content), 0600); err != nil {
			return fmt.Errorf("creating %s: %w", f.path, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", f.path, err)
	}

	lines := strings.SplitAfter(string(data), "\n")
	found := false
	for i, l := range lines {
		if strings.HasPrefix(l, APIKeyVar) {
			lines[i] = line + lineEnding(l)
			found = true
		}
	}
	out := strings.Join(lines, "")
	if !found {
		if out != "" && !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		out += line + "\n"
	}

	if err := writeFile(f.path, []byte(out), 0600); err != nil {
		return fmt.Errorf("writing %s: %w", f.path, err)
	}
	return nil
}

func lineEnding(l string) string {
	switch {
	case strings.HasSuffix(l, "\r\n"):
		return "\r\n"
	case strings.HasSuffix(l, "\n"):
		return "\n"
	}
	return ""
}

var _ ff.CredentialsFile = (*EnvFile)(nil)
