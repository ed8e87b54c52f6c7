// Package blueprint builds the local index of blueprint template files.
package blueprint

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Marker is the substring that makes a file a blueprint.
const Marker = "blueprint"

// Entry is one indexed blueprint file.
type Entry struct {
	Name   string // display name derived from the file name
	File   string // file name
	Folder string // basename of the containing directory
}

// DisplayName derives the human-readable name of a blueprint file: the text
// before the first Marker, underscores as spaces, each word capitalised.
func DisplayName(fileName string) string {
	prefix, _, _ := strings.Cut(fileName, Marker)
	words := strings.Fields(strings.ReplaceAll(prefix, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}

// Index walks root in lexical order and returns an entry for every file whose
// name contains Marker. Directories whose name starts with '_', root included,
// are skipped, as are paths matched by ignore patterns or the root's ignore
// file.
func Index(root string, ignore []string) ([]Entry, error) {
	filePatterns, err := ReadIgnoreFile(filepath.Join(root, IgnoreFileName))
	if err != nil {
		return nil, err
	}
	matcher := NewIgnoreMatcher(append(append([]string{}, ignore...), filePatterns...))

	entries := []Entry{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			if strings.HasPrefix(filepath.Base(path), "_") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), "_") || matcher.Match(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.Contains(d.Name(), Marker) || matcher.Match(rel) {
			return nil
		}
		entries = append(entries, Entry{
			Name:   DisplayName(d.Name()),
			File:   d.Name(),
			Folder: filepath.Base(filepath.Dir(path)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return entries, nil
}

// EncodeCSV renders entries as CSV rows of (name, file, folder) with CRLF
// line endings and no header row.
func EncodeCSV(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.UseCRLF = true
	for _, e := range entries {
		if err := w.Write([]string{e.Name, e.File, e.Folder}); err != nil {
			return nil, fmt.Errorf("encoding csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encoding csv: %w", err)
	}
	return buf.Bytes(), nil
}
