// Package snapshot stores the JSON, CSV and signal files that chain ffctl
// commands together.
package snapshot

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"ffctl/internal/ff"
)

// encodeJSON renders v the way every snapshot is written: four-space
// indentation, HTML characters left alone.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeJSON decodes data into v, keeping numbers as json.Number.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func info(name string, data []byte) *ff.SnapshotInfo {
	sum := sha256.Sum256(data)
	return &ff.SnapshotInfo{
		Name:     name,
		Checksum: hex.EncodeToString(sum[:]),
		Size:     int64(len(data)),
	}
}

func notFound(path string) error {
	return fmt.Errorf("%w: %s (run the command that produces it first)", ff.ErrSnapshotNotFound, path)
}
