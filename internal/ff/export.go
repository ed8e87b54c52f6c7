package ff

import (
	"bytes"
	"fmt"
	"path"
	"slices"
	"sort"
	"strings"
)

const encryptedSuffix = ".age"

// exportIDLayout names an export by its UTC start time.
const exportIDLayout = "20060102T150405Z"

// ExportPrefix returns the vault prefix that holds one host's exports.
func ExportPrefix(hostID string) string {
	return path.Join(hostID, "exports") + "/"
}

// ExportKey returns the vault key of one snapshot within an export.
func ExportKey(hostID, exportID, name string) string {
	return path.Join(hostID, "exports", exportID, name)
}

// Export uploads every snapshot file present in the data directory to the
// vault under a new export id. Objects are encrypted when an encryptor is
// configured.
func (s *FFService) Export(hostID string) (string, int, error) {
	if s.vault == nil {
		return "", 0, fmt.Errorf("no vault configured")
	}

	exportID, err := s.newExportID(hostID)
	if err != nil {
		return "", 0, err
	}
	count := 0
	for _, name := range ExportableSnapshots {
		if !s.snapshots.Exists(name) {
			s.logger.Debug("snapshot not present, skipping", "name", name)
			continue
		}
		data, err := s.snapshots.ReadRaw(name)
		if err != nil {
			return "", count, fmt.Errorf("reading %s: %w", name, err)
		}

		key := ExportKey(hostID, exportID, name)
		if s.encryptor != nil {
			var buf bytes.Buffer
			if err := s.encryptor.Encrypt(bytes.NewReader(data), &buf); err != nil {
				return "", count, fmt.Errorf("encrypting %s: %w", name, err)
			}
			data = buf.Bytes()
			key += encryptedSuffix
		}

		if err := s.vault.Put(key, bytes.NewReader(data), int64(len(data))); err != nil {
			return "", count, fmt.Errorf("uploading %s: %w", name, err)
		}
		s.logger.Info("snapshot exported", "key", key, "size", len(data))
		count++
	}

	if count == 0 {
		return "", 0, fmt.Errorf("no snapshots to export")
	}
	fmt.Fprintf(s.out, "Exported %d snapshot(s) as %s\n", count, exportID)
	return exportID, count, nil
}

// newExportID returns the UTC start time as an id, with a "-N" suffix when
// exports from the same second already exist under hostID.
func (s *FFService) newExportID(hostID string) (string, error) {
	base := s.clock.Now().UTC().Format(exportIDLayout)
	for n := 0; ; n++ {
		id := base
		if n > 0 {
			id = fmt.Sprintf("%s-%d", base, n)
		}
		keys, err := s.vault.List(ExportKey(hostID, id, "") + "/")
		if err != nil {
			return "", fmt.Errorf("listing exports: %w", err)
		}
		if len(keys) == 0 {
			return id, nil
		}
	}
}

// ListExports returns the export ids stored for hostID, oldest first.
func (s *FFService) ListExports(hostID string) ([]string, error) {
	if s.vault == nil {
		return nil, fmt.Errorf("no vault configured")
	}
	prefix := ExportPrefix(hostID)
	keys, err := s.vault.List(prefix)
	if err != nil {
		return nil, fmt.Errorf("listing exports: %w", err)
	}
	seen := map[string]bool{}
	var ids []string
	for _, key := range keys {
		id, _, ok := strings.Cut(strings.TrimPrefix(key, prefix), "/")
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// PassphraseFunc is called at most once, when an encrypted object is found.
type PassphraseFunc func() (string, error)

// Import downloads the snapshots of one export and overwrites the local files.
func (s *FFService) Import(hostID, exportID string, passphrase PassphraseFunc) (int, error) {
	if s.vault == nil {
		return 0, fmt.Errorf("no vault configured")
	}
	if exportID == "" || strings.Contains(exportID, "/") {
		return 0, fmt.Errorf("invalid export id %q", exportID)
	}
	prefix := ExportKey(hostID, exportID, "") + "/"
	keys, err := s.vault.List(prefix)
	if err != nil {
		return 0, fmt.Errorf("listing export %s: %w", exportID, err)
	}
	if len(keys) == 0 {
		return 0, fmt.Errorf("export %s not found", exportID)
	}

	var dec DecryptionContext
	count := 0
	for _, key := range keys {
		name := strings.TrimPrefix(key, prefix)
		encrypted := strings.HasSuffix(name, encryptedSuffix)
		name = strings.TrimSuffix(name, encryptedSuffix)
		if !slices.Contains(ExportableSnapshots, name) {
			s.logger.Warn("skipping unknown object in export", "key", key)
			continue
		}

		var buf bytes.Buffer
		if err := s.vault.Get(key, &buf); err != nil {
			return count, fmt.Errorf("downloading %s: %w", key, err)
		}
		data := buf.Bytes()

		if encrypted {
			if dec == nil {
				if dec, err = s.unlock(passphrase); err != nil {
					return count, err
				}
			}
			var plain bytes.Buffer
			if err := dec.Decrypt(bytes.NewReader(data), &plain); err != nil {
				return count, fmt.Errorf("decrypting %s: %w", key, err)
			}
			data = plain.Bytes()
		}

		if _, err := s.snapshots.WriteRaw(name, data); err != nil {
			return count, fmt.Errorf("writing %s: %w", name, err)
		}
		count++
	}

	fmt.Fprintf(s.out, "Imported %d snapshot(s) from %s\n", count, exportID)
	return count, nil
}

func (s *FFService) unlock(passphrase PassphraseFunc) (DecryptionContext, error) {
	if s.encryptor == nil {
		return nil, fmt.Errorf("export is encrypted but no encryption is configured")
	}
	if passphrase == nil {
		return nil, fmt.Errorf("export is encrypted and no passphrase source was given")
	}
	pass, err := passphrase()
	if err != nil {
		return nil, fmt.Errorf("reading passphrase: %w", err)
	}
	dec, err := s.encryptor.Unlock(pass)
	if err != nil {
		return nil, fmt.Errorf("unlocking private key: %w", err)
	}
	return dec, nil
}
