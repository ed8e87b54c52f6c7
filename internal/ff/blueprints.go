package ff

import (
	"fmt"

	"ffctl/internal/blueprint"
)

// IndexBlueprints walks root for blueprint files and overwrites the CSV index.
func (s *FFService) IndexBlueprints(root string, ignore []string) ([]blueprint.Entry, error) {
	entries, err := blueprint.Index(root, ignore)
	if err != nil {
		return nil, fmt.Errorf("indexing blueprints: %w", err)
	}
	data, err := blueprint.EncodeCSV(entries)
	if err != nil {
		return nil, err
	}
	if _, err := s.snapshots.WriteRaw(SnapshotBlueprints, data); err != nil {
		return nil, fmt.Errorf("writing blueprint index: %w", err)
	}
	s.logger.Info("blueprints indexed", "root", root, "count", len(entries))
	fmt.Fprintf(s.out, "Blueprint list has been saved to %s\n", s.snapshots.Path(SnapshotBlueprints))
	return entries, nil
}
