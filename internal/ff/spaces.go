package ff

import (
	"context"
	"fmt"
)

// ListSpaces fetches the non-archived spaces of every environment in the
// environments snapshot and overwrites the spaces snapshot.
func (s *FFService) ListSpaces(ctx context.Context, token string) ([]Space, error) {
	envs, err := s.LoadEnvironments()
	if err != nil {
		return nil, err
	}

	p := &partial{operation: "list spaces"}
	all := make([]Space, 0)
	for _, env := range envs {
		recs, err := s.platform.ListSpaces(ctx, token, env.ID)
		if err != nil {
			if err := s.skip(p, "environment", env.ID, env.Name, err); err != nil {
				return nil, fmt.Errorf("listing spaces: %w", err)
			}
			continue
		}

		spaces := make([]Space, 0, len(recs))
		for _, rec := range recs {
			if !rec.Present("id") || !rec.Present("name") {
				continue
			}
			spaces = append(spaces, spaceFromRecord(rec, env))
		}
		all = append(all, spaces...)

		if len(spaces) == 0 {
			continue
		}
		fmt.Fprintf(s.out, "Environment ID: %s - Environment Name: %s\nSpaces:\n", env.ID, env.Name)
		for i, sp := range spaces {
			fmt.Fprintf(s.out, "   %d. ID: %s\n", i+1, sp.ID)
			fmt.Fprintf(s.out, "      Name: %s\n", sp.Name)
			fmt.Fprintf(s.out, "      Workbooks Count: %s\n", formatValue(sp.WorkbooksCount))
			fmt.Fprintf(s.out, "      Created By User Name: %s\n", formatValue(sp.CreatedByUserName))
			fmt.Fprintf(s.out, "      Created By User ID: %s\n", formatValue(sp.CreatedByUserID))
			fmt.Fprintf(s.out, "      Space Config ID: %s\n", formatValue(sp.SpaceConfigID))
			fmt.Fprintf(s.out, "      Environment ID: %s\n", sp.EnvironmentID)
			fmt.Fprintf(s.out, "      Environment Name: %s\n", sp.EnvironmentName)
			fmt.Fprintf(s.out, "      Primary Workbook ID: %s\n", formatValue(sp.PrimaryWorkbookID))
			fmt.Fprintf(s.out, "      Display Order: %s\n", formatValue(sp.DisplayOrder))
			fmt.Fprintf(s.out, "      Access: %s\n", formatValue(sp.Access))
			fmt.Fprintf(s.out, "      Metadata: %s\n\n", formatValue(sp.Metadata))
		}
	}

	if _, err := s.snapshots.WriteJSON(SnapshotSpaces, all); err != nil {
		return nil, fmt.Errorf("writing spaces: %w", err)
	}
	fmt.Fprintf(s.out, "Successfully wrote %d spaces to %s\n", len(all), s.snapshots.Path(SnapshotSpaces))
	return all, p.err()
}

func spaceFromRecord(rec Record, env Environment) Space {
	envID := rec.String("environmentId")
	if envID == "" {
		envID = env.ID
	}
	return Space{
		ID:                rec.String("id"),
		WorkbooksCount:    rec.GetOr("workbooksCount", Placeholder),
		CreatedByUserID:   rec.GetOr("createdByUserId", Placeholder),
		CreatedByUserName: rec.GetOr("createdByUserName", Placeholder),
		SpaceConfigID:     rec.GetOr("spaceConfigId", Placeholder),
		EnvironmentID:     envID,
		EnvironmentName:   env.Name,
		Name:              rec.String("name"),
		PrimaryWorkbookID: rec.GetOr("primaryWorkbookId", Placeholder),
		DisplayOrder:      rec.GetOr("displayOrder", Placeholder),
		Access:            rec.GetOr("access", Placeholder),
		Metadata:          rec.GetOr("metadata", map[string]any{}),
	}
}

// LoadSpaces reads the spaces snapshot.
func (s *FFService) LoadSpaces() ([]Space, error) {
	var spaces []Space
	if err := s.snapshots.ReadJSON(SnapshotSpaces, &spaces); err != nil {
		return nil, fmt.Errorf("loading spaces: %w", err)
	}
	return spaces, nil
}
