package ff

import (
	"context"
	"fmt"
)

// ListWorkbooks fetches the workbooks of every space in the spaces snapshot,
// with record counts, and overwrites the workbooks snapshot.
func (s *FFService) ListWorkbooks(ctx context.Context, token string) ([]Workbook, error) {
	spaces, err := s.LoadSpaces()
	if err != nil {
		return nil, err
	}

	p := &partial{operation: "list workbooks"}
	all := make([]Workbook, 0)
	for _, sp := range spaces {
		recs, err := s.platform.ListWorkbooks(ctx, token, sp.ID)
		if err != nil {
			if err := s.skip(p, "space", sp.ID, sp.Name, err); err != nil {
				return nil, fmt.Errorf("listing workbooks: %w", err)
			}
			continue
		}

		workbooks := make([]Workbook, 0, len(recs))
		for _, rec := range recs {
			if !rec.Present("id") || !rec.Present("name") {
				continue
			}
			workbooks = append(workbooks, workbookFromRecord(rec, sp))
		}
		all = append(all, workbooks...)

		if len(workbooks) == 0 {
			continue
		}
		fmt.Fprintf(s.out, "Space ID: %s\nWorkbooks:\n", sp.ID)
		for i, wb := range workbooks {
			fmt.Fprintf(s.out, "   %d. ID: %s\n", i+1, wb.ID)
			fmt.Fprintf(s.out, "      Name: %s\n", wb.Name)
			fmt.Fprintf(s.out, "      Environment ID: %s\n", wb.EnvironmentID)
			fmt.Fprintf(s.out, "      Space ID: %s\n", wb.SpaceID)
			fmt.Fprintf(s.out, "      Sheets: %s\n", indent(formatIndented(wb.Sheets), "      "))
			fmt.Fprintf(s.out, "      Labels: %s\n", formatValue(wb.Labels))
			fmt.Fprintf(s.out, "      Actions: %s\n", indent(formatIndented(wb.Actions), "      "))
			fmt.Fprintf(s.out, "      Updated At: %s\n", formatValue(wb.UpdatedAt))
			fmt.Fprintf(s.out, "      Created At: %s\n", formatValue(wb.CreatedAt))
			fmt.Fprintf(s.out, "      Namespace: %s\n\n", formatValue(wb.Namespace))
		}
	}

	if _, err := s.snapshots.WriteJSON(SnapshotWorkbooks, all); err != nil {
		return nil, fmt.Errorf("writing workbooks: %w", err)
	}
	fmt.Fprintf(s.out, "Successfully wrote %d workbooks to %s\n", len(all), s.snapshots.Path(SnapshotWorkbooks))
	return all, p.err()
}

// workbookFromRecord keeps the parent space id rather than the one in the
// response.
func workbookFromRecord(rec Record, sp Space) Workbook {
	envID := rec.String("environmentId")
	if envID == "" {
		envID = sp.EnvironmentID
	}
	return Workbook{
		ID:            rec.String("id"),
		Name:          rec.String("name"),
		SpaceID:       sp.ID,
		EnvironmentID: envID,
		Sheets:        rec.GetOr("sheets", []any{}),
		Labels:        rec.GetOr("labels", []any{}),
		Actions:       rec.GetOr("actions", []any{}),
		UpdatedAt:     rec.GetOr("updatedAt", nil),
		CreatedAt:     rec.GetOr("createdAt", nil),
		Namespace:     rec.GetOr("namespace", ""),
	}
}
