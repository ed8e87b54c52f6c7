package ff

import (
	"context"
	"fmt"
)

// SyncResult counts the records written by Sync.
type SyncResult struct {
	Environments int
	Spaces       int
	Workbooks    int
	Guests       int
}

// Sync refreshes the environments, spaces, workbooks and guests snapshots in
// dependency order. Per-item failures in later steps are merged into a single
// PartialError; a fatal error stops the chain.
func (s *FFService) Sync(ctx context.Context, token string) (*SyncResult, error) {
	res := &SyncResult{}

	envs, err := s.ListEnvironments(ctx, token)
	if err != nil {
		return nil, err
	}
	res.Environments = len(envs)

	spaces, spacesErr := s.ListSpaces(ctx, token)
	if _, ok := AsPartial(spacesErr); spacesErr != nil && !ok {
		return nil, spacesErr
	}
	res.Spaces = len(spaces)

	workbooks, workbooksErr := s.ListWorkbooks(ctx, token)
	if _, ok := AsPartial(workbooksErr); workbooksErr != nil && !ok {
		return nil, workbooksErr
	}
	res.Workbooks = len(workbooks)

	report, guestsErr := s.ListGuests(ctx, token, "")
	if _, ok := AsPartial(guestsErr); guestsErr != nil && !ok {
		return nil, guestsErr
	}
	res.Guests = len(report.Guests)

	fmt.Fprintf(s.out, "Synced %d environments, %d spaces, %d workbooks, %d guests\n",
		res.Environments, res.Spaces, res.Workbooks, res.Guests)
	return res, mergePartial("sync", spacesErr, workbooksErr, guestsErr)
}
