package ff

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ListUsers fetches account users, optionally filtered by exact email, and
// overwrites the users snapshot with the records as returned.
func (s *FFService) ListUsers(ctx context.Context, token, email string) ([]Record, error) {
	recs, err := s.platform.ListUsers(ctx, token, email)
	if err != nil {
		var ae *APIError
		if errors.As(err, &ae) {
			switch ae.StatusCode {
			case http.StatusBadRequest:
				return nil, fmt.Errorf("invalid request, please check your parameters: %w", err)
			case http.StatusNotFound:
				return nil, fmt.Errorf("requested resource not found: %w", err)
			}
		}
		return nil, fmt.Errorf("listing users: %w", err)
	}

	users := make([]Record, 0, len(recs))
	for _, rec := range recs {
		if !rec.Present("id") {
			continue
		}
		users = append(users, rec)
	}

	if _, err := s.snapshots.WriteJSON(SnapshotUsers, users); err != nil {
		return nil, fmt.Errorf("writing users: %w", err)
	}

	fmt.Fprintln(s.out, "\nFetched Users:")
	for i, u := range users {
		fmt.Fprintf(s.out, "%d. ID: %s\n", i+1, u.String("id"))
		fmt.Fprintf(s.out, "   Email: %s\n", u.String("email"))
		fmt.Fprintf(s.out, "   Name: %s\n", u.String("name"))
		fmt.Fprintf(s.out, "   Account ID: %s\n\n", u.String("accountId"))
	}
	fmt.Fprintf(s.out, "Fetched user data has been written to: %s\n", s.snapshots.Path(SnapshotUsers))
	return users, nil
}
