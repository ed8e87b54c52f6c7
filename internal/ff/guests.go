package ff

import (
	"context"
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Unknown labels a guest whose primary space is not in the spaces snapshot.
const Unknown = "Unknown"

// SpaceGuestCount is the number of guests whose primary space is SpaceID.
type SpaceGuestCount struct {
	SpaceID   string
	SpaceName string
	Count     int
}

// EnvironmentGuestCount groups space counts under one environment.
type EnvironmentGuestCount struct {
	EnvironmentID   string
	EnvironmentName string
	Spaces          []SpaceGuestCount
}

// GuestReport is the result of ListGuests.
type GuestReport struct {
	Guests []Record
	Counts []EnvironmentGuestCount
}

// ListGuests fetches guests for every space in the spaces snapshot, optionally
// filtered by email, sorts them, counts them per environment and space, and
// overwrites the guests snapshot with the sorted list.
func (s *FFService) ListGuests(ctx context.Context, token, email string) (*GuestReport, error) {
	spaces, err := s.LoadSpaces()
	if err != nil {
		return nil, err
	}

	p := &partial{operation: "list guests"}
	guests := make([]Record, 0)
	for _, sp := range spaces {
		recs, err := s.platform.ListGuests(ctx, token, sp.ID, email)
		if err != nil {
			if err := s.skip(p, "space", sp.ID, sp.Name, err); err != nil {
				return nil, fmt.Errorf("listing guests: %w", err)
			}
			continue
		}
		for _, rec := range recs {
			if rec.Present("id") {
				guests = append(guests, rec)
			}
		}
	}

	SortGuests(guests)
	counts := CountGuests(guests, spaces)

	if _, err := s.snapshots.WriteJSON(SnapshotGuests, guests); err != nil {
		return nil, fmt.Errorf("writing guests: %w", err)
	}

	s.printGuestCounts(counts)
	s.printGuests(guests, spaces)
	fmt.Fprintf(s.out, "\nFetched guest data has been written to: %s\n", s.snapshots.Path(SnapshotGuests))

	return &GuestReport{Guests: guests, Counts: counts}, p.err()
}

// PrimarySpaceID returns the id of the guest's first space, or "" if it has none.
func PrimarySpaceID(guest Record) string {
	spaces := guest.Records("spaces")
	if len(spaces) == 0 {
		return ""
	}
	return spaces[0].String("id")
}

// SortGuests orders guests by primary space id, then guest id.
func SortGuests(guests []Record) {
	sort.SliceStable(guests, func(i, j int) bool {
		si, sj := PrimarySpaceID(guests[i]), PrimarySpaceID(guests[j])
		if si != sj {
			return si < sj
		}
		return guests[i].String("id") < guests[j].String("id")
	})
}

// CountGuests counts guests per environment and space. Groups appear in the
// order they are first seen in guests.
func CountGuests(guests []Record, spaces []Space) []EnvironmentGuestCount {
	byID := make(map[string]Space, len(spaces))
	for _, sp := range spaces {
		if _, dup := byID[sp.ID]; !dup {
			byID[sp.ID] = sp
		}
	}

	var counts []EnvironmentGuestCount
	envIdx := map[string]int{}
	spaceIdx := map[string]map[string]int{}

	for _, g := range guests {
		spaceID := PrimarySpaceID(g)
		envID, envName, spaceName := Unknown, Unknown, Unknown
		if sp, ok := byID[spaceID]; ok {
			envID, envName, spaceName = sp.EnvironmentID, sp.EnvironmentName, sp.Name
		}

		ei, ok := envIdx[envID]
		if !ok {
			ei = len(counts)
			envIdx[envID] = ei
			spaceIdx[envID] = map[string]int{}
			counts = append(counts, EnvironmentGuestCount{EnvironmentID: envID, EnvironmentName: envName})
		}

		si, ok := spaceIdx[envID][spaceID]
		if !ok {
			si = len(counts[ei].Spaces)
			spaceIdx[envID][spaceID] = si
			counts[ei].Spaces = append(counts[ei].Spaces, SpaceGuestCount{SpaceID: spaceID, SpaceName: spaceName})
		}
		counts[ei].Spaces[si].Count++
	}
	return counts
}

func (s *FFService) printGuestCounts(counts []EnvironmentGuestCount) {
	fmt.Fprintln(s.out, "\nGuest Count:")
	t := newTable(s.out)
	t.AppendHeader(table.Row{"Environment ID", "Environment", "Space ID", "Space", "Guests"})
	for _, env := range counts {
		for _, sp := range env.Spaces {
			t.AppendRow(table.Row{env.EnvironmentID, env.EnvironmentName, sp.SpaceID, sp.SpaceName, sp.Count})
		}
	}
	t.Render()
}

func (s *FFService) printGuests(guests []Record, spaces []Space) {
	byID := make(map[string]Space, len(spaces))
	for _, sp := range spaces {
		if _, dup := byID[sp.ID]; !dup {
			byID[sp.ID] = sp
		}
	}

	fmt.Fprintln(s.out, "\nFetched Guests:")
	for i, g := range guests {
		envID, envName, spaceName := Unknown, Unknown, Unknown
		if sp, ok := byID[PrimarySpaceID(g)]; ok {
			envID, envName, spaceName = sp.EnvironmentID, sp.EnvironmentName, sp.Name
		}

		fmt.Fprintf(s.out, "%d. ID: %s\n", i+1, g.String("id"))
		fmt.Fprintf(s.out, "   Email: %s\n", g.String("email"))
		fmt.Fprintf(s.out, "   Name: %s\n", g.String("name"))
		if len(g.Records("spaces")) > 0 {
			fmt.Fprintf(s.out, "   Space ID: %s (Name: %s)\n", PrimarySpaceID(g), spaceName)
		} else {
			fmt.Fprintln(s.out, "   No spaces found for this guest.")
		}
		fmt.Fprintf(s.out, "   Environment ID: %s (Name: %s)\n\n", envID, envName)
	}
}
