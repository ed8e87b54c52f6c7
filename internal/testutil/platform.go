package testutil

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"ffctl/internal/ff"
)

// FakePlatform is an in-memory ff.Platform. Responses are keyed by the parent
// resource id; an entry in an Err map makes that parent's request fail.
type FakePlatform struct {
	mu sync.Mutex

	AuthResponse ff.Record
	AuthErr      error

	Environments    []ff.Record
	EnvironmentsErr error

	Spaces    map[string][]ff.Record // by environment id
	SpaceErrs map[string]error

	Workbooks    map[string][]ff.Record // by space id
	WorkbookErrs map[string]error

	Users    []ff.Record
	UsersErr error

	Guests    map[string][]ff.Record // by space id
	GuestErrs map[string]error

	SubscriptionTokens map[string]ff.Record // by environment id
	SubscriptionErrs   map[string]error

	APIKeys    map[string][]ff.Record // by environment id
	APIKeyErrs map[string]error

	calls []string
}

// NewFakePlatform returns a FakePlatform with empty maps.
func NewFakePlatform() *FakePlatform {
	return &FakePlatform{
		Spaces:             map[string][]ff.Record{},
		SpaceErrs:          map[string]error{},
		Workbooks:          map[string][]ff.Record{},
		WorkbookErrs:       map[string]error{},
		Guests:             map[string][]ff.Record{},
		GuestErrs:          map[string]error{},
		SubscriptionTokens: map[string]ff.Record{},
		SubscriptionErrs:   map[string]error{},
		APIKeys:            map[string][]ff.Record{},
		APIKeyErrs:         map[string]error{},
	}
}

// Calls returns one "METHOD path arg" line per request, in order.
func (p *FakePlatform) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *FakePlatform) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
}

func (p *FakePlatform) Authenticate(ctx context.Context, clientID, secret string) (ff.Record, error) {
	p.record("POST /auth " + clientID)
	if p.AuthErr != nil {
		return nil, p.AuthErr
	}
	return p.AuthResponse, nil
}

func (p *FakePlatform) ListEnvironments(ctx context.Context, token string) ([]ff.Record, error) {
	p.record("GET /environments")
	return p.Environments, p.EnvironmentsErr
}

func (p *FakePlatform) ListSpaces(ctx context.Context, token, environmentID string) ([]ff.Record, error) {
	p.record("GET /spaces " + environmentID)
	if err := p.SpaceErrs[environmentID]; err != nil {
		return nil, err
	}
	return p.Spaces[environmentID], nil
}

func (p *FakePlatform) ListWorkbooks(ctx context.Context, token, spaceID string) ([]ff.Record, error) {
	p.record("GET /workbooks " + spaceID)
	if err := p.WorkbookErrs[spaceID]; err != nil {
		return nil, err
	}
	return p.Workbooks[spaceID], nil
}

func (p *FakePlatform) ListUsers(ctx context.Context, token, email string) ([]ff.Record, error) {
	p.record("GET /users " + email)
	if p.UsersErr != nil {
		return nil, p.UsersErr
	}
	if email == "" {
		return p.Users, nil
	}
	var out []ff.Record
	for _, u := range p.Users {
		if u.String("email") == email {
			out = append(out, u)
		}
	}
	return out, nil
}

func (p *FakePlatform) ListGuests(ctx context.Context, token, spaceID, email string) ([]ff.Record, error) {
	p.record("GET /guests " + spaceID)
	if err := p.GuestErrs[spaceID]; err != nil {
		return nil, err
	}
	if email == "" {
		return p.Guests[spaceID], nil
	}
	var out []ff.Record
	for _, g := range p.Guests[spaceID] {
		if g.String("email") == email {
			out = append(out, g)
		}
	}
	return out, nil
}

func (p *FakePlatform) GetSubscriptionToken(ctx context.Context, token, environmentID string) (ff.Record, error) {
	p.record("GET /environments/subscription-token " + environmentID)
	if err := p.SubscriptionErrs[environmentID]; err != nil {
		return nil, err
	}
	rec, ok := p.SubscriptionTokens[environmentID]
	if !ok {
		return ff.Record{}, nil
	}
	return rec, nil
}

func (p *FakePlatform) ListAPIKeys(ctx context.Context, token, environmentID string) ([]ff.Record, error) {
	p.record("GET /auth/api-keys " + environmentID)
	if err := p.APIKeyErrs[environmentID]; err != nil {
		return nil, err
	}
	return p.APIKeys[environmentID], nil
}

// HTTPError builds the error a real client returns for a non-2xx status.
func HTTPError(status int, endpoint string) error {
	return &ff.APIError{StatusCode: status, Message: http.StatusText(status), Endpoint: endpoint}
}

// TransportError builds the error a real client returns when the platform is unreachable.
func TransportError(endpoint string) error {
	return &ff.TransportError{Endpoint: endpoint, Err: fmt.Errorf("connection refused")}
}

var _ ff.Platform = (*FakePlatform)(nil)

// CredentialsRecorder is an ff.CredentialsFile that remembers every key set.
type CredentialsRecorder struct {
	Keys []string
}

func (c *CredentialsRecorder) SetAPIKey(key string) error {
	c.Keys = append(c.Keys, key)
	return nil
}
