package ff

import "context"

// Platform is the vendor REST API. Every method issues exactly one request.
// Implementations return *APIError for non-2xx responses and *TransportError
// when the request could not be completed.
type Platform interface {
	// Authenticate exchanges a client id/secret pair for a token. The returned
	// record is the response's data object with its original field names.
	Authenticate(ctx context.Context, clientID, secret string) (Record, error)

	ListEnvironments(ctx context.Context, token string) ([]Record, error)

	// ListSpaces returns the non-archived spaces of one environment.
	ListSpaces(ctx context.Context, token, environmentID string) ([]Record, error)

	// ListWorkbooks returns the workbooks of one space, including sheet counts.
	ListWorkbooks(ctx context.Context, token, spaceID string) ([]Record, error)

	// ListUsers returns account users, filtered by email when email is non-empty.
	ListUsers(ctx context.Context, token, email string) ([]Record, error)

	// ListGuests returns the guests of one space, filtered by email when non-empty.
	ListGuests(ctx context.Context, token, spaceID, email string) ([]Record, error)

	GetSubscriptionToken(ctx context.Context, token, environmentID string) (Record, error)

	ListAPIKeys(ctx context.Context, token, environmentID string) ([]Record, error)
}
