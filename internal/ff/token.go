package ff

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// TokenExpiryLayout is the format the auth endpoint uses for the expires field.
const TokenExpiryLayout = "Mon, 02 Jan 2006 15:04:05 MST"

// Token is the cached bearer token record.
type Token struct {
	AccessToken string `json:"access_token"`
	Expires     string `json:"expires"`
	TokenType   string `json:"token_type"`
}

// ExpiresAt parses the expires field as a UTC instant.
// RFC 3339 is accepted when the primary layout does not match.
func (t *Token) ExpiresAt() (time.Time, error) {
	if ts, err := time.Parse(TokenExpiryLayout, t.Expires); err == nil {
		// The zone abbreviation is always GMT/UTC; take the wall clock as UTC.
		return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second(), 0, time.UTC), nil
	}
	ts, err := time.Parse(time.RFC3339, t.Expires)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing token expiry %q: %w", t.Expires, err)
	}
	return ts.UTC(), nil
}

// Fresh reports whether the token can be used at now without re-authenticating.
func (t *Token) Fresh(now time.Time) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	expires, err := t.ExpiresAt()
	if err != nil {
		return false
	}
	return !now.UTC().After(expires)
}

// TokenStore persists the token record.
type TokenStore interface {
	// Load returns the cached token. A missing or unreadable cache yields an
	// error wrapping ErrNotAuthenticated.
	Load() (*Token, error)

	// Save overwrites the cache with the given fields.
	Save(fields Record) error
}

// CredentialsFile is the local file that mirrors the current API key.
type CredentialsFile interface {
	SetAPIKey(key string) error
}

// CredentialsProvider supplies the client id/secret pair, only when a token
// exchange is actually needed.
type CredentialsProvider interface {
	Credentials() (clientID, secret string, err error)
}

// StaticCredentials is a CredentialsProvider with fixed values.
type StaticCredentials struct {
	ClientID string
	Secret   string
}

func (c StaticCredentials) Credentials() (string, string, error) {
	if c.ClientID == "" || c.Secret == "" {
		return "", "", fmt.Errorf("client id and secret are required")
	}
	return c.ClientID, c.Secret, nil
}

// SnakeCase converts a camelCase field name to snake_case by inserting an
// underscore before every upper-case letter except a leading one.
func SnakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// SnakeCaseKeys returns a copy of fields with every key passed through SnakeCase.
func SnakeCaseKeys(fields Record) Record {
	out := make(Record, len(fields))
	for k, v := range fields {
		out[SnakeCase(k)] = v
	}
	return out
}
