package ff

import (
	"context"
	"fmt"
)

// GetValidToken returns the cached access token if it has not expired, and
// otherwise exchanges credentials for a new one. A fresh cache causes no
// network call and leaves the cache file untouched.
func (s *FFService) GetValidToken(ctx context.Context, creds CredentialsProvider) (string, error) {
	tok, err := s.tokens.Load()
	if err == nil && tok.Fresh(s.clock.Now()) {
		s.logger.Debug("using cached token", "expires", tok.Expires)
		return tok.AccessToken, nil
	}
	if err != nil {
		s.logger.Debug("token cache unusable", "err", err)
	} else {
		s.logger.Info("cached token expired", "expires", tok.Expires)
	}
	return s.Authenticate(ctx, creds)
}

// Authenticate always exchanges credentials for a new token, overwrites the
// token cache and updates the credentials file. Nothing is written on failure.
func (s *FFService) Authenticate(ctx context.Context, creds CredentialsProvider) (string, error) {
	clientID, secret, err := creds.Credentials()
	if err != nil {
		return "", fmt.Errorf("resolving credentials: %w", err)
	}

	data, err := s.platform.Authenticate(ctx, clientID, secret)
	if err != nil {
		return "", fmt.Errorf("authenticating: %w", err)
	}

	fields := SnakeCaseKeys(data)
	accessToken := fields.String("access_token")
	if accessToken == "" {
		return "", fmt.Errorf("authenticating: response has no access token")
	}

	if err := s.tokens.Save(fields); err != nil {
		return "", fmt.Errorf("saving token: %w", err)
	}
	if s.credentials != nil {
		if err := s.credentials.SetAPIKey(accessToken); err != nil {
			return "", fmt.Errorf("updating credentials file: %w", err)
		}
	}

	s.logger.Info("authenticated", "client_id", clientID, "expires", fields.String("expires"))
	return accessToken, nil
}

// CachedToken returns the cached access token without checking its expiry.
// Used when the caller has opted out of re-authentication.
func (s *FFService) CachedToken() (string, error) {
	tok, err := s.tokens.Load()
	if err != nil {
		return "", err
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: token cache has no access token", ErrNotAuthenticated)
	}
	return tok.AccessToken, nil
}

// Token returns a usable token, re-authenticating unless skipAuth is set.
func (s *FFService) Token(ctx context.Context, creds CredentialsProvider, skipAuth bool) (string, error) {
	if skipAuth {
		return s.CachedToken()
	}
	return s.GetValidToken(ctx, creds)
}
