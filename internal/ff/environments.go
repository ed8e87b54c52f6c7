package ff

import (
	"context"
	"fmt"
	"strings"
)

const sectionRule = "---------------------------"

// ListEnvironments fetches every environment visible to the token, prints a
// block per environment and overwrites the environments snapshot. Records
// without an id or name are skipped.
func (s *FFService) ListEnvironments(ctx context.Context, token string) ([]Environment, error) {
	recs, err := s.platform.ListEnvironments(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("listing environments: %w", err)
	}

	envs := make([]Environment, 0, len(recs))
	for _, rec := range recs {
		if !rec.Present("id") || !rec.Present("name") {
			s.logger.Warn("skipping environment without id or name", "id", rec.String("id"))
			continue
		}
		envs = append(envs, environmentFromRecord(rec))
	}

	fmt.Fprintln(s.out, "Environments:")
	for i, env := range envs {
		printEnvironment(s, i+1, env)
	}
	fmt.Fprintln(s.out, sectionRule)

	if _, err := s.snapshots.WriteJSON(SnapshotEnvironments, envs); err != nil {
		return nil, fmt.Errorf("writing environments: %w", err)
	}
	s.logger.Info("environments written", "count", len(envs))
	return envs, nil
}

func environmentFromRecord(rec Record) Environment {
	env := Environment{
		ID:                  rec.String("id"),
		AccountID:           rec.String("accountId"),
		Name:                rec.String("name"),
		GuestAuthentication: []string{},
		Features:            rec.GetOr("features", map[string]any{}),
	}
	if b, ok := rec["isProd"].(bool); ok {
		env.IsProduction = b
	}
	switch ga := rec["guestAuthentication"].(type) {
	case []any:
		for _, v := range ga {
			env.GuestAuthentication = append(env.GuestAuthentication, fmt.Sprint(v))
		}
	case []string:
		env.GuestAuthentication = append(env.GuestAuthentication, ga...)
	}
	if env.Features == nil {
		env.Features = map[string]any{}
	}
	return env
}

func printEnvironment(s *FFService, n int, env Environment) {
	fmt.Fprintf(s.out, "%d. ID: %s\n", n, env.ID)
	fmt.Fprintf(s.out, "   Account ID: %s\n", env.AccountID)
	fmt.Fprintf(s.out, "   Name: %s\n", env.Name)
	fmt.Fprintf(s.out, "   Is Production: %t\n", env.IsProduction)
	fmt.Fprintf(s.out, "   Guest Authentication: %s\n", strings.Join(env.GuestAuthentication, ", "))
	fmt.Fprintf(s.out, "   Features: %s\n\n", formatValue(env.Features))
}

// LoadEnvironments reads the environments snapshot.
func (s *FFService) LoadEnvironments() ([]Environment, error) {
	var envs []Environment
	if err := s.snapshots.ReadJSON(SnapshotEnvironments, &envs); err != nil {
		return nil, fmt.Errorf("loading environments: %w", err)
	}
	return envs, nil
}

// NumberedEnvironments prints the environment names as a 1-based list.
func (s *FFService) NumberedEnvironments() ([]Environment, error) {
	envs, err := s.LoadEnvironments()
	if err != nil {
		return nil, err
	}
	for i, env := range envs {
		fmt.Fprintf(s.out, "%d. %s\n", i+1, env.Name)
	}
	return envs, nil
}

// EnvironmentExists reports whether an environment with exactly this name is in
// the snapshot and writes "1" or "0" to the exists signal file.
func (s *FFService) EnvironmentExists(name string) (bool, error) {
	envs, err := s.LoadEnvironments()
	if err != nil {
		return false, err
	}
	_, found := findEnvironment(envs, name)
	signal := "0"
	if found {
		signal = "1"
	}
	if _, err := s.snapshots.WriteRaw(SignalEnvironmentExists, []byte(signal)); err != nil {
		return false, fmt.Errorf("writing exists signal: %w", err)
	}
	return found, nil
}

// SelectEnvironment picks the environment at the 1-based index and writes its
// name to the selection signal file.
func (s *FFService) SelectEnvironment(index int) (string, error) {
	envs, err := s.LoadEnvironments()
	if err != nil {
		return "", err
	}
	if index < 1 || index > len(envs) {
		return "", fmt.Errorf("invalid index %d: choose a number between 1 and %d", index, len(envs))
	}
	name := envs[index-1].Name
	if _, err := s.snapshots.WriteRaw(SignalSelectedEnvironment, []byte(name)); err != nil {
		return "", fmt.Errorf("writing selected environment: %w", err)
	}
	fmt.Fprintf(s.out, "Selected environment: %s\n", name)
	return name, nil
}

func findEnvironment(envs []Environment, name string) (int, bool) {
	for i, env := range envs {
		if env.Name == name {
			return i, true
		}
	}
	return -1, false
}

// ObtainAPIKeys fetches the API keys of every environment in the snapshot and
// stores them on the environment records as PUBLIC_KEY and SECRET_KEY.
// Environments whose request fails keep their previous keys.
func (s *FFService) ObtainAPIKeys(ctx context.Context, token string) ([]Environment, error) {
	envs, err := s.LoadEnvironments()
	if err != nil {
		return nil, err
	}

	p := &partial{operation: "obtain API keys"}
	for i := range envs {
		env := &envs[i]
		keys, err := s.platform.ListAPIKeys(ctx, token, env.ID)
		if err != nil {
			if err := s.skip(p, "environment", env.ID, env.Name, err); err != nil {
				return nil, fmt.Errorf("listing API keys: %w", err)
			}
			continue
		}
		for _, key := range keys {
			if key.String("type") == KeyTypePublishable {
				env.PublicKey = key.String("rawKey")
			} else {
				env.SecretKey = key.String("rawKey")
			}
		}
		fmt.Fprintf(s.out, "Retrieved API keys for environment '%s'\n", env.Name)
	}

	if _, err := s.snapshots.WriteJSON(SnapshotEnvironments, envs); err != nil {
		return nil, fmt.Errorf("writing environments: %w", err)
	}
	return envs, p.err()
}

// TokenFunc lazily produces a bearer token.
type TokenFunc func(ctx context.Context) (string, error)

// EnvironmentSecret returns the secret key of the named environment and writes
// it to the secret signal file. If the snapshot has no secret key yet, the API
// keys are fetched first using a token from tokenFn.
func (s *FFService) EnvironmentSecret(ctx context.Context, name string, tokenFn TokenFunc) (string, error) {
	envs, err := s.LoadEnvironments()
	if err != nil {
		return "", err
	}
	i, ok := findEnvironment(envs, name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrEnvironmentNotFound, name)
	}

	secret := envs[i].SecretKey
	if secret == "" {
		fmt.Fprintln(s.out, "SECRET key not found. Fetching API keys...")
		token, err := tokenFn(ctx)
		if err != nil {
			return "", err
		}
		envs, err = s.ObtainAPIKeys(ctx, token)
		if _, isPartial := AsPartial(err); err != nil && !isPartial {
			return "", err
		}
		if i, ok = findEnvironment(envs, name); ok {
			secret = envs[i].SecretKey
		}
	}
	if secret == "" {
		return "", fmt.Errorf("no secret key available for environment %q", name)
	}

	if _, err := s.snapshots.WriteRaw(SignalSecretKey, []byte(secret)); err != nil {
		return "", fmt.Errorf("writing secret key: %w", err)
	}
	fmt.Fprintf(s.out, "Secret key for environment '%s': %s\n", name, secret)
	return secret, nil
}

// SubscriptionTokens fetches the realtime subscription token of every
// environment in the snapshot and overwrites the subscription snapshot.
func (s *FFService) SubscriptionTokens(ctx context.Context, token string) ([]SubscriptionToken, error) {
	envs, err := s.LoadEnvironments()
	if err != nil {
		return nil, err
	}

	p := &partial{operation: "subscription tokens"}
	subs := make([]SubscriptionToken, 0, len(envs))
	for _, env := range envs {
		rec, err := s.platform.GetSubscriptionToken(ctx, token, env.ID)
		if err != nil {
			if err := s.skip(p, "environment", env.ID, env.Name, err); err != nil {
				return nil, fmt.Errorf("getting subscription tokens: %w", err)
			}
			continue
		}
		subs = append(subs, SubscriptionToken{
			Name:          env.Name,
			EnvironmentID: env.ID,
			AccountID:     rec.GetOr("accountId", nil),
			SubscribeKey:  rec.GetOr("subscribeKey", nil),
			TTL:           rec.GetOr("ttl", nil),
			Token:         rec.GetOr("token", nil),
		})
		fmt.Fprintf(s.out, "Retrieved subscription token for environment '%s'\n", env.Name)
	}

	if _, err := s.snapshots.WriteJSON(SnapshotSubscriptionTokens, subs); err != nil {
		return nil, fmt.Errorf("writing subscription tokens: %w", err)
	}
	fmt.Fprintf(s.out, "Subscription tokens have been written to %s\n", s.snapshots.Path(SnapshotSubscriptionTokens))
	return subs, p.err()
}

// skip handles a per-parent fetch error: fatal errors are returned wrapped,
// anything else is logged, collected in p and reported as nil.
func (s *FFService) skip(p *partial, resource, id, label string, err error) error {
	if IsFatal(err) {
		return fmt.Errorf("%s %s: %w", resource, label, err)
	}
	s.logger.Warn("skipping "+resource, "id", id, "name", label, "err", err)
	fmt.Fprintf(s.out, "Failed to fetch data for %s '%s': %v\n", resource, label, err)
	p.add(resource, id, err)
	return nil
}
