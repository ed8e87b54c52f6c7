package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"ffctl/internal/blueprint"
	"ffctl/internal/config"
	"ffctl/internal/database"
	"ffctl/internal/encryption"
	"ffctl/internal/ff"
	"ffctl/internal/platform"
	"ffctl/internal/snapshot"
	"ffctl/internal/token"
	"ffctl/internal/vault"
)

// Options carries the per-invocation settings of an FFApp.
type Options struct {
	// Operation identifies the CLI command being run (e.g. "ListSpaces", "Sync").
	Operation  string
	Parameters string

	// ClientID and Secret override the config file credentials.
	ClientID string
	Secret   string
	SkipAuth bool

	Out    io.Writer // command output, default os.Stdout
	Stderr io.Writer // warnings, default os.Stderr

	// Prompter asks for missing credentials and passphrases. Nil disables prompting.
	Prompter *Prompter

	Clock ff.Clock
	IDs   ff.IDGenerator // run ids, default random UUIDs
}

// FFApp is the application layer between the CLI and FFService.
// It constructs all dependencies from config, exposes high-level operations
// that resolve tokens and defaults, and manages the history lifecycle on Close.
type FFApp struct {
	cfg      *config.Config
	history  *database.SQLiteHistory
	service  *ff.FFService
	creds    ff.CredentialsProvider
	prompter *Prompter
	skipAuth bool
	clock    ff.Clock
	op       *RunOperation
	logger   ff.Logger
	logFile  *os.File
}

// NewFFApp creates a fully wired FFApp from the given config.
// The caller must call Close when done.
func NewFFApp(ctx context.Context, cfg *config.Config, opts Options) (*FFApp, error) {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	clock := opts.Clock
	if clock == nil {
		clock = ff.RealClock{}
	}
	ids := opts.IDs
	if ids == nil {
		ids = ff.UUIDGenerator{}
	}

	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir is not configured")
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	runID := ids.New()
	l, logFile, err := newLogger(cfg.LogDir, runID, level, stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: l}

	history, err := database.NewHistoryFromConfig(cfg.Database, cfg.HostID)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating history: %w", err)
	}
	if err := history.CheckMigrations(); err != nil {
		history.Close()
		logFile.Close()
		return nil, fmt.Errorf("history schema out of date (run `ffctl config init`): %w", err)
	}

	var v ff.Vault
	if len(cfg.Vaults) > 0 {
		v, err = vault.NewVaultFromConfig(ctx, cfg.Vaults[0])
		if err != nil {
			history.Close()
			logFile.Close()
			return nil, fmt.Errorf("creating vault: %w", err)
		}
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		history.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	client := platform.NewClient(cfg.API.BaseURL,
		platform.WithTimeout(time.Duration(cfg.API.TimeoutSeconds)*time.Second),
		platform.WithRateLimit(cfg.API.RequestsPerSecond),
		platform.WithLogger(logger),
	)

	op := NewRunOperation(runID, opts.Operation, opts.Parameters)
	snaps := newRecordingStore(snapshot.NewFileStore(cfg.DataDir), history, op, clock)

	svc := ff.NewFFService(ff.Deps{
		Platform:    client,
		Snapshots:   snaps,
		Tokens:      token.NewFileTokenStore(filepath.Join(cfg.DataDir, ff.SnapshotToken)),
		Credentials: token.NewEnvFile(cfg.Credentials.EnvFile),
		History:     history,
		Vault:       v,
		Encryptor:   enc,
		Logger:      logger,
		Clock:       clock,
		Out:         out,
	})

	return &FFApp{
		cfg:      cfg,
		history:  history,
		service:  svc,
		creds:    newPromptCredentials(opts.ClientID, opts.Secret, cfg.API.ClientID, cfg.API.Secret, opts.Prompter),
		prompter: opts.Prompter,
		skipAuth: opts.SkipAuth,
		clock:    clock,
		op:       op,
		logger:   logger,
		logFile:  logFile,
	}, nil
}

// persistRun saves the run to the history, giving it an auto-increment ID.
// This should only be called for snapshot-writing commands.
func (a *FFApp) persistRun() error {
	if a.op.Persisted() {
		return nil // already persisted
	}
	run, err := a.history.CreateRun(a.op.RunID, a.op.Operation, a.op.Parameters, a.clock.Now().UTC())
	if err != nil {
		return fmt.Errorf("persisting run: %w", err)
	}
	a.op.ID = run.ID
	return nil
}

func (a *FFApp) token(ctx context.Context) (string, error) {
	return a.service.Token(ctx, a.creds, a.skipAuth)
}

// begin persists the run and resolves a bearer token.
func (a *FFApp) begin(ctx context.Context) (string, error) {
	if err := a.persistRun(); err != nil {
		return "", err
	}
	tok, err := a.token(ctx)
	if err != nil {
		a.op.Complete(err)
		return "", err
	}
	return tok, nil
}

// Authenticate makes sure a valid token is cached. A fresh cache is reused
// unless force is set, in which case credentials are always exchanged.
func (a *FFApp) Authenticate(ctx context.Context, force bool) (string, error) {
	if err := a.persistRun(); err != nil {
		return "", err
	}
	var v string
	var err error
	if force {
		v, err = a.service.Authenticate(ctx, a.creds)
	} else {
		v, err = a.service.GetValidToken(ctx, a.creds)
	}
	a.op.Complete(err)
	return v, err
}

// ListEnvironments refreshes the environments snapshot.
func (a *FFApp) ListEnvironments(ctx context.Context) ([]ff.Environment, error) {
	tok, err := a.begin(ctx)
	if err != nil {
		return nil, err
	}
	v, err := a.service.ListEnvironments(ctx, tok)
	a.op.Complete(err)
	return v, err
}

// NumberedEnvironments prints the environments snapshot as a numbered list.
func (a *FFApp) NumberedEnvironments() ([]ff.Environment, error) {
	return a.service.NumberedEnvironments()
}

// EnvironmentExists writes the existence signal file for name.
func (a *FFApp) EnvironmentExists(name string) (bool, error) {
	if err := a.persistRun(); err != nil {
		return false, err
	}
	v, err := a.service.EnvironmentExists(name)
	a.op.Complete(err)
	return v, err
}

// SelectEnvironment writes the name of the environment at the 1-based index.
func (a *FFApp) SelectEnvironment(index int) (string, error) {
	if err := a.persistRun(); err != nil {
		return "", err
	}
	v, err := a.service.SelectEnvironment(index)
	a.op.Complete(err)
	return v, err
}

// EnvironmentSecret returns the secret key of the named environment,
// fetching API keys first when the snapshot has none.
func (a *FFApp) EnvironmentSecret(ctx context.Context, name string) (string, error) {
	if err := a.persistRun(); err != nil {
		return "", err
	}
	v, err := a.service.EnvironmentSecret(ctx, name, a.token)
	a.op.Complete(err)
	return v, err
}

// ObtainAPIKeys stores the API keys of every environment on the snapshot.
func (a *FFApp) ObtainAPIKeys(ctx context.Context) ([]ff.Environment, error) {
	tok, err := a.begin(ctx)
	if err != nil {
		return nil, err
	}
	v, err := a.service.ObtainAPIKeys(ctx, tok)
	a.op.Complete(err)
	return v, err
}

// SubscriptionTokens fetches the subscription token of every environment.
// With refresh set, the environments snapshot is rebuilt first.
func (a *FFApp) SubscriptionTokens(ctx context.Context, refresh bool) ([]ff.SubscriptionToken, error) {
	tok, err := a.begin(ctx)
	if err != nil {
		return nil, err
	}
	if refresh {
		if _, err := a.service.ListEnvironments(ctx, tok); err != nil {
			a.op.Complete(err)
			return nil, err
		}
	}
	v, err := a.service.SubscriptionTokens(ctx, tok)
	a.op.Complete(err)
	return v, err
}

// ListSpaces refreshes the spaces snapshot.
func (a *FFApp) ListSpaces(ctx context.Context) ([]ff.Space, error) {
	tok, err := a.begin(ctx)
	if err != nil {
		return nil, err
	}
	v, err := a.service.ListSpaces(ctx, tok)
	a.op.Complete(err)
	return v, err
}

// ListWorkbooks refreshes the workbooks snapshot.
func (a *FFApp) ListWorkbooks(ctx context.Context) ([]ff.Workbook, error) {
	tok, err := a.begin(ctx)
	if err != nil {
		return nil, err
	}
	v, err := a.service.ListWorkbooks(ctx, tok)
	a.op.Complete(err)
	return v, err
}

// ListUsers refreshes the users snapshot, filtered by email when non-empty.
func (a *FFApp) ListUsers(ctx context.Context, email string) ([]ff.Record, error) {
	tok, err := a.begin(ctx)
	if err != nil {
		return nil, err
	}
	v, err := a.service.ListUsers(ctx, tok, email)
	a.op.Complete(err)
	return v, err
}

// ListGuests refreshes the guests snapshot, filtered by email when non-empty.
func (a *FFApp) ListGuests(ctx context.Context, email string) (*ff.GuestReport, error) {
	tok, err := a.begin(ctx)
	if err != nil {
		return nil, err
	}
	v, err := a.service.ListGuests(ctx, tok, email)
	a.op.Complete(err)
	return v, err
}

// Sync refreshes environments, spaces, workbooks and guests in order.
func (a *FFApp) Sync(ctx context.Context) (*ff.SyncResult, error) {
	tok, err := a.begin(ctx)
	if err != nil {
		return nil, err
	}
	v, err := a.service.Sync(ctx, tok)
	a.op.Complete(err)
	return v, err
}

// IndexBlueprints writes the blueprint CSV index. An empty root falls back
// to the configured blueprints root.
func (a *FFApp) IndexBlueprints(root string) ([]blueprint.Entry, error) {
	if root == "" {
		root = a.cfg.Blueprints.Root
	}
	if root == "" {
		return nil, fmt.Errorf("no blueprints directory given and none configured")
	}
	if err := a.persistRun(); err != nil {
		return nil, err
	}
	v, err := a.service.IndexBlueprints(root, a.cfg.Blueprints.Ignore)
	a.op.Complete(err)
	return v, err
}

// GetHistory returns the most recent runs.
func (a *FFApp) GetHistory(limit int) ([]*ff.Run, error) {
	return a.service.GetHistory(limit)
}

// GetRun returns one run and the snapshots it wrote.
func (a *FFApp) GetRun(id int64) (*ff.Run, []*ff.SnapshotVersion, error) {
	return a.service.GetRun(id)
}

// Export uploads the local snapshots to the vault and returns the export id.
func (a *FFApp) Export() (string, int, error) {
	if err := a.persistRun(); err != nil {
		return "", 0, err
	}
	id, count, err := a.service.Export(a.cfg.HostID)
	a.op.Complete(err)
	return id, count, err
}

// ListExports returns the export ids stored in the vault for this host.
func (a *FFApp) ListExports() ([]string, error) {
	return a.service.ListExports(a.cfg.HostID)
}

// Import overwrites the local snapshots with the objects of one export,
// prompting for the private key passphrase if the export is encrypted.
func (a *FFApp) Import(exportID string) (int, error) {
	if err := a.persistRun(); err != nil {
		return 0, err
	}
	v, err := a.service.Import(a.cfg.HostID, exportID, a.passphrase)
	a.op.Complete(err)
	return v, err
}

func (a *FFApp) passphrase() (string, error) {
	if a.prompter == nil {
		return "", fmt.Errorf("a passphrase is required to decrypt this export")
	}
	return a.prompter.ReadSecret("Passphrase: ")
}

// Close finalizes the run and closes all resources.
// For persisted runs the final status is written before the history closes.
func (a *FFApp) Close() error {
	var firstErr error

	if a.op.Persisted() {
		a.logger.Info("run finished", "operation", a.op.Operation, "status", a.op.Status, "failures", a.op.Failures)
		if err := a.history.FinishRun(a.op.ID, a.op.Status, a.op.Failures, a.clock.Now().UTC()); err != nil {
			firstErr = fmt.Errorf("finishing run: %w", err)
		}
	}

	if err := a.history.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing history: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// InitHistory creates the history database named by cfg and applies all
// pending migrations.
func InitHistory(cfg *config.Config) error {
	h, err := database.NewHistoryFromConfig(cfg.Database, cfg.HostID)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer h.Close()

	if err := h.Migrate(); err != nil {
		return fmt.Errorf("migrating history: %w", err)
	}
	return nil
}

// GenerateKeys creates the age key pair at the configured paths, protecting
// the private key with passphrase.
func GenerateKeys(cfg *config.Config, passphrase string) error {
	enc := encryption.NewAgeEncryptor(cfg.Encryption)
	if err := enc.Setup(passphrase); err != nil {
		return fmt.Errorf("generating keys: %w", err)
	}
	return nil
}
