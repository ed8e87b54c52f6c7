package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"ffctl/internal/app"
	"ffctl/internal/config"
	"ffctl/internal/ff"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

var (
	flagClientID string
	flagSecret   string
	flagSkipAuth bool

	prompter = app.NewTerminalPrompter()
)

// readConfig loads the config file named by the defaults.
func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	app.ApplyOverrides(cfg)
	return cfg, nil
}

// newApp reads the config and creates an FFApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "ListSpaces", "Sync").
func newApp(cmd *cobra.Command, operation, parameters string) (*app.FFApp, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.NewFFApp(cmd.Context(), cfg, app.Options{
		Operation:  operation,
		Parameters: parameters,
		ClientID:   flagClientID,
		Secret:     flagSecret,
		SkipAuth:   flagSkipAuth,
		Out:        cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
		Prompter:   prompter,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// argOrPrompt returns the first positional argument, asking for it when absent.
func argOrPrompt(args []string, label string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	return prompter.ReadLine(label)
}

// settle turns skipped items into a warning. The snapshot was still written,
// so the command succeeds.
func settle(err error) error {
	if pe, ok := ff.AsPartial(err); ok {
		color.Yellow("Warning: %s", pe.Error())
		return nil
	}
	return err
}

var rootCmd = &cobra.Command{
	Use:           "ffctl",
	Short:         "Flatfile account inventory tool",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and the run history database",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults["base_dir"])
		app.ApplyOverrides(cfg)

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		if err := app.InitHistory(cfg); err != nil {
			return fmt.Errorf("failed to initialize history: %w", err)
		}

		color.Green("Configuration initialized at %s", defaults["config_path"])
		fmt.Printf("Host ID:  %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Printf("Data Dir: %s\n", cfg.DataDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		app.ApplyOverrides(cfg)

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:    %s\n", cfg.HostID)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Data Dir:   %s\n", cfg.DataDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Log Level:  %s\n", cfg.LogLevel)
		fmt.Printf("API URL:    %s\n", cfg.API.BaseURL)
		fmt.Printf("Env File:   %s\n", cfg.Credentials.EnvFile)
		fmt.Printf("Database:   %s\n", cfg.Database.Type)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:      %s (%s)\n", v.Name, v.Type)
		}
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate the export encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		passphrase, err := prompter.ReadSecret("New passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := prompter.ReadSecret("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := app.GenerateKeys(cfg, passphrase); err != nil {
			return err
		}
		color.Green("Key pair written to %s", cfg.Encryption.PublicKeyPath)
		if cfg.Encryption.Type != "age" {
			fmt.Println(`Set encryption.type = "age" in the config to encrypt exports.`)
		}
		return nil
	},
}

// auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Make sure a valid access token is cached",
	Long:  "Reuses the cached access token while it has not expired and otherwise exchanges the client credentials for a new one. --force always exchanges.",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		a, err := newApp(cmd, "Authenticate", "force="+strconv.FormatBool(force))
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.Authenticate(cmd.Context(), force); err != nil {
			return err
		}
		if force {
			color.Green("Access token refreshed")
		} else {
			color.Green("Access token is valid")
		}
		return nil
	},
}

// environments command
var environmentsCmd = &cobra.Command{
	Use:     "environments",
	Aliases: []string{"env"},
	Short:   "Inspect environments",
}

var environmentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Fetch environments and write the environments snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListEnvironments", "")
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.ListEnvironments(cmd.Context())
		return err
	},
}

var environmentsNumberedCmd = &cobra.Command{
	Use:   "numbered",
	Short: "Print the environments snapshot as a numbered list",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "NumberedEnvironments", "")
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.NumberedEnvironments()
		return err
	},
}

var environmentsExistsCmd = &cobra.Command{
	Use:   "exists [NAME]",
	Short: "Check whether an environment exists in the snapshot",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := argOrPrompt(args, "Environment name: ")
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "EnvironmentExists", name)
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.EnvironmentExists(name)
		return err
	},
}

var environmentsSelectCmd = &cobra.Command{
	Use:   "select [INDEX]",
	Short: "Select an environment by its number in the list",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := argOrPrompt(args, "Environment number: ")
		if err != nil {
			return err
		}
		index, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid environment number %q", raw)
		}

		a, err := newApp(cmd, "SelectEnvironment", raw)
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.SelectEnvironment(index)
		return err
	},
}

var environmentsSecretCmd = &cobra.Command{
	Use:   "secret [NAME]",
	Short: "Print the secret key of an environment",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, err := argOrPrompt(args, "Environment name: ")
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "EnvironmentSecret", name)
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.EnvironmentSecret(cmd.Context(), name)
		return err
	},
}

var environmentsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Fetch the API keys of every environment",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ObtainAPIKeys", "")
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.ObtainAPIKeys(cmd.Context())
		return settle(err)
	},
}

var environmentsSubscriptionsCmd = &cobra.Command{
	Use:   "subscriptions",
	Short: "Fetch the realtime subscription token of every environment",
	RunE: func(cmd *cobra.Command, args []string) error {
		refresh, _ := cmd.Flags().GetBool("refresh")

		a, err := newApp(cmd, "SubscriptionTokens", "refresh="+strconv.FormatBool(refresh))
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.SubscriptionTokens(cmd.Context(), refresh)
		return settle(err)
	},
}

// spaces command
var spacesCmd = &cobra.Command{
	Use:   "spaces",
	Short: "Inspect spaces",
}

var spacesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Fetch the spaces of every environment",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListSpaces", "")
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.ListSpaces(cmd.Context())
		return settle(err)
	},
}

// workbooks command
var workbooksCmd = &cobra.Command{
	Use:   "workbooks",
	Short: "Inspect workbooks",
}

var workbooksListCmd = &cobra.Command{
	Use:   "list",
	Short: "Fetch the workbooks of every space",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListWorkbooks", "")
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.ListWorkbooks(cmd.Context())
		return settle(err)
	},
}

// users command
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Inspect account users",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "Fetch account users",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")

		a, err := newApp(cmd, "ListUsers", emailParam(email))
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.ListUsers(cmd.Context(), email)
		return err
	},
}

// guests command
var guestsCmd = &cobra.Command{
	Use:   "guests",
	Short: "Inspect guests",
}

var guestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Fetch the guests of every space and count them per space",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")

		a, err := newApp(cmd, "ListGuests", emailParam(email))
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.ListGuests(cmd.Context(), email)
		return settle(err)
	},
}

func emailParam(email string) string {
	if email == "" {
		return ""
	}
	return "email=" + email
}

// blueprints command
var blueprintsCmd = &cobra.Command{
	Use:   "blueprints",
	Short: "Manage the local blueprint index",
}

var blueprintsIndexCmd = &cobra.Command{
	Use:   "index [DIR]",
	Short: "Write the CSV index of blueprint files",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := ""
		if len(args) > 0 {
			root = args[0]
		}

		a, err := newApp(cmd, "IndexBlueprints", root)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.IndexBlueprints(root)
		if err != nil {
			return err
		}
		color.Green("Indexed %d blueprint(s)", len(entries))
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh environments, spaces, workbooks and guests",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Sync", "")
		if err != nil {
			return err
		}
		defer a.Close()

		_, err = a.Sync(cmd.Context())
		return settle(err)
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd, "GetHistory", "")
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No runs recorded.")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"#", "Operation", "Started", "Status", "Duration", "Skipped", "Files"})
		for _, r := range runs {
			duration := ""
			if r.FinishedAt.Valid {
				duration = r.FinishedAt.Time.Sub(r.StartedAt).Truncate(time.Millisecond).String()
			}
			t.AppendRow(table.Row{
				r.ID,
				r.Operation,
				r.StartedAt.Local().Format("2006-01-02 15:04:05"),
				statusColor(r.Status),
				duration,
				r.Failures,
				r.Snapshots,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show RUN",
	Short: "List the snapshot files written by one run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run number %q", args[0])
		}

		a, err := newApp(cmd, "GetRun", args[0])
		if err != nil {
			return err
		}
		defer a.Close()

		run, snaps, err := a.GetRun(id)
		if err != nil {
			return err
		}

		fmt.Printf("Run #%d  %s  %s  %s\n", run.ID, run.Operation, run.StartedAt.Local().Format("2006-01-02 15:04:05"), statusColor(run.Status))
		if run.Parameters != "" {
			fmt.Printf("Parameters: %s\n", run.Parameters)
		}
		if len(snaps) == 0 {
			fmt.Println("No snapshots written.")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"File", "Size", "SHA-256", "Written"})
		for _, s := range snaps {
			t.AppendRow(table.Row{s.Name, s.Size, s.Checksum[:12], s.CreatedAt.Local().Format("15:04:05")})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

func statusColor(status string) string {
	switch status {
	case ff.RunSuccess:
		return color.GreenString(status)
	case ff.RunPartial:
		return color.YellowString(status)
	case ff.RunError:
		return color.RedString(status)
	default:
		return status
	}
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upload the local snapshots to the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "Export", "")
		if err != nil {
			return err
		}
		defer a.Close()

		id, count, err := a.Export()
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		color.Green("Exported %d snapshot(s) as %s", count, id)
		return nil
	},
}

var exportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the exports stored in the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ListExports", "")
		if err != nil {
			return err
		}
		defer a.Close()

		ids, err := a.ListExports()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("No exports found.")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import [EXPORT_ID]",
	Short: "Overwrite the local snapshots with an export from the vault",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := argOrPrompt(args, "Export ID: ")
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "Import", id)
		if err != nil {
			return err
		}
		defer a.Close()

		count, err := a.Import(id)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		color.Green("Imported %d snapshot(s)", count)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagClientID, "client-id", "", "Client ID used when a new token is needed")
	rootCmd.PersistentFlags().StringVar(&flagSecret, "secret", "", "Client secret used when a new token is needed")
	rootCmd.PersistentFlags().BoolVar(&flagSkipAuth, "skip-auth", false, "Use the cached token without checking its expiry")

	authCmd.Flags().Bool("force", false, "Exchange credentials even if the cached token is still valid")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)

	// environments subcommands
	environmentsCmd.AddCommand(environmentsListCmd)
	environmentsCmd.AddCommand(environmentsNumberedCmd)
	environmentsCmd.AddCommand(environmentsExistsCmd)
	environmentsCmd.AddCommand(environmentsSelectCmd)
	environmentsCmd.AddCommand(environmentsSecretCmd)
	environmentsCmd.AddCommand(environmentsKeysCmd)
	environmentsCmd.AddCommand(environmentsSubscriptionsCmd)
	environmentsSubscriptionsCmd.Flags().Bool("refresh", false, "Refresh the environments snapshot first")

	spacesCmd.AddCommand(spacesListCmd)
	workbooksCmd.AddCommand(workbooksListCmd)
	usersCmd.AddCommand(usersListCmd)
	usersListCmd.Flags().String("email", "", "Only users with this email")
	guestsCmd.AddCommand(guestsListCmd)
	guestsListCmd.Flags().String("email", "", "Only guests with this email")
	blueprintsCmd.AddCommand(blueprintsIndexCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")
	exportCmd.AddCommand(exportListCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(environmentsCmd)
	rootCmd.AddCommand(spacesCmd)
	rootCmd.AddCommand(workbooksCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(guestsCmd)
	rootCmd.AddCommand(blueprintsCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
