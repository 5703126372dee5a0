package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"manifest_fetcher/internal/clipboard"
	"manifest_fetcher/internal/config"
	"manifest_fetcher/internal/console"
	"manifest_fetcher/internal/manifest"
	"manifest_fetcher/internal/utils"
	"manifest_fetcher/pkg/mfetch"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version information - set via ldflags during build.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Command line flags
var verbose bool

// ErrLocked is returned when another run holds the instance lock.
var ErrLocked = errors.New("mfetch is already running")

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mfetch [manifest]",
	Short: "Fetch every file listed in a modpack manifest",
	Long: `mfetch reads a manifest (modrinth.index.json, YAML, or a .mrpack archive,
local or over http(s)) and downloads each listed file under the output root,
mirroring the manifest's relative paths.`,
	Version:       Version,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		utils.SetVerbose(verbose)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := resolveSettings(cmd)
		if err != nil {
			return err
		}

		noColor, _ := cmd.Flags().GetBool("no-color")
		if noColor {
			color.NoColor = true
		}

		location, err := resolveLocation(cmd, args, settings, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}

		// One batch at a time so two runs never write the same tree.
		acquired, err := AcquireLock()
		if err != nil {
			return err
		}
		if !acquired {
			return ErrLocked
		}
		defer func() {
			if err := ReleaseLock(); err != nil {
				utils.Debug("Error releasing lock: %v", err)
			}
		}()

		ctx, stop := withSignalCancel(cmd.Context())
		defer stop()

		verify, _ := cmd.Flags().GetBool("verify")
		noHistory, _ := cmd.Flags().GetBool("no-history")
		_, err = runFetch(ctx, cmd.OutOrStdout(), location, &mfetch.ClientOptions{
			Verbose:        verbose,
			Settings:       settings,
			Verify:         verify,
			DisableHistory: noHistory,
		})
		return err
	},
}

// runFetch builds a client around a console reporter and runs one batch.
// Only manifest and setup errors are returned; exit status does not depend
// on how many files failed.
func runFetch(ctx context.Context, out io.Writer, location string, opts *mfetch.ClientOptions) (*mfetch.Summary, error) {
	reporter := console.NewReporter(out, color.NoColor)
	opts.Reporter = reporter

	client, err := mfetch.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		if err := client.Shutdown(); err != nil {
			utils.Debug("Shutdown error: %v", err)
		}
	}()

	utils.Debug("Run start: manifest=%s version=%s", location, Version)
	summary, err := client.Fetch(ctx, location)
	if err != nil {
		reporter.LoadFailed(err)
		return nil, err
	}
	if summary.Interrupted {
		fmt.Fprintf(out, "Interrupted: %d of %d files not attempted\n", summary.Total-len(summary.Results), summary.Total)
	}
	return summary, nil
}

// resolveSettings layers settings file, .env and environment, then any flags
// the user set explicitly.
func resolveSettings(cmd *cobra.Command) (*config.Settings, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		utils.Debug("Failed to load settings, using defaults: %v", err)
		settings = config.DefaultSettings()
	}
	if err := config.ApplyEnv(settings, ".env"); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		settings.General.OutputRoot, _ = flags.GetString("output")
	}
	if flags.Changed("user-agent") {
		settings.Network.UserAgent, _ = flags.GetString("user-agent")
	}
	if flags.Changed("timeout") {
		d, _ := flags.GetDuration("timeout")
		if d < 0 {
			return nil, fmt.Errorf("--timeout must not be negative")
		}
		settings.Network.Timeout = config.Duration(d)
	}
	if flags.Changed("limit") {
		limit, _ := flags.GetInt64("limit")
		if limit < 0 {
			return nil, fmt.Errorf("--limit must not be negative")
		}
		settings.Network.RateLimit = limit
	}
	if flags.Changed("http3") {
		settings.Network.HTTP3, _ = flags.GetBool("http3")
	}
	if settings.Network.UserAgent == config.DefaultUserAgent {
		settings.Network.UserAgent = config.DefaultUserAgent + "/" + Version
	}
	return settings, nil
}

// resolveLocation picks the manifest from the positional argument,
// --manifest, or --clipboard, and prompts when none is given.
func resolveLocation(cmd *cobra.Command, args []string, settings *config.Settings, in io.Reader, out io.Writer) (string, error) {
	manifestFlag, _ := cmd.Flags().GetString("manifest")
	clipboardFlag, _ := cmd.Flags().GetBool("clipboard")

	switch {
	case len(args) == 1 && manifestFlag != "":
		return "", fmt.Errorf("give the manifest either as an argument or with --manifest, not both")
	case len(args) == 1:
		return args[0], nil
	case manifestFlag != "":
		return manifestFlag, nil
	case clipboardFlag:
		location, err := clipboard.ReadLocation()
		if err != nil {
			return "", err
		}
		fmt.Fprintf(out, "Manifest from clipboard: %s\n", location)
		return location, nil
	}

	def := settings.General.DefaultManifest
	if def == "" {
		def = config.DefaultManifestPath
	}
	return PromptManifestPath(in, out, def)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, manifest.ErrNotFound) && !errors.Is(err, manifest.ErrMalformed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.Flags().StringP("manifest", "m", "", "Manifest path or http(s) URL")
	rootCmd.Flags().StringP("output", "o", config.DefaultOutputRoot, "Output root directory")
	rootCmd.Flags().Bool("clipboard", false, "Read the manifest location from the clipboard")
	rootCmd.Flags().Bool("http3", false, "Use HTTP/3 (QUIC) for downloads")
	rootCmd.Flags().Duration("timeout", 0, "Per-request timeout (0 waits indefinitely)")
	rootCmd.Flags().Int64("limit", 0, "Bandwidth limit in bytes/s (0 is unlimited)")
	rootCmd.Flags().Bool("verify", false, "Check sha512/sha1 hashes declared in the manifest")
	rootCmd.Flags().Bool("no-history", false, "Do not record this run in history")
	rootCmd.Flags().Bool("no-color", false, "Disable colored output")
	rootCmd.Flags().String("user-agent", "", "User-Agent header for requests")
	rootCmd.SetVersionTemplate("mfetch v{{.Version}}\n")
}
