package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cv-go/internal/app"
	"cv-go/internal/config"
	"cv-go/internal/cv"
)

var version = "dev"

var verbose bool

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	if app.IsReported(err) {
		fmt.Println(app.Message(err))
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// newApp reads the config and creates a CVApp for the current directory.
// The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Commit", "Push").
func newApp(operation string) (*app.CVApp, error) {
	cfg, _, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting current directory: %w", err)
	}

	a, err := app.NewCVApp(cfg, cwd, operation, app.Options{Verbose: verbose})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", cv.ErrUsage, fmt.Sprintf(format, args...))
}

var rootCmd = &cobra.Command{
	Use:           "cv",
	Short:         "Minimal version control for a directory tree",
	Version:       version,
	Args:          cobra.ArbitraryArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			return usageError("unrecognized command: %s", args[0])
		}
		return cmd.Help()
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a repo in the current directory",
	Args:  noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Init")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Init(); err != nil {
			return err
		}
		fmt.Printf("Repo initialized at: %s\n", a.Root())
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show uncommitted changes",
	Args:  noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Status")
		if err != nil {
			return err
		}
		defer a.Close()

		changes, err := a.Status()
		if err != nil {
			return err
		}
		printStatus(os.Stdout, changes)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked files and uncommitted changes",
	Args:  noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("List")
		if err != nil {
			return err
		}
		defer a.Close()

		tracked, changes, err := a.List()
		if err != nil {
			return err
		}
		printList(os.Stdout, tracked, changes)
		return nil
	},
}

var commitCmd = &cobra.Command{
	Use:   "commit -m MESSAGE",
	Short: "Record the current changes",
	Args:  noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		message, _ := cmd.Flags().GetString("message")
		yes, _ := cmd.Flags().GetBool("yes")
		if strings.TrimSpace(message) == "" {
			return usageError("commit requires -m <message>")
		}

		a, err := newApp("Commit")
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.Commit(message, confirmEmpty(yes))
		if err != nil {
			return err
		}
		fmt.Printf("Saved %d file(s).\n", len(c.Changes))
		return nil
	},
}

// confirmEmpty decides how an empty commit is confirmed. Without --yes the
// user is only asked on a terminal.
func confirmEmpty(yes bool) func() bool {
	if yes {
		return func() bool { return true }
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	return func() bool { return askConfirm(os.Stdin, os.Stdout) }
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the commit history",
	Args:  noArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Log")
		if err != nil {
			return err
		}
		defer a.Close()

		commits, err := a.Log()
		if err != nil {
			return err
		}
		printLog(os.Stdout, commits, time.Local)
		return nil
	},
}

var pushCmd = &cobra.Command{
	Use:   "push [SERVER-URL API-KEY]",
	Short: "Upload committed files to the remote",
	Args:  remoteArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		a, err := newApp("Push")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Push(ctx, remoteOverride(args))
		if err != nil {
			return err
		}
		fmt.Printf("Pushed %d file(s), deleted %d.\n", res.Transferred, res.Removed)
		return nil
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull [SERVER-URL API-KEY]",
	Short: "Update the working tree from the remote",
	Args:  remoteArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		a, err := newApp("Pull")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Pull(ctx, remoteOverride(args))
		if err != nil {
			return err
		}
		fmt.Printf("Pulled %d file(s), removed %d.\n", res.Transferred, res.Removed)
		return nil
	},
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError("%s takes no arguments", cmd.Name())
	}
	return nil
}

func remoteArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 0 && len(args) != 2 {
		return usageError("%s takes either no arguments or <server-url> <api-key>", cmd.Name())
	}
	return nil
}

func remoteOverride(args []string) *app.RemoteOverride {
	if len(args) != 2 {
		return nil
	}
	return &app.RemoteOverride{URL: args[0], APIKey: args[1]}
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := app.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", path)
		fmt.Printf("Control Folder: %s\n", cfg.ControlFolder)
		fmt.Printf("Ignore File:    %s\n", cfg.IgnoreFile)
		fmt.Printf("Log Dir:        %s\n", cfg.LogDir)
		fmt.Printf("Storage:        %s\n", cfg.Storage.Type)
		fmt.Printf("Remote:         %s\n", describeRemote(cfg.Remote))
		fmt.Printf("Encryption:     %s\n", cfg.Encryption.Type)
		if len(cfg.Filesystem.Ignore) > 0 {
			fmt.Printf("Ignore:         %s\n", strings.Join(cfg.Filesystem.Ignore, ", "))
		}
		return nil
	},
}

func describeRemote(r config.RemoteConfig) string {
	switch r.Type {
	case "s3":
		return fmt.Sprintf("s3 (bucket %s, prefix %q)", r.S3Bucket, r.S3Prefix)
	case "filesystem":
		return fmt.Sprintf("filesystem (%s)", r.FSRoot)
	case "memory":
		return "memory"
	default:
		if r.URL == "" {
			return "http (no url set)"
		}
		return fmt.Sprintf("http (%s)", r.URL)
	}
}

var configKeygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Create the encryption identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := app.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		recipient, err := app.Keygen(cfg)
		if err != nil {
			return fmt.Errorf("generating key: %w", err)
		}
		fmt.Printf("Identity written to %s\n", cfg.Encryption.IdentityPath)
		fmt.Printf("Public key: %s\n", recipient)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cv version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Mirror log output to stderr")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError("%v", err)
	})
	rootCmd.SetVersionTemplate("cv version {{.Version}}\n")

	commitCmd.Flags().StringP("message", "m", "", "Commit message")
	commitCmd.Flags().BoolP("yes", "y", false, "Record an empty commit without asking")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeygenCmd)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
