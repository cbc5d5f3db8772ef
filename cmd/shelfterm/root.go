package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/shelfterm/shelfterm/internal/badversion"
	"github.com/shelfterm/shelfterm/internal/config"
	"github.com/shelfterm/shelfterm/internal/mode"
	"github.com/shelfterm/shelfterm/internal/orchestrator"
	"github.com/shelfterm/shelfterm/internal/semver"
	"github.com/shelfterm/shelfterm/pkg/logger"
)

// CLI is the command-line front end for the update engine.
type CLI struct {
	version string
}

// NewCLI builds a CLI reporting version as the host's current version.
func NewCLI(version string) *CLI {
	return &CLI{version: version}
}

// GetRootCommand returns the root cobra command.
func (cli *CLI) GetRootCommand() *cobra.Command {
	var configFile string
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "shelfterm",
		Short: "shelfterm self-update engine",
		Long:  "Background update checker/downloader/verifier/installer for shelfterm.",
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to the update configuration JSON file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		cli.checkUpdateCommand(&configFile, &logLevel),
		cli.badVersionsCommand(&configFile, &logLevel),
		cli.showConfigCommand(&configFile, &logLevel),
	)

	return rootCmd
}

// cacheDir returns the per-user cache root for shelfterm's update state
// (spec.md §6.2: "<cache>/<product>").
func cacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve user cache directory: %w", err)
	}
	return filepath.Join(base, "shelfterm"), nil
}

func (cli *CLI) checkUpdateCommand(configFile, logLevel *string) *cobra.Command {
	var nonInteractive bool

	cmd := &cobra.Command{
		Use:   "check-update",
		Short: "Run one check-and-update pass",
		Long:  "Checks for a newer release, and if confirmed (or non-interactive), downloads, verifies, and installs it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.NewLogger(logger.Config{Level: *logLevel, Format: "text", Output: "stderr"})

			dir, err := cacheDir()
			if err != nil {
				return err
			}
			cfg := config.Load(*configFile, log)
			if !cfg.Interactive {
				nonInteractive = true
			}

			currentVersion, err := semver.Parse(cli.version)
			if err != nil {
				return fmt.Errorf("invalid build version %q: %w", cli.version, err)
			}

			executablePath, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve running executable path: %w", err)
			}

			handler := mode.NewConsole(os.Stdout, os.Stderr, os.Stdin, nonInteractive)
			orch := orchestrator.New(cfg, "shelfterm", currentVersion, executablePath, dir, handler, log)

			out, failure := orch.CheckAndUpdate(context.Background())
			os.Exit(exitCode(out, failure))
			return nil
		},
	}

	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "never prompt; proceed as if every confirmation were accepted")
	return cmd
}

// exitCode maps an Outcome/Failure pair to the process exit code of
// spec.md §6.5: 0 on Updated/UpToDate/Skipped{disabled}, 1 on any other
// Skipped, 2 on any UpdateFailure.
func exitCode(out orchestrator.Outcome, failure orchestrator.Failure) int {
	if failure != nil {
		return 2
	}
	switch v := out.(type) {
	case orchestrator.Updated, orchestrator.UpToDate:
		return 0
	case orchestrator.Skipped:
		if v.Reason == orchestrator.ReasonDisabled {
			return 0
		}
		return 1
	default:
		return 2
	}
}

func (cli *CLI) badVersionsCommand(configFile, logLevel *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bad-versions",
		Short: "Inspect or clear the durable bad-version memory",
	}
	cmd.AddCommand(
		cli.badVersionsListCommand(configFile, logLevel),
		cli.badVersionsClearCommand(configFile, logLevel),
	)
	return cmd
}

func (cli *CLI) badVersionsListCommand(configFile, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List versions that failed their post-install health check",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.NewLogger(logger.Config{Level: *logLevel, Format: "text", Output: "stderr"})
			dir, err := cacheDir()
			if err != nil {
				return err
			}
			tracker := badversion.New(filepath.Join(dir, "bad_versions.json"), log)
			versions := tracker.Load()
			sort.Strings(versions)
			if len(versions) == 0 {
				fmt.Println("no bad versions recorded")
				return nil
			}
			for _, v := range versions {
				fmt.Println(v)
			}
			return nil
		},
	}
}

func (cli *CLI) badVersionsClearCommand(configFile, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the bad-version memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.NewLogger(logger.Config{Level: *logLevel, Format: "text", Output: "stderr"})
			dir, err := cacheDir()
			if err != nil {
				return err
			}
			tracker := badversion.New(filepath.Join(dir, "bad_versions.json"), log)
			if err := tracker.Clear(); err != nil {
				return fmt.Errorf("clear bad-version memory: %w", err)
			}
			fmt.Println("bad-version memory cleared")
			return nil
		},
	}
}

func (cli *CLI) showConfigCommand(configFile, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show-config",
		Short: "Print the effective layered update configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.NewLogger(logger.Config{Level: *logLevel, Format: "text", Output: "stderr"})
			cfg := config.Load(*configFile, log)
			fmt.Printf("enabled: %v\n", cfg.Enabled)
			fmt.Printf("check_interval_hours: %d\n", cfg.CheckIntervalHours)
			fmt.Printf("interactive: %v\n", cfg.Interactive)
			fmt.Printf("repo_owner: %s\n", cfg.RepoOwner)
			fmt.Printf("repo_name: %s\n", cfg.RepoName)
			fmt.Printf("temp_dir: %s\n", cfg.TempDir)
			fmt.Printf("backup_dir: %s\n", cfg.BackupDir)
			return nil
		},
	}
}
