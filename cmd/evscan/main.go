package main

import (
	"fmt"
	"os"

	"evscan/internal/app"
	"evscan/internal/config"
	"evscan/internal/pattern"
	"evscan/internal/runner"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a ScanApp. The caller must defer app.Close().
func newApp(opts app.Options) (*app.ScanApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewScanApp(cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:   "evscan",
	Short: "Forensic evidence container scanner",
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
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Patterns:  %s\n", cfg.Patterns.Path)
		fmt.Printf("Output:    %s\n", cfg.Output.Dir)
		fmt.Printf("Store:     %s\n", cfg.Store.Type)
		return nil
	},
}

// patterns command
var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Manage pattern rules",
}

var patternsCheckCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Validate a pattern rule file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := pattern.FromConfig(args[0], pattern.FlagIgnoreCase)
		if err != nil {
			return fmt.Errorf("pattern file invalid: %w", err)
		}

		rules := engine.Rules()
		fmt.Printf("%d rule(s) compiled from %s\n", len(rules), args[0])
		for _, r := range rules {
			fmt.Printf("  %-20s %s\n", r.Name, r.Expression)
		}
		return nil
	},
}

// scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan evidence containers for pattern matches",
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("input")
		patternsPath, _ := cmd.Flags().GetString("patterns")
		outputDir, _ := cmd.Flags().GetString("output")
		verbose, _ := cmd.Flags().GetBool("verbose")

		a, err := newApp(app.Options{
			PatternsPath: patternsPath,
			OutputDir:    outputDir,
			Verbose:      verbose,
		})
		if err != nil {
			return err
		}
		defer a.Close()

		var onProgress runner.ProgressFunc
		if verbose {
			onProgress = printProgress
		}

		summary, err := a.Scan(input, onProgress)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		fmt.Printf("Processed %d container(s), %d match(es)\n", summary.Processed, summary.Matches)
		if len(summary.Failures) > 0 {
			fmt.Printf("Failed containers:\n")
			for _, f := range summary.Failures {
				fmt.Printf("  %s\n", f)
			}
		}
		fmt.Printf("JSON report: %s\n", summary.JSONPath)
		fmt.Printf("CSV report:  %s\n", summary.CSVPath)
		return nil
	},
}

// printProgress renders progress events for interactive runs.
func printProgress(ev runner.Event) {
	switch ev.Type {
	case "archive-start":
		fmt.Printf("%s: %d textual member(s)\n", ev.Path, ev.TextualTotal)
	case "member-progress":
		switch ev.Stage {
		case "done":
			fmt.Printf("  [%d/%d] %s (%s)\n", ev.Index+1, ev.Total, ev.Member, ev.Engine)
		case "skip":
			fmt.Printf("  [%d/%d] %s skipped\n", ev.Index+1, ev.Total, ev.Member)
		}
	case "archive-complete":
		fmt.Printf("%s: done\n", ev.Path)
	}
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// patterns subcommands
	patternsCmd.AddCommand(patternsCheckCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringP("input", "i", "", "Directory containing evidence containers")
	scanCmd.Flags().StringP("patterns", "c", "", "Pattern rule file (overrides config)")
	scanCmd.Flags().StringP("output", "o", "", "Report output directory (overrides config)")
	scanCmd.Flags().BoolP("verbose", "v", false, "Show detailed progress and debug logs")
	scanCmd.MarkFlagRequired("input")
}
