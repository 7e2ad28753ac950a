package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pushchain/confdeploy/internal/config"
	"github.com/pushchain/confdeploy/internal/exitcodes"
	"github.com/pushchain/confdeploy/internal/logging"
	ui "github.com/pushchain/confdeploy/internal/ui"
)

// Version information - set via -ldflags during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// rootCmd wires the CLI surface using Cobra. Persistent flags are
// applied to a loaded config in loadCfg(). Subcommands implement the
// actual operations (install, uninstall, render, history, etc.).
var rootCmd = &cobra.Command{
	Use:           "confdeploy",
	Short:         "Transactional config deployer",
	Long:          "Render, install and activate service configurations with automatic rollback.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize global UI config from flags after parsing but before command execution
		ui.InitGlobal(ui.Config{
			NoColor:        flagNoColor,
			NoEmoji:        flagNoEmoji,
			Yes:            flagYes,
			NonInteractive: flagNonInteractive,
			Quiet:          flagQuiet,
			Debug:          flagDebug,
		})

		// Set NO_COLOR env so lipgloss and other libraries respect the flag
		if flagNoColor {
			os.Setenv("NO_COLOR", "1")
		}

		logging.SetDefault("confdeploy", Version, flagDebug)
	},
}

var (
	flagHome           string
	flagServicesDir    string
	flagTemplatesDir   string
	flagTargetRoot     string
	flagMetricsFile    string
	flagHistoryDir     string
	flagOutput         string
	flagQuiet          bool
	flagDebug          bool
	flagNoColor        bool
	flagNoEmoji        bool
	flagYes            bool
	flagNonInteractive bool
)

func init() {
	// Persistent flags to override defaults
	rootCmd.PersistentFlags().StringVar(&flagHome, "home", "", "Deployer home directory (overrides env)")
	rootCmd.PersistentFlags().StringVar(&flagServicesDir, "services-dir", "", "Service descriptor directory (default <home>/services)")
	rootCmd.PersistentFlags().StringVar(&flagTemplatesDir, "templates-dir", "", "Template root directory (default <home>/templates)")
	rootCmd.PersistentFlags().StringVar(&flagTargetRoot, "target-root", "", "Daemon configuration root, e.g. /etc/nginx (overrides env)")
	rootCmd.PersistentFlags().StringVar(&flagMetricsFile, "metrics-file", "", "Write deployment metrics to this node-exporter textfile")
	rootCmd.PersistentFlags().StringVar(&flagHistoryDir, "history-dir", "", "Deployment history directory (default <home>/history)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "Output format: json|yaml|text")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Quiet mode: minimal output (suppresses extras)")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "Debug output: extra diagnostic logs")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable ANSI colors")
	rootCmd.PersistentFlags().BoolVar(&flagNoEmoji, "no-emoji", false, "Disable emoji output")
	rootCmd.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "Assume yes for all prompts")
	rootCmd.PersistentFlags().BoolVar(&flagNonInteractive, "non-interactive", false, "Fail instead of prompting")

	// Only the root command gets the grouped help; subcommands use cobra's default.
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != rootCmd {
			fmt.Fprintln(os.Stdout, cmd.UsageString())
			return
		}
		// Help runs before PersistentPreRun, so manually configure colors
		c := ui.NewColorConfig()
		c.Enabled = c.Enabled && !flagNoColor
		c.EmojiEnabled = c.EmojiEnabled && !flagNoEmoji
		w := os.Stdout

		const cmdWidth = 36

		fmt.Fprintln(w, c.Header(" confdeploy "))
		fmt.Fprintln(w, c.Description("Render, install and activate service configurations with automatic rollback."))
		fmt.Fprintln(w, c.Separator(50))
		fmt.Fprintln(w)

		fmt.Fprintln(w, c.SubHeader("USAGE"))
		fmt.Fprintf(w, "  %s <command> [flags]\n", "confdeploy")
		fmt.Fprintln(w)

		fmt.Fprintln(w, c.SubHeader("Deploy"))
		fmt.Fprintln(w, c.FormatCommandAligned("install <service> <config>", "Install and activate a configuration", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("uninstall <service> <config>", "Remove a configuration and reload", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("watch <service> <config>", "Redeploy when templates change", cmdWidth))
		fmt.Fprintln(w)

		fmt.Fprintln(w, c.SubHeader("Inspect"))
		fmt.Fprintln(w, c.FormatCommandAligned("settings <service> <config>", "Show resolved settings", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("render <service> <config> <tpl>", "Render a template without installing", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("history [service] [config]", "List past deployments", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("services", "List adapters and descriptors", cmdWidth))
		fmt.Fprintln(w)

		fmt.Fprintln(w, c.SubHeader("Utilities"))
		fmt.Fprintln(w, c.FormatCommandAligned("doctor", "Run diagnostic checks", cmdWidth))
		fmt.Fprintln(w, c.FormatCommandAligned("version", "Show version", cmdWidth))
		fmt.Fprintln(w)
	})
}

// silentErr marks errors whose message was already shown to the user.
type silentErr struct{ error }

func (e silentErr) Unwrap() error { return e.error }

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var se silentErr
		if !errors.As(err, &se) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitcodes.CodeForError(err))
	}
}

// loadCfg reads defaults + env via internal/config.Load() and then
// applies overrides from persistent flags. Home is applied first since it
// re-roots the services, templates and history directories.
func loadCfg() config.Config {
	cfg := config.Load()
	if flagHome != "" {
		cfg = cfg.WithHome(flagHome)
	}
	if flagServicesDir != "" {
		cfg.ServicesDir = flagServicesDir
	}
	if flagTemplatesDir != "" {
		cfg.TemplateRoot = flagTemplatesDir
	}
	if flagTargetRoot != "" {
		cfg = cfg.WithTargetRoot(flagTargetRoot)
	}
	if flagHistoryDir != "" {
		cfg.HistoryDir = flagHistoryDir
	}
	if flagMetricsFile != "" {
		cfg.MetricsFile = flagMetricsFile
	}
	return cfg
}
