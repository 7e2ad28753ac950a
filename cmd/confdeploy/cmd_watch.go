package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pushchain/confdeploy/internal/adapter"
	"github.com/pushchain/confdeploy/internal/watch"
)

var (
	flagWatchDebounce time.Duration
	flagWatchInitial  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <service> <config>",
	Short: "Redeploy a configuration when its descriptor or templates change",
	Long: `Watches the service descriptor and the service's template directory and
runs a transactional install after every burst of changes. A failed
install is rolled back as usual and watching continues.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return handleWatch(ctx, d, args[0], args[1], flagWatchDebounce, flagWatchInitial)
	},
}

// handleWatch blocks until ctx is cancelled.
func handleWatch(ctx context.Context, d *Deps, service, configName string, debounce time.Duration, initial bool) error {
	if err := adapter.CheckConfigName(configName); err != nil {
		return codedError(err)
	}
	if _, err := d.Registry.Get(service, d.adapterDeps()); err != nil {
		return codedError(err)
	}

	orch, done := newOrchestrator(d)
	defer done()

	redeploy := func(ctx context.Context) error {
		return handleInstall(ctx, d, orch, service, configName)
	}
	if initial {
		if err := redeploy(ctx); err != nil {
			d.Logger.Warn("initial deploy failed", "error", err)
		}
	}

	w := &watch.Watcher{
		Files:    []string{filepath.Join(d.Cfg.ServicesDir, service+".yaml")},
		Trees:    []string{filepath.Join(d.Cfg.TemplateRoot, service)},
		Debounce: debounce,
		Deploy:   redeploy,
		Logger:   d.Logger,
	}
	if chatty(d.Printer) {
		d.Printer.Info("Watching " + service + "/" + configName + " (Ctrl+C to stop)")
	}
	return w.Run(ctx)
}

func init() {
	watchCmd.Flags().DurationVar(&flagWatchDebounce, "debounce", watch.DefaultDebounce, "Quiet period before redeploying")
	watchCmd.Flags().BoolVar(&flagWatchInitial, "initial", false, "Deploy once before watching")
	rootCmd.AddCommand(watchCmd)
}
