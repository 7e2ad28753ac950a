package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pushchain/confdeploy/internal/adapter"
	"github.com/pushchain/confdeploy/internal/deploy"
	"github.com/pushchain/confdeploy/internal/settings"
	ui "github.com/pushchain/confdeploy/internal/ui"
)

var installCmd = &cobra.Command{
	Use:   "install <service> <config>",
	Short: "Install and activate a configuration",
	Long: `Resolves the settings for <service>/<config>, snapshots the files the
service adapter manages, installs the new configuration and runs the
validate and activate hooks. Any failure restores the snapshot and
re-activates the previous configuration.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		orch, done := newOrchestrator(d)
		defer done()
		return handleInstall(cmd.Context(), d, orch, args[0], args[1])
	},
}

// handleInstall runs one transactional install. Resolution and adapter
// lookup happen before anything on disk is touched.
func handleInstall(ctx context.Context, d *Deps, orch *deploy.Orchestrator, service, configName string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p := d.Printer
	if err := adapter.CheckConfigName(configName); err != nil {
		return codedError(err)
	}

	s, err := settings.NewResolver(d.Cfg, Version).Resolve(service, configName)
	if err != nil {
		return codedError(err)
	}
	a, err := d.Registry.Get(service, d.adapterDeps())
	if err != nil {
		return codedError(err)
	}

	if chatty(p) {
		p.Info(fmt.Sprintf("Setting up service [%s] for config [%s]...", service, configName))
	}
	out, err := orch.Install(ctx, a, configName, s)
	if out.ID == "" {
		// Snapshot failed or ctx was already done: nothing was changed.
		if err != nil && chatty(p) {
			p.PrintError(ui.ErrorMessage{
				Problem: "Nothing was changed: " + err.Error(),
				Causes:  []string{"The current configuration could not be snapshotted", "The run was cancelled before it started"},
				Actions: []string{"Check that " + d.Cfg.TempDir + " is a writable directory with free space", "confdeploy doctor"},
			})
			return silentErr{err}
		}
		return err
	}
	printOutcome(p, out)
	if err != nil {
		return silentErr{codedError(err)}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(installCmd)
}
