package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pushchain/confdeploy/internal/adapter"
	"github.com/pushchain/confdeploy/internal/deploy"
	"github.com/pushchain/confdeploy/internal/exitcodes"
	"github.com/pushchain/confdeploy/internal/settings"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <service> <config>",
	Short: "Remove a configuration and reload the daemon",
	Long: `Removes the files the service adapter installed for <service>/<config>
and re-runs the validate and activate hooks. Uninstall takes no snapshot
and is not rolled back.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		orch, done := newOrchestrator(d)
		defer done()
		return handleUninstall(cmd.Context(), d, orch, args[0], args[1])
	},
}

func handleUninstall(ctx context.Context, d *Deps, orch *deploy.Orchestrator, service, configName string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p := d.Printer
	if err := adapter.CheckConfigName(configName); err != nil {
		return codedError(err)
	}
	// A config the descriptor does not define is refused before the
	// prompt, so nothing is removed and no hook runs.
	s, err := settings.NewResolver(d.Cfg, Version).Resolve(service, configName)
	if err != nil {
		return codedError(err)
	}
	a, err := d.Registry.Get(service, d.adapterDeps())
	if err != nil {
		return codedError(err)
	}

	// Require confirmation for destructive operation
	if !p.Structured() && !flagYes {
		if flagNonInteractive || !d.Prompter.IsInteractive() {
			return exitcodes.InvalidArgsError("uninstall requires confirmation: use --yes to confirm in non-interactive mode")
		}
		p.Warn(fmt.Sprintf("This will remove %s/%s and reload the daemon", service, configName))
		response, err := d.Prompter.ReadLine("Confirm uninstall? (y/N): ")
		response = strings.ToLower(strings.TrimSpace(response))
		if err != nil || (response != "y" && response != "yes") {
			p.Info("Uninstall cancelled")
			return nil
		}
	}

	out, err := orch.Uninstall(ctx, a, configName, s)
	if out.ID == "" {
		return err
	}
	printOutcome(p, out)
	if err != nil {
		return silentErr{codedError(err)}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}
