package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pushchain/confdeploy/internal/adapter"
	"github.com/pushchain/confdeploy/internal/deploy"
	"github.com/pushchain/confdeploy/internal/exitcodes"
	"github.com/pushchain/confdeploy/internal/history"
	"github.com/pushchain/confdeploy/internal/metrics"
	"github.com/pushchain/confdeploy/internal/settings"
	ui "github.com/pushchain/confdeploy/internal/ui"
)

func getPrinter() ui.Printer { return ui.NewPrinterFromGlobal(flagOutput) }

// chatty reports whether progress lines should be printed.
func chatty(p ui.Printer) bool { return !p.Structured() && !flagQuiet }

// newOrchestrator builds an orchestrator reporting to the history journal
// and the metrics textfile when they are configured. The journal is
// best-effort: a locked or unreadable store only costs the record.
func newOrchestrator(d *Deps) (*deploy.Orchestrator, func()) {
	var recorders []deploy.Recorder
	closers := []func(){}

	if d.Cfg.HistoryDir != "" {
		store, err := history.Open(history.Options{Path: d.Cfg.HistoryDir, Logger: d.Logger})
		if err != nil {
			d.Logger.Warn("history disabled for this run", "dir", d.Cfg.HistoryDir, "error", err)
		} else {
			recorders = append(recorders, store)
			closers = append(closers, func() {
				if err := store.Close(); err != nil {
					d.Logger.Warn("closing history", "error", err)
				}
			})
		}
	}
	if d.Cfg.MetricsFile != "" {
		recorders = append(recorders, metrics.New(d.Cfg.MetricsFile))
	}

	orch := deploy.New(d.Logger, recorders...)
	return orch, func() {
		for _, c := range closers {
			c()
		}
	}
}

// codedError attaches the exit code matching err's kind.
func codedError(err error) error {
	if err == nil {
		return nil
	}
	var ec *exitcodes.ErrorWithCode
	var re *settings.ResolutionError
	switch {
	case errors.As(err, &ec):
		return err
	case errors.Is(err, adapter.ErrInvalidConfigName):
		return exitcodes.WrapError(exitcodes.InvalidArgs, "invalid config name", err)
	case errors.As(err, &re), errors.Is(err, adapter.ErrUnknownService):
		return exitcodes.PreconditionErr(err)
	case errors.Is(err, deploy.ErrCorrupted):
		return exitcodes.CorruptedErr(err)
	case errors.Is(err, deploy.ErrRolledBack):
		return exitcodes.RolledBackErr(err)
	case errors.Is(err, deploy.ErrUninstallFailed):
		return exitcodes.ProcessErr(err)
	}
	return err
}

// printOutcome reports a finished deployment. Structured formats emit the
// journal form of the outcome.
func printOutcome(p ui.Printer, o deploy.Outcome) {
	if p.Data(history.FromOutcome(o)) {
		return
	}
	target := o.Service + "/" + o.Config
	switch o.Result {
	case deploy.Installed:
		p.Success(fmt.Sprintf("%s installed and active", target))
	case deploy.Uninstalled:
		p.Success(fmt.Sprintf("%s uninstalled", target))
	case deploy.UninstallSkipped:
		p.Info(fmt.Sprintf("%s keeps a single shared configuration, nothing to uninstall", o.Service))
	case deploy.UninstallFailed:
		p.Error(fmt.Sprintf("%s could not be uninstalled: %v", target, o.Err))
	case deploy.InstallFailedRestored:
		p.Banner(ui.BannerWarning, "Deployment rolled back",
			fmt.Sprintf("Installing %s failed.", target),
			"The previous configuration was restored and is active.",
			"",
			"Cause: "+errString(o.Err))
	case deploy.InstallFailedCorrupted:
		p.Banner(ui.BannerDanger, "Configuration corrupted",
			fmt.Sprintf("Installing %s failed and the rollback failed too.", target),
			"The daemon configuration is broken and must be fixed manually.",
			"",
			"Cause:    "+errString(o.Err),
			"Rollback: "+errString(o.RollbackErr))
	}
	if flagDebug && len(o.States) > 0 {
		states := make([]string, len(o.States))
		for i, s := range o.States {
			states[i] = string(s)
		}
		p.KeyValueLine("States", strings.Join(states, " → "), "dim")
		p.KeyValueLine("Duration", ui.FormatDuration(o.Duration), "dim")
	}
}

func errString(err error) string {
	if err == nil {
		return "unknown"
	}
	return err.Error()
}
