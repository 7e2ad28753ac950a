package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pushchain/confdeploy/internal/exitcodes"
	"github.com/pushchain/confdeploy/internal/history"
	ui "github.com/pushchain/confdeploy/internal/ui"
)

var flagHistoryLimit int

var historyCmd = &cobra.Command{
	Use:   "history [service] [config]",
	Short: "List past deployments, newest first",
	Args:  cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		var service, configName string
		if len(args) > 0 {
			service = args[0]
		}
		if len(args) > 1 {
			configName = args[1]
		}
		return handleHistory(d, service, configName, flagHistoryLimit)
	},
}

func handleHistory(d *Deps, service, configName string, limit int) error {
	if d.Cfg.HistoryDir == "" {
		return exitcodes.PreconditionError("deployment history is disabled (no history directory configured)")
	}
	if configName != "" && service == "" {
		return exitcodes.InvalidArgsErrorf("config filter %q requires a service", configName)
	}
	store, err := history.Open(history.Options{Path: d.Cfg.HistoryDir, Logger: d.Logger})
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(service, configName, limit)
	if err != nil {
		return err
	}
	if records == nil {
		records = []history.Record{}
	}

	p := d.Printer
	if p.Data(records) {
		return nil
	}
	if len(records) == 0 {
		p.Info("No deployments recorded")
		return nil
	}
	c := p.Colors
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			ui.FormatAge(r.StartedAt),
			r.Operation,
			r.Service,
			r.Config,
			c.StatusIcon(r.Result) + " " + r.Result,
			ui.FormatDuration(time.Duration(r.DurationMS) * time.Millisecond),
		})
	}
	p.Table([]string{"WHEN", "OPERATION", "SERVICE", "CONFIG", "RESULT", "DURATION"}, rows)

	if flagQuiet {
		return nil
	}
	for _, r := range records {
		if r.Error == "" {
			continue
		}
		p.Textf("\n%s %s\n", c.Label(r.ID[:min(8, len(r.ID))]), c.Error(firstLine(r.Error)))
		if r.RollbackError != "" {
			p.Textf("  %s %s\n", c.Label("rollback:"), c.Error(firstLine(r.RollbackError)))
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "Maximum number of records (0 for all)")
	rootCmd.AddCommand(historyCmd)
}
