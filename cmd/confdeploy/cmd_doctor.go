package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pushchain/confdeploy/internal/adapter"
	"github.com/pushchain/confdeploy/internal/exitcodes"
	"github.com/pushchain/confdeploy/internal/hooks"
	"github.com/pushchain/confdeploy/internal/metrics"
	"github.com/pushchain/confdeploy/internal/settings"
	ui "github.com/pushchain/confdeploy/internal/ui"
)

// Disk checks warn below this much free space.
const minFreeBytes = 100 << 20

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the deployer setup",
	Long: `Performs health checks on the deployer setup including:
- Configuration validity
- Service descriptors and template directories
- Validate/activate hook commands on PATH
- Free disk space for snapshots and the target root`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Built by hand: newDeps refuses an invalid config, which doctor
		// reports as a failing check instead.
		d := &Deps{
			Cfg:      loadCfg(),
			Printer:  getPrinter(),
			Runner:   hooks.ExecRunner{},
			Registry: adapter.DefaultRegistry(),
			Logger:   slog.Default(),
			LookPath: exec.LookPath,
		}
		return runDoctor(d)
	},
}

type checkResult struct {
	Name    string   `json:"name" yaml:"name"`
	Status  string   `json:"status" yaml:"status"` // "pass", "warn", "fail"
	Message string   `json:"message" yaml:"message"`
	Details []string `json:"details,omitempty" yaml:"details,omitempty"`
}

func runDoctor(d *Deps) error {
	p := d.Printer
	text := !p.Structured()
	if text {
		p.Header("DEPLOYER HEALTH CHECK")
		p.Textf("\n")
	}

	checks := []func(*Deps) checkResult{
		checkConfig,
		checkDescriptors,
		checkTemplates,
		checkHooks,
		checkDiskSpace,
	}
	results := make([]checkResult, 0, len(checks))
	for _, check := range checks {
		r := check(d)
		if text {
			printCheck(p, r)
		}
		results = append(results, r)
	}

	passed, warned, failed := 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case "pass":
			passed++
		case "warn":
			warned++
		case "fail":
			failed++
		}
	}

	if !p.Data(map[string]any{"checks": results, "passed": passed, "warnings": warned, "failed": failed}) {
		c := p.Colors
		p.Section("Summary")
		summary := fmt.Sprintf("%d passed, %d warnings, %d failed", passed, warned, failed)
		switch {
		case failed > 0:
			p.Textf("%s\n", c.Error(summary))
		case warned > 0:
			p.Textf("%s\n", c.Warning(summary))
		default:
			p.Textf("%s\n", c.Success(summary))
		}
	}

	if failed > 0 {
		return silentErr{exitcodes.ValidationErrf("doctor found %d failing check(s)", failed)}
	}
	return nil
}

func checkConfig(d *Deps) checkResult {
	r := checkResult{Name: "Configuration"}
	if err := d.Cfg.Validate(); err != nil {
		r.Status = "fail"
		r.Message = err.Error()
		r.Details = []string{"Set the missing value with a flag or CONFDEPLOY_* environment variable"}
		return r
	}
	r.Status = "pass"
	r.Message = "Configuration is valid"
	r.Details = []string{
		"home: " + d.Cfg.HomeDir,
		"target root: " + d.Cfg.TargetRoot,
	}
	return r
}

func checkDescriptors(d *Deps) checkResult {
	r := checkResult{Name: "Service descriptors"}
	resolver := settings.NewResolver(d.Cfg, Version)
	names, err := resolver.Services()
	if err != nil {
		r.Status = "fail"
		r.Message = fmt.Sprintf("Cannot read %s", d.Cfg.ServicesDir)
		r.Details = []string{err.Error()}
		return r
	}
	if len(names) == 0 {
		r.Status = "warn"
		r.Message = fmt.Sprintf("No descriptors in %s", d.Cfg.ServicesDir)
		return r
	}

	bad := 0
	for _, name := range names {
		desc, err := resolver.Load(name)
		if err != nil {
			bad++
			r.Details = append(r.Details, err.Error())
			continue
		}
		line := fmt.Sprintf("%s: %d config(s)", name, len(desc.ConfigNames()))
		if d.Registry != nil {
			if _, err := d.Registry.Get(name, d.adapterDeps()); err != nil {
				line += " (no adapter)"
			}
		}
		r.Details = append(r.Details, line)
	}
	if bad > 0 {
		r.Status = "fail"
		r.Message = fmt.Sprintf("%d of %d descriptors are invalid", bad, len(names))
		return r
	}
	r.Status = "pass"
	r.Message = fmt.Sprintf("%d descriptor(s) parsed", len(names))
	return r
}

func checkTemplates(d *Deps) checkResult {
	r := checkResult{Name: "Templates"}
	st, err := os.Stat(d.Cfg.TemplateRoot)
	if err != nil || !st.IsDir() {
		r.Status = "fail"
		r.Message = fmt.Sprintf("Template root %s is not a directory", d.Cfg.TemplateRoot)
		return r
	}
	names, _ := settings.NewResolver(d.Cfg, Version).Services()
	for _, name := range names {
		if st, err := os.Stat(filepath.Join(d.Cfg.TemplateRoot, name)); err != nil || !st.IsDir() {
			r.Details = append(r.Details, fmt.Sprintf("%s: no template directory", name))
		}
	}
	if len(r.Details) > 0 {
		r.Status = "warn"
		r.Message = "Some services have no templates"
		return r
	}
	r.Status = "pass"
	r.Message = "Template root found"
	return r
}

func checkHooks(d *Deps) checkResult {
	r := checkResult{Name: "Hook commands"}
	lookPath := d.LookPath
	if lookPath == nil {
		r.Status = "warn"
		r.Message = "Hook commands not checked"
		return r
	}
	missing := 0
	for _, hook := range []struct {
		phase string
		cmd   []string
	}{
		{"validate", d.Cfg.ValidateCmd},
		{"activate", d.Cfg.ActivateCmd},
	} {
		if len(hook.cmd) == 0 {
			missing++
			r.Details = append(r.Details, hook.phase+": not configured")
			continue
		}
		path, err := lookPath(hook.cmd[0])
		if err != nil {
			missing++
			r.Details = append(r.Details, fmt.Sprintf("%s: %s not found on PATH", hook.phase, hook.cmd[0]))
			continue
		}
		r.Details = append(r.Details, fmt.Sprintf("%s: %s", hook.phase, path))
	}
	if missing > 0 {
		r.Status = "fail"
		r.Message = "Hook commands are missing"
		return r
	}
	r.Status = "pass"
	r.Message = "Hook commands found"
	return r
}

func checkDiskSpace(d *Deps) checkResult {
	r := checkResult{Name: "Disk space"}
	temp := d.Cfg.TempDir
	if temp == "" {
		temp = os.TempDir()
	}
	low := 0
	for _, path := range []string{temp, existingParent(d.Cfg.TargetRoot)} {
		usage, err := metrics.DiskUsage(path)
		if err != nil {
			low++
			r.Details = append(r.Details, err.Error())
			continue
		}
		line := fmt.Sprintf("%s: %s free of %s", path, ui.FormatBytes(usage.Free), ui.FormatBytes(usage.Total))
		if usage.Free < minFreeBytes {
			low++
			line += " (low)"
		}
		r.Details = append(r.Details, line)
	}
	if low > 0 {
		r.Status = "warn"
		r.Message = "Low or unknown free space"
		return r
	}
	r.Status = "pass"
	r.Message = "Enough free space for snapshots"
	return r
}

// existingParent walks up until it finds a path that exists.
func existingParent(path string) string {
	for {
		if _, err := os.Stat(path); err == nil || !errors.Is(err, os.ErrNotExist) {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

func printCheck(p ui.Printer, r checkResult) {
	c := p.Colors
	icon := ""
	msg := ""

	switch r.Status {
	case "pass":
		icon = c.StatusIcon("ok")
		msg = c.Success(r.Message)
	case "warn":
		icon = c.StatusIcon("warning")
		msg = c.Warning(r.Message)
	case "fail":
		icon = c.StatusIcon("failed")
		msg = c.Error(r.Message)
	}

	p.Textf("%s %s: %s\n", icon, c.Header(r.Name), msg)

	if flagQuiet {
		return
	}
	for _, detail := range r.Details {
		p.Textf("  %s %s\n", c.Description("→"), detail)
	}
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
