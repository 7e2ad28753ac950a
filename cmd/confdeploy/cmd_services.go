package main

import (
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pushchain/confdeploy/internal/settings"
)

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List service adapters and available descriptors",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		return handleServices(d)
	},
}

type serviceInfo struct {
	Name       string   `json:"name" yaml:"name"`
	Adapter    bool     `json:"adapter" yaml:"adapter"`
	Descriptor bool     `json:"descriptor" yaml:"descriptor"`
	Configs    []string `json:"configs" yaml:"configs"`
	Error      string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// handleServices joins the adapter registry with the descriptor directory.
// A missing services directory only means no descriptors.
func handleServices(d *Deps) error {
	resolver := settings.NewResolver(d.Cfg, Version)
	byName := map[string]*serviceInfo{}
	get := func(name string) *serviceInfo {
		if s, ok := byName[name]; ok {
			return s
		}
		s := &serviceInfo{Name: name, Configs: []string{}}
		byName[name] = s
		return s
	}

	for _, name := range d.Registry.List() {
		get(name).Adapter = true
	}
	names, err := resolver.Services()
	if err != nil {
		d.Logger.Debug("no descriptors", "dir", d.Cfg.ServicesDir, "error", err)
	}
	for _, name := range names {
		s := get(name)
		s.Descriptor = true
		desc, err := resolver.Load(name)
		if err != nil {
			s.Error = err.Error()
			continue
		}
		s.Configs = desc.ConfigNames()
	}

	list := make([]serviceInfo, 0, len(byName))
	for _, s := range byName {
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	p := d.Printer
	if p.Data(list) {
		return nil
	}
	c := p.Colors
	rows := make([][]string, 0, len(list))
	for _, s := range list {
		adapterCol := c.StatusIcon("ok")
		if !s.Adapter {
			adapterCol = c.StatusIcon("failed")
		}
		configs := strings.Join(s.Configs, ", ")
		switch {
		case s.Error != "":
			configs = c.Error(firstLine(s.Error))
		case !s.Descriptor:
			configs = c.Description("no descriptor")
		}
		rows = append(rows, []string{s.Name, adapterCol, configs})
	}
	p.Table([]string{"SERVICE", "ADAPTER", "CONFIGS"}, rows)
	return nil
}

func init() {
	rootCmd.AddCommand(servicesCmd)
}
