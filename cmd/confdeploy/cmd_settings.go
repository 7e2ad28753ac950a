package main

import (
	"github.com/spf13/cobra"

	"github.com/pushchain/confdeploy/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings <service> <config>",
	Short: "Show the resolved settings of a configuration",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		return handleSettings(d, args[0], args[1])
	},
}

func handleSettings(d *Deps, service, configName string) error {
	s, err := settings.NewResolver(d.Cfg, Version).Resolve(service, configName)
	if err != nil {
		return codedError(err)
	}

	p := d.Printer
	if p.Data(s) {
		return nil
	}
	if !flagQuiet {
		p.Header("SETTINGS " + service + "/" + configName)
	}
	rows := make([][]string, 0, len(s.Keys()))
	for _, k := range s.Keys() {
		v, _ := s.Get(k)
		rows = append(rows, []string{k, v.Kind().String(), v.String()})
	}
	p.Table([]string{"KEY", "TYPE", "VALUE"}, rows)
	return nil
}

func init() {
	rootCmd.AddCommand(settingsCmd)
}
