package main

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pushchain/confdeploy/internal/render"
	"github.com/pushchain/confdeploy/internal/settings"
)

var renderCmd = &cobra.Command{
	Use:   "render <service> <config> <template>",
	Short: "Render a template without installing it",
	Long: `Renders <template>, relative to the service's template directory, with
the resolved settings of <service>/<config> and prints the result.
Nothing is written to the target root.`,
	Example: `  confdeploy render nginxsite prod prod.conf
  confdeploy render nginxsite prod includes/upstream.conf`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps()
		if err != nil {
			return err
		}
		return handleRender(d, args[0], args[1], args[2])
	},
}

type renderResult struct {
	Service  string `json:"service" yaml:"service"`
	Config   string `json:"config" yaml:"config"`
	Template string `json:"template" yaml:"template"`
	Content  string `json:"content" yaml:"content"`
}

func handleRender(d *Deps, service, configName, tmpl string) error {
	s, err := settings.NewResolver(d.Cfg, Version).Resolve(service, configName)
	if err != nil {
		return codedError(err)
	}
	name := filepath.Join(service, tmpl)
	text, err := render.New(d.Cfg.TemplateRoot).Render(name, s.Context())
	if err != nil {
		return err
	}

	p := d.Printer
	if p.Data(renderResult{Service: service, Config: configName, Template: name, Content: text}) {
		return nil
	}
	p.Textf("%s", text)
	if !strings.HasSuffix(text, "\n") {
		p.Textf("\n")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(renderCmd)
}
