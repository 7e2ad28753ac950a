package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pushchain/confdeploy/internal/adapter"
	"github.com/pushchain/confdeploy/internal/config"
	"github.com/pushchain/confdeploy/internal/logging"
	ui "github.com/pushchain/confdeploy/internal/ui"
)

// errMock is a generic error for test assertions.
var errMock = errors.New("mock error")

// mockRunner implements hooks.CommandRunner for testing. Commands listed
// in fail fail that many times, then succeed.
type mockRunner struct {
	fail  map[string]int // key: "name arg1 arg2"
	calls []string
}

func newMockRunner() *mockRunner {
	return &mockRunner{fail: make(map[string]int)}
}

func (m *mockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	key := name
	for _, a := range args {
		key += " " + a
	}
	m.calls = append(m.calls, key)
	if m.fail[key] > 0 {
		m.fail[key]--
		return []byte(fmt.Sprintf("%s: configuration test failed", name)), errMock
	}
	return nil, nil
}

// mockPrompter is a configurable prompter for testing.
// It returns responses in order and can be configured as interactive or not.
type mockPrompter struct {
	responses   []string
	interactive bool
	callIndex   int
}

func (p *mockPrompter) ReadLine(prompt string) (string, error) {
	if p.callIndex >= len(p.responses) {
		return "", fmt.Errorf("no more responses configured")
	}
	resp := p.responses[p.callIndex]
	p.callIndex++
	return resp, nil
}

func (p *mockPrompter) IsInteractive() bool {
	return p.interactive
}

const siteDescriptor = `common:
  port: 80
  upstream: http://127.0.0.1:9000
  includes: [proxy.conf]
  mkdirs: ["logs/{service}-{config}"]
configs:
  prod:
    port: 8080
  staging:
    upstream: http://10.0.0.2:9000
`

// testEnv is a deployer home with an nginxsite and an nginxmain service
// and an nginx target root containing only nginx.conf.
type testEnv struct {
	cfg    config.Config
	deps   *Deps
	runner *mockRunner
	out    *bytes.Buffer
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	saveFlags(t)

	home := t.TempDir()
	cfg := config.Defaults().WithHome(home).WithTargetRoot(filepath.Join(home, "nginx"))
	cfg.TempDir = filepath.Join(home, "tmp")
	cfg.RuntimeCmd = "/usr/local/bin/confdeploy"

	writeTestFile(t, filepath.Join(cfg.ServicesDir, "nginxsite.yaml"), siteDescriptor)
	writeTestFile(t, filepath.Join(cfg.ServicesDir, "nginxmain.yaml"), "configs:\n  tuned: {}\n")

	tpl := cfg.TemplateRoot
	writeTestFile(t, filepath.Join(tpl, "nginxsite", "prod.conf"), "server { listen {{ .port }}; include includes/{{ .CONFIG }}/*.conf; }\n")
	writeTestFile(t, filepath.Join(tpl, "nginxsite", "staging.conf"), "server { listen {{ .port }}; }\n")
	writeTestFile(t, filepath.Join(tpl, "nginxsite", "includes", "proxy.conf"), "proxy_pass {{ .upstream }};\n")
	writeTestFile(t, filepath.Join(tpl, "nginxsite", "broken.conf"), "server { listen {{ .missing_port }}; }\n")
	writeTestFile(t, filepath.Join(tpl, "nginxmain", "tuned.conf"), "worker_processes 4;\n")
	writeTestFile(t, cfg.MainConfig, "worker_processes 1;\n")

	out := &bytes.Buffer{}
	p := ui.NewPrinter(flagOutput).WithWriter(out)
	p.Colors.Enabled = false
	p.Colors.EmojiEnabled = false

	runner := newMockRunner()
	return &testEnv{
		cfg:    cfg,
		runner: runner,
		out:    out,
		deps: &Deps{
			Cfg:      cfg,
			Printer:  p,
			Runner:   runner,
			Prompter: &mockPrompter{},
			Registry: adapter.DefaultRegistry(),
			Logger:   logging.Discard(),
			LookPath: func(file string) (string, error) { return "/usr/sbin/" + file, nil },
		},
	}
}

// setOutput switches the env's printer to format.
func (e *testEnv) setOutput(format string) {
	flagOutput = format
	p := ui.NewPrinter(format).WithWriter(e.out)
	p.Colors.Enabled = false
	p.Colors.EmojiEnabled = false
	e.deps.Printer = p
}

func (e *testEnv) sitePath(config string) string {
	return filepath.Join(e.cfg.TargetRoot, "sites-available", config+".conf")
}

func (e *testEnv) linkPath(config string) string {
	return filepath.Join(e.cfg.TargetRoot, "sites-enabled", config+".conf")
}

func (e *testEnv) calls() string { return strings.Join(e.runner.calls, ", ") }

// saveFlags restores every persistent flag global when the test ends.
func saveFlags(t *testing.T) {
	t.Helper()
	origHome, origServices, origTemplates, origTarget := flagHome, flagServicesDir, flagTemplatesDir, flagTargetRoot
	origMetrics, origHistory, origOutput := flagMetricsFile, flagHistoryDir, flagOutput
	origQuiet, origDebug, origNoColor, origNoEmoji := flagQuiet, flagDebug, flagNoColor, flagNoEmoji
	origYes, origNonInteractive := flagYes, flagNonInteractive
	t.Cleanup(func() {
		flagHome, flagServicesDir, flagTemplatesDir, flagTargetRoot = origHome, origServices, origTemplates, origTarget
		flagMetricsFile, flagHistoryDir, flagOutput = origMetrics, origHistory, origOutput
		flagQuiet, flagDebug, flagNoColor, flagNoEmoji = origQuiet, origDebug, origNoColor, origNoEmoji
		flagYes, flagNonInteractive = origYes, origNonInteractive
	})
	flagOutput = "text"
	flagQuiet = false
	flagDebug = false
	flagYes = false
	flagNonInteractive = false
}
