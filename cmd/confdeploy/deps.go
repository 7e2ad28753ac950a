package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"

	"github.com/pushchain/confdeploy/internal/adapter"
	"github.com/pushchain/confdeploy/internal/config"
	"github.com/pushchain/confdeploy/internal/exitcodes"
	"github.com/pushchain/confdeploy/internal/hooks"
	ui "github.com/pushchain/confdeploy/internal/ui"
)

// Prompter abstracts interactive terminal I/O for testability.
type Prompter interface {
	// ReadLine displays the prompt and reads a line of input.
	ReadLine(prompt string) (string, error)
	// IsInteractive returns whether the terminal supports interactive input.
	IsInteractive() bool
}

// Deps holds all injectable dependencies for command handlers.
type Deps struct {
	Cfg      config.Config
	Printer  ui.Printer
	Runner   hooks.CommandRunner
	Prompter Prompter
	Registry *adapter.Registry
	Logger   *slog.Logger
	LookPath func(file string) (string, error)
}

// adapterDeps builds the collaborators handed to adapter factories.
func (d *Deps) adapterDeps() adapter.Deps {
	return adapter.NewDeps(d.Cfg, d.Runner, d.Logger)
}

// ttyPrompter is the production implementation of Prompter.
// It uses /dev/tty when stdin is not a terminal (e.g., piped input).
type ttyPrompter struct{}

func (p *ttyPrompter) ReadLine(prompt string) (string, error) {
	fmt.Print(prompt)

	var reader *bufio.Reader
	if term.IsTerminal(int(os.Stdin.Fd())) {
		reader = bufio.NewReader(os.Stdin)
	} else {
		tty, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0)
		if err != nil {
			return "", fmt.Errorf("no interactive terminal available: %w", err)
		}
		defer tty.Close()
		reader = bufio.NewReader(tty)
	}

	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (p *ttyPrompter) IsInteractive() bool {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return true
	}
	tty, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0)
	if err != nil {
		return false
	}
	tty.Close()
	return true
}

// newDeps loads and validates the configuration and wires the production
// implementations.
func newDeps() (*Deps, error) {
	cfg := loadCfg()
	if err := cfg.Validate(); err != nil {
		return nil, exitcodes.ValidationErr(err.Error())
	}
	return &Deps{
		Cfg:      cfg,
		Printer:  getPrinter(),
		Runner:   hooks.ExecRunner{},
		Prompter: &ttyPrompter{},
		Registry: adapter.DefaultRegistry(),
		Logger:   slog.Default(),
		LookPath: exec.LookPath,
	}, nil
}
