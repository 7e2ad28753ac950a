package ui

import (
	"os"
	"strings"
)

// Color codes for terminal output
const (
	Reset = "\033[0m"
	Bold  = "\033[1m"
	Dim   = "\033[2m"

	Cyan = "\033[36m"

	BrightBlack   = "\033[90m"
	BrightRed     = "\033[91m"
	BrightGreen   = "\033[92m"
	BrightYellow  = "\033[93m"
	BrightMagenta = "\033[95m"
	BrightCyan    = "\033[96m"
)

// Theme defines the color scheme for different UI elements
type Theme struct {
	// Status indicators
	Success string
	Warning string
	Error   string
	Info    string

	// UI elements
	Header      string
	SubHeader   string
	Label       string
	Value       string
	Command     string
	Description string
	Separator   string
	Prompt      string
}

// DefaultTheme returns the default color theme
func DefaultTheme() *Theme {
	return &Theme{
		Success: BrightGreen,
		Warning: BrightYellow,
		Error:   BrightRed,
		Info:    BrightCyan,

		Header:      Bold + BrightCyan,
		SubHeader:   Bold + Cyan,
		Label:       Bold, // terminal default color for visibility on all backgrounds
		Value:       "",
		Command:     BrightGreen,
		Description: BrightBlack,
		Separator:   BrightBlack,
		Prompt:      Bold + BrightMagenta,
	}
}

// ColorConfig manages color output settings
type ColorConfig struct {
	Enabled      bool
	EmojiEnabled bool
	Theme        *Theme
}

// NewColorConfig creates a color configuration from the environment.
// Colors are off when NO_COLOR is set or TERM is dumb or empty.
func NewColorConfig() *ColorConfig {
	noColor := os.Getenv("NO_COLOR") != ""
	term := os.Getenv("TERM")
	return &ColorConfig{
		Enabled:      !noColor && term != "dumb" && term != "",
		EmojiEnabled: true,
		Theme:        DefaultTheme(),
	}
}

// Apply applies a color to text if colors are enabled
func (c *ColorConfig) Apply(color, text string) string {
	if !c.Enabled || color == "" {
		return text
	}
	return color + text + Reset
}

func (c *ColorConfig) Success(text string) string     { return c.Apply(c.Theme.Success, text) }
func (c *ColorConfig) Warning(text string) string     { return c.Apply(c.Theme.Warning, text) }
func (c *ColorConfig) Error(text string) string       { return c.Apply(c.Theme.Error, text) }
func (c *ColorConfig) Info(text string) string        { return c.Apply(c.Theme.Info, text) }
func (c *ColorConfig) Header(text string) string      { return c.Apply(c.Theme.Header, text) }
func (c *ColorConfig) SubHeader(text string) string   { return c.Apply(c.Theme.SubHeader, text) }
func (c *ColorConfig) Label(text string) string       { return c.Apply(c.Theme.Label, text) }
func (c *ColorConfig) Value(text string) string       { return c.Apply(c.Theme.Value, text) }
func (c *ColorConfig) Command(text string) string     { return c.Apply(c.Theme.Command, text) }
func (c *ColorConfig) Description(text string) string { return c.Apply(c.Theme.Description, text) }

// Separator returns a colored separator line
func (c *ColorConfig) Separator(width int) string {
	return c.Apply(c.Theme.Separator, strings.Repeat("─", width))
}

// StatusIcon returns a colored icon for a deployment result or check status
// (respects emoji settings).
func (c *ColorConfig) StatusIcon(status string) string {
	type icon struct{ emoji, plain string }
	var (
		ok   = icon{"✓", "[OK]"}
		warn = icon{"⚠", "[WARN]"}
		bad  = icon{"✗", "[ERR]"}
		skip = icon{"○", "[ ]"}
	)
	var pick icon
	var color string
	switch strings.ToLower(status) {
	case "success", "ok", "installed", "uninstalled":
		pick, color = ok, c.Theme.Success
	case "warning", "install-failed-restored", "uninstall-skipped":
		pick, color = warn, c.Theme.Warning
	case "error", "failed", "install-failed-corrupted", "uninstall-failed":
		pick, color = bad, c.Theme.Error
	default:
		pick, color = skip, c.Theme.Description
	}
	if c.EmojiEnabled {
		return c.Apply(color, pick.emoji)
	}
	return c.Apply(color, pick.plain)
}

// FormatCommandAligned renders a help line with the command padded to width.
func (c *ColorConfig) FormatCommandAligned(command, description string, width int) string {
	pad := width - len(command)
	if pad < 1 {
		pad = 1
	}
	return "  " + c.Command(command) + strings.Repeat(" ", pad) + c.Description(description)
}
