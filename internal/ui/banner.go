package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Banner severities.
const (
	BannerWarning = "warning"
	BannerDanger  = "danger"
)

// Banner renders a bordered block for outcomes the operator must not miss.
// Without colors it falls back to a plain framed block.
func (p Printer) Banner(severity, title string, lines ...string) {
	fmt.Fprintln(p.writer(), RenderBanner(p.Colors, severity, title, lines...))
}

// RenderBanner returns the banner text.
func RenderBanner(c *ColorConfig, severity, title string, lines ...string) string {
	body := strings.Join(lines, "\n")
	if !c.Enabled {
		sep := strings.Repeat("=", 60)
		out := sep + "\n" + strings.ToUpper(title) + "\n"
		if body != "" {
			out += body + "\n"
		}
		return out + sep
	}

	InitTerminal()
	color := lipgloss.Color("214") // amber
	border := lipgloss.RoundedBorder()
	if severity == BannerDanger {
		color = lipgloss.Color("196") // red
		border = lipgloss.ThickBorder()
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(color)
	box := lipgloss.NewStyle().
		Border(border).
		BorderForeground(color).
		Padding(0, 2)

	content := titleStyle.Render(title)
	if body != "" {
		content += "\n\n" + body
	}
	return box.Render(content)
}
