package main

import "github.com/pushchain/confdeploy/internal/ui"

func main() {
	// Initialize terminal before lipgloss is touched so the background
	// color query does not leak into the output stream.
	ui.InitTerminal()

	Execute()
}
