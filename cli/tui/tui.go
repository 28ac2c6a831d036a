package tui

import (
	"fmt"
	"slices"
	"strings"
)

// Run starts the view registered for viewType.
func Run(viewType string, data any) error {
	if !IsTUISupported(viewType) {
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}
	if strings.HasPrefix(viewType, "inspect_") {
		return RunInspectTUI(viewType, data)
	}
	return RunStatsTUI(viewType, data)
}

// IsTUISupported reports whether viewType has an interactive view.
// Only read-only inspect and stats views do.
func IsTUISupported(viewType string) bool {
	return slices.Contains(SupportedTUIViews(), viewType)
}

// SupportedTUIViews returns the view types with an interactive view.
func SupportedTUIViews() []string {
	return []string{
		"inspect_run",
		"stats_runs",
		"stats_metrics",
	}
}
