// Package colors provides the CLI's color palette with TTY-aware defaults.
//
// Colors are automatically disabled when stdout is not a terminal (piped or
// redirected to a file). Use Init() to override based on CLI flags.
package colors

import "github.com/fatih/color"

// Init allows overriding the auto-detected color setting.
//   - forceColor == nil: keep auto-detected value
//   - forceColor == true: force colors on
//   - forceColor == false: force colors off (e.g., --no-color flag)
func Init(forceColor *bool) {
	if forceColor != nil {
		color.NoColor = !*forceColor
	}
}

// Enabled returns true if colors are currently enabled.
func Enabled() bool {
	return !color.NoColor
}

// Summary counters
var (
	Count   = color.New(color.Bold, color.FgHiGreen).SprintFunc()
	Failed  = color.New(color.Bold, color.FgHiRed).SprintFunc()
	Skipped = color.New(color.Bold, color.FgHiYellow).SprintFunc()
)

// Lookup output
var (
	Kind      = color.New(color.Bold, color.FgHiMagenta).SprintFunc()
	Namespace = color.New(color.FgHiGreen).SprintFunc()
	Name      = color.New(color.Bold, color.FgHiBlue).SprintFunc()
)
