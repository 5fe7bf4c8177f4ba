package logger

import "go.uber.org/zap/zapcore"

// Verbosity level constants for CLI flag counts.
const (
	VerbosityUser  = 0 // No flags: results and errors only
	VerbosityInfo  = 1 // -v: + plan summaries, ignored rows
	VerbosityDebug = 2 // -vv: + timing, config details
	VerbosityTrace = 3 // -vvv: + full row dumps
	VerbosityAll   = 4 // -vvvv: everything
)

// VerbosityToLevel maps verbosity flags (-v, -vv, etc.) to zap log levels
//
// Mapping:
//
//	0 (none)  -> WarnLevel
//	1 (-v)    -> InfoLevel
//	2+ (-vv)  -> DebugLevel
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch {
	case verbosity <= VerbosityUser:
		return zapcore.WarnLevel
	case verbosity == VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// OutputCategory defines a category of CLI output that can be enabled/disabled.
// Unlike log levels, categories control WHAT is printed regardless of severity.
type OutputCategory int

const (
	OutputResults OutputCategory = iota // Command output
	OutputErrors                        // Errors with hints

	OutputPlanSummary // Per-operation plan tables
	OutputIgnoredRows // Rows dropped or absorbed during reconciliation

	OutputTiming // Operation timing
	OutputConfig // Config values loaded

	OutputDataDump // Full row dumps
)

var categoryLevels = map[OutputCategory]int{
	OutputResults:     VerbosityUser,
	OutputErrors:      VerbosityUser,
	OutputPlanSummary: VerbosityInfo,
	OutputIgnoredRows: VerbosityInfo,
	OutputTiming:      VerbosityDebug,
	OutputConfig:      VerbosityDebug,
	OutputDataDump:    VerbosityTrace,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		return verbosity >= VerbosityAll
	}
	return verbosity >= minLevel
}
