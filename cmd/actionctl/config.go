package main

// Flag names for Viper binding
const (
	// Global flags
	FlagVerbose   = "verbose"
	FlagConfig    = "config"
	FlagLogFile   = "log-file"
	FlagPrefsFile = "prefs-file"

	// Upload command flags
	FlagTUI         = "tui"
	FlagRetryLimit  = "retry-limit"
	FlagRetryDelay  = "retry-delay"
	FlagAutoReset   = "auto-reset"
	FlagFailureRate = "failure-rate"
	FlagAutoRetry   = "auto-retry"
	FlagTrace       = "trace"

	// Events command flags
	FlagFollow = "follow"
	FlagCount  = "count"
)
