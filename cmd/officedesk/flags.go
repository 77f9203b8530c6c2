package main

import "time"

// GlobalFlags holds persistent flags shared by all subcommands.
type GlobalFlags struct {
	ConfigPath string
}

// ProbeFlags holds flags for the one-shot probe command.
type ProbeFlags struct {
	URL         string
	Timeout     time.Duration
	MaxAttempts int
	Interval    time.Duration
	Policy      string
}

// StatusFlags holds flags for querying a running launcher's diagnostics API.
type StatusFlags struct {
	APIUrl     string
	APITimeout time.Duration
}
