package config

import "time"

// Capture polling
const (
	CapturePollInterval     = 3 * time.Second
	CaptureProbeTimeout     = 2500 * time.Millisecond
	CaptureFailureThreshold = 10
)

// Session watchdog
const (
	WatchdogTickInterval = 60 * time.Second
	AutoEndWarnMinutes   = 450
	AutoEndHardMinutes   = 480
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 10 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second
