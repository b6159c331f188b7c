// Package cfg holds the process-wide, read-mostly configuration snapshot
// the IC channel and icwire's frame reader consult without locking (the
// HTTP gateway does not read it),
// grounded on the teacher's cmn/rom.go "assign-at-startup, refresh
// periodically" pattern (its feat.Flags/ClusterConfig dependencies were
// not present in the retrieved pack and are replaced here by a local
// Config struct tailored to this runtime).
package cfg

import "time"

type Config struct {
	// Timeout is a default per-message timeout value (spec §4.5.3). No
	// package reads it: ic.Channel.Send takes its timeout as an argument.
	Timeout time.Duration
	// WatchdogSoft/WatchdogHard are the channel-wide activity watchdog
	// thresholds (spec §4.5.3).
	WatchdogSoft time.Duration
	WatchdogHard time.Duration
	// RetryInitial/RetryMax bound the reconnect backoff (spec §4.5.4).
	RetryInitial time.Duration
	RetryMax     time.Duration
	// MaxFrameSize bounds icwire.Header.DataLength on read (spec §4.4).
	MaxFrameSize uint32
	// GatewayMaxQuerySize is a default HTTP request body bound (spec
	// §4.7). No package reads it: gateway.Trigger falls back to
	// gateway.DefaultMaxQuerySize.
	GatewayMaxQuerySize int64
	// Verbose is a subsystem bitmask for nlog.V. No package reads it;
	// nlog's mask is set with nlog.SetVerbose.
	Verbose int32
}

const (
	DefaultTimeout             = 30 * time.Second
	DefaultWatchdogSoft         = 20 * time.Second
	DefaultWatchdogHard         = 60 * time.Second
	DefaultRetryInitial         = 100 * time.Millisecond
	DefaultRetryMax             = 5 * time.Second
	DefaultMaxFrameSize  uint32 = 64 << 20 // 64MiB
	DefaultGatewayMaxQuerySize  = int64(16 << 20)
)

func Default() *Config {
	return &Config{
		Timeout:             DefaultTimeout,
		WatchdogSoft:        DefaultWatchdogSoft,
		WatchdogHard:        DefaultWatchdogHard,
		RetryInitial:        DefaultRetryInitial,
		RetryMax:            DefaultRetryMax,
		MaxFrameSize:        DefaultMaxFrameSize,
		GatewayMaxQuerySize: DefaultGatewayMaxQuerySize,
	}
}

// readMostly is the live, lock-free-read snapshot: Set() is called once at
// startup (and, in a long-lived service, again whenever config is
// reloaded) and Get() is read from every hot path thereafter - same
// contract as the teacher's cmn.Rom.
type readMostly struct {
	cfg Config
}

var rom readMostly

func init() { rom.cfg = *Default() }

func Set(c *Config) { rom.cfg = *c }
func Get() *Config  { c := rom.cfg; return &c }
