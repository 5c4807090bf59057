// Package rconfig is the ambient configuration layer: a JSON-decoded
// record of connection-level policy (health-check cadence, coalescing
// limits, handshake command, reconnect backoff) kept separate from
// resp3.Config's per-request policy.
//
// Grounded on cmn/cos/fs.go's jsoniter usage for (de)serializing small
// ID/config values.
package rconfig

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/ais-wire/resp3/resp3"
)

// Config is the connection engine's tunable policy, normally loaded once
// at startup from a JSON document (e.g. an operator-supplied config
// file) and passed to engine.New.
type Config struct {
	// HealthCheckInterval is how often the health-checker sends its probe
	// command (spec §4.G "Health-checker"). Zero disables health checks.
	HealthCheckInterval Duration `json:"health_check_interval"`
	// HealthCheckTimeout is the deadline for a health probe's reply.
	HealthCheckTimeout Duration `json:"health_check_timeout"`
	// MaxCoalesceBytes caps how many bytes FrontToWrite will concatenate
	// into one write, regardless of how many adjacent entries coalesce.
	// Zero means unbounded.
	MaxCoalesceBytes int `json:"max_coalesce_bytes"`
	// Handshake, if non-nil, is staged once per successful connect/
	// reconnect before any caller-submitted request (spec §4.G
	// "Reconnection": "one implementation-defined command"). Built by the
	// caller with resp3.NewRequest(), matching aedis's configurable
	// hello-command semantics (see SPEC_FULL.md Supplemented Features).
	Handshake *resp3.Request `json:"-"`
	// HealthCheckCommand is the command name the health-checker pushes
	// (e.g. "PING"); empty disables probing even if HealthCheckInterval
	// is set.
	HealthCheckCommand string `json:"health_check_command"`
	// ReconnectBackoffMin/Max bound the exponential backoff between
	// reconnect attempts.
	ReconnectBackoffMin Duration `json:"reconnect_backoff_min"`
	ReconnectBackoffMax Duration `json:"reconnect_backoff_max"`
	// DefaultCancelIfUnresponsive is decoded and stored but not read by
	// the engine: new requests take resp3.Config.CancelIfUnresponsive from
	// resp3.NewRequest (false) or from the caller, whatever this field
	// says.
	DefaultCancelIfUnresponsive bool `json:"default_cancel_if_unresponsive"`
}

// Duration wraps time.Duration with JSON (de)serialization through plain
// Go duration strings ("30s", "1m30s") via jsoniter, instead of the raw
// nanosecond integers encoding/json would produce.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return jsoniter.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := jsoniter.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the baseline policy a connection uses when the caller
// supplies no config: health checks every 30s with a 5s timeout, no
// coalescing cap, no handshake, backoff growing from 200ms to 10s.
func Default() Config {
	return Config{
		HealthCheckInterval: Duration(30 * time.Second),
		HealthCheckTimeout:  Duration(5 * time.Second),
		HealthCheckCommand:  "PING",
		ReconnectBackoffMin: Duration(200 * time.Millisecond),
		ReconnectBackoffMax: Duration(10 * time.Second),
	}
}

// Load decodes a JSON document into Config, starting from Default() so an
// omitted field keeps its default rather than zeroing out.
func Load(b []byte) (Config, error) {
	cfg := Default()
	if err := jsoniter.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
