// Package daemon loads a florescence node's on-disk TOML configuration,
// grounded on the teacher's internal/daemon config shape (nested,
// struct-tagged sections; human-readable duration/size strings parsed by a
// small helper rather than requiring raw nanoseconds in the file).
package daemon

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// NodeConfig identifies this process on the network.
type NodeConfig struct {
	BindAddr string `toml:"bind_addr"`
	Engine   string `toml:"engine"` // "mem" | "grpc" | "http"
	Wire     string `toml:"wire"`   // "binary" | "json"
}

// GossipConfig tunes the Flower's timers, as human-readable duration
// strings ("1s", "500ms") rather than raw durations.
type GossipConfig struct {
	HeartbeatInterval  string `toml:"heartbeat_interval"`
	ReapInterval       string `toml:"reap_interval"`
	LivenessTimeout    string `toml:"liveness_timeout"`
	PropagationTimeout string `toml:"propagation_timeout"`
	DebounceWindow     string `toml:"debounce_window"`
}

// APIConfig configures the introspection HTTP server.
type APIConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// Config is the full on-disk shape of a florescence node's configuration
// file.
type Config struct {
	Node   NodeConfig   `toml:"node"`
	Gossip GossipConfig `toml:"gossip"`
	API    APIConfig    `toml:"api"`
	Seeds  []string     `toml:"seeds"`
}

// DefaultConfig returns the defaults a freshly-bootstrapped node runs with
// if no config file is given — mirrors flower.DefaultConfig's values as
// strings.
func DefaultConfig() Config {
	return Config{
		Node: NodeConfig{
			BindAddr: "127.0.0.1:4269",
			Engine:   "grpc",
			Wire:     "binary",
		},
		Gossip: GossipConfig{
			HeartbeatInterval:  "1s",
			ReapInterval:       "1s",
			LivenessTimeout:    "3s",
			PropagationTimeout: "2s",
			DebounceWindow:     "2s",
		},
		API: APIConfig{
			Enabled: true,
			Addr:    "127.0.0.1:4270",
		},
	}
}

// Load reads and parses a TOML config file at path, filling in any
// unspecified section from DefaultConfig.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("daemon: decoding %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("daemon: %s: unrecognized keys: %v", path, undecoded)
	}
	return cfg, nil
}

// parseDuration parses a human-readable duration string, falling back to
// def if s is empty, and erroring (rather than silently zeroing) on a
// malformed one.
func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("daemon: invalid duration %q: %w", s, err)
	}
	return d, nil
}

// Durations resolves every *Config.Gossip duration string into a
// time.Duration, using flower.DefaultConfig's values for anything left
// blank.
func (g GossipConfig) Durations() (heartbeat, reap, liveness, propagation, debounce time.Duration, err error) {
	if heartbeat, err = parseDuration(g.HeartbeatInterval, time.Second); err != nil {
		return
	}
	if reap, err = parseDuration(g.ReapInterval, time.Second); err != nil {
		return
	}
	if liveness, err = parseDuration(g.LivenessTimeout, 3*time.Second); err != nil {
		return
	}
	if propagation, err = parseDuration(g.PropagationTimeout, 2*time.Second); err != nil {
		return
	}
	if debounce, err = parseDuration(g.DebounceWindow, 2*time.Second); err != nil {
		return
	}
	return
}
