// Package config loads the toml-format configuration shared by the
// importer/exporter hosts: store paths, the replay descriptor, and
// remoting ports.
package config

import (
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/tempopipe/tempopipe/remoting"
)

// Config is the top-level document a tempopipe host reads at startup.
type Config struct {
	MachineName string         `toml:"machine_name"`
	Store       StoreConfig    `toml:"store"`
	Remoting    RemotingConfig `toml:"remoting"`
	Replay      ReplayConfig   `toml:"replay"`
	// MetricsAddr, if non-empty, mounts a "/metrics" prometheus scrape
	// endpoint at this address. Empty disables it.
	MetricsAddr string `toml:"metrics_addr"`
}

// StoreConfig locates and bounds a persisted stream store.
type StoreConfig struct {
	Dir        string `toml:"dir"`
	StreamName string `toml:"stream_name"`
	MaxRecords int64  `toml:"max_records"`
	MaxBytes   int64  `toml:"max_bytes"`
	CatalogDB  string `toml:"catalog_db"`
}

// RemotingConfig configures the exporter/importer network endpoints.
type RemotingConfig struct {
	StoreAddr string `toml:"store_addr"`
	ClockAddr string `toml:"clock_addr"`
}

// ReplayConfig bounds a replay session's virtual-time window.
type ReplayConfig struct {
	StartTicks   int64 `toml:"start_ticks"`
	EndTicks     int64 `toml:"end_ticks"`
	EnforceClock bool  `toml:"enforce_clock"`
}

// Default returns the configuration a host falls back to when no file
// is given, using the ports spec §6 names as defaults.
func Default() Config {
	return Config{
		MachineName: "localhost",
		Store: StoreConfig{
			Dir:        "./data",
			StreamName: "default",
			CatalogDB:  "./data/catalog.db",
		},
		Remoting: RemotingConfig{
			StoreAddr: portAddr(remoting.DefaultStoreExporterPort),
			ClockAddr: portAddr(remoting.DefaultClockExporterPort),
		},
		MetricsAddr: ":2112",
	}
}

func portAddr(port int) string {
	return ":" + strconv.Itoa(port)
}

// Load reads and parses a toml config file at path, applying it over
// Default().
func Load(path string) (Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, &cfg)
	return cfg, err
}
