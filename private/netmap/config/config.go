// Copyright 2024 The Corda Network Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config holds the TOML configuration of the network-map daemon.
// Config structs follow the initialization, validation and sample
// generation pattern: InitDefaults fills unset fields, Validate checks the
// result, and Sample emits a commented example.
package config

import (
	"io"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/andrea-athirat/corda/pkg/log"
	"github.com/andrea-athirat/corda/pkg/netmap"
	"github.com/andrea-athirat/corda/pkg/private/serrors"
)

// Duration is a time.Duration that parses from its TOML string form.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the daemon configuration.
type Config struct {
	General    General    `toml:"general,omitempty"`
	Logging    log.Config `toml:"log,omitempty"`
	NetworkMap NetworkMap `toml:"network_map,omitempty"`
	Metrics    Metrics    `toml:"metrics,omitempty"`
}

// General holds node-wide settings.
type General struct {
	// ID is the identifier of the node in log entries.
	ID string `toml:"id,omitempty"`
	// BaseDir is the node's working directory; accepted parameter updates
	// are persisted under it.
	BaseDir string `toml:"base_dir,omitempty"`
}

// NetworkMap configures the registry client and the reconciliation loop.
type NetworkMap struct {
	// ZoneURL is the base URL of the compatibility zone registry. Leave
	// empty to run offline on the node info directory only.
	ZoneURL string `toml:"zone_url,omitempty"`
	// TrustedRootFile is the PEM file holding the zone root certificate.
	TrustedRootFile string `toml:"trusted_root_file,omitempty"`
	// DBFile is the SQLite file backing the node descriptor cache.
	DBFile string `toml:"db_file,omitempty"`
	// NodeInfoDir is the directory scanned for out-of-band descriptors.
	NodeInfoDir string `toml:"node_info_dir,omitempty"`
	// CurrentParametersHash is the hex hash of the parameters the node
	// runs on.
	CurrentParametersHash string `toml:"current_parameters_hash,omitempty"`
	// RetryInterval is the delay before failed remote operations retry.
	RetryInterval Duration `toml:"retry_interval,omitempty"`
	// ScanInterval is the node info directory scan period.
	ScanInterval Duration `toml:"scan_interval,omitempty"`
}

// Metrics configures the admin endpoint.
type Metrics struct {
	// Addr is the address the metrics and health endpoints listen on.
	// Empty disables the endpoint.
	Addr string `toml:"addr,omitempty"`
}

// InitDefaults populates unset fields to their default values.
func (cfg *Config) InitDefaults() {
	cfg.Logging.InitDefaults()
	if cfg.General.BaseDir == "" {
		cfg.General.BaseDir = "."
	}
	if cfg.NetworkMap.DBFile == "" {
		cfg.NetworkMap.DBFile = "nodeinfo.db"
	}
	if cfg.NetworkMap.NodeInfoDir == "" {
		cfg.NetworkMap.NodeInfoDir = "additional-node-infos"
	}
	if cfg.NetworkMap.RetryInterval == 0 {
		cfg.NetworkMap.RetryInterval = Duration(time.Minute)
	}
	if cfg.NetworkMap.ScanInterval == 0 {
		cfg.NetworkMap.ScanInterval = Duration(5 * time.Second)
	}
}

// Validate checks the configuration.
func (cfg *Config) Validate() error {
	if err := cfg.Logging.Validate(); err != nil {
		return serrors.Wrap("validating log config", err)
	}
	if cfg.NetworkMap.ZoneURL != "" && cfg.NetworkMap.TrustedRootFile == "" {
		return serrors.New("trusted_root_file is required when zone_url is set")
	}
	if cfg.NetworkMap.CurrentParametersHash != "" {
		if _, err := netmap.ParseHash(cfg.NetworkMap.CurrentParametersHash); err != nil {
			return serrors.Wrap("validating current_parameters_hash", err)
		}
	}
	return nil
}

// ParametersHash returns the configured current parameters hash, or the
// zero hash when unset.
func (cfg *Config) ParametersHash() (netmap.Hash, error) {
	if cfg.NetworkMap.CurrentParametersHash == "" {
		return netmap.Hash{}, nil
	}
	return netmap.ParseHash(cfg.NetworkMap.CurrentParametersHash)
}

// Load reads, defaults and validates the configuration file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, serrors.Wrap("reading config file", err, "file", path)
	}
	var cfg Config
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, serrors.Wrap("parsing config file", err, "file", path)
	}
	cfg.InitDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, serrors.Wrap("validating config", err, "file", path)
	}
	return &cfg, nil
}

// Sample writes a commented sample configuration.
func (cfg *Config) Sample(dst io.Writer) error {
	_, err := io.WriteString(dst, configSample)
	return err
}

const configSample = `[general]
# Identifier of the node in log entries.
id = "node-1"
# Working directory; accepted parameter updates are persisted under it.
base_dir = "/var/lib/corda"

[log.console]
# Console logging level (debug|info|warn|error).
level = "info"
# Console encoding (human|json).
format = "human"

[network_map]
# Base URL of the compatibility zone registry. Leave empty for offline mode.
zone_url = "https://netmap.example.net"
# PEM file with the zone root certificate.
trusted_root_file = "/etc/corda/network-root-truststore.pem"
# SQLite file backing the node descriptor cache.
db_file = "/var/lib/corda/nodeinfo.db"
# Directory scanned for out-of-band node descriptors.
node_info_dir = "/var/lib/corda/additional-node-infos"
# Hex hash of the network parameters the node currently runs on.
current_parameters_hash = ""
# Delay before failed remote operations retry.
retry_interval = "1m"
# Node info directory scan period.
scan_interval = "5s"

[metrics]
# Address of the metrics and health endpoints. Empty disables them.
addr = "127.0.0.1:30452"
`
