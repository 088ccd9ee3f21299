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

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleParses(t *testing.T) {
	var buf bytes.Buffer
	var cfg Config
	require.NoError(t, cfg.Sample(&buf))

	var parsed Config
	require.NoError(t, toml.Unmarshal(buf.Bytes(), &parsed))
	parsed.InitDefaults()
	require.NoError(t, parsed.Validate())

	assert.Equal(t, "node-1", parsed.General.ID)
	assert.Equal(t, "https://netmap.example.net", parsed.NetworkMap.ZoneURL)
	assert.Equal(t, Duration(time.Minute), parsed.NetworkMap.RetryInterval)
	assert.Equal(t, Duration(5*time.Second), parsed.NetworkMap.ScanInterval)
}

func TestInitDefaults(t *testing.T) {
	var cfg Config
	cfg.InitDefaults()
	assert.Equal(t, "nodeinfo.db", cfg.NetworkMap.DBFile)
	assert.Equal(t, "additional-node-infos", cfg.NetworkMap.NodeInfoDir)
	assert.Equal(t, Duration(time.Minute), cfg.NetworkMap.RetryInterval)
	assert.Equal(t, "info", cfg.Logging.Console.Level)
}

func TestValidate(t *testing.T) {
	t.Run("zone without root rejected", func(t *testing.T) {
		var cfg Config
		cfg.InitDefaults()
		cfg.NetworkMap.ZoneURL = "https://netmap.example.net"
		assert.Error(t, cfg.Validate())
	})
	t.Run("bad parameters hash rejected", func(t *testing.T) {
		var cfg Config
		cfg.InitDefaults()
		cfg.NetworkMap.CurrentParametersHash = "not-hex"
		assert.Error(t, cfg.Validate())
	})
}

func TestLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "netmapd.toml")
	content := `
[general]
id = "node-9"

[network_map]
retry_interval = "30s"
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))
	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, "node-9", cfg.General.ID)
	assert.Equal(t, Duration(30*time.Second), cfg.NetworkMap.RetryInterval)
	// Defaults are applied on load.
	assert.Equal(t, "nodeinfo.db", cfg.NetworkMap.DBFile)
}
