package setup

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, cfg.MCPServers)
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestRegister_PreservesOtherEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	existing := `{"theme":"dark","mcpServers":{"other":{"command":"/bin/other"}}}`
	require.NoError(t, os.WriteFile(path, []byte(existing), 0644))

	err := Register(Options{ConfigPath: path, BinaryPath: "/opt/trialiq-mcp", DataDir: "/data/trialiq", Store: "memory"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "dark", raw["theme"])

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/bin/other", cfg.MCPServers["other"].Command)
	entry := cfg.MCPServers[ServerName]
	assert.Equal(t, "/opt/trialiq-mcp", entry.Command)
	assert.Equal(t, "/data/trialiq", entry.Env["TRIALIQ_DATA_DIR"])
	assert.Equal(t, "memory", entry.Env["TRIALIQ_STORE"])
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "trialiq-mcp")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0755))

	tests := []struct {
		name       string
		opts       *Options
		registered bool
		issues     int
	}{
		{"not registered", nil, false, 1},
		{"healthy", &Options{BinaryPath: binary, DataDir: dir}, true, 0},
		{"missing binary and data dir", &Options{BinaryPath: filepath.Join(dir, "gone"), DataDir: filepath.Join(dir, "nodata")}, true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			if tt.opts != nil {
				tt.opts.ConfigPath = path
				require.NoError(t, Register(*tt.opts))
			}
			st, err := Check(path)
			require.NoError(t, err)
			assert.Equal(t, tt.registered, st.Registered)
			assert.Len(t, st.Issues, tt.issues)
		})
	}
}

func TestCommand_RegisterThenStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	var out bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"register", "--config", path, "--binary", "/opt/trialiq-mcp"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), path)

	out.Reset()
	cmd = NewCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"status", "--config", path, "--json"})
	require.NoError(t, cmd.Execute())

	var st Status
	require.NoError(t, json.Unmarshal(out.Bytes(), &st))
	assert.True(t, st.Registered)
	assert.Equal(t, "/opt/trialiq-mcp", st.BinaryPath)
}
