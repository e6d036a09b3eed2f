// Package setup registers the TrialIQ MCP server with desktop MCP clients.
package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ServerName is the key the server is registered under.
const ServerName = "trialiq"

const binaryName = "trialiq-mcp"

// ClientConfig is the desktop client's configuration file. Unknown top-level
// keys are preserved on save.
type ClientConfig struct {
	MCPServers map[string]ServerEntry `json:"mcpServers"`
	extra      map[string]json.RawMessage
}

// ServerEntry launches one MCP server.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options controls Register.
type Options struct {
	ConfigPath string
	BinaryPath string
	DataDir    string
	Store      string
}

// Status describes the current registration.
type Status struct {
	ConfigPath string   `json:"config_path"`
	Registered bool     `json:"registered"`
	BinaryPath string   `json:"binary_path,omitempty"`
	DataDir    string   `json:"data_dir,omitempty"`
	Issues     []string `json:"issues"`
}

// DefaultConfigPath returns the desktop client's config file for this OS.
func DefaultConfigPath() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json"), nil
	case "linux":
		dir := os.Getenv("XDG_CONFIG_HOME")
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			dir = filepath.Join(home, ".config")
		}
		return filepath.Join(dir, "Claude", "claude_desktop_config.json"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", errors.New("APPDATA environment variable not set")
		}
		return filepath.Join(appData, "Claude", "claude_desktop_config.json"), nil
	}
	return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
}

// Load reads the client config. A missing file yields an empty config.
func Load(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{MCPServers: map[string]ServerEntry{}, extra: map[string]json.RawMessage{}}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg.extra); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := cfg.extra["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &cfg.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(cfg.extra, "mcpServers")
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = map[string]ServerEntry{}
	}
	return cfg, nil
}

// Save writes the client config, creating its directory if needed.
func Save(path string, cfg *ClientConfig) error {
	out := make(map[string]any, len(cfg.extra)+1)
	for k, v := range cfg.extra {
		out[k] = v
	}
	out["mcpServers"] = cfg.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Register adds or replaces the TrialIQ entry in the client config.
func Register(opts Options) error {
	if opts.ConfigPath == "" {
		path, err := DefaultConfigPath()
		if err != nil {
			return err
		}
		opts.ConfigPath = path
	}
	if opts.BinaryPath == "" {
		path, err := findBinary()
		if err != nil {
			return err
		}
		opts.BinaryPath = path
	}

	cfg, err := Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	entry := ServerEntry{Command: opts.BinaryPath, Env: map[string]string{}}
	if opts.DataDir != "" {
		entry.Env["TRIALIQ_DATA_DIR"] = opts.DataDir
	}
	if opts.Store != "" {
		entry.Env["TRIALIQ_STORE"] = opts.Store
	}
	cfg.MCPServers[ServerName] = entry
	return Save(opts.ConfigPath, cfg)
}

// Check reports whether the server is registered and its binary and data
// directory exist.
func Check(configPath string) (*Status, error) {
	st := &Status{ConfigPath: configPath, Issues: []string{}}
	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}

	entry, ok := cfg.MCPServers[ServerName]
	if !ok {
		st.Issues = append(st.Issues, "server is not registered")
		return st, nil
	}
	st.Registered = true
	st.BinaryPath = entry.Command
	st.DataDir = entry.Env["TRIALIQ_DATA_DIR"]

	if info, err := os.Stat(entry.Command); err != nil {
		st.Issues = append(st.Issues, fmt.Sprintf("server binary not found: %s", entry.Command))
	} else if info.Mode()&0111 == 0 {
		st.Issues = append(st.Issues, fmt.Sprintf("server binary is not executable: %s", entry.Command))
	}
	if st.DataDir != "" {
		if _, err := os.Stat(st.DataDir); err != nil {
			st.Issues = append(st.Issues, fmt.Sprintf("data directory will be created on first run: %s", st.DataDir))
		}
	}
	return st, nil
}

func findBinary() (string, error) {
	if path, err := exec.LookPath(binaryName); err == nil {
		return path, nil
	}
	if exe, err := os.Executable(); err == nil {
		return exe, nil
	}
	return "", fmt.Errorf("binary %q not found", binaryName)
}
