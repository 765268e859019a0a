// Package mcp is the MCP client collaborator: it connects to remote tool
// servers over stdio or SSE, registers each server-advertised tool into
// the Tool Registry on connect, and drives each server through
// `initialize` -> `tools/list` -> `tools/call` -> close (see Client for
// which handshake messages each transport sends).
package mcp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// RestartPolicy controls how a server's managing process reacts when the
// server stops or crashes.
type RestartPolicy struct {
	Mode       string `yaml:"mode"` // "never", "on_failure", "always"
	MaxRetries int    `yaml:"max_retries,omitempty"`
}

// DefaultRestartPolicy mirrors the upstream default: retry on failure up
// to 3 times.
func DefaultRestartPolicy() RestartPolicy {
	return RestartPolicy{Mode: "on_failure", MaxRetries: 3}
}

// AuthConfig configures how the client authenticates to a remote (SSE)
// MCP server. Token may reference an environment variable with a leading
// `$`, resolved lazily by ResolveToken so a config file never embeds a
// literal secret.
type AuthConfig struct {
	Type   string `yaml:"type"` // "bearer", "basic", "api_key"
	Token  string `yaml:"token"`
	Header string `yaml:"header,omitempty"`
}

// ResolveToken expands a `$VAR_NAME` token reference against the process
// environment. A token not starting with `$` is returned verbatim.
func (a AuthConfig) ResolveToken() (string, error) {
	if !strings.HasPrefix(a.Token, "$") {
		return a.Token, nil
	}
	name := a.Token[1:]
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("mcp: environment variable %s referenced by auth token is not set", name)
	}
	return value, nil
}

// HeaderName returns the HTTP header the resolved token is sent under,
// defaulting by auth type when Header is unset.
func (a AuthConfig) HeaderName() string {
	if a.Header != "" {
		return a.Header
	}
	switch a.Type {
	case "api_key":
		return "X-API-Key"
	default:
		return "Authorization"
	}
}

// HeaderValue resolves the token and formats it per auth type ("Bearer
// <token>", "Basic <token>", or the bare token for api_key).
func (a AuthConfig) HeaderValue() (string, error) {
	token, err := a.ResolveToken()
	if err != nil {
		return "", err
	}
	switch a.Type {
	case "bearer":
		return "Bearer " + token, nil
	case "basic":
		return "Basic " + token, nil
	default:
		return token, nil
	}
}

// ServerConfig describes a single MCP server: either a local command run
// over stdio, or a remote URL spoken to over SSE.
type ServerConfig struct {
	ID            string            `yaml:"id"`
	Name          string            `yaml:"name"`
	Command       string            `yaml:"command,omitempty"`
	Args          []string          `yaml:"args,omitempty"`
	Env           map[string]string `yaml:"env,omitempty"`
	WorkingDir    string            `yaml:"working_dir,omitempty"`
	URL           string            `yaml:"url,omitempty"`
	Auth          *AuthConfig       `yaml:"auth,omitempty"`
	AutoStart     bool              `yaml:"auto_start"`
	RestartPolicy RestartPolicy     `yaml:"restart_policy,omitempty"`
}

// NewLocalServerConfig builds a stdio-transport server configuration.
func NewLocalServerConfig(id, command string) ServerConfig {
	return ServerConfig{
		ID:            id,
		Name:          id,
		Command:       command,
		AutoStart:     true,
		RestartPolicy: DefaultRestartPolicy(),
	}
}

// NewRemoteServerConfig builds an SSE-transport server configuration.
func NewRemoteServerConfig(id, url string) ServerConfig {
	return ServerConfig{
		ID:            id,
		Name:          id,
		URL:           url,
		AutoStart:     true,
		RestartPolicy: DefaultRestartPolicy(),
	}
}

// IsRemote reports whether this server is reached over SSE rather than a
// spawned local process.
func (c ServerConfig) IsRemote() bool { return c.URL != "" }

// IsLocal reports whether this server is a spawned stdio process.
func (c ServerConfig) IsLocal() bool { return c.Command != "" && c.URL == "" }

// Validate rejects a server configuration missing both a command and a
// URL — the client has nothing to connect to.
func (c ServerConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("mcp: server config missing id")
	}
	if c.Command == "" && c.URL == "" {
		return fmt.Errorf("mcp: server %q: either command or url must be set", c.ID)
	}
	return nil
}

// ServersConfig is the on-disk root of every configured MCP server,
// loaded from and saved to a YAML file (the `mcp add|list|remove` CLI
// surface mutates this file).
type ServersConfig struct {
	Servers []ServerConfig `yaml:"servers"`
}

// LoadServersConfig reads and parses path. A missing file is treated as
// an empty configuration, not an error, since a fresh checkout has no
// MCP servers configured yet.
func LoadServersConfig(path string) (ServersConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ServersConfig{}, nil
		}
		return ServersConfig{}, fmt.Errorf("mcp: read %s: %w", path, err)
	}

	var cfg ServersConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ServersConfig{}, fmt.Errorf("mcp: parse %s: %w", path, err)
	}
	for _, s := range cfg.Servers {
		if err := s.Validate(); err != nil {
			return ServersConfig{}, err
		}
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories as
// needed.
func (cfg ServersConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("mcp: create %s: %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("mcp: marshal servers config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("mcp: write %s: %w", path, err)
	}
	return nil
}

// Find returns the server configuration with the given id, if any.
func (cfg ServersConfig) Find(id string) (ServerConfig, bool) {
	for _, s := range cfg.Servers {
		if s.ID == id {
			return s, true
		}
	}
	return ServerConfig{}, false
}

// Add appends server, replacing any existing entry with the same id.
func (cfg *ServersConfig) Add(server ServerConfig) {
	for i, s := range cfg.Servers {
		if s.ID == server.ID {
			cfg.Servers[i] = server
			return
		}
	}
	cfg.Servers = append(cfg.Servers, server)
}

// Remove deletes the server configuration with the given id, reporting
// whether one was found.
func (cfg *ServersConfig) Remove(id string) bool {
	for i, s := range cfg.Servers {
		if s.ID == id {
			cfg.Servers = append(cfg.Servers[:i], cfg.Servers[i+1:]...)
			return true
		}
	}
	return false
}

// AutoStartServers returns the subset of Servers with AutoStart set.
func (cfg ServersConfig) AutoStartServers() []ServerConfig {
	var out []ServerConfig
	for _, s := range cfg.Servers {
		if s.AutoStart {
			out = append(out, s)
		}
	}
	return out
}

// DefaultServersConfigPath returns `~/.locus/mcp_servers.yaml`.
func DefaultServersConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("mcp: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".locus", "mcp_servers.yaml"), nil
}
