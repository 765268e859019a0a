package mcp

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthResolveTokenExpandsEnvVar(t *testing.T) {
	t.Setenv("TEST_MCP_TOKEN", "secret-value")
	auth := AuthConfig{Type: "bearer", Token: "$TEST_MCP_TOKEN"}

	token, err := auth.ResolveToken()
	require.NoError(t, err)
	assert.Equal(t, "secret-value", token)
}

func TestAuthResolveTokenMissingEnvVarErrors(t *testing.T) {
	auth := AuthConfig{Type: "bearer", Token: "$DEFINITELY_NOT_SET_12345"}
	_, err := auth.ResolveToken()
	assert.Error(t, err)
}

func TestAuthResolveTokenLiteralPassthrough(t *testing.T) {
	auth := AuthConfig{Type: "api_key", Token: "literal-key"}
	token, err := auth.ResolveToken()
	require.NoError(t, err)
	assert.Equal(t, "literal-key", token)
}

func TestAuthHeaderValueFormatsByType(t *testing.T) {
	cases := []struct {
		authType string
		want     string
	}{
		{"bearer", "Bearer tok"},
		{"basic", "Basic tok"},
		{"api_key", "tok"},
	}
	for _, c := range cases {
		auth := AuthConfig{Type: c.authType, Token: "tok"}
		value, err := auth.HeaderValue()
		require.NoError(t, err)
		assert.Equal(t, c.want, value)
	}
}

func TestAuthHeaderNameDefaultsByType(t *testing.T) {
	assert.Equal(t, "Authorization", AuthConfig{Type: "bearer"}.HeaderName())
	assert.Equal(t, "X-API-Key", AuthConfig{Type: "api_key"}.HeaderName())
	assert.Equal(t, "X-Custom", AuthConfig{Type: "bearer", Header: "X-Custom"}.HeaderName())
}

func TestServerConfigIsLocalAndIsRemote(t *testing.T) {
	local := NewLocalServerConfig("local", "some-mcp-server")
	assert.True(t, local.IsLocal())
	assert.False(t, local.IsRemote())

	remote := NewRemoteServerConfig("remote", "https://example.com/mcp")
	assert.True(t, remote.IsRemote())
	assert.False(t, remote.IsLocal())
}

func TestServerConfigValidateRejectsNeitherCommandNorURL(t *testing.T) {
	cfg := ServerConfig{ID: "broken"}
	assert.Error(t, cfg.Validate())
}

func TestServerConfigValidateRejectsMissingID(t *testing.T) {
	cfg := ServerConfig{Command: "foo"}
	assert.Error(t, cfg.Validate())
}

func TestServersConfigSaveAndLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp_servers.yaml")

	var cfg ServersConfig
	cfg.Add(NewLocalServerConfig("github", "github-mcp-server"))
	cfg.Add(NewRemoteServerConfig("remote", "https://example.com/mcp"))

	require.NoError(t, cfg.Save(path))

	loaded, err := LoadServersConfig(path)
	require.NoError(t, err)
	require.Len(t, loaded.Servers, 2)

	server, ok := loaded.Find("github")
	require.True(t, ok)
	assert.Equal(t, "github-mcp-server", server.Command)
}

func TestLoadServersConfigMissingFileReturnsEmpty(t *testing.T) {
	cfg, err := LoadServersConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Servers)
}

func TestServersConfigAddReplacesExistingID(t *testing.T) {
	var cfg ServersConfig
	cfg.Add(NewLocalServerConfig("x", "cmd-one"))
	cfg.Add(NewLocalServerConfig("x", "cmd-two"))

	require.Len(t, cfg.Servers, 1)
	assert.Equal(t, "cmd-two", cfg.Servers[0].Command)
}

func TestServersConfigRemove(t *testing.T) {
	var cfg ServersConfig
	cfg.Add(NewLocalServerConfig("a", "cmd-a"))
	cfg.Add(NewLocalServerConfig("b", "cmd-b"))

	assert.True(t, cfg.Remove("a"))
	assert.False(t, cfg.Remove("a"))
	require.Len(t, cfg.Servers, 1)
	assert.Equal(t, "b", cfg.Servers[0].ID)
}

func TestServersConfigAutoStartServersFiltersFlag(t *testing.T) {
	var cfg ServersConfig
	started := NewLocalServerConfig("started", "cmd")
	notStarted := NewLocalServerConfig("not-started", "cmd")
	notStarted.AutoStart = false
	cfg.Add(started)
	cfg.Add(notStarted)

	auto := cfg.AutoStartServers()
	require.Len(t, auto, 1)
	assert.Equal(t, "started", auto[0].ID)
}
