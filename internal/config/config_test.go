package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"apiprobe/internal/tryop"
)

func newCmd() *cobra.Command {
	cmd := &cobra.Command{}
	BindFlags(cmd)
	return cmd
}

func TestConfigValidate(t *testing.T) {
	valid := Config{Spec: "api.yaml", Timeout: time.Second, BodyFormat: "json", TabSize: 2}

	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantErr     bool
		errContains string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing spec", mutate: func(c *Config) { c.Spec = " " }, wantErr: true, errContains: "spec is required"},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: true, errContains: "timeout must be positive"},
		{name: "invalid body format", mutate: func(c *Config) { c.BodyFormat = "xml" }, wantErr: true, errContains: "invalid body format"},
		{name: "urlencoded body format", mutate: func(c *Config) { c.BodyFormat = "x-www-form-urlencoded" }},
		{name: "form-data body format", mutate: func(c *Config) { c.BodyFormat = "form-data" }},
		{name: "zero tab size", mutate: func(c *Config) { c.TabSize = 0 }, wantErr: true, errContains: "tab size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.errContains)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(newCmd(), "petstore.yaml")
	require.NoError(t, err)

	require.Equal(t, "petstore.yaml", cfg.Spec)
	require.Equal(t, 20*time.Second, cfg.Timeout)
	require.Equal(t, tryop.DefaultAcceptEncoding, cfg.AcceptEncoding)
	require.Equal(t, tryop.DefaultAcceptLanguage, cfg.AcceptLanguage)
	require.Equal(t, "apiprobe/"+Version, cfg.UserAgent)
	require.Equal(t, tryop.FormatJSON, cfg.Format())
	require.Equal(t, 2, cfg.TabSize)
	require.False(t, cfg.Debug)
}

func TestLoadRequiresSpec(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(newCmd(), "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "spec is required")
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `
spec: api.yaml
base-url: http://localhost:8080
timeout: 5s
body-format: form-data
tab-size: 4
accept-language: de-DE
`
	err := os.WriteFile(filepath.Join(tmpDir, DefaultFile), []byte(configContent), 0644)
	require.NoError(t, err)
	t.Chdir(tmpDir)

	cfg, err := Load(newCmd(), "")
	require.NoError(t, err)

	require.Equal(t, "api.yaml", cfg.Spec)
	require.Equal(t, "http://localhost:8080", cfg.BaseURL)
	require.Equal(t, 5*time.Second, cfg.Timeout)
	require.Equal(t, tryop.FormatFormData, cfg.Format())
	require.Equal(t, 4, cfg.TabSize)
	require.Equal(t, "de-DE", cfg.AcceptLanguage)
	require.Equal(t, tryop.DefaultAcceptEncoding, cfg.AcceptEncoding)
}

func TestLoadPrecedence(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `
spec: file.yaml
base-url: http://file
timeout: 5s
user-agent: from-file
`
	configPath := filepath.Join(tmpDir, "custom.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))
	t.Chdir(t.TempDir())

	t.Setenv("APIPROBE_BASE_URL", "http://env")
	t.Setenv("APIPROBE_TIMEOUT", "7s")
	t.Setenv("APIPROBE_TAB_SIZE", "8")
	t.Setenv("APIPROBE_DEBUG", "1")

	cmd := newCmd()
	require.NoError(t, cmd.PersistentFlags().Set("config", configPath))
	require.NoError(t, cmd.PersistentFlags().Set("timeout", "9s"))

	cfg, err := Load(cmd, "")
	require.NoError(t, err)

	require.Equal(t, "file.yaml", cfg.Spec)
	require.Equal(t, "from-file", cfg.UserAgent)
	require.Equal(t, "http://env", cfg.BaseURL)
	require.Equal(t, 8, cfg.TabSize)
	require.True(t, cfg.Debug)
	require.Equal(t, 9*time.Second, cfg.Timeout)

	cfg, err = Load(cmd, "positional.yaml")
	require.NoError(t, err)
	require.Equal(t, "positional.yaml", cfg.Spec)
}

func TestLoadBadConfigFile(t *testing.T) {
	cmd := newCmd()
	require.NoError(t, cmd.PersistentFlags().Set("config", filepath.Join(t.TempDir(), "missing.yaml")))

	_, err := Load(cmd, "api.yaml")
	require.Error(t, err)
	require.Contains(t, err.Error(), "reading config file")
}

func TestEnvKey(t *testing.T) {
	k, v := envKey("APIPROBE_BASE_URL", "http://x")
	require.Equal(t, "base-url", k)
	require.Equal(t, "http://x", v)

	k, _ = envKey("APIPROBE_", "ignored")
	require.Empty(t, k, "an empty key is skipped by the provider")
}

func TestEnvProvider(t *testing.T) {
	environ := func() []string {
		return []string{
			"APIPROBE_BASE_URL=http://x",
			"APIPROBE_ACCEPT_LANGUAGE=fr=1",
			"APIPROBE_=ignored",
			"HOME=/root",
		}
	}
	m, err := envProvider(environ).Read()
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"base-url":        "http://x",
		"accept-language": "fr=1",
	}, m)
}

func TestBuildFlagsMap(t *testing.T) {
	cmd := newCmd()
	cmd.Flags().AddFlagSet(cmd.PersistentFlags())

	require.NoError(t, cmd.Flags().Set("spec", "test.yaml"))
	require.NoError(t, cmd.Flags().Set("body-format", "json"))
	require.NoError(t, cmd.Flags().Set("debug", "true"))

	m := buildFlagsMap(cmd)

	require.Equal(t, map[string]any{
		"spec":        "test.yaml",
		"body-format": "json",
		"debug":       true,
	}, m)
}
