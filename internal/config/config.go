package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"

	"apiprobe/internal/tryop"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

const (
	DefaultFile = "apiprobe.yaml"
	EnvPrefix   = "APIPROBE_"
)

type Config struct {
	Spec           string        `koanf:"spec"`
	BaseURL        string        `koanf:"base-url"`
	Timeout        time.Duration `koanf:"timeout"`
	AcceptEncoding string        `koanf:"accept-encoding"`
	AcceptLanguage string        `koanf:"accept-language"`
	UserAgent      string        `koanf:"user-agent"`
	BodyFormat     string        `koanf:"body-format"`
	TabSize        int           `koanf:"tab-size"`
	Debug          bool          `koanf:"debug"`
}

func defaults() map[string]any {
	return map[string]any{
		"timeout":         20 * time.Second,
		"accept-encoding": tryop.DefaultAcceptEncoding,
		"accept-language": tryop.DefaultAcceptLanguage,
		"user-agent":      "apiprobe/" + Version,
		"body-format":     string(tryop.FormatJSON),
		"tab-size":        2,
	}
}

// BindFlags registers the persistent flags shared by every command.
func BindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringP("config", "c", "", "Config file path (default: apiprobe.yaml)")
	flags.StringP("spec", "s", "", "Swagger/OpenAPI document path or URL")
	flags.String("base-url", "", "Base URL for requests, overrides the document's scheme/host/basePath")
	flags.Duration("timeout", 0, "Per-request timeout (default 20s)")
	flags.String("body-format", "", "Initial body format: json, x-www-form-urlencoded, form-data")
	flags.String("user-agent", "", "User-Agent header sent with requests")
	flags.Bool("debug", false, "Write a debug log to the temp directory")
}

// Load layers defaults, the config file, APIPROBE_* variables and changed
// flags, in that order. spec, when not empty, is the positional document
// argument and wins over everything.
func Load(cmd *cobra.Command, spec string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Persistent and inherited flags only reach cmd.Flags() once cobra has
	// parsed the command line.
	cmd.Flags().AddFlagSet(cmd.PersistentFlags())
	cmd.Flags().AddFlagSet(cmd.InheritedFlags())

	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			configFile = DefaultFile
		}
	}
	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	if err := k.Load(envProvider(os.Environ), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	flagsMap := buildFlagsMap(cmd)
	if spec = strings.TrimSpace(spec); spec != "" {
		flagsMap["spec"] = spec
	}
	if len(flagsMap) > 0 {
		if err := k.Load(confmap.Provider(flagsMap, "."), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envProvider reads the APIPROBE_* variables listed by environ.
func envProvider(environ func() []string) *env.Env {
	return env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
		EnvironFunc:   environ,
	})
}

// envKey turns APIPROBE_BASE_URL=x into base-url=x.
func envKey(k, v string) (string, any) {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(k, EnvPrefix), "_", "-")), v
}

func buildFlagsMap(cmd *cobra.Command) map[string]any {
	m := make(map[string]any)
	flags := cmd.Flags()

	for _, name := range []string{"spec", "base-url", "body-format", "user-agent"} {
		if !flags.Changed(name) {
			continue
		}
		if v, err := flags.GetString(name); err == nil {
			m[name] = v
		}
	}
	if flags.Changed("timeout") {
		if v, err := flags.GetDuration("timeout"); err == nil {
			m["timeout"] = v
		}
	}
	if flags.Changed("debug") {
		if v, err := flags.GetBool("debug"); err == nil {
			m["debug"] = v
		}
	}
	return m
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Spec) == "" {
		return fmt.Errorf("spec is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if _, err := tryop.ParseBodyFormat(c.BodyFormat); err != nil {
		return fmt.Errorf("invalid body format: %s (valid: json, x-www-form-urlencoded, form-data)", c.BodyFormat)
	}
	if c.TabSize <= 0 {
		return fmt.Errorf("tab size must be positive, got %d", c.TabSize)
	}
	return nil
}

// Format is the validated initial body format.
func (c *Config) Format() tryop.BodyFormat {
	f, _ := tryop.ParseBodyFormat(c.BodyFormat)
	return f
}
