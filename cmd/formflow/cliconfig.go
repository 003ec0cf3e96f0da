package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// CLIConfig holds defaults for the persistent flags. Flags set on the
// command line win.
type CLIConfig struct {
	Server  string `toml:"server,omitempty"`
	Token   string `toml:"token,omitempty"`
	Caller  string `toml:"caller,omitempty"`
	NATSURL string `toml:"nats_url,omitempty"`
	Color   string `toml:"color,omitempty"`
}

func defaultConfigPath() string {
	if p := os.Getenv("FORMFLOW_CLI_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "formflow", "config.toml")
}

// loadCLIConfig reads path. A missing file yields an empty config.
func loadCLIConfig(path string) (CLIConfig, error) {
	var cfg CLIConfig
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return CLIConfig{}, nil
		}
		return CLIConfig{}, fmt.Errorf("read %s: %w", path, err)
	}
	return cfg, nil
}

func saveCLIConfig(path string, cfg CLIConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// set assigns one key. It reports false for unknown keys.
func (c *CLIConfig) set(key, value string) bool {
	switch key {
	case "server":
		c.Server = value
	case "token":
		c.Token = value
	case "caller":
		c.Caller = value
	case "nats_url":
		c.NATSURL = value
	case "color":
		c.Color = value
	default:
		return false
	}
	return true
}

// applyCLIConfig fills persistent flags the user did not set from the
// config file.
func applyCLIConfig(cmd *cobra.Command) error {
	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	apply := func(name string, dst *string, v string) {
		if v != "" && !flags.Changed(name) {
			*dst = v
		}
	}
	apply("server", &serverURL, cfg.Server)
	apply("token", &token, cfg.Token)
	apply("caller", &caller, cfg.Caller)
	apply("nats-url", &natsURL, cfg.NATSURL)
	apply("color", &colorFlag, cfg.Color)
	return nil
}
