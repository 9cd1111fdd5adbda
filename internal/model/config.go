// Package model defines the data structures shared across agdad: editor
// commands, Agda requests and responses, view protocol types, and the
// daemon configuration.
package model

import (
	"fmt"
	"os"

	yamlv3 "gopkg.in/yaml.v3"
)

type Config struct {
	Agda    AgdaConfig    `yaml:"agda"`
	View    ViewConfig    `yaml:"view"`
	Daemon  DaemonConfig  `yaml:"daemon"`
	Logging LoggingConfig `yaml:"logging"`
	Notify  NotifyConfig  `yaml:"notify"`
}

type AgdaConfig struct {
	// Path to the agda executable. Empty means look it up on $PATH.
	Path string `yaml:"path"`
	// Version pin, e.g. "2.6.4". Empty accepts any version.
	Version string `yaml:"version"`
	// Extra arguments appended after --interaction-json.
	Args []string `yaml:"args,omitempty"`
	// ConnectTimeoutSec bounds process startup and the version probe.
	ConnectTimeoutSec int `yaml:"connect_timeout_sec"`
}

type ViewConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// PromptTimeoutSec bounds how long a prompting view request may wait
	// for user input. 0 means wait forever.
	PromptTimeoutSec int `yaml:"prompt_timeout_sec"`
}

type DaemonConfig struct {
	ShutdownTimeoutSec int `yaml:"shutdown_timeout_sec"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type NotifyConfig struct {
	// Enabled turns on desktop notifications for proof errors that arrive
	// while no view panel is connected.
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns the configuration written by `agdad setup`.
func DefaultConfig() Config {
	return Config{
		Agda: AgdaConfig{
			ConnectTimeoutSec: 10,
		},
		View: ViewConfig{
			Host: "localhost",
			Port: 4096,
		},
		Daemon: DaemonConfig{
			ShutdownTimeoutSec: 30,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads and parses the config file at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yamlv3.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
