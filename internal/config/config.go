// Package config loads the command-line tools' YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	// Target oracle service.
	Server string `yaml:"server"`
	Port   int    `yaml:"port"`

	// Response classification for the line protocol.
	ValidMarker   string `yaml:"validMarker"`
	InvalidMarker string `yaml:"invalidMarker"`

	// CiphertextPattern extracts the challenge from the banner;
	// CiphertextHex overrides it with a fixed ciphertext.
	CiphertextPattern string `yaml:"ciphertextPattern"`
	CiphertextHex     string `yaml:"ciphertextHex"`

	RetryAttempts  int `yaml:"retryAttempts"`
	QueryTimeoutMs int `yaml:"queryTimeoutMs"`

	// CachePath enables the persistent query cache when non-empty.
	CachePath string `yaml:"cachePath"`
	// TranscriptPath enables the query transcript when non-empty.
	TranscriptPath string `yaml:"transcriptPath"`
}

// Load reads path and applies defaults. Server and port can be
// overridden by the first two positional arguments, matching how the
// tools are pointed at a fresh challenge instance mid-CTF.
func Load(path string, args []string) (Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if config.Server == "" {
		config.Server = "localhost"
	}
	if config.Port == 0 {
		config.Port = 1600
	}
	if config.ValidMarker == "" {
		config.ValidMarker = "Valid Padding"
	}
	if config.InvalidMarker == "" {
		config.InvalidMarker = "Invalid Padding"
	}
	if config.RetryAttempts == 0 {
		config.RetryAttempts = 3
	}
	if config.QueryTimeoutMs == 0 {
		config.QueryTimeoutMs = 10000
	}

	if len(args) > 0 {
		config.Server = args[0]
	}
	if len(args) > 1 {
		fmt.Sscanf(args[1], "%d", &config.Port)
	}

	return config, nil
}
