// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/mirrorgate/config.yaml",
	"/etc/mirrorgate/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "MIRRORGATE_CONFIG_PATH"

// envPrefix namespaces environment overrides: MIRRORGATE_LINK_CREDIT_WINDOW
// maps to link.credit_window.
const envPrefix = "MIRRORGATE_"

// defaultConfig returns a Config with all defaults applied.
func defaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			ID: "", // auto-generated when empty
		},
		Link: LinkConfig{
			RemoteMirrorID:   "",
			CreditWindow:     1000,
			SenderSettleMode: "unsettled",
		},
		NATS: NATSConfig{
			URL:            "nats://127.0.0.1:4222",
			Topic:          "mirror.events",
			StreamName:     "",
			DurableName:    "mirror-target",
			AckWaitTimeout: 30 * time.Second,
			CloseTimeout:   30 * time.Second,
			MaxReconnects:  -1, // retry forever; the link must survive broker restarts
			ReconnectWait:  2 * time.Second,
		},
		Store: StoreConfig{
			Path:     "/data/mirrorgate",
			InMemory: false,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    3858,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: highest priority
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	// MIRRORGATE_LINK_REMOTE_MIRROR_ID -> link.remote_mirror_id
	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransform maps MIRRORGATE_SECTION_SOME_KEY to section.some_key. Only
// the first underscore separates the section; the rest of the name is the
// key.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	section, key, found := strings.Cut(s, "_")
	if !found {
		return section
	}
	return section + "." + key
}

// findConfigFile returns the first config file present, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
