// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package events

import "time"

// Config holds event bus settings. The bus runs an embedded NATS
// JetStream server; no external broker is required.
type Config struct {
	// Enabled controls whether the event bus runs at all. When false,
	// port-call and signal events are not published.
	Enabled bool `koanf:"enabled"`

	// Host and Port are the embedded server's listen address.
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// StoreDir is the JetStream storage directory.
	StoreDir string `koanf:"store_dir"`

	// MaxMemory and MaxStore bound JetStream resource usage in bytes.
	MaxMemory int64 `koanf:"max_memory"`
	MaxStore  int64 `koanf:"max_store"`

	// RetentionAge is how long the stream keeps events.
	RetentionAge time.Duration `koanf:"retention_age"`

	// DuplicateWindow is the JetStream deduplication window.
	DuplicateWindow time.Duration `koanf:"duplicate_window"`

	// MaxReconnects and ReconnectWait tune client reconnection.
	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// DefaultConfig returns single-instance defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Host:            "127.0.0.1",
		Port:            4222,
		StoreDir:        "data/nats",
		MaxMemory:       256 << 20,
		MaxStore:        1 << 30,
		RetentionAge:    7 * 24 * time.Hour,
		DuplicateWindow: 2 * time.Minute,
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
	}
}
