// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

// Package config loads layered configuration: struct defaults, an
// optional YAML file, then environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/portwatch/portwatch/internal/analytics"
	"github.com/portwatch/portwatch/internal/database"
	"github.com/portwatch/portwatch/internal/events"
	"github.com/portwatch/portwatch/internal/ingest"
	"github.com/portwatch/portwatch/internal/logging"
	"github.com/portwatch/portwatch/internal/realtime"
	"github.com/portwatch/portwatch/internal/signal"
	"github.com/portwatch/portwatch/internal/tracker"
)

// Config aggregates all component settings.
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Database  database.Config  `koanf:"database"`
	Ingest    ingest.Config    `koanf:"ingest"`
	Tracker   tracker.Config   `koanf:"tracker"`
	Analytics analytics.Config `koanf:"analytics"`
	Signals   signal.Config    `koanf:"signals"`
	Realtime  realtime.Config  `koanf:"realtime"`
	Events    events.Config    `koanf:"events"`
	Security  SecurityConfig   `koanf:"security"`
	API       APIConfig        `koanf:"api"`
	Logging   logging.Config   `koanf:"logging"`
	Ports     []PortConfig     `koanf:"ports"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// SecurityConfig holds API protection settings.
type SecurityConfig struct {
	JWTSecret       string        `koanf:"jwt_secret"`
	SessionTimeout  time.Duration `koanf:"session_timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// APIConfig holds pagination settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// PortConfig seeds a tracked port.
type PortConfig struct {
	ID       string  `koanf:"id"`
	Name     string  `koanf:"name"`
	Lat      float64 `koanf:"lat"`
	Lon      float64 `koanf:"lon"`
	RadiusKm float64 `koanf:"radius_km"`
}

// defaultConfig returns a Config with all defaults applied. The default
// port set covers a handful of major hubs so a fresh install tracks
// something out of the box.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 30 * time.Second,
		},
		Database:  database.DefaultConfig(),
		Ingest:    ingest.DefaultConfig(),
		Tracker:   tracker.DefaultConfig(),
		Analytics: analytics.DefaultConfig(),
		Signals:   signal.DefaultConfig(),
		Realtime:  realtime.DefaultConfig(),
		Events:    events.DefaultConfig(),
		Security: SecurityConfig{
			JWTSecret:       "",
			SessionTimeout:  24 * time.Hour,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		API: APIConfig{
			DefaultPageSize: 50,
			MaxPageSize:     500,
		},
		Logging: logging.DefaultConfig(),
		Ports: []PortConfig{
			{ID: "NLRTM", Name: "Rotterdam", Lat: 51.9496, Lon: 4.1453, RadiusKm: 8},
			{ID: "SGSIN", Name: "Singapore", Lat: 1.2644, Lon: 103.8400, RadiusKm: 10},
			{ID: "CNSHA", Name: "Shanghai", Lat: 31.3403, Lon: 121.6558, RadiusKm: 12},
			{ID: "USLAX", Name: "Los Angeles", Lat: 33.7292, Lon: -118.2620, RadiusKm: 8},
			{ID: "DEHAM", Name: "Hamburg", Lat: 53.5078, Lon: 9.9674, RadiusKm: 8},
		},
	}
}

// Validate checks required settings and value ranges.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters")
	}
	if c.Analytics.ScheduleHour < 0 || c.Analytics.ScheduleHour > 23 {
		return fmt.Errorf("analytics.schedule_hour must be in 0..23, got %d", c.Analytics.ScheduleHour)
	}
	if c.API.DefaultPageSize <= 0 || c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("api page sizes invalid: default %d, max %d", c.API.DefaultPageSize, c.API.MaxPageSize)
	}
	for _, p := range c.Ports {
		if err := validatePort(p); err != nil {
			return err
		}
	}
	return c.Ingest.Validate()
}

func validatePort(p PortConfig) error {
	if p.ID == "" {
		return fmt.Errorf("port id is required")
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("port %s: lat %f out of range", p.ID, p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("port %s: lon %f out of range", p.ID, p.Lon)
	}
	if p.RadiusKm <= 0 {
		return fmt.Errorf("port %s: radius_km must be positive", p.ID)
	}
	return nil
}
