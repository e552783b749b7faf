// Portwatch - Vessel Tracking and Port Call Analytics
// Copyright 2026 Portwatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/portwatch/portwatch

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReturnsStoredValue(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	c.Set("metrics:NLRTM", 42)
	v, ok := c.Get("metrics:NLRTM")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = c.Get("metrics:SGSIN")
	assert.False(t, ok)
}

func TestExpiredEntryIsEvictedOnAccess(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	c.SetWithTTL("short", "value", -time.Second)
	_, ok := c.Get("short")
	assert.False(t, ok)

	stats := c.GetStats()
	assert.Equal(t, int64(1), stats.Evictions)
	assert.Zero(t, stats.Keys)
}

func TestDeleteAndClear(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	assert.Zero(t, c.GetStats().Keys)
}

func TestStatsCountHitsAndMisses(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	c.Set("k", "v")
	c.Get("k")
	c.Get("k")
	c.Get("absent")

	stats := c.GetStats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}
