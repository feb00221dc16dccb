package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/postplanner/internal/content"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Sources.Feeds)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "UTC", cfg.Audience.Timezone)
	assert.Equal(t, 2, cfg.Strategy.MinimumGapHours)
	assert.Equal(t, "0 6 * * *", cfg.Optimize.Schedule)
	assert.Len(t, cfg.Categories, 3)
	assert.Equal(t, content.DefaultCategories(), cfg.Categories)
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
audience:
  peak_hours: [10]
server:
  port: 9000
`)
	cfg, err := parse(data)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, []int{10}, cfg.Audience.PeakHours)
	// Defaults survive for unspecified fields.
	assert.Equal(t, 9, cfg.Audience.WorkingHours.Start)
	assert.Equal(t, 7, cfg.Sources.DaysBack)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Categories)
	assert.Equal(t, 3, cfg.Catalog().Len())
}

func TestParseRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"platform":      "platforms:\n  myspace:\n    max_per_day: 1\n",
		"weekday":       "audience:\n  preferred_days: [funday]\n",
		"peak hour":     "audience:\n  peak_hours: [24]\n",
		"timezone":      "audience:\n  timezone: Mars/Olympus\n",
		"feed platform": "sources:\n  feeds:\n    - url: https://x.test/feed\n      platform: fax\n",
		"goal":          "goals:\n  priority: world_domination\n",
		"cron":          "optimize:\n  schedule: every tuesday\n",
		"category hour": "categories:\n  - id: c\n    optimal_hours: [-1]\n",
		"yaml":          "audience: [",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestSchedulerConfig(t *testing.T) {
	cfg, err := parse([]byte(`
audience:
  timezone: UTC
  preferred_days: [sat, sunday]
strategy:
  minimum_gap_hours: 3
  content_mix:
    video: 1
goals:
  priority: conversion
platforms:
  twitter:
    max_per_hour: 1
  email:
    max_per_day: 1
    optimal_times: [10]
`))
	require.NoError(t, err)

	sc := cfg.SchedulerConfig()
	assert.Equal(t, []time.Weekday{time.Saturday, time.Sunday}, sc.Audience.PreferredDays)
	assert.Equal(t, 3, sc.Strategy.MinimumGapHours)
	assert.Equal(t, map[content.ContentType]float64{content.TypeVideo: 1}, sc.Strategy.ContentMix)
	assert.Equal(t, content.GoalConversion, sc.Goals.Priority)

	assert.Equal(t, 1, sc.Platforms[content.PlatformTwitter].MaxPerHour)
	assert.Equal(t, 5, sc.Platforms[content.PlatformTwitter].MaxPerDay, "unset daily cap keeps the default")
	assert.Equal(t, 1, sc.Platforms[content.PlatformEmail].MaxPerDay)
	assert.Equal(t, []int{10}, sc.Platforms[content.PlatformEmail].OptimalTimes)
	assert.Equal(t, 5, sc.Platforms[content.PlatformBlog].MaxPerDay)
}

func TestFeeds(t *testing.T) {
	cfg, err := parse([]byte(`
sources:
  feeds:
    - url: https://x.test/feed
      name: X
      platform: LinkedIn
      business_goal: engagement
`))
	require.NoError(t, err)

	feeds := cfg.Feeds()
	require.Len(t, feeds, 1)
	assert.Equal(t, content.PlatformLinkedIn, feeds[0].Platform)
	assert.Equal(t, content.GoalEngagement, feeds[0].BusinessGoal)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, DefaultConfigYAML, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.Sources.Feeds)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestResolveConfigPathExplicit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	got, err := ResolveConfigPath(path)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	_, err = ResolveConfigPath(path + ".missing")
	assert.Error(t, err)
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	assert.NotEmpty(t, cfg.GetDataDir())

	cfg.Output.DataDir = "/custom/path"
	assert.Equal(t, "/custom/path", cfg.GetDataDir())
	assert.Equal(t, filepath.Join("/custom/path", "postplanner.db"), cfg.DatabasePath())
}

func TestDefault(t *testing.T) {
	assert.NotPanics(t, func() { Default() })
}
