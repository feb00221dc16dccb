// Package config loads the postplanner YAML configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/postplanner/internal/collect"
	"github.com/TobiSchelling/postplanner/internal/content"
	"github.com/TobiSchelling/postplanner/internal/planner"
	"github.com/TobiSchelling/postplanner/internal/scheduler"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Audience   Audience                  `yaml:"audience"`
	Strategy   Strategy                  `yaml:"strategy"`
	Goals      Goals                     `yaml:"goals"`
	Platforms  map[string]PlatformLimits `yaml:"platforms"`
	Categories []content.Category        `yaml:"categories"`
	Sources    Sources                   `yaml:"sources"`
	Output     Output                    `yaml:"output"`
	Server     Server                    `yaml:"server"`
	Logging    Logging                   `yaml:"logging"`
	Optimize   Optimize                  `yaml:"optimize"`
}

type Audience struct {
	Timezone      string            `yaml:"timezone"`
	WorkingHours  planner.HourRange `yaml:"working_hours"`
	PeakHours     []int             `yaml:"peak_hours"`
	PreferredDays []string          `yaml:"preferred_days"`
}

type Strategy struct {
	PostsPerWeek    int                `yaml:"posts_per_week"`
	MinimumGapHours int                `yaml:"minimum_gap_hours"`
	ContentMix      map[string]float64 `yaml:"content_mix"`
}

type Goals struct {
	Priority         string  `yaml:"priority"`
	TargetEngagement float64 `yaml:"target_engagement"`
	TargetReach      float64 `yaml:"target_reach"`
	TargetConversion float64 `yaml:"target_conversion"`
}

type PlatformLimits struct {
	MaxPerDay    int   `yaml:"max_per_day"`
	MaxPerHour   int   `yaml:"max_per_hour"`
	OptimalTimes []int `yaml:"optimal_times"`
}

type Sources struct {
	Feeds    []Feed `yaml:"feeds"`
	DaysBack int    `yaml:"days_back"`
}

type Feed struct {
	URL          string `yaml:"url"`
	Name         string `yaml:"name"`
	Platform     string `yaml:"platform"`
	BusinessGoal string `yaml:"business_goal"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// Optimize controls the periodic re-optimisation run by `serve`.
type Optimize struct {
	Schedule string `yaml:"schedule"`
}

// ConfigDir returns the XDG config directory for postplanner.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "postplanner")
}

// DataDir returns the XDG data directory for postplanner.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "postplanner")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/postplanner/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'postplanner init' to create a default config",
		xdgConfig,
	)
}

// Load reads, parses and validates a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the embedded default configuration.
func Default() *Config {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default config is invalid: %v", err))
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Audience: Audience{
			Timezone:      "UTC",
			WorkingHours:  planner.HourRange{Start: 9, End: 17},
			PeakHours:     []int{9, 12, 15, 18},
			PreferredDays: []string{"monday", "tuesday", "wednesday", "thursday", "friday"},
		},
		Strategy: Strategy{PostsPerWeek: 10, MinimumGapHours: 2},
		Sources:  Sources{DaysBack: 7},
		Server:   Server{Port: 8000},
		Logging:  Logging{Level: "info"},
		Optimize: Optimize{Schedule: "0 6 * * *"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every enumerated value and hour in the config.
func (c *Config) Validate() error {
	var errs []error
	check := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if _, err := time.LoadLocation(c.Audience.Timezone); err != nil {
		check(fmt.Errorf("audience.timezone: %w", err))
	}
	check(validHour("audience.working_hours.start", c.Audience.WorkingHours.Start))
	if c.Audience.WorkingHours.End < 0 || c.Audience.WorkingHours.End > 24 {
		check(fmt.Errorf("audience.working_hours.end: %d is outside 0..24", c.Audience.WorkingHours.End))
	}
	for _, h := range c.Audience.PeakHours {
		check(validHour("audience.peak_hours", h))
	}
	if _, err := content.ParseWeekdays(c.Audience.PreferredDays); err != nil {
		check(fmt.Errorf("audience.preferred_days: %w", err))
	}
	if c.Strategy.MinimumGapHours < 0 {
		check(fmt.Errorf("strategy.minimum_gap_hours: must not be negative"))
	}
	for typ := range c.Strategy.ContentMix {
		if _, err := content.ParseContentType(typ); err != nil {
			check(fmt.Errorf("strategy.content_mix: %w", err))
		}
	}
	if _, err := content.ParseBusinessGoal(c.Goals.Priority); err != nil {
		check(fmt.Errorf("goals.priority: %w", err))
	}
	for name, l := range c.Platforms {
		if _, err := content.ParsePlatform(name); err != nil {
			check(fmt.Errorf("platforms: %w", err))
		}
		for _, h := range l.OptimalTimes {
			check(validHour("platforms."+name+".optimal_times", h))
		}
	}
	for _, cat := range c.Categories {
		if cat.ID == "" {
			check(errors.New("categories: entry without id"))
		}
		for _, p := range cat.OptimalPlatforms {
			if _, err := content.ParsePlatform(string(p)); err != nil {
				check(fmt.Errorf("categories.%s: %w", cat.ID, err))
			}
		}
		for _, h := range cat.OptimalHours {
			check(validHour("categories."+cat.ID+".optimal_hours", h))
		}
	}
	for _, f := range c.Sources.Feeds {
		if f.URL == "" {
			check(errors.New("sources.feeds: entry without url"))
		}
		if f.Platform != "" {
			if _, err := content.ParsePlatform(f.Platform); err != nil {
				check(fmt.Errorf("sources.feeds %s: %w", f.URL, err))
			}
		}
		if _, err := content.ParseBusinessGoal(f.BusinessGoal); err != nil {
			check(fmt.Errorf("sources.feeds %s: %w", f.URL, err))
		}
	}
	if c.Optimize.Schedule != "" {
		if _, err := cron.ParseStandard(c.Optimize.Schedule); err != nil {
			check(fmt.Errorf("optimize.schedule: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func validHour(field string, h int) error {
	if h < 0 || h > 23 {
		return fmt.Errorf("%s: hour %d is outside 0..23", field, h)
	}
	return nil
}

// SchedulerConfig converts the config into controller defaults. Call after Validate.
func (c *Config) SchedulerConfig() scheduler.Config {
	sc := scheduler.DefaultConfig()

	days, _ := content.ParseWeekdays(c.Audience.PreferredDays)
	sc.Audience = planner.Audience{
		Timezone:      c.Audience.Timezone,
		WorkingHours:  c.Audience.WorkingHours,
		PeakHours:     c.Audience.PeakHours,
		PreferredDays: days,
	}

	sc.Strategy.PostsPerWeek = c.Strategy.PostsPerWeek
	if c.Strategy.MinimumGapHours > 0 {
		sc.Strategy.MinimumGapHours = c.Strategy.MinimumGapHours
	}
	if len(c.Strategy.ContentMix) > 0 {
		sc.Strategy.ContentMix = make(map[content.ContentType]float64, len(c.Strategy.ContentMix))
		for typ, share := range c.Strategy.ContentMix {
			t, _ := content.ParseContentType(typ)
			sc.Strategy.ContentMix[t] = share
		}
	}

	goal, _ := content.ParseBusinessGoal(c.Goals.Priority)
	sc.Goals = planner.Goals{
		Priority:         goal,
		TargetEngagement: c.Goals.TargetEngagement,
		TargetReach:      c.Goals.TargetReach,
		TargetConversion: c.Goals.TargetConversion,
	}

	for name, l := range c.Platforms {
		p, err := content.ParsePlatform(name)
		if err != nil {
			continue
		}
		limits := scheduler.PlatformLimits{MaxPerDay: l.MaxPerDay, MaxPerHour: l.MaxPerHour, OptimalTimes: l.OptimalTimes}
		if limits.MaxPerDay <= 0 {
			limits.MaxPerDay = sc.Platforms[p].MaxPerDay
		}
		sc.Platforms[p] = limits
	}
	return sc
}

// Catalog returns the configured categories, or the built-in ones when none are set.
func (c *Config) Catalog() *content.Catalog {
	if len(c.Categories) == 0 {
		return content.NewCatalog(content.DefaultCategories())
	}
	return content.NewCatalog(c.Categories)
}

// Feeds converts the configured sources for the collector.
func (c *Config) Feeds() []collect.FeedConfig {
	feeds := make([]collect.FeedConfig, len(c.Sources.Feeds))
	for i, f := range c.Sources.Feeds {
		p, _ := content.ParsePlatform(f.Platform)
		g, _ := content.ParseBusinessGoal(f.BusinessGoal)
		feeds[i] = collect.FeedConfig{URL: f.URL, Name: f.Name, Platform: p, BusinessGoal: g}
	}
	return feeds
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// DatabasePath returns the sqlite file inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.GetDataDir(), "postplanner.db")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
