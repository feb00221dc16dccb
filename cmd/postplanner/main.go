package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/postplanner/internal/classify"
	"github.com/TobiSchelling/postplanner/internal/config"
	"github.com/TobiSchelling/postplanner/internal/database"
	"github.com/TobiSchelling/postplanner/internal/logx"
	"github.com/TobiSchelling/postplanner/internal/planner"
	"github.com/TobiSchelling/postplanner/internal/scheduler"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "postplanner",
	Short:   "Content scheduling for social and owned channels",
	Long:    "postplanner classifies content, picks publish times from audience rules and engagement history, and keeps a conflict-checked schedule.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			logger = logx.New("info", verbose)
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger = logx.New(cfg.Logging.Level, verbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("postplanner", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/postplanner/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to describe your audience, platforms and feeds.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and schedule status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Schedule:")
		fmt.Printf("  Scheduled items: %d\n", stats.ScheduledItems)
		fmt.Println("\nContent queue:")
		fmt.Printf("  Pending: %d\n", stats.PendingItems)
		fmt.Printf("  Failed: %d\n", stats.FailedItems)
		fmt.Println("\nHistory:")
		fmt.Printf("  Performance data points: %d\n", stats.DataPoints)
		fmt.Printf("  Plan runs: %d\n", stats.Runs)
		if stats.LastRunAt == nil {
			return nil
		}

		runs, err := db.GetRecentRuns(5)
		if err != nil {
			return fmt.Errorf("getting runs: %w", err)
		}
		fmt.Println("\nRecent runs:")
		for _, r := range runs {
			fmt.Printf("  %s (%s): %d collected, %d scheduled, %d failed, %d conflicts\n",
				r.StartedAt.Local().Format("Mon Jan 02 15:04"), ago(r.StartedAt),
				r.Collected, r.Scheduled, r.Failed, r.Conflicts)
		}
		return nil
	},
}

func openDB() (*database.DB, error) {
	if err := os.MkdirAll(cfg.GetDataDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(cfg.DatabasePath(), database.WithLogger(logger))
}

// app is the wired scheduling stack over the local database.
type app struct {
	db         *database.DB
	classifier *classify.Classifier
	algorithm  *planner.Algorithm
	ctl        *scheduler.Controller
}

// openApp opens the database, trains the planner on stored history and loads
// the persisted schedule into a controller that writes back to the database.
func openApp() (*app, error) {
	db, err := openDB()
	if err != nil {
		return nil, err
	}

	sc := cfg.SchedulerConfig()
	loc, _ := sc.Audience.Location()
	classifier := classify.New(cfg.Catalog(), classify.WithLogger(logger))
	algorithm := planner.New(planner.WithLocation(loc), planner.WithLogger(logger))

	points, err := db.GetDataPoints(time.Time{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading history: %w", err)
	}
	algorithm.AnalyzeHistoricalPatterns(points)

	ctl := scheduler.New(sc, classifier, algorithm,
		scheduler.WithPersister(db), scheduler.WithLogger(logger))
	results, err := db.LoadResults()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading schedule: %w", err)
	}
	ctl.Restore(results)
	logger.Debug().Int("results", len(results)).Int("data_points", len(points)).Msg("schedule loaded")

	return &app{db: db, classifier: classifier, algorithm: algorithm, ctl: ctl}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
