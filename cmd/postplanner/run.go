package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/postplanner/internal/collect"
	"github.com/TobiSchelling/postplanner/internal/fetch"
	"github.com/TobiSchelling/postplanner/internal/pipeline"
	"github.com/TobiSchelling/postplanner/internal/server"
)

func init() {
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)

	collectCmd.Flags().IntVar(&daysBack, "days-back", 0, "Override lookback window (days)")
	collectCmd.Flags().BoolVar(&withBodies, "fetch", false, "Also extract article bodies for queued items")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
	runCmd.Flags().IntVar(&daysBack, "days-back", 0, "Override lookback window (days)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
	serveCmd.Flags().BoolVar(&noOptimizer, "no-optimizer", false, "Do not re-optimize on the configured cron schedule")
}

var (
	daysBack   int
	withBodies bool
	dryRun     bool
)

func effectiveDaysBack() int {
	if daysBack > 0 {
		return daysBack
	}
	return cfg.Sources.DaysBack
}

// --- collect command ---

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Queue new entries from configured feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, cancel := signalContext()
		defer cancel()

		fmt.Println("Collecting entries from feeds...")
		collector := collect.NewCollector(cfg.Feeds(), db, effectiveDaysBack(), logger)
		result := collector.Collect(ctx)

		fmt.Println("\nCollection complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New items: %d\n", result.NewItems)
		fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)
		if result.Failed > 0 {
			fmt.Printf("  Failed: %d\n", result.Failed)
		}

		if len(result.Sources) > 0 {
			fmt.Println("\nItems by source:")
			// Sort sources by count descending
			type kv struct {
				key string
				val int
			}
			var sorted []kv
			for k, v := range result.Sources {
				sorted = append(sorted, kv{k, v})
			}
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].val > sorted[j].val })
			for _, s := range sorted {
				fmt.Printf("  %s: %d\n", s.key, s.val)
			}
		}

		if withBodies {
			fr, err := fetch.NewContentFetcher(db, 15*time.Second, logger).FetchMissingContent(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("\nBodies: %d fetched, %d already present, %d failed\n", fr.Fetched, fr.AlreadyHadContent, fr.Failed)
		}
		return nil
	},
}

// --- run command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a full planning pass: collect -> fetch -> history -> prioritize -> schedule -> conflicts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		pipe := pipeline.New(a.db, a.ctl, a.classifier, a.algorithm,
			pipeline.WithFeeds(cfg.Feeds(), effectiveDaysBack()),
			pipeline.WithLogger(logger))

		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun()
		} else {
			ctx, cancel := signalContext()
			defer cancel()
			result = pipe.Run(ctx)
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if !dryRun {
			fmt.Println("\nPlanning complete! Run 'postplanner list' or 'postplanner serve' to review the schedule.")
		}
		if result.Failed() {
			if dryRun {
				return fmt.Errorf("dry run finished with errors")
			}
			return fmt.Errorf("run %s finished with errors", result.RunID)
		}
		return nil
	},
}

// --- serve command ---

var (
	servePort   int
	noOptimizer bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		srv, err := server.New(a.ctl, server.WithLogger(logger))
		if err != nil {
			return err
		}

		if !noOptimizer && cfg.Optimize.Schedule != "" {
			c, err := srv.StartOptimizer(cfg.Optimize.Schedule)
			if err != nil {
				return err
			}
			defer func() { <-c.Stop().Done() }()
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		ctx, cancel := signalContext()
		defer cancel()

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return srv.Serve(ctx, port)
	},
}
