package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/postplanner/internal/content"
	"github.com/TobiSchelling/postplanner/internal/planner"
	"github.com/TobiSchelling/postplanner/internal/scheduler"
)

func init() {
	historyCmd.AddCommand(historyImportCmd)
	historyCmd.AddCommand(historyShowCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)

	historyShowCmd.Flags().IntVar(&historyDays, "days", 0, "Only consider the last N days (0 = all)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Export format (json, csv)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage engagement history used to learn publish times",
}

var historyImportCmd = &cobra.Command{
	Use:   "import [file.csv]",
	Short: "Import engagement data points from CSV (- for stdin)",
	Long: `Import engagement data points from CSV.

The header row names the columns. timestamp, platform and engagement are
required; content_type, reach, clicks and conversions are optional.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, closeFn, err := openInput(args[0])
		if err != nil {
			return err
		}
		defer closeFn()

		loc, _ := cfg.SchedulerConfig().Audience.Location()
		points, err := planner.ReadDataPointsCSV(r, loc)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", args[0], err)
		}

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.InsertDataPoints(points)
		if err != nil {
			return err
		}
		total, err := db.CountDataPoints()
		if err != nil {
			return err
		}
		fmt.Printf("Imported %s data points (%s total)\n", humanize.Comma(int64(n)), humanize.Comma(int64(total)))
		return nil
	},
}

var historyDays int

var historyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the engagement patterns learned from history",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var since time.Time
		if historyDays > 0 {
			since = time.Now().AddDate(0, 0, -historyDays)
		}
		points, err := db.GetDataPoints(since)
		if err != nil {
			return err
		}
		if len(points) == 0 {
			fmt.Println("No history. Import some with: postplanner history import data.csv")
			return nil
		}

		loc, _ := cfg.SchedulerConfig().Audience.Location()
		algo := planner.New(planner.WithLocation(loc), planner.WithLogger(logger))
		algo.AnalyzeHistoricalPatterns(points)
		p := algo.Patterns()

		fmt.Printf("Samples: %s (%s to %s)\n", humanize.Comma(int64(p.Samples)),
			points[0].Timestamp.In(loc).Format("Jan 02 2006"),
			points[len(points)-1].Timestamp.In(loc).Format("Jan 02 2006"))

		fmt.Println("\nBest hours:")
		for _, h := range p.BestHours(5) {
			fmt.Printf("  %02d:00  %.1f\n", h, p.Hourly[h])
		}

		fmt.Println("\nBy weekday:")
		for d := time.Sunday; d <= time.Saturday; d++ {
			if v, ok := p.Daily[d]; ok {
				fmt.Printf("  %-9s %.1f\n", d, v)
			}
		}

		if len(p.PlatformHourly) > 0 {
			fmt.Println("\nBest hour per platform:")
			for _, pl := range content.Platforms {
				hours, ok := p.PlatformHourly[pl]
				if !ok {
					continue
				}
				if best := (planner.Patterns{Hourly: hours}).BestHours(1); len(best) == 1 {
					fmt.Printf("  %-10s %02d:00\n", pl, best[0])
				}
			}
		}
		return nil
	},
}

// --- export / import ---

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the schedule as JSON or CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := scheduler.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var w io.Writer = os.Stdout
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("creating %s: %w", exportOutput, err)
			}
			defer f.Close()
			w = f
		}
		if err := a.ctl.ExportSchedule(w, format); err != nil {
			return err
		}
		if exportOutput != "" {
			fmt.Fprintf(os.Stderr, "Exported %d items to %s\n", a.ctl.Len(), exportOutput)
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import [file.json]",
	Short: "Import a JSON schedule export (- for stdin); items with the same ID are replaced",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, closeFn, err := openInput(args[0])
		if err != nil {
			return err
		}
		defer closeFn()

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.ctl.ImportSchedule(r)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d items; %d now scheduled\n", n, a.ctl.Len())
		return nil
	},
}

func openInput(path string) (io.Reader, func(), error) {
	if strings.TrimSpace(path) == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}
