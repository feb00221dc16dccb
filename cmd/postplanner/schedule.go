package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/TobiSchelling/postplanner/internal/classify"
	"github.com/TobiSchelling/postplanner/internal/content"
	"github.com/TobiSchelling/postplanner/internal/database"
	"github.com/TobiSchelling/postplanner/internal/scheduler"
)

func init() {
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(prioritizeCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(rescheduleCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(conflictsCmd)
	rootCmd.AddCommand(optimizeCmd)
	rootCmd.AddCommand(analyticsCmd)
}

// itemFlags describe one content item on the command line.
type itemFlags struct {
	id, title, body string
	platform        string
	contentType     string
	urgency, goal   string
	sourceURL       string
	deadline        string
}

func (f *itemFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.id, "id", "", "Content ID (generated when empty)")
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "Content title")
	cmd.Flags().StringVarP(&f.body, "body", "b", "", "Content body")
	cmd.Flags().StringVarP(&f.platform, "platform", "p", "", "Target platform (twitter, linkedin, facebook, instagram, email, blog)")
	cmd.Flags().StringVar(&f.contentType, "type", "", "Content type (detected when empty)")
	cmd.Flags().StringVar(&f.urgency, "urgency", "", "Urgency (low, medium, high, urgent)")
	cmd.Flags().StringVar(&f.goal, "goal", "", "Business goal")
	cmd.Flags().StringVar(&f.sourceURL, "url", "", "Source URL")
	cmd.Flags().StringVar(&f.deadline, "deadline", "", "Latest acceptable publish time")
}

func (f *itemFlags) item(loc *time.Location) (content.Item, error) {
	var (
		it  content.Item
		err error
	)
	it.ID = f.id
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	it.Title = f.title
	it.Body = f.body
	it.SourceURL = f.sourceURL
	it.CreatedAt = time.Now().UTC()
	if it.Platform, err = content.ParsePlatform(f.platform); err != nil {
		return it, err
	}
	if it.ContentType, err = content.ParseContentType(f.contentType); err != nil {
		return it, err
	}
	if it.Urgency, err = content.ParseUrgency(f.urgency); err != nil {
		return it, err
	}
	if it.BusinessGoal, err = content.ParseBusinessGoal(f.goal); err != nil {
		return it, err
	}
	if f.deadline != "" {
		d, err := dateparse.ParseIn(f.deadline, loc)
		if err != nil {
			return it, fmt.Errorf("parsing deadline: %w", err)
		}
		it.Deadline = &d
	}
	return it, nil
}

// requestSpec is one entry of a YAML request file, and the shape the
// scheduling flags are collected into.
type requestSpec struct {
	Item            content.Item `yaml:"item"`
	Priority        string       `yaml:"priority"`
	ExcludedDays    []string     `yaml:"excluded_days"`
	ExcludedHours   []int        `yaml:"excluded_hours"`
	MinimumGapHours int          `yaml:"minimum_gap_hours"`
	PreferredTime   string       `yaml:"preferred_time"`
	Force           bool         `yaml:"force"`
}

func (s requestSpec) request(loc *time.Location) (scheduler.Request, error) {
	req := scheduler.Request{Item: s.Item, Force: s.Force}
	var err error
	if req.Priority, err = scheduler.ParsePriority(s.Priority); err != nil {
		return req, err
	}
	days, err := content.ParseWeekdays(s.ExcludedDays)
	if err != nil {
		return req, err
	}
	for _, h := range s.ExcludedHours {
		if h < 0 || h > 23 {
			return req, fmt.Errorf("excluded hour %d is outside 0..23", h)
		}
	}
	req.Constraints = scheduler.Constraints{
		ExcludedDays:           days,
		ExcludedHours:          s.ExcludedHours,
		MinimumGapBetweenPosts: s.MinimumGapHours,
	}
	if s.PreferredTime != "" {
		t, err := dateparse.ParseIn(s.PreferredTime, loc)
		if err != nil {
			return req, fmt.Errorf("parsing preferred time: %w", err)
		}
		req.PreferredTime = &t
	}
	if req.Force && req.PreferredTime == nil {
		return req, errors.New("--force needs --at")
	}
	return req, nil
}

func loadRequestFile(path string, loc *time.Location) ([]scheduler.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading request file: %w", err)
	}
	var specs []requestSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parsing request file: %w", err)
	}
	reqs := make([]scheduler.Request, 0, len(specs))
	for i, s := range specs {
		if s.Item.ID == "" {
			s.Item.ID = uuid.NewString()
		}
		if s.Item.CreatedAt.IsZero() {
			s.Item.CreatedAt = time.Now().UTC()
		}
		req, err := s.request(loc)
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i+1, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func registerRequestFlags(cmd *cobra.Command, s *requestSpec) {
	cmd.Flags().StringVar(&s.Priority, "priority", "", "Priority (low, medium, high, urgent)")
	cmd.Flags().StringSliceVar(&s.ExcludedDays, "exclude-days", nil, "Days never to publish on (e.g. sat,sun)")
	cmd.Flags().IntSliceVar(&s.ExcludedHours, "exclude-hours", nil, "Hours never to publish at (0-23)")
	cmd.Flags().IntVar(&s.MinimumGapHours, "gap", 0, "Minimum hours between posts on the same platform")
	cmd.Flags().StringVar(&s.PreferredTime, "at", "", "Earliest publish time, or the exact time with --force")
	cmd.Flags().BoolVar(&s.Force, "force", false, "Publish exactly at --at")
}

// --- classify / prioritize ---

var classifyItem itemFlags

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify one content item without scheduling it",
	RunE: func(cmd *cobra.Command, args []string) error {
		it, err := classifyItem.item(time.UTC)
		if err != nil {
			return err
		}
		cl := classify.New(cfg.Catalog(), classify.WithLogger(logger)).Classify(it)

		fmt.Printf("Content type: %s\n", cl.ContentType)
		fmt.Printf("Urgency: %.0f  Priority: %.0f  Final: %.1f\n", cl.UrgencyScore, cl.PriorityScore, classify.FinalPriority(cl))
		fmt.Printf("Goal: %s (%.0f%%)\n", cl.GoalAlignment.Primary, cl.GoalAlignment.Confidence)
		if cl.Degraded() {
			fmt.Println("Categories: none matched")
		} else {
			fmt.Println("Categories:")
			for _, c := range cl.Categories {
				fmt.Printf("  %-20s %5.1f  %s\n", c.Name, c.Confidence, c.Reasoning)
			}
		}
		if len(cl.SuggestedTags) > 0 {
			fmt.Printf("Tags: %s\n", strings.Join(cl.SuggestedTags, ", "))
		}
		for _, s := range cl.Suggestions {
			fmt.Printf("  - %s\n", s)
		}
		return nil
	},
}

var prioritizeCmd = &cobra.Command{
	Use:   "prioritize",
	Short: "Rank pending queue items by final priority",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.GetQueuedItems(database.StatusPending)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No pending items. Add some with: postplanner collect")
			return nil
		}

		ctx, cancel := signalContext()
		defer cancel()
		ranked, err := classify.New(cfg.Catalog(), classify.WithLogger(logger)).Prioritize(ctx, items)
		if err != nil {
			return err
		}
		for i, p := range ranked {
			fmt.Printf("%3d. [%5.1f] %-9s %s\n", i+1, p.FinalPriority, p.Item.Platform, p.Item.Title)
			fmt.Printf("      %s\n", p.Reasoning)
		}
		return nil
	},
}

// --- schedule / reschedule / cancel ---

var (
	scheduleItem itemFlags
	scheduleReq  requestSpec
	scheduleFile string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Schedule content from flags or a YAML request file",
	Example: `  postplanner schedule -t "Q3 launch recap" -p linkedin --priority high
  postplanner schedule -f requests.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		loc := a.ctl.Location()

		if scheduleFile != "" {
			reqs, err := loadRequestFile(scheduleFile, loc)
			if err != nil {
				return err
			}
			results, failures := a.ctl.ScheduleMultipleContent(reqs)
			for _, r := range results {
				printResult(r, loc)
			}
			for _, err := range failures {
				fmt.Printf("  Failed: %s\n", describe(err))
			}
			fmt.Printf("\nScheduled %d of %d items.\n", len(results), len(reqs))
			return nil
		}

		it, err := scheduleItem.item(loc)
		if err != nil {
			return err
		}
		spec := scheduleReq
		spec.Item = it
		req, err := spec.request(loc)
		if err != nil {
			return err
		}
		res, err := a.ctl.ScheduleContent(req)
		if err != nil {
			return errors.New(describe(err))
		}
		printResult(res, loc)
		return nil
	},
}

var rescheduleReq requestSpec

var rescheduleCmd = &cobra.Command{
	Use:   "reschedule [id]",
	Short: "Re-plan a scheduled item; the old slot stays if no new one is found",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		req, err := rescheduleReq.request(a.ctl.Location())
		if err != nil {
			return err
		}
		res, err := a.ctl.RescheduleContent(args[0], req)
		if err != nil {
			return errors.New(describe(err))
		}
		printResult(res, a.ctl.Location())
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Remove an item from the schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ctl.CancelContent(args[0]); err != nil {
			return errors.New(describe(err))
		}
		fmt.Printf("Cancelled %s\n", args[0])
		return nil
	},
}

func init() {
	classifyItem.register(classifyCmd)

	scheduleItem.register(scheduleCmd)
	registerRequestFlags(scheduleCmd, &scheduleReq)
	scheduleCmd.Flags().StringVarP(&scheduleFile, "file", "f", "", "YAML file with a list of requests")
	scheduleCmd.MarkFlagsMutuallyExclusive("file", "title")

	registerRequestFlags(rescheduleCmd, &rescheduleReq)
}

// --- list / conflicts / optimize / analytics ---

var (
	listPlatform string
	fromFlag     string
	toFlag       string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled content in publish order",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		loc := a.ctl.Location()

		f := scheduler.Filter{}
		if listPlatform != "" {
			if f.Platform, err = content.ParsePlatform(listPlatform); err != nil {
				return err
			}
		}
		tf, err := timeframe(loc)
		if err != nil {
			return err
		}
		if tf != nil {
			f.From, f.To = tf.Start, tf.End
		}

		results := a.ctl.GetScheduledContent(f)
		if len(results) == 0 {
			fmt.Println("Nothing scheduled.")
			return nil
		}
		for _, r := range results {
			flag := " "
			if len(r.Conflicts) > 0 {
				flag = "!"
			}
			fmt.Printf("%s %s  %-16s %-9s %5.1f  %s  [%s]\n", flag,
				r.ScheduledTime.In(loc).Format("Mon Jan 02 15:04"), ago(r.ScheduledTime),
				r.Item.Platform, r.Confidence, r.Item.Title, r.ID())
		}
		fmt.Printf("\n%d item(s)\n", len(results))
		return nil
	},
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Scan the schedule for overloaded hours and platform days",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tf, err := timeframe(a.ctl.Location())
		if err != nil {
			return err
		}
		conflicts := a.ctl.DetectConflicts(tf)
		if len(conflicts) == 0 {
			fmt.Println("No conflicts.")
			return nil
		}
		for _, c := range conflicts {
			printConflict(c, "")
		}
		return nil
	},
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Re-plan the whole schedule from scratch",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		rep, err := a.ctl.OptimizeSchedule()
		printOptimization(rep)
		return err
	},
}

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show schedule distributions and opportunities",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tf, err := timeframe(a.ctl.Location())
		if err != nil {
			return err
		}
		an := a.ctl.GetSchedulingAnalytics(tf)

		fmt.Printf("Scheduled: %d\n", an.TotalScheduled)
		fmt.Printf("Average confidence: %.1f\n", an.AverageConfidence)
		fmt.Printf("Items with conflicts: %.1f%%\n", an.ConflictRate)
		fmt.Printf("Schedule-wide conflicts: %d\n", an.DetectedConflicts)
		if len(an.PlatformDistribution) > 0 {
			fmt.Println("\nPlatforms:")
			for _, p := range content.Platforms {
				if n := an.PlatformDistribution[p]; n > 0 {
					fmt.Printf("  %-10s %d\n", p, n)
				}
			}
		}
		if len(an.HourDistribution) > 0 {
			fmt.Println("\nHours:")
			for h := 0; h < 24; h++ {
				if n := an.HourDistribution[h]; n > 0 {
					fmt.Printf("  %02d:00 %s\n", h, strings.Repeat("#", n))
				}
			}
		}
		if len(an.Opportunities) > 0 {
			fmt.Println("\nOpportunities:")
			for _, o := range an.Opportunities {
				fmt.Printf("  - %s\n", o)
			}
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&listPlatform, "platform", "p", "", "Only this platform")
	for _, cmd := range []*cobra.Command{listCmd, conflictsCmd, analyticsCmd} {
		cmd.Flags().StringVar(&fromFlag, "from", "", "Start of the period (any common date format)")
		cmd.Flags().StringVar(&toFlag, "to", "", "End of the period")
	}
}

func timeframe(loc *time.Location) (*scheduler.Timeframe, error) {
	if fromFlag == "" && toFlag == "" {
		return nil, nil
	}
	var tf scheduler.Timeframe
	var err error
	if fromFlag != "" {
		if tf.Start, err = dateparse.ParseIn(fromFlag, loc); err != nil {
			return nil, fmt.Errorf("parsing --from: %w", err)
		}
	}
	if toFlag != "" {
		if tf.End, err = dateparse.ParseIn(toFlag, loc); err != nil {
			return nil, fmt.Errorf("parsing --to: %w", err)
		}
	}
	return &tf, nil
}

// --- output helpers ---

func ago(t time.Time) string {
	return humanize.RelTime(t, time.Now(), "ago", "from now")
}

// describe turns scheduling errors into a user-facing line.
func describe(err error) string {
	var sf *scheduler.SchedulingFailedError
	id := ""
	if errors.As(err, &sf) {
		id = sf.ContentID
	}
	switch {
	case errors.Is(err, scheduler.ErrNoViableSlot):
		return fmt.Sprintf("%s: no free slot before its deadline; relax exclusions or extend the deadline", id)
	case errors.Is(err, scheduler.ErrNotFound):
		return fmt.Sprintf("%s is not scheduled", id)
	}
	return err.Error()
}

func printResult(r scheduler.Result, loc *time.Location) {
	fmt.Printf("%s  %s on %s at %s (%s), confidence %.1f\n", r.ID(), r.Item.Title, r.Item.Platform,
		r.ScheduledTime.In(loc).Format("Mon Jan 02 15:04 MST"), ago(r.ScheduledTime), r.Confidence)
	if r.Reasoning != "" {
		fmt.Printf("  %s\n", r.Reasoning)
	}
	for _, n := range r.OptimizationNotes {
		fmt.Printf("  - %s\n", n)
	}
	for _, c := range r.Conflicts {
		printConflict(c, "  ")
	}
}

func printConflict(c scheduler.Conflict, indent string) {
	fmt.Printf("%s! %s: %s [%s]\n", indent, c.Type, c.Description, strings.Join(c.ContentIDs, ", "))
	for _, s := range c.Suggestions {
		fmt.Printf("%s    > %s\n", indent, s)
	}
}

func printOptimization(rep scheduler.OptimizationReport) {
	fmt.Printf("Re-planned %d of %d items in %s\n", rep.Rescheduled, rep.Total, rep.Duration.Round(time.Millisecond))
	if len(rep.Restored) > 0 {
		fmt.Printf("Kept previous slot for: %s\n", strings.Join(rep.Restored, ", "))
	}
	fmt.Printf("Confidence: %.1f -> %.1f (%+.1f)\n", rep.ConfidenceBefore, rep.ConfidenceAfter, rep.ConfidenceDelta)
	fmt.Printf("Conflicts:  %d -> %d (%+d)\n", rep.ConflictsBefore, rep.ConflictsAfter, rep.ConflictDelta)
}
