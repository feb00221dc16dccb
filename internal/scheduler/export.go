package scheduler

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Format is an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates an export format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

var csvHeader = []string{"ID", "Title", "Platform", "Scheduled Time", "Confidence", "Category"}

// ExportSchedule writes the store in ascending scheduled time, as a JSON array
// of results or as CSV.
func (c *Controller) ExportSchedule(w io.Writer, format Format) error {
	results := c.GetScheduledContent(Filter{})

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("encoding schedule: %w", err)
		}
		return nil
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return fmt.Errorf("writing csv header: %w", err)
		}
		for _, r := range results {
			category := ""
			if top, ok := r.Classification.TopCategory(); ok {
				category = top.Name
			}
			row := []string{
				r.ID(),
				r.Item.Title,
				string(r.Item.Platform),
				r.ScheduledTime.Format(time.RFC3339),
				strconv.FormatFloat(r.Confidence, 'f', 1, 64),
				category,
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing csv row %s: %w", r.ID(), err)
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// ImportSchedule reads a JSON export and commits every result, replacing
// existing entries with the same ID. It returns the number imported.
func (c *Controller) ImportSchedule(r io.Reader) (int, error) {
	var results []Result
	if err := json.NewDecoder(r).Decode(&results); err != nil {
		return 0, fmt.Errorf("decoding schedule: %w", err)
	}
	for i, res := range results {
		if res.ID() == "" {
			return 0, fmt.Errorf("%w: result %d has no content id", ErrInvalidRequest, i)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, res := range results {
		if err := c.commitLocked(res); err != nil {
			return i, failed(res.ID(), err)
		}
	}
	c.log.Info().Int("imported", len(results)).Msg("schedule imported")
	return len(results), nil
}
