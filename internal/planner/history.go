package planner

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/TobiSchelling/postplanner/internal/content"
)

// ReadDataPointsCSV parses an engagement export. The header row names the
// columns; timestamp, platform and engagement are required, content_type,
// reach, clicks and conversions are optional. Timestamps may use any common
// layout and are read in loc when they carry no zone.
func ReadDataPointsCSV(r io.Reader, loc *time.Location) ([]DataPoint, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range []string{"timestamp", "platform", "engagement"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing %q column", name)
		}
	}

	var points []DataPoint
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return points, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		dp, err := parseRecord(rec, col, loc)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		points = append(points, dp)
	}
}

func parseRecord(rec []string, col map[string]int, loc *time.Location) (DataPoint, error) {
	field := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	number := func(name string) (float64, error) {
		s := field(name)
		if s == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}

	var (
		dp  DataPoint
		err error
	)
	ts, err := dateparse.ParseIn(field("timestamp"), loc)
	if err != nil {
		return dp, fmt.Errorf("timestamp: %w", err)
	}
	dp.Timestamp = ts.UTC()
	if dp.Platform, err = content.ParsePlatform(field("platform")); err != nil {
		return dp, err
	}
	if dp.ContentType, err = content.ParseContentType(field("content_type")); err != nil {
		return dp, err
	}
	if dp.Engagement, err = number("engagement"); err != nil {
		return dp, err
	}
	if dp.Reach, err = number("reach"); err != nil {
		return dp, err
	}
	if dp.Clicks, err = number("clicks"); err != nil {
		return dp, err
	}
	if dp.Conversions, err = number("conversions"); err != nil {
		return dp, err
	}
	return dp, nil
}
