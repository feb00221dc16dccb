package planner

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/postplanner/internal/content"
)

func TestReadDataPointsCSV(t *testing.T) {
	data := `Timestamp, Platform, Engagement, Reach, Content_Type
2026-02-23 09:00, linkedin, 120, 900, video
2026-02-24T12:00:00Z, Twitter, 40.5, ,
`
	berlin := time.FixedZone("CET", 3600)

	points, err := ReadDataPointsCSV(strings.NewReader(data), berlin)
	require.NoError(t, err)
	require.Len(t, points, 2)

	assert.Equal(t, time.Date(2026, 2, 23, 8, 0, 0, 0, time.UTC), points[0].Timestamp)
	assert.Equal(t, content.PlatformLinkedIn, points[0].Platform)
	assert.Equal(t, content.TypeVideo, points[0].ContentType)
	assert.Equal(t, 120.0, points[0].Engagement)
	assert.Equal(t, 900.0, points[0].Reach)

	assert.Equal(t, time.Date(2026, 2, 24, 12, 0, 0, 0, time.UTC), points[1].Timestamp)
	assert.Equal(t, content.PlatformTwitter, points[1].Platform)
	assert.Equal(t, 40.5, points[1].Engagement)
	assert.Zero(t, points[1].Reach)
}

func TestReadDataPointsCSVErrors(t *testing.T) {
	tests := map[string]string{
		"missing column": "timestamp,platform\n2026-02-23,blog\n",
		"bad platform":   "timestamp,platform,engagement\n2026-02-23,myspace,1\n",
		"bad number":     "timestamp,platform,engagement\n2026-02-23,blog,lots\n",
		"bad timestamp":  "timestamp,platform,engagement\nyesterday-ish,blog,1\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadDataPointsCSV(strings.NewReader(data), time.UTC)
			assert.Error(t, err)
		})
	}

	points, err := ReadDataPointsCSV(strings.NewReader(""), time.UTC)
	require.NoError(t, err)
	assert.Empty(t, points)
}
