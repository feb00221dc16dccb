package scoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateSkipsRulesThatDoNotFire(t *testing.T) {
	rules := []Rule[int]{
		{Name: "even", Rationale: "even number", Points: func(n int) float64 {
			if n%2 == 0 {
				return 10
			}
			return 0
		}},
		{Name: "big", Rationale: "big number", Points: func(n int) float64 {
			if n > 100 {
				return 5
			}
			return 0
		}},
		{Name: "scaled", Points: func(n int) float64 { return float64(n) / 10 },
			Describe: func(n int, pts float64) string { return fmt.Sprintf("%d scaled to %.1f", n, pts) }},
	}

	r := Evaluate(rules, 4)
	assert.InDelta(t, 10.4, r.Total, 1e-9)
	assert.Equal(t, []string{"even number", "4 scaled to 0.4"}, r.Rationales())
	assert.Equal(t, 10.0, r.Points("even"))
	assert.Equal(t, 0.0, r.Points("big"))
}

func TestEvaluateEmptyTable(t *testing.T) {
	r := Evaluate[string](nil, "x")
	assert.Zero(t, r.Total)
	assert.Empty(t, r.Hits)
	assert.Empty(t, r.Rationales())
}
