package classify

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/TobiSchelling/postplanner/internal/content"
)

// Prioritized is an item with its classification and final priority.
type Prioritized struct {
	Item           content.Item   `json:"item"`
	Classification Classification `json:"classification"`
	FinalPriority  float64        `json:"final_priority"`
	Reasoning      string         `json:"reasoning"`
}

// FinalPriority weighs urgency against business priority.
func FinalPriority(cl Classification) float64 {
	return cl.UrgencyScore*0.4 + cl.PriorityScore*0.6
}

// PriorityBand describes how soon an item with the given final priority should go out.
func PriorityBand(p float64) string {
	switch {
	case p > 80:
		return "Critical priority - schedule immediately"
	case p > 60:
		return "High priority - schedule within 24 hours"
	case p > 40:
		return "Medium priority - schedule within 3 days"
	default:
		return "Low priority - flexible scheduling"
	}
}

// Prioritize classifies items concurrently and returns them by descending final
// priority. Items with equal priority keep their input order.
func (c *Classifier) Prioritize(ctx context.Context, items []content.Item) ([]Prioritized, error) {
	out := make([]Prioritized, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cl := c.Classify(item)
			p := FinalPriority(cl)
			out[i] = Prioritized{
				Item:           item,
				Classification: cl,
				FinalPriority:  p,
				Reasoning:      PriorityBand(p),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinalPriority > out[j].FinalPriority
	})
	return out, nil
}
