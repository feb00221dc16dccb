// Package scoring evaluates declarative point tables. Each rule maps an input to
// a number of points and carries the rationale shown to users when it fires.
package scoring

// Rule awards Points for an input. Zero or negative points mean the rule did not fire.
type Rule[T any] struct {
	Name      string
	Rationale string
	Points    func(T) float64
	// Describe optionally renders a rationale from the input and awarded points.
	Describe func(in T, points float64) string
}

// Hit records a rule that fired.
type Hit struct {
	Rule      string  `json:"rule"`
	Points    float64 `json:"points"`
	Rationale string  `json:"rationale"`
}

// Result is the outcome of evaluating a rule table.
type Result struct {
	Total float64
	Hits  []Hit
}

// Evaluate applies every rule in order. It never short-circuits.
func Evaluate[T any](rules []Rule[T], in T) Result {
	var r Result
	for _, rule := range rules {
		if rule.Points == nil {
			continue
		}
		pts := rule.Points(in)
		if pts <= 0 {
			continue
		}
		why := rule.Rationale
		if rule.Describe != nil {
			why = rule.Describe(in, pts)
		}
		r.Total += pts
		r.Hits = append(r.Hits, Hit{Rule: rule.Name, Points: pts, Rationale: why})
	}
	return r
}

// Rationales returns the rationale of each hit in evaluation order.
func (r Result) Rationales() []string {
	out := make([]string, 0, len(r.Hits))
	for _, h := range r.Hits {
		out = append(out, h.Rationale)
	}
	return out
}

// Points returns the points awarded by the named rule, or zero.
func (r Result) Points(name string) float64 {
	for _, h := range r.Hits {
		if h.Rule == name {
			return h.Points
		}
	}
	return 0
}
