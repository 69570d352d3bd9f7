// Package stats provides named size histograms and their summaries for
// CILKSAN_STATS. The engine creates a Registry but records nothing into
// it, and no histogram is printed at exit.
//
// Grounded on the teacher's own use of github.com/aclements/go-moremath for
// statistical summaries (the same package family buildstats/benchplot lean
// on for run-to-run comparisons) rather than hand-rolling mean/stddev/
// percentile code.
package stats

import "github.com/aclements/go-moremath/stats"

// Histogram accumulates one named size distribution.
type Histogram struct {
	Name   string
	values []float64
}

// NewHistogram creates an empty, named histogram.
func NewHistogram(name string) *Histogram {
	return &Histogram{Name: name}
}

// Add records one observed size.
func (h *Histogram) Add(v float64) {
	h.values = append(h.values, v)
}

// Sample returns the go-moremath Sample view over the values collected so
// far, for callers that want richer statistics than Summary provides.
func (h *Histogram) Sample() stats.Sample {
	return stats.Sample{Xs: h.values}
}

// Summary is the small set of numbers CILKSAN_STATS prints per histogram.
type Summary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Summarize computes Summary over the values recorded so far. It returns
// the zero Summary if nothing has been recorded.
func (h *Histogram) Summarize() Summary {
	if len(h.values) == 0 {
		return Summary{}
	}
	s := h.Sample()
	lo, hi := s.Bounds()
	return Summary{
		Count:  len(h.values),
		Mean:   s.Mean(),
		StdDev: s.StdDev(),
		Min:    lo,
		Max:    hi,
	}
}

// Registry collects every histogram the engine maintains during one run.
type Registry struct {
	histograms map[string]*Histogram
	order      []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{histograms: make(map[string]*Histogram)}
}

// Get returns (creating if necessary) the named histogram.
func (r *Registry) Get(name string) *Histogram {
	h, ok := r.histograms[name]
	if !ok {
		h = NewHistogram(name)
		r.histograms[name] = h
		r.order = append(r.order, name)
	}
	return h
}

// All returns every histogram in first-registered order.
func (r *Registry) All() []*Histogram {
	out := make([]*Histogram, len(r.order))
	for i, name := range r.order {
		out[i] = r.histograms[name]
	}
	return out
}
