package cleanarch

import (
	"time"

	"cleanarch/internal/arch"
	"cleanarch/internal/codebase"
)

// Report is the outcome of one check run.
type Report struct {
	RunID      string         `json:"run_id"`
	Module     string         `json:"module"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Codebase   codebase.Stats `json:"codebase"`
	Results    []arch.Result  `json:"results"`
	Skipped    []string       `json:"skipped,omitempty"`
	// Stopped is set when fail-fast ended the run early.
	Stopped bool   `json:"stopped,omitempty"`
	Totals  Totals `json:"totals"`
}

// Totals summarizes a report.
type Totals struct {
	Rules      int `json:"rules"`
	Passed     int `json:"passed"`
	Failed     int `json:"failed"`
	Warnings   int `json:"warnings"`
	Violations int `json:"violations"`
}

func computeTotals(results []arch.Result) Totals {
	t := Totals{Rules: len(results)}
	for _, r := range results {
		t.Violations += len(r.Violations)
		switch {
		case r.Blocking():
			t.Failed++
		case r.Failed():
			t.Warnings++
		default:
			t.Passed++
		}
	}
	return t
}

// Failed reports whether any blocking rule failed.
func (r *Report) Failed() bool {
	for _, res := range r.Results {
		if res.Blocking() {
			return true
		}
	}
	return false
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Result returns the result of the named rule.
func (r *Report) Result(rule string) (arch.Result, bool) {
	for _, res := range r.Results {
		if res.Rule == rule {
			return res, true
		}
	}
	return arch.Result{}, false
}
