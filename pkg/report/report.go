// Package report renders finished optimization runs as YAML summaries for
// humans and downstream tooling.
package report

import (
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/XiaoConstantine/tunelab/pkg/errors"
	"github.com/XiaoConstantine/tunelab/pkg/optimize"
	"github.com/XiaoConstantine/tunelab/pkg/stats"
)

// Report is the YAML-serializable view of one optimization run.
type Report struct {
	RunID           string     `yaml:"run_id"`
	UseCaseID       string     `yaml:"use_case_id"`
	TreatmentFactor string     `yaml:"treatment_factor"`
	Objective       string     `yaml:"objective"`
	StartTime       time.Time  `yaml:"start_time"`
	EndTime         time.Time  `yaml:"end_time"`
	ElapsedSeconds  float64    `yaml:"elapsed_seconds"`
	TotalTokens     int64      `yaml:"total_tokens"`
	Termination     *Reason    `yaml:"termination,omitempty"`
	Best            *BestEntry `yaml:"best,omitempty"`
	Iterations      []Row      `yaml:"iterations"`
}

// Reason mirrors the run's termination reason.
type Reason struct {
	Cause       string `yaml:"cause"`
	Description string `yaml:"description"`
}

// BestEntry identifies the winning iteration and its treatment value.
type BestEntry struct {
	Iteration      int         `yaml:"iteration"`
	Score          float64     `yaml:"score"`
	TreatmentValue interface{} `yaml:"treatment_value"`
}

// Row is one iteration in the report. Confidence fields are present only for
// iterations that produced samples.
type Row struct {
	Iteration      int         `yaml:"iteration"`
	Status         string      `yaml:"status"`
	TreatmentValue interface{} `yaml:"treatment_value"`
	Score          float64     `yaml:"score"`
	FailureReason  string      `yaml:"failure_reason,omitempty"`

	SampleCount   int     `yaml:"sample_count"`
	SuccessRate   float64 `yaml:"success_rate"`
	TotalTokens   int64   `yaml:"total_tokens"`
	MeanLatencyMs float64 `yaml:"mean_latency_ms"`

	ConfidenceLower       *float64 `yaml:"confidence_lower,omitempty"`
	ConfidenceUpper       *float64 `yaml:"confidence_upper,omitempty"`
	MinimumAcceptableRate *float64 `yaml:"minimum_acceptable_rate,omitempty"`
}

// FromHistory builds a report from a finalized run.
func FromHistory(h *optimize.History) (*Report, error) {
	if h == nil {
		return nil, errors.New(errors.InvalidInput, "history is required")
	}

	r := &Report{
		RunID:           h.RunID(),
		UseCaseID:       h.UseCaseID(),
		TreatmentFactor: h.TreatmentFactor(),
		Objective:       h.Objective().String(),
		StartTime:       h.StartTime(),
		EndTime:         h.EndTime(),
		ElapsedSeconds:  h.Elapsed().Seconds(),
		TotalTokens:     h.TotalTokens(),
	}

	if reason := h.TerminationReason(); reason != nil {
		r.Termination = &Reason{
			Cause:       reason.Cause.String(),
			Description: reason.Description,
		}
	}

	if best, ok := h.BestIteration(); ok {
		r.Best = &BestEntry{
			Iteration:      best.Aggregate.Iteration,
			Score:          best.Score,
			TreatmentValue: best.Aggregate.TreatmentValue(),
		}
	}

	for _, rec := range h.Records() {
		row := Row{
			Iteration:      rec.Aggregate.Iteration,
			Status:         rec.Status.String(),
			TreatmentValue: rec.Aggregate.TreatmentValue(),
			Score:          rec.Score,
			FailureReason:  rec.FailureReason,
			SampleCount:    rec.Aggregate.Stats.SampleCount,
			SuccessRate:    rec.Aggregate.Stats.SuccessRate,
			TotalTokens:    rec.Aggregate.Stats.TotalTokens,
			MeanLatencyMs:  rec.Aggregate.Stats.MeanLatencyMs,
		}

		if n := rec.Aggregate.Stats.SampleCount; n > 0 {
			ci, err := stats.ConfidenceInterval(rec.Aggregate.Stats.SuccessRate, n)
			if err != nil {
				return nil, err
			}
			minRate, err := stats.MinimumAcceptableRate(rec.Aggregate.Stats.SuccessRate, n)
			if err != nil {
				return nil, err
			}
			row.ConfidenceLower = &ci.Lower
			row.ConfidenceUpper = &ci.Upper
			row.MinimumAcceptableRate = &minRate
		}

		r.Iterations = append(r.Iterations, row)
	}
	return r, nil
}

// Write encodes the report as YAML.
func (r *Report) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to encode report")
	}
	return enc.Close()
}

// Save writes the report to a file, creating or truncating it.
func (r *Report) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to create report file"),
			errors.Fields{"path": path},
		)
	}
	defer f.Close()

	if err := r.Write(f); err != nil {
		return err
	}
	return f.Sync()
}
