package optimize

import (
	"time"
)

// History is an append-only ledger of iteration records, exposed to scorers,
// mutators, and termination policies as a read-only snapshot. Only the
// orchestrator's accumulator grows; every snapshot it hands out is detached.
type History struct {
	runID           string
	useCaseID       string
	treatmentFactor string
	objective       Objective
	records         []IterationRecord
	startTime       time.Time
	endTime         time.Time
	reason          *TerminationReason
}

// RestoreHistory rebuilds a history from persisted state. Used by storage and
// reporting layers; the optimization loop itself never calls this.
func RestoreHistory(runID, useCaseID, treatmentFactor string, objective Objective,
	records []IterationRecord, start, end time.Time, reason *TerminationReason) *History {
	return &History{
		runID:           runID,
		useCaseID:       useCaseID,
		treatmentFactor: treatmentFactor,
		objective:       objective,
		records:         append([]IterationRecord(nil), records...),
		startTime:       start,
		endTime:         end,
		reason:          copyReason(reason),
	}
}

func (h *History) RunID() string           { return h.runID }
func (h *History) UseCaseID() string       { return h.useCaseID }
func (h *History) TreatmentFactor() string { return h.treatmentFactor }
func (h *History) Objective() Objective    { return h.objective }
func (h *History) StartTime() time.Time    { return h.startTime }
func (h *History) EndTime() time.Time      { return h.endTime }

// IterationCount returns the number of recorded iterations.
func (h *History) IterationCount() int {
	return len(h.records)
}

// Records returns a copy of the ordered iteration records.
func (h *History) Records() []IterationRecord {
	return append([]IterationRecord(nil), h.records...)
}

// Record returns the record at the given iteration index.
func (h *History) Record(i int) (IterationRecord, bool) {
	if i < 0 || i >= len(h.records) {
		return IterationRecord{}, false
	}
	return h.records[i], true
}

// TerminationReason returns why the run stopped, nil while still running.
func (h *History) TerminationReason() *TerminationReason {
	return copyReason(h.reason)
}

// Elapsed returns the total wall time covered by this history.
func (h *History) Elapsed() time.Duration {
	return h.endTime.Sub(h.startTime)
}

// TotalTokens sums token usage across all recorded iterations.
func (h *History) TotalTokens() int64 {
	var total int64
	for _, rec := range h.records {
		total += rec.Aggregate.Stats.TotalTokens
	}
	return total
}

// BestIterationIndex returns the index of the best SUCCESS record under the
// run's objective, -1 when no iteration succeeded. Only a strictly better
// score replaces the incumbent, so the earliest iteration achieving the
// optimum wins. The selection is a derived view: re-running it over the same
// history always yields the same index.
func (h *History) BestIterationIndex() int {
	best := -1
	var bestScore float64
	for i, rec := range h.records {
		if rec.Status != IterationSuccess {
			continue
		}
		if best < 0 || h.objective.Better(rec.Score, bestScore) {
			best = i
			bestScore = rec.Score
		}
	}
	return best
}

// BestIteration returns the best SUCCESS record under the run's objective.
func (h *History) BestIteration() (IterationRecord, bool) {
	i := h.BestIterationIndex()
	if i < 0 {
		return IterationRecord{}, false
	}
	return h.records[i], true
}

// BestScore returns the best iteration's score.
func (h *History) BestScore() (float64, bool) {
	rec, ok := h.BestIteration()
	if !ok {
		return 0, false
	}
	return rec.Score, true
}

// BestFactorValue returns the treatment-factor value of the best iteration.
func (h *History) BestFactorValue() (interface{}, bool) {
	rec, ok := h.BestIteration()
	if !ok {
		return nil, false
	}
	return rec.Aggregate.TreatmentValue(), true
}

func copyReason(r *TerminationReason) *TerminationReason {
	if r == nil {
		return nil
	}
	copied := *r
	return &copied
}

// historyAccumulator is the mutable ledger owned solely by the orchestrator.
// It only appends; everything else sees immutable snapshots.
type historyAccumulator struct {
	runID           string
	useCaseID       string
	treatmentFactor string
	objective       Objective
	startTime       time.Time
	records         []IterationRecord
}

func newHistoryAccumulator(runID, useCaseID, treatmentFactor string, objective Objective, start time.Time) *historyAccumulator {
	return &historyAccumulator{
		runID:           runID,
		useCaseID:       useCaseID,
		treatmentFactor: treatmentFactor,
		objective:       objective,
		startTime:       start,
	}
}

func (a *historyAccumulator) append(rec IterationRecord) {
	a.records = append(a.records, rec)
}

func (a *historyAccumulator) count() int {
	return len(a.records)
}

// snapshot returns a detached mid-run view; the end time reflects elapsed
// time so far and no termination reason is set yet.
func (a *historyAccumulator) snapshot(now time.Time) *History {
	return &History{
		runID:           a.runID,
		useCaseID:       a.useCaseID,
		treatmentFactor: a.treatmentFactor,
		objective:       a.objective,
		records:         append([]IterationRecord(nil), a.records...),
		startTime:       a.startTime,
		endTime:         now,
	}
}

// finalize seals the run with its termination reason.
func (a *historyAccumulator) finalize(reason TerminationReason, end time.Time) *History {
	h := a.snapshot(end)
	h.reason = &reason
	return h
}
