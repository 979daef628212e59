package optimize

import (
	"context"
	"time"

	"github.com/XiaoConstantine/tunelab/pkg/errors"
	"github.com/XiaoConstantine/tunelab/pkg/logging"
	"github.com/XiaoConstantine/tunelab/pkg/stats"
)

// Orchestrator drives the optimization state machine: execute a sample batch,
// aggregate, score, record, consult the termination policy, mutate, repeat.
// The loop is strictly sequential; iteration i+1 cannot begin before
// iteration i's mutation completes, because both the mutator and the policy
// consume the history accumulated so far.
type Orchestrator struct {
	cfg      Config
	executor Executor
	logger   *logging.Logger
	now      func() time.Time
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger overrides the global logger.
func WithLogger(logger *logging.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		o.now = now
	}
}

// NewOrchestrator pairs a validated config with the injected sample executor.
func NewOrchestrator(cfg Config, executor Executor, opts ...OrchestratorOption) (*Orchestrator, error) {
	if executor == nil {
		return nil, errors.New(errors.InvalidInput, "executor is required")
	}
	o := &Orchestrator{
		cfg:      cfg,
		executor: executor,
		logger:   logging.GetLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run executes the optimization loop until the termination policy fires or a
// fatal failure occurs. The returned history is always non-nil and finalized
// with a termination reason; a non-nil error accompanies fatal failures while
// policy-driven stops are normal completions. Already-recorded iterations are
// never rolled back.
func (o *Orchestrator) Run(ctx context.Context) (*History, error) {
	ctx = logging.WithRunID(ctx, o.cfg.ExperimentID)
	ctx = logging.WithUseCaseID(ctx, o.cfg.UseCaseID)

	acc := newHistoryAccumulator(
		o.cfg.ExperimentID,
		o.cfg.UseCaseID,
		o.cfg.TreatmentFactor,
		o.cfg.Objective,
		o.now(),
	)

	o.logger.Info(ctx, "starting optimization of %q over factor %q (%s, %d samples/iteration, policy: %s)",
		o.cfg.UseCaseID, o.cfg.TreatmentFactor, o.cfg.Objective, o.cfg.SamplesPerIteration,
		o.cfg.Termination.Description())

	current := o.cfg.InitialValue

	for iteration := 0; ; iteration++ {
		ictx := logging.WithIteration(ctx, iteration)

		// Cancellation is cooperative: checked between iterations only.
		if err := errors.CheckContext(ctx, "optimization run"); err != nil {
			return o.failRun(ictx, acc, iteration, current, IterationExecutionFailed,
				CauseExecutionFailure, err)
		}

		suit := o.cfg.FixedFactors.With(o.cfg.TreatmentFactor, current)

		start := o.now()
		outcomes, err := o.executor.Execute(ictx, suit, o.cfg.SamplesPerIteration)
		end := o.now()
		if err != nil {
			return o.failRun(ictx, acc, iteration, current, IterationExecutionFailed,
				CauseExecutionFailure, errors.Wrap(err, errors.ExecutionFailed, "sample batch failed"))
		}

		batch, err := aggregateOutcomes(outcomes)
		if err != nil {
			return o.failRun(ictx, acc, iteration, current, IterationExecutionFailed,
				CauseExecutionFailure, err)
		}

		agg, err := NewIterationAggregate(iteration, suit, o.cfg.TreatmentFactor, batch, start, end)
		if err != nil {
			return o.failRun(ictx, acc, iteration, current, IterationExecutionFailed,
				CauseExecutionFailure, err)
		}

		score, err := o.cfg.Scorer.Score(agg)
		if err != nil {
			return o.failRun(ictx, acc, iteration, current, IterationScoringFailed,
				CauseScoringFailure, errors.Wrap(err, errors.ScoringFailed, "aggregate could not be scored"))
		}

		rec := NewSuccessRecord(agg, score)
		acc.append(rec)
		o.logger.IterationResult(ictx, iteration, score, batch.SuccessRate, batch.TotalTokens)

		if o.cfg.Observer != nil {
			o.cfg.Observer(rec)
		}

		snapshot := acc.snapshot(o.now())
		if reason := o.cfg.Termination.ShouldTerminate(snapshot); reason != nil {
			o.logger.Info(ictx, "terminating: %s", reason.Description)
			return acc.finalize(*reason, o.now()), nil
		}

		next, err := o.cfg.Mutator.Mutate(current, snapshot)
		if err != nil {
			wrapped := errors.Wrap(err, errors.MutationFailed, "no next candidate")
			o.logger.Warn(ictx, "mutation failed after %d iterations: %v", acc.count(), err)
			return acc.finalize(TerminationReason{
				Cause:       CauseMutationFailure,
				Description: wrapped.Error(),
			}, o.now()), wrapped
		}
		current = next
	}
}

// failRun records a failed iteration and finalizes the history with the
// matching cause. Statistics and scoring are skipped for the failed
// iteration; prior records remain intact.
func (o *Orchestrator) failRun(ctx context.Context, acc *historyAccumulator, iteration int,
	current interface{}, status IterationStatus, cause TerminationCause, err error) (*History, error) {

	o.logger.Error(ctx, "iteration %d failed: %v", iteration, err)

	suit := o.cfg.FixedFactors.With(o.cfg.TreatmentFactor, current)
	now := o.now()
	agg, aggErr := NewIterationAggregate(iteration, suit, o.cfg.TreatmentFactor,
		stats.AggregateStatistics{}, now, now)
	if aggErr == nil {
		if rec, recErr := NewFailureRecord(agg, status, err.Error()); recErr == nil {
			acc.append(rec)
		}
	}

	return acc.finalize(TerminationReason{
		Cause:       cause,
		Description: err.Error(),
	}, o.now()), err
}

// aggregateOutcomes folds a sample batch into statistics. Success of each
// sample is judged solely by its contract verdicts.
func aggregateOutcomes(outcomes []SampleOutcome) (stats.AggregateStatistics, error) {
	var (
		successes   int
		totalTokens int64
		latencySum  float64
	)
	for _, outcome := range outcomes {
		if outcome.Passed() {
			successes++
		}
		totalTokens += outcome.Tokens
		latencySum += outcome.LatencyMs
	}

	meanLatency := 0.0
	if len(outcomes) > 0 {
		meanLatency = latencySum / float64(len(outcomes))
	}

	return stats.FromCounts(len(outcomes), successes, totalTokens, meanLatency)
}
