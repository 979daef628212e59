// Package tunelab is a Go toolkit for empirically evaluating LLM use cases
// and optimizing a single configuration factor through iterative search.
//
// TuneLab treats an LLM use case like a function under test: a contract of
// postconditions judges every sampled response, batches of samples fold into
// aggregate statistics, and an orchestrator hill-climbs one treatment factor
// (temperature, model, token budget) while all other factors stay fixed.
//
// Key Components:
//
//   - Contract: postconditions, derivations with nested checks, preconditions
//     and an optional response-duration ceiling. Evaluating a sample yields an
//     ordered list of PASSED/FAILED/SKIPPED verdicts; a sample succeeds only
//     when every verdict passed.
//
//   - Stats: immutable aggregate statistics per iteration (success rate,
//     token totals, mean latency) plus Wald confidence intervals and a derived
//     minimum acceptable rate.
//
//   - Factors: immutable factor suits representing one configuration; the
//     treatment factor is rebound copy-on-write each iteration.
//
//   - Optimize: the run configuration, scorers (success rate, cost
//     efficiency, weighted combinations), factor mutators (candidate list,
//     numeric step), termination policies (max iterations, no improvement,
//     time budget, OR-composition) and the sequential orchestrator that ties
//     them together into an append-only run history.
//
//   - Executors: a bounded-concurrency batch executor over a per-sample
//     function, and an executor backed by the Anthropic Messages API.
//
//   - Store and Report: SQLite archival of finished runs and YAML run
//     reports.
//
// Simple Example:
//
//	import (
//	    "context"
//	    "log"
//
//	    "github.com/XiaoConstantine/tunelab/pkg/optimize"
//	    "github.com/XiaoConstantine/tunelab/pkg/executors"
//	)
//
//	func main() {
//	    policy, _ := optimize.NewMaxIterationsPolicy(10)
//	    mutator, _ := optimize.NewCandidateListMutator(0.2, 0.4, 0.7)
//
//	    cfg, err := optimize.NewConfigBuilder().
//	        WithUseCaseID("summarize-ticket").
//	        WithTreatmentFactor("temperature", optimize.FactorTypeFloat, 0.2).
//	        WithScorer(optimize.SuccessRateScorer{}).
//	        WithMutator(mutator).
//	        WithTermination(policy).
//	        WithSamplesPerIteration(20).
//	        Build()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    executor, err := executors.NewLLMExecutor("", myContract, myPrompt)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    orch, _ := optimize.NewOrchestrator(cfg, executor)
//	    history, err := orch.Run(context.Background())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    if value, ok := history.BestFactorValue(); ok {
//	        log.Printf("best temperature: %v", value)
//	    }
//	}
//
// For archived runs and reports see pkg/store and pkg/report, or use the
// tunelab-cli command under cmd/tunelab-cli.
package tunelab
