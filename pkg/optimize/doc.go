// Package optimize implements the iterative search for a better treatment
// factor configuration: a strictly sequential control loop that executes a
// sample batch per candidate value, judges and aggregates the batch, scores
// the aggregate, and consults pluggable termination and mutation strategies
// between iterations. The append-only history feeds those strategies as a
// read-only snapshot and answers "best so far" under the run's objective.
package optimize
