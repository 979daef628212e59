package errors

import (
	"context"
)

// CheckContext returns an error if the context is canceled or timed out.
// This provides a standardized way to check and wrap context errors.
func CheckContext(ctx context.Context, operation string) error {
	if err := ctx.Err(); err != nil {
		if err == context.DeadlineExceeded {
			return Wrap(err, Timeout, operation+" timed out")
		}
		return Wrap(err, Canceled, operation+" canceled")
	}
	return nil
}

// InvariantViolation builds an InvalidInput error for a constructor whose
// arguments break a data-record invariant. The offending values are attached
// as structured fields.
func InvariantViolation(record, message string, fields Fields) error {
	return WithFields(
		Newf(InvalidInput, "%s: %s", record, message),
		fields,
	)
}
