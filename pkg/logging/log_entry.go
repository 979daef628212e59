package logging

// LogEntry represents a structured log record with fields particularly
// relevant to evaluation and optimization runs.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Run-specific fields
	RunID     string // The optimization run this entry belongs to
	UseCaseID string // The use case under test
	Iteration int    // Current iteration number, -1 when outside a run

	// General structured data
	Fields map[string]interface{}
}
