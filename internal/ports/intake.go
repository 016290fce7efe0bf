package ports

// Intake is a front door that feeds emails into the triage pipeline
type Intake interface {
	// Name identifies the intake in logs
	Name() string

	// Start begins accepting traffic; it returns once the listener is running
	Start() error

	// Stop stops accepting traffic and releases the listener
	Stop() error
}
