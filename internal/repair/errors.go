package repair

import "fmt"

// AttemptsExhaustedError is returned when the repair loop fails to produce
// a schema-valid document within the configured attempt budget.
type AttemptsExhaustedError struct {
	Schema   string
	Attempts int
	LastErr  error
}

func (e *AttemptsExhaustedError) Error() string {
	return fmt.Sprintf("failed to repair %s output after %d attempts: %v", e.Schema, e.Attempts, e.LastErr)
}

func (e *AttemptsExhaustedError) Unwrap() error {
	return e.LastErr
}

// RepairCallError is returned when the AI-assisted repair call itself fails
// (as opposed to producing output that still does not validate).
type RepairCallError struct {
	Attempt int
	Cause   error
}

func (e *RepairCallError) Error() string {
	return fmt.Sprintf("repair call failed at attempt %d: %v", e.Attempt, e.Cause)
}

func (e *RepairCallError) Unwrap() error {
	return e.Cause
}
