package authority

import "fmt"

// NetworkError wraps a timeout or connection failure while talking to
// the authority. Callers retry only on the next natural schedule tick.
type NetworkError struct {
	OID string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("authority request for %s: %v", e.OID, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError marks a malformed or incomplete authority response.
// The current pipeline run aborts: nothing is persisted, nothing is sent.
type ValidationError struct {
	OID    string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid authority response for %s: %s", e.OID, e.Reason)
}
