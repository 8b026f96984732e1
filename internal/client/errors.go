// Error taxonomy for submission operations. The run-loop acts on the
// category, never on raw transport errors or status codes.
package client

import "fmt"

// TransientError covers failures worth retrying within the cycle:
// connection refused, timeout, or a 5xx response. Status is 0 when the
// failure happened below HTTP.
type TransientError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: server returned %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError covers 4xx responses other than 401. These indicate a
// configuration or data problem and are never retried.
type PermanentError struct {
	Op     string
	Status int
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("%s: rejected with %d", e.Op, e.Status)
}

// AuthExpiredError is returned when a request still gets 401 after the
// session was invalidated and re-acquired once.
type AuthExpiredError struct {
	Op string
}

func (e *AuthExpiredError) Error() string {
	return fmt.Sprintf("%s: authorization rejected after re-authentication", e.Op)
}
