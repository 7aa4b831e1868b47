package database

import "fmt"

// QueryError reports a remote execution failure. The message is the remote
// error text, preserved verbatim.
type QueryError struct {
	StatementID string
	Message     string
}

func (e *QueryError) Error() string {
	if e.StatementID != "" {
		return fmt.Sprintf("query failed (statement %s): %s", e.StatementID, e.Message)
	}
	return fmt.Sprintf("query failed: %s", e.Message)
}

// TimeoutError reports a statement that did not reach a terminal state
// within the configured maximum wait. A best-effort cancel has been issued.
type TimeoutError struct {
	StatementID string
	Timeout     string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("query timed out after %s (statement %s)", e.Timeout, e.StatementID)
}

// ConnectionError reports a transport-level failure that persisted after a
// single forced reconnect.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthError reports a credential refresh failure. Not retried, so a broken
// identity service is not hammered once per request.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("credential refresh failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// EscapeError reports an identifier that cannot be safely quoted.
type EscapeError struct {
	Name   string
	Reason string
}

func (e *EscapeError) Error() string {
	return fmt.Sprintf("cannot escape identifier %q: %s", e.Name, e.Reason)
}

// ConversionError reports a row whose value count does not match the result
// schema. Individual value conversion never fails (string fallback).
type ConversionError struct {
	Columns int
	Values  int
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("row has %d values for %d columns", e.Values, e.Columns)
}
