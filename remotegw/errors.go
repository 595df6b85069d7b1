// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package remotegw

import (
	"errors"
	"fmt"
)

// Permanent failures surfaced to the immediate caller.
var (
	// ErrNotFound reports a remote resource that does not exist (404).
	ErrNotFound = errors.New("remotegw: not found")
	// ErrConflict reports a duplicate remote resource (409).
	ErrConflict = errors.New("remotegw: conflict")
)

// TransientError wraps timeouts, connection failures and 5xx
// responses. The gateway never retries; the orchestrator picks these
// up again on the next scheduled cycle.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("remotegw: transient failure in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a transient network failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// DecodeError reports a structurally malformed response payload.
// Field-level numeric anomalies never produce this (they degrade to
// absent values); only an undecodable body does.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("remotegw: failed to decode %s response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StatusError reports a permanent non-2xx response that maps to no
// more specific failure.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remotegw: %s returned status %d: %s", e.Op, e.Status, e.Body)
}
