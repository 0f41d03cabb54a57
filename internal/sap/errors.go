package sap

import (
	"errors"
	"fmt"
)

// ErrTransport marks failures to reach the SAP integration API at all.
var ErrTransport = errors.New("sap: integration api unreachable")

// TransportError is returned when the first page of a fetch cannot be read
// because of a timeout, refused connection or DNS failure.
type TransportError struct {
	Endpoint Endpoint
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("sap: %s unreachable: %v (check the SAP integration tunnel/VPN)", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// StatusError is returned when the first page answers with a non-2xx status.
type StatusError struct {
	Endpoint Endpoint
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sap: %s returned status %d", e.Endpoint, e.Code)
	}
	return fmt.Sprintf("sap: %s returned status %d: %s", e.Endpoint, e.Code, e.Body)
}
