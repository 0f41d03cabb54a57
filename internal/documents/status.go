package documents

import "strings"

// Status is the lifecycle state of a mirrored document.
type Status string

const (
	// StatusOpen marks a document SAP still reports as open.
	StatusOpen Status = "O"
	// StatusClosed marks a document closed in SAP or dropped from the open set.
	StatusClosed Status = "C"
)

// SAP document status literals.
const (
	SAPStatusOpen      = "bost_Open"
	SAPStatusClose     = "bost_Close"
	SAPStatusPaid      = "bost_Paid"
	SAPStatusDelivered = "bost_Delivered"
)

// ParseSAPStatus maps an SAP DocumentStatus to a Status. The boolean is false
// when the literal is not recognised; the document is then treated as closed.
func ParseSAPStatus(raw string) (Status, bool) {
	switch strings.TrimSpace(raw) {
	case SAPStatusOpen:
		return StatusOpen, true
	case SAPStatusClose, SAPStatusPaid, SAPStatusDelivered:
		return StatusClosed, true
	default:
		return StatusClosed, false
	}
}

// IsOpen reports whether the status is open.
func (s Status) IsOpen() bool {
	return s == StatusOpen
}

// Close returns the closed status. Closing is the only transition applied
// outside of mapping and it is idempotent.
func (s Status) Close() Status {
	return StatusClosed
}

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	return s == StatusOpen || s == StatusClosed
}
