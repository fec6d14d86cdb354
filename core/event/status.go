package event

import "strings"

// Status is the confirmation state of a feed event.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusTentative Status = "tentative"
	StatusCancelled Status = "cancelled"
)

// ParseStatus maps a case-insensitive status value to a Status.
// An empty value means confirmed.
func ParseStatus(value string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(StatusConfirmed):
		return StatusConfirmed, nil
	case string(StatusTentative):
		return StatusTentative, nil
	case string(StatusCancelled):
		return StatusCancelled, nil
	default:
		return "", &ValidationError{Field: "status", Value: value, Reason: "unknown status"}
	}
}
