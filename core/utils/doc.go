// Package utils provides common utility functions for the calendar-sync application.
// It includes helpers for loose type conversion of decoded JSON values and a
// Clock abstraction so time-dependent logic can be tested with a fixed time.
package utils
