// Package gcal is the Google Calendar destination. Events written by the
// sync jobs carry their cross-system keys in shared extended properties so
// that they can be listed and matched again on the next run.
package gcal
