// Package ical fetches iCalendar feeds and parses their VEVENTs into feed
// events. Recurring roots keep their RRULE; overridden occurrences are
// identified by RECURRENCE-ID.
package ical
