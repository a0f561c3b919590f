// Package timeutil parses the ISO 8601 timestamp forms that appear in
// SigV4 signing and provides the compact formats the signer emits.
package timeutil

import (
	"time"

	"github.com/palantir/stacktrace"
)

// ISO8601CompactFormat is the long timestamp format used in x-amz-date
// headers, X-Amz-Date query parameters, and the string to sign.
const ISO8601CompactFormat = "20060102T150405Z"

// ShortDateFormat is the date-only format used in credential scopes and
// signing-key derivation.
const ShortDateFormat = "20060102"

// The accepted input layouts, most specific first. Both the compact and
// extended forms are tolerated in either the date or the time part, and
// offsets (including fractional seconds) are normalized away by the
// caller-facing conversion to UTC.
var iso8601Layouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T150405.999999999Z07:00",
	"2006-01-02T150405Z07:00",
	"20060102T15:04:05Z07:00",
	"20060102T150405.999999999Z07:00",
	"20060102T150405Z07:00",
	"2006-01-02",
	"20060102",
}

// ParseISO8601Timestamp parses an ISO 8601 timestamp in any of the
// accepted layouts and returns it normalized to UTC. Date-only inputs
// parse as midnight UTC. An error is returned if no layout matches.
func ParseISO8601Timestamp(s string) (time.Time, error) {
	for _, layout := range iso8601Layouts {
		if result, err := time.Parse(layout, s); err == nil {
			return result.UTC(), nil
		}
	}

	return time.Time{}, stacktrace.NewError(
		"Unable to parse timestamp: %#v is not a recognized ISO 8601 form", s)
}
