// Package httime derives epoch timestamps from date fields extracted out of
// log lines.
//
// Two timestamps are computed per date. The naive one reads the wall-clock
// fields as local time on the machine running the parser and ignores any
// timezone the log carried. The UTC one is timezone-aware and is only
// populated when the parsed timezone actually is UTC; for any other zone it
// stays null rather than guessing.
package httime

import (
	"strings"
	"time"
)

const StrftimeChar = "%"

// Location is the zone used when a format carries no timezone information.
// Defaults to UTC unless overridden.
var Location *time.Location = time.UTC

// DefaultFormats are the layouts tried, in order, when deriving a timestamp
// without an explicit format hint. Covers the Common Log Format date, the
// Apache error-log header date, and a few generic fallbacks.
var DefaultFormats = []string{
	"02/Jan/2006:15:04:05 -0700",
	"Mon Jan 02 15:04:05.999999 2006",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	time.RFC3339Nano,
	time.RubyDate,
	time.UnixDate,
}

// reference: http://man7.org/linux/man-pages/man3/strftime.3.html
var convertMapping = map[string]string{
	"%a": "Mon",
	"%A": "Monday",
	"%b": "Jan",
	"%B": "January",
	"%C": "06",
	"%d": "02",
	"%D": "01/02/06",
	"%e": "_2",
	"%f": "999",
	"%F": "2006-01-02",
	"%h": "Jan",
	"%H": "15",
	"%I": "03",
	"%k": "15",
	"%l": "_3",
	"%L": "999",
	"%m": "01",
	"%M": "04",
	"%n": "\n",
	"%p": "PM",
	"%P": "pm",
	"%r": "03:04:05 PM",
	"%R": "15:04",
	"%S": "05",
	"%t": "\t",
	"%T": "15:04:05",
	"%y": "06",
	"%Y": "2006",
	"%z": "-0700",
	"%Z": "MST",
	"%+": "Mon Jan _2 15:04:05 MST 2006",
}

// Timestamp is the pair of epoch values derived from one date string.
// Either member is nil when it could not be computed.
type Timestamp struct {
	Naive interface{}
	UTC   interface{}
}

// Parse wraps time.ParseInLocation to use the package Location for formats
// that carry no zone of their own.
func Parse(format, timespec string) (time.Time, error) {
	return time.ParseInLocation(format, timespec, Location)
}

// ConvertTimeFormat translates a C-style strftime layout into a Go layout.
// Directives with no Go equivalent are dropped.
func ConvertTimeFormat(layout string) string {
	for format, conv := range convertMapping {
		layout = strings.Replace(layout, format, conv, -1)
	}
	return layout
}

// DeriveTimestamp parses date against the given layouts (DefaultFormats if
// none are supplied) and computes the naive and UTC epochs. An unparseable
// date yields a Timestamp with both members nil; it is never an error.
func DeriveTimestamp(date string, formats ...string) Timestamp {
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	// golang can't parse times with decimal fractional seconds marked by a
	// comma; replace commas with periods before trying.
	// https://github.com/golang/go/issues/6189
	date = strings.Replace(date, ",", ".", -1)

	for _, format := range formats {
		if strings.Contains(format, StrftimeChar) {
			format = ConvertTimeFormat(format)
		}
		t, err := Parse(format, date)
		if err != nil {
			continue
		}
		ts := Timestamp{Naive: naiveEpoch(t)}
		if hasZone(format) && isUTC(t) {
			ts.UTC = t.Unix()
		}
		return ts
	}
	return Timestamp{}
}

// naiveEpoch reads t's wall-clock fields as local time, discarding whatever
// zone the log line carried.
func naiveEpoch(t time.Time) int64 {
	return time.Date(t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local).Unix()
}

// hasZone reports whether the layout reads timezone information from the
// input, as opposed to defaulting to the package Location.
func hasZone(layout string) bool {
	return strings.Contains(layout, "-0700") ||
		strings.Contains(layout, "-07:00") ||
		strings.Contains(layout, "Z07") ||
		strings.Contains(layout, "MST")
}

func isUTC(t time.Time) bool {
	_, offset := t.Zone()
	return offset == 0
}
