// Package stream wires error isolation around a LineParser and the
// normalization pass, turning a channel of raw lines into a channel of
// records.
//
// The driver is single-threaded and pull-based: records are produced one per
// consumed line, strictly on demand, in input order. No state survives from
// one line to the next. The consumer reads Records() until it closes and
// then checks Err(), the same contract bufio.Scanner uses.
package stream

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/zzOzz/jcparsers/parsers"
	"github.com/zzOzz/jcparsers/process"
	"github.com/zzOzz/jcparsers/record"
)

// StructuralError means the input itself was unusable, as opposed to one
// line of it. It is always fatal, never converted to an unparsable record,
// and is surfaced before any record is produced.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string {
	return "structural input error: " + e.Reason
}

// LineError is a failure while parsing or normalizing one specific line.
type LineError struct {
	Line string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("parse error on line %q: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

type Options struct {
	// Raw skips normalization and emits the parser output verbatim.
	Raw bool
	// ResilientErrors converts per-line failures into unparsable records
	// instead of terminating the stream.
	ResilientErrors bool
	// Quiet suppresses the advisory per-line diagnostics. It never changes
	// which records are produced.
	Quiet bool

	// FilterRegex, if set, only parses lines that match (or that do not
	// match, with InvertFilter). Filtered lines produce no output.
	FilterRegex  *parsers.ExtRegexp
	InvertFilter bool

	// PrefixRegex, if set, is stripped from the line before parsing. Any
	// named groups are merged into the record.
	PrefixRegex *parsers.ExtRegexp
}

// Stream is one running per-line driver.
type Stream struct {
	records chan record.Record
	err     error
}

// New validates the input and starts the driver. A nil lines channel or nil
// parser is a StructuralError: the input as a whole is unusable, so New
// fails before producing anything.
func New(lines <-chan string, lp parsers.LineParser, opts Options) (*Stream, error) {
	if lines == nil {
		return nil, &StructuralError{Reason: "input is not a sequence of lines"}
	}
	if lp == nil {
		return nil, &StructuralError{Reason: "no line parser provided"}
	}

	s := &Stream{records: make(chan record.Record)}
	go s.run(lines, lp, opts)
	return s, nil
}

// Records returns the output channel. It is closed when the input is
// exhausted or a fatal error stops the stream; check Err() afterwards.
func (s *Stream) Records() <-chan record.Record {
	return s.records
}

// Err reports the error that terminated the stream, if any. Only valid once
// Records() has closed.
func (s *Stream) Err() error {
	return s.err
}

func (s *Stream) run(lines <-chan string, lp parsers.LineParser, opts Options) {
	defer close(s.records)

	for line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			// blank lines produce zero output, not even an unparsable
			// record
			continue
		}

		if opts.FilterRegex != nil {
			if opts.FilterRegex.MatchString(line) == opts.InvertFilter {
				if !opts.Quiet {
					logrus.WithFields(logrus.Fields{
						"line": line,
					}).Debug("skipping line due to filter match")
				}
				continue
			}
		}

		// take care of any headers on the line
		var prefixFields map[string]string
		if opts.PrefixRegex != nil {
			var prefix string
			prefix, prefixFields = opts.PrefixRegex.FindStringSubmatchMap(line)
			line = strings.TrimPrefix(line, prefix)
		}

		rec, err := lp.ParseLine(line)
		if err != nil {
			if !opts.ResilientErrors {
				s.err = &LineError{Line: trimmed, Err: err}
				return
			}
			if !opts.Quiet {
				logrus.WithFields(logrus.Fields{
					"line":  line,
					"error": err,
				}).Debug("emitting unparsable record; failed to parse line")
			}
			s.records <- record.Unparsable(trimmed)
			continue
		}

		for k, v := range prefixFields {
			rec[k] = v
		}

		if !opts.Raw {
			rec = process.Process(rec)
		}
		s.records <- rec
	}
}
