// Package parsers provides the interface shared by the log parsing engines.
//
// Each subpackage takes care of a specific log type, turning a single line of
// text into a record.Record. Parsers never abort the stream on a bad line;
// they return an error scoped to that one line and let the stream driver
// decide what to do with it.
package parsers

import "github.com/zzOzz/jcparsers/record"

// LineParser turns one line of input into one record.
//
// The returned error is attributable to that single line only; a LineParser
// must be safe to call again with the next line.
type LineParser interface {
	ParseLine(line string) (record.Record, error)
}

// Parser is a LineParser with a name and per-format option handling.
type Parser interface {
	LineParser
	// Init does any initialization necessary for the module
	Init(options interface{}) error
	// Name returns the identifier used for parser selection on the CLI
	Name() string
}
