// Package record contains the structured output unit passed between parsers
// and the output layer.
//
// A Record is one input line's worth of extracted fields. Field sets are not
// fixed; they are whatever the parser managed to pull out of that particular
// line. Values are strings as extracted, integers after normalization, or nil
// where normalization mapped an empty/`-` value to null.
package record

// Record is a single parsed log line.
type Record map[string]interface{}

// New returns a Record seeded with the trimmed original line under "raw".
func New(raw string) Record {
	return Record{"raw": raw}
}

// Unparsable returns the reserved one-field record produced when a line
// fails to parse and the caller has opted into continuing past errors.
func Unparsable(line string) Record {
	return Record{"unparsable": line}
}

// Copy returns a shallow copy of the record. Parsers hand records off to the
// caller and never touch them again; stages that rewrite values copy first.
func (r Record) Copy() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
