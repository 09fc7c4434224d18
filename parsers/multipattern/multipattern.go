// Package multipattern implements an ordered multi-pattern line matcher.
//
// A Matcher holds a fixed, compile-once list of partial regular expressions
// (RE2 syntax, named capture groups). Each expression is applied to the same
// original line independently; every successful match merges its named
// captures into one accumulating record, with a later pattern's value
// replacing an earlier one for the same field name. Trailing content a
// pattern does not consume is ignored.
//
// Example format for a named capture group: `(?P<name>re)`
package multipattern

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/zzOzz/jcparsers/parsers"
	"github.com/zzOzz/jcparsers/record"
)

// ErrNoMatch is returned by Match when no pattern matched the line and the
// matcher was built with ErrorOnNoMatch.
var ErrNoMatch = errors.New("no pattern matched line")

// Matcher applies its patterns in order and merges their named captures.
type Matcher struct {
	patterns []*parsers.ExtRegexp

	// errorOnNoMatch makes a line that matches zero patterns an error
	// instead of a record containing only the raw line.
	errorOnNoMatch bool
}

// New compiles the given expressions in order. Every expression must compile
// and carry at least one named capture group.
func New(exprs []string, errorOnNoMatch bool) (*Matcher, error) {
	if len(exprs) == 0 {
		return nil, errors.New("must provide at least one pattern")
	}
	m := &Matcher{errorOnNoMatch: errorOnNoMatch}
	for _, expr := range exprs {
		re, err := parsers.CompileNamed(expr)
		if err != nil {
			return nil, err
		}
		m.patterns = append(m.patterns, re)
	}
	return m, nil
}

// Match runs every pattern against line and returns the merged record.
//
// The record always starts with a "raw" field holding the trimmed line.
// Merge order is the pattern order: if two patterns capture the same field
// name, the later pattern wins. A named group that did not participate in
// its pattern's match is stored as nil.
func (m *Matcher) Match(line string) (record.Record, error) {
	rec := record.New(strings.TrimSpace(line))

	matched := false
	for _, p := range m.patterns {
		captures := p.FindNamedCaptures(line)
		if captures == nil {
			continue
		}
		matched = true
		for name, val := range captures {
			rec[name] = val
		}
	}

	if !matched && m.errorOnNoMatch {
		return nil, ErrNoMatch
	}
	return rec, nil
}
