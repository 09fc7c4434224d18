package parsers

import (
	"regexp"

	"github.com/pkg/errors"
)

// ExtRegexp is a Regexp with additional methods to make it easier to work
// with named groups
type ExtRegexp struct {
	*regexp.Regexp
}

// FindStringSubmatchMap behaves the same as FindStringSubmatch except instead
// of a list of matches with the names separate, it returns the full match and
// a map of named submatches
func (r *ExtRegexp) FindStringSubmatchMap(s string) (string, map[string]string) {
	match := r.FindStringSubmatch(s)
	if match == nil {
		return "", nil
	}

	captures := make(map[string]string)
	for i, name := range r.SubexpNames() {
		if i == 0 {
			continue
		}
		if name != "" {
			// ignore unnamed matches
			captures[name] = match[i]
		}
	}
	return match[0], captures
}

// CompileNamed compiles expr and requires at least one named capture group,
// since an expression without one can never contribute a field.
func CompileNamed(expr string) (*ExtRegexp, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.Wrapf(err, "could not compile pattern %q", expr)
	}
	var numNamedGroups int
	for _, groupName := range re.SubexpNames() {
		if groupName != "" {
			numNamedGroups++
		}
	}
	if numNamedGroups == 0 {
		return nil, errors.Errorf("no named capture groups found in pattern %q; example: `(?P<name>re)`", expr)
	}
	return &ExtRegexp{re}, nil
}

// FindNamedCaptures returns the named captures of the leftmost match as a
// map suitable for merging into a record. Optional groups that did not
// participate in the match are present with a nil value rather than an empty
// string, so "matched nothing" and "captured the empty string" stay distinct.
// Returns nil if the expression does not match at all.
func (r *ExtRegexp) FindNamedCaptures(s string) map[string]interface{} {
	loc := r.FindStringSubmatchIndex(s)
	if loc == nil {
		return nil
	}

	captures := make(map[string]interface{})
	for i, name := range r.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		start, end := loc[2*i], loc[2*i+1]
		if start < 0 {
			captures[name] = nil
			continue
		}
		captures[name] = s[start:end]
	}
	return captures
}
