// Package regexline consumes logs given user-defined regex patterns.
//
// RE2 regex syntax reference: https://github.com/google/re2/wiki/Syntax
// Example format for a named capture group: `(?P<name>re)`
package regexline

import (
	"github.com/pkg/errors"

	"github.com/zzOzz/jcparsers/parsers/multipattern"
	"github.com/zzOzz/jcparsers/record"
)

type Options struct {
	LinePatterns   []string `long:"pattern" description:"A regular expression with named capture groups representing the fields to extract (RE2 syntax). May be specified multiple times; patterns are applied in order against each line and later captures overwrite earlier ones."`
	ErrorOnNoMatch bool     `long:"strict" description:"Treat a line matching none of the patterns as a parse error instead of emitting a record holding only the raw line"`
}

type Parser struct {
	conf    Options
	matcher *multipattern.Matcher
}

func (p *Parser) Init(options interface{}) error {
	p.conf = *options.(*Options)

	if len(p.conf.LinePatterns) == 0 {
		return errors.New("must provide at least one pattern for parsing log lines; use the `--regex.pattern` flag")
	}
	matcher, err := multipattern.New(p.conf.LinePatterns, p.conf.ErrorOnNoMatch)
	if err != nil {
		return err
	}
	p.matcher = matcher
	return nil
}

func (p *Parser) Name() string { return "regex" }

func (p *Parser) ParseLine(line string) (record.Record, error) {
	return p.matcher.Match(line)
}
