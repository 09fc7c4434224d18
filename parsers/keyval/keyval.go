// Package keyval parses logs whose format is many key=val pairs in logfmt
// style (quoted values, bare keys).
package keyval

import (
	"strconv"

	"github.com/kr/logfmt"

	"github.com/zzOzz/jcparsers/record"
)

type Options struct {
	NoTypes bool `long:"no_types" description:"Keep all values as strings instead of coercing bools, ints, and floats"`
}

type Parser struct {
	conf Options
}

func (p *Parser) Init(options interface{}) error {
	if options != nil {
		p.conf = *options.(*Options)
	}
	return nil
}

func (p *Parser) Name() string { return "keyval" }

func (p *Parser) ParseLine(line string) (record.Record, error) {
	parsed := make(record.Record)
	f := func(key, val []byte) error {
		keyStr := string(key)
		valStr := string(val)
		if p.conf.NoTypes {
			parsed[keyStr] = valStr
			return nil
		}
		if b, err := strconv.ParseBool(valStr); err == nil {
			parsed[keyStr] = b
			return nil
		}
		if i, err := strconv.Atoi(valStr); err == nil {
			parsed[keyStr] = i
			return nil
		}
		if f, err := strconv.ParseFloat(valStr, 64); err == nil {
			parsed[keyStr] = f
			return nil
		}
		parsed[keyStr] = valStr
		return nil
	}
	if err := logfmt.Unmarshal([]byte(line), logfmt.HandlerFunc(f)); err != nil {
		return nil, err
	}
	return parsed, nil
}
