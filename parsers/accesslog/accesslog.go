// Package accesslog consumes web server access logs in Common or Combined
// Log Format.
//
// Field names follow the classic CLF vocabulary (host, ident, authuser,
// date, request, status, bytes) so downstream normalization can coerce the
// numeric fields and derive epoch timestamps from `date`.
package accesslog

import (
	"strings"

	"github.com/honeycombio/gonx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/zzOzz/jcparsers/record"
)

const (
	// CommonFormat is the Common Log Format as specified at
	// https://www.w3.org/Daemon/User/Config/Logging.html#common-logfile-format
	CommonFormat = `$host $ident $authuser [$date] "$request" $status $bytes`
	// CombinedFormat adds the referer and user agent fields
	CombinedFormat = CommonFormat + ` "$referer" "$user_agent"`
)

type Options struct {
	Format string `long:"format" description:"Log line format: 'common', 'combined', or a custom $variable format string" default:"combined"`
}

type Parser struct {
	conf   Options
	parser *gonx.Parser
}

func (p *Parser) Init(options interface{}) error {
	if options != nil {
		p.conf = *options.(*Options)
	}
	format := p.conf.Format
	switch strings.ToLower(format) {
	case "", "combined":
		format = CombinedFormat
	case "common", "clf":
		format = CommonFormat
	}
	p.parser = gonx.NewParser(format)
	return nil
}

func (p *Parser) Name() string { return "accesslog" }

func (p *Parser) ParseLine(line string) (record.Record, error) {
	entry, err := p.parser.ParseString(line)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"logline": line,
		}).Debug("failed to parse access log line")
		return nil, errors.Wrap(err, "line does not match access log format")
	}
	rec := make(record.Record, len(entry.Fields))
	for k, v := range entry.Fields {
		rec[k] = v
	}
	return rec, nil
}
