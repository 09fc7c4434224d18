// Package modsec consumes Apache error logs carrying ModSecurity audit
// messages.
//
// A single physical line encodes an error-log header followed by many
// bracketed `[key "value"]` segments. Each segment gets its own partial
// pattern; the patterns run in order against the same line and their named
// captures merge into one record, so a line missing some segments still
// yields whatever fields were present.
package modsec

import (
	"github.com/sirupsen/logrus"

	"github.com/zzOzz/jcparsers/parsers/multipattern"
	"github.com/zzOzz/jcparsers/record"
)

// linePatterns is the ordered pattern list. Order matters: later captures
// overwrite earlier ones for the same field name.
var linePatterns = []string{
	// freetext message between the last [client x] segment and the first
	// bracketed audit segment
	`^.*\[client (\S+)\] (?P<msg_detail>[^\[]*) (\[\S\S+)`,
	// error-log header, e.g.
	// [Mon Jan 08 15:39:55.735479 2024] [:error] [pid 3426173] [client 90.65.66.20:56764] [client 90.65.66.20]
	`^\[(?P<date>(?P<day_of_week>\S\S\S) (?P<month>\S\S\S) (?P<day>\d\d) (?P<hour>\d\d):(?P<minute>\d\d):(?P<second>\d+\.\d+) (?P<year>\d\d\d\d))\] \[(?P<loglevel>\S+)\] \[pid (?P<pid>\d+)\] \[client (?P<client_port>\S+)\] \[client (?P<client>\S+)\]`,
	`^.*(\[file "(?P<file>[@A-Za-z0-9_\./\\-]*)"\] )`,
	`^.*(\[line "(?P<line>[@A-Za-z0-9_\./\\-]*)"\] )`,
	`^.*(\[id "(?P<id>\d+)"\] )`,
	`^.*(\[msg "(?P<msg>[^\[]*)"\] )`,
	// the data payload is frequently truncated upstream so the closing
	// quote cannot be relied on
	`^.*(\[data "(?P<data>[^\[]*) )`,
	`^.*(\[severity "(?P<severity>[^\[]*)"\] )`,
	`^.*(\[ver "(?P<ver>[^\[]*)"\] )`,
	`^.*(\[hostname "(?P<hostname>[^\[]*)"\] )`,
	`^.*(\[uri "(?P<uri>[^\[]*)"\] )`,
	`^.*(\[unique_id "(?P<unique_id>[^\[]*)"\])`,
	// the run of [tag "..."] segments, kept as one cumulative string
	`^.*(?P<tags>(\[tag ([^\[]*))+)`,
}

type Options struct {
	ErrorOnNoMatch bool `long:"strict" description:"Treat a line matching none of the ModSecurity patterns as a parse error instead of emitting a record holding only the raw line"`
}

type Parser struct {
	conf    Options
	matcher *multipattern.Matcher
}

func (p *Parser) Init(options interface{}) error {
	if options != nil {
		p.conf = *options.(*Options)
	}
	matcher, err := multipattern.New(linePatterns, p.conf.ErrorOnNoMatch)
	if err != nil {
		// patterns are fixed at build time, so this only fires on a
		// broken edit to linePatterns
		logrus.WithError(err).Error("failed to compile modsec patterns")
		return err
	}
	p.matcher = matcher
	return nil
}

func (p *Parser) Name() string { return "modsec" }

func (p *Parser) ParseLine(line string) (record.Record, error) {
	return p.matcher.Match(line)
}
