// Package firewall consumes UFW/iptables firewall logs.
//
// The log body is a run of key=value tokens interleaved with bracketed tags
// and bare flags ("[UFW BLOCK] IN=eth0 OUT= ... SYN URGP=0"). Journal
// exports wrap the same body in a JSON envelope under a "message" field;
// the envelope flag handles both shapes with one decoder.
package firewall

import (
	"github.com/zzOzz/jcparsers/parsers/kvtoken"
	"github.com/zzOzz/jcparsers/record"
)

type Options struct {
	Envelope bool `long:"envelope" description:"Treat each line as a JSON object whose 'message' field holds the firewall log line (journalctl -o json exports)"`
}

type Parser struct {
	conf    Options
	decoder *kvtoken.Decoder
}

func (p *Parser) Init(options interface{}) error {
	if options != nil {
		p.conf = *options.(*Options)
	}
	p.decoder = &kvtoken.Decoder{Envelope: p.conf.Envelope}
	return nil
}

func (p *Parser) Name() string { return "firewall" }

func (p *Parser) ParseLine(line string) (record.Record, error) {
	return p.decoder.Decode(line)
}
