// Package kvtoken decodes lines made of whitespace-delimited key=value
// tokens, as written by UFW/iptables style firewall logs.
//
// The split is on single spaces with no quote awareness: a space inside a
// quoted value is a true token boundary. That is a known limitation of the
// format, not something to fix here.
package kvtoken

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/zzOzz/jcparsers/record"
)

// EnvelopeField is the JSON envelope key whose value holds the raw line
// requiring secondary decoding.
const EnvelopeField = "message"

// tokenClass is the result of classifying one token. The discard class
// exists so the "two or more '=' signs" rule is a visible case rather than
// an accidental fallthrough.
type tokenClass int

const (
	classKeyValue tokenClass = iota
	classBracketTag
	classFlag
	classDiscard
)

// classify buckets a token. Priority order: exactly one '=' makes a
// key/value pair even if the token is bracketed; then bracket-delimited
// tokens; a token with no '=' is a bare flag; two or more '=' discards the
// token entirely.
func classify(token string) tokenClass {
	equals := strings.Count(token, "=")
	if equals == 1 {
		return classKeyValue
	}
	if strings.HasPrefix(token, "[") || strings.HasSuffix(token, "]") {
		return classBracketTag
	}
	if equals == 0 {
		return classFlag
	}
	return classDiscard
}

// Decoder assembles records from tokenized lines.
type Decoder struct {
	// Envelope makes the decoder treat a line that is a JSON object as an
	// envelope: the value of its "message" field is tokenized and the
	// decoded result is nested back under "message", with the envelope's
	// other keys passed through unchanged.
	Envelope bool
}

// Decode returns the record assembled from line.
func (d *Decoder) Decode(line string) (record.Record, error) {
	if d.Envelope {
		return d.decodeEnvelope(line)
	}
	return decodeTokens(line), nil
}

// decodeEnvelope handles the JSON-wrapped variant. A line that is not a
// JSON object is decoded directly as a raw line.
func (d *Decoder) decodeEnvelope(line string) (record.Record, error) {
	var envelope map[string]interface{}
	if err := json.Unmarshal([]byte(line), &envelope); err != nil {
		return decodeTokens(line), nil
	}

	raw, ok := envelope[EnvelopeField]
	if !ok {
		return nil, errors.Errorf("JSON envelope is missing the %q field", EnvelopeField)
	}
	message, ok := raw.(string)
	if !ok {
		return nil, errors.Errorf("JSON envelope field %q is not a string", EnvelopeField)
	}

	rec := make(record.Record, len(envelope))
	for k, v := range envelope {
		rec[k] = v
	}
	rec[EnvelopeField] = map[string]interface{}(decodeTokens(message))
	return rec, nil
}

// decodeTokens runs the token classifier over every space-delimited chunk
// of the line and assembles the flat record. Key/value tokens overwrite any
// existing field of the same name; bracketed tokens accumulate into a single
// space-joined "type" field after bracket stripping.
func decodeTokens(line string) record.Record {
	rec := make(record.Record)
	tags := ""
	for _, token := range strings.Split(line, " ") {
		if token == "" {
			// runs of spaces produce empty chunks, not tokens
			continue
		}
		switch classify(token) {
		case classKeyValue:
			eq := strings.IndexByte(token, '=')
			rec[token[:eq]] = token[eq+1:]
		case classBracketTag:
			stripped := strings.TrimSuffix(strings.TrimPrefix(token, "["), "]")
			tags = strings.TrimLeft(tags+" "+stripped, " ")
		case classFlag:
			rec[token] = ""
		case classDiscard:
			// tokens with two or more '=' are dropped outright
		}
	}
	if tags != "" {
		rec["type"] = tags
	}
	return rec
}
