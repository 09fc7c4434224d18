package kvtoken

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zzOzz/jcparsers/record"
)

type testLineMap struct {
	name     string
	input    string
	expected record.Record
}

var tlms = []testLineMap{
	{
		name:  "key=value pairs",
		input: `IN=eth0 SRC=1.2.3.4 DPT=23`,
		expected: record.Record{
			"IN":  "eth0",
			"SRC": "1.2.3.4",
			"DPT": "23",
		},
	},
	{
		name:  "empty value keeps the key",
		input: `IN=eth0 OUT=`,
		expected: record.Record{
			"IN":  "eth0",
			"OUT": "",
		},
	},
	{
		name:     "later value overwrites earlier one",
		input:    `a=1 a=2`,
		expected: record.Record{"a": "2"},
	},
	{
		name:     "tokens with two or more equals are dropped outright",
		input:    `a=b=c`,
		expected: record.Record{},
	},
	{
		name:     "bare tokens become flags",
		input:    `SYN URGP`,
		expected: record.Record{"SYN": "", "URGP": ""},
	},
	{
		name:  "bracketed tokens accumulate into type",
		input: `[tag application-multi] [tag language-multi]`,
		expected: record.Record{
			"type": "tag application-multi tag language-multi",
		},
	},
	{
		name:  "runs of spaces produce no empty tokens",
		input: `a=1  b=2`,
		expected: record.Record{
			"a": "1",
			"b": "2",
		},
	},
	{
		name:  "mixed line",
		input: `[UFW BLOCK] IN=eth0 OUT= SRC=1.2.3.4 SYN junk=a=b`,
		expected: record.Record{
			"type": "UFW BLOCK",
			"IN":   "eth0",
			"OUT":  "",
			"SRC":  "1.2.3.4",
			"SYN":  "",
		},
	},
}

func TestDecode(t *testing.T) {
	d := &Decoder{}
	for _, tlm := range tlms {
		rec, err := d.Decode(tlm.input)
		if err != nil {
			t.Errorf("%s: Decode unexpectedly returned error %v", tlm.name, err)
		}
		if !reflect.DeepEqual(rec, tlm.expected) {
			t.Errorf("%s: record %+v didn't match expected %+v", tlm.name, rec, tlm.expected)
		}
	}
}

func TestDecodeEnvelope(t *testing.T) {
	d := &Decoder{Envelope: true}

	rec, err := d.Decode(`{"host": "web1", "priority": "4", "message": "IN=eth0 SRC=1.2.3.4 SYN"}`)
	assert.NoError(t, err)
	// the envelope's other keys pass through unchanged
	assert.Equal(t, "web1", rec["host"])
	assert.Equal(t, "4", rec["priority"])
	// the message body is decoded and nested back under its key
	assert.Equal(t, map[string]interface{}{
		"IN":  "eth0",
		"SRC": "1.2.3.4",
		"SYN": "",
	}, rec["message"])
}

func TestDecodeEnvelopeErrors(t *testing.T) {
	d := &Decoder{Envelope: true}

	// a JSON object without a message field cannot be decoded further
	_, err := d.Decode(`{"host": "web1"}`)
	assert.Error(t, err)

	// a message that is not a string is just as unusable
	_, err = d.Decode(`{"message": 42}`)
	assert.Error(t, err)

	// a line that is not JSON at all falls back to direct decoding
	rec, err := d.Decode(`IN=eth0 SYN`)
	assert.NoError(t, err)
	assert.Equal(t, record.Record{"IN": "eth0", "SYN": ""}, rec)
}

func TestClassify(t *testing.T) {
	tsts := []struct {
		token    string
		expected tokenClass
	}{
		{"a=1", classKeyValue},
		{"OUT=", classKeyValue},
		{"[UFW", classBracketTag},
		{"BLOCK]", classBracketTag},
		{"[whole]", classBracketTag},
		{"SYN", classFlag},
		{"a=b=c", classDiscard},
		// one '=' wins over brackets
		{"[a=1]", classKeyValue},
		// brackets win over the discard rule
		{"[a=b=c]", classBracketTag},
	}
	for _, tst := range tsts {
		if got := classify(tst.token); got != tst.expected {
			t.Errorf("classify(%q) = %v, expected %v", tst.token, got, tst.expected)
		}
	}
}
