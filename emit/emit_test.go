package emit

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zzOzz/jcparsers/record"
)

func TestEmitOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	e := New(&buf, Options{})

	assert.NoError(t, e.Emit(record.Record{"a": "1"}))
	assert.NoError(t, e.Emit(record.Record{"b": 2}))
	assert.NoError(t, e.Close())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, `{"a":"1"}`, lines[0])
	assert.Equal(t, `{"b":2}`, lines[1])
}

func TestEmitNullFields(t *testing.T) {
	var buf bytes.Buffer
	e := New(&buf, Options{})

	assert.NoError(t, e.Emit(record.Record{"OUT": nil}))
	assert.Equal(t, `{"OUT":null}`+"\n", buf.String())
}

func TestEmitFieldWhitelist(t *testing.T) {
	var buf bytes.Buffer
	e := New(&buf, Options{Fields: []string{"SRC", "DPT"}})

	assert.NoError(t, e.Emit(record.Record{
		"SRC":   "1.2.3.4",
		"DPT":   22,
		"PROTO": "TCP",
	}))
	assert.Equal(t, `{"DPT":22,"SRC":"1.2.3.4"}`+"\n", buf.String())
}

func TestEmitNoEscapeHTML(t *testing.T) {
	var buf bytes.Buffer
	e := New(&buf, Options{})

	assert.NoError(t, e.Emit(record.Record{"request": "GET /x?a=1&b=<2> HTTP/1.1"}))
	assert.Equal(t, `{"request":"GET /x?a=1&b=<2> HTTP/1.1"}`+"\n", buf.String())
}
