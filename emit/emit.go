// Package emit renders records as JSON Lines on an io.Writer.
package emit

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/samber/lo"

	"github.com/zzOzz/jcparsers/record"
)

type Options struct {
	// Fields limits output to the named fields. Empty means emit all.
	Fields []string
}

// Emitter writes one JSON object per record, newline delimited.
type Emitter struct {
	writer  *bufio.Writer
	encoder *json.Encoder
	conf    Options
}

func New(output io.Writer, opts Options) *Emitter {
	writer := bufio.NewWriter(output)
	encoder := json.NewEncoder(writer)
	// keep raw log content readable in the output
	encoder.SetEscapeHTML(false)
	return &Emitter{
		writer:  writer,
		encoder: encoder,
		conf:    opts,
	}
}

// Emit writes rec as one line of JSON and flushes, so downstream pipes see
// records as soon as they are parsed.
func (e *Emitter) Emit(rec record.Record) error {
	out := rec
	if len(e.conf.Fields) > 0 {
		out = record.Record(lo.PickByKeys(map[string]interface{}(rec), e.conf.Fields))
	}
	if err := e.encoder.Encode(out); err != nil {
		return err
	}
	return e.writer.Flush()
}

// Close flushes anything buffered.
func (e *Emitter) Close() error {
	return e.writer.Flush()
}
