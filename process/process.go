// Package process is the post-parse normalization pass.
//
// Normalization is idempotent: running an already-normalized record through
// again is a no-op. It only rewrites values in place; the two epoch fields
// derived from `date` are the only fields it ever adds.
package process

import (
	"math"
	"strconv"

	"github.com/zzOzz/jcparsers/httime"
	"github.com/zzOzz/jcparsers/record"
)

// intFields are the fields coerced to integers. A value that will not
// convert becomes nil rather than an error.
var intFields = map[string]bool{
	"day":    true,
	"year":   true,
	"hour":   true,
	"minute": true,
	"second": true,
	"status": true,
	"bytes":  true,
	"pid":    true,
	"line":   true,
}

// Process returns the normalized record.
//
// Per field: names in intFields are coerced to integers; values that are
// exactly "-" or the empty string become nil; nested records (a decoded JSON
// envelope's message) are normalized recursively. When a non-nil `date`
// field is present, `epoch` (naive local time) and `epoch_utc` (only when
// the parsed timezone is UTC) are added.
func Process(rec record.Record) record.Record {
	for key, val := range rec {
		if nested, ok := val.(map[string]interface{}); ok {
			rec[key] = map[string]interface{}(Process(record.Record(nested)))
			continue
		}

		if intFields[key] {
			rec[key] = ToInt(val)
			continue
		}

		if val == "-" || val == "" {
			rec[key] = nil
		}
	}

	if date, ok := rec["date"].(string); ok && date != "" {
		ts := httime.DeriveTimestamp(date)
		rec["epoch"] = ts.Naive
		rec["epoch_utc"] = ts.UTC
	}

	return rec
}

// ToInt converts val to an integer the forgiving way: strings parse as ints
// or truncate from floats, numeric types pass through truncated, and
// anything unconvertible (including "-" and "") becomes nil.
func ToInt(val interface{}) interface{} {
	switch v := val.(type) {
	case nil:
		return nil
	case int:
		return v
	case int64:
		return v
	case float64:
		return int64(math.Trunc(v))
	case string:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return int64(math.Trunc(f))
		}
		return nil
	default:
		return nil
	}
}
