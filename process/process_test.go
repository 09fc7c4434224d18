package process

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/zzOzz/jcparsers/record"
)

func TestProcessNullsAndInts(t *testing.T) {
	rec := record.Record{
		"host":   "-",
		"ident":  "",
		"status": "200",
		"extra":  "kept as-is",
	}
	got := Process(rec)
	expected := record.Record{
		"host":   nil,
		"ident":  nil,
		"status": int64(200),
		"extra":  "kept as-is",
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("record %+v didn't match expected %+v", got, expected)
	}
}

func TestProcessIntCoercion(t *testing.T) {
	tsts := []struct {
		name     string
		field    string
		val      interface{}
		expected interface{}
	}{
		{"numeric string", "bytes", "2326", int64(2326)},
		{"fractional seconds truncate", "second", "55.735479", int64(55)},
		{"unconvertible becomes null", "pid", "not-a-number", nil},
		{"dash becomes null", "status", "-", nil},
		{"empty becomes null", "line", "", nil},
		{"non int-list fields stay strings", "month", "Oct", "Oct"},
	}
	for _, tst := range tsts {
		got := Process(record.Record{tst.field: tst.val})
		if !reflect.DeepEqual(got[tst.field], tst.expected) {
			t.Errorf("%s: got %v (%T), expected %v", tst.name, got[tst.field], got[tst.field], tst.expected)
		}
	}
}

func TestProcessIsIdempotent(t *testing.T) {
	rec := record.Record{
		"host":   "-",
		"status": "200",
		"bytes":  "2326",
		"date":   "10/Oct/2000:13:55:36 -0700",
	}
	once := Process(rec)
	again := Process(once.Copy())
	if !reflect.DeepEqual(once, again) {
		t.Errorf("second pass %+v differs from first %+v", again, once)
	}
}

func TestProcessEpochDerivation(t *testing.T) {
	rec := Process(record.Record{"date": "10/Oct/2000:13:55:36 -0700"})
	// the zone is not UTC: naive epoch only
	expected := time.Date(2000, time.October, 10, 13, 55, 36, 0, time.Local).Unix()
	assert.Equal(t, expected, rec["epoch"])
	assert.Nil(t, rec["epoch_utc"])

	rec = Process(record.Record{"date": "10/Oct/2000:13:55:36 +0000"})
	assert.NotNil(t, rec["epoch"])
	assert.Equal(t, time.Date(2000, time.October, 10, 13, 55, 36, 0, time.UTC).Unix(), rec["epoch_utc"])
}

func TestProcessNoDateNoEpoch(t *testing.T) {
	rec := Process(record.Record{"status": "200"})
	_, hasEpoch := rec["epoch"]
	_, hasEpochUTC := rec["epoch_utc"]
	assert.False(t, hasEpoch)
	assert.False(t, hasEpochUTC)
}

func TestProcessNestedRecord(t *testing.T) {
	rec := Process(record.Record{
		"host": "gateway",
		"message": map[string]interface{}{
			"OUT": "",
			"TTL": "249",
			"SRC": "1.2.3.4",
		},
	})
	assert.Equal(t, map[string]interface{}{
		"OUT": nil,
		"TTL": "249",
		"SRC": "1.2.3.4",
	}, rec["message"])
}

func TestToInt(t *testing.T) {
	tsts := []struct {
		val      interface{}
		expected interface{}
	}{
		{"42", int64(42)},
		{"4.9", int64(4)},
		{42, 42},
		{int64(42), int64(42)},
		{42.9, int64(42)},
		{"", nil},
		{"-", nil},
		{nil, nil},
		{[]string{"no"}, nil},
	}
	for _, tst := range tsts {
		if got := ToInt(tst.val); !reflect.DeepEqual(got, tst.expected) {
			t.Errorf("ToInt(%v) = %v (%T), expected %v", tst.val, got, got, tst.expected)
		}
	}
}
