package httime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConvertTimeFormat(t *testing.T) {
	tsts := []struct {
		strftime string
		golang   string
	}{
		{"%d/%b/%Y:%H:%M:%S %z", "02/Jan/2006:15:04:05 -0700"},
		{"%Y-%m-%d %H:%M:%S", "2006-01-02 15:04:05"},
		{"%a %b %d %T %Y", "Mon Jan 02 15:04:05 2006"},
	}
	for _, tst := range tsts {
		if got := ConvertTimeFormat(tst.strftime); got != tst.golang {
			t.Errorf("ConvertTimeFormat(%q) = %q, expected %q", tst.strftime, got, tst.golang)
		}
	}
}

func TestDeriveTimestampCLF(t *testing.T) {
	// non-UTC zone: naive epoch is present, UTC epoch stays nil
	ts := DeriveTimestamp("10/Oct/2000:13:55:36 -0700")
	assert.NotNil(t, ts.Naive)
	assert.Nil(t, ts.UTC)

	expected := time.Date(2000, time.October, 10, 13, 55, 36, 0, time.Local).Unix()
	assert.Equal(t, expected, ts.Naive)
}

func TestDeriveTimestampUTC(t *testing.T) {
	ts := DeriveTimestamp("10/Oct/2000:13:55:36 +0000")
	assert.NotNil(t, ts.Naive)

	expected := time.Date(2000, time.October, 10, 13, 55, 36, 0, time.UTC).Unix()
	assert.Equal(t, expected, ts.UTC)
}

func TestDeriveTimestampErrorLogHeader(t *testing.T) {
	// the Apache error-log date carries no zone, so only the naive epoch
	// can be derived
	ts := DeriveTimestamp("Mon Jan 08 15:39:55.735479 2024")
	assert.NotNil(t, ts.Naive)
	assert.Nil(t, ts.UTC)
}

func TestDeriveTimestampUnparseable(t *testing.T) {
	ts := DeriveTimestamp("not a date at all")
	assert.Nil(t, ts.Naive)
	assert.Nil(t, ts.UTC)
}

func TestDeriveTimestampExplicitStrftimeHint(t *testing.T) {
	ts := DeriveTimestamp("2024-01-08 15:39:55", "%Y-%m-%d %H:%M:%S")
	assert.NotNil(t, ts.Naive)
	assert.Nil(t, ts.UTC)
}

func TestDeriveTimestampCommaFraction(t *testing.T) {
	// fractional seconds marked with a comma still parse
	ts := DeriveTimestamp("Mon Jan 08 15:39:55,735479 2024")
	assert.NotNil(t, ts.Naive)
}
