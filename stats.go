package main

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zzOzz/jcparsers/record"
)

// parseStats is a container for collecting statistics about emitted records.
// It counts interesting aspects of the records it sees and presents them for
// printing whenever it's called.
//
// the intent is to periodically print and flush the counters, eg once/minute
type parseStats struct {
	lock *sync.Mutex

	count      int
	unparsable int
	lastRecord record.Record

	totalCount      int
	totalUnparsable int
}

// newParseStats initializes the struct's complex data types
func newParseStats() *parseStats {
	r := &parseStats{}
	r.lock = &sync.Mutex{}
	return r
}

// update adds a record into the stats container
func (r *parseStats) update(rec record.Record) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.count++
	if _, ok := rec["unparsable"]; ok {
		r.unparsable++
	}
	r.lastRecord = rec
}

// logAndReset logs the current stats and resets them all to zero.
// thread safe.
func (r *parseStats) logAndReset() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.log()
	r.reset()
}

// log the current statistics to logrus.
// NOT thread safe.
func (r *parseStats) log() {
	logrus.WithFields(logrus.Fields{
		"count":          r.count,
		"unparsable":     r.unparsable,
		"lifetime_count": r.totalCount + r.count,
	}).Info("Summary of emitted records")
	if r.lastRecord != nil {
		logrus.WithField("record", r.lastRecord).Info("Last parsed record")
	}
}

// logFinal logs the lifetime totals on their own
func (r *parseStats) logFinal() {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.totalCount += r.count
	r.totalUnparsable += r.unparsable
	r.count = 0
	r.unparsable = 0
	logrus.WithFields(logrus.Fields{
		"total records emitted":    r.totalCount,
		"total unparsable records": r.totalUnparsable,
	}).Info("Total number of records emitted")
}

// reset the counters to zero.
// NOT thread safe
func (r *parseStats) reset() {
	r.totalCount += r.count
	r.totalUnparsable += r.unparsable
	r.count = 0
	r.unparsable = 0
	r.lastRecord = nil
}

// logStats dumps and resets the stats once per interval
func logStats(stats *parseStats, interval uint) {
	logrus.Debugf("Initializing stats reporting. Will print stats once/%d seconds", interval)
	if interval == 0 {
		// interval of 0 means don't print summary status
		return
	}
	ticker := time.NewTicker(time.Second * time.Duration(interval))
	for range ticker.C {
		stats.logAndReset()
	}
}
