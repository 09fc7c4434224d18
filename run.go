package main

import (
	"crypto/sha256"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/honeycombio/dynsampler-go"
	"github.com/honeycombio/urlshaper"
	"github.com/sirupsen/logrus"

	"github.com/zzOzz/jcparsers/emit"
	"github.com/zzOzz/jcparsers/parsers"
	"github.com/zzOzz/jcparsers/parsers/accesslog"
	"github.com/zzOzz/jcparsers/parsers/firewall"
	"github.com/zzOzz/jcparsers/parsers/keyval"
	"github.com/zzOzz/jcparsers/parsers/modsec"
	"github.com/zzOzz/jcparsers/parsers/regexline"
	"github.com/zzOzz/jcparsers/record"
	"github.com/zzOzz/jcparsers/stream"
	"github.com/zzOzz/jcparsers/tail"
)

// run wires tailed lines through a parser stream into the NDJSON emitter.
// It returns the process exit code.
func run(options GlobalOptions) int {
	logrus.Debug("Starting jcparsers")

	stats := newParseStats()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		fmt.Fprintf(os.Stderr, "Aborting! Caught signal \"%s\"\n", sig)
		os.Exit(1)
	}()

	// compile the prefix and filter regexes once for use on all channels
	var prefixRegex *parsers.ExtRegexp
	if options.PrefixRegex != "" {
		prefixRegex = &parsers.ExtRegexp{Regexp: regexp.MustCompile(options.PrefixRegex)}
	}
	var filterRegex *parsers.ExtRegexp
	if options.FilterRegex != "" {
		filterRegex = &parsers.ExtRegexp{Regexp: regexp.MustCompile(options.FilterRegex)}
	}

	// get our lines channels from which to read log lines
	linesChans, err := tail.GetEntries(tail.Config{
		Paths:   options.Reqs.LogFiles,
		Options: options.Tail,
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{"err": err}).Error(
			"Error occurred while trying to tail logfile")
		return 1
	}

	// for each channel we got back from tail.GetEntries, spin up a stream.
	streams := make([]*stream.Stream, 0, len(linesChans))
	streamOpts := stream.Options{
		Raw:             options.Raw,
		ResilientErrors: options.IgnoreExceptions,
		Quiet:           options.Quiet,
		FilterRegex:     filterRegex,
		InvertFilter:    options.InvertFilter,
		PrefixRegex:     prefixRegex,
	}
	for _, lines := range linesChans {
		parser := getParserAndOptions(options)
		if parser == nil {
			logrus.WithFields(logrus.Fields{"parser": options.Reqs.ParserName}).Error(
				"Parser not found. Use --list to show valid parsers")
			return 1
		}
		s, err := stream.New(lines, parser, streamOpts)
		if err != nil {
			logrus.WithFields(logrus.Fields{"err": err}).Error("could not start stream")
			return 1
		}
		streams = append(streams, s)
	}

	// fan the per-file record channels into one, then run the munging stage
	merged := make(chan record.Record)
	go func() {
		wg := sync.WaitGroup{}
		for _, s := range streams {
			wg.Add(1)
			go func(s *stream.Stream) {
				for rec := range s.Records() {
					merged <- rec
				}
				wg.Done()
			}(s)
		}
		wg.Wait()
		close(merged)
	}()

	toBeEmitted := modifyRecordContents(merged, options)

	go logStats(stats, options.StatusInterval)

	emitter := emit.New(os.Stdout, emit.Options{Fields: options.OutputFields})
	defer emitter.Close()
	for rec := range toBeEmitted {
		stats.update(rec)
		if err := emitter.Emit(rec); err != nil {
			logrus.WithFields(logrus.Fields{"err": err}).Error("failed to write record")
			return 1
		}
	}
	stats.logFinal()

	// a stream that stopped on an error takes the whole run down with it
	exit := 0
	for _, s := range streams {
		if err := s.Err(); err != nil {
			logrus.WithFields(logrus.Fields{"err": err}).Error("stream terminated")
			exit = 1
		}
	}
	if exit == 0 {
		logrus.Debug("jcparsers is all done, goodbye!")
	}
	return exit
}

// getParserAndOptions takes the global options struct and returns an
// initialized parser for the selected module, or nil if the name is unknown
// or initialization failed.
func getParserAndOptions(options GlobalOptions) parsers.Parser {
	var parser parsers.Parser
	var opts interface{}
	switch options.Reqs.ParserName {
	case "modsec":
		parser = &modsec.Parser{}
		opts = &options.ModSec
	case "firewall":
		parser = &firewall.Parser{}
		opts = &options.Firewall
	case "accesslog":
		parser = &accesslog.Parser{}
		opts = &options.AccessLog
	case "keyval":
		parser = &keyval.Parser{}
		opts = &options.KeyVal
	case "regex":
		parser = &regexline.Parser{}
		opts = &options.Regex
	default:
		return nil
	}
	if err := parser.Init(opts); err != nil {
		logrus.WithFields(logrus.Fields{
			"parser": options.Reqs.ParserName, "err": err,
		}).Error("err initializing parser module")
		return nil
	}
	return parser
}

// modifyRecordContents takes a channel from which it will read records. It
// returns a channel on which it will send the munged records. It is
// responsible for hashing or dropping or adding fields and doing the
// sampling, if enabled.
func modifyRecordContents(toBeSent chan record.Record, options GlobalOptions) chan record.Record {
	// parse the addField bit once instead of for every record
	parsedAddFields := map[string]string{}
	for _, addField := range options.AddFields {
		splitField := strings.SplitN(addField, "=", 2)
		if len(splitField) != 2 {
			logrus.WithFields(logrus.Fields{
				"add_field": addField,
			}).Fatal("unable to separate provided field into a key=val pair")
		}
		parsedAddFields[splitField[0]] = splitField[1]
	}
	// do all the advance work for request shaping
	shaper := &requestShaper{}
	if len(options.RequestShape) != 0 {
		shaper.pr = &urlshaper.Parser{}
		if options.ShapePrefix != "" {
			shaper.prefix = options.ShapePrefix + "_"
		}
		for _, rpat := range options.RequestPattern {
			pat := urlshaper.Pattern{Pat: rpat}
			if err := pat.Compile(); err != nil {
				logrus.WithField("request_pattern", rpat).WithError(err).Fatal(
					"Failed to compile provided pattern.")
			}
			shaper.pr.Patterns = append(shaper.pr.Patterns, &pat)
		}
	}
	// initialize the dynamic sampler
	var sampler dynsampler.Sampler
	if len(options.DynSample) != 0 {
		goal := int(options.SampleRate)
		if goal < 1 {
			goal = 1
		}
		sampler = &dynsampler.AvgSampleWithMin{
			GoalSampleRate:    goal,
			ClearFrequencySec: options.DynWindowSec,
			MinEventsPerSec:   options.MinSampleRate,
		}
		if err := sampler.Start(); err != nil {
			logrus.WithField("error", err).Fatal("dynsampler failed to start")
		}
	}

	newSent := make(chan record.Record)
	go func() {
		for rec := range toBeSent {
			// do dropping
			for _, field := range options.DropFields {
				delete(rec, field)
			}
			// do scrubbing
			for _, field := range options.ScrubFields {
				if val, ok := rec[field]; ok {
					// apply a one-way hash to the field content
					newVal := sha256.Sum256([]byte(fmt.Sprintf("%v", val)))
					rec[field] = fmt.Sprintf("%x", newVal)
				}
			}
			// do adding
			for k, v := range parsedAddFields {
				rec[k] = v
			}
			// do request shaping
			for _, field := range options.RequestShape {
				shaper.requestShape(field, rec, options)
			}
			// do sampling last so it can use request shaped fields
			if sampler != nil {
				sr := sampler.GetSampleRate(makeDynsampleKey(rec, options))
				if rand.Intn(sr) != 0 {
					continue
				}
				rec["sample_rate"] = sr
			} else if options.SampleRate > 1 {
				if rand.Intn(int(options.SampleRate)) != 0 {
					continue
				}
				rec["sample_rate"] = int(options.SampleRate)
			}
			newSent <- rec
		}
		close(newSent)
	}()
	return newSent
}

// makeDynsampleKey pulls in all the values necessary from the record to
// create a key for dynamic sampling
func makeDynsampleKey(rec record.Record, options GlobalOptions) string {
	key := make([]string, len(options.DynSample))
	for i, field := range options.DynSample {
		if val, ok := rec[field]; ok {
			switch val := val.(type) {
			case bool:
				key[i] = strconv.FormatBool(val)
			case int:
				key[i] = strconv.Itoa(val)
			case int64:
				key[i] = strconv.FormatInt(val, 10)
			case float64:
				key[i] = strconv.FormatFloat(val, 'E', -1, 64)
			case string:
				key[i] = val
			default:
				key[i] = "" // skip it
			}
		}
	}
	return strings.Join(key, "_")
}

// requestShaper holds the bits about request shaping that want to be
// precompiled instead of computed on every record
type requestShaper struct {
	prefix string
	pr     *urlshaper.Parser
}

// requestShape expects the field passed in to have the form
// VERB /path/of/request HTTP/1.x
// If it does, it will break it apart into components, normalize the URL,
// and add a handful of additional fields based on what it finds.
func (r *requestShaper) requestShape(field string, rec record.Record, options GlobalOptions) {
	val, ok := rec[field]
	if !ok {
		return
	}
	request, ok := val.(string)
	if !ok {
		return
	}
	// start by splitting out method, uri, and version
	parts := strings.Split(request, " ")
	var path string
	if len(parts) == 3 {
		// treat it as METHOD /path HTTP/1.X
		rec[r.prefix+field+"_method"] = parts[0]
		rec[r.prefix+field+"_protocol_version"] = parts[2]
		path = parts[1]
	} else {
		// treat it as just the /path
		path = parts[0]
	}
	// next up, get all the goodies out of the path
	res, err := r.pr.Parse(path)
	if err != nil {
		// couldn't parse it, just pass along the record
		return
	}
	rec[r.prefix+field+"_uri"] = res.URI
	rec[r.prefix+field+"_path"] = res.Path
	if res.Query != "" {
		rec[r.prefix+field+"_query"] = res.Query
	}
	for k, v := range res.QueryFields {
		// only include the keys we want
		if options.RequestParseQuery == "all" || whitelistKey(options.RequestQueryKeys, k) {
			if len(v) > 1 {
				sort.Strings(v)
			}
			rec[r.prefix+field+"_query_"+k] = strings.Join(v, ", ")
		}
	}
	for k, v := range res.PathFields {
		rec[r.prefix+field+"_path_"+k] = v[0]
	}
	rec[r.prefix+field+"_shape"] = res.Shape
	rec[r.prefix+field+"_pathshape"] = res.PathShape
	if res.QueryShape != "" {
		rec[r.prefix+field+"_queryshape"] = res.QueryShape
	}
}

// whitelistKey returns true if the key is in the whitelist
func whitelistKey(whiteKeys []string, key string) bool {
	for _, whiteKey := range whiteKeys {
		if key == whiteKey {
			return true
		}
	}
	return false
}
