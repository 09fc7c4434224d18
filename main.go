package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	flag "github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/zzOzz/jcparsers/parsers/accesslog"
	"github.com/zzOzz/jcparsers/parsers/firewall"
	"github.com/zzOzz/jcparsers/parsers/keyval"
	"github.com/zzOzz/jcparsers/parsers/modsec"
	"github.com/zzOzz/jcparsers/parsers/regexline"
	"github.com/zzOzz/jcparsers/tail"
)

// BuildID is set at build time
var BuildID string

// internal version identifier
var version string

var validParsers = []string{
	"modsec",
	"firewall",
	"accesslog",
	"keyval",
	"regex",
}

// GlobalOptions has all the top level CLI flags that jcparsers supports
type GlobalOptions struct {
	ConfigFile string `short:"c" long:"config" description:"Config file for jcparsers in INI format." no-ini:"true"`

	Raw              bool `short:"r" long:"raw" description:"Skip post-processing and emit the parser output verbatim"`
	IgnoreExceptions bool `short:"i" long:"ignore_exceptions" description:"Emit an {\"unparsable\": ...} record for lines that fail to parse instead of aborting"`
	Quiet            bool `short:"q" long:"quiet" description:"Suppress advisory warnings. Does not change which records are emitted."`
	Debug            bool `long:"debug" description:"Print debugging output"`

	StatusInterval uint `long:"status_interval" description:"How frequently, in seconds, to log summary info. 0 disables the summary." default:"60"`

	OutputFields []string `short:"F" long:"output_field" description:"Only emit the named field. May be specified multiple times."`
	ScrubFields  []string `long:"scrub_field" description:"For the field listed, apply a one-way hash to the field content. May be specified multiple times"`
	DropFields   []string `long:"drop_field" description:"Remove the field from every record. May be specified multiple times"`
	AddFields    []string `long:"add_field" description:"Add the field to every record. Field should be key=val. May be specified multiple times"`

	RequestShape      []string `long:"request_shape" description:"Identify a field that contains an HTTP request of the form 'METHOD /path HTTP/1.x' or just the request path. Break apart that field into subfields. May be specified multiple times. Defaults to 'request' when using the accesslog parser."`
	ShapePrefix       string   `long:"shape_prefix" description:"Prefix to use on fields generated from request_shape to prevent field collision"`
	RequestPattern    []string `long:"request_pattern" description:"A pattern for the request path on which to base the derived request_shape. May be specified multiple times. Patterns are considered in order; first match wins."`
	RequestParseQuery string   `long:"request_parse_query" description:"How to parse the request query parameters. 'whitelist' means only extract listed query keys. 'all' means extract all query parameters as individual fields" default:"whitelist"`
	RequestQueryKeys  []string `long:"request_query_keys" description:"Request query parameter key names to extract, when request_parse_query is 'whitelist'. May be specified multiple times."`

	SampleRate     uint     `long:"samplerate" description:"Only emit 1 / N records" default:"1"`
	DynSample      []string `long:"dynsampling" description:"Enable dynamic sampling using the field listed in this option. May be specified multiple times"`
	DynWindowSec   int      `long:"dynsample_window" description:"Measurement window size for the dynsampler, in seconds" default:"30"`
	GoalSampleRate int      `hidden:"true" description:"Used to hold the desired sample rate and set tailing sample rate"`
	MinSampleRate  int      `long:"dynsample_minimum" description:"If the rate of traffic falls below this, dynsampler won't sample" default:"1"`

	PrefixRegex  string `long:"log_prefix" description:"Pass a regex to this flag to strip the matching prefix from the line before handing to the parser. Useful when log aggregation prepends a line header. Use named groups to extract fields into the record."`
	FilterRegex  string `long:"filter_regex" description:"A regular expression that will filter the input stream and only parse lines that match"`
	InvertFilter bool   `long:"invert_filter" description:"Change the filter_regex to only process lines that do *not* match"`

	Reqs  RequiredOptions `group:"Required Options"`
	Modes OtherModes      `group:"Other Modes"`

	Tail tail.Options `group:"Tail Options" namespace:"tail"`

	ModSec    modsec.Options    `group:"ModSecurity Parser Options" namespace:"modsec"`
	Firewall  firewall.Options  `group:"Firewall Parser Options" namespace:"firewall"`
	AccessLog accesslog.Options `group:"Access Log Parser Options" namespace:"accesslog"`
	KeyVal    keyval.Options    `group:"Keyval Parser Options" namespace:"keyval"`
	Regex     regexline.Options `group:"Regex Parser Options" namespace:"regex"`
}

type RequiredOptions struct {
	ParserName string   `short:"p" long:"parser" description:"Parser module to use. Use --list to list available options."`
	LogFiles   []string `short:"f" long:"file" description:"Log file(s) to parse. Use '-' for STDIN, use this flag multiple times to tail multiple files, or use a glob (/path/to/foo-*.log)" default:"-"`
}

type OtherModes struct {
	Help               bool `short:"h" long:"help" description:"Show this help message"`
	ListParsers        bool `short:"l" long:"list" description:"List available parsers"`
	Version            bool `short:"V" long:"version" description:"Show version"`
	WriteDefaultConfig bool `long:"write_default_config" description:"Write a default config file to STDOUT" no-ini:"true"`
	WriteCurrentConfig bool `long:"write_current_config" description:"Write out the current config to STDOUT" no-ini:"true"`
}

func main() {
	var options GlobalOptions
	flagParser := flag.NewParser(&options, flag.PrintErrors)
	flagParser.Usage = "-p <parser> -f </path/to/logfile> [optional arguments]"

	if extraArgs, err := flagParser.Parse(); err != nil || len(extraArgs) != 0 {
		fmt.Println("Error: failed to parse the command line.")
		if err != nil {
			fmt.Printf("\t%s\n", err)
		} else {
			fmt.Printf("\tUnexpected extra arguments: %s\n", strings.Join(extraArgs, " "))
		}
		usage()
		os.Exit(1)
	}
	// read the config file if present
	if options.ConfigFile != "" {
		ini := flag.NewIniParser(flagParser)
		ini.ParseAsDefaults = true
		if err := ini.ParseFile(options.ConfigFile); err != nil {
			fmt.Printf("Error: failed to parse the config file %s\n", options.ConfigFile)
			fmt.Printf("\t%s\n", err)
			usage()
			os.Exit(1)
		}
	}

	if options.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	} else if options.Quiet {
		logrus.SetLevel(logrus.ErrorLevel)
	}
	// records go to stdout; everything else goes to stderr
	logrus.SetOutput(os.Stderr)

	setVersion()
	handleOtherModes(flagParser, options.Modes)
	addParserDefaultOptions(&options)
	sanityCheckOptions(&options)

	os.Exit(run(options))
}

// setVersion sets the internal version ID
func setVersion() {
	if BuildID == "" {
		version = "dev"
	} else {
		version = BuildID
	}
}

// handleOtherModes takes care of all flags that say we should just do
// something and exit rather than actually parsing logs
func handleOtherModes(fp *flag.Parser, modes OtherModes) {
	if modes.Version {
		fmt.Println("jcparsers version", version)
		os.Exit(0)
	}
	if modes.Help {
		fp.WriteHelp(os.Stdout)
		fmt.Println("")
		os.Exit(0)
	}
	if modes.WriteDefaultConfig {
		ip := flag.NewIniParser(fp)
		ip.Write(os.Stdout, flag.IniIncludeDefaults|flag.IniCommentDefaults|flag.IniIncludeComments)
		os.Exit(0)
	}
	if modes.WriteCurrentConfig {
		ip := flag.NewIniParser(fp)
		ip.Write(os.Stdout, flag.IniIncludeComments)
		os.Exit(0)
	}

	if modes.ListParsers {
		fmt.Println("Available parsers:", strings.Join(validParsers, ", "))
		os.Exit(0)
	}
}

func addParserDefaultOptions(options *GlobalOptions) {
	if options.Reqs.ParserName == "accesslog" {
		// automatically normalize the request when parsing access logs
		options.RequestShape = append(options.RequestShape, "request")
	}
}

func sanityCheckOptions(options *GlobalOptions) {
	switch {
	case options.Reqs.ParserName == "":
		fmt.Println("Parser required.")
		usage()
		os.Exit(1)
	case len(options.Reqs.LogFiles) == 0:
		fmt.Println("Log file name or '-' required.")
		usage()
		os.Exit(1)
	case options.SampleRate == 0:
		fmt.Println("Sample rate must be an integer >= 1")
		usage()
		os.Exit(1)
	case options.Tail.ReadFrom == "end" && options.Tail.Stop:
		fmt.Println("Reading from the end and stopping when we get there. Zero lines to process.")
		usage()
		os.Exit(1)
	case options.RequestParseQuery != "whitelist" && options.RequestParseQuery != "all":
		fmt.Println("request_parse_query flag must be either 'whitelist' or 'all'.")
		usage()
		os.Exit(1)
	}

	// check the prefix regex for validity
	if options.PrefixRegex != "" {
		// make sure the regex is anchored against the start of the string
		if options.PrefixRegex[0] != '^' {
			options.PrefixRegex = "^" + options.PrefixRegex
		}
		if _, err := regexp.Compile(options.PrefixRegex); err != nil {
			fmt.Printf("Prefix regex %s doesn't compile: error %s\n", options.PrefixRegex, err)
			usage()
			os.Exit(1)
		}
	}
	if options.FilterRegex != "" {
		if _, err := regexp.Compile(options.FilterRegex); err != nil {
			fmt.Printf("Filter regex %s doesn't compile: error %s\n", options.FilterRegex, err)
			usage()
			os.Exit(1)
		}
	}

	// make sure input files exist
	shouldExit := false
	for _, f := range options.Reqs.LogFiles {
		if f == "-" {
			continue
		}
		if files, err := filepath.Glob(f); err != nil || files == nil {
			fmt.Printf("Log file specified by --file=%s not found!\n", f)
			shouldExit = true
		}
	}
	if shouldExit {
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Print(`
Usage: jcparsers -p <parser> -f </path/to/logfile> [optional arguments]

For even more detail on required and optional parameters, run
jcparsers --help
`)
}
