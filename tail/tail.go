// Package tail implements following log files.
//
// tail provides a channel per file on which log lines are sent as string
// messages, one line per message. Stdin ("-") is supported as a degenerate
// file. Read position is remembered across runs in a small JSON state file
// keyed by inode, so a restarted process picks up where it left off unless
// the file has been rotated out from under it.
package tail

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hpcloud/tail"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const stateFileSuffix = ".jcparsers.state"

type Options struct {
	ReadFrom  string `long:"read_from" description:"Location in the file from which to start reading. Values: beginning, end, last. Last picks up where it left off, if the file has not been rotated, otherwise beginning." default:"last"`
	Stop      bool   `long:"stop" description:"Stop reading the file after reaching the end rather than continuing to tail"`
	Poll      bool   `long:"poll" description:"Use poll instead of inotify to tail files"`
	StateFile string `long:"statefile" description:"File in which to store the last read position. Defaults to a file next to $TMPDIR named after the log file. If tailing multiple files, must be a directory."`
}

type Config struct {
	// Paths to the log files to tail; "-" means stdin and globs expand
	Paths   []string
	Options Options
}

// State is what's stored in a statefile
type State struct {
	INode  uint64
	Offset int64
}

// GetEntries sets up one channel per file, each carrying that file's lines.
func GetEntries(conf Config) ([]chan string, error) {
	var filenames []string
	for _, filePath := range conf.Paths {
		if filePath == "-" {
			filenames = append(filenames, filePath)
			continue
		}
		files, err := filepath.Glob(filePath)
		if err != nil {
			return nil, errors.Wrapf(err, "bad file glob %q", filePath)
		}
		filenames = append(filenames, dropStateFiles(files, conf)...)
	}
	if len(filenames) == 0 {
		return nil, errors.New("after removing missing files and state files from the list, there are no files left to tail")
	}

	linesChans := make([]chan string, 0, len(filenames))
	for _, file := range filenames {
		var lines chan string
		if file == "-" {
			lines = tailStdin()
		} else {
			stateFile := getStateFile(conf, file, len(filenames))
			tailer, err := getTailer(conf, file, stateFile)
			if err != nil {
				return nil, err
			}
			lines = tailSingleFile(tailer, file, stateFile)
		}
		linesChans = append(linesChans, lines)
	}

	return linesChans, nil
}

// dropStateFiles removes anything that looks like one of our own state files
// so an overly permissive glob doesn't start tailing them too.
func dropStateFiles(files []string, conf Config) []string {
	newFiles := []string{}
	for _, file := range files {
		if file == conf.Options.StateFile || strings.HasSuffix(file, stateFileSuffix) {
			logrus.WithFields(logrus.Fields{
				"file": file,
			}).Debug("skipping file because it is a state file")
			continue
		}
		newFiles = append(newFiles, file)
	}
	return newFiles
}

func tailSingleFile(tailer *tail.Tail, file string, stateFile string) chan string {
	lines := make(chan string)

	stateFh, err := os.OpenFile(stateFile, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"logfile":   file,
			"statefile": stateFile,
		}).Warn("failed to open statefile for writing; read position will not be saved")
	}

	ticker := time.NewTicker(time.Second)
	state := State{}
	go func() {
		for range ticker.C {
			updateStateFile(&state, tailer, file, stateFh)
		}
	}()

	go func() {
		for line := range tailer.Lines {
			if line.Err != nil {
				// skip errored lines
				continue
			}
			lines <- line.Text
		}
		close(lines)
		ticker.Stop()
		updateStateFile(&state, tailer, file, stateFh)
		if stateFh != nil {
			stateFh.Close()
		}
	}()
	return lines
}

// tailStdin reads lines from stdin without any of the fancy stuff the tail
// module provides.
func tailStdin() chan string {
	lines := make(chan string)
	input := bufio.NewReader(os.Stdin)
	go func() {
		defer close(lines)
		for {
			line, partialLine, err := input.ReadLine()
			if err != nil {
				logrus.Debug("stdin is closed")
				return
			}
			parts := []string{string(line)}
			for partialLine {
				line, partialLine, _ = input.ReadLine()
				parts = append(parts, string(line))
			}
			lines <- strings.Join(parts, "")
		}
	}()
	return lines
}

// getStartLocation reads the state file and picks a start location.
// Missing, empty, or unreadable statefile means start at the end; an inode
// mismatch means the logfile has been rotated, so start at the beginning.
func getStartLocation(stateFile string, logfile string) *tail.SeekInfo {
	beginning := &tail.SeekInfo{}
	end := &tail.SeekInfo{Whence: 2}
	content, err := os.ReadFile(stateFile)
	if err != nil {
		logrus.WithField("error", err).Debug("statefile unreadable, starting at end")
		return end
	}
	state := State{}
	if err := json.Unmarshal(content, &state); err != nil {
		logrus.WithField("error", err).Debug("statefile undecodable, starting at end")
		return end
	}
	logStat := unix.Stat_t{}
	if err := unix.Stat(logfile, &logStat); err != nil {
		logrus.WithField("error", err).Debug("could not stat logfile, starting at end")
		return end
	}
	if state.INode != logStat.Ino {
		logrus.Debug("logfile inode changed since last run, starting at beginning")
		return beginning
	}
	logrus.WithField("offset", state.Offset).Debug("seeking to saved offset in logfile")
	return &tail.SeekInfo{Offset: state.Offset}
}

// getTailer configures the *tail.Tail to begin actually tailing the file.
func getTailer(conf Config, file string, stateFile string) (*tail.Tail, error) {
	var loc *tail.SeekInfo // zero value means start at beginning
	switch conf.Options.ReadFrom {
	case "start", "beginning":
	case "end":
		loc = &tail.SeekInfo{Whence: 2}
	case "last":
		loc = getStartLocation(stateFile, file)
	default:
		return nil, errors.Errorf("unknown option to --tail.read_from: %s", conf.Options.ReadFrom)
	}
	follow := !conf.Options.Stop
	tailConf := tail.Config{
		Location:  loc,
		ReOpen:    follow, // keep reading on rotation, aka tail -F
		MustExist: true,   // fail if the log file doesn't exist
		Follow:    follow, // don't stop at EOF, aka tail -f
		Logger:    tail.DiscardingLogger,
		Poll:      conf.Options.Poll,
	}
	return tail.TailFile(file, tailConf)
}

// getStateFile returns the filename in which to track read position for one
// logfile. A --tail.statefile flag pointing at a file is respected when
// tailing a single log; pointing at a directory places per-log state files
// inside it; otherwise state files land in $TMPDIR.
func getStateFile(conf Config, filename string, numFiles int) string {
	stateDir := os.TempDir()
	if conf.Options.StateFile != "" {
		info, err := os.Stat(conf.Options.StateFile)
		if numFiles == 1 && (os.IsNotExist(err) || (err == nil && !info.IsDir())) {
			return conf.Options.StateFile
		} else if err == nil && info.IsDir() {
			stateDir = conf.Options.StateFile
		} else {
			logrus.Debugf("couldn't use --tail.statefile=%s, writing state for %s to %s instead",
				conf.Options.StateFile, filename, stateDir)
		}
	}
	name := strings.TrimSuffix(filepath.Base(filename), ".log") + stateFileSuffix
	return filepath.Join(stateDir, name)
}

// updateStateFile rewrites the state file with the logfile's current inode
// number and read offset.
func updateStateFile(state *State, t *tail.Tail, file string, stateFh *os.File) {
	if stateFh == nil {
		return
	}
	logStat := unix.Stat_t{}
	unix.Stat(file, &logStat)
	currentPos, err := t.Tell()
	if err != nil {
		return
	}
	state.INode = logStat.Ino
	state.Offset = currentPos
	out, err := json.Marshal(state)
	if err != nil {
		return
	}
	stateFh.Truncate(0)
	out = append(out, '\n')
	stateFh.WriteAt(out, 0)
	stateFh.Sync()
}
