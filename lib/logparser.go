// logparser - parses the textual output of cvs log / rlog.
//
// Grounded on reposurgeon's line-anchored, bufio.Scanner-driven parsers
// (surgeon/inner.go's parseFastImport scans a stream against line-anchored
// prefixes and regexp-delimited blocks); the same technique is applied here
// to the much smaller cvs log grammar.
//
// SPDX-License-Identifier: BSD-2-Clause

package cvs

import (
	"bufio"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

const fileDelimiter = "============================================================================="
const deltaDelimiter = "----------------------------"

var (
	reRCSFile     = regexp.MustCompile(`^RCS file: (.+)$`)
	reWorkingFile = regexp.MustCompile(`^Working file: (.+)$`)
	reHead        = regexp.MustCompile(`^head: (.+)$`)
	reBranchHdr   = regexp.MustCompile(`^branch: (.+)$`)
	reSymbolic    = regexp.MustCompile(`^symbolic names:\s*$`)
	reSymbolEntry = regexp.MustCompile(`^\s+([^:]+):\s*(\S+)\s*$`)
	reKeyword     = regexp.MustCompile(`^keyword substitution: (.+)$`)
	reDescription = regexp.MustCompile(`^description:\s*$`)
	reRevision    = regexp.MustCompile(`^revision (\S+)`)
	reDeltaHdr    = regexp.MustCompile(`^date: ([^;]+);\s*author: ([^;]+);\s*state: ([^;]+);`)
	reBranches    = regexp.MustCompile(`^branches:\s*(.*?);?\s*$`)
)

// LogEntry is one parsed record from the log stream: exactly one of
// RCSInfo (header), Delta (a revision record), or EndOfFile (the per-file
// terminator) is set.
type LogEntry struct {
	RCSInfo   *RCSInfo
	Delta     *DeltaInfo
	EndOfFile bool
}

// LogParser consumes cvs log / rlog output and emits, per file, one
// LogEntry carrying an RCSInfo, zero or more LogEntry carrying a Delta,
// then one LogEntry with EndOfFile set. It reads directly off an io.Reader
// (no intermediate temp file), per the design notes' streaming guidance.
type LogParser struct {
	lines  []string
	pos    int
	source string
}

// NewLogParser wraps r, decoding the whole stream according to the
// UTF-8-or-ISO-8859-1 rule before the grammar is applied. source names the
// stream for LogFormatError messages (a subdirectory path, typically).
func NewLogParser(r io.Reader, source string) *LogParser {
	text := decodeLogStream(r)
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return &LogParser{lines: lines, source: source}
}

// decodeLogStream re-interprets invalid-UTF-8 input as ISO-8859-1, as
// so that cached deltas compare equal across
// runs regardless of which encoding a given server happened to emit.
// Grounded on golang.org/x/text/encoding/charmap, a sibling import of the
// reposurgeon's golang.org/x/text/encoding/ianaindex dependency.
func decodeLogStream(r io.Reader) string {
	raw, err := io.ReadAll(r)
	if err != nil {
		return ""
	}
	if strings.ToValidUTF8(string(raw), "\x00") == string(raw) {
		return string(raw)
	}
	decoded, derr := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if derr != nil {
		return string(raw)
	}
	return string(decoded)
}

// Parse drains the entire stream and returns the flattened LogEntry list
// for every file in the stream, in stream order.
func (p *LogParser) Parse() ([]LogEntry, error) {
	var out []LogEntry
	for p.pos < len(p.lines) {
		entries, err := p.parseOneFile()
		if err != nil {
			return nil, err
		}
		if entries == nil {
			break
		}
		out = append(out, entries...)
	}
	return out, nil
}

// ParseFiles is Parse() regrouped into one []LogEntry slice per file, the
// shape the planners and CVSWork.parselogs actually want.
func (p *LogParser) ParseFiles() ([][]LogEntry, error) {
	flat, err := p.Parse()
	if err != nil {
		return nil, err
	}
	var files [][]LogEntry
	var current []LogEntry
	for _, e := range flat {
		current = append(current, e)
		if e.EndOfFile {
			files = append(files, current)
			current = nil
		}
	}
	return files, nil
}

func (p *LogParser) errf(reason string) error {
	return &LogFormatError{Path: p.source, Reason: reason}
}

func (p *LogParser) atEnd() bool { return p.pos >= len(p.lines) }

func (p *LogParser) peek() string {
	if p.atEnd() {
		return ""
	}
	return p.lines[p.pos]
}

func (p *LogParser) advance() string {
	line := p.lines[p.pos]
	p.pos++
	return line
}

// parseOneFile parses one RCS-file record: header, deltas, terminator.
// Returns nil, nil at clean end of stream.
func (p *LogParser) parseOneFile() ([]LogEntry, error) {
	// Skip blank separator lines between files.
	for !p.atEnd() && strings.TrimSpace(p.peek()) == "" {
		p.advance()
	}
	if p.atEnd() {
		return nil, nil
	}
	info, err := p.parseHeader()
	if err != nil {
		return nil, err
	}
	entries := []LogEntry{{RCSInfo: info}}
	for {
		if p.atEnd() {
			break
		}
		if strings.HasPrefix(p.peek(), fileDelimiter) {
			p.advance()
			break
		}
		if strings.HasPrefix(p.peek(), deltaDelimiter) {
			p.advance()
			delta, err := p.parseDelta()
			if err != nil {
				return nil, err
			}
			entries = append(entries, LogEntry{Delta: delta})
			continue
		}
		// Tolerate stray lines (e.g. trailing summary banners) between
		// the last delta and the file delimiter.
		p.advance()
	}
	entries = append(entries, LogEntry{EndOfFile: true})
	return entries, nil
}

// parseHeader consumes the RCS file/Working file/head/branch/symbolic
// names/keyword substitution/description block up to (but not including)
// the first delta delimiter.
func (p *LogParser) parseHeader() (*RCSInfo, error) {
	info := &RCSInfo{}
	sawRCSFile := false
	sawWorkingFile := false
	inSymbolic := false
	inDescription := false
	var description strings.Builder

	for !p.atEnd() {
		line := p.peek()
		if strings.HasPrefix(line, deltaDelimiter) || strings.HasPrefix(line, fileDelimiter) {
			break
		}
		p.advance()

		if inSymbolic {
			if m := reSymbolEntry.FindStringSubmatch(line); m != nil {
				rev, err := ParseRevision(m[2])
				if err != nil {
					return nil, p.errf("bad symbolic name revision: " + err.Error())
				}
				info.Tags = append(info.Tags, SymbolicName{Tag: m[1], Revision: rev})
				continue
			}
			inSymbolic = false
			// fall through: this line belongs to whatever comes next
		}
		if inDescription {
			if strings.TrimSpace(line) == "" {
				continue
			}
			description.WriteString(line)
			description.WriteByte('\n')
			continue
		}

		switch {
		case reRCSFile.MatchString(line):
			info.RCSPath = reRCSFile.FindStringSubmatch(line)[1]
			sawRCSFile = true
		case reWorkingFile.MatchString(line):
			name := reWorkingFile.FindStringSubmatch(line)[1]
			if strings.Contains(name, "/") || name == "." || name == ".." {
				return nil, p.errf("working file name " + name + " is not a bare basename")
			}
			info.WorkingFile = name
			sawWorkingFile = true
		case reHead.MatchString(line):
			rev, err := ParseRevision(reHead.FindStringSubmatch(line)[1])
			if err != nil {
				return nil, p.errf("bad head revision: " + err.Error())
			}
			info.Head = rev
		case reBranchHdr.MatchString(line):
			rev, err := ParseRevision(reBranchHdr.FindStringSubmatch(line)[1])
			if err != nil {
				return nil, p.errf("bad branch revision: " + err.Error())
			}
			info.DefaultBranch = rev
		case reSymbolic.MatchString(line):
			inSymbolic = true
		case reKeyword.MatchString(line):
			info.KeywordMode = reKeyword.FindStringSubmatch(line)[1]
		case reDescription.MatchString(line):
			inDescription = true
		default:
			// access list, locks, total/selected revisions, etc: ignored.
		}
	}
	if !sawRCSFile || !sawWorkingFile {
		return nil, p.errf("missing RCS file or Working file header")
	}
	info.Description = strings.TrimRight(description.String(), "\n")
	return info, nil
}

// parseDelta consumes one "revision R" record: the revision line, the
// date/author/state line, an optional branches line, and the log body
// (everything up to the next delimiter).
func (p *LogParser) parseDelta() (*DeltaInfo, error) {
	if p.atEnd() {
		return nil, p.errf("expected revision line, found end of input")
	}
	revLine := p.advance()
	m := reRevision.FindStringSubmatch(revLine)
	if m == nil {
		return nil, p.errf("expected \"revision R\", saw " + revLine)
	}
	rev, err := ParseRevision(m[1])
	if err != nil {
		return nil, p.errf("bad revision: " + err.Error())
	}

	if p.atEnd() {
		return nil, p.errf("truncated delta record for revision " + rev.String())
	}
	hdrLine := p.advance()
	hm := reDeltaHdr.FindStringSubmatch(hdrLine)
	if hm == nil {
		return nil, p.errf("malformed date/author/state line: " + hdrLine)
	}
	delta := &DeltaInfo{
		Revision: rev,
		Date:     strings.TrimSpace(hm[1]),
		Author:   strings.TrimSpace(hm[2]),
		State:    strings.TrimSpace(hm[3]),
	}

	if !p.atEnd() {
		if bm := reBranches.FindStringSubmatch(p.peek()); bm != nil {
			p.advance()
			for _, tok := range strings.Split(bm[1], ";") {
				tok = strings.TrimSpace(tok)
				if tok == "" {
					continue
				}
				br, err := ParseRevision(tok)
				if err != nil {
					return nil, p.errf("bad branch revision in branches line: " + err.Error())
				}
				delta.Branches = append(delta.Branches, br)
			}
		}
	}

	var body strings.Builder
	for !p.atEnd() && !strings.HasPrefix(p.peek(), deltaDelimiter) && !strings.HasPrefix(p.peek(), fileDelimiter) {
		body.WriteString(p.advance())
		body.WriteByte('\n')
	}
	delta.Log = strings.TrimRight(body.String(), "\n")
	return delta, nil
}
