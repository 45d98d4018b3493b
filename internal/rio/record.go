package rio

import (
	"io"
	"strings"

	"github.com/hyung-hwan/hawk-sub000/internal/diag"
	"github.com/hyung-hwan/hawk-sub000/internal/regex"
)

// RSKind selects one of spec §4.4's four RS branches.
type RSKind int

const (
	// RSDefault splits on a bare newline, stripping a trailing CR
	// (CRLF handling), as if RS were unset.
	RSDefault RSKind = iota
	// RSParagraph is triggered by RS == "": records are separated by
	// one-or-more blank lines, leading blank lines before the first
	// record are skipped, and the trailing run of newlines is dropped.
	RSParagraph
	// RSChar splits on an exact single-character occurrence.
	RSChar
	// RSRegexp treats RS as a (possibly multi-character literal or
	// regex) pattern, using longest-match-before-buffer-end semantics.
	RSRegexp
)

// RS configures record separation (spec §4.4).
type RS struct {
	Kind    RSKind
	Char    rune
	Pattern *regex.Regex
}

// readChunkRunes is how many runes ReadRecord asks the embedder for on
// each underlying Read call while growing its lookahead buffer.
const readChunkRunes = 4096

// fillMore asks the embedder for another chunk of decoded text,
// appending it to the stream's pending buffer. Returns false once the
// embedder reports io.EOF (spec's in_eof flag).
func (t *Table) fillMore(name string, s *Stream) (bool, error) {
	if s.arg.InEOF {
		return false, nil
	}
	buf := make([]rune, readChunkRunes)
	n, err := t.io.Read(s.arg, buf)
	if n > 0 {
		s.readBuf = append(s.readBuf, buf[:n]...)
	}
	if err != nil {
		if err == io.EOF {
			s.arg.InEOF = true
			return false, nil
		}
		return false, diag.Wrap(diag.IoImpl, err, "reading stream %q failed", name)
	}
	if n == 0 {
		s.arg.InEOF = true
		return false, nil
	}
	return true, nil
}

// ReadRecord reads and consumes the next record from the named text
// stream per rs (spec §4.4). ok is false once the stream is exhausted
// (spec's eos semantics); a genuine I/O failure is returned as an
// IoImpl diag.Error.
func (t *Table) ReadRecord(name string, rs RS) (record string, ok bool, err error) {
	s, found := t.streams[name]
	if !found {
		return "", false, diag.New(diag.NoEnt, "no open stream %q", name)
	}
	if lockErr := s.lockMode(false); lockErr != nil {
		return "", false, lockErr
	}
	if s.arg.InEOS {
		return "", false, nil
	}

	switch rs.Kind {
	case RSParagraph:
		return t.readParagraphRecord(name, s)
	case RSChar:
		return t.readCharRecord(name, s, rs.Char)
	case RSRegexp:
		return t.readRegexRecord(name, s, rs.Pattern)
	default:
		return t.readDefaultRecord(name, s)
	}
}

// consumeAndAdvance slices out buf[s.readPos:end] as the returned
// record, advances past sepLen more runes (the separator itself), and
// compacts the buffer once consumed data grows past the chunk size.
func (s *Stream) consumeAndAdvance(end, sepLen int) string {
	rec := string(s.readBuf[s.readPos:end])
	s.readPos = end + sepLen
	if s.readPos > readChunkRunes {
		s.readBuf = append([]rune(nil), s.readBuf[s.readPos:]...)
		s.readPos = 0
	}
	return rec
}

func (t *Table) readDefaultRecord(name string, s *Stream) (string, bool, error) {
	for {
		if idx := indexRune(s.readBuf[s.readPos:], '\n'); idx >= 0 {
			end := s.readPos + idx
			rec := s.readBuf[s.readPos:end]
			rec = strings.TrimSuffix(string(rec), "\r")
			s.readPos = end + 1
			if s.readPos > readChunkRunes {
				s.readBuf = append([]rune(nil), s.readBuf[s.readPos:]...)
				s.readPos = 0
			}
			return string(rec), true, nil
		}
		more, err := t.fillMore(name, s)
		if err != nil {
			return "", false, err
		}
		if !more {
			if s.readPos < len(s.readBuf) {
				rec := strings.TrimSuffix(string(s.readBuf[s.readPos:]), "\r")
				s.readPos = len(s.readBuf)
				return rec, true, nil
			}
			return "", false, nil
		}
	}
}

func (t *Table) readCharRecord(name string, s *Stream, sep rune) (string, bool, error) {
	for {
		if idx := indexRune(s.readBuf[s.readPos:], sep); idx >= 0 {
			end := s.readPos + idx
			return s.consumeAndAdvance(end, 1), true, nil
		}
		more, err := t.fillMore(name, s)
		if err != nil {
			return "", false, err
		}
		if !more {
			if s.readPos < len(s.readBuf) {
				rec := string(s.readBuf[s.readPos:])
				s.readPos = len(s.readBuf)
				return rec, true, nil
			}
			return "", false, nil
		}
	}
}

// readParagraphRecord implements RS=="" paragraph mode: skip leading
// blank lines, a record runs up to the first line consisting of one or
// more consecutive blank lines, and that separator run is discarded.
func (t *Table) readParagraphRecord(name string, s *Stream) (string, bool, error) {
	for {
		for s.readPos < len(s.readBuf) && s.readBuf[s.readPos] == '\n' {
			s.readPos++
		}
		if s.readPos >= len(s.readBuf) {
			if s.arg.InEOF {
				return "", false, nil
			}
			if _, err := t.fillMore(name, s); err != nil {
				return "", false, err
			}
			continue
		}
		break
	}

	for {
		if end, sepLen, found := findBlankLineRun(s.readBuf, s.readPos); found {
			rec := strings.TrimSuffix(string(s.readBuf[s.readPos:end]), "\r")
			return s.consumeAndAdvanceRaw(end, sepLen, rec), true, nil
		}
		more, err := t.fillMore(name, s)
		if err != nil {
			return "", false, err
		}
		if !more {
			if s.readPos < len(s.readBuf) {
				rec := strings.TrimRight(string(s.readBuf[s.readPos:]), "\n")
				rec = strings.TrimSuffix(rec, "\r")
				s.readPos = len(s.readBuf)
				return rec, true, nil
			}
			return "", false, nil
		}
	}
}

// consumeAndAdvanceRaw is consumeAndAdvance without re-deriving rec,
// since the paragraph reader already computed it with CR-trimming.
func (s *Stream) consumeAndAdvanceRaw(end, sepLen int, rec string) string {
	s.readPos = end + sepLen
	if s.readPos > readChunkRunes {
		s.readBuf = append([]rune(nil), s.readBuf[s.readPos:]...)
		s.readPos = 0
	}
	return rec
}

// findBlankLineRun looks for "\n\n+" starting at or after from,
// reporting the record end (before the first \n of the run) and the
// number of newline runes that make up the separator.
func findBlankLineRun(buf []rune, from int) (end, sepLen int, found bool) {
	i := from
	for i < len(buf)-1 {
		if buf[i] == '\n' && buf[i+1] == '\n' {
			end = i
			j := i
			for j < len(buf) && buf[j] == '\n' {
				j++
			}
			return end, j - i, true
		}
		i++
	}
	return 0, 0, false
}

// readRegexRecord implements the multi-character-literal-or-regex RS
// branch: longest match before the end of buffered data, except once
// EOF has been reached and no more data can arrive (spec §4.4).
func (t *Table) readRegexRecord(name string, s *Stream, pat *regex.Regex) (string, bool, error) {
	for {
		res, start, ok := pat.FindLongestFrom(s.readBuf, s.readPos, false)
		if ok {
			matchEnd := res.Submatches[0][1]
			if matchEnd < len(s.readBuf) || s.arg.InEOF {
				return s.consumeAndAdvance(start, matchEnd-start), true, nil
			}
		}
		more, err := t.fillMore(name, s)
		if err != nil {
			return "", false, err
		}
		if !more {
			if s.readPos < len(s.readBuf) {
				rec := string(s.readBuf[s.readPos:])
				s.readPos = len(s.readBuf)
				return rec, true, nil
			}
			return "", false, nil
		}
	}
}

func indexRune(buf []rune, r rune) int {
	for i, c := range buf {
		if c == r {
			return i
		}
	}
	return -1
}
