// Package lexer implements hawk's tokeniser (spec §4.3): one-token
// lookahead driven by an embedder-supplied source-I/O callback (spec
// §6.1) instead of an in-memory string, because `@include` must swap
// the active source mid-parse.
//
// Scanning proceeds rune-at-a-time with one rune of lookahead
// (readChar plus the peekCh rune, tracking line/column as it goes), pulling runes
// through SourceIO.Read rather than indexing a pre-loaded `input
// string`.
package lexer

import "github.com/hyung-hwan/hawk-sub000/internal/diag"

// Command mirrors spec §6.1's source-I/O callback commands.
type Command int

const (
	CmdOpen Command = iota
	CmdClose
	CmdRead
)

// SourceArg mirrors spec §6.1's "source-argument block": {name, handle,
// path, unique_id, previous, buffer, line, column, last_char}. UniqueID
// is filled by Open with a content-identity token so @include_once can
// detect repeats (spec §4.3 "Include handling").
type SourceArg struct {
	Name     string
	Handle   any
	Path     string
	UniqueID [2]uint64
	Previous *SourceArg
	Buffer   []rune
	Line     int
	Column   int
}

// SourceIO is the embedder-supplied callback (spec §6.1). Open must
// fill arg.Handle (and, for file-backed sources, arg.UniqueID);
// Read fills up to len(buf) runes into buf and returns the count read,
// with a count of zero meaning EOF; Close releases arg.Handle. Failure
// is reported through the returned error.
type SourceIO interface {
	Open(arg *SourceArg) error
	Read(arg *SourceArg, buf []rune) (int, error)
	Close(arg *SourceArg) error
}

// StringSource is the simplest SourceIO: the whole script already in
// memory. This backs the common embedding path (spec §6.1 doesn't
// mandate any particular transport — this is hawk's stdlib-only
// default, matching how many embedders hand a compile() call an
// in-memory string rather than a file handle).
type StringSource struct {
	text []rune
	used bool
}

// NewStringSource wraps a literal script body as a SourceIO.
func NewStringSource(name, text string) *StringSource {
	return &StringSource{text: []rune(text)}
}

func (s *StringSource) Open(arg *SourceArg) error {
	arg.Handle = s
	return nil
}

func (s *StringSource) Read(arg *SourceArg, buf []rune) (int, error) {
	if s.used {
		return 0, nil
	}
	n := copy(buf, s.text)
	s.used = true
	return n, nil
}

func (s *StringSource) Close(arg *SourceArg) error { return nil }

// openErr wraps a callback failure per spec §7's IoUser/IoImpl split:
// IoUser when the embedder provided no callback at all, IoImpl when the
// callback itself returned an error.
func openErr(name string, cause error) error {
	if cause == nil {
		return diag.New(diag.IoUser, "no source-I/O callback for %q", name)
	}
	return diag.Wrap(diag.IoImpl, cause, "opening source %q failed", name)
}
