// Package diag implements hawk's error taxonomy (spec §7).
//
// Every fallible operation in the parser, regex, value, and record-I/O
// packages returns a *Error rather than panicking, so an embedder can
// recover from a bad script or a bad stream the way spec §7's propagation
// policy requires.
package diag

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Code identifies an error kind from the taxonomy in spec §7 (and the
// regex-family and parser-family kinds in §4.1/§4.3).
type Code string

const (
	// General
	NoMem          Code = "NoMem"
	Invalid        Code = "Invalid"
	NoEnt          Code = "NoEnt"
	Exist          Code = "Exist"
	Perm           Code = "Perm"
	IoUser         Code = "IoUser"
	IoImpl         Code = "IoImpl"
	IoNameNotFound Code = "IoNameNotFound"
	Eof            Code = "Eof"
	Open           Code = "Open"
	Close          Code = "Close"
	Read           Code = "Read"
	Write          Code = "Write"
	EcErr          Code = "EcErr"
	BufFull        Code = "BufFull"
	Intern         Code = "Intern"
	RuntimeHalted  Code = "RuntimeHalted"

	// Regex family (§4.1)
	BadPattern Code = "BadPattern"
	BadBracket Code = "BadBracket"
	BadParen   Code = "BadParen"
	BadBrace   Code = "BadBrace"
	BadRange   Code = "BadRange"
	BadRepeat  Code = "BadRepeat"
	BadSubReg  Code = "BadSubReg"
	BadEscape  Code = "BadEscape"
	BadCollate Code = "BadCollate"
	BadCtype   Code = "BadCtype"

	// Parser family (§4.3, §7)
	Lbrace          Code = "Lbrace"
	Rparen          Code = "Rparen"
	KwRed           Code = "KwRed"
	FnRed           Code = "FnRed"
	GblRed          Code = "GblRed"
	DupLcl          Code = "DupLcl"
	DupGbl          Code = "DupGbl"
	Undef           Code = "Undef"
	Stmtend         Code = "Stmtend"
	ExprNest        Code = "ExprNest"
	BlockNest       Code = "BlockNest"
	InclNest        Code = "InclNest"
	InclStr         Code = "InclStr"
	BreakNoLoop     Code = "BreakNoLoop"
	ContinueNoLoop  Code = "ContinueNoLoop"
	ReturnOnly      Code = "ReturnOnly"
	NextBeg         Code = "NextBeg"
	NextEnd         Code = "NextEnd"
	NextFBeg        Code = "NextFBeg"
	NextFEnd        Code = "NextFEnd"

	// Evaluator-family, returned by rio/value for embedder convenience
	// even though the evaluator itself is out of scope (§1).
	DivByZero   Code = "DivByZero"
	StackOvf    Code = "StackOvf"
	TooManyArgs Code = "TooManyArgs"
	TooFewArgs  Code = "TooFewArgs"
)

// Location pinpoints where an error occurred: a source location (file,
// line, column) for parse errors, or a runtime node location for
// evaluator-family errors surfaced by rio/value.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.File == "" && l.Line == 0 {
		return ""
	}
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Error is the concrete error type returned throughout hawk.
type Error struct {
	Code    Code
	Message string
	Loc     Location
	Cause   error
}

// New builds an *Error with no location (filled in by the caller via
// WithLoc when a token/position is available).
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error that chains an underlying cause, matching the
// teacher's fmt.Errorf("...: %w", err) convention (internal/ext/*.go).
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithLoc returns a copy of e with its location set.
func (e *Error) WithLoc(loc Location) *Error {
	c := *e
	c.Loc = loc
	return &c
}

func (e *Error) Error() string {
	loc := e.Loc.String()
	if loc == "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
		}
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", loc, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", loc, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, target) report true when target is a *Error
// with the same Code, e.g. errors.Is(err, diag.New(diag.BufFull, "")).
// A bare Code is not an error value and cannot be used as the target.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// BufFullError reports a buffer capacity overrun with a human-readable
// size, using the limit the caller tried to exceed.
func BufFullError(limit int) *Error {
	return New(BufFull, "buffer capacity exceeded (limit %s)", humanize.Bytes(uint64(limit)))
}

// NoMemError reports allocator exhaustion for a requested size.
func NoMemError(requested int) *Error {
	return New(NoMem, "allocation of %s failed", humanize.Bytes(uint64(requested)))
}

// LogMask is a bitmask selecting which diagnostic categories an embedder
// wants from the LogSink (§6.4 "log mask and log max capacity").
type LogMask uint32

const (
	LogParse LogMask = 1 << iota
	LogRegex
	LogRio
	LogGC
	LogAll LogMask = ^LogMask(0)
)

// LogSink is the embedder-supplied log writer (§6.3). The zero value
// (nil) is always valid to call Logf on via the Logf package function,
// which is a no-op when sink is nil — embedding has zero cost when unused.
type LogSink interface {
	Logf(mask LogMask, format string, args ...any)
}

// Logf calls sink.Logf if sink is non-nil and mask&want != 0; otherwise
// it is a no-op, so an embedder that leaves the hook unset pays no cost.
func Logf(sink LogSink, want LogMask, mask LogMask, format string, args ...any) {
	if sink == nil || want&mask == 0 {
		return
	}
	sink.Logf(mask, format, args...)
}
