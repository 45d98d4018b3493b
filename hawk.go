// Package hawk is the public facade of the embeddable AWK-dialect
// interpreter core: it wires the lexer/parser, value system, regex
// engine, and record-I/O engine (§3.2) behind a single Interpreter
// handle.
//
// A tree-walking evaluator, CLI/LSP drivers, module loading, and a
// deparser are out of scope (spec.md §1) — Interpreter exposes parsing
// and record-I/O, with a DeparseFn hook point left for an
// embedder-supplied pretty-printer.
package hawk

import (
	"github.com/hyung-hwan/hawk-sub000/internal/ast"
	"github.com/hyung-hwan/hawk-sub000/internal/diag"
	"github.com/hyung-hwan/hawk-sub000/internal/lexer"
	"github.com/hyung-hwan/hawk-sub000/internal/parser"
	"github.com/hyung-hwan/hawk-sub000/internal/rio"
)

// Option is the interpreter's trait bitmask (spec §6.4).
type Option uint32

const (
	OptImplicit Option = 1 << iota
	OptMultilineStr
	OptNextOfile
	OptRio
	OptRwPipe
	OptNewline
	OptStripRecSpc
	OptStripStrSpc
	OptBlankConcat
	OptCrlf
	OptFlexMap
	OptPABlock
	OptRexBound
	OptNcmpOnStr
	OptStrictNaming
	OptTolerant
	OptNumStrDetect
)

// Classic is the BRE-era preset (spec §6.4).
const Classic Option = OptImplicit | OptNewline | OptBlankConcat

// Modern adds FlexMap, RexBound, RwPipe, Tolerant, NextOfile to Classic.
const Modern Option = Classic | OptFlexMap | OptRexBound | OptRwPipe | OptTolerant | OptNextOfile

// GlobalVar indexes the stable built-in global slots (spec §6.5).
// Embedder-added globals follow at index GlobalCount and above.
type GlobalVar int

const (
	GlobalConvfmt GlobalVar = iota
	GlobalFilename
	GlobalFNR
	GlobalFS
	GlobalIgnorecase
	GlobalNF
	GlobalNR
	GlobalNumstrdetect
	GlobalOfilename
	GlobalOfmt
	GlobalOFS
	GlobalORS
	GlobalRlength
	GlobalRS
	GlobalRstart
	GlobalScriptname
	GlobalStriprecspc
	GlobalStripstrspc
	GlobalSubsep

	GlobalCount
)

// globalNames is GlobalVar's display name, in declaration order,
// matching spec §6.5's listing.
var globalNames = [GlobalCount]string{
	GlobalConvfmt:      "CONVFMT",
	GlobalFilename:     "FILENAME",
	GlobalFNR:          "FNR",
	GlobalFS:           "FS",
	GlobalIgnorecase:   "IGNORECASE",
	GlobalNF:           "NF",
	GlobalNR:           "NR",
	GlobalNumstrdetect: "NUMSTRDETECT",
	GlobalOfilename:    "OFILENAME",
	GlobalOfmt:         "OFMT",
	GlobalOFS:          "OFS",
	GlobalORS:          "ORS",
	GlobalRlength:      "RLENGTH",
	GlobalRS:           "RS",
	GlobalRstart:       "RSTART",
	GlobalScriptname:   "SCRIPTNAME",
	GlobalStriprecspc:  "STRIPRECSPC",
	GlobalStripstrspc:  "STRIPSTRSPC",
	GlobalSubsep:       "SUBSEP",
}

// Limits holds the per-category depth limits and stack/log caps of
// spec §6.4's "Other keys".
type Limits struct {
	IncludeDepth    int
	ParseBlockDepth int
	RunBlockDepth   int
	ParseExprDepth  int
	RunExprDepth    int
	RegexBuildDepth int
	RegexMatchDepth int
	StackLimit      int
	LogMask         diag.LogMask
	LogMaxCapacity  int
}

// DefaultLimits provides conservative built-in defaults (matching
// internal/parser's defaultMaxIncludeDepth) for every category spec
// §6.4 names.
func DefaultLimits() Limits {
	return Limits{
		IncludeDepth:    64,
		ParseBlockDepth: 512,
		RunBlockDepth:   512,
		ParseExprDepth:  1024,
		RunExprDepth:    1024,
		RegexBuildDepth: 256,
		RegexMatchDepth: 4096,
		StackLimit:      4096,
	}
}

// Interpreter is the parse-time handle of spec §3.2: option bits,
// the global-variable table, module search paths, and the stream
// table shared by every runtime context spawned from it. It owns no
// AST by itself — Parse returns a fresh *ast.Program each call, which
// the embedder (or a future evaluator) is free to share read-only
// across multiple runtime contexts.
type Interpreter struct {
	opts   Option
	limits Limits

	globalIndex map[string]int
	globalSeq   []string

	moduleDirPrefix  string
	moduleDirPostfix string
	includeDirs      []string

	halt bool

	Deparse parser.DeparseFn

	Streams *rio.Table
}

// New creates an Interpreter bound to io for record-I/O (spec §6.2).
// io may be nil for parse-only use.
func New(opts Option, io rio.RecordIO) *Interpreter {
	it := &Interpreter{
		opts:        opts,
		limits:      DefaultLimits(),
		globalIndex: make(map[string]int, GlobalCount),
	}
	for i := GlobalVar(0); i < GlobalCount; i++ {
		it.addGlobal(globalNames[i])
	}
	if io != nil {
		it.Streams = rio.NewTable(io)
	}
	return it
}

func (it *Interpreter) addGlobal(name string) int {
	if slot, ok := it.globalIndex[name]; ok {
		return slot
	}
	slot := len(it.globalSeq)
	it.globalIndex[name] = slot
	it.globalSeq = append(it.globalSeq, name)
	return slot
}

// deleteGlobal mirrors scope.DeleteGlobal: removing the most recently
// added entry shrinks globalSeq, removing an earlier one tombstones it
// (an empty name Parse skips) so other pre-registered slots keep their
// numbers.
func (it *Interpreter) deleteGlobal(name string) bool {
	slot, ok := it.globalIndex[name]
	if !ok {
		return false
	}
	delete(it.globalIndex, name)
	if slot == len(it.globalSeq)-1 {
		it.globalSeq = it.globalSeq[:slot]
	} else {
		it.globalSeq[slot] = ""
	}
	return true
}

// HasOption reports whether every bit in want is set.
func (it *Interpreter) HasOption(want Option) bool { return it.opts&want == want }

// SetOption ORs extra bits into the trait mask.
func (it *Interpreter) SetOption(extra Option) { it.opts |= extra }

// ClearOption clears bits from the trait mask.
func (it *Interpreter) ClearOption(bits Option) { it.opts &^= bits }

// Limits returns the interpreter's current depth/stack/log limits.
func (it *Interpreter) Limits() Limits { return it.limits }

// SetLimits replaces the interpreter's depth/stack/log limits.
func (it *Interpreter) SetLimits(l Limits) { it.limits = l }

// SetModuleDirs sets the module directory prefix/postfix and include
// search directories (spec §6.4's "Other keys").
func (it *Interpreter) SetModuleDirs(prefix, postfix string, includeDirs []string) {
	it.moduleDirPrefix = prefix
	it.moduleDirPostfix = postfix
	it.includeDirs = includeDirs
}

// Halt sets the cooperative cancellation flag (spec §5 "Cancellation"):
// polled at statement and I/O-callback boundaries, never preempting
// mid-operation.
func (it *Interpreter) Halt() { it.halt = true }

// Halted reports whether Halt has been called.
func (it *Interpreter) Halted() bool { return it.halt }

// AddGlobal pre-registers an embedder global ahead of parsing, so
// scripts can reference it without triggering implicit-variable
// creation even when OptImplicit is off.
func (it *Interpreter) AddGlobal(name string) int { return it.addGlobal(name) }

// FindGlobal reports a pre-registered global's slot without registering
// it.
func (it *Interpreter) FindGlobal(name string) (int, bool) {
	slot, ok := it.globalIndex[name]
	return slot, ok
}

// DeleteGlobal reverts a pre-registration made with AddGlobal, reporting
// whether name was present. Has no effect on an already-parsed Program.
func (it *Interpreter) DeleteGlobal(name string) bool { return it.deleteGlobal(name) }

// Parse compiles src (named for diagnostics as name) into an AST,
// wiring this Interpreter's globals, option-derived pragmas, and
// Deparse hook into the parser (spec §4.3).
func (it *Interpreter) Parse(io lexer.SourceIO, name string) (*ast.Program, error) {
	p, err := parser.New(io, name)
	if err != nil {
		return nil, err
	}
	for _, g := range it.globalSeq {
		if g == "" {
			continue
		}
		p.AddGlobal(g)
	}
	if !it.HasOption(OptImplicit) {
		p.SetImplicitVars(false)
	}
	p.Deparse = it.Deparse
	return p.Parse()
}
