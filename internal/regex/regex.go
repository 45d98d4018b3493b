package regex

// Matcher selects which simulation strategy runs a compiled Regex
// (spec §4.1 "Matcher { Parallel, Backtracking }").
type Matcher uint8

const (
	MatchAuto Matcher = iota // choose per the program's have_backrefs flag
	MatchParallel
	MatchBacktracking
)

// Regex is the public, compiled regex handle (spec §3.1 "Rex": source
// text + compiled TNFAs (cased + case-insensitive)). Both case variants
// are compiled eagerly so a later case-insensitive match (e.g. IGNORECASE
// toggled per-call) never needs to recompile (spec's supplemented
// feature: dual compiled-program storage per pattern).
type Regex struct {
	source  string
	cased   *Program
	caseless *Program
}

// Source returns the original pattern text (value.Regexp interface).
func (r *Regex) Source() string { return r.source }

// HasBackref reports whether the pattern requires the backtracking
// matcher.
func (r *Regex) HasBackref() bool { return r.cased.hasBackref }

// NewRegex compiles pattern into both cased and case-insensitive TNFAs
// per spec §4.1's compile() contract.
func NewRegex(pattern string, flags CompileFlags) (*Regex, error) {
	cased, err := Compile(pattern, flags&^FlagIgnoreCase)
	if err != nil {
		return nil, err
	}
	caseless, err := Compile(pattern, flags|FlagIgnoreCase)
	if err != nil {
		return nil, err
	}
	return &Regex{source: pattern, cased: cased, caseless: caseless}, nil
}

// Match runs r against input starting at byte-offset-free rune index 0,
// searching for the leftmost match (spec §4.1
// "match(regex, input, eflags) -> {submatches} | no-match").
// ignoreCase selects the case-insensitive TNFA; m forces a specific
// matcher (MatchAuto defers to the backreference flag, and
// MatchBacktracking forces the backtracker; EFlags has no bit for this).
func (r *Regex) Match(input string, ignoreCase bool, eflags EFlags, m Matcher) (*MatchResult, bool) {
	prog := r.cased
	if ignoreCase {
		prog = r.caseless
	}
	runes := []rune(input)
	useBacktrack := m == MatchBacktracking || (m == MatchAuto && prog.hasBackref)

	for start := 0; start <= len(runes); start++ {
		var res *MatchResult
		var ok bool
		if useBacktrack {
			res, ok = runBacktrack(prog, runes, start, eflags)
		} else {
			res, ok = runParallel(prog, runes, start, eflags)
		}
		if ok {
			return res, true
		}
	}
	return nil, false
}

// MatchAt behaves like Match but only attempts a match anchored at the
// given starting rune index, used by the record-I/O engine's RS/FS
// regex scanning (spec §4.4) which needs to know whether a match begins
// exactly at a given offset, not merely whether one exists anywhere
// after it.
func (r *Regex) MatchAt(input []rune, start int, ignoreCase bool, eflags EFlags, m Matcher) (*MatchResult, bool) {
	prog := r.cased
	if ignoreCase {
		prog = r.caseless
	}
	useBacktrack := m == MatchBacktracking || (m == MatchAuto && prog.hasBackref)
	if useBacktrack {
		return runBacktrack(prog, input, start, eflags)
	}
	return runParallel(prog, input, start, eflags)
}

// FindLongestFrom scans input for the longest match that starts at or
// after `from`, returning the earliest such start (POSIX "longest match
// ending before end-of-buffer, else at EOF the last match wins" rule
// from spec §4.4's RS-as-regex record separation). It tries successive
// start positions left to right and returns the first position that
// yields any match, with that match's own length already maximal
// because runParallel/runBacktrack each already select the longest
// match for a fixed start.
func (r *Regex) FindLongestFrom(input []rune, from int, ignoreCase bool) (*MatchResult, int, bool) {
	prog := r.cased
	if ignoreCase {
		prog = r.caseless
	}
	useBacktrack := prog.hasBackref
	for start := from; start <= len(input); start++ {
		var res *MatchResult
		var ok bool
		if useBacktrack {
			res, ok = runBacktrack(prog, input, start, 0)
		} else {
			res, ok = runParallel(prog, input, start, 0)
		}
		if ok {
			return res, start, true
		}
	}
	return nil, -1, false
}
