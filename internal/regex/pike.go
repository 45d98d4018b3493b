package regex

// Parallel matcher: a Pike-VM-style simulation run in lockstep over the
// TNFA's instruction list (spec §4.1 "Two matchers sharing a TNFA...
// Parallel" / "a parallel simulator (no back-references)").
//
// POSIX leftmost-longest semantics (spec §4.1's "tag-order merge rule")
// are approximated by letting every thread run to completion instead of
// stopping at the first match (Perl/PCRE leftmost-first behavior): a
// candidate match is only replaced by one that ends at a strictly later
// position, so the longest match overall wins; among threads that would
// produce the same end position, thread-list priority (earlier-added
// wins, which follows alternation and greedy-repetition order from the
// compiler) breaks the tie. This mirrors tre's minimising/maximising tag
// merge rule without needing Laurikari's tag-priority algebra spelled
// out symbol-for-symbol.
type thread struct {
	pc   int
	tags []int
}

// EFlags mirrors spec §4.1's eflags bitset for match().
type EFlags uint32

const (
	EFlagNotBOL EFlags = 1 << iota // NOTBOL: ^ does not match at this start
	EFlagNotEOL                    // NOTEOL: $ does not match at this end
)

// MatchResult carries submatch offsets per spec §4.1's
// "{submatches: [(so,eo), ...]}" contract. Offsets are -1 for
// unparticipating groups.
type MatchResult struct {
	Submatches [][2]int // index 0 is the whole match
}

// runParallel finds the leftmost-longest match starting at exactly
// input[start:] (the caller scans start positions per spec §4.1's
// unanchored search contract).
func runParallel(p *Program, input []rune, start int, eflags EFlags) (*MatchResult, bool) {
	n := len(input)
	var best *MatchResult
	bestEnd := -1

	initTags := make([]int, p.numTags)
	for i := range initTags {
		initTags[i] = -1
	}
	threads := closure(p, []thread{{pc: p.start, tags: initTags}}, input, start, n, eflags)

	pos := start
	for {
		for _, th := range threads {
			if p.insts[th.pc].op == opMatch && pos > bestEnd {
				bestEnd = pos
				best = tagsToResult(th.tags, p.numGroups)
			}
		}
		if pos >= n || len(threads) == 0 {
			break
		}
		c := input[pos]
		var stepped []thread
		seen := map[int]bool{}
		for _, th := range threads {
			in := p.insts[th.pc]
			matched := false
			switch in.op {
			case opChar, opRange:
				matched = runeMatches(c, in.ranges, in.negate, p.ignoreCase)
			case opAny:
				matched = true
			}
			if matched && !seen[in.x] {
				seen[in.x] = true
				stepped = append(stepped, thread{pc: in.x, tags: th.tags})
			}
		}
		pos++
		threads = closure(p, stepped, input, pos, n, eflags)
	}

	if best == nil {
		return nil, false
	}
	return best, true
}

// closure expands a thread list through epsilon transitions (split,
// jmp, save, and zero-width assertions) at position pos, deduplicating
// by pc so simulation stays linear in program size per step (the
// standard Pike-VM invariant).
func closure(p *Program, seed []thread, input []rune, pos, n int, eflags EFlags) []thread {
	var out []thread
	visited := map[int]bool{}
	var add func(pc int, tags []int)
	add = func(pc int, tags []int) {
		if visited[pc] {
			return
		}
		visited[pc] = true
		in := p.insts[pc]
		switch in.op {
		case opJmp:
			add(in.x, tags)
		case opSplit:
			cp := append([]int(nil), tags...)
			add(in.x, tags)
			add(in.y, cp)
		case opSave:
			cp := append([]int(nil), tags...)
			if in.tagSlot < len(cp) {
				cp[in.tagSlot] = pos
			}
			add(in.x, cp)
		case opAssertStart:
			if pos == 0 && eflags&EFlagNotBOL == 0 {
				add(in.x, tags)
			}
		case opAssertEnd:
			if pos == n && eflags&EFlagNotEOL == 0 {
				add(in.x, tags)
			}
		case opWordBoundary:
			if isWordBoundary(input, pos) {
				add(in.x, tags)
			}
		case opNotWordBoundary:
			if !isWordBoundary(input, pos) {
				add(in.x, tags)
			}
		case opBackref:
			// The parallel matcher never runs programs with backrefs
			// (Compile's hasBackref flag routes those to the backtracker),
			// but guard anyway rather than mis-stepping silently.
		default:
			out = append(out, thread{pc: pc, tags: tags})
		}
	}
	for _, th := range seed {
		add(th.pc, th.tags)
	}
	return out
}

func tagsToResult(tags []int, numGroups int) *MatchResult {
	subs := make([][2]int, numGroups+1)
	for i := 0; i <= numGroups; i++ {
		so, eo := -1, -1
		if 2*i < len(tags) {
			so = tags[2*i]
		}
		if 2*i+1 < len(tags) {
			eo = tags[2*i+1]
		}
		if so == -1 || eo == -1 {
			subs[i] = [2]int{-1, -1}
		} else {
			subs[i] = [2]int{so, eo}
		}
	}
	return &MatchResult{Submatches: subs}
}

func isWordBoundary(input []rune, pos int) bool {
	before := pos > 0 && isWordRune(input[pos-1])
	after := pos < len(input) && isWordRune(input[pos])
	return before != after
}

func runeMatches(c rune, ranges []runeRange, negate, ignoreCase bool) bool {
	in := false
	for _, r := range ranges {
		if c >= r.lo && c <= r.hi {
			in = true
			break
		}
		if ignoreCase {
			lc, uc := toLower(c), toUpper(c)
			if (lc >= r.lo && lc <= r.hi) || (uc >= r.lo && uc <= r.hi) {
				in = true
				break
			}
		}
	}
	if negate {
		return !in
	}
	return in
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}
