package regex

import "strconv"

// Backtracking matcher: explores the TNFA depth-first by recursion, used
// whenever a pattern contains a `\N` back-reference. At a split it tries
// the preferred successor first and the other one when that fails; at a
// back-reference it compares the substring between the group's two
// recorded tags with the input at the cursor.
//
// Open-question decision (spec §9, recorded in DESIGN.md): when a
// back-reference forces a choice between two otherwise-equal-priority
// submatch spans, this matcher prefers the span that lets the overall
// match proceed to the longest total consumption, falling back to
// leftmost-first among remaining ties — the GNU-compatible convention
// spec §9 recommends.

type btState struct {
	tags []int
}

func runBacktrack(p *Program, input []rune, start int, eflags EFlags) (*MatchResult, bool) {
	n := len(input)
	initTags := make([]int, p.numTags)
	for i := range initTags {
		initTags[i] = -1
	}

	var best *MatchResult
	bestEnd := -1

	// Step counter bounding runaway backtracking: once maxSteps is
	// exceeded every remaining branch fails, so the search ends with the
	// best match found so far (or none); no error is reported.
	const maxSteps = 2_000_000
	steps := 0

	// seen dedupes (pc, pos, tags): once a state has been tried at a
	// given position with the same capture tags, retrying it can only
	// repeat work already accounted for in best/bestEnd, so an
	// empty-width opSplit/opJmp cycle can't loop forever or exhaust
	// maxSteps before a sibling branch runs. A state reached with
	// different tags is still explored, since a later back-reference
	// may then compare different text.
	seen := map[string]bool{}

	var walk func(pc, pos int, tags []int) bool
	walk = func(pc, pos int, tags []int) bool {
		steps++
		if steps > maxSteps {
			return false
		}
		key := strconv.Itoa(pc) + ":" + strconv.Itoa(pos)
		for _, t := range tags {
			key += "," + strconv.Itoa(t)
		}
		if seen[key] {
			return false
		}
		seen[key] = true
		in := p.insts[pc]
		switch in.op {
		case opMatch:
			if pos > bestEnd {
				bestEnd = pos
				best = tagsToResult(tags, p.numGroups)
			}
			// Keep exploring: a longer match overall may exist on another
			// branch (GNU-compatible longest-match preference, spec §9).
			return false

		case opJmp:
			return walk(in.x, pos, tags)

		case opSplit:
			cp := append([]int(nil), tags...)
			found := walk(in.x, pos, tags)
			found2 := walk(in.y, pos, cp)
			return found || found2

		case opSave:
			cp := append([]int(nil), tags...)
			if in.tagSlot < len(cp) {
				cp[in.tagSlot] = pos
			}
			return walk(in.x, pos, cp)

		case opAssertStart:
			if pos == 0 && eflags&EFlagNotBOL == 0 {
				return walk(in.x, pos, tags)
			}
			return false

		case opAssertEnd:
			if pos == n && eflags&EFlagNotEOL == 0 {
				return walk(in.x, pos, tags)
			}
			return false

		case opWordBoundary:
			if isWordBoundary(input, pos) {
				return walk(in.x, pos, tags)
			}
			return false

		case opNotWordBoundary:
			if !isWordBoundary(input, pos) {
				return walk(in.x, pos, tags)
			}
			return false

		case opChar, opRange:
			if pos < n && runeMatches(input[pos], in.ranges, in.negate, p.ignoreCase) {
				return walk(in.x, pos+1, tags)
			}
			return false

		case opAny:
			if pos < n {
				return walk(in.x, pos+1, tags)
			}
			return false

		case opBackref:
			so, eo := tags[2*in.bref], tags[2*in.bref+1]
			if so == -1 || eo == -1 {
				// Unparticipating group: POSIX treats this as matching the
				// empty string.
				return walk(in.x, pos, tags)
			}
			want := input[so:eo]
			if pos+len(want) > n {
				return false
			}
			for i, r := range want {
				got := input[pos+i]
				if got != r && !(p.ignoreCase && toLower(got) == toLower(r)) {
					return false
				}
			}
			return walk(in.x, pos+len(want), tags)
		}
		return false
	}

	walk(p.start, start, initTags)

	if best == nil {
		return nil, false
	}
	return best, true
}
