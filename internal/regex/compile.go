package regex

import "github.com/hyung-hwan/hawk-sub000/internal/diag"

// opKind is one TNFA transition kind, lowered from the AST by a
// Thompson construction. Grounded on coregx-coregex's patch-list
// Builder technique (AddEpsilon/AddByteRange/Patch), adapted from a
// byte-range NFA to a tagged rune-range NFA carrying submatch tags
// (spec §4.1's tag_list per transition).
type opKind uint8

const (
	opChar opKind = iota
	opRange
	opAny
	opSplit // two successors, priority-ordered (first = higher priority)
	opJmp
	opSave // records current position into tags[n]
	opMatch
	opAssertStart
	opAssertEnd
	opWordBoundary
	opNotWordBoundary
	opBackref
)

type inst struct {
	op      opKind
	ranges  []runeRange
	negate  bool
	x, y    int // successors for split/jmp; y unused otherwise
	tagSlot int // for opSave
	bref    int // for opBackref: group index
}

// Program is a compiled TNFA (spec §3.4/§4.1): a tagged transition
// vector with a submatch-descriptor table (NumGroups) and a
// have_backrefs flag selecting which matcher (Parallel vs
// Backtracking) must run it (spec §4.1 "Matcher" enum).
type Program struct {
	insts       []inst
	start       int
	numGroups   int // capture groups, not counting group 0
	numTags     int // len(tags) needed: 2*(numGroups+1)
	hasBackref  bool
	ignoreCase  bool
	source      string
}

// Source returns the original pattern text (value.Regexp interface).
func (p *Program) Source() string { return p.source }

type compiler struct {
	insts []inst
}

func (c *compiler) emit(i inst) int {
	c.insts = append(c.insts, i)
	return len(c.insts) - 1
}

// Compile parses and lowers pattern into a TNFA per spec §4.1
// "compile(pattern, compile_flags) -> Regex | error". Bounds '{m,n}' are
// always parsed: FlagBound is added to flags whatever the caller passes.
func Compile(pattern string, flags CompileFlags) (*Program, error) {
	ast, ngroups, err := parsePattern(pattern, flags|FlagBound)
	if err != nil {
		return nil, err
	}
	c := &compiler{}
	// Tag 0/1 bracket the whole match (group 0); tags 2i/2i+1 bracket
	// group i, matching tre's minimising-start/maximising-end
	// convention (spec §4.1 "each tag is either minimising or
	// maximising").
	startTag := c.emit(inst{op: opSave, tagSlot: 0})
	bodyStart, bodyEnd, err := c.compileNode(ast)
	if err != nil {
		return nil, err
	}
	c.patch(startTag, bodyStart)
	endTag := c.emit(inst{op: opSave, tagSlot: 1})
	c.patchEnd(bodyEnd, endTag)
	matchIdx := c.emit(inst{op: opMatch})
	c.insts[endTag].x = matchIdx

	prog := &Program{
		insts:      c.insts,
		start:      startTag,
		numGroups:  ngroups,
		numTags:    2 * (ngroups + 1),
		hasBackref: hasBackref(ast),
		ignoreCase: flags&FlagIgnoreCase != 0,
		source:     pattern,
	}
	return prog, nil
}

// patch sets the successor of a dangling instruction produced by
// compileNode; for split/jmp-shaped tails, frag helpers already wired
// their own x; this only covers the simple opSave->body link.
func (c *compiler) patch(from, to int) {
	c.insts[from].x = to
}

func (c *compiler) patchEnd(ends []int, to int) {
	for _, e := range ends {
		if c.insts[e].x == -1 {
			c.insts[e].x = to
		} else if c.insts[e].op == opSplit && c.insts[e].y == -1 {
			c.insts[e].y = to
		}
	}
}

// compileNode lowers one AST node into instructions, returning the
// fragment's entry point and a list of dangling-exit instruction
// indices (patch list, the coregx-coregex technique).
func (c *compiler) compileNode(n *node) (start int, ends []int, err error) {
	switch n.kind {
	case nEmpty:
		idx := c.emit(inst{op: opJmp, x: -1})
		return idx, []int{idx}, nil

	case nLiteral:
		idx := c.emit(inst{op: opChar, ranges: []runeRange{{n.rune_, n.rune_}}, x: -1})
		return idx, []int{idx}, nil

	case nAny:
		idx := c.emit(inst{op: opAny, x: -1})
		return idx, []int{idx}, nil

	case nClass:
		idx := c.emit(inst{op: opRange, ranges: n.ranges, negate: n.negate, x: -1})
		return idx, []int{idx}, nil

	case nAnchorStart:
		idx := c.emit(inst{op: opAssertStart, x: -1})
		return idx, []int{idx}, nil

	case nAnchorEnd:
		idx := c.emit(inst{op: opAssertEnd, x: -1})
		return idx, []int{idx}, nil

	case nWordBoundary:
		idx := c.emit(inst{op: opWordBoundary, x: -1})
		return idx, []int{idx}, nil

	case nNotWordBoundary:
		idx := c.emit(inst{op: opNotWordBoundary, x: -1})
		return idx, []int{idx}, nil

	case nBackref:
		if n.index < 1 || n.index > 9 {
			return 0, nil, newErr(diag.BadSubReg, "invalid back-reference \\%d", n.index)
		}
		idx := c.emit(inst{op: opBackref, bref: n.index, x: -1})
		return idx, []int{idx}, nil

	case nGroup:
		startSave := c.emit(inst{op: opSave, tagSlot: 2 * n.index})
		innerStart, innerEnds, err := c.compileNode(n.sub)
		if err != nil {
			return 0, nil, err
		}
		c.patch(startSave, innerStart)
		endSave := c.emit(inst{op: opSave, tagSlot: 2*n.index + 1, x: -1})
		c.patchEnd(innerEnds, endSave)
		return startSave, []int{endSave}, nil

	case nCatenation:
		var curStart = -1
		var curEnds []int
		for _, s := range n.subs {
			st, en, err := c.compileNode(s)
			if err != nil {
				return 0, nil, err
			}
			if curStart == -1 {
				curStart = st
			} else {
				c.patchEnd(curEnds, st)
			}
			curEnds = en
		}
		if curStart == -1 {
			idx := c.emit(inst{op: opJmp, x: -1})
			return idx, []int{idx}, nil
		}
		return curStart, curEnds, nil

	case nUnion:
		var ends []int
		// Build a right-leaning chain of splits so the first alternative
		// is always the higher-priority thread (spec's "tag-order merge
		// rule" leans on alternation order for leftmost-first submatch
		// preference among otherwise-tied candidates).
		var build func(i int) (int, error)
		build = func(i int) (int, error) {
			st, en, err := c.compileNode(n.subs[i])
			if err != nil {
				return 0, err
			}
			ends = append(ends, en...)
			if i == len(n.subs)-1 {
				return st, nil
			}
			rest, err := build(i + 1)
			if err != nil {
				return 0, err
			}
			sp := c.emit(inst{op: opSplit, x: st, y: rest})
			return sp, nil
		}
		st, err := build(0)
		if err != nil {
			return 0, nil, err
		}
		return st, ends, nil

	case nIteration:
		return c.compileIteration(n)

	default:
		return 0, nil, newErr(diag.BadPattern, "unsupported regex node")
	}
}

// compileIteration expands {min,max} into a catenation of mandatory
// copies followed by optional copies, then wraps an unbounded tail in
// a classic Kleene-star split (grounded on the same technique
// coregx-coregex uses for OpStar/OpPlus/OpRepeat).
func (c *compiler) compileIteration(n *node) (start int, ends []int, err error) {
	min, max := n.min, n.max

	var curStart = -1
	var curEnds []int
	appendFrag := func(st int, en []int) {
		if curStart == -1 {
			curStart = st
		} else {
			c.patchEnd(curEnds, st)
		}
		curEnds = en
	}

	for i := 0; i < min; i++ {
		st, en, err := c.compileNode(n.sub)
		if err != nil {
			return 0, nil, err
		}
		appendFrag(st, en)
	}

	if max == -1 {
		// Unbounded tail: Kleene star (if min==0) or plus-after-min.
		splitStart, en, err := c.compileStar(n.sub, n.lazy)
		if err != nil {
			return 0, nil, err
		}
		if curStart == -1 {
			curStart, curEnds = splitStart, en
		} else {
			c.patchEnd(curEnds, splitStart)
			curEnds = en
		}
	} else {
		for i := min; i < max; i++ {
			st, en, err := c.compileOptional(n.sub, n.lazy)
			if err != nil {
				return 0, nil, err
			}
			if curStart == -1 {
				curStart = st
			} else {
				c.patchEnd(curEnds, st)
			}
			curEnds = en
		}
	}

	if curStart == -1 {
		idx := c.emit(inst{op: opJmp, x: -1})
		return idx, []int{idx}, nil
	}
	return curStart, curEnds, nil
}

// compileStar builds a Kleene star fragment: split(body, out); body
// loops back to the split. lazy swaps which successor is tried first.
func (c *compiler) compileStar(sub *node, lazy bool) (start int, ends []int, err error) {
	sp := c.emit(inst{op: opSplit, x: -1, y: -1})
	bodyStart, bodyEnds, err := c.compileNode(sub)
	if err != nil {
		return 0, nil, err
	}
	c.patchEnd(bodyEnds, sp)
	if lazy {
		c.insts[sp].x, c.insts[sp].y = -1, bodyStart
	} else {
		c.insts[sp].x, c.insts[sp].y = bodyStart, -1
	}
	return sp, []int{sp}, nil
}

// compileOptional builds a '?'-shaped fragment used to expand {m,n}'s
// optional tail copies.
func (c *compiler) compileOptional(sub *node, lazy bool) (start int, ends []int, err error) {
	sp := c.emit(inst{op: opSplit, x: -1, y: -1})
	bodyStart, bodyEnds, err := c.compileNode(sub)
	if err != nil {
		return 0, nil, err
	}
	if lazy {
		c.insts[sp].x, c.insts[sp].y = -1, bodyStart
	} else {
		c.insts[sp].x, c.insts[sp].y = bodyStart, -1
	}
	outs := append([]int{sp}, bodyEnds...)
	return sp, outs, nil
}
