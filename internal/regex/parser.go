package regex

import (
	"strings"
	"unicode"

	"github.com/hyung-hwan/hawk-sub000/internal/diag"
)

// CompileFlags mirrors spec §4.1's compile_flags bitset.
type CompileFlags uint32

const (
	FlagExtended  CompileFlags = 1 << iota // POSIX extended syntax (always on; basic RE not supported)
	FlagIgnoreCase
	FlagBound // '{m,n}' bounds enabled (REXBOUND); Compile always sets it
	FlagNewline
)

type parser struct {
	src     []rune
	pos     int
	flags   CompileFlags
	ngroups int
}

// parsePattern parses pattern into an AST per spec §4.1: "supports
// POSIX extended syntax, bracket expressions with [:class:], bounds
// {m,n} when REXBOUND is set, back-references \1-\9, anchors ^/$, word
// boundaries, and case-insensitive compilation."
func parsePattern(pattern string, flags CompileFlags) (*node, int, error) {
	p := &parser{src: []rune(pattern), flags: flags}
	n, err := p.parseUnion()
	if err != nil {
		return nil, 0, err
	}
	if p.pos != len(p.src) {
		return nil, 0, newErr(diag.BadParen, "unexpected %q at position %d", p.src[p.pos], p.pos)
	}
	return n, p.ngroups, nil
}

func (p *parser) peek() (rune, bool) {
	if p.pos >= len(p.src) {
		return 0, false
	}
	return p.src[p.pos], true
}

func (p *parser) advance() rune {
	r := p.src[p.pos]
	p.pos++
	return r
}

// parseUnion handles '|' alternation, the lowest-precedence ERE
// construct.
func (p *parser) parseUnion() (*node, error) {
	first, err := p.parseCatenation()
	if err != nil {
		return nil, err
	}
	subs := []*node{first}
	for {
		c, ok := p.peek()
		if !ok || c != '|' {
			break
		}
		p.advance()
		next, err := p.parseCatenation()
		if err != nil {
			return nil, err
		}
		subs = append(subs, next)
	}
	if len(subs) == 1 {
		return first, nil
	}
	return &node{kind: nUnion, subs: subs}, nil
}

func (p *parser) atCatenationEnd() bool {
	c, ok := p.peek()
	if !ok {
		return true
	}
	return c == '|' || c == ')'
}

func (p *parser) parseCatenation() (*node, error) {
	var subs []*node
	for !p.atCatenationEnd() {
		n, err := p.parseIteration()
		if err != nil {
			return nil, err
		}
		subs = append(subs, n)
	}
	if len(subs) == 0 {
		return &node{kind: nEmpty}, nil
	}
	if len(subs) == 1 {
		return subs[0], nil
	}
	return &node{kind: nCatenation, subs: subs}, nil
}

// parseIteration parses one atom followed by an optional repetition
// operator: '*', '+', '?', or (when FlagBound is set) '{m,n}'.
func (p *parser) parseIteration() (*node, error) {
	atom, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		c, ok := p.peek()
		if !ok {
			return atom, nil
		}
		switch c {
		case '*':
			p.advance()
			atom = &node{kind: nIteration, sub: atom, min: 0, max: -1, lazy: p.consumeLazy()}
		case '+':
			p.advance()
			atom = &node{kind: nIteration, sub: atom, min: 1, max: -1, lazy: p.consumeLazy()}
		case '?':
			p.advance()
			atom = &node{kind: nIteration, sub: atom, min: 0, max: 1, lazy: p.consumeLazy()}
		case '{':
			if p.flags&FlagBound == 0 {
				return atom, nil
			}
			save := p.pos
			min, max, ok, err := p.tryParseBound()
			if err != nil {
				return nil, err
			}
			if !ok {
				p.pos = save
				return atom, nil
			}
			atom = &node{kind: nIteration, sub: atom, min: min, max: max, lazy: p.consumeLazy()}
		default:
			return atom, nil
		}
	}
}

// consumeLazy allows a trailing '?' to mark a non-greedy repetition,
// an extension the backtracker honors but which does not affect POSIX
// leftmost-longest semantics in the parallel matcher (spec §4.1 notes
// only POSIX-ERE + \N + {m,n} are guaranteed; laziness is a backtracker
// nicety grounded on the common `*?`/`+?` convention).
func (p *parser) consumeLazy() bool {
	c, ok := p.peek()
	if ok && c == '?' {
		p.advance()
		return true
	}
	return false
}

// tryParseBound parses "{m}", "{m,}", "{m,n}" starting at '{'.
func (p *parser) tryParseBound() (min, max int, ok bool, err error) {
	p.advance() // consume '{'
	start := p.pos
	min, n1 := p.parseDigits()
	if n1 == 0 {
		return 0, 0, false, nil
	}
	c, hasMore := p.peek()
	if hasMore && c == ',' {
		p.advance()
		max, n2 := p.parseDigits()
		if n2 == 0 {
			max = -1
		}
		c2, ok2 := p.peek()
		if !ok2 || c2 != '}' {
			p.pos = start
			return 0, 0, false, nil
		}
		p.advance()
		if max != -1 && max < min {
			return 0, 0, false, newErr(diag.BadBrace, "invalid repeat bound {%d,%d}: max < min", min, max)
		}
		return min, max, true, nil
	}
	if !hasMore || c != '}' {
		p.pos = start
		return 0, 0, false, nil
	}
	p.advance()
	return min, min, true, nil
}

func (p *parser) parseDigits() (int, int) {
	start := p.pos
	n := 0
	for {
		c, ok := p.peek()
		if !ok || c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
		p.advance()
	}
	return n, p.pos - start
}

func (p *parser) parseAtom() (*node, error) {
	c, ok := p.peek()
	if !ok {
		return &node{kind: nEmpty}, nil
	}
	switch c {
	case '(':
		p.advance()
		p.ngroups++
		idx := p.ngroups
		inner, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		c2, ok2 := p.peek()
		if !ok2 || c2 != ')' {
			return nil, newErr(diag.BadParen, "unmatched '(' (group %d)", idx)
		}
		p.advance()
		return &node{kind: nGroup, sub: inner, index: idx}, nil
	case '.':
		p.advance()
		return &node{kind: nAny}, nil
	case '^':
		p.advance()
		return &node{kind: nAnchorStart}, nil
	case '$':
		p.advance()
		return &node{kind: nAnchorEnd}, nil
	case '[':
		return p.parseBracket()
	case '\\':
		return p.parseEscape()
	case ')':
		return nil, newErr(diag.BadParen, "unexpected ')'")
	default:
		p.advance()
		return &node{kind: nLiteral, rune_: c}, nil
	}
}

// parseEscape handles POSIX-ERE escapes plus hawk's extensions:
// `\1`-`\9` backreferences, `\b`/`\B` word boundaries, and the common
// C-style control escapes.
func (p *parser) parseEscape() (*node, error) {
	p.advance() // consume backslash
	c, ok := p.peek()
	if !ok {
		return nil, newErr(diag.BadEscape, "trailing backslash")
	}
	p.advance()
	switch {
	case c >= '1' && c <= '9':
		return &node{kind: nBackref, index: int(c - '0')}, nil
	case c == 'b':
		return &node{kind: nWordBoundary}, nil
	case c == 'B':
		return &node{kind: nNotWordBoundary}, nil
	case c == 'n':
		return &node{kind: nLiteral, rune_: '\n'}, nil
	case c == 't':
		return &node{kind: nLiteral, rune_: '\t'}, nil
	case c == 'r':
		return &node{kind: nLiteral, rune_: '\r'}, nil
	default:
		return &node{kind: nLiteral, rune_: c}, nil
	}
}

// parseBracket parses a POSIX bracket expression: "[...]", "[^...]",
// ranges "a-z", and named classes "[:alpha:]" etc (spec §4.1).
func (p *parser) parseBracket() (*node, error) {
	p.advance() // consume '['
	negate := false
	if c, ok := p.peek(); ok && c == '^' {
		negate = true
		p.advance()
	}
	var ranges []runeRange
	first := true
	for {
		c, ok := p.peek()
		if !ok {
			return nil, newErr(diag.BadBracket, "unterminated bracket expression")
		}
		if c == ']' && !first {
			p.advance()
			break
		}
		first = false
		if c == '[' && p.pos+1 < len(p.src) && p.src[p.pos+1] == ':' {
			rs, err := p.parseNamedClass()
			if err != nil {
				return nil, err
			}
			ranges = append(ranges, rs...)
			continue
		}
		lo := p.advance()
		if lo == '\\' {
			if nc, ok := p.peek(); ok {
				lo = unescapeBracketRune(nc)
				p.advance()
			}
		}
		if c2, ok := p.peek(); ok && c2 == '-' && p.pos+1 < len(p.src) && p.src[p.pos+1] != ']' {
			p.advance() // consume '-'
			hi := p.advance()
			if hi == '\\' {
				if nc, ok := p.peek(); ok {
					hi = unescapeBracketRune(nc)
					p.advance()
				}
			}
			if hi < lo {
				return nil, newErr(diag.BadRange, "invalid range %q-%q", lo, hi)
			}
			ranges = append(ranges, runeRange{lo, hi})
		} else {
			ranges = append(ranges, runeRange{lo, lo})
		}
	}
	return &node{kind: nClass, ranges: ranges, negate: negate}, nil
}

func unescapeBracketRune(c rune) rune {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return c
	}
}

func (p *parser) parseNamedClass() ([]runeRange, error) {
	// p.pos is at '[', p.pos+1 is ':'
	p.advance()
	p.advance()
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] != ':' {
		p.pos++
	}
	if p.pos >= len(p.src) {
		return nil, newErr(diag.BadCtype, "unterminated character class")
	}
	name := string(p.src[start:p.pos])
	p.pos++ // consume ':'
	if p.pos >= len(p.src) || p.src[p.pos] != ']' {
		return nil, newErr(diag.BadCtype, "malformed [:%s:]", name)
	}
	p.pos++ // consume ']'
	ranges, ok := namedClassRanges(name)
	if !ok {
		return nil, newErr(diag.BadCtype, "unknown character class [:%s:]", name)
	}
	return ranges, nil
}

// namedClassRanges implements the POSIX classes spec §4.1 requires
// ("bracket expressions with [:class:]"). Classification follows
// ASCII-range semantics per spec §3.4's "ASCII-like ranges" collation
// scope (Non-goals excludes full Unicode collation).
func namedClassRanges(name string) ([]runeRange, bool) {
	switch strings.ToLower(name) {
	case "alpha":
		return []runeRange{{'A', 'Z'}, {'a', 'z'}}, true
	case "digit":
		return []runeRange{{'0', '9'}}, true
	case "alnum":
		return []runeRange{{'A', 'Z'}, {'a', 'z'}, {'0', '9'}}, true
	case "upper":
		return []runeRange{{'A', 'Z'}}, true
	case "lower":
		return []runeRange{{'a', 'z'}}, true
	case "space":
		return []runeRange{{' ', ' '}, {'\t', '\t'}, {'\n', '\n'}, {'\r', '\r'}, {'\v', '\v'}, {'\f', '\f'}}, true
	case "blank":
		return []runeRange{{' ', ' '}, {'\t', '\t'}}, true
	case "punct":
		return []runeRange{{'!', '/'}, {':', '@'}, {'[', '`'}, {'{', '~'}}, true
	case "cntrl":
		return []runeRange{{0, 0x1f}, {0x7f, 0x7f}}, true
	case "print":
		return []runeRange{{' ', '~'}}, true
	case "graph":
		return []runeRange{{'!', '~'}}, true
	case "xdigit":
		return []runeRange{{'0', '9'}, {'A', 'F'}, {'a', 'f'}}, true
	default:
		return nil, false
	}
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
