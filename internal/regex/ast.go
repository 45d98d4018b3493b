// Package regex implements hawk's POSIX-compatible tagged-NFA engine
// (spec §3.4, §4.1): a regex AST parser, a tag-carrying Thompson
// compiler, a parallel (Pike-VM-style) matcher for backreference-free
// patterns, and a backtracking matcher for patterns using `\1`-`\9`.
//
// The compiler builds the NFA with a StateID/patch-list construction
// (states allocated up front, dangling out-edges patched once the
// destination is known). Tag semantics (minimising/maximising submatch
// tags, the TNFA data model) follow a conventional POSIX leftmost-
// longest tagged-NFA design: nothing in the standard library or a
// backreference-free engine (e.g. RE2-style regexp/syntax) can express
// backreferences, so the tagged-NFA construction and tag-ordering are
// hand-built here (spec §1 names them as the non-trivial algorithms
// this module must own).
package regex

import "github.com/hyung-hwan/hawk-sub000/internal/diag"

// nodeKind enumerates the regex AST shapes from spec §4.1: "the
// compiler parses the regex into an AST of {Literal, Iteration, Union,
// Catenation}".
type nodeKind uint8

const (
	nLiteral nodeKind = iota
	nAny
	nClass
	nCatenation
	nUnion
	nIteration
	nGroup   // capturing group, wraps a subtree with a submatch index
	nBackref // \1-\9
	nAnchorStart
	nAnchorEnd
	nWordBoundary
	nNotWordBoundary
	nEmpty
)

// node is one AST node. Fields are interpreted per kind: Literal uses
// Rune; Class uses Ranges/Negate; Iteration uses Sub/Min/Max
// (Max == -1 means unbounded); Union/Catenation use Subs; Group uses Sub
// and Index; Backref uses Index.
type node struct {
	kind   nodeKind
	rune_  rune
	ranges []runeRange
	negate bool
	sub    *node
	subs   []*node
	min    int
	max    int // -1 = unbounded
	index  int // submatch index for Group/Backref (1-based; 0 unused)
	lazy   bool
}

type runeRange struct {
	lo, hi rune
}

// hasBackref reports whether the tree contains a \N backreference,
// which forces the backtracking matcher per spec §4.1 "have_backrefs".
func hasBackref(n *node) bool {
	found := false
	var walk func(*node)
	walk = func(n *node) {
		if n == nil || found {
			return
		}
		if n.kind == nBackref {
			found = true
			return
		}
		if n.sub != nil {
			walk(n.sub)
		}
		for _, s := range n.subs {
			walk(s)
		}
	}
	walk(n)
	return found
}

func newErr(code diag.Code, format string, args ...any) error {
	return diag.New(code, format, args...)
}
