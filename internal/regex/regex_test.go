package regex

import "testing"

func mustCompile(t *testing.T, pattern string) *Regex {
	t.Helper()
	r, err := NewRegex(pattern, FlagExtended)
	if err != nil {
		t.Fatalf("NewRegex(%q): %v", pattern, err)
	}
	return r
}

func TestLiteralMatch(t *testing.T) {
	r := mustCompile(t, "abc")
	res, ok := r.Match("xxabcyy", false, 0, MatchAuto)
	if !ok {
		t.Fatalf("expected match")
	}
	so, eo := res.Submatches[0][0], res.Submatches[0][1]
	if "xxabcyy"[so:eo] != "abc" {
		t.Fatalf("got %q, want abc", "xxabcyy"[so:eo])
	}
}

func TestUnionLeftmostLongest(t *testing.T) {
	// RS="XY+" style longest-match scenario (spec §8.3 scenario 2):
	// "XY" | "XYY" against "aXYYb" must prefer the longer "XYY".
	r := mustCompile(t, "XY|XYY")
	res, ok := r.Match("aXYYb", false, 0, MatchAuto)
	if !ok {
		t.Fatalf("expected match")
	}
	so, eo := res.Submatches[0][0], res.Submatches[0][1]
	got := "aXYYb"[so:eo]
	if got != "XYY" {
		t.Fatalf("got %q, want XYY (POSIX leftmost-longest)", got)
	}
}

func TestBoundedRepeat(t *testing.T) {
	r := mustCompile(t, "a{2,3}")
	res, ok := r.Match("aaaa", false, 0, MatchAuto)
	if !ok {
		t.Fatalf("expected match")
	}
	so, eo := res.Submatches[0][0], res.Submatches[0][1]
	if eo-so != 3 {
		t.Fatalf("a{2,3} against aaaa matched length %d, want 3", eo-so)
	}
}

func TestCaptureGroups(t *testing.T) {
	r := mustCompile(t, "(a+)(b+)")
	res, ok := r.Match("xaaabbby", false, 0, MatchAuto)
	if !ok {
		t.Fatalf("expected match")
	}
	g1 := res.Submatches[1]
	g2 := res.Submatches[2]
	if "xaaabbby"[g1[0]:g1[1]] != "aaa" {
		t.Fatalf("group1 = %q, want aaa", "xaaabbby"[g1[0]:g1[1]])
	}
	if "xaaabbby"[g2[0]:g2[1]] != "bbb" {
		t.Fatalf("group2 = %q, want bbb", "xaaabbby"[g2[0]:g2[1]])
	}
}

func TestBackreference(t *testing.T) {
	// A back-reference must repeat the text its group captured.
	r := mustCompile(t, "(ab)\\1")
	if !r.HasBackref() {
		t.Fatalf("expected HasBackref true")
	}
	res, ok := r.Match("xababy", false, 0, MatchAuto)
	if !ok {
		t.Fatalf("expected match")
	}
	so, eo := res.Submatches[0][0], res.Submatches[0][1]
	if "xababy"[so:eo] != "abab" {
		t.Fatalf("got %q, want abab", "xababy"[so:eo])
	}
}

func TestBackreferenceNoMatch(t *testing.T) {
	r := mustCompile(t, "(ab)\\1")
	_, ok := r.Match("xabacy", false, 0, MatchAuto)
	if ok {
		t.Fatalf("expected no match for abac")
	}
}

func TestBracketNegation(t *testing.T) {
	r := mustCompile(t, "[^0-9]+")
	res, ok := r.Match("123abc456", false, 0, MatchAuto)
	if !ok {
		t.Fatalf("expected match")
	}
	so, eo := res.Submatches[0][0], res.Submatches[0][1]
	if "123abc456"[so:eo] != "abc" {
		t.Fatalf("got %q, want abc", "123abc456"[so:eo])
	}
}

func TestNamedClass(t *testing.T) {
	r := mustCompile(t, "[[:digit:]]+")
	res, ok := r.Match("ab123cd", false, 0, MatchAuto)
	if !ok {
		t.Fatalf("expected match")
	}
	so, eo := res.Submatches[0][0], res.Submatches[0][1]
	if "ab123cd"[so:eo] != "123" {
		t.Fatalf("got %q, want 123", "ab123cd"[so:eo])
	}
}

func TestIgnoreCase(t *testing.T) {
	r := mustCompile(t, "abc")
	_, ok := r.Match("ABC", false, 0, MatchAuto)
	if ok {
		t.Fatalf("cased match should not match ABC")
	}
	res, ok := r.Match("ABC", true, 0, MatchAuto)
	if !ok {
		t.Fatalf("caseless match should match ABC")
	}
	so, eo := res.Submatches[0][0], res.Submatches[0][1]
	if "ABC"[so:eo] != "ABC" {
		t.Fatalf("got %q, want ABC", "ABC"[so:eo])
	}
}

func TestAnchors(t *testing.T) {
	r := mustCompile(t, "^abc$")
	if _, ok := r.Match("abc", false, 0, MatchAuto); !ok {
		t.Fatalf("expected match for exact anchor")
	}
	if _, ok := r.Match("xabc", false, 0, MatchAuto); ok {
		t.Fatalf("^ should anchor at start")
	}
}

func TestWordBoundary(t *testing.T) {
	r := mustCompile(t, "\\bcat\\b")
	if _, ok := r.Match("the cat sat", false, 0, MatchAuto); !ok {
		t.Fatalf("expected boundary match")
	}
	if _, ok := r.Match("concatenate", false, 0, MatchAuto); ok {
		t.Fatalf("word boundary should reject mid-word match")
	}
}

func TestBadBracketError(t *testing.T) {
	_, err := NewRegex("[abc", FlagExtended)
	if err == nil {
		t.Fatalf("expected error for unterminated bracket")
	}
}

func TestInvariantSubmatchNesting(t *testing.T) {
	// spec §8.1: every inner submatch is contained in its parent.
	r := mustCompile(t, "((a)(b))")
	res, ok := r.Match("ab", false, 0, MatchAuto)
	if !ok {
		t.Fatalf("expected match")
	}
	whole := res.Submatches[1]
	a := res.Submatches[2]
	b := res.Submatches[3]
	if !(whole[0] <= a[0] && a[1] <= whole[1]) {
		t.Fatalf("group 'a' not contained in whole: %v vs %v", a, whole)
	}
	if !(whole[0] <= b[0] && b[1] <= whole[1]) {
		t.Fatalf("group 'b' not contained in whole: %v vs %v", b, whole)
	}
}

func FuzzCompileNoPanic(f *testing.F) {
	seeds := []string{"abc", "a|b", "a*b+c?", "[a-z]+", "(a)(b)", "\\1", "{1,3}", "a{2,}", "[[:alpha:]]", "^$\\b\\B"}
	for _, s := range seeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, pattern string) {
		if len(pattern) > 64 {
			return
		}
		r, err := NewRegex(pattern, FlagExtended)
		if err != nil {
			return
		}
		_, _ = r.Match("some test input 123", false, 0, MatchAuto)
	})
}
