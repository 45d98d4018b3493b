package value

import "testing"

// Covers spec §8.1's refcount invariants: RefUp/RefDown are inverses,
// static singletons are immune, and a Map releases a value that MapSet
// displaces.

func TestRefUpDownAreInverses(t *testing.T) {
	v := MakeStrString("hello")
	if got := RefCount(v); got != 1 {
		t.Fatalf("fresh Str refcount = %d, want 1", got)
	}
	RefUp(v)
	if got := RefCount(v); got != 2 {
		t.Fatalf("after RefUp refcount = %d, want 2", got)
	}
	RefDown(v)
	if got := RefCount(v); got != 1 {
		t.Fatalf("after RefDown refcount = %d, want 1", got)
	}
}

func TestStaticSingletonsIgnoreRefcounting(t *testing.T) {
	for _, v := range []Value{MakeNil(), MakeInt(0), MakeInt(1), MakeInt(-1), MakeStr(nil)} {
		if !IsStatic(v) {
			t.Fatalf("%v expected static", v.Kind())
		}
		before := RefCount(v)
		RefUp(v)
		RefDown(v)
		RefDown(v)
		RefDown(v)
		if after := RefCount(v); after != before {
			t.Fatalf("static %v refcount changed: %d -> %d", v.Kind(), before, after)
		}
	}
}

func TestMapSetReleasesDisplacedValue(t *testing.T) {
	gc := NewCollector(1024)
	m := MakeMap(gc)
	inner := MakeStrString("first")
	MapSet(m, "k", inner)
	if got := RefCount(inner); got != 2 {
		t.Fatalf("inner refcount after MapSet = %d, want 2 (one held by caller, one by map)", got)
	}
	MapSet(m, "k", MakeStrString("second"))
	if got := RefCount(inner); got != 1 {
		t.Fatalf("inner refcount after displaced = %d, want 1", got)
	}
	got, ok := MapGet(m, "k")
	if !ok || StrRunesToString(got) != "second" {
		t.Fatalf("MapGet after overwrite = %q, %v", StrRunesToString(got), ok)
	}
}

func TestArrSetGrowsAndPreservesExisting(t *testing.T) {
	gc := NewCollector(1024)
	a := MakeArr(gc, 0)
	ArrSet(a, 0, MakeInt(10))
	ArrSet(a, 5, MakeInt(50))
	if ArrLen(a) != 6 {
		t.Fatalf("ArrLen = %d, want 6", ArrLen(a))
	}
	v0, ok := ArrGet(a, 0)
	if !ok || AsInt(v0) != 10 {
		t.Fatalf("ArrGet(0) = %v, %v, want 10", v0, ok)
	}
	v5, ok := ArrGet(a, 5)
	if !ok || AsInt(v5) != 50 {
		t.Fatalf("ArrGet(5) = %v, %v, want 50", v5, ok)
	}
	_, ok = ArrGet(a, 3)
	if ok {
		t.Fatalf("ArrGet(3) should be unset hole")
	}
}

func TestToNumIntRoundTrip(t *testing.T) {
	v := MakeInt(42)
	s := ToStr(v, "%.6g", "%.6g")
	if s != "42" {
		t.Fatalf("ToStr(42) = %q, want 42", s)
	}
	back := ToNum(MakeStrString(s))
	if back.IsFloat || back.I != 42 {
		t.Fatalf("round trip = %+v, want int 42", back)
	}
}

func TestToNumFloatRoundTripStableUnderCONVFMT(t *testing.T) {
	v := MakeFloat(3.5)
	s := ToStr(v, "%.6g", "%.6g")
	back := ToNum(MakeStrString(s))
	if !back.IsFloat || back.F != 3.5 {
		t.Fatalf("round trip = %+v, want float 3.5", back)
	}
}

func TestNumericPrefixTrailingDot(t *testing.T) {
	r := ToNum(MakeStrString("3."))
	if !r.IsFloat || r.F != 3.0 {
		t.Fatalf("ToNum(\"3.\") = %+v, want float 3.0", r)
	}
}

func TestNumericStringHintShortCircuitsScan(t *testing.T) {
	v := MakeStrString("007")
	SetNumHint(v, NumStrInt)
	r := ToNum(v)
	if r.IsFloat || r.I != 7 {
		t.Fatalf("hinted scan = %+v, want int 7", r)
	}
}

func TestGCBreaksSelfCycle(t *testing.T) {
	gc := NewCollector(1024)
	a := MakeArr(gc, 1)
	ArrSet(a, 0, a) // a[0] = a, a self-cycle
	RefDown(a)      // drop the creation-time reference
	// External refcount is now 0 (only the internal self-reference
	// remains), so a full GC pass must reclaim it.
	freed := gc.Run(GenFull)
	if freed == 0 {
		t.Fatalf("expected GC to reclaim the self-referential Arr")
	}
}

func TestGCKeepsRootReachableCycle(t *testing.T) {
	gc := NewCollector(1024)
	a := MakeArr(gc, 1)
	ArrSet(a, 0, a)
	gc.Roots = []Root{func(yield func(Value)) { yield(a) }}
	freed := gc.Run(GenFull)
	if freed != 0 {
		t.Fatalf("root-reachable cycle must survive GC, got freed=%d", freed)
	}
}

// StrRunesToString is a test helper converting a Str Value back to a
// Go string for comparisons.
func StrRunesToString(v Value) string {
	return string(StrRunes(v))
}
