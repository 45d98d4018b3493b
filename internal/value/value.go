// Package value implements hawk's tagged, reference-counted Value system
// (spec §3.1, §4.2).
//
// A Value is a small struct carrying a type tag and, for heap-shaped
// variants, a pointer to a shared *box. The box carries the refcount,
// the static flag, the numeric-string hint, and the gc-tracked flag
// described in spec §3.1 — a stack-friendly tagged union for primitive
// kinds backed by a heap box only for the kinds that need shared,
// reference-counted state.
package value

import (
	"hash/fnv"
	"math"
	"strconv"
	"strings"
)

// Kind tags a Value's variant (spec §3.1 table).
type Kind uint8

const (
	KNil Kind = iota
	KChar
	KByteChar
	KInt
	KFloat
	KStr
	KMbs
	KRex
	KMap
	KArr
	KFun
	KRef
)

func (k Kind) String() string {
	switch k {
	case KNil:
		return "nil"
	case KChar:
		return "char"
	case KByteChar:
		return "bytechar"
	case KInt:
		return "int"
	case KFloat:
		return "float"
	case KStr:
		return "str"
	case KMbs:
		return "mbs"
	case KRex:
		return "rex"
	case KMap:
		return "map"
	case KArr:
		return "arr"
	case KFun:
		return "fun"
	case KRef:
		return "ref"
	default:
		return "?"
	}
}

// NumStrHint is the two-bit numeric-string hint from spec §3.1: 0 = not
// numeric, 1 = integer-shaped, 2 = float-shaped. It lets val_to_num on a
// Str short-circuit the strict numeric scan when the hint is already
// known (e.g. for a field produced by record splitting).
type NumStrHint uint8

const (
	NumStrNone NumStrHint = iota
	NumStrInt
	NumStrFloat
)

// RefKind distinguishes what a Ref value points at (spec §3.1 "Ref").
type RefKind uint8

const (
	RefNamed RefKind = iota
	RefGlobal
	RefLocal
	RefArg
	RefMapElem
	RefArrElem
	RefField
)

// box is the heap-shared payload for reference-counted variants. Int,
// Float, Char, ByteChar, and Nil are carried inline in Value without a
// box unless they are one of the canonical static singletons (spec
// §3.1 "static flag").
type box struct {
	refcount int32
	static   bool
	gc       bool // gc-tracked: true for Map/Arr/Fun containers (spec §4.2)

	kind Kind
	ival int64
	fval float64
	sval []rune  // Str payload (code points)
	bval []byte  // Mbs payload
	rex  *Regexp // Rex payload; see regex package glue in rio/parser callers

	mval   *mapVal
	aval   *arrVal
	fval2  *FunRef
	refK   RefKind
	refPtr *Value // address for Ref (never itself boxed again)

	numHint NumStrHint

	// gcNode links this box into its generation's doubly linked list when
	// gc is true (spec §4.2 "tracked in a doubly linked list per
	// generation").
	gcNode *gcNode
}

// Regexp is the minimal shape the value package needs from a compiled
// regex; the real TNFA lives in package regex. Kept as an interface to
// avoid an import cycle (regex values are produced by the parser/regex
// packages and merely carried here).
type Regexp interface {
	Source() string
}

type mapVal struct {
	entries map[string]*Value
	order   []string // insertion order, for deterministic iteration
}

type arrVal struct {
	elems []*Value
}

// FunRef is a reference to a function definition, opaque to this
// package (the parser/evaluator own the concrete function-table type).
type FunRef struct {
	Name string
	Impl any
}

// Value is the tagged handle scripts and the record-I/O engine pass
// around. Primitive kinds (Nil, Int, Float, Char, ByteChar) that are not
// one of the static singletons are copied by value and never boxed,
// avoiding heap allocation for small primitives.
type Value struct {
	kind Kind
	i    int64
	f    float64
	b    *box // non-nil for Str/Mbs/Rex/Map/Arr/Fun/Ref and for static singletons
}

// Kind reports the variant tag.
func (v Value) Kind() Kind { return v.kind }

// ---- Static singletons (spec §3.1 "Static flag") ----

var (
	staticNil   = Value{kind: KNil, b: &box{kind: KNil, static: true, refcount: 1}}
	staticEmpty = Value{kind: KStr, b: &box{kind: KStr, static: true, refcount: 1}}
	staticZero  = Value{kind: KInt, i: 0, b: &box{kind: KInt, static: true, refcount: 1}}
	staticOne   = Value{kind: KInt, i: 1, b: &box{kind: KInt, static: true, refcount: 1}}
	staticNegOne = Value{kind: KInt, i: -1, b: &box{kind: KInt, static: true, refcount: 1}}
)

func init() {
	staticEmpty.b.sval = []rune{}
}

// ---- Factories (spec §3.1 "Lifecycle") ----

// MakeNil returns the canonical Nil singleton.
func MakeNil() Value { return staticNil }

// MakeInt returns an Int value. -1, 0, and 1 reuse static singletons so
// RefUp/RefDown on them are no-ops, matching spec §3.1.
func MakeInt(n int64) Value {
	switch n {
	case 0:
		return staticZero
	case 1:
		return staticOne
	case -1:
		return staticNegOne
	}
	return Value{kind: KInt, i: n}
}

// MakeFloat returns a Float value.
func MakeFloat(f float64) Value {
	return Value{kind: KFloat, f: f}
}

// MakeChar returns a Char (code point) value.
func MakeChar(r rune) Value {
	return Value{kind: KChar, i: int64(r)}
}

// MakeByteChar returns a ByteChar (octet) value.
func MakeByteChar(b byte) Value {
	return Value{kind: KByteChar, i: int64(b)}
}

// MakeStr allocates a new Str value from a code-point slice. An empty
// slice reuses the static empty-string singleton.
func MakeStr(runes []rune) Value {
	if len(runes) == 0 {
		return staticEmpty
	}
	cp := make([]rune, len(runes))
	copy(cp, runes)
	return Value{kind: KStr, b: &box{kind: KStr, refcount: 1, sval: cp}}
}

// MakeStrString is a convenience wrapper taking a Go string.
func MakeStrString(s string) Value {
	return MakeStr([]rune(s))
}

// MakeMbs allocates a new Mbs (byte-string) value.
func MakeMbs(bytes []byte) Value {
	cp := make([]byte, len(bytes))
	copy(cp, bytes)
	return Value{kind: KMbs, b: &box{kind: KMbs, refcount: 1, bval: cp}}
}

// MakeMap allocates a new empty Map value and registers it with the GC
// (spec §4.2: "Map and Arr participate in the generational GC").
func MakeMap(gc *Collector) Value {
	v := Value{kind: KMap, b: &box{kind: KMap, refcount: 1, gc: true, mval: &mapVal{entries: map[string]*Value{}}}}
	if gc != nil {
		gc.track(v.b)
	}
	return v
}

// MakeArr allocates a new Arr value with the given initial capacity and
// registers it with the GC.
func MakeArr(gc *Collector, capacity int) Value {
	if capacity < 0 {
		capacity = 0
	}
	v := Value{kind: KArr, b: &box{kind: KArr, refcount: 1, gc: true, aval: &arrVal{elems: make([]*Value, 0, capacity)}}}
	if gc != nil {
		gc.track(v.b)
	}
	return v
}

// MakeRef builds an internal Ref value pointing at the given kind/address.
// Ref values never leak to user scripts (spec §3.1).
func MakeRef(kind RefKind, addr *Value) Value {
	return Value{kind: KRef, b: &box{kind: KRef, refcount: 1, refK: kind, refPtr: addr}}
}

// MakeRex wraps a compiled regex (produced by package regex) as a value.
func MakeRex(r Regexp) Value {
	return Value{kind: KRex, b: &box{kind: KRex, refcount: 1, rex: asRegexpPtr(r)}}
}

func asRegexpPtr(r Regexp) *Regexp {
	return &r
}

// MakeFun wraps a function reference as a value, registering it with
// the GC per spec §4.2 ("function-reference values are tracked").
func MakeFun(gc *Collector, ref *FunRef) Value {
	v := Value{kind: KFun, b: &box{kind: KFun, refcount: 1, gc: true, fval2: ref}}
	if gc != nil {
		gc.track(v.b)
	}
	return v
}

// ---- Reference counting (spec §3.1 "Invariants", §4.2, §8.2 laws) ----

// RefUp increments v's refcount. A no-op on static singletons and on
// unboxed primitives (Int/Float/Char/ByteChar/Nil that are not one of
// the static singletons, which have no shared box to begin with).
func RefUp(v Value) {
	if v.b == nil || v.b.static {
		return
	}
	v.b.refcount++
}

// RefDown decrements v's refcount, freeing the box when it reaches zero
// (unless static). Freeing a Map/Arr/Fun unregisters it from the GC
// list and recursively releases contained values.
func RefDown(v Value) {
	if v.b == nil || v.b.static {
		return
	}
	v.b.refcount--
	if v.b.refcount > 0 {
		return
	}
	if v.b.refcount < 0 {
		// Double-free: an Intern-class invariant violation. We do not
		// panic (spec §7 "Fatal: ... invariant violations" is reported,
		// not crashed, by higher layers); clamp and return.
		v.b.refcount = 0
		return
	}
	free(v)
}

func free(v Value) {
	switch v.kind {
	case KMap:
		for _, e := range v.b.mval.entries {
			RefDown(*e)
		}
	case KArr:
		for _, e := range v.b.aval.elems {
			if e != nil {
				RefDown(*e)
			}
		}
	}
	if v.b.gcNode != nil {
		v.b.gcNode.unlink()
	}
}

// CloneIfShared returns v unchanged if its refcount is 1 (exclusively
// owned), or a deep-enough copy otherwise, matching the public contract
// clone_if_shared(val) from spec §4.2. Containers are shallow-copied
// (elements are re-referenced, not deep cloned) since AWK semantics only
// require copy-on-write at the container level.
func CloneIfShared(v Value) Value {
	if v.b == nil || v.b.refcount <= 1 {
		return v
	}
	switch v.kind {
	case KStr:
		return MakeStr(v.b.sval)
	case KMbs:
		return MakeMbs(v.b.bval)
	case KMap:
		nv := Value{kind: KMap, b: &box{kind: KMap, refcount: 1, gc: true, mval: &mapVal{entries: make(map[string]*Value, len(v.b.mval.entries))}}}
		for k, e := range v.b.mval.entries {
			cp := *e
			RefUp(cp)
			nv.b.mval.entries[k] = &cp
		}
		nv.b.mval.order = append([]string(nil), v.b.mval.order...)
		return nv
	case KArr:
		nv := Value{kind: KArr, b: &box{kind: KArr, refcount: 1, gc: true, aval: &arrVal{elems: make([]*Value, len(v.b.aval.elems))}}}
		for i, e := range v.b.aval.elems {
			if e == nil {
				continue
			}
			cp := *e
			RefUp(cp)
			nv.b.aval.elems[i] = &cp
		}
		return nv
	default:
		return v
	}
}

// RefCount reports the current refcount, for tests and the §8.1
// "v.refcount > 0" invariant check; returns a sentinel for unboxed
// primitives which have no independent lifetime.
func RefCount(v Value) int32 {
	if v.b == nil {
		return 1
	}
	return v.b.refcount
}

// IsStatic reports whether v is a static singleton.
func IsStatic(v Value) bool { return v.b != nil && v.b.static }

// ---- Coercion (spec §4.2 "String/number coercion") ----

// ConvMode selects val_to_str's output discipline (spec §4.2 public
// contract lists five; we model the two that matter once printf/format
// live in the evaluator: normal conversion (CONVFMT) and print-context
// conversion (OFMT)).
type ConvMode uint8

const (
	ConvNormal ConvMode = iota
	ConvPrint
)

// ToStr renders v to a Go string, formatting Float values with convfmt;
// ofmt is not consulted (ToStrMode picks the format for a ConvMode and
// passes it as both arguments).
func ToStr(v Value, convfmt, ofmt string) string {
	switch v.kind {
	case KNil:
		return ""
	case KChar:
		return string(rune(v.i))
	case KByteChar:
		return string([]byte{byte(v.i)})
	case KInt:
		return strconv.FormatInt(v.i, 10)
	case KFloat:
		return formatFloat(v.f, convfmt)
	case KStr:
		return string(v.b.sval)
	case KMbs:
		return string(v.b.bval)
	case KRex:
		if v.b.rex != nil {
			return (*v.b.rex).Source()
		}
		return ""
	default:
		return ""
	}
}

// ToStrMode picks convfmt or ofmt depending on mode and delegates to ToStr.
func ToStrMode(v Value, mode ConvMode, convfmt, ofmt string) string {
	fmtStr := convfmt
	if mode == ConvPrint {
		fmtStr = ofmt
	}
	return ToStr(v, fmtStr, fmtStr)
}

func formatFloat(f float64, format string) string {
	if math.IsNaN(f) {
		return "nan"
	}
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	// AWK integral floats print without a decimal point, unless the
	// format forces exponential/general notation.
	if f == math.Trunc(f) && !strings.ContainsAny(format, "eEgG") && math.Abs(f) < 1e17 {
		return strconv.FormatInt(int64(f), 10)
	}
	return printfFloat(format, f)
}

// printfFloat renders f with a single C-style numeric verb taken from
// format (e.g. CONVFMT's default "%.6g"). The full printf formatter is
// out of scope (spec §1); this covers the one conversion CONVFMT/OFMT
// ever need.
func printfFloat(format string, f float64) string {
	verb := byte('g')
	prec := 6
	haveDot := false
	precDigits := ""
	for i := 0; i < len(format); i++ {
		c := format[i]
		switch {
		case c == '.':
			haveDot = true
		case c >= '0' && c <= '9' && haveDot:
			precDigits += string(c)
		case c == 'e' || c == 'E' || c == 'f' || c == 'F' || c == 'g' || c == 'G':
			verb = c
		}
	}
	if precDigits != "" {
		if p, err := strconv.Atoi(precDigits); err == nil {
			prec = p
		}
	}
	return strconv.FormatFloat(f, verb, prec, 64)
}

// NumResult is the tagged outcome of ToNum: either an Int or a Float,
// matching spec §4.2 "val_to_num(val) → Int | Float".
type NumResult struct {
	IsFloat bool
	I       int64
	F       float64
}

// ToNum coerces v to a number. For Str values this runs the strict
// numeric scan described in spec §4.2, honoring the numeric-string hint
// when already known so repeated coercion of a field doesn't re-scan.
func ToNum(v Value) NumResult {
	switch v.kind {
	case KInt:
		return NumResult{I: v.i}
	case KFloat:
		return NumResult{IsFloat: true, F: v.f}
	case KChar, KByteChar:
		return NumResult{I: v.i}
	case KNil:
		return NumResult{I: 0}
	case KStr:
		return scanNumericString(string(v.b.sval), v.b.numHint)
	case KMbs:
		return scanNumericString(string(v.b.bval), NumStrNone)
	default:
		return NumResult{I: 0}
	}
}

// scanNumericString converts s to a number (spec §4.2, §3.1
// "numeric-string hint"): after trimming surrounding whitespace it tries
// a whole-string parse (first the kind the hint names), and failing that
// parses the longest numeric prefix; a string with no numeric prefix
// yields 0.
func scanNumericString(s string, hint NumStrHint) NumResult {
	t := strings.TrimSpace(s)
	if t == "" {
		return NumResult{I: 0}
	}
	if hint == NumStrInt {
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return NumResult{I: n}
		}
	}
	if hint == NumStrFloat {
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return NumResult{IsFloat: true, F: f}
		}
	}
	if n, err := strconv.ParseInt(t, 10, 64); err == nil {
		return NumResult{I: n}
	}
	// Parse the longest valid numeric prefix, AWK-style (e.g. "3.5abc" -> 3.5).
	end := numericPrefixLen(t)
	if end == 0 {
		return NumResult{I: 0}
	}
	prefix := t[:end]
	if n, err := strconv.ParseInt(prefix, 10, 64); err == nil {
		return NumResult{I: n}
	}
	if f, err := strconv.ParseFloat(prefix, 64); err == nil {
		return NumResult{IsFloat: true, F: f}
	}
	return NumResult{I: 0}
}

// numericPrefixLen returns the length of the longest prefix of s that
// parses as a C-style number (optional sign, digits, optional '.',
// digits, optional exponent).
func numericPrefixLen(s string) int {
	i := 0
	n := len(s)
	if i < n && (s[i] == '+' || s[i] == '-') {
		i++
	}
	start := i
	for i < n && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	hasInt := i > start
	hasFrac := false
	if i < n && s[i] == '.' {
		j := i + 1
		fstart := j
		for j < n && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j > fstart {
			hasFrac = true
			i = j
		} else if hasInt {
			// Trailing dot with no fractional digits but an integer part
			// already matched ("3."): consume the dot too, AWK-style.
			i = j
			hasFrac = true
		}
	}
	if !hasInt && !hasFrac {
		return 0
	}
	if i < n && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < n && (s[j] == '+' || s[j] == '-') {
			j++
		}
		estart := j
		for j < n && s[j] >= '0' && s[j] <= '9' {
			j++
		}
		if j > estart {
			i = j
		}
	}
	return i
}

// NumericStringHint classifies s the way record splitting does for
// fields, so callers (rio) can stamp the hint onto a freshly split Str.
func NumericStringHint(s string) NumStrHint {
	t := strings.TrimSpace(s)
	if t == "" {
		return NumStrNone
	}
	if _, err := strconv.ParseInt(t, 10, 64); err == nil {
		return NumStrInt
	}
	if _, err := strconv.ParseFloat(t, 64); err == nil {
		return NumStrFloat
	}
	return NumStrNone
}

// SetNumHint stamps v's numeric-string hint in place (only meaningful
// for Str values); used by rio when materializing field values.
func SetNumHint(v Value, hint NumStrHint) {
	if v.kind == KStr && v.b != nil {
		v.b.numHint = hint
	}
}

// NumHint reads back the hint (NumStrNone for non-Str values).
func NumHint(v Value) NumStrHint {
	if v.kind == KStr && v.b != nil {
		return v.b.numHint
	}
	return NumStrNone
}

// ToBool implements AWK truthiness: 0/0.0/""/nil are false. A Str that
// carries a numeric-string hint is false when its numeric value is zero
// (so a field reading "0" is false); any other non-empty string is true,
// including "0" without a hint.
func ToBool(v Value) bool {
	switch v.kind {
	case KNil:
		return false
	case KInt, KChar, KByteChar:
		return v.i != 0
	case KFloat:
		return v.f != 0
	case KStr:
		if len(v.b.sval) == 0 {
			return false
		}
		if v.b.numHint != NumStrNone {
			n := ToNum(v)
			if n.IsFloat {
				return n.F != 0
			}
			return n.I != 0
		}
		return true
	case KMbs:
		return len(v.b.bval) != 0
	default:
		return true
	}
}

// Hash implements spec §4.2's hash(val), using hash/fnv for string and
// multi-byte kinds.
func Hash(v Value) uint32 {
	h := fnv.New32a()
	switch v.kind {
	case KNil:
		return 0
	case KInt, KChar, KByteChar:
		_, _ = h.Write([]byte(strconv.FormatInt(v.i, 10)))
	case KFloat:
		_, _ = h.Write([]byte(strconv.FormatFloat(v.f, 'g', -1, 64)))
	case KStr:
		_, _ = h.Write([]byte(string(v.b.sval)))
	case KMbs:
		_, _ = h.Write(v.b.bval)
	default:
		return 0
	}
	return h.Sum32()
}
