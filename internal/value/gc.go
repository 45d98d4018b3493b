package value

// This file implements the generational cycle-breaking collector from
// spec §4.2 ("Garbage collection") and §9 ("Cyclic value graphs"): plain
// refcounting (value.go's RefUp/RefDown) frees everything acyclic
// immediately; the Collector exists only to break reference cycles among
// Map/Arr/Fun containers, which refcounting alone cannot reclaim.
//
// Grounded on spec §9's suggested model: "a separate generation list
// storing weak references for containers. A cycle collector runs when a
// container insertion closes a potential cycle." We use a doubly linked
// list per generation (spec §4.2 "tracked in a doubly linked list per
// generation") rather than weak references, since Go has no weak
// pointers; liveness is instead recomputed by the mark phase below.

// gcNode links a box into its generation's list.
type gcNode struct {
	prev, next *gcNode
	gen        *generation
	owner      *box
}

func (n *gcNode) unlink() {
	if n == nil || n.gen == nil {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		n.gen.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	n.gen.count--
	n.gen = nil
}

type generation struct {
	head  *gcNode
	count int
}

func (g *generation) insert(b *box) {
	n := &gcNode{gen: g, owner: b, next: g.head}
	if g.head != nil {
		g.head.prev = n
	}
	g.head = n
	g.count++
	b.gcNode = n
}

// Generation selects which generation(s) a GC pass covers (spec §4.2
// "gc(generation) where generation is 0 (young), N (older), FULL, or
// AUTO").
type Generation int

const (
	GenYoung Generation = 0
	GenFull  Generation = -1
	GenAuto  Generation = -2
)

// Root is a callback the embedder/parser/evaluator supplies so the
// collector can mark live containers reachable from the evaluator
// stack, globals, and named variables (spec §4.2 "mark roots").
type Root func(yield func(Value))

// Collector owns the generation lists and the promotion threshold. Each
// runtime context (owned by the evaluator, outside this package's scope)
// holds one Collector.
type Collector struct {
	gens      []*generation
	threshold int // young-generation size that triggers an implicit GC
	Roots     []Root
}

// NewCollector builds a collector with the given young-generation
// promotion threshold (spec §4.2: "a tuning knob, not prescribed").
func NewCollector(threshold int) *Collector {
	if threshold <= 0 {
		threshold = 4096
	}
	return &Collector{gens: []*generation{{}}, threshold: threshold}
}

func (c *Collector) track(b *box) {
	c.gens[0].insert(b)
}

// ShouldAutoRun reports whether the young generation has crossed the
// promotion threshold (spec §4.2 "runs ... when the young generation
// size crosses a threshold").
func (c *Collector) ShouldAutoRun() bool {
	return c.gens[0].count >= c.threshold
}

// Run performs a mark-and-sweep cycle-breaking pass per spec §4.2's
// algorithm: mark roots; for each tracked object, compute
// external_refs = refcount - internal_refs_from_tracked_set; anything
// with zero external refs and not reachable from roots is freed.
// Survivors in the young generation promote to the next generation.
func (c *Collector) Run(gen Generation) int {
	idx := c.genIndex(gen)
	tracked := map[*box]bool{}
	var all []*box
	for g := 0; g <= idx || gen == GenFull; g++ {
		if g >= len(c.gens) {
			break
		}
		for n := c.gens[g].head; n != nil; n = n.next {
			tracked[n.owner] = true
			all = append(all, n.owner)
		}
		if gen != GenFull {
			break
		}
	}

	// internal_refs_from_tracked_set[b] = number of references to b held
	// by other tracked objects (containers pointing at b).
	internal := map[*box]int32{}
	for _, b := range all {
		switch b.kind {
		case KMap:
			for _, e := range b.mval.entries {
				if e.b != nil && tracked[e.b] {
					internal[e.b]++
				}
			}
		case KArr:
			for _, e := range b.aval.elems {
				if e != nil && e.b != nil && tracked[e.b] {
					internal[e.b]++
				}
			}
		}
	}

	// Mark objects reachable from roots.
	reachable := map[*box]bool{}
	var mark func(v Value)
	mark = func(v Value) {
		if v.b == nil || !tracked[v.b] || reachable[v.b] {
			return
		}
		reachable[v.b] = true
		switch v.kind {
		case KMap:
			for _, e := range v.b.mval.entries {
				mark(*e)
			}
		case KArr:
			for _, e := range v.b.aval.elems {
				if e != nil {
					mark(*e)
				}
			}
		}
	}
	for _, root := range c.Roots {
		root(func(v Value) { mark(v) })
	}

	freed := 0
	for _, b := range all {
		if reachable[b] {
			continue
		}
		external := b.refcount - internal[b]
		if external <= 0 {
			v := Value{kind: b.kind, b: b}
			free(v)
			freed++
		}
	}

	if gen != GenFull && idx+1 < len(c.gens) {
		c.promote(idx)
	} else if gen != GenFull {
		c.gens = append(c.gens, &generation{})
		c.promote(idx)
	}

	return freed
}

func (c *Collector) promote(idx int) {
	src := c.gens[idx]
	if idx+1 >= len(c.gens) {
		c.gens = append(c.gens, &generation{})
	}
	dst := c.gens[idx+1]
	for n := src.head; n != nil; {
		next := n.next
		n.gen = nil
		dst.insert(n.owner)
		n = next
	}
	src.head = nil
	src.count = 0
}

func (c *Collector) genIndex(gen Generation) int {
	switch gen {
	case GenFull, GenAuto:
		return len(c.gens) - 1
	default:
		if int(gen) < len(c.gens) {
			return int(gen)
		}
		return len(c.gens) - 1
	}
}

// MaybeAutoRun runs a young-generation GC if ShouldAutoRun reports true,
// matching spec §4.2's automatic trigger; returns the number of objects
// freed (0 if no run was needed).
func (c *Collector) MaybeAutoRun() int {
	if !c.ShouldAutoRun() {
		return 0
	}
	return c.Run(GenYoung)
}
