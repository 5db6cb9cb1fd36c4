package value

// RootMarker is implemented by whatever owns the live roots — the VM (value
// stack, call frames, open upvalues, globals) and, during compilation, the
// active compiler chain. Collect calls back into it to enumerate roots, per
// spec.md §2's "the heap ... calls back to the VM and the compiler to
// enumerate roots."
type RootMarker interface {
	MarkRoots(h *Heap)
}

const (
	growFactor    = 2
	initialNextGC = 1024 * 1024
)

// objectSize gives each Kind a nominal weight for the bytes_allocated
// heuristic. Go doesn't expose sizeof, and exact byte counts aren't
// load-bearing for correctness — only the grow/shrink heuristic is, so a
// fixed per-kind weight plays the role original_source/memory.c's malloc
// sizes play.
func objectSize(kind Kind) int64 {
	switch kind {
	case KindString:
		return 32
	case KindFunction:
		return 96
	case KindNative:
		return 48
	case KindClosure:
		return 48
	case KindUpvalue:
		return 40
	case KindList:
		return 48
	case KindDict:
		return 64
	default:
		return 32
	}
}

// Heap owns every object allocation, the intrusive object list, the
// interned-string table, and the precise mark-and-sweep collector described
// in spec.md §4.B.
type Heap struct {
	objects        *Object
	strings        Table
	bytesAllocated int64
	nextGC         int64
	grey           []*Object

	// StressGC forces a full collection on every allocation (spec.md's
	// DEBUG_STRESS_GC), used by tests to surface missed roots.
	StressGC bool
	// LogGC prints each collection's before/after byte counts
	// (DEBUG_LOG_GC); nil disables logging.
	LogGC func(format string, args ...any)

	Roots RootMarker
}

// NewHeap returns an empty Heap ready to allocate.
func NewHeap() *Heap {
	return &Heap{nextGC: initialNextGC}
}

// BytesAllocated reports the current accounting total, exposed for tests.
func (h *Heap) BytesAllocated() int64 { return h.bytesAllocated }

// register accounts for o and may run a collection before linking o into
// the object list, so the object being allocated is never swept by its own
// allocation.
func (h *Heap) register(o *Object, kind Kind) {
	h.bytesAllocated += objectSize(kind)
	h.maybeCollect()
	o.Kind = kind
	o.Next = h.objects
	h.objects = o
}

func (h *Heap) maybeCollect() {
	if h.StressGC || h.bytesAllocated > h.nextGC {
		h.Collect()
	}
}

// NewList allocates an empty List.
func (h *Heap) NewList() *List {
	l := &List{}
	h.register(&l.Object, KindList)
	return l
}

// NewDict allocates an empty Dict.
func (h *Heap) NewDict() *Dict {
	d := &Dict{}
	h.register(&d.Object, KindDict)
	return d
}

// NewFunction allocates an empty Function, ready for the compiler to fill in.
func (h *Heap) NewFunction() *Function {
	f := &Function{}
	h.register(&f.Object, KindFunction)
	return f
}

// NewNative wraps fn as a host-callable Native value.
func (h *Heap) NewNative(name string, fn NativeFn) *Native {
	n := &Native{Function: fn, Name: name}
	h.register(&n.Object, KindNative)
	return n
}

// NewClosure wraps fn, allocating room for its upvalue slots.
func (h *Heap) NewClosure(fn *Function) *Closure {
	c := &Closure{Function: fn, Upvalues: make([]*Upvalue, fn.UpvalueCount)}
	h.register(&c.Object, KindClosure)
	return c
}

// NewUpvalue allocates an open upvalue referencing slot.
func (h *Heap) NewUpvalue(slot *Value) *Upvalue {
	u := &Upvalue{Location: slot}
	h.register(&u.Object, KindUpvalue)
	return u
}

// InternString returns the unique String object for chars, allocating and
// registering it the first time chars is seen. No allocation happens
// between registering the new string and inserting it into the intern
// table, so — unlike composite-object construction elsewhere in the VM —
// this path needs no extra stack-pinning: there is no intervening
// allocation for a collection to race with.
func (h *Heap) InternString(chars string) *String {
	hash := fnv1a32(chars)
	if s, ok := h.strings.FindString(chars, hash); ok {
		return s
	}
	s := &String{Chars: chars, Hash: hash}
	h.register(&s.Object, KindString)
	h.strings.Set(Obj(&s.Object), Null)
	return s
}

// MarkValue marks v's object reachable, if v holds one.
func (h *Heap) MarkValue(v Value) {
	if v.IsObj() {
		h.MarkObject(v.AsObj())
	}
}

// MarkObject marks o reachable and pushes it onto the grey worklist, unless
// it is already marked.
func (h *Heap) MarkObject(o *Object) {
	if o == nil || o.Marked {
		return
	}
	o.Marked = true
	h.grey = append(h.grey, o)
	if h.LogGC != nil {
		h.LogGC("mark %p %s", o, o.Kind)
	}
}

// Collect runs one full mark-and-sweep cycle: mark roots (via Roots, if
// set), trace the grey worklist, purge dead entries from the intern table,
// sweep the intrusive object list, then grow the next collection threshold.
func (h *Heap) Collect() {
	before := h.bytesAllocated
	if h.LogGC != nil {
		h.LogGC("-- gc begin")
	}

	if h.Roots != nil {
		h.Roots.MarkRoots(h)
	}
	h.trace()
	h.purgeStrings()
	h.sweep()

	h.nextGC = maxOrdered(h.bytesAllocated*growFactor, int64(initialNextGC))
	if h.LogGC != nil {
		h.LogGC("-- gc end, collected %d bytes (from %d to %d), next at %d",
			before-h.bytesAllocated, before, h.bytesAllocated, h.nextGC)
	}
}

func (h *Heap) trace() {
	for len(h.grey) > 0 {
		o := h.grey[len(h.grey)-1]
		h.grey = h.grey[:len(h.grey)-1]
		h.blacken(o)
	}
}

// blacken enumerates o's owned references per spec.md §4.B step 2: function
// → name + constants; closure → function + upvalues; upvalue → closed
// value; list → elements; dict → entries' keys and values.
func (h *Heap) blacken(o *Object) {
	if h.LogGC != nil {
		h.LogGC("blacken %p %s", o, o.Kind)
	}
	switch o.Kind {
	case KindFunction:
		f, _ := o.AsFunction()
		if f.Name != nil {
			h.MarkObject(&f.Name.Object)
		}
		for _, c := range f.Chunk.Constants {
			h.MarkValue(c)
		}
	case KindClosure:
		c, _ := o.AsClosure()
		h.MarkObject(&c.Function.Object)
		for _, u := range c.Upvalues {
			if u != nil {
				h.MarkObject(&u.Object)
			}
		}
	case KindUpvalue:
		u, _ := o.AsUpvalue()
		h.MarkValue(u.Closed)
	case KindList:
		l, _ := o.AsList()
		for _, v := range l.Elements {
			h.MarkValue(v)
		}
	case KindDict:
		d, _ := o.AsDict()
		d.Table.Each(func(k, v Value) {
			h.MarkValue(k)
			h.MarkValue(v)
		})
	case KindString, KindNative:
		// no owned references
	}
}

// purgeStrings deletes any intern-table entry whose string is unreached —
// the table holds non-owning references, so it must not be the thing that
// keeps a string alive past collection (spec.md §4.B step 3).
func (h *Heap) purgeStrings() {
	var dead []Value
	h.strings.Each(func(k, _ Value) {
		if s, ok := k.AsObj().AsString(); ok && !s.Marked {
			dead = append(dead, k)
		}
	})
	for _, k := range dead {
		h.strings.Delete(k)
	}
}

// sweep walks the intrusive object list, unlinking and "freeing" every
// unmarked object and clearing the mark bit on survivors. Go's own
// allocator reclaims an unlinked object's memory once nothing else
// references it; unlinking from this list is this collector's equivalent
// of original_source/memory.c's freeObject.
func (h *Heap) sweep() {
	var prev *Object
	obj := h.objects
	for obj != nil {
		if obj.Marked {
			obj.Marked = false
			prev = obj
			obj = obj.Next
			continue
		}
		dead := obj
		obj = obj.Next
		if prev != nil {
			prev.Next = obj
		} else {
			h.objects = obj
		}
		h.bytesAllocated -= objectSize(dead.Kind)
		dead.Next = nil
	}
}
