package expand

import (
	"errors"
	"fmt"

	"github.com/arloliu/bufr/descriptor"
	"github.com/arloliu/bufr/errs"
	"github.com/arloliu/bufr/nesting"
	"github.com/arloliu/bufr/tables"
)

// Default limits applied when a Limits field is zero.
const (
	DefaultMaxDepth        = 64
	DefaultMaxReplication  = 65535
	DefaultMaxInstructions = 1 << 22
)

// Limits bounds an expansion.
type Limits struct {
	MaxDepth        int // maximum number of nested frames
	MaxReplication  int // maximum delayed replication count
	MaxInstructions int // maximum number of emitted instructions
}

func (l Limits) withDefaults() Limits {
	if l.MaxDepth <= 0 {
		l.MaxDepth = DefaultMaxDepth
	}
	if l.MaxReplication <= 0 {
		l.MaxReplication = DefaultMaxReplication
	}
	if l.MaxInstructions <= 0 {
		l.MaxInstructions = DefaultMaxInstructions
	}

	return l
}

// frame is one level of the explicit expansion stack.
type frame struct {
	descs []descriptor.Descriptor
	pos   int
	path  nesting.Path

	// sequence frames
	seq descriptor.Descriptor

	// replication frames
	repl       bool
	replicator descriptor.Descriptor
	reps       int
	iter       int
	delayed    bool
	parent     nesting.Path

	// instance counters of sibling sequences within the current iteration
	siblings map[descriptor.Descriptor]int
}

func (f *frame) nextSibling(d descriptor.Descriptor) int {
	if f.siblings == nil {
		f.siblings = make(map[descriptor.Descriptor]int)
	}
	n := f.siblings[d]
	f.siblings[d] = n + 1

	return n
}

type pendingGroup struct {
	replicator descriptor.Descriptor
	group      []descriptor.Descriptor
	path       nesting.Path
}

// Walker expands a descriptor sequence one instruction at a time.
//
// The walker keeps an explicit stack of frames instead of recursing, so nesting depth
// is bounded by Limits.MaxDepth and cycles are detected through the set of sequences
// currently on the stack.
//
// In live mode every delayed replication factor stops the walk: after Next returns an
// instruction with Factor set, the caller decodes the factor and passes the count to
// ResolveCount before calling Next again. In structural mode the walker expands every
// delayed group exactly once by itself.
//
// A Walker is not safe for concurrent use.
type Walker struct {
	lookup     tables.Lookup
	limits     Limits
	structural bool

	stack   []frame
	active  map[descriptor.Descriptor]int
	pending *pendingGroup
	emitted int

	// next element may be absent from the tables (set by 206YYY)
	allowUnknown bool
}

// NewWalker creates a live mode walker over descs.
func NewWalker(lookup tables.Lookup, descs []descriptor.Descriptor, limits Limits) *Walker {
	w := &Walker{
		lookup: lookup,
		limits: limits.withDefaults(),
		active: make(map[descriptor.Descriptor]int),
	}
	w.stack = append(w.stack, frame{descs: descs})

	return w
}

// NewStructuralWalker creates a walker that resolves delayed replications by itself,
// expanding each delayed group once.
func NewStructuralWalker(lookup tables.Lookup, descs []descriptor.Descriptor, limits Limits) *Walker {
	w := NewWalker(lookup, descs, limits)
	w.structural = true

	return w
}

// Limits returns the effective limits.
func (w *Walker) Limits() Limits {
	return w.limits
}

// Depth returns the number of frames currently on the stack.
func (w *Walker) Depth() int {
	return len(w.stack)
}

// Pending reports whether the walker waits for ResolveCount.
func (w *Walker) Pending() bool {
	return w.pending != nil
}

// Emitted returns the number of instructions returned so far.
func (w *Walker) Emitted() int {
	return w.emitted
}

// Next returns the next instruction. It returns false once every frame is exhausted.
func (w *Walker) Next() (Instruction, bool, error) {
	if w.pending != nil {
		if !w.structural {
			return Instruction{}, false, errs.ErrCountPending
		}
		if err := w.resolve(1); err != nil {
			return Instruction{}, false, err
		}
	}

	for len(w.stack) > 0 {
		top := &w.stack[len(w.stack)-1]
		if top.pos >= len(top.descs) {
			w.advanceFrame()
			continue
		}

		d := top.descs[top.pos]
		top.pos++

		switch d.Class() {
		case descriptor.Element:
			return w.element(d, top.path)

		case descriptor.Replication:
			ins, emit, err := w.replication(top, d)
			if err != nil || emit {
				return ins, emit, err
			}

		case descriptor.Operator:
			if d.X() == 6 {
				w.allowUnknown = true
			}

			return w.emit(Instruction{Kind: KindOperator, Descriptor: d, Path: top.path})

		case descriptor.Sequence:
			if err := w.sequence(top, d); err != nil {
				return Instruction{}, false, err
			}

		default:
			return Instruction{}, false, w.fail(d, top.path, errs.ErrInvalidDescriptor)
		}
	}

	return Instruction{}, false, nil
}

// ResolveCount supplies the count of the delayed replication whose factor was just
// returned by Next. A zero count skips the group.
func (w *Walker) ResolveCount(n int) error {
	if w.pending == nil {
		return fmt.Errorf("%w: no delayed replication pending", errs.ErrInvalidReplication)
	}

	return w.resolve(n)
}

func (w *Walker) resolve(n int) error {
	p := w.pending
	if n < 0 || n > w.limits.MaxReplication {
		return w.fail(p.replicator, p.path,
			fmt.Errorf("%w: delayed count %d outside 0..%d", errs.ErrInvalidReplication, n, w.limits.MaxReplication))
	}
	w.pending = nil
	if n == 0 {
		return nil
	}

	return w.pushReplication(p.replicator, p.group, n, true, p.path)
}

func (w *Walker) element(d descriptor.Descriptor, path nesting.Path) (Instruction, bool, error) {
	entry, err := w.lookup.FetchTableB(d)
	if err != nil {
		if !w.allowUnknown || !errors.Is(err, errs.ErrUnknownDescriptor) {
			return Instruction{}, false, w.fail(d, path, err)
		}
		entry = nil
	}
	w.allowUnknown = false

	return w.emit(Instruction{Kind: KindElement, Descriptor: d, Entry: entry, Path: path})
}

// replication handles a 1XXYYY descriptor of the top frame. For delayed replication it
// returns the factor instruction with emit set.
func (w *Walker) replication(top *frame, d descriptor.Descriptor) (Instruction, bool, error) {
	x, y := d.X(), d.Y()
	if x == 0 {
		return Instruction{}, false, w.fail(d, top.path,
			fmt.Errorf("%w: replication of zero descriptors", errs.ErrInvalidReplication))
	}

	if y > 0 {
		if top.pos+x > len(top.descs) {
			return Instruction{}, false, w.fail(d, top.path,
				fmt.Errorf("%w: replicates %d descriptors, %d remain", errs.ErrInvalidReplication, x, len(top.descs)-top.pos))
		}
		group := top.descs[top.pos : top.pos+x]
		top.pos += x

		return Instruction{}, false, w.pushReplication(d, group, y, false, top.path)
	}

	if top.pos >= len(top.descs) || !top.descs[top.pos].IsDelayedFactor() {
		return Instruction{}, false, w.fail(d, top.path,
			fmt.Errorf("%w: delayed replication not followed by a factor", errs.ErrInvalidReplication))
	}
	factor := top.descs[top.pos]
	if top.pos+1+x > len(top.descs) {
		return Instruction{}, false, w.fail(d, top.path,
			fmt.Errorf("%w: replicates %d descriptors, %d remain", errs.ErrInvalidReplication, x, len(top.descs)-top.pos-1))
	}
	group := top.descs[top.pos+1 : top.pos+1+x]
	top.pos += 1 + x

	entry, err := w.lookup.FetchTableB(factor)
	if err != nil {
		return Instruction{}, false, w.fail(factor, top.path, err)
	}

	ins, ok, err := w.emit(Instruction{
		Kind:       KindElement,
		Descriptor: factor,
		Entry:      entry,
		Path:       top.path,
		Factor:     true,
		Replicator: d,
	})
	if err != nil {
		return ins, ok, err
	}
	w.pending = &pendingGroup{replicator: d, group: group, path: top.path}

	return ins, ok, nil
}

func (w *Walker) sequence(top *frame, d descriptor.Descriptor) error {
	entry, err := w.lookup.FetchTableD(d)
	if err != nil {
		return w.fail(d, top.path, err)
	}
	if w.active[d] > 0 {
		return w.fail(d, top.path, errs.ErrCyclicTemplate)
	}
	if len(w.stack) >= w.limits.MaxDepth {
		return w.fail(d, top.path, errs.ErrNestingTooDeep)
	}

	path := extend(top.path, nesting.Marker{Kind: nesting.KindSequence, Descriptor: d, Index: top.nextSibling(d)})
	w.active[d]++
	w.stack = append(w.stack, frame{descs: entry.Members, path: path, seq: d})

	return nil
}

func (w *Walker) pushReplication(d descriptor.Descriptor, group []descriptor.Descriptor, n int, delayed bool, parent nesting.Path) error {
	if len(w.stack) >= w.limits.MaxDepth {
		return w.fail(d, parent, errs.ErrNestingTooDeep)
	}

	f := frame{
		descs:      group,
		repl:       true,
		replicator: d,
		reps:       n,
		delayed:    delayed,
		parent:     parent,
	}
	f.path = extend(parent, f.marker())
	w.stack = append(w.stack, f)

	return nil
}

// advanceFrame starts the next iteration of an exhausted replication frame, or pops it.
func (w *Walker) advanceFrame() {
	top := &w.stack[len(w.stack)-1]
	if top.repl && top.iter+1 < top.reps {
		top.iter++
		top.pos = 0
		clear(top.siblings)
		top.path = extend(top.parent, top.marker())

		return
	}

	if top.seq != 0 {
		w.active[top.seq]--
	}
	w.stack = w.stack[:len(w.stack)-1]
}

func (f *frame) marker() nesting.Marker {
	return nesting.Marker{Kind: nesting.KindReplication, Descriptor: f.replicator, Index: f.iter, Delayed: f.delayed}
}

func (w *Walker) emit(ins Instruction) (Instruction, bool, error) {
	if w.emitted >= w.limits.MaxInstructions {
		return Instruction{}, false, w.fail(ins.Descriptor, ins.Path,
			fmt.Errorf("%w: more than %d instructions", errs.ErrExpansionTooLarge, w.limits.MaxInstructions))
	}
	w.emitted++

	return ins, true, nil
}

// fail attaches the descriptor and nesting path to err.
func (w *Walker) fail(d descriptor.Descriptor, path nesting.Path, err error) error {
	var de *errs.DescriptorError
	if errors.As(err, &de) {
		err = de.Err
	}

	return &errs.DescriptorError{Descriptor: int(d), Path: path.String(), Err: err}
}

// extend returns a new path with m appended; parent is never modified.
func extend(parent nesting.Path, m nesting.Marker) nesting.Path {
	p := make(nesting.Path, len(parent)+1)
	copy(p, parent)
	p[len(parent)] = m

	return p
}

// Expand performs a structural expansion of descs and returns every instruction.
//
// Delayed replication groups are expanded once and their markers have Delayed set.
//
// Returns:
//   - []Instruction: the flat instruction list
//   - error: a *errs.DescriptorError wrapping errs.ErrUnknownDescriptor,
//     errs.ErrCyclicTemplate, errs.ErrInvalidReplication, errs.ErrNestingTooDeep or
//     errs.ErrExpansionTooLarge
func Expand(lookup tables.Lookup, descs []descriptor.Descriptor, limits Limits) ([]Instruction, error) {
	w := NewStructuralWalker(lookup, descs, limits)

	out := make([]Instruction, 0, len(descs))
	for {
		ins, ok, err := w.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, ins)
	}
}
