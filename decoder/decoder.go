package decoder

import (
	"errors"
	"fmt"
	"math"

	"github.com/arloliu/bufr/dataset"
	"github.com/arloliu/bufr/descriptor"
	"github.com/arloliu/bufr/errs"
	"github.com/arloliu/bufr/expand"
	"github.com/arloliu/bufr/internal/bitio"
	"github.com/arloliu/bufr/internal/options"
	"github.com/arloliu/bufr/internal/pool"
	"github.com/arloliu/bufr/message"
	"github.com/arloliu/bufr/tables"
)

// Decoder decodes framed messages into datasets.
//
// A Decoder holds only its configuration and is safe for concurrent use.
type Decoder struct {
	cfg Config
}

// New creates a Decoder.
//
// Parameters:
//   - opts: optional settings, applied over DefaultConfig
//
// Returns:
//   - *Decoder: the decoder
//   - error: the first option error
func New(opts ...Option) (*Decoder, error) {
	cfg := DefaultConfig()
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	return &Decoder{cfg: cfg}, nil
}

// Config returns a copy of the decoder settings.
func (d *Decoder) Config() Config {
	cfg := d.cfg
	cfg.SupportedMasterTables = append([]int(nil), d.cfg.SupportedMasterTables...)

	return cfg
}

// Decode decodes msg with a decoder built from opts. See Decoder.Decode.
func Decode(msg *message.Message, lookup tables.Lookup, opts ...Option) (*dataset.Dataset, error) {
	d, err := New(opts...)
	if err != nil {
		return nil, err
	}

	return d.Decode(msg, lookup)
}

// Decode decodes every subset of msg using the tables of lookup.
//
// Uncompressed subsets are decoded in order, each with a fresh operator context. When
// subset k fails, the returned dataset holds subsets 0 to k-1 and the error is a
// *errs.DecodeError for subset k. Compressed messages decode all subsets in one pass,
// so a failure leaves the dataset empty.
//
// Parameters:
//   - msg: the framed message
//   - lookup: the tables selected for the message's master table version
//
// Returns:
//   - *dataset.Dataset: the decoded subsets, also on a decode failure
//   - error: errs.ErrUnsupportedEdition, errs.ErrUnsupportedMasterTable, or a
//     *errs.DecodeError matching errs.ErrDecode
func (d *Decoder) Decode(msg *message.Message, lookup tables.Lookup) (*dataset.Dataset, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", errs.ErrInvalidMessage)
	}
	if lookup == nil {
		return nil, fmt.Errorf("%w: nil table lookup", errs.ErrDecode)
	}
	if msg.Edition < 2 || msg.Edition > 4 {
		return nil, fmt.Errorf("%w: edition %d", errs.ErrUnsupportedEdition, msg.Edition)
	}
	if !d.cfg.supports(msg.Section1.MasterTable) {
		return nil, fmt.Errorf("%w: master table %d", errs.ErrUnsupportedMasterTable, msg.Section1.MasterTable)
	}

	sec3 := msg.Section3
	ds := dataset.New(sec3.Descriptors, sec3.Compressed, sec3.Subsets)
	if sec3.Subsets == 0 {
		return ds, nil
	}

	logger := d.cfg.Logger
	r := bitio.NewReader(msg.Data)

	if sec3.Compressed {
		p := d.newPass(lookup, sec3.Descriptors, &compressedCursor{r: r, n: sec3.Subsets})
		defer p.release()
		if f := p.run(); f != nil {
			logger.Debug("compressed decode failed", "subsets", sec3.Subsets, "bit", f.offset, "error", f.err)
			return ds, f.decodeError(0)
		}
		for _, s := range p.subsets {
			ds.Append(s)
		}

		return ds, nil
	}

	for i := range sec3.Subsets {
		p := d.newPass(lookup, sec3.Descriptors, &plainCursor{r: r})
		f := p.run()
		p.release()
		if f != nil {
			logger.Debug("subset decode failed", "subset", i, "of", sec3.Subsets, "bit", f.offset, "error", f.err)
			return ds, f.decodeError(i)
		}
		ds.Append(p.subsets[0])
	}
	if left := r.Remaining(); left >= 16 {
		logger.Debug("unused bits after last subset", "bits", left)
	}

	return ds, nil
}

// failure is where and why a pass stopped.
type failure struct {
	reason string
	offset int
	err    error
}

func (f *failure) decodeError(subset int) *errs.DecodeError {
	return &errs.DecodeError{Reason: f.reason, Subset: subset, BitOffset: f.offset, Err: f.err}
}

// pass decodes one subset, or all subsets of a compressed message.
type pass struct {
	cur     cursor
	walker  *expand.Walker
	op      *opContext
	subsets []*dataset.Subset

	vals    []uint64
	miss    []bool
	strs    []string
	release func()
}

func (d *Decoder) newPass(lookup tables.Lookup, descs []descriptor.Descriptor, cur cursor) *pass {
	n := cur.lanes()
	vals, putVals := pool.GetUint64Slice(n)
	miss, putMiss := pool.GetBoolSlice(n)

	p := &pass{
		cur:     cur,
		walker:  expand.NewWalker(lookup, descs, d.cfg.limits()),
		op:      newContext(),
		subsets: make([]*dataset.Subset, n),
		vals:    vals,
		miss:    miss,
		strs:    make([]string, n),
		release: func() {
			putVals()
			putMiss()
		},
	}
	for i := range p.subsets {
		p.subsets[i] = dataset.NewSubset(len(descs) * 4)
	}

	return p
}

func (p *pass) run() *failure {
	for {
		start := p.cur.offset()
		ins, ok, err := p.walker.Next()
		if err != nil {
			return &failure{reason: "descriptor expansion", offset: start, err: err}
		}
		if !ok {
			return nil
		}

		reason := "element"
		if ins.Kind == expand.KindOperator {
			reason = "operator"
			err = p.operator(ins)
		} else {
			err = p.element(ins)
		}
		if err != nil {
			return &failure{reason: reason, offset: start, err: attach(ins, err)}
		}
	}
}

// attach wraps err with the descriptor and nesting path of ins.
func attach(ins expand.Instruction, err error) error {
	var de *errs.DescriptorError
	if errors.As(err, &de) {
		return err
	}

	return &errs.DescriptorError{Descriptor: int(ins.Descriptor), Path: ins.Path.String(), Err: err}
}

// lane0 is the subset whose value indices are shared by every lane.
func (p *pass) lane0() *dataset.Subset {
	return p.subsets[0]
}

// appendValues adds one value per lane and returns the index of the value.
func (p *pass) appendValues(proto dataset.DecodedValue, values func(i int) dataset.Value) int {
	return p.emit(proto, nil, values)
}

// same returns the common value of all lanes.
func (p *pass) same(what string) (uint64, error) {
	for i := 1; i < p.cur.lanes(); i++ {
		if p.vals[i] != p.vals[0] || p.miss[i] != p.miss[0] {
			return 0, fmt.Errorf("%w: %s differs between subsets", errs.ErrDecode, what)
		}
	}

	return p.vals[0], nil
}

func (p *pass) element(ins expand.Instruction) error {
	d := ins.Descriptor
	bm := &p.op.bm
	if bm.pendingBits() && d != dataPresentIndicator {
		if err := bm.finish(p.lane0()); err != nil {
			return err
		}
	}

	if ins.Factor {
		return p.factor(ins)
	}

	if p.op.notPresent > 0 {
		p.op.notPresent--
		if !notPresentExempt(d) {
			p.appendValues(p.proto(ins, dataset.RoleData), func(int) dataset.Value { return dataset.Missing() })
			return nil
		}
	}

	if p.op.refBits > 0 && !d.IsClass31() {
		return p.referenceDefinition(ins)
	}

	if d == dataPresentIndicator && bm.collecting {
		if err := p.cur.uints(1, false, p.vals, p.miss); err != nil {
			return err
		}
		raw, err := p.same("data present bitmap")
		if err != nil {
			return err
		}
		bm.add(raw)
		p.appendValues(p.proto(ins, dataset.RoleDataPresent), func(int) dataset.Value { return dataset.Numeric(float64(raw)) })

		return nil
	}

	proto := p.proto(ins, dataset.RoleData)
	if bm.op == opQuality && !d.IsClass31() {
		if ref, ok := bm.nextRef(); ok {
			proto.Role, proto.Ref = dataset.RoleQuality, ref
		}
	}

	assoc, err := p.associated(d)
	if err != nil {
		return err
	}

	if err := p.decodeValue(ins, proto, assoc); err != nil {
		return err
	}
	if d == associatedSignificance {
		if !p.miss[0] {
			p.op.signif = int(p.vals[0])
		}
	}

	return nil
}

func (p *pass) proto(ins expand.Instruction, role dataset.Role) dataset.DecodedValue {
	return dataset.DecodedValue{
		Descriptor: ins.Descriptor,
		Entry:      ins.Entry,
		Path:       ins.Path,
		Role:       role,
		Ref:        dataset.NotFound,
	}
}

// decodeValue reads the value of ins into every lane.
func (p *pass) decodeValue(ins expand.Instruction, proto dataset.DecodedValue, assoc []*dataset.Associated) error {
	e := ins.Entry
	if w := p.op.localWidth; w > 0 {
		p.op.localWidth = 0
		if e == nil || e.Width != w {
			return p.emitRaw(proto, w, assoc)
		}
	}
	if e == nil {
		return fmt.Errorf("%w: no table B entry", errs.ErrUnknownDescriptor)
	}

	if isCharacter(e) {
		n := p.op.charCount(e)
		if err := p.cur.chars(n, p.strs, p.miss); err != nil {
			return err
		}
		p.emit(proto, assoc, func(i int) dataset.Value {
			if p.miss[i] {
				return dataset.Missing()
			}

			return dataset.String(p.strs[i])
		})

		return nil
	}

	f, err := p.op.numericField(e)
	if err != nil {
		return err
	}

	return p.emitNumeric(proto, f, assoc)
}

// emit appends one value per lane with its associated field.
func (p *pass) emit(proto dataset.DecodedValue, assoc []*dataset.Associated, value func(i int) dataset.Value) int {
	idx := 0
	for i, s := range p.subsets {
		v := proto
		v.Value = value(i)
		if assoc != nil {
			v.Associated = assoc[i]
		}
		idx = s.Append(v)
	}

	return idx
}

func (p *pass) emitNumeric(proto dataset.DecodedValue, f field, assoc []*dataset.Associated) error {
	if err := p.cur.uints(f.width, f.width > 1, p.vals, p.miss); err != nil {
		return err
	}
	p.emit(proto, assoc, func(i int) dataset.Value {
		if p.miss[i] {
			return dataset.Missing()
		}

		return dataset.Numeric(scaled(p.vals[i], f.ref, f.scale))
	})

	return nil
}

// emitRaw decodes a field of a width set by 206YYY as an unscaled integer.
func (p *pass) emitRaw(proto dataset.DecodedValue, width int, assoc []*dataset.Associated) error {
	return p.emitNumeric(proto, field{width: width}, assoc)
}

// scaled computes (raw + ref) * 10^-scale.
func scaled(raw uint64, ref int64, scale int) float64 {
	v := float64(int64(raw) + ref)
	switch {
	case scale > 0:
		return v / math.Pow10(scale)
	case scale < 0:
		return v * math.Pow10(-scale)
	default:
		return v
	}
}

// associated reads the associated field preceding a data element, one per lane.
func (p *pass) associated(d descriptor.Descriptor) ([]*dataset.Associated, error) {
	bits := p.op.associatedBits()
	if bits == 0 || d.IsClass31() {
		return nil, nil
	}
	if err := p.cur.uints(bits, true, p.vals, p.miss); err != nil {
		return nil, err
	}

	out := make([]*dataset.Associated, p.cur.lanes())
	for i := range out {
		out[i] = &dataset.Associated{
			Bits:         bits,
			Value:        p.vals[i],
			Significance: p.op.signif,
			Missing:      p.miss[i],
		}
	}

	return out, nil
}

// factor decodes a delayed replication factor and resolves the walker's pending group.
func (p *pass) factor(ins expand.Instruction) error {
	e := ins.Entry
	if err := p.cur.uints(e.Width, false, p.vals, p.miss); err != nil {
		return err
	}
	raw, err := p.same("delayed replication factor")
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrInvalidReplication, err)
	}

	p.appendValues(p.proto(ins, dataset.RoleReplicationFactor), func(int) dataset.Value {
		return dataset.Numeric(float64(raw))
	})

	n := expand.FactorCount(ins.Descriptor, int64(raw))

	return p.walker.ResolveCount(int(n))
}

// referenceDefinition reads a new reference value for the element of ins; the value
// applies to every later occurrence of the element until 203000.
func (p *pass) referenceDefinition(ins expand.Instruction) error {
	width := p.op.refBits
	if err := p.cur.uints(width, false, p.vals, p.miss); err != nil {
		return err
	}
	raw, err := p.same("reference value")
	if err != nil {
		return err
	}

	ref := referenceValue(raw, width)
	p.op.refs[ins.Descriptor] = ref
	p.appendValues(p.proto(ins, dataset.RoleReferenceDefinition), func(int) dataset.Value {
		return dataset.Numeric(float64(ref))
	})

	return nil
}

func (p *pass) operator(ins expand.Instruction) error {
	d := ins.Descriptor
	bm := &p.op.bm
	if bm.pendingBits() {
		if err := bm.finish(p.lane0()); err != nil {
			return err
		}
	}

	handled, err := p.op.apply(d)
	if err != nil || handled {
		return err
	}

	x, y := d.X(), d.Y()
	switch x {
	case 5:
		return p.characters(ins, y)

	case opQuality, opSubstituted, opStatistic, opDifference, opReplaced:
		switch {
		case y == 0:
			bm.open(x, p.lane0().Size())
			return nil
		case y == markerEnd && x != opQuality:
			return p.marker(ins, x)
		}

	case opCancelRefs:
		if y == 0 {
			bm.cancel(p.lane0().Size())
			return nil
		}

	case opDefineMap:
		if y == 0 {
			bm.store = true
			return nil
		}

	case opReuseMap:
		switch y {
		case 0:
			return bm.reuse()
		case markerEnd:
			bm.stored = nil
			return nil
		}
	}

	return errs.ErrUnsupportedOperator
}

// characters decodes the y characters inserted by 205YYY.
func (p *pass) characters(ins expand.Instruction, y int) error {
	if err := p.cur.chars(y, p.strs, p.miss); err != nil {
		return err
	}
	p.appendValues(p.proto(ins, dataset.RoleCharacterData), func(i int) dataset.Value {
		if p.miss[i] {
			return dataset.Missing()
		}

		return dataset.String(p.strs[i])
	})

	return nil
}

var markerRoles = map[int]dataset.Role{
	opSubstituted: dataset.RoleSubstituted,
	opStatistic:   dataset.RoleFirstOrderStatistic,
	opDifference:  dataset.RoleDifference,
	opReplaced:    dataset.RoleReplaced,
}

// marker decodes the value a 2XX255 marker stands for. It is encoded like the next
// value flagged present in the bitmap, except that difference statistics are one bit
// wider with a reference of -2^width so they can be negative.
func (p *pass) marker(ins expand.Instruction, x int) error {
	bm := &p.op.bm
	if bm.op != x {
		return fmt.Errorf("%w: %s outside its bitmap section", errs.ErrDecode, ins.Descriptor)
	}
	ref, ok := bm.nextRef()
	if !ok {
		return fmt.Errorf("%w: no bitmap entry left for %s", errs.ErrDecode, ins.Descriptor)
	}
	target, err := p.lane0().Descriptor(ref)
	if err != nil {
		return err
	}
	e := target.Entry
	if e == nil {
		return fmt.Errorf("%w: %s refers to value %d without a table B entry", errs.ErrDecode, ins.Descriptor, ref)
	}

	proto := dataset.DecodedValue{
		Descriptor: e.Descriptor,
		Entry:      e,
		Path:       ins.Path,
		Role:       markerRoles[x],
		Ref:        ref,
	}

	if isCharacter(e) {
		if err := p.cur.chars(e.Chars(), p.strs, p.miss); err != nil {
			return err
		}
		p.emit(proto, nil, func(i int) dataset.Value {
			if p.miss[i] {
				return dataset.Missing()
			}

			return dataset.String(p.strs[i])
		})

		return nil
	}

	f := field{width: e.Width, scale: e.Scale, ref: e.Reference}
	if x == opDifference {
		f.ref = -(int64(1) << uint(e.Width))
		f.width = e.Width + 1
	}

	return p.emitNumeric(proto, f, nil)
}
