package expand

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/bufr/descriptor"
	"github.com/arloliu/bufr/errs"
	"github.com/arloliu/bufr/nesting"
	"github.com/arloliu/bufr/tables"
)

func testRegistry(t testing.TB) *tables.Registry {
	t.Helper()

	b := []tables.TableBEntry{
		{Descriptor: 1001, Name: "WMO BLOCK NUMBER", Unit: "NUMERIC", Width: 7},
		{Descriptor: 1002, Name: "WMO STATION NUMBER", Unit: "NUMERIC", Width: 10},
		{Descriptor: 10001, Name: "HEIGHT OF STATION", Unit: "M", Reference: -400, Width: 15},
		{Descriptor: 10002, Name: "HEIGHT", Unit: "M", Scale: -1, Reference: -40, Width: 12},
		{Descriptor: 12101, Name: "TEMPERATURE", Unit: "K", Scale: 2, Width: 16},
		{Descriptor: 31000, Name: "SHORT DELAYED REPLICATION FACTOR", Unit: "NUMERIC", Width: 1},
		{Descriptor: 31001, Name: "DELAYED REPLICATION FACTOR", Unit: "NUMERIC", Width: 8},
		{Descriptor: 31002, Name: "EXTENDED DELAYED REPLICATION FACTOR", Unit: "NUMERIC", Width: 16},
		{Descriptor: 31011, Name: "DELAYED REPETITION FACTOR", Unit: "NUMERIC", Width: 8},
	}
	d := []tables.TableDEntry{
		{Descriptor: 301001, Members: descriptor.FromInts(1001, 1002)},
		{Descriptor: 301025, Members: descriptor.FromInts(10001, 10002)},
		{Descriptor: 301100, Members: descriptor.FromInts(301001, 301025)},
		{Descriptor: 309001, Members: descriptor.FromInts(12101, 309002)},
		{Descriptor: 309002, Members: descriptor.FromInts(309001)},
		{Descriptor: 309003, Members: descriptor.FromInts(309003)},
		{Descriptor: 309004, Members: descriptor.FromInts(101000, 31001, 309004)},
	}

	reg := tables.New(13)
	require.NoError(t, reg.Load(tables.NewStaticSource("test", b, d), true))

	return reg
}

func TestExpandSequence(t *testing.T) {
	reg := testRegistry(t)

	ins, err := Expand(reg, descriptor.FromInts(301100, 12101), Limits{})
	require.NoError(t, err)
	require.Equal(t, []int{1001, 1002, 10001, 10002, 12101}, Codes(ins))

	require.Equal(t, "301100#0/301001#0", ins[0].Path.String())
	require.Equal(t, "301100#0/301025#0", ins[2].Path.String())
	require.Zero(t, ins[4].Path.Depth())

	for _, in := range ins {
		require.Equal(t, KindElement, in.Kind)
		require.NotNil(t, in.Entry)
		require.Equal(t, in.Descriptor, in.Entry.Descriptor)
	}
}

func TestExpandSiblingSequences(t *testing.T) {
	reg := testRegistry(t)

	ins, err := Expand(reg, descriptor.FromInts(301025, 301025), Limits{})
	require.NoError(t, err)
	require.Len(t, ins, 4)
	require.Equal(t, "301025#0", ins[0].Path.String())
	require.Equal(t, "301025#1", ins[2].Path.String())
}

func TestExpandFixedReplication(t *testing.T) {
	reg := testRegistry(t)

	group := descriptor.FromInts(301025, 12101)
	base, err := Expand(reg, group, Limits{})
	require.NoError(t, err)
	size := len(base)
	require.Equal(t, 3, size)

	for n := 1; n <= 6; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			descs := append([]descriptor.Descriptor{descriptor.New(1, len(group), n)}, group...)
			ins, err := Expand(reg, descs, Limits{})
			require.NoError(t, err)
			require.Len(t, ins, n*size)

			for i, in := range ins {
				m, ok := in.Path.At(0)
				require.True(t, ok)
				require.Equal(t, nesting.KindReplication, m.Kind)
				require.Equal(t, i/size, m.Index)
				require.False(t, m.Delayed)
				require.Equal(t, base[i%size].Descriptor, in.Descriptor)
			}
			// sequence instances restart with every iteration
			require.Equal(t, fmt.Sprintf("%s[%d]/301025#0", descs[0], n-1), ins[len(ins)-3].Path.String())
		})
	}
}

func TestExpandPathsAreImmutable(t *testing.T) {
	reg := testRegistry(t)

	ins, err := Expand(reg, descriptor.FromInts(102003, 10001, 10002), Limits{})
	require.NoError(t, err)
	require.Len(t, ins, 6)
	require.Equal(t, []int{0, 0, 1, 1, 2, 2}, []int{
		ins[0].Path[0].Index, ins[1].Path[0].Index, ins[2].Path[0].Index,
		ins[3].Path[0].Index, ins[4].Path[0].Index, ins[5].Path[0].Index,
	})
}

func TestExpandDelayedStructural(t *testing.T) {
	reg := testRegistry(t)

	ins, err := Expand(reg, descriptor.FromInts(101000, 31001, 12101, 10001), Limits{})
	require.NoError(t, err)
	require.Equal(t, []int{31001, 12101, 10001}, Codes(ins))

	require.True(t, ins[0].Factor)
	require.Equal(t, descriptor.Descriptor(101000), ins[0].Replicator)
	require.Zero(t, ins[0].Path.Depth())

	m, ok := ins[1].Path.InnermostReplication()
	require.True(t, ok)
	require.True(t, m.Delayed)
	require.Equal(t, 0, m.Index)
	require.Zero(t, ins[2].Path.Depth())
}

func TestWalkerLiveDelayed(t *testing.T) {
	reg := testRegistry(t)
	w := NewWalker(reg, descriptor.FromInts(101000, 31001, 12101, 10001), Limits{})

	ins, ok, err := w.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, ins.Factor)
	require.True(t, w.Pending())

	_, _, err = w.Next()
	require.ErrorIs(t, err, errs.ErrCountPending)

	require.NoError(t, w.ResolveCount(3))
	for i := range 3 {
		ins, ok, err = w.Next()
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, descriptor.Descriptor(12101), ins.Descriptor)
		require.Equal(t, []int{i}, ins.Path.Replications())
	}

	ins, ok, err = w.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, descriptor.Descriptor(10001), ins.Descriptor)

	_, ok, err = w.Next()
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 5, w.Emitted())
}

func TestWalkerZeroCount(t *testing.T) {
	reg := testRegistry(t)
	w := NewWalker(reg, descriptor.FromInts(101000, 31000, 12101), Limits{})

	_, ok, err := w.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, w.ResolveCount(0))

	_, ok, err = w.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWalkerResolveCountBounds(t *testing.T) {
	reg := testRegistry(t)

	require.ErrorIs(t, NewWalker(reg, nil, Limits{}).ResolveCount(1), errs.ErrInvalidReplication)

	for _, n := range []int{-1, 11} {
		w := NewWalker(reg, descriptor.FromInts(101000, 31002, 12101), Limits{MaxReplication: 10})
		_, _, err := w.Next()
		require.NoError(t, err)
		err = w.ResolveCount(n)
		require.ErrorIs(t, err, errs.ErrInvalidReplication)
	}
}

func TestExpandInvalidReplication(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		name  string
		descs []int
	}{
		{"fixed group exceeds frame", []int{103002, 12101, 10001}},
		{"delayed group exceeds frame", []int{102000, 31001, 12101}},
		{"delayed without factor", []int{101000, 12101}},
		{"delayed at end of frame", []int{101000}},
		{"zero descriptors", []int{100002, 12101}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Expand(reg, descriptor.FromInts(tt.descs...), Limits{})
			require.ErrorIs(t, err, errs.ErrInvalidReplication)

			var de *errs.DescriptorError
			require.True(t, errors.As(err, &de))
			require.Equal(t, 1, descriptor.Descriptor(de.Descriptor).F())
		})
	}
}

func TestExpandCycles(t *testing.T) {
	reg := testRegistry(t)

	for _, d := range []int{309001, 309003, 309004} {
		t.Run(fmt.Sprint(d), func(t *testing.T) {
			_, err := Expand(reg, descriptor.FromInts(d), Limits{})
			require.ErrorIs(t, err, errs.ErrCyclicTemplate)
		})
	}
}

func TestExpandUnknownDescriptor(t *testing.T) {
	reg := testRegistry(t)

	_, err := Expand(reg, descriptor.FromInts(301025, 12999), Limits{})
	require.ErrorIs(t, err, errs.ErrUnknownDescriptor)
	var de *errs.DescriptorError
	require.True(t, errors.As(err, &de))
	require.Equal(t, 12999, de.Descriptor)

	_, err = Expand(reg, descriptor.FromInts(102002, 301999), Limits{})
	require.ErrorIs(t, err, errs.ErrUnknownDescriptor)
	require.True(t, errors.As(err, &de))
	require.Equal(t, 301999, de.Descriptor)
	require.Equal(t, "102002[0]", de.Path)
}

func TestExpandLocalWidthAllowsUnknown(t *testing.T) {
	reg := testRegistry(t)

	ins, err := Expand(reg, descriptor.FromInts(206012, 48001, 12101), Limits{})
	require.NoError(t, err)
	require.Equal(t, []int{206012, 48001, 12101}, Codes(ins))
	require.Equal(t, KindOperator, ins[0].Kind)
	require.Nil(t, ins[1].Entry)
	require.NotNil(t, ins[2].Entry)

	_, err = Expand(reg, descriptor.FromInts(206012, 12101, 48001), Limits{})
	require.ErrorIs(t, err, errs.ErrUnknownDescriptor, "only the next element may be unknown")
}

func TestExpandLimits(t *testing.T) {
	reg := testRegistry(t)

	_, err := Expand(reg, descriptor.FromInts(301100), Limits{MaxDepth: 2})
	require.ErrorIs(t, err, errs.ErrNestingTooDeep)

	_, err = Expand(reg, descriptor.FromInts(101005, 12101), Limits{MaxDepth: 1})
	require.ErrorIs(t, err, errs.ErrNestingTooDeep)

	_, err = Expand(reg, descriptor.FromInts(103010, 1001, 1002, 10001), Limits{MaxInstructions: 5})
	require.ErrorIs(t, err, errs.ErrExpansionTooLarge)

	ins, err := Expand(reg, descriptor.FromInts(301100), Limits{MaxDepth: 3})
	require.NoError(t, err)
	require.Len(t, ins, 4)
}

func TestExpandEmpty(t *testing.T) {
	ins, err := Expand(testRegistry(t), nil, Limits{})
	require.NoError(t, err)
	require.Empty(t, ins)
}

func TestFactorCount(t *testing.T) {
	require.Equal(t, int64(0), FactorCount(31000, 0))
	require.Equal(t, int64(1), FactorCount(31000, 1))
	require.Equal(t, int64(200), FactorCount(31001, 200))
	require.Equal(t, int64(1), FactorCount(31011, 7))
	require.Equal(t, int64(0), FactorCount(31012, 0))
}

func BenchmarkExpand(b *testing.B) {
	reg := testRegistry(b)
	descs := descriptor.FromInts(110050, 301100, 301025, 301001, 301025, 12101, 10001, 10002, 1001, 1002, 12101)
	for b.Loop() {
		_, _ = Expand(reg, descs, Limits{})
	}
}
