package decoder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/bufr/dataset"
	"github.com/arloliu/bufr/errs"
	"github.com/arloliu/bufr/internal/bufrtest"
)

func TestDecodeCompressed(t *testing.T) {
	data := bufrtest.NewData().
		Compressed(7, []uint64{10, 11, 12}, nil).
		Compressed(16, []uint64{27315, 0, 28000}, []bool{false, true, false}).
		CompressedStrings(20, []string{"ALPHA", "BETA", "GAMMA"})

	ds, err := decode(t, []int{1001, 12101, 1015}, 3, true, data)
	require.NoError(t, err)
	require.True(t, ds.Compressed())
	require.Equal(t, 3, ds.Size())

	names := []string{"ALPHA", "BETA", "GAMMA"}
	for i, s := range ds.All() {
		require.Equal(t, 3, s.Size())
		requireFloat(t, float64(10+i), value(t, s, 0))
		txt, ok := value(t, s, 2).Value.Text()
		require.True(t, ok)
		require.Equal(t, names[i], txt)
	}

	requireFloat(t, 273.15, value(t, subset(t, ds, 0), 1))
	require.True(t, value(t, subset(t, ds, 1), 1).IsMissing())
	requireFloat(t, 280, value(t, subset(t, ds, 2), 1))
}

func TestDecodeCompressedConstantColumns(t *testing.T) {
	data := bufrtest.NewData().
		Compressed(7, []uint64{10, 10}, nil).
		Compressed(16, nil, nil). // all missing: R0 set, no increments
		CompressedStrings(20, []string{"SAME", "SAME"})

	ds, err := decode(t, []int{1001, 12101, 1015}, 2, true, data)
	require.NoError(t, err)

	for _, s := range ds.All() {
		requireFloat(t, 10, value(t, s, 0))
		require.True(t, value(t, s, 1).IsMissing())
		txt, _ := value(t, s, 2).Value.Text()
		require.Equal(t, "SAME", txt)
	}
}

func TestDecodeCompressedReplication(t *testing.T) {
	data := bufrtest.NewData().
		Compressed(8, []uint64{2, 2}, nil).
		Compressed(16, []uint64{27315, 27415}, nil).
		Compressed(16, []uint64{27215, 27315}, nil)

	ds, err := decode(t, []int{101000, 31001, 12101}, 2, true, data)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Size())

	for i, s := range ds.All() {
		require.Equal(t, 3, s.Size())
		require.Equal(t, dataset.RoleReplicationFactor, value(t, s, 0).Role)
		requireFloat(t, 273.15+float64(i), value(t, s, 1))
		requireFloat(t, 272.15+float64(i), value(t, s, 2))
		m, ok := value(t, s, 2).Path.InnermostReplication()
		require.True(t, ok)
		require.Equal(t, 1, m.Index)
	}
}

func TestDecodeCompressedFactorMismatch(t *testing.T) {
	data := bufrtest.NewData().
		Compressed(8, []uint64{1, 2}, nil).
		Compressed(16, []uint64{27315, 27415}, nil)

	ds, err := decode(t, []int{101000, 31001, 12101}, 2, true, data)
	require.ErrorIs(t, err, errs.ErrInvalidReplication)

	var de *errs.DecodeError
	require.ErrorAs(t, err, &de)
	require.Zero(t, de.Subset)
	require.Zero(t, ds.Size(), "a compressed failure fails every subset")
}

func TestDecodeCompressedOperators(t *testing.T) {
	data := bufrtest.NewData().
		Compressed(20, []uint64{273150, 283150}, nil).
		Compressed(16, []uint64{27315, 27315}, nil).
		Compressed(1, []uint64{0, 0}, nil).
		Compressed(16, []uint64{27215, 27115}, nil)

	descs := []int{201132, 202129, 12101, 201000, 202000, 12101, 223000, 101001, 31031, 223255}
	ds, err := decode(t, descs, 2, true, data)
	require.NoError(t, err)

	for i, s := range ds.All() {
		require.Equal(t, 4, s.Size())
		requireFloat(t, 273.15+10*float64(i), value(t, s, 0))
		sub := value(t, s, 3)
		require.Equal(t, dataset.RoleSubstituted, sub.Role)
		require.Equal(t, 1, sub.Ref)
		requireFloat(t, 272.15-float64(i), sub)
	}
}

func TestDecodeCompressedTruncated(t *testing.T) {
	data := bufrtest.NewData().Compressed(7, []uint64{10, 20}, nil)

	ds, err := decode(t, []int{1001, 12101}, 2, true, data)
	require.ErrorIs(t, err, errs.ErrTruncatedData)
	require.Zero(t, ds.Size())
}
