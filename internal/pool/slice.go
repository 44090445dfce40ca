package pool

import "sync"

var (
	uint64SlicePool = sync.Pool{
		New: func() any { return &[]uint64{} },
	}
	boolSlicePool = sync.Pool{
		New: func() any { return &[]bool{} },
	}
)

// GetUint64Slice retrieves a zeroed uint64 slice of the given length.
//
// The caller must call the returned cleanup function, typically with defer, and must
// not use the slice afterwards.
//
// Example:
//
//	incs, cleanup := pool.GetUint64Slice(nsub)
//	defer cleanup()
func GetUint64Slice(size int) ([]uint64, func()) {
	ptr, _ := uint64SlicePool.Get().(*[]uint64)
	s := resize(*ptr, size)
	*ptr = s

	return s, func() { uint64SlicePool.Put(ptr) }
}

// GetBoolSlice retrieves a zeroed bool slice of the given length.
func GetBoolSlice(size int) ([]bool, func()) {
	ptr, _ := boolSlicePool.Get().(*[]bool)
	s := resize(*ptr, size)
	*ptr = s

	return s, func() { boolSlicePool.Put(ptr) }
}

func resize[T any](s []T, size int) []T {
	if cap(s) < size {
		return make([]T, size)
	}
	s = s[:size]
	clear(s)

	return s
}
