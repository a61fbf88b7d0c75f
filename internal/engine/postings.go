package engine

// PositionIterator iterates over a list of corpus positions in increasing order.
type PositionIterator interface {
	// Next advances to the next position. Returns false when exhausted.
	Next() bool

	// Pos returns the current corpus position. Valid only after Next() returns true.
	Pos() int

	// Advance moves to the first position >= target. Returns false if no such position.
	Advance(target int) bool

	// Cost returns an estimate of remaining positions.
	Cost() int64
}

// SlicePositionIterator is an in-memory PositionIterator backed by a sorted slice.
type SlicePositionIterator struct {
	positions []int
	pos       int
}

// NewSlicePositionIterator creates a PositionIterator over positions,
// which must be sorted ascending.
func NewSlicePositionIterator(positions []int) *SlicePositionIterator {
	return &SlicePositionIterator{
		positions: positions,
		pos:       -1,
	}
}

func (it *SlicePositionIterator) Next() bool {
	it.pos++
	return it.pos < len(it.positions)
}

func (it *SlicePositionIterator) Pos() int {
	return it.positions[it.pos]
}

func (it *SlicePositionIterator) Advance(target int) bool {
	if it.pos >= 0 && it.pos < len(it.positions) && it.positions[it.pos] >= target {
		return true
	}
	// Gallop, then binary search the bracketed window.
	lo := it.pos + 1
	step := 1
	hi := lo
	for hi < len(it.positions) && it.positions[hi] < target {
		lo = hi + 1
		hi += step
		step *= 2
	}
	if hi > len(it.positions) {
		hi = len(it.positions)
	}
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if it.positions[mid] < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	it.pos = lo
	return it.pos < len(it.positions)
}

func (it *SlicePositionIterator) Cost() int64 {
	remaining := len(it.positions) - it.pos - 1
	if remaining < 0 {
		return 0
	}
	return int64(remaining)
}

// Collect drains it into a slice.
func Collect(it PositionIterator) []int {
	var out []int
	if c := it.Cost(); c > 0 {
		out = make([]int, 0, c)
	}
	for it.Next() {
		out = append(out, it.Pos())
	}
	return out
}
