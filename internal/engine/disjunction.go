package engine

import "container/heap"

// DisjunctionIterator implements OR logic over multiple PositionIterators.
// It uses a min-heap to merge iterators in position order and emits each
// position once.
type DisjunctionIterator struct {
	h       iterHeap
	current int
}

// NewDisjunctionIterator creates an OR iterator over the given children.
func NewDisjunctionIterator(children []PositionIterator) *DisjunctionIterator {
	d := &DisjunctionIterator{current: -1}

	for _, child := range children {
		if child.Next() {
			d.h = append(d.h, child)
		}
	}
	heap.Init(&d.h)

	return d
}

func (d *DisjunctionIterator) Next() bool {
	if len(d.h) == 0 {
		return false
	}

	d.current = d.h[0].Pos()

	// Advance all iterators sitting on the current position.
	for len(d.h) > 0 && d.h[0].Pos() == d.current {
		top := d.h[0]
		if top.Next() {
			heap.Fix(&d.h, 0)
		} else {
			heap.Pop(&d.h)
		}
	}

	return true
}

func (d *DisjunctionIterator) Pos() int {
	return d.current
}

func (d *DisjunctionIterator) Advance(target int) bool {
	if d.current >= target {
		return true
	}
	for len(d.h) > 0 && d.h[0].Pos() < target {
		top := d.h[0]
		if top.Advance(target) {
			heap.Fix(&d.h, 0)
		} else {
			heap.Pop(&d.h)
		}
	}
	return d.Next()
}

func (d *DisjunctionIterator) Cost() int64 {
	var total int64
	for _, it := range d.h {
		total += it.Cost() + 1
	}
	return total
}

// MergePositions returns the sorted, duplicate-free union of several
// sorted position lists.
func MergePositions(lists ...[]int) []int {
	switch len(lists) {
	case 0:
		return nil
	case 1:
		return lists[0]
	}
	children := make([]PositionIterator, 0, len(lists))
	for _, l := range lists {
		if len(l) > 0 {
			children = append(children, NewSlicePositionIterator(l))
		}
	}
	return Collect(NewDisjunctionIterator(children))
}

// iterHeap is a min-heap of PositionIterators ordered by current position.
type iterHeap []PositionIterator

func (h iterHeap) Len() int           { return len(h) }
func (h iterHeap) Less(i, j int) bool { return h[i].Pos() < h[j].Pos() }
func (h iterHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *iterHeap) Push(x any)        { *h = append(*h, x.(PositionIterator)) }
func (h *iterHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
