package engine

import "sort"

// ConjunctionIterator implements AND logic over multiple PositionIterators.
// It uses the lowest-cost iterator as the lead and advances all others to alignment.
type ConjunctionIterator struct {
	children []PositionIterator
	lead     PositionIterator
	current  int
}

// NewConjunctionIterator creates an AND iterator over the given children.
// Children must not be empty.
func NewConjunctionIterator(children []PositionIterator) *ConjunctionIterator {
	sorted := make([]PositionIterator, len(children))
	copy(sorted, children)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Cost() < sorted[j].Cost()
	})

	return &ConjunctionIterator{
		children: sorted,
		lead:     sorted[0],
		current:  -1,
	}
}

func (c *ConjunctionIterator) Next() bool {
	if !c.lead.Next() {
		return false
	}
	return c.align(c.lead.Pos())
}

func (c *ConjunctionIterator) Pos() int {
	return c.current
}

func (c *ConjunctionIterator) Advance(target int) bool {
	if !c.lead.Advance(target) {
		return false
	}
	return c.align(c.lead.Pos())
}

func (c *ConjunctionIterator) Cost() int64 {
	return c.lead.Cost()
}

// align advances all iterators until they all point to the same position.
func (c *ConjunctionIterator) align(target int) bool {
	for {
		allAligned := true
		for _, child := range c.children {
			if child == c.lead {
				continue
			}
			if !child.Advance(target) {
				return false
			}
			if child.Pos() > target {
				target = child.Pos()
				if !c.lead.Advance(target) {
					return false
				}
				// Lead may have landed past target.
				target = c.lead.Pos()
				allAligned = false
				break
			}
		}
		if allAligned {
			c.current = target
			return true
		}
	}
}

// IntersectPositions returns the positions present in every list.
func IntersectPositions(lists ...[]int) []int {
	if len(lists) == 0 {
		return nil
	}
	children := make([]PositionIterator, len(lists))
	for i, l := range lists {
		if len(l) == 0 {
			return nil
		}
		children[i] = NewSlicePositionIterator(l)
	}
	return Collect(NewConjunctionIterator(children))
}
