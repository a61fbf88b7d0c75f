package eval

// rightBoundary returns the last position a match starting at cpos may
// reach under the search context, or -1 if cpos lies outside every region
// of a structural context.
func (ev *evaluator) rightBoundary(cpos int) int {
	sc := ev.env.Context
	size := ev.env.QueryCorpus.MotherSize

	if sc.Attr == nil {
		n := sc.Size
		if n <= 0 {
			n = ev.opts.hardBoundary
		}
		return min(cpos+n-1, size-1)
	}

	n := max(sc.Size, 1)
	idx := sc.Attr.RegionAt(cpos)
	if idx < 0 {
		return -1
	}
	last := min(idx+n-1, sc.Attr.RegionCount()-1)
	_, end, ok := sc.Attr.Bounds(last)
	if !ok {
		return -1
	}
	return end
}

// cposOffset moves cpos by delta. A result outside 0..size-1 is clamped
// to the nearest edge when clamp is set and is -1 otherwise.
func cposOffset(cpos, delta, size int, clamp bool) int {
	p := cpos + delta
	switch {
	case p < 0:
		if clamp {
			return 0
		}
		return -1
	case p >= size:
		if clamp {
			return size - 1
		}
		return -1
	}
	return p
}
