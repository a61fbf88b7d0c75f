package automaton

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/google/codesearch/sparse"

	"CQPEval/internal/query"
)

// DefaultMaxDFAStates bounds subset construction.
const DefaultMaxDFAStates = 10000

// maxNFANodes bounds the expansion of counted repetitions.
const maxNFANodes = 1 << 20

var (
	ErrDFAStateLimitExceeded = errors.New("DFA state limit exceeded during construction")
	ErrNotRegex              = errors.New("evaluation tree is not a token regex")
	ErrBadRepetition         = errors.New("invalid repetition bounds")
	ErrPatternIndex          = errors.New("pattern index out of range")
	ErrNFATooLarge           = errors.New("query automaton too large")
)

const epsilon = -1

// nfaNode has either one labelled edge (input >= 0 → next) or only
// ε-edges.
type nfaNode struct {
	input int
	next  int
	eps   []int
}

type frag struct {
	start, end int
}

type nfaBuilder struct {
	nodes       []nfaNode
	numPatterns int
}

func (b *nfaBuilder) node() (int, error) {
	if len(b.nodes) >= maxNFANodes {
		return 0, ErrNFATooLarge
	}
	b.nodes = append(b.nodes, nfaNode{input: epsilon, next: -1})
	return len(b.nodes) - 1, nil
}

func (b *nfaBuilder) link(from, to int) {
	b.nodes[from].eps = append(b.nodes[from].eps, to)
}

func (b *nfaBuilder) build(t query.EvalTree) (frag, error) {
	switch v := t.(type) {
	case *query.Leaf:
		if v.Pattern < 0 || v.Pattern >= b.numPatterns {
			return frag{}, fmt.Errorf("%w: %d of %d", ErrPatternIndex, v.Pattern, b.numPatterns)
		}
		s, err := b.node()
		if err != nil {
			return frag{}, err
		}
		e, err := b.node()
		if err != nil {
			return frag{}, err
		}
		b.nodes[s].input = v.Pattern
		b.nodes[s].next = e
		return frag{s, e}, nil

	case *query.Branch:
		switch v.Op {
		case query.OpConcat:
			l, err := b.build(v.Left)
			if err != nil {
				return frag{}, err
			}
			r, err := b.build(v.Right)
			if err != nil {
				return frag{}, err
			}
			b.link(l.end, r.start)
			return frag{l.start, r.end}, nil

		case query.OpDisjunction:
			l, err := b.build(v.Left)
			if err != nil {
				return frag{}, err
			}
			r, err := b.build(v.Right)
			if err != nil {
				return frag{}, err
			}
			s, err := b.node()
			if err != nil {
				return frag{}, err
			}
			e, err := b.node()
			if err != nil {
				return frag{}, err
			}
			b.link(s, l.start)
			b.link(s, r.start)
			b.link(l.end, e)
			b.link(r.end, e)
			return frag{s, e}, nil

		case query.OpRepeat:
			return b.repeat(v)
		}
		return frag{}, fmt.Errorf("%w: branch op %s", ErrNotRegex, v.Op)

	case nil:
		return frag{}, fmt.Errorf("%w: empty subtree", ErrNotRegex)
	default:
		return frag{}, fmt.Errorf("%w: tree type %d", ErrNotRegex, t.Type())
	}
}

func (b *nfaBuilder) repeat(v *query.Branch) (frag, error) {
	if v.Min == query.RepeatNone {
		return b.build(v.Left)
	}
	if v.Min < 0 || (v.Max != query.RepeatInf && v.Max < v.Min) {
		return frag{}, fmt.Errorf("%w: {%d,%d}", ErrBadRepetition, v.Min, v.Max)
	}

	s, err := b.node()
	if err != nil {
		return frag{}, err
	}
	cur := s
	for i := 0; i < v.Min; i++ {
		f, err := b.build(v.Left)
		if err != nil {
			return frag{}, err
		}
		b.link(cur, f.start)
		cur = f.end
	}

	if v.Max == query.RepeatInf {
		f, err := b.build(v.Left)
		if err != nil {
			return frag{}, err
		}
		loop, err := b.node()
		if err != nil {
			return frag{}, err
		}
		b.link(cur, loop)
		b.link(loop, f.start)
		b.link(f.end, loop)
		return frag{s, loop}, nil
	}

	for i := v.Min; i < v.Max; i++ {
		f, err := b.build(v.Left)
		if err != nil {
			return frag{}, err
		}
		skip, err := b.node()
		if err != nil {
			return frag{}, err
		}
		b.link(cur, f.start)
		b.link(cur, skip)
		b.link(f.end, skip)
		cur = skip
	}
	return frag{s, cur}, nil
}

// Compile translates a token regex over numPatterns pattern indices into a
// total DFA by Thompson construction followed by subset construction. A
// non-positive maxStates selects DefaultMaxDFAStates.
func Compile(tree query.EvalTree, numPatterns, maxStates int) (*DFA, error) {
	if maxStates <= 0 {
		maxStates = DefaultMaxDFAStates
	}
	b := &nfaBuilder{numPatterns: numPatterns}
	f, err := b.build(tree)
	if err != nil {
		return nil, err
	}
	return subsetConstruct(b.nodes, f, numPatterns, maxStates)
}

func subsetConstruct(nodes []nfaNode, f frag, numPatterns, maxStates int) (*DFA, error) {
	var work sparse.Set
	work.Init(uint32(len(nodes)))
	stack := make([]uint32, 0, len(nodes))

	closure := func(seeds []uint32) []uint32 {
		work.Reset()
		stack = stack[:0]
		for _, s := range seeds {
			if !work.Has(s) {
				work.Add(s)
				stack = append(stack, s)
			}
		}
		for len(stack) > 0 {
			s := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, e := range nodes[s].eps {
				if !work.Has(uint32(e)) {
					work.Add(uint32(e))
					stack = append(stack, uint32(e))
				}
			}
		}
		return sortedCopy(work.Dense())
	}

	var (
		sets  [][]uint32
		ids   = make(map[string]State)
		trans [][]State
		final []bool
	)
	add := func(set []uint32) (State, bool, error) {
		key := setKey(set)
		if id, ok := ids[key]; ok {
			return id, false, nil
		}
		if len(sets) >= maxStates {
			return 0, false, fmt.Errorf("%w: more than %d states", ErrDFAStateLimitExceeded, maxStates)
		}
		id := State(len(sets))
		ids[key] = id
		sets = append(sets, set)
		row := make([]State, numPatterns)
		for i := range row {
			row[i] = -1
		}
		trans = append(trans, row)
		accept := false
		for _, s := range set {
			if int(s) == f.end {
				accept = true
				break
			}
		}
		final = append(final, accept)
		return id, true, nil
	}

	if _, _, err := add(closure([]uint32{uint32(f.start)})); err != nil {
		return nil, err
	}
	for cur := 0; cur < len(sets); cur++ {
		byInput := make(map[int][]uint32)
		for _, s := range sets[cur] {
			if n := nodes[s]; n.input != epsilon {
				byInput[n.input] = append(byInput[n.input], uint32(n.next))
			}
		}
		for p := 0; p < numPatterns; p++ {
			seeds, ok := byInput[p]
			if !ok {
				continue
			}
			id, _, err := add(closure(seeds))
			if err != nil {
				return nil, err
			}
			trans[cur][p] = id
		}
	}

	eState := State(len(sets))
	for _, row := range trans {
		for i, s := range row {
			if s < 0 {
				row[i] = eState
			}
		}
	}
	return &DFA{
		MaxStates:  len(sets),
		MaxInput:   numPatterns,
		TransTable: trans,
		Final:      final,
		EState:     eState,
	}, nil
}

func sortedCopy(dense []uint32) []uint32 {
	out := make([]uint32, len(dense))
	copy(out, dense)
	// insertion sort: closures are small
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j] < out[j-1]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func setKey(set []uint32) string {
	buf := make([]byte, 4*len(set))
	for i, s := range set {
		binary.LittleEndian.PutUint32(buf[4*i:], s)
	}
	return string(buf)
}
