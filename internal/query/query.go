// Package query holds the compiled form of a corpus query: the pattern
// vocabulary, constraint trees, the evaluation tree and the descriptors
// that steer evaluation.
package query

import (
	"fmt"
	"strings"
)

// Strategy selects how overlapping matches from one start are resolved.
type Strategy int

const (
	StrategyTraditional Strategy = iota
	StrategyShortest
	StrategyStandard
	StrategyLongest
)

var strategyNames = map[Strategy]string{
	StrategyTraditional: "traditional",
	StrategyShortest:    "shortest",
	StrategyStandard:    "standard",
	StrategyLongest:     "longest",
}

func (s Strategy) String() string {
	if n, ok := strategyNames[s]; ok {
		return n
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// ParseStrategy accepts the strategy names with or without a "_match" suffix.
func ParseStrategy(s string) (Strategy, error) {
	name := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "_match")
	for st, n := range strategyNames {
		if n == name {
			return st, nil
		}
	}
	return StrategyStandard, fmt.Errorf("unknown matching strategy %q", s)
}

// Mark records whether a matched element sets the target or keyword anchor.
type Mark int

const (
	NotMarked Mark = iota
	MarkTarget
	MarkKeyword
)

// Repetition bounds of an evaluation tree Branch.
const (
	// RepeatNone marks a Branch that is not a repetition.
	RepeatNone = -2
	// RepeatInf is an unbounded maximum.
	RepeatInf = -1
)

// Limits on compiled queries.
const (
	MaxPatternElements = 5000
	MaxTreeDepth       = 1000
	MaxFuncArgs        = 16
)

// MatchSelector remaps a match to the span between two labels, each
// shifted by an offset. A nil label keeps the original boundary.
type MatchSelector struct {
	Begin       *LabelRef
	BeginOffset int
	End         *LabelRef
	EndOffset   int
}

// IsSet reports whether the selector changes anything.
func (ms *MatchSelector) IsSet() bool {
	return ms != nil && (ms.Begin != nil || ms.End != nil || ms.BeginOffset != 0 || ms.EndOffset != 0)
}

// SearchContext bounds the span a match may cover: Size tokens, or Size
// regions of Attr when Attr is set. Size 0 selects the hard boundary.
type SearchContext struct {
	Size     int
	AttrName string
	Attr     Structural
}
