package eval

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"CQPEval/internal/corpus"
	"CQPEval/internal/query"
)

var errArgument = errors.New("bad argument")

// builtin is a function callable from constraints. fn receives the call
// node as well, since some builtins read the attribute of an argument
// rather than its value.
type builtin struct {
	name  string
	arity int
	fn    func(call *query.Func, args []corpus.Value) (corpus.Value, error)
}

var builtins = []builtin{
	{"f", 1, bFreq},
	{"distance", 2, bDistance},
	{"dist", 2, bDistance},
	{"distabs", 2, bDistAbs},
	{"int", 1, bInt},
	{"lbound", 1, bBound(query.SAStart)},
	{"rbound", 1, bBound(query.SAEnd)},
	{"lbound_of", 2, bBoundOf(false)},
	{"rbound_of", 2, bBoundOf(true)},
	{"strlen", 1, bStrlen},
	{"prefix", 2, bPrefix},
	{"is_prefix", 2, bIsPrefix},
	{"minus", 2, bMinus},
	{"ambiguity", 1, bAmbiguity},
	{"add", 2, bArith(func(a, b int) int { return a + b })},
	{"sub", 2, bArith(func(a, b int) int { return a - b })},
	{"mul", 2, bArith(func(a, b int) int { return a * b })},
	{"normalize", 2, bNormalize},
}

// BuiltinID returns the id of the named builtin, or -1.
func BuiltinID(name string) int {
	for i, b := range builtins {
		if b.name == name {
			return i
		}
	}
	return -1
}

// BuiltinArity returns the number of arguments builtin id takes.
func BuiltinArity(id int) int {
	if id < 0 || id >= len(builtins) {
		return -1
	}
	return builtins[id].arity
}

func callBuiltin(call *query.Func, args []corpus.Value) (corpus.Value, error) {
	if call.Builtin >= len(builtins) {
		return corpus.None(), fmt.Errorf("unknown builtin id %d", call.Builtin)
	}
	b := builtins[call.Builtin]
	if len(args) != b.arity {
		return corpus.None(), fmt.Errorf("%w: got %d, want %d", corpus.ErrArity, len(args), b.arity)
	}
	return b.fn(call, args)
}

func str(v corpus.Value, i int) (string, error) {
	s, ok := v.AsString()
	if !ok || v.Kind == corpus.ValueNone {
		return "", fmt.Errorf("%w %d: %s has no string value", errArgument, i+1, v.Kind)
	}
	return s, nil
}

func integer(v corpus.Value, i int) (int, error) {
	switch v.Kind {
	case corpus.ValueInt, corpus.ValuePos:
		return v.Int, nil
	case corpus.ValueString:
		n, err := strconv.Atoi(strings.TrimSpace(v.Str))
		if err != nil {
			return 0, fmt.Errorf("%w %d: %w", errArgument, i+1, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w %d: %s is not an integer", errArgument, i+1, v.Kind)
}

func bFreq(call *query.Func, args []corpus.Value) (corpus.Value, error) {
	ref, ok := call.Args[0].(*query.PARef)
	if !ok || ref.Attr == nil {
		return corpus.None(), fmt.Errorf("%w 1: f() needs a positional attribute", errArgument)
	}
	s, err := str(args[0], 0)
	if err != nil {
		return corpus.None(), err
	}
	id := ref.Attr.ID(s)
	if id < 0 {
		return corpus.IntValue(0), nil
	}
	return corpus.IntValue(ref.Attr.Frequency(id)), nil
}

func positions(args []corpus.Value) (int, int, bool, error) {
	a, err := integer(args[0], 0)
	if err != nil {
		return 0, 0, false, err
	}
	b, err := integer(args[1], 1)
	if err != nil {
		return 0, 0, false, err
	}
	return a, b, a >= 0 && b >= 0, nil
}

func bDistance(_ *query.Func, args []corpus.Value) (corpus.Value, error) {
	a, b, ok, err := positions(args)
	if err != nil || !ok {
		return corpus.None(), err
	}
	return corpus.IntValue(a - b), nil
}

func bDistAbs(_ *query.Func, args []corpus.Value) (corpus.Value, error) {
	a, b, ok, err := positions(args)
	if err != nil || !ok {
		return corpus.None(), err
	}
	if a < b {
		return corpus.IntValue(b - a), nil
	}
	return corpus.IntValue(a - b), nil
}

func bInt(_ *query.Func, args []corpus.Value) (corpus.Value, error) {
	n, err := integer(args[0], 0)
	if err != nil {
		return corpus.None(), err
	}
	return corpus.IntValue(n), nil
}

func structural(call *query.Func, name string) (query.Structural, error) {
	ref, ok := call.Args[0].(*query.SARef)
	if !ok || ref.Attr == nil {
		return nil, fmt.Errorf("%w 1: %s() needs a structural attribute", errArgument, name)
	}
	return ref.Attr, nil
}

// bBound tests the boundary flags of an unlabelled structural reference.
func bBound(flag int) func(*query.Func, []corpus.Value) (corpus.Value, error) {
	return func(call *query.Func, args []corpus.Value) (corpus.Value, error) {
		if _, err := structural(call, call.Name); err != nil {
			return corpus.None(), err
		}
		if args[0].Kind != corpus.ValueInt {
			return corpus.None(), fmt.Errorf("%w 1: %s() needs an unlabelled attribute", errArgument, call.Name)
		}
		if args[0].Int&flag != 0 {
			return corpus.IntValue(1), nil
		}
		return corpus.IntValue(0), nil
	}
}

// bBoundOf yields the first or last position of the region around a
// labelled position.
func bBoundOf(end bool) func(*query.Func, []corpus.Value) (corpus.Value, error) {
	return func(call *query.Func, args []corpus.Value) (corpus.Value, error) {
		attr, err := structural(call, call.Name)
		if err != nil {
			return corpus.None(), err
		}
		if args[1].Kind != corpus.ValuePos {
			return corpus.None(), fmt.Errorf("%w 2: %s() needs a label", errArgument, call.Name)
		}
		if args[1].Int < 0 {
			return corpus.None(), nil
		}
		_, start, stop, ok := corpus.RegionBounds(attr, args[1].Int)
		if !ok {
			return corpus.None(), nil
		}
		if end {
			return corpus.IntValue(stop), nil
		}
		return corpus.IntValue(start), nil
	}
}

func bStrlen(_ *query.Func, args []corpus.Value) (corpus.Value, error) {
	s, err := str(args[0], 0)
	if err != nil {
		return corpus.None(), err
	}
	return corpus.IntValue(utf8.RuneCountInString(s)), nil
}

func twoStrings(args []corpus.Value) (string, string, error) {
	a, err := str(args[0], 0)
	if err != nil {
		return "", "", err
	}
	b, err := str(args[1], 1)
	return a, b, err
}

func bPrefix(_ *query.Func, args []corpus.Value) (corpus.Value, error) {
	a, b, err := twoStrings(args)
	if err != nil {
		return corpus.None(), err
	}
	n := 0
	for n < len(a) && n < len(b) {
		ra, wa := utf8.DecodeRuneInString(a[n:])
		rb, _ := utf8.DecodeRuneInString(b[n:])
		if ra != rb {
			break
		}
		n += wa
	}
	return corpus.StringValue(a[:n]), nil
}

func bIsPrefix(_ *query.Func, args []corpus.Value) (corpus.Value, error) {
	a, b, err := twoStrings(args)
	if err != nil {
		return corpus.None(), err
	}
	if strings.HasPrefix(b, a) {
		return corpus.IntValue(1), nil
	}
	return corpus.IntValue(0), nil
}

func bMinus(_ *query.Func, args []corpus.Value) (corpus.Value, error) {
	a, b, err := twoStrings(args)
	if err != nil {
		return corpus.None(), err
	}
	return corpus.StringValue(strings.TrimSuffix(a, b)), nil
}

// bAmbiguity counts the members of a feature set value such as "|a|b|".
func bAmbiguity(_ *query.Func, args []corpus.Value) (corpus.Value, error) {
	s, err := str(args[0], 0)
	if err != nil {
		return corpus.None(), err
	}
	n := 0
	for _, part := range strings.Split(s, "|") {
		if part != "" {
			n++
		}
	}
	return corpus.IntValue(n), nil
}

func bArith(op func(a, b int) int) func(*query.Func, []corpus.Value) (corpus.Value, error) {
	return func(_ *query.Func, args []corpus.Value) (corpus.Value, error) {
		a, err := integer(args[0], 0)
		if err != nil {
			return corpus.None(), err
		}
		b, err := integer(args[1], 1)
		if err != nil {
			return corpus.None(), err
		}
		return corpus.IntValue(op(a, b)), nil
	}
}

func bNormalize(_ *query.Func, args []corpus.Value) (corpus.Value, error) {
	s, flags, err := twoStrings(args)
	if err != nil {
		return corpus.None(), err
	}
	f, err := corpus.ParseRegexFlags(flags)
	if err != nil {
		return corpus.None(), fmt.Errorf("%w 2: %w", errArgument, err)
	}
	return corpus.StringValue(corpus.Fold(s, f)), nil
}
