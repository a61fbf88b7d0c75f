package corpus

import (
	"fmt"
	"strings"

	"github.com/surgebase/porter2"
)

// FuncAttribute adapts a string function into a unary dynamic attribute.
type FuncAttribute struct {
	name string
	fn   func(string) string
}

// NewFuncAttribute returns a dynamic attribute computing fn over its
// single string argument.
func NewFuncAttribute(name string, fn func(string) string) *FuncAttribute {
	return &FuncAttribute{name: name, fn: fn}
}

func (d *FuncAttribute) Name() string { return d.name }
func (d *FuncAttribute) Arity() int   { return 1 }

func (d *FuncAttribute) Call(args []Value) (Value, error) {
	if len(args) != 1 {
		return None(), fmt.Errorf("%s: %w: got %d, want 1", d.name, ErrArity, len(args))
	}
	s, ok := args[0].AsString()
	if !ok {
		return None(), fmt.Errorf("%s: argument of kind %s has no string value", d.name, args[0].Kind)
	}
	return StringValue(d.fn(s)), nil
}

// StemAttribute is the English Porter2 stem of a word.
func StemAttribute() *FuncAttribute {
	return NewFuncAttribute("stem", porter2.Stem)
}

// LowerAttribute is the lowercase form of a word.
func LowerAttribute() *FuncAttribute {
	return NewFuncAttribute("lower", strings.ToLower)
}

// derive computes the value of a derived positional attribute.
func derive(kind, word string) string {
	switch kind {
	case DeriveLower:
		return strings.ToLower(word)
	case DeriveStem:
		return porter2.Stem(strings.ToLower(word))
	case DeriveFold:
		return Fold(word, IgnoreCase|IgnoreDiacritics)
	default:
		return word
	}
}
