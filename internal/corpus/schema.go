package corpus

import (
	"errors"
	"fmt"
)

// Analyzer names accepted by a schema.
const (
	AnalyzerStandard   = "standard"
	AnalyzerWhitespace = "whitespace"
	AnalyzerKeyword    = "keyword"
)

// Derivations fill a positional attribute from the default attribute.
const (
	DeriveNone  = ""
	DeriveLower = "lower"
	DeriveStem  = "stem"
	DeriveFold  = "fold"
)

// DefaultAttribute is the positional attribute a bare string refers to.
const DefaultAttribute = "word"

// Schema limits.
const (
	MaxAttributesPerSchema = 256
	MaxAttributeNameLength = 255
)

// Reserved names that cannot be used for attributes; they name anchors.
var reservedAttributeNames = map[string]bool{
	"match":    true,
	"matchend": true,
	"target":   true,
	"keyword":  true,
}

var (
	ErrSchemaAttributeLimit     = errors.New("schema exceeds maximum attribute count")
	ErrSchemaReservedName       = errors.New("attribute name is reserved")
	ErrSchemaDuplicateAttribute = errors.New("duplicate attribute name")
	ErrSchemaInvalidAnalyzer    = errors.New("invalid analyzer")
	ErrSchemaInvalidDerivation  = errors.New("invalid derivation")
	ErrSchemaNameTooLong        = errors.New("attribute name exceeds maximum length")
	ErrSchemaNoPositional       = errors.New("schema declares no positional attribute")
	ErrSchemaMissingTarget      = errors.New("alignment attribute requires a target corpus")
)

// Schema declares the attributes of a corpus.
type Schema struct {
	Name       string          `json:"name" yaml:"name"`
	Analyzer   string          `json:"analyzer,omitempty" yaml:"analyzer,omitempty"`
	Positional []PositionalDef `json:"positional" yaml:"positional"`
	Structural []StructuralDef `json:"structural,omitempty" yaml:"structural,omitempty"`
	Alignment  []AlignmentDef  `json:"alignment,omitempty" yaml:"alignment,omitempty"`
}

// PositionalDef declares a token-level attribute. The first positional
// attribute receives the tokens of added text.
type PositionalDef struct {
	Name   string `json:"name" yaml:"name"`
	Derive string `json:"derive,omitempty" yaml:"derive,omitempty"`
}

// StructuralDef declares a region attribute.
type StructuralDef struct {
	Name   string `json:"name" yaml:"name"`
	Values bool   `json:"values,omitempty" yaml:"values,omitempty"`
}

// AlignmentDef declares a sentence alignment with another corpus.
type AlignmentDef struct {
	Name   string `json:"name" yaml:"name"`
	Target string `json:"target" yaml:"target"`
}

// DefaultSchema declares a single "word" attribute tokenized on whitespace.
func DefaultSchema(name string) *Schema {
	return &Schema{
		Name:       name,
		Analyzer:   AnalyzerWhitespace,
		Positional: []PositionalDef{{Name: DefaultAttribute}},
	}
}

// Validate checks the schema for correctness.
func (s *Schema) Validate() error {
	total := len(s.Positional) + len(s.Structural) + len(s.Alignment)
	if total > MaxAttributesPerSchema {
		return fmt.Errorf("%w: %d attributes (max %d)", ErrSchemaAttributeLimit, total, MaxAttributesPerSchema)
	}
	if len(s.Positional) == 0 {
		return ErrSchemaNoPositional
	}

	seen := make(map[string]bool, total)
	check := func(name string) error {
		if reservedAttributeNames[name] {
			return fmt.Errorf("%w: %q", ErrSchemaReservedName, name)
		}
		if seen[name] {
			return fmt.Errorf("%w: %q", ErrSchemaDuplicateAttribute, name)
		}
		seen[name] = true
		if len(name) == 0 || len(name) > MaxAttributeNameLength {
			return fmt.Errorf("%w: %q (%d bytes, max %d)", ErrSchemaNameTooLong, name, len(name), MaxAttributeNameLength)
		}
		return nil
	}

	for i, p := range s.Positional {
		if err := check(p.Name); err != nil {
			return err
		}
		if err := validateDerivation(p.Derive); err != nil {
			return fmt.Errorf("attribute %q: %w", p.Name, err)
		}
		if i == 0 && p.Derive != DeriveNone {
			return fmt.Errorf("attribute %q: first positional attribute cannot be derived: %w", p.Name, ErrSchemaInvalidDerivation)
		}
	}
	for _, st := range s.Structural {
		if err := check(st.Name); err != nil {
			return err
		}
	}
	for _, a := range s.Alignment {
		if err := check(a.Name); err != nil {
			return err
		}
		if a.Target == "" {
			return fmt.Errorf("attribute %q: %w", a.Name, ErrSchemaMissingTarget)
		}
	}

	if s.Analyzer != "" {
		if err := validateAnalyzer(s.Analyzer); err != nil {
			return fmt.Errorf("analyzer: %w", err)
		}
	}
	return nil
}

// PrimaryAttribute returns the name of the attribute text is tokenized into.
func (s *Schema) PrimaryAttribute() string {
	if len(s.Positional) == 0 {
		return ""
	}
	return s.Positional[0].Name
}

func validateDerivation(d string) error {
	switch d {
	case DeriveNone, DeriveLower, DeriveStem, DeriveFold:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrSchemaInvalidDerivation, d)
	}
}

func validateAnalyzer(a string) error {
	switch a {
	case AnalyzerStandard, AnalyzerWhitespace, AnalyzerKeyword:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrSchemaInvalidAnalyzer, a)
	}
}
