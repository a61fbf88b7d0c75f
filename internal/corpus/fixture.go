package corpus

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"CQPEval/internal/analysis"
)

// Fixture is the YAML description of a small corpus.
//
//	schema:
//	  name: DEMO
//	  positional: [{name: word}, {name: lower, derive: lower}]
//	  structural: [{name: s}]
//	sentence_attribute: s
//	text:
//	  - The cat sat
//	regions:
//	  s: [{start: 0, end: 2}]
type Fixture struct {
	Schema Schema `yaml:"schema"`

	// Text entries are tokenized in order. If SentenceAttribute names a
	// structural attribute, each entry also becomes one region of it.
	Text              []string `yaml:"text,omitempty"`
	SentenceAttribute string   `yaml:"sentence_attribute,omitempty"`

	// Tokens are appended after Text, one row per position.
	Tokens []map[string]string `yaml:"tokens,omitempty"`

	Regions map[string][]RegionSpec `yaml:"regions,omitempty"`
	Beads   map[string][]BeadSpec   `yaml:"beads,omitempty"`
}

// RegionSpec is one region of a fixture.
type RegionSpec struct {
	Start int    `yaml:"start"`
	End   int    `yaml:"end"`
	Value string `yaml:"value,omitempty"`
}

// BeadSpec is one alignment bead of a fixture; both ranges are [start, end].
type BeadSpec struct {
	Source [2]int `yaml:"source"`
	Target [2]int `yaml:"target"`
}

// LoadFixture reads and builds a fixture file.
func LoadFixture(path string, registry *analysis.Registry) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data, registry)
}

// ParseFixture decodes and builds a YAML fixture.
func ParseFixture(data []byte, registry *analysis.Registry) (*Memory, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return f.Build(registry)
}

// Build creates the corpus described by f.
func (f *Fixture) Build(registry *analysis.Registry) (*Memory, error) {
	if len(f.Schema.Positional) == 0 {
		f.Schema.Positional = []PositionalDef{{Name: DefaultAttribute}}
	}
	b, err := NewBuilder(&f.Schema, registry)
	if err != nil {
		return nil, err
	}

	for _, text := range f.Text {
		start, end, err := b.AddText(text)
		if err != nil {
			return nil, err
		}
		if f.SentenceAttribute != "" && end >= start {
			if err := b.AddRegion(f.SentenceAttribute, start, end, ""); err != nil {
				return nil, fmt.Errorf("sentence region: %w", err)
			}
		}
	}
	for i, row := range f.Tokens {
		if _, err := b.AddToken(row); err != nil {
			return nil, fmt.Errorf("token %d: %w", i, err)
		}
	}

	// Declared order keeps error messages stable.
	for _, s := range f.Schema.Structural {
		for _, r := range f.Regions[s.Name] {
			if err := b.AddRegion(s.Name, r.Start, r.End, r.Value); err != nil {
				return nil, err
			}
		}
	}
	for name := range f.Regions {
		if !b.hasStructural(name) {
			return nil, fmt.Errorf("%w: structural %q", ErrUnknownAttribute, name)
		}
	}
	for _, a := range f.Schema.Alignment {
		for _, bd := range f.Beads[a.Name] {
			if err := b.AddBead(a.Name, bd.Source[0], bd.Source[1], bd.Target[0], bd.Target[1]); err != nil {
				return nil, err
			}
		}
	}
	for name := range f.Beads {
		if !b.hasAlignment(name) {
			return nil, fmt.Errorf("%w: alignment %q", ErrUnknownAttribute, name)
		}
	}
	return b.Build()
}
