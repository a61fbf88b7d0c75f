package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"CQPEval/internal/analysis"
	"CQPEval/internal/corpus"
)

// DemoFixture is a 16-token corpus in three sentences:
//
//	0   1   2   3  4   5   | 6 7   8   9      | 10  11  12  13  14  15
//	the cat sat on the mat | a big dog barked | The old cat saw the dog
//
// with noun phrases (np), sentences (s) and two texts (text, valued
// t1 and t2).
const DemoFixture = `
schema:
  name: DEMO
  positional:
    - {name: word}
    - {name: pos}
    - {name: lower, derive: lower}
  structural:
    - {name: s}
    - {name: np}
    - {name: text, values: true}
tokens:
  - {word: the, pos: DET}
  - {word: cat, pos: NOUN}
  - {word: sat, pos: VERB}
  - {word: "on", pos: ADP}
  - {word: the, pos: DET}
  - {word: mat, pos: NOUN}
  - {word: a, pos: DET}
  - {word: big, pos: ADJ}
  - {word: dog, pos: NOUN}
  - {word: barked, pos: VERB}
  - {word: The, pos: DET}
  - {word: old, pos: ADJ}
  - {word: cat, pos: NOUN}
  - {word: saw, pos: VERB}
  - {word: the, pos: DET}
  - {word: dog, pos: NOUN}
regions:
  s:
    - {start: 0, end: 5}
    - {start: 6, end: 9}
    - {start: 10, end: 15}
  np:
    - {start: 0, end: 1}
    - {start: 4, end: 5}
    - {start: 6, end: 8}
    - {start: 10, end: 12}
    - {start: 14, end: 15}
  text:
    - {start: 0, end: 9, value: t1}
    - {start: 10, end: 15, value: t2}
`

// EnglishFixture and GermanFixture are two sentence-aligned corpora.
const EnglishFixture = `
schema:
  name: EN
  positional: [{name: word}]
  structural: [{name: s}]
  alignment: [{name: de, target: DE}]
sentence_attribute: s
text:
  - the cat sat
  - a dog ran
beads:
  de:
    - {source: [0, 2], target: [0, 2]}
    - {source: [3, 5], target: [3, 5]}
`

const GermanFixture = `
schema:
  name: DE
  positional: [{name: word}]
  structural: [{name: s}]
sentence_attribute: s
text:
  - die Katze saß
  - ein Hund lief
`

// WithTempDir creates a temporary directory, calls fn with its path,
// and cleans up afterwards.
func WithTempDir(t *testing.T, fn func(dir string)) {
	t.Helper()
	dir := t.TempDir()
	fn(dir)
}

// Build parses a fixture and fails the test on error.
func Build(t testing.TB, fixture string) *corpus.Memory {
	t.Helper()
	m, err := corpus.ParseFixture([]byte(fixture), analysis.NewRegistry())
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	return m
}

// DemoCorpus returns the corpus of DemoFixture.
func DemoCorpus(t testing.TB) *corpus.Memory {
	t.Helper()
	return Build(t, DemoFixture)
}

// ThreeWords returns the corpus "the cat sat".
func ThreeWords(t testing.TB) *corpus.Memory {
	t.Helper()
	return Build(t, `
schema: {name: TINY, analyzer: whitespace}
text: [the cat sat]
`)
}

// ParallelCorpora returns the English and German corpora and a registry
// holding both.
func ParallelCorpora(t testing.TB) (en, de *corpus.Memory, reg corpus.MapRegistry) {
	t.Helper()
	en = Build(t, EnglishFixture)
	de = Build(t, GermanFixture)
	return en, de, corpus.MapRegistry{"EN": en, "DE": de}
}

// Attr returns a positional attribute of c and fails the test if missing.
func Attr(t testing.TB, c corpus.Corpus, name string) corpus.Positional {
	t.Helper()
	a, err := c.Positional(name)
	if err != nil {
		t.Fatalf("positional %q: %v", name, err)
	}
	return a
}

// Struc returns a structural attribute of c and fails the test if missing.
func Struc(t testing.TB, c corpus.Corpus, name string) corpus.Structural {
	t.Helper()
	s, err := c.Structural(name)
	if err != nil {
		t.Fatalf("structural %q: %v", name, err)
	}
	return s
}

// WriteFile writes content to name inside dir and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// AssertFileExists checks that a file exists at the given path.
func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("expected file to exist: %s", path)
	}
}

// AssertDirExists checks that a directory exists at the given path.
func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("expected directory to exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("expected %s to be a directory", path)
	}
}
