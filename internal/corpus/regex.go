package corpus

import (
	"fmt"
	"regexp/syntax"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/coregx/coregex/meta"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RegexFlags select value folding applied before matching.
type RegexFlags uint8

const (
	// IgnoreCase is the %c flag.
	IgnoreCase RegexFlags = 1 << iota
	// IgnoreDiacritics is the %d flag.
	IgnoreDiacritics
)

// ParseRegexFlags reads a flag string such as "cd".
func ParseRegexFlags(s string) (RegexFlags, error) {
	var f RegexFlags
	for _, c := range s {
		switch c {
		case 'c':
			f |= IgnoreCase
		case 'd':
			f |= IgnoreDiacritics
		case '%':
		default:
			return 0, fmt.Errorf("unknown regex flag %q", c)
		}
	}
	return f, nil
}

func (f RegexFlags) String() string {
	var b strings.Builder
	if f&IgnoreCase != 0 {
		b.WriteByte('c')
	}
	if f&IgnoreDiacritics != 0 {
		b.WriteByte('d')
	}
	return b.String()
}

// MatchAllPattern is the regex that every value matches. Callers check for
// it to avoid scanning a lexicon.
const MatchAllPattern = ".*"

// Regex is a compiled value pattern. Patterns are anchored at both ends.
// A Regex is safe for concurrent use.
type Regex struct {
	pattern string
	flags   RegexFlags

	mu     sync.Mutex
	engine *meta.Engine
}

// CompileRegex compiles pattern with the given folding flags.
func CompileRegex(pattern string, flags RegexFlags) (*Regex, error) {
	src := pattern
	if flags&IgnoreDiacritics != 0 {
		src = stripDiacritics(src)
	}
	parseFlags := syntax.Perl
	if flags&IgnoreCase != 0 {
		parseFlags |= syntax.FoldCase
	}
	tree, err := syntax.Parse("^(?:"+src+")$", parseFlags)
	if err != nil {
		return nil, fmt.Errorf("compile regex %q: %w", pattern, err)
	}
	expandFoldedLiterals(tree)
	engine, err := meta.CompileRegexp(tree, meta.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("compile regex %q: %w", pattern, err)
	}
	return &Regex{pattern: pattern, flags: flags, engine: engine}, nil
}

// expandFoldedLiterals rewrites case-folded literals into explicit
// character classes covering every rune of the fold orbit, so the byte
// automaton needs no case-folding support of its own.
func expandFoldedLiterals(re *syntax.Regexp) {
	for _, sub := range re.Sub {
		expandFoldedLiterals(sub)
	}
	if re.Op != syntax.OpLiteral || re.Flags&syntax.FoldCase == 0 {
		return
	}
	subs := make([]*syntax.Regexp, 0, len(re.Rune))
	for _, r := range re.Rune {
		subs = append(subs, &syntax.Regexp{Op: syntax.OpCharClass, Rune: foldOrbit(r)})
	}
	re.Flags &^= syntax.FoldCase
	if len(subs) == 1 {
		*re = *subs[0]
		return
	}
	re.Op = syntax.OpConcat
	re.Rune = nil
	re.Sub = subs
}

func foldOrbit(r rune) []rune {
	orbit := []rune{r}
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		orbit = append(orbit, f)
	}
	slices.Sort(orbit)
	ranges := make([]rune, 0, 2*len(orbit))
	for _, c := range orbit {
		ranges = append(ranges, c, c)
	}
	return ranges
}

// MustCompileRegex is CompileRegex for fixtures and tests.
func MustCompileRegex(pattern string, flags RegexFlags) *Regex {
	re, err := CompileRegex(pattern, flags)
	if err != nil {
		panic(err)
	}
	return re
}

func (re *Regex) Pattern() string   { return re.pattern }
func (re *Regex) Flags() RegexFlags { return re.flags }

// MatchesAll reports whether the pattern is the unflagged ".*".
func (re *Regex) MatchesAll() bool {
	return re.pattern == MatchAllPattern
}

// MatchString reports whether the whole of s matches.
func (re *Regex) MatchString(s string) bool {
	if re.MatchesAll() {
		return true
	}
	if re.flags&IgnoreDiacritics != 0 {
		s = stripDiacritics(s)
	}
	re.mu.Lock()
	defer re.mu.Unlock()
	return re.engine.IsMatch([]byte(s))
}

// Fold applies the folding selected by flags to s. Equality tests under
// %c and %d compare folded values.
func Fold(s string, flags RegexFlags) string {
	if flags&IgnoreCase != 0 {
		s = cases.Fold().String(s)
	}
	if flags&IgnoreDiacritics != 0 {
		s = stripDiacritics(s)
	}
	return s
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
