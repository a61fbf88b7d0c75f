package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"CQPEval/internal/corpus"
	"CQPEval/internal/query"
	"CQPEval/internal/subcorpus"
)

var (
	headerStyle  = color.New(color.FgCyan, color.Bold)
	matchStyle   = color.New(color.FgGreen, color.Bold)
	targetStyle  = color.New(color.FgRed, color.Bold, color.Underline)
	keywordStyle = color.New(color.FgYellow, color.Bold)
	contextStyle = color.New(color.Faint)
)

// concordance prints query results as keyword-in-context lines over one
// positional attribute.
type concordance struct {
	attr  corpus.Positional
	width int
	limit int
}

func newConcordance(c corpus.Corpus, attr string, width, limit int) (*concordance, error) {
	a, err := c.Positional(attr)
	if err != nil {
		return nil, err
	}
	return &concordance{attr: a, width: width, limit: limit}, nil
}

// print writes the header and one line per match, in display order.
func (k *concordance) print(w io.Writer, sc *subcorpus.Subcorpus) {
	fmt.Fprintln(w, headerStyle.Sprintf("%s: %d matches in %s", sc.Name, sc.Len(), sc.CorpusName))
	n := sc.Len()
	if k.limit > 0 && k.limit < n {
		n = k.limit
	}
	for j := 0; j < n; j++ {
		i := j
		if sc.SortIdx != nil {
			i = sc.SortIdx[j]
		}
		fmt.Fprintln(w, k.line(sc, i))
	}
	if n < sc.Len() {
		fmt.Fprintf(w, "... %d more\n", sc.Len()-n)
	}
}

// line renders match i as "start: left [match] right". The target and
// keyword tokens inside the match are highlighted separately.
func (k *concordance) line(sc *subcorpus.Subcorpus, i int) string {
	r := sc.Ranges[i]
	target := sc.Anchor(query.AnchorTarget, i)
	keyword := sc.Anchor(query.AnchorKeyword, i)

	var b strings.Builder
	fmt.Fprintf(&b, "%8d: ", r.Start)
	if left := k.tokens(r.Start-k.width, r.Start-1); left != "" {
		b.WriteString(contextStyle.Sprint(left))
		b.WriteByte(' ')
	}
	b.WriteString(matchStyle.Sprint("<"))
	for p := r.Start; p <= r.End; p++ {
		if p > r.Start {
			b.WriteByte(' ')
		}
		v, _ := k.attr.ValueAt(p)
		switch p {
		case target:
			b.WriteString(targetStyle.Sprint(v))
		case keyword:
			b.WriteString(keywordStyle.Sprint(v))
		default:
			b.WriteString(matchStyle.Sprint(v))
		}
	}
	b.WriteString(matchStyle.Sprint(">"))
	if right := k.tokens(r.End+1, r.End+k.width); right != "" {
		b.WriteByte(' ')
		b.WriteString(contextStyle.Sprint(right))
	}
	return b.String()
}

// tokens joins the values of positions from..to, clipped to the corpus.
func (k *concordance) tokens(from, to int) string {
	from = max(from, 0)
	to = min(to, k.attr.Size()-1)
	words := make([]string, 0, max(to-from+1, 0))
	for p := from; p <= to; p++ {
		v, _ := k.attr.ValueAt(p)
		words = append(words, v)
	}
	return strings.Join(words, " ")
}
