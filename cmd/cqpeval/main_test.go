package main

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CQPEval/internal/subcorpus"
	"CQPEval/internal/testutil"
)

const nounPhrases = `
name: NP
corpus: DEMO
patterns:
  - token: {where: {cmp: {op: "=", left: {attr: pos}, right: {string: DET}}}}
  - token:
      mark: target
      where: {cmp: {op: "=", left: {attr: pos}, right: {string: NOUN}}}
tree: {seq: [{leaf: 0}, {leaf: 1}]}
`

const catsInNP = `
corpus: DEMO
query_corpus: NP
patterns: [{token: {value: cat}}]
tree: {leaf: 0}
`

func init() {
	color.NoColor = true
}

// execute runs the command line args and returns its standard output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.in), tt.in)
	}
}

func TestConcordanceLine(t *testing.T) {
	c := testutil.DemoCorpus(t)
	sc := subcorpus.New("NP", c)
	sc.Ranges = []subcorpus.Range{{Start: 0, End: 1}, {Start: 14, End: 15}}
	sc.Targets = []int{1, 15}

	k, err := newConcordance(c, "word", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, "       0: <the cat> sat on", k.line(sc, 0))
	assert.Equal(t, "      14: cat saw <the dog>", k.line(sc, 1))

	var buf bytes.Buffer
	k.limit = 1
	k.print(&buf, sc)
	assert.Equal(t, "NP: 2 matches in DEMO\n       0: <the cat> sat on\n... 1 more\n", buf.String())

	_, err = newConcordance(c, "lemma", 2, 0)
	assert.Error(t, err)
}

func TestRunSaveShow(t *testing.T) {
	testutil.WithTempDir(t, func(dir string) {
		fixture := testutil.WriteFile(t, dir, "demo.yaml", testutil.DemoFixture)
		np := testutil.WriteFile(t, dir, "np.yaml", nounPhrases)
		cats := testutil.WriteFile(t, dir, "cats.yaml", catsInNP)
		store := filepath.Join(dir, "results")

		out, err := execute(t, "--corpus", fixture, "--store", store, "run", "--save", "-w", "1", np)
		require.NoError(t, err)
		assert.Contains(t, out, "NP: 3 matches in DEMO")
		assert.Contains(t, out, "       4: on <the mat> a")
		testutil.AssertFileExists(t, filepath.Join(store, "NP.json"))

		// A later invocation reads NP back from the store.
		out, err = execute(t, "--corpus", fixture, "--store", store, "run", "-w", "0", cats)
		require.NoError(t, err)
		assert.Contains(t, out, "1 matches in DEMO")
		assert.Contains(t, out, "       1: <cat>")

		out, err = execute(t, "--corpus", fixture, "--store", store, "show")
		require.NoError(t, err)
		assert.Contains(t, out, "NP")
		assert.Contains(t, out, "3 matches")

		out, err = execute(t, "--corpus", fixture, "--store", store, "show", "-n", "1", "NP")
		require.NoError(t, err)
		assert.Contains(t, out, "<the cat>")
		assert.Contains(t, out, "... 2 more")

		_, err = execute(t, "--corpus", fixture, "--store", store, "show", "--delete", "NP")
		require.NoError(t, err)
		_, err = execute(t, "--corpus", fixture, "--store", store, "show", "NP")
		assert.Error(t, err)
	})
}

func TestRunErrors(t *testing.T) {
	testutil.WithTempDir(t, func(dir string) {
		fixture := testutil.WriteFile(t, dir, "demo.yaml", testutil.DemoFixture)
		store := filepath.Join(dir, "results")

		_, err := execute(t, "--corpus", fixture, "--store", store, "run")
		assert.Error(t, err, "no plan")

		_, err = execute(t, "--corpus", fixture, "--store", store, "run", filepath.Join(dir, "missing.yaml"))
		assert.Error(t, err)

		cats := testutil.WriteFile(t, dir, "cats.yaml", catsInNP)
		_, err = execute(t, "--corpus", fixture, "--store", store, "run", cats)
		assert.Error(t, err, "NP was never saved")

		_, err = execute(t, "--corpus", filepath.Join(dir, "nope.yaml"), "run", cats)
		assert.Error(t, err)

		_, err = execute(t, "--log-format", "xml", "version")
		assert.Error(t, err)
	})
}

func TestInfo(t *testing.T) {
	testutil.WithTempDir(t, func(dir string) {
		fixture := testutil.WriteFile(t, dir, "demo.yaml", testutil.DemoFixture)

		out, err := execute(t, "--corpus", fixture, "info")
		require.NoError(t, err)
		assert.Contains(t, out, "DEMO (16 tokens)")
		assert.Contains(t, out, "s-attribute  np")
		assert.Contains(t, out, "5 regions")
		assert.Contains(t, out, "s-attribute  text         2 regions (with values)")
		assert.Contains(t, out, "function     stem         arity 1")

		_, err = execute(t, "--corpus", fixture, "info", "NOPE")
		assert.Error(t, err)

		_, err = execute(t, "info")
		assert.Error(t, err)
	})
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "cqpeval dev\n", out)
}
