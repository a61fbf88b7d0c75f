package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CQPEval/internal/query"
)

func TestDefaultOptions_Valid(t *testing.T) {
	opts := DefaultOptions()
	require.NoError(t, opts.Validate())
	assert.Equal(t, 500, opts.HardBoundary)
	assert.Equal(t, 42, opts.InfiniteLoopThreshold)
	assert.Equal(t, query.StrategyStandard, opts.Strategy())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cqpeval.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hard_boundary: 50\nstrict_regions: true\nmatching_strategy: longest\n"), 0o644))

	opts, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, opts.HardBoundary)
	assert.True(t, opts.StrictRegions)
	assert.Equal(t, query.StrategyLongest, opts.Strategy())
	assert.Equal(t, 10, opts.MaxEnvironments, "unset fields keep their defaults")

	opts, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), opts)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CQPEVAL_HARD_CUT", "7")
	t.Setenv("CQPEVAL_PROGRESS_BAR", "true")
	t.Setenv("CQPEVAL_MATCHING_STRATEGY", "shortest_match")

	opts := DefaultOptions()
	require.NoError(t, opts.ApplyEnv())
	assert.Equal(t, 7, opts.HardCut)
	assert.True(t, opts.ProgressBar)
	assert.Equal(t, query.StrategyShortest, opts.Strategy())

	t.Setenv("CQPEVAL_HARD_BOUNDARY", "lots")
	opts = DefaultOptions()
	assert.Error(t, opts.ApplyEnv())
	assert.Equal(t, 500, opts.HardBoundary)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		want   error
	}{
		{"boundary", func(o *Options) { o.HardBoundary = 0 }, ErrInvalidBoundary},
		{"cut", func(o *Options) { o.HardCut = -1 }, ErrInvalidCut},
		{"environments", func(o *Options) { o.MaxEnvironments = 0 }, ErrInvalidEnvironment},
		{"interval", func(o *Options) { o.InterruptInterval = 0 }, ErrInvalidInterval},
		{"loop guard", func(o *Options) { o.InfiniteLoopThreshold = 0 }, ErrInvalidLoopGuard},
		{"states", func(o *Options) { o.MaxDFAStates = -3 }, ErrInvalidStates},
		{"strategy", func(o *Options) { o.MatchingStrategy = "greedy" }, ErrInvalidStrategy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			assert.ErrorIs(t, opts.Validate(), tt.want)
		})
	}
}
