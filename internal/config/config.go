// Package config holds the options that steer query evaluation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"CQPEval/internal/query"
)

var (
	ErrInvalidBoundary    = errors.New("config: hard boundary must be positive")
	ErrInvalidCut         = errors.New("config: hard cut must not be negative")
	ErrInvalidEnvironment = errors.New("config: max environments must be at least 1")
	ErrInvalidInterval    = errors.New("config: interrupt interval must be positive")
	ErrInvalidLoopGuard   = errors.New("config: infinite loop threshold must be positive")
	ErrInvalidStates      = errors.New("config: max DFA states must be positive")
	ErrInvalidStrategy    = errors.New("config: unknown matching strategy")
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "CQPEVAL_"

// Options configures a query session.
type Options struct {
	// HardBoundary is the longest span a match may cover when the query
	// has no "within" clause, and the cap on unbounded TAB distances.
	HardBoundary int `json:"hard_boundary" yaml:"hard_boundary"`

	// HardCut caps every cut value. 0 means no cap.
	HardCut int `json:"hard_cut" yaml:"hard_cut"`

	// StrictRegions makes open tags bind the end of their region and
	// rejects transitions past it.
	StrictRegions bool `json:"strict_regions" yaml:"strict_regions"`

	// MatchingStrategy is the default strategy of new environments.
	MatchingStrategy string `json:"matching_strategy" yaml:"matching_strategy"`

	// MaxEnvironments bounds the scope stack (main query plus aligned scopes).
	MaxEnvironments int `json:"max_environments" yaml:"max_environments"`

	// InterruptInterval is the number of transitions between cancellation checks.
	InterruptInterval int `json:"interrupt_interval" yaml:"interrupt_interval"`

	// InfiniteLoopThreshold is the number of consecutive unchanged
	// simulation steps that abort a query.
	InfiniteLoopThreshold int `json:"infinite_loop_threshold" yaml:"infinite_loop_threshold"`

	// MaxDFAStates bounds subset construction.
	MaxDFAStates int `json:"max_dfa_states" yaml:"max_dfa_states"`

	ProgressBar bool `json:"progress_bar" yaml:"progress_bar"`

	// DefaultAttribute is the positional attribute of bare string patterns.
	DefaultAttribute string `json:"default_attribute" yaml:"default_attribute"`
}

// DefaultOptions returns Options with the stock limits.
func DefaultOptions() Options {
	return Options{
		HardBoundary:          500,
		HardCut:               0,
		StrictRegions:         false,
		MatchingStrategy:      query.StrategyStandard.String(),
		MaxEnvironments:       10,
		InterruptInterval:     20000,
		InfiniteLoopThreshold: 42,
		MaxDFAStates:          10000,
		ProgressBar:           false,
		DefaultAttribute:      "word",
	}
}

// Load reads a YAML options file on top of the defaults. An empty path
// returns the defaults.
func Load(path string) (Options, error) {
	opts := DefaultOptions()
	if path == "" {
		return opts, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("load config: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("load config %s: %w", path, err)
	}
	return opts, nil
}

// ApplyEnv overrides fields from CQPEVAL_* environment variables.
// Unparseable values are reported and leave the field unchanged.
func (o *Options) ApplyEnv() error {
	var errs []error
	setInt := func(name string, dst *int) {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			return
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = n
	}
	setBool := func(name string, dst *bool) {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			return
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			return
		}
		*dst = b
	}

	setInt("HARD_BOUNDARY", &o.HardBoundary)
	setInt("HARD_CUT", &o.HardCut)
	setBool("STRICT_REGIONS", &o.StrictRegions)
	setInt("MAX_ENVIRONMENTS", &o.MaxEnvironments)
	setInt("INTERRUPT_INTERVAL", &o.InterruptInterval)
	setInt("INFINITE_LOOP_THRESHOLD", &o.InfiniteLoopThreshold)
	setInt("MAX_DFA_STATES", &o.MaxDFAStates)
	setBool("PROGRESS_BAR", &o.ProgressBar)
	if v, ok := os.LookupEnv(EnvPrefix + "MATCHING_STRATEGY"); ok {
		o.MatchingStrategy = v
	}
	if v, ok := os.LookupEnv(EnvPrefix + "DEFAULT_ATTRIBUTE"); ok {
		o.DefaultAttribute = v
	}
	return errors.Join(errs...)
}

// Validate checks that every limit is usable.
func (o Options) Validate() error {
	if o.HardBoundary <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBoundary, o.HardBoundary)
	}
	if o.HardCut < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCut, o.HardCut)
	}
	if o.MaxEnvironments < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidEnvironment, o.MaxEnvironments)
	}
	if o.InterruptInterval <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidInterval, o.InterruptInterval)
	}
	if o.InfiniteLoopThreshold <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLoopGuard, o.InfiniteLoopThreshold)
	}
	if o.MaxDFAStates <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidStates, o.MaxDFAStates)
	}
	if _, err := query.ParseStrategy(o.MatchingStrategy); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidStrategy, o.MatchingStrategy)
	}
	return nil
}

// Strategy returns the parsed default matching strategy.
func (o Options) Strategy() query.Strategy {
	s, err := query.ParseStrategy(o.MatchingStrategy)
	if err != nil {
		return query.StrategyStandard
	}
	return s
}
