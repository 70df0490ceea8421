package sluggable

import (
	"strings"

	"github.com/rotisserie/eris"
)

const (
	DefaultPattern     = ":name"
	DefaultField       = "slug"
	DefaultReplacement = "-"
)

// SuffixStrategy selects how the next numeric suffix is derived from the rows that
// already carry a suffixed form of the candidate.
type SuffixStrategy int

const (
	// SuffixMaxObserved uses the highest suffix in use plus one.
	SuffixMaxObserved SuffixStrategy = iota
	// SuffixRowCount uses the number of suffixed rows plus two. It reuses a suffix
	// when the existing suffixes are not contiguous and is kept for tables that were
	// slugged that way historically.
	SuffixRowCount
)

// String returns the configuration name of the strategy.
func (s SuffixStrategy) String() string {
	switch s {
	case SuffixRowCount:
		return "count"
	default:
		return "max"
	}
}

// ParseSuffixStrategy maps "max" or "count" to a strategy. An empty value selects the default.
func ParseSuffixStrategy(value string) (SuffixStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "max":
		return SuffixMaxObserved, nil
	case "count":
		return SuffixRowCount, nil
	default:
		return SuffixMaxObserved, eris.Wrapf(ErrConfiguration, "unknown suffix strategy %q", value)
	}
}

// Config holds the per-table slug settings. It is a plain value: copies handed to a
// Behavior cannot be changed from the outside afterwards.
type Config struct {
	// Pattern is the template handed to the Substitutor, e.g. ":title".
	Pattern string
	// Field is the column that stores the slug.
	Field string
	// Replacement substitutes whitespace and punctuation in the candidate.
	Replacement string
	// Overwrite regenerates the slug even when one is already present.
	Overwrite bool
	Suffix    SuffixStrategy
}

// Option mutates a Config while it is being built.
type Option func(*Config)

// WithPattern sets the naming pattern.
func WithPattern(pattern string) Option {
	return func(c *Config) { c.Pattern = pattern }
}

// WithField sets the slug column.
func WithField(field string) Option {
	return func(c *Config) { c.Field = field }
}

// WithReplacement sets the replacement string.
func WithReplacement(replacement string) Option {
	return func(c *Config) { c.Replacement = replacement }
}

// WithOverwrite toggles regeneration of already present slugs.
func WithOverwrite(overwrite bool) Option {
	return func(c *Config) { c.Overwrite = overwrite }
}

// WithSuffixStrategy selects the suffix strategy.
func WithSuffixStrategy(strategy SuffixStrategy) Option {
	return func(c *Config) { c.Suffix = strategy }
}

// DefaultConfig returns the settings used when no option overrides them.
func DefaultConfig() Config {
	return Config{
		Pattern:     DefaultPattern,
		Field:       DefaultField,
		Replacement: DefaultReplacement,
		Suffix:      SuffixMaxObserved,
	}
}

// NewConfig applies the options on top of DefaultConfig and validates the result.
func NewConfig(opts ...Option) (Config, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports ErrConfiguration when a required setting is missing.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Field) == "" {
		return eris.Wrap(ErrConfiguration, "slug field is required")
	}
	if strings.TrimSpace(c.Pattern) == "" {
		return eris.Wrap(ErrConfiguration, "slug pattern is required")
	}
	switch c.Suffix {
	case SuffixMaxObserved, SuffixRowCount:
	default:
		return eris.Wrapf(ErrConfiguration, "unknown suffix strategy %d", int(c.Suffix))
	}
	return nil
}
