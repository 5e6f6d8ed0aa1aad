// Package config loads and validates the bot configuration: platform
// credentials and the list of tracked series. Configuration is decoded
// strictly from YAML, validated once at startup, and passed by value into
// every core operation; there is no ambient global state.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/liquidfun/stackr/internal/scorefunc"
)

// Defaults applied to fields a series omits.
const (
	// DefaultRegex matches three-digit multiples of one hundred with one to
	// three leading digits, the usual shape of streak scores.
	DefaultRegex = `\d{1,3}00`
	// DefaultTopCount is the number of table rows published per post.
	DefaultTopCount = 20
	// DefaultTopPlotCount is the number of participants on the history chart.
	DefaultTopPlotCount = 5
	// DefaultSleepSeconds is the pause between processing passes.
	DefaultSleepSeconds = 300
)

// Goal values for score selection within a round.
const (
	GoalHighest = "highest"
	GoalLowest  = "lowest"
)

// RedditAPI holds the script-app credentials for the platform client.
type RedditAPI struct {
	ClientID     string `yaml:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" validate:"required"`
	Username     string `yaml:"username" validate:"required"`
	Password     string `yaml:"password" validate:"required"`
	UserAgent    string `yaml:"user_agent"`
}

// ImgurAPI holds the image-host credentials. When absent, charts are
// skipped and leaderboard comments carry no history link.
type ImgurAPI struct {
	ClientID string `yaml:"client_id" validate:"required"`
}

// Series configures one tracked post series. Immutable once loaded.
type Series struct {
	// Title is the fragment matched against post titles to find the
	// series' posts.
	Title string `yaml:"title" validate:"required,min=1"`
	// Author is the platform user whose posts form the series.
	Author string `yaml:"author" validate:"required,min=1"`
	// Regex extracts candidate score substrings from reply bodies.
	Regex string `yaml:"regex"`
	// Min and Max bound accepted scores; each is optional and applied
	// independently.
	Min *int `yaml:"min"`
	Max *int `yaml:"max"`
	// Goal selects the qualifying score among a reply's candidates:
	// "highest" (default) or "lowest".
	Goal string `yaml:"goal" validate:"omitempty,oneof=highest lowest"`
	// ScoreFunction is the aggregation-pipeline expression, e.g.
	// "max4 -> sum". Empty means plain sum.
	ScoreFunction string `yaml:"score_function"`
	// StrictScoreFunction rejects unknown pipeline stages at load time
	// instead of silently dropping them.
	StrictScoreFunction bool `yaml:"strict_score_function"`
	// ResetEvery clears the leaderboard between posts that fall in
	// different calendar buckets: "day", "week" or "month".
	ResetEvery string `yaml:"reset_every" validate:"omitempty,oneof=day week month"`
	// Ignore lists usernames excluded from score extraction entirely.
	Ignore []string `yaml:"ignore"`
	// HideFromBoard lists usernames ranked internally but omitted from the
	// published table.
	HideFromBoard []string `yaml:"hide_from_board"`
	// ExcludeFromSheet lists usernames omitted from CSV and workbook
	// exports.
	ExcludeFromSheet []string `yaml:"exclude_from_sheet"`
	// TitleMatchDistance, when positive, also accepts post titles within
	// this Levenshtein distance of the configured title after
	// normalization. Zero keeps plain substring matching.
	TitleMatchDistance int `yaml:"title_match_distance" validate:"min=0,max=10"`
	// TopCount overrides the number of published table rows.
	TopCount int `yaml:"top_count" validate:"min=0"`
	// TopPlotCount overrides the number of charted participants.
	TopPlotCount int `yaml:"top_plot_count" validate:"min=0"`
}

// Config is the full bot configuration.
type Config struct {
	// Debug computes and logs everything but performs no platform
	// mutations.
	Debug bool `yaml:"debug"`
	// SleepSeconds is the pause between passes of the run loop.
	SleepSeconds int `yaml:"sleep_seconds" validate:"min=0"`
	// Maintainer receives error reports by direct message.
	Maintainer string `yaml:"maintainer"`
	// SourceURL is linked from the published comment footer.
	SourceURL string `yaml:"source_url"`

	Reddit RedditAPI `yaml:"reddit_api" validate:"required"`
	Imgur  *ImgurAPI `yaml:"imgur_api"`
	Series []Series  `yaml:"series" validate:"required,min=1,dive"`
}

var validate = validator.New()

// Load reads, parses and validates the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates configuration from YAML bytes. Unknown
// fields are rejected so typos cannot be silently ignored.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SleepSeconds == 0 {
		c.SleepSeconds = DefaultSleepSeconds
	}
	for i := range c.Series {
		s := &c.Series[i]
		if s.Regex == "" {
			s.Regex = DefaultRegex
		}
		if s.Goal == "" {
			s.Goal = GoalHighest
		}
		if s.TopCount == 0 {
			s.TopCount = DefaultTopCount
		}
		if s.TopPlotCount == 0 {
			s.TopPlotCount = DefaultTopPlotCount
		}
	}
}

// Validate checks struct constraints plus the parts the validator cannot
// express: each series' regex must compile, and in strict mode its score
// function must compile too.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	for i := range c.Series {
		if err := c.Series[i].validate(); err != nil {
			return fmt.Errorf("series %q: %w", c.Series[i].Title, err)
		}
	}
	return nil
}

func (s *Series) validate() error {
	if _, err := s.CompiledRegex(); err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	if _, err := scorefunc.Compile(s.ScoreFunction, s.CompileMode()); err != nil {
		return err
	}
	return nil
}

// SleepInterval returns the run-loop pause as a duration.
func (c *Config) SleepInterval() time.Duration {
	return time.Duration(c.SleepSeconds) * time.Second
}

// CompiledRegex compiles the series' extraction pattern.
func (s *Series) CompiledRegex() (*regexp.Regexp, error) {
	return regexp.Compile(s.Regex)
}

// CompileMode maps the strictness flag to a compiler mode.
func (s *Series) CompileMode() scorefunc.Mode {
	if s.StrictScoreFunction {
		return scorefunc.ModeStrict
	}
	return scorefunc.ModeLenient
}

// Cadence returns the configured reset cadence string; the empty string
// disables resets.
func (s *Series) Cadence() string { return s.ResetEvery }

// IgnoreSet returns the computation-exclusion usernames as a set.
func (s *Series) IgnoreSet() map[string]struct{} { return toSet(s.Ignore) }

// HideSet returns the public-ranking-exclusion usernames as a set.
func (s *Series) HideSet() map[string]struct{} { return toSet(s.HideFromBoard) }

// SheetExcludeSet returns the export-exclusion usernames as a set.
func (s *Series) SheetExcludeSet() map[string]struct{} { return toSet(s.ExcludeFromSheet) }

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

var fold = cases.Fold()

// NormalizeTitle case-folds a title and removes its spaces, so that
// "October Streak Stacker #12" matches the fragment "octoberstreakstacker".
func NormalizeTitle(title string) string {
	return strings.ReplaceAll(fold.String(title), " ", "")
}

// MatchesTitle reports whether a post title belongs to this series: the
// normalized post title must contain the normalized configured fragment,
// or sit within TitleMatchDistance edits of it when fuzzy matching is
// enabled.
func (s *Series) MatchesTitle(postTitle string) bool {
	want := NormalizeTitle(s.Title)
	got := NormalizeTitle(postTitle)
	if strings.Contains(got, want) {
		return true
	}
	if s.TitleMatchDistance > 0 {
		return levenshtein.ComputeDistance(want, got) <= s.TitleMatchDistance
	}
	return false
}
