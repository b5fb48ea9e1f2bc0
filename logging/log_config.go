package logging

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// LoggerPatternConfig sets the level of every logger whose dotted name matches Pattern. A `*`
// section matches any run of characters, dots included.
type LoggerPatternConfig struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Level   string `json:"level" yaml:"level"`
}

// a section is alphanumeric, optionally joined by `_` or `-`, or a lone `*`.
var patternSyntax = regexp.MustCompile(
	`^(\*|[a-zA-Z0-9]+([_-]*[a-zA-Z0-9]+)*)(\.(\*|[a-zA-Z0-9]+([_-]*[a-zA-Z0-9]+)*))*$`)

// ValidatePattern reports whether pattern is a dotted logger name, optionally using `*` sections.
func ValidatePattern(pattern string) bool {
	return patternSyntax.MatchString(pattern)
}

// levelPattern is a LoggerPatternConfig that has been checked and compiled.
type levelPattern struct {
	matcher *regexp.Regexp
	level   Level
}

func compilePattern(lpc LoggerPatternConfig) (levelPattern, error) {
	if !ValidatePattern(lpc.Pattern) {
		return levelPattern{}, errors.Errorf("invalid logger pattern %q", lpc.Pattern)
	}
	level, err := LevelFromString(lpc.Level)
	if err != nil {
		return levelPattern{}, errors.Wrapf(err, "pattern %q", lpc.Pattern)
	}
	literal := strings.Split(lpc.Pattern, "*")
	for i, part := range literal {
		literal[i] = regexp.QuoteMeta(part)
	}
	return levelPattern{
		matcher: regexp.MustCompile(`^` + strings.Join(literal, `.*`) + `$`),
		level:   level,
	}, nil
}
