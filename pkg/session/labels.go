package session

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/menta2k/pair-labeler/pkg/shape"
)

// ValidateMode controls which labels a session accepts
type ValidateMode string

const (
	// ValidateNone accepts every label
	ValidateNone ValidateMode = ""
	// ValidateExact accepts only known labels
	ValidateExact ValidateMode = "exact"
	// ValidateInstance also accepts numbered instances such as "car-3"
	ValidateInstance ValidateMode = "instance"
)

// ErrInvalidLabel is returned when a label fails validation
var ErrInvalidLabel = errors.New("invalid label")

// ParseValidateMode converts a configuration value
func ParseValidateMode(s string) (ValidateMode, error) {
	switch m := ValidateMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ValidateNone, ValidateExact, ValidateInstance:
		return m, nil
	default:
		return ValidateNone, fmt.Errorf("unknown label validation mode %q", s)
	}
}

// labelValidator checks labels against a known list
type labelValidator struct {
	mode  ValidateMode
	known []string
}

func (v labelValidator) validate(label string) error {
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("%w: empty label", ErrInvalidLabel)
	}
	if v.mode == ValidateNone {
		return nil
	}
	if slices.Contains(v.known, label) {
		return nil
	}
	if v.mode == ValidateInstance {
		for _, k := range v.known {
			rest, ok := strings.CutPrefix(label, k+"-")
			if ok && isDigits(rest) {
				return nil
			}
		}
	}
	return fmt.Errorf("%w: %q", ErrInvalidLabel, label)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// flagRule seeds flags for labels matching pattern
type flagRule struct {
	pattern *regexp.Regexp
	flags   []string
}

// compileFlagRules compiles label patterns. Patterns are anchored at the start
// of the label; rules are ordered by pattern so results are deterministic.
func compileFlagRules(rules map[string][]string) ([]flagRule, error) {
	patterns := make([]string, 0, len(rules))
	for p := range rules {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)

	compiled := make([]flagRule, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("^(?:" + p + ")")
		if err != nil {
			return nil, fmt.Errorf("invalid label flag pattern %q: %w", p, err)
		}
		compiled = append(compiled, flagRule{pattern: re, flags: rules[p]})
	}
	return compiled, nil
}

// applyFlagDefaults seeds every flag whose rule matches the label with false,
// then lays the shape's own flags over them
func applyFlagDefaults(rules []flagRule, s *shape.Shape) {
	if len(rules) == 0 {
		if s.Flags == nil {
			s.Flags = map[string]bool{}
		}
		return
	}
	flags := map[string]bool{}
	for _, r := range rules {
		if !r.pattern.MatchString(s.Label) {
			continue
		}
		for _, f := range r.flags {
			flags[f] = false
		}
	}
	for k, v := range s.Flags {
		flags[k] = v
	}
	s.Flags = flags
}
