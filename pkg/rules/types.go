// Package rules loads parsing rule files and classifies log lines against them.
package rules

import (
	"regexp"
	"strings"
)

// Category is the semantic tag assigned to a log line.
type Category string

const (
	CategoryStart   Category = "start"
	CategoryError   Category = "error"
	CategoryWarning Category = "warning"
	CategoryInfo    Category = "info"
	CategoryDebug   Category = "debug"

	// CategoryOK is the default category. Lines classified OK are passed
	// through untouched and never counted.
	CategoryOK Category = "ok"
)

// Categories lists every category in rule file keyword order.
var Categories = []Category{
	CategoryStart,
	CategoryError,
	CategoryWarning,
	CategoryInfo,
	CategoryDebug,
	CategoryOK,
}

// ParseCategory converts a rule file keyword into a Category.
// Keywords are case-insensitive.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(s))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Counted reports whether lines of this category produce a matched line.
// START lines head a section instead and OK lines are pass-through.
func (c Category) Counted() bool {
	switch c {
	case CategoryError, CategoryWarning, CategoryInfo, CategoryDebug:
		return true
	default:
		return false
	}
}

// Rule is a single (category, pattern) pair.
type Rule struct {
	// Category assigned to lines matching Pattern.
	Category Category

	// Pattern is matched anywhere in the line.
	Pattern *regexp.Regexp

	// Label is an optional display label for matched lines.
	Label string

	// Line is the 1-based line in the rule source that declared this rule.
	Line int
}

// DisplayLabel returns the rule's label, falling back to the upper-cased category.
func (r *Rule) DisplayLabel() string {
	if r.Label != "" {
		return r.Label
	}
	return strings.ToUpper(string(r.Category))
}

// RuleSet is an ordered, immutable sequence of rules. Evaluation is
// first-match-wins in declaration order. A RuleSet is safe for concurrent
// use by any number of classification runs.
type RuleSet struct {
	name  string
	rules []Rule
}

// NewRuleSet builds a RuleSet from already compiled rules. The slice is copied.
func NewRuleSet(name string, rules []Rule) *RuleSet {
	cp := make([]Rule, len(rules))
	copy(cp, rules)
	return &RuleSet{name: name, rules: cp}
}

// Name returns the name of the source the rules were loaded from.
func (rs *RuleSet) Name() string {
	if rs == nil {
		return ""
	}
	return rs.name
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.rules)
}

// Rules returns a copy of the rules in declaration order.
func (rs *RuleSet) Rules() []Rule {
	cp := make([]Rule, len(rs.rules))
	copy(cp, rs.rules)
	return cp
}
