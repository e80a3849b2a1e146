package rules

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/ccollicutt/logparse/pkg/source"
)

var (
	// ErrUnknownCategory is returned for a rule line whose keyword is not a category.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrMissingPattern is returned for a rule line with no pattern after the keyword.
	ErrMissingPattern = errors.New("missing pattern")

	// ErrUnterminatedPattern is returned when a /pattern/ has no closing slash.
	ErrUnterminatedPattern = errors.New("unterminated pattern")
)

// maxRuleLineBytes bounds a single rule line.
const maxRuleLineBytes = 1024 * 1024

// LoadError describes why a rule source could not be loaded.
// Line is 0 when the source itself could not be opened or read.
type LoadError struct {
	Source string
	Line   int
	Text   string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("rules %s: line %d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("rules %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads a rule source and compiles every rule.
//
// Each non-blank line that does not start with '#' declares one rule:
//
//	CATEGORY /regex/ [label]
//	CATEGORY regex-without-spaces [label]
//
// The first invalid line aborts the load; a partial RuleSet is never returned.
func Load(ctx context.Context, name string, r io.Reader) (*RuleSet, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRuleLineBytes)

	var rules []Rule
	lineNum := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, &LoadError{Source: name, Line: lineNum, Err: err}
		}
		lineNum++

		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		rule, err := parseRuleLine(text)
		if err != nil {
			return nil, &LoadError{Source: name, Line: lineNum, Text: text, Err: err}
		}
		rule.Line = lineNum
		rules = append(rules, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, &LoadError{Source: name, Err: fmt.Errorf("reading rule source: %w", err)}
	}

	return &RuleSet{name: name, rules: rules}, nil
}

// LoadFrom opens name through opener and loads it.
func LoadFrom(ctx context.Context, opener source.Opener, name string) (*RuleSet, error) {
	rc, err := opener.Open(ctx, name)
	if err != nil {
		return nil, &LoadError{Source: name, Err: err}
	}
	defer rc.Close()

	return Load(ctx, name, rc)
}

// MustCompile builds a RuleSet from rule file text and panics on error.
// Intended for tests and static rule tables.
func MustCompile(text string) *RuleSet {
	rs, err := Load(context.Background(), "inline", strings.NewReader(text))
	if err != nil {
		panic(err)
	}
	return rs
}

func parseRuleLine(text string) (Rule, error) {
	keyword, rest := splitField(text)

	category, ok := ParseCategory(keyword)
	if !ok {
		return Rule{}, fmt.Errorf("%w %q (must be one of start, error, warning, info, debug, ok)", ErrUnknownCategory, keyword)
	}

	if rest == "" {
		return Rule{}, ErrMissingPattern
	}

	var expr, label string
	if rest[0] == '/' {
		end := closingSlash(rest)
		if end < 0 {
			return Rule{}, ErrUnterminatedPattern
		}
		expr = rest[1:end]
		label = strings.TrimSpace(rest[end+1:])
	} else {
		expr, label = splitField(rest)
	}

	if expr == "" {
		return Rule{}, ErrMissingPattern
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return Rule{}, fmt.Errorf("invalid regular expression %q: %w", expr, err)
	}

	return Rule{Category: category, Pattern: re, Label: label}, nil
}

// splitField returns the first whitespace-delimited field and the trimmed remainder.
func splitField(s string) (string, string) {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i+1:])
}

// closingSlash returns the index of the first unescaped '/' after the opening one.
func closingSlash(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '/':
			return i
		}
	}
	return -1
}
