package rules

// Match is the outcome of classifying one line.
type Match struct {
	Category Category

	// Label is the matching rule's display label, empty for unmatched lines.
	Label string

	// RuleIndex is the index of the matching rule, -1 when nothing matched.
	RuleIndex int
}

// Matched reports whether a rule matched the line.
func (m Match) Matched() bool {
	return m.RuleIndex >= 0
}

// Classify returns the category of the first rule whose pattern matches
// anywhere in line, or CategoryOK when no rule matches.
func (rs *RuleSet) Classify(line string) Category {
	return rs.Match(line).Category
}

// Match is Classify plus the matching rule's label and index.
func (rs *RuleSet) Match(line string) Match {
	if rs != nil {
		for i := range rs.rules {
			r := &rs.rules[i]
			if r.Pattern.MatchString(line) {
				return Match{Category: r.Category, Label: r.DisplayLabel(), RuleIndex: i}
			}
		}
	}
	return Match{Category: CategoryOK, RuleIndex: -1}
}
