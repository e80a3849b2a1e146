package engine

import "github.com/ccollicutt/logparse/pkg/rules"

// sectionTracker collapses the stream into flat sections. A START line closes
// the open section and opens a new one; sections never nest.
type sectionTracker struct {
	current *Section
	closed  []*Section
}

func newSectionTracker() *sectionTracker {
	return &sectionTracker{current: &Section{}}
}

// start opens a section headed by a START line.
func (t *sectionTracker) start(lineNumber int, header string) *Section {
	t.closeCurrent()
	t.current = &Section{
		StartLine: lineNumber,
		Header:    header,
		AnchorID:  AnchorID(lineNumber),
		LineCount: 1,
	}
	return t.current
}

// line accounts for a non-START line in the open section.
func (t *sectionTracker) line() {
	t.current.LineCount++
}

// record counts a matched line in the open section. The excerpt is only kept
// when retain is set.
func (t *sectionTracker) record(ml *MatchedLine, retain bool) {
	s := t.current
	switch ml.Category {
	case rules.CategoryError:
		s.ErrorCount++
	case rules.CategoryWarning:
		s.WarningCount++
	case rules.CategoryInfo:
		s.InfoCount++
	case rules.CategoryDebug:
		s.DebugCount++
	}
	if retain {
		s.Matches = append(s.Matches, ml)
	}
}

// finish closes the open section and returns all sections in input order.
func (t *sectionTracker) finish() []*Section {
	t.closeCurrent()
	t.current = nil
	return t.closed
}

// closeCurrent emits the open section. The implicit leading section is only
// emitted when it holds at least one line.
func (t *sectionTracker) closeCurrent() {
	s := t.current
	if s == nil || (s.Implicit() && s.LineCount == 0) {
		return
	}
	t.closed = append(t.closed, s)
}
