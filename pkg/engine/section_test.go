package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccollicutt/logparse/pkg/rules"
)

func matched(n int, c rules.Category) *MatchedLine {
	return &MatchedLine{LineNumber: n, Category: c, AnchorID: AnchorID(n)}
}

func TestSectionTracker_EmptyImplicitSectionDropped(t *testing.T) {
	tr := newSectionTracker()
	tr.start(1, "=== build ===")
	tr.line()

	sections := tr.finish()
	require.Len(t, sections, 1)
	assert.Equal(t, 1, sections[0].StartLine)
	assert.Equal(t, "L1", sections[0].AnchorID)
	assert.Equal(t, 2, sections[0].LineCount)
}

func TestSectionTracker_CountersResetPerSection(t *testing.T) {
	tr := newSectionTracker()
	tr.line()
	tr.record(matched(1, rules.CategoryError), true)
	tr.start(2, "one")
	tr.line()
	tr.record(matched(3, rules.CategoryWarning), true)
	tr.line()
	tr.record(matched(4, rules.CategoryWarning), false)
	tr.start(5, "two")

	sections := tr.finish()
	require.Len(t, sections, 3)

	assert.True(t, sections[0].Implicit())
	assert.Equal(t, 1, sections[0].ErrorCount)

	assert.Equal(t, "one", sections[1].Header)
	assert.Equal(t, 0, sections[1].ErrorCount)
	assert.Equal(t, 2, sections[1].WarningCount)
	assert.Len(t, sections[1].Matches, 1, "unretained excerpts still count")

	assert.Equal(t, "two", sections[2].Header)
	assert.Zero(t, sections[2].WarningCount)
}

func TestAggregator_Cap(t *testing.T) {
	a := newAggregator(2, "out/console.html")
	assert.True(t, a.add(matched(1, rules.CategoryError)))
	assert.True(t, a.add(matched(2, rules.CategoryInfo)))
	assert.False(t, a.add(matched(3, rules.CategoryError)))
	assert.False(t, a.add(matched(4, rules.CategoryOK)), "ok lines are never counted")

	r := a.finalize(nil, nil)
	assert.Equal(t, 2, r.TotalErrors)
	assert.Equal(t, 1, r.TotalInfos)
	assert.Len(t, r.Errors, 1)
	assert.True(t, r.Truncated)
	assert.Equal(t, "out/console.html", r.OutputLocation)
	assert.False(t, r.Failed())
}

func TestAggregator_Unlimited(t *testing.T) {
	a := newAggregator(-1, "")
	for i := 1; i <= 100; i++ {
		a.add(matched(i, rules.CategoryDebug))
	}
	r := a.finalize(nil, &ScanError{Op: "read", Line: 101, Err: assert.AnError})
	assert.Len(t, r.Debugs, 100)
	assert.False(t, r.Truncated)
	assert.True(t, r.Failed())
	assert.NotEmpty(t, r.FailureMessage)
}
