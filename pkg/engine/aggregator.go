package engine

import "github.com/ccollicutt/logparse/pkg/rules"

// aggregator keeps grand totals independent of section boundaries and the
// per-category excerpt lists, up to a fixed number of retained lines.
type aggregator struct {
	result   *ParseResult
	retained int
	max      int // < 0 means unlimited
}

func newAggregator(maxRetained int, outputLocation string) *aggregator {
	return &aggregator{
		result: &ParseResult{OutputLocation: outputLocation},
		max:    maxRetained,
	}
}

// line counts one input line.
func (a *aggregator) line() {
	a.result.TotalLines++
}

// add counts ml and reports whether its excerpt was retained.
func (a *aggregator) add(ml *MatchedLine) bool {
	r := a.result
	switch ml.Category {
	case rules.CategoryError:
		r.TotalErrors++
	case rules.CategoryWarning:
		r.TotalWarnings++
	case rules.CategoryInfo:
		r.TotalInfos++
	case rules.CategoryDebug:
		r.TotalDebugs++
	default:
		return false
	}

	if a.max >= 0 && a.retained >= a.max {
		r.Truncated = true
		return false
	}
	a.retained++

	switch ml.Category {
	case rules.CategoryError:
		r.Errors = append(r.Errors, ml)
	case rules.CategoryWarning:
		r.Warnings = append(r.Warnings, ml)
	case rules.CategoryInfo:
		r.Infos = append(r.Infos, ml)
	case rules.CategoryDebug:
		r.Debugs = append(r.Debugs, ml)
	}
	return true
}

// finalize attaches the closed sections and failure and hands the result over.
func (a *aggregator) finalize(sections []*Section, failure error) *ParseResult {
	r := a.result
	r.Sections = sections
	if failure != nil {
		r.Failure = failure
		r.FailureMessage = failure.Error()
	}
	a.result = nil
	return r
}
