package outcome

import (
	"context"
	"errors"
	"testing"

	"github.com/ccollicutt/logparse/pkg/engine"
)

func TestPolicy_Decide(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		result *engine.ParseResult
		want   Status
	}{
		{"clean", Policy{true, true}, &engine.ParseResult{}, StatusSuccess},
		{"errors fail", Policy{FailOnError: true}, &engine.ParseResult{TotalErrors: 2}, StatusFailure},
		{"errors ignored", Policy{UnstableOnWarning: true}, &engine.ParseResult{TotalErrors: 2}, StatusSuccess},
		{"warnings unstable", Policy{UnstableOnWarning: true}, &engine.ParseResult{TotalWarnings: 1}, StatusUnstable},
		{"errors beat warnings", Policy{true, true}, &engine.ParseResult{TotalErrors: 1, TotalWarnings: 1}, StatusFailure},
		{"no flags", Policy{}, &engine.ParseResult{TotalErrors: 5, TotalWarnings: 5}, StatusSuccess},
		{"cancelled", Policy{true, true}, &engine.ParseResult{Failure: &engine.CancelledError{Line: 3, Err: context.Canceled}}, StatusAborted},
		{"read failure uses partial totals", Policy{FailOnError: true},
			&engine.ParseResult{TotalErrors: 1, Failure: &engine.ScanError{Op: "read", Err: errors.New("eof")}}, StatusFailure},
		{"nil result", Policy{}, nil, StatusAborted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Decide(tt.result); got != tt.want {
				t.Errorf("Decide() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWorse(t *testing.T) {
	if got := Worse(StatusSuccess, StatusUnstable); got != StatusUnstable {
		t.Errorf("Worse() = %s, want UNSTABLE", got)
	}
	if got := Worse(StatusFailure, StatusUnstable); got != StatusFailure {
		t.Errorf("Worse() = %s, want FAILURE", got)
	}
	if got := Worse(StatusFailure, StatusAborted); got != StatusAborted {
		t.Errorf("Worse() = %s, want ABORTED", got)
	}
}

func TestStatus_ExitCode(t *testing.T) {
	codes := map[Status]int{StatusSuccess: 0, StatusFailure: 1, StatusUnstable: 3, StatusAborted: 4}
	for s, want := range codes {
		if got := s.ExitCode(); got != want {
			t.Errorf("%s.ExitCode() = %d, want %d", s, got, want)
		}
	}
}
