// Package detector recognises common build tool log formats and suggests
// starter rules for them.
package detector

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/ccollicutt/logparse/pkg/source"
)

// DetectionResult holds the result of analyzing a log.
type DetectionResult struct {
	Matches      []FormatMatch // Formats that matched, sorted by confidence descending
	SampledLines int           // Number of non-empty lines sampled
}

// FormatMatch represents a format that matched with its confidence score.
type FormatMatch struct {
	Format     *BuildFormat
	Confidence float64 // 0.0 to 1.0 (share of sampled lines matching the signature)
	MatchCount int     // Number of lines that matched
	SampleLine string  // First line that matched
}

// Detector samples logs to identify build tool formats.
type Detector struct {
	formats    []*BuildFormat
	sampleSize int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample (default 500).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// New creates a new Detector with default formats.
func New(opts ...Option) *Detector {
	d := &Detector{
		formats:    DefaultFormats(),
		sampleSize: 500,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectFromReader samples r, decoded from charset, and returns detected formats.
func (d *Detector) DetectFromReader(ctx context.Context, r io.Reader, charset string) (*DetectionResult, error) {
	lines, err := d.sample(ctx, r, charset)
	if err != nil {
		return nil, err
	}
	return d.DetectFromLines(lines), nil
}

// DetectFromLines analyzes a slice of log lines.
func (d *Detector) DetectFromLines(lines []string) *DetectionResult {
	result := &DetectionResult{}

	type formatStats struct {
		format     *BuildFormat
		matchCount int
		sampleLine string
	}
	stats := make(map[string]*formatStats)

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		result.SampledLines++

		for _, format := range d.formats {
			if !format.Pattern.MatchString(line) {
				continue
			}
			key := format.Name
			if stats[key] == nil {
				stats[key] = &formatStats{format: format, sampleLine: line}
			}
			stats[key].matchCount++
		}
	}

	for _, s := range stats {
		result.Matches = append(result.Matches, FormatMatch{
			Format:     s.format,
			Confidence: float64(s.matchCount) / float64(result.SampledLines),
			MatchCount: s.matchCount,
			SampleLine: s.sampleLine,
		})
	}

	// Sort by confidence descending, then by name for a stable order
	sort.Slice(result.Matches, func(i, j int) bool {
		if result.Matches[i].Confidence != result.Matches[j].Confidence {
			return result.Matches[i].Confidence > result.Matches[j].Confidence
		}
		return result.Matches[i].Format.Name < result.Matches[j].Format.Name
	})

	return result
}

// sample reads up to sampleSize lines from r.
func (d *Detector) sample(ctx context.Context, r io.Reader, charset string) ([]string, error) {
	lr, err := source.NewLineReader(r, charset, 0)
	if err != nil {
		return nil, err
	}

	var lines []string
	for len(lines) < d.sampleSize {
		line, err := lr.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		lines = append(lines, line.Text)
	}
	return lines, nil
}

// BestMatch returns the highest confidence match, or nil if none found.
func (r *DetectionResult) BestMatch() *FormatMatch {
	if len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}

// HasMatch returns true if at least one format matched.
func (r *DetectionResult) HasMatch() bool {
	return len(r.Matches) > 0
}

// StarterRules returns a rule file for the best match followed by generic
// catch-all rules. Format-specific rules come first so they win.
func (r *DetectionResult) StarterRules() string {
	var b strings.Builder
	b.WriteString("# Generated by: logparse detect\n")
	if best := r.BestMatch(); best != nil {
		b.WriteString("# Detected format: " + best.Format.Name + "\n\n")
		b.WriteString(best.Format.Rules)
		b.WriteString("\n# Catch-all rules\n")
	} else {
		b.WriteString("# No known format detected\n\n")
	}
	b.WriteString(genericRules)
	return b.String()
}
