package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"
)

// Severity grades a finding.
type Severity string

const (
	SeverityPass    Severity = "PASS"
	SeverityWarning Severity = "WARNING"
	SeverityFail    Severity = "FAIL"
	SeverityInfo    Severity = "INFO"
)

// Level identifies which validation pass produced a finding.
type Level int

const (
	LevelStructural Level = 1 // required output edges per declared element kind
	LevelFields     Level = 2 // mapping categories and fields per edge
	LevelCoverage   Level = 3 // every declared element is mapped
)

// String returns the pass name used in summaries.
func (l Level) String() string {
	switch l {
	case LevelStructural:
		return "structural"
	case LevelFields:
		return "field_level"
	case LevelCoverage:
		return "element_coverage"
	default:
		return fmt.Sprintf("level_%d", int(l))
	}
}

// Finding is a single validation result.
type Finding struct {
	Severity Severity `json:"severity"`
	Level    Level    `json:"level"`
	// Subject is the node id for levels 1 and 3 and the edge id for level 2.
	Subject string `json:"subject"`
	// Target is the related target node id, when there is one.
	Target string `json:"target,omitempty"`
	// Category is the element kind (level 1) or mapping category (levels 2 and 3).
	Category string         `json:"category,omitempty"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] L%d %s: %s", f.Severity, f.Level, f.Subject, f.Message)
}

// Report is the ordered list of findings from one validation run.
type Report struct {
	Findings []Finding `json:"findings"`
}

func (r *Report) add(f Finding) {
	r.Findings = append(r.Findings, f)
}

// Count returns the number of findings with severity s.
func (r *Report) Count(s Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == s {
			n++
		}
	}
	return n
}

// Filter returns the findings matching sev and level. A zero value for
// either matches everything.
func (r *Report) Filter(sev Severity, level Level) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if (sev == "" || f.Severity == sev) && (level == 0 || f.Level == level) {
			out = append(out, f)
		}
	}
	return out
}

// IsValid reports whether the run produced no FAIL findings.
func (r *Report) IsValid() bool {
	return r.Count(SeverityFail) == 0
}

// CoveragePct is PASS / (PASS + FAIL) * 100, rounded to one decimal. It is
// 100 when there are no PASS or FAIL findings.
func (r *Report) CoveragePct() float64 {
	return coverage(r.Count(SeverityPass), r.Count(SeverityFail))
}

func coverage(pass, fail int) float64 {
	total := pass + fail
	if total == 0 {
		return 100
	}
	return math.Round(1000*float64(pass)/float64(total)) / 10
}

// CategoryStats is the PASS/FAIL tally for one category.
type CategoryStats struct {
	Pass        int     `json:"pass"`
	Fail        int     `json:"fail"`
	CoveragePct float64 `json:"coverage_pct"`
}

// Summary is the condensed view of a report consumed by CI gates.
type Summary struct {
	Valid            bool                     `json:"overall_valid"`
	CoveragePct      float64                  `json:"overall_coverage_pct"`
	TotalChecks      int                      `json:"total_checks"`
	Passes           int                      `json:"passes"`
	Warnings         int                      `json:"warnings"`
	Failures         int                      `json:"failures"`
	Infos            int                      `json:"infos"`
	CategoryCoverage map[string]CategoryStats `json:"category_coverage"`
	FailureDetails   []Finding                `json:"failure_details"`
}

// Summary tallies the report. Findings without a category are grouped
// under their level name.
func (r *Report) Summary() Summary {
	s := Summary{
		Valid:            r.IsValid(),
		CoveragePct:      r.CoveragePct(),
		TotalChecks:      len(r.Findings),
		Passes:           r.Count(SeverityPass),
		Warnings:         r.Count(SeverityWarning),
		Failures:         r.Count(SeverityFail),
		Infos:            r.Count(SeverityInfo),
		CategoryCoverage: make(map[string]CategoryStats),
		FailureDetails:   []Finding{},
	}
	for _, f := range r.Findings {
		if f.Severity != SeverityPass && f.Severity != SeverityFail {
			continue
		}
		cat := f.Category
		if cat == "" {
			cat = f.Level.String()
		}
		st := s.CategoryCoverage[cat]
		if f.Severity == SeverityPass {
			st.Pass++
		} else {
			st.Fail++
			s.FailureDetails = append(s.FailureDetails, f)
		}
		s.CategoryCoverage[cat] = st
	}
	for cat, st := range s.CategoryCoverage {
		st.CoveragePct = coverage(st.Pass, st.Fail)
		s.CategoryCoverage[cat] = st
	}
	return s
}

type reportFile struct {
	GeneratedAt time.Time `json:"generated_at"`
	Summary     Summary   `json:"summary"`
	Findings    []Finding `json:"findings"`
}

// Save writes the summary and every finding to path as JSON.
func (r *Report) Save(path string) error {
	data, err := json.MarshalIndent(reportFile{
		GeneratedAt: time.Now().UTC(),
		Summary:     r.Summary(),
		Findings:    r.Findings,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding validation report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing validation report: %w", err)
	}
	return nil
}
