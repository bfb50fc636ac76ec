package validate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *Report {
	return &Report{Findings: []Finding{
		{Severity: SeverityPass, Level: LevelStructural, Subject: "comp", Category: "clocks"},
		{Severity: SeverityFail, Level: LevelStructural, Subject: "comp", Category: "clocks", Message: "missing edge"},
		{Severity: SeverityPass, Level: LevelFields, Subject: "comp--generates-->sdc", Category: "clock_domain"},
		{Severity: SeverityPass, Level: LevelFields, Subject: "comp--generates-->sdc", Category: "clock_domain"},
		{Severity: SeverityWarning, Level: LevelFields, Subject: "comp--generates-->sdc", Category: "clock_group"},
		{Severity: SeverityInfo, Level: LevelFields, Subject: "doc--references-->x"},
		{Severity: SeverityFail, Level: LevelCoverage, Subject: "comp"},
	}}
}

func TestReport_Counts(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, 3, r.Count(SeverityPass))
	assert.Equal(t, 2, r.Count(SeverityFail))
	assert.False(t, r.IsValid())
	assert.Equal(t, 60.0, r.CoveragePct())

	assert.Len(t, r.Filter(SeverityFail, 0), 2)
	assert.Len(t, r.Filter("", LevelFields), 4)
	assert.Len(t, r.Filter(SeverityPass, LevelFields), 2)
}

func TestReport_CoverageRounding(t *testing.T) {
	r := &Report{Findings: []Finding{
		{Severity: SeverityPass}, {Severity: SeverityFail}, {Severity: SeverityFail},
	}}
	assert.Equal(t, 33.3, r.CoveragePct())

	empty := &Report{Findings: []Finding{{Severity: SeverityWarning}, {Severity: SeverityInfo}}}
	assert.Equal(t, 100.0, empty.CoveragePct())
	assert.True(t, empty.IsValid())
}

func TestReport_Summary(t *testing.T) {
	s := sampleReport().Summary()

	assert.False(t, s.Valid)
	assert.Equal(t, 7, s.TotalChecks)
	assert.Equal(t, 3, s.Passes)
	assert.Equal(t, 1, s.Warnings)
	assert.Equal(t, 2, s.Failures)
	assert.Equal(t, 1, s.Infos)

	assert.Equal(t, map[string]CategoryStats{
		"clocks":           {Pass: 1, Fail: 1, CoveragePct: 50},
		"clock_domain":     {Pass: 2, Fail: 0, CoveragePct: 100},
		"element_coverage": {Pass: 0, Fail: 1, CoveragePct: 0},
	}, s.CategoryCoverage)
	require.Len(t, s.FailureDetails, 2)
	assert.Equal(t, "missing edge", s.FailureDetails[0].Message)
}

func TestReport_Save(t *testing.T) {
	path := filepath.Join(t.TempDir(), "validation-report.json")
	require.NoError(t, sampleReport().Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got struct {
		GeneratedAt string    `json:"generated_at"`
		Summary     Summary   `json:"summary"`
		Findings    []Finding `json:"findings"`
	}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.NotEmpty(t, got.GeneratedAt)
	assert.Equal(t, 60.0, got.Summary.CoveragePct)
	assert.Len(t, got.Findings, 7)
	assert.Equal(t, LevelCoverage, got.Findings[6].Level)
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "structural", LevelStructural.String())
	assert.Equal(t, "field_level", LevelFields.String())
	assert.Equal(t, "element_coverage", LevelCoverage.String())
	assert.Equal(t, "level_9", Level(9).String())
}
