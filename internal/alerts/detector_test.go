package alerts

import (
	"strings"
	"testing"
	"time"

	"github.com/dotcommander/supervisa/internal/catalog"
	"github.com/dotcommander/supervisa/internal/record"
	"github.com/dotcommander/supervisa/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// farFuture keeps the recency-window rules quiet in tests that target
// other rules.
func farFuture() time.Time {
	return time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
}

func newTestDetector(now time.Time) *Detector {
	return NewDetector(catalog.Default(), WithClock(func() time.Time { return now }))
}

func visit(site, date, contractor, space string, compliance, attendees float64) record.FormRecord {
	return record.FormRecord{
		VisitDate:         date,
		SiteName:          site,
		Contractor:        contractor,
		SpaceType:         space,
		PercentCompliance: record.Number(compliance),
		Attendees:         record.Number(attendees),
	}
}

func withTechnical(r record.FormRecord, earned, possible float64) record.FormRecord {
	if r.SectionScores == nil {
		r.SectionScores = map[string]record.SectionSummary{}
	}
	r.SectionScores["Componente Técnico"] = record.SectionSummary{Total: record.Number(earned), MaxPoints: record.Number(possible)}
	return r
}

func withNutrition(r record.FormRecord, earned, possible float64) record.FormRecord {
	if r.SectionScores == nil {
		r.SectionScores = map[string]record.SectionSummary{}
	}
	r.SectionScores["Componente Nutricional"] = record.SectionSummary{Total: record.Number(earned), MaxPoints: record.Number(possible)}
	return r
}

func byRule(alerts []Alert, rule string) []Alert {
	var out []Alert
	for _, a := range alerts {
		if a.Rule == rule {
			out = append(out, a)
		}
	}
	return out
}

func TestContractorWeeklySingleBucketYieldsNothing(t *testing.T) {
	records := []record.FormRecord{
		visit("A", "2024-03-04", "Semillas", "fixed", 90, 40),
		visit("B", "2024-03-06", "Semillas", "fixed", 40, 40),
		visit("C", "2024-03-10", "Crecer", "fixed", 10, 40),
	}

	alerts := newTestDetector(farFuture()).Detect(records)
	assert.Empty(t, byRule(alerts, RuleContractorWeekly))
}

func TestContractorWeeklyDrop(t *testing.T) {
	records := []record.FormRecord{
		visit("A", "2024-03-04", "Semillas", "fixed", 90, 40),
		visit("B", "2024-03-05", "Crecer", "fixed", 80, 40),
		visit("A", "2024-03-11", "Semillas", "fixed", 75, 40),
		visit("B", "2024-03-12", "Crecer", "fixed", 75, 40),
		visit("C", "2024-03-13", "Nuevo", "fixed", 20, 40),
	}

	alerts := byRule(newTestDetector(farFuture()).Detect(records), RuleContractorWeekly)
	require.Len(t, alerts, 2)

	assert.Equal(t, SeverityCritical, alerts[0].Severity)
	assert.Equal(t, "Semillas", alerts[0].Subject)
	assert.Contains(t, alerts[0].Detail, "90% -> 75%")
	assert.Equal(t, "2024-03-11", alerts[0].Date)

	assert.Equal(t, SeverityWarning, alerts[1].Severity)
	assert.Equal(t, "Crecer", alerts[1].Subject)
}

func TestSiteDropComparesOnlyLatestPair(t *testing.T) {
	records := []record.FormRecord{
		visit("CDI Pinos", "2024-03-04", "", "fixed", 90, 40),
		visit("CDI Pinos", "2024-03-11", "", "fixed", 85, 40),
		visit("CDI Pinos", "2024-03-18", "", "fixed", 70, 40),
	}

	alerts := byRule(newTestDetector(farFuture()).Detect(records), RuleSiteDrop)
	require.Len(t, alerts, 1)
	assert.Equal(t, SeverityCritical, alerts[0].Severity)
	assert.Equal(t, "CDI Pinos", alerts[0].Subject)
	assert.Contains(t, alerts[0].Detail, "85% -> 70% (-15 pts)")
	assert.Equal(t, "2024-03-18", alerts[0].Date)
}

func TestSiteDropThresholds(t *testing.T) {
	tests := []struct {
		name         string
		prev, cur    float64
		wantAlert    bool
		wantSeverity Severity
	}{
		{"improvement", 70, 80, false, ""},
		{"drop of exactly trigger", 80, 75, false, ""},
		{"warning", 80, 73, true, SeverityWarning},
		{"critical at exactly 10", 80, 70, true, SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []record.FormRecord{
				visit("Site", "2024-03-04", "", "fixed", tt.prev, 40),
				visit("site ", "2024-03-05", "", "fixed", tt.cur, 40),
			}
			alerts := byRule(newTestDetector(farFuture()).Detect(records), RuleSiteDrop)
			if !tt.wantAlert {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			assert.Equal(t, tt.wantSeverity, alerts[0].Severity)
		})
	}
}

func TestLowAttendanceCommunitySite(t *testing.T) {
	records := []record.FormRecord{
		visit("Parque Norte", "2024-03-01", "", "cdvparque", 90, 50),
		visit("Parque Norte", "2024-03-08", "", "cdvparque", 90, 15),
		visit("Parque Sur", "2024-03-08", "", "community", 90, 25),
		visit("Parque Este", "2024-03-01", "", "community", 90, 5),
		visit("Parque Este", "2024-03-08", "", "community", 90, 45),
		visit("CDI Pinos", "2024-03-08", "", "fixed", 90, 3),
	}

	alerts := byRule(newTestDetector(farFuture()).Detect(records), RuleLowAttendance)
	require.Len(t, alerts, 2)

	assert.Equal(t, SeverityCritical, alerts[0].Severity)
	assert.Equal(t, "Parque Norte", alerts[0].Subject)
	assert.True(t, strings.HasPrefix(alerts[0].Detail, "15 attendees"), alerts[0].Detail)

	assert.Equal(t, SeverityWarning, alerts[1].Severity)
	assert.Equal(t, "Parque Sur", alerts[1].Subject)
}

func TestLowComplianceRecentAndCapped(t *testing.T) {
	now := time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC)
	records := []record.FormRecord{
		visit("Old", "2024-02-01", "", "fixed", 10, 40),
		visit("S1", "2024-03-20", "", "fixed", 79, 40),
		visit("S2", "2024-03-21", "", "fixed", 59, 40),
		visit("S3", "2024-03-22", "", "fixed", 70, 40),
		visit("S4", "2024-03-23", "", "fixed", 50, 40),
		visit("S5", "2024-03-24", "", "fixed", 65, 40),
		visit("S6", "2024-03-25", "", "fixed", 75, 40),
		visit("S7", "2024-03-26", "", "fixed", 80, 40),
	}

	alerts := byRule(newTestDetector(now).Detect(records), RuleLowCompliance)
	require.Len(t, alerts, 5)

	assert.Equal(t, "S4", alerts[0].Subject)
	assert.Equal(t, SeverityCritical, alerts[0].Severity)
	assert.Equal(t, "S2", alerts[1].Subject)
	assert.Equal(t, SeverityCritical, alerts[1].Severity)
	assert.Equal(t, "S6", alerts[2].Subject)
	assert.Equal(t, "S5", alerts[3].Subject)
	assert.Equal(t, "S3", alerts[4].Subject)
	for _, a := range alerts {
		assert.NotEqual(t, "Old", a.Subject)
		assert.NotEqual(t, "S7", a.Subject)
	}
}

func TestZeroScoreItems(t *testing.T) {
	now := time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC)

	r := visit("CDI Pinos", "2024-03-20", "", "fixed", 90, 40)
	r.Items = map[string]map[string]record.ItemDetail{
		"technical": {
			"tec_planeacion": {Value: scoring.Points(0)},
			"tec_asistencia": {Value: scoring.Points(50)},
			"tec_material":   {Value: scoring.NA()},
		},
		"nutrition": {
			"nut_minuta": {Value: scoring.Points(0), Label: "Minuta"},
		},
	}
	old := visit("CDI Viejo", "2024-01-02", "", "fixed", 90, 40)
	old.Items = map[string]map[string]record.ItemDetail{
		"technical": {"tec_planeacion": {Value: scoring.Points(0)}},
	}

	alerts := byRule(newTestDetector(now).Detect([]record.FormRecord{r, old}), RuleZeroScore)
	require.Len(t, alerts, 2)
	for _, a := range alerts {
		assert.Equal(t, SeverityCritical, a.Severity)
		assert.Equal(t, "CDI Pinos", a.Subject)
	}
	assert.Equal(t, "nutrition: Minuta", alerts[0].Detail)
	assert.Equal(t, "technical: Planeación pedagógica disponible y actualizada", alerts[1].Detail)
}

func TestZeroScoreCappedAtLimit(t *testing.T) {
	now := time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC)
	var records []record.FormRecord
	for i, date := range []string{"2024-03-20", "2024-03-21", "2024-03-22"} {
		r := visit("Site"+string(rune('A'+i)), date, "", "fixed", 90, 40)
		r.Items = map[string]map[string]record.ItemDetail{
			"infrastructure": {
				"inf_sanitarios": {Value: scoring.Points(0)},
				"inf_botiquin":   {Value: scoring.Points(0)},
			},
		}
		records = append(records, r)
	}

	alerts := byRule(newTestDetector(now).Detect(records), RuleZeroScore)
	require.Len(t, alerts, 5)
	assert.Equal(t, "2024-03-22", alerts[0].Date)
}

func TestVisitFrequencyDrop(t *testing.T) {
	now := time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC) // Wednesday
	records := []record.FormRecord{
		visit("A", "2024-03-04", "", "fixed", 90, 40),
		visit("B", "2024-03-05", "", "fixed", 90, 40),
		visit("C", "2024-03-06", "", "fixed", 90, 40),
		visit("D", "2024-03-10", "", "fixed", 90, 40),
		visit("E", "2024-03-11", "", "fixed", 90, 40),
		visit("F", "2024-03-12", "", "fixed", 90, 40),
	}

	alerts := byRule(newTestDetector(now).Detect(records), RuleVisitFrequency)
	require.Len(t, alerts, 1)
	assert.Equal(t, SeverityCritical, alerts[0].Severity)
	assert.Contains(t, alerts[0].Detail, "4 -> 2 visits (-2, -50%)")
	assert.Equal(t, "2024-03-11", alerts[0].Date)
}

func TestVisitFrequencyWarningAndNoHistory(t *testing.T) {
	now := time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC)

	var records []record.FormRecord
	for i := 0; i < 5; i++ {
		records = append(records, visit("P", "2024-03-05", "", "fixed", 90, 40))
	}
	for i := 0; i < 4; i++ {
		records = append(records, visit("C", "2024-03-12", "", "fixed", 90, 40))
	}

	alerts := byRule(newTestDetector(now).Detect(records), RuleVisitFrequency)
	require.Len(t, alerts, 1)
	assert.Equal(t, SeverityWarning, alerts[0].Severity)

	alerts = byRule(newTestDetector(now).Detect(records[5:]), RuleVisitFrequency)
	assert.Empty(t, alerts, "no previous week means no comparison")
}

func TestComponentWeeklyDrop(t *testing.T) {
	records := []record.FormRecord{
		withNutrition(withTechnical(visit("A", "2024-03-04", "Semillas", "fixed", 80, 40), 400, 500), 400, 500),
		withNutrition(withTechnical(visit("A", "2024-03-11", "Semillas", "fixed", 80, 40), 350, 500), 380, 500),
		withTechnical(visit("B", "2024-03-04", "Crecer", "fixed", 80, 40), 0, 500),
		withTechnical(visit("B", "2024-03-12", "Crecer", "fixed", 80, 40), 0, 500),
	}

	alerts := byRule(newTestDetector(farFuture()).Detect(records), RuleComponentWeekly)
	require.Len(t, alerts, 1)
	assert.Equal(t, SeverityCritical, alerts[0].Severity)
	assert.Equal(t, "Semillas", alerts[0].Subject)
	assert.Equal(t, "Weekly technical drop", alerts[0].Message)
	assert.Contains(t, alerts[0].Detail, "80% -> 70% (-10 pts)")
}

func TestComponentMonthlyDrop(t *testing.T) {
	records := []record.FormRecord{
		withTechnical(visit("A", "2024-02-10", "Semillas", "fixed", 80, 40), 450, 500),
		withTechnical(visit("A", "2024-03-10", "Semillas", "fixed", 80, 40), 400, 500),
	}

	alerts := byRule(newTestDetector(farFuture()).Detect(records), RuleComponentMonthly)
	require.Len(t, alerts, 1)
	assert.Equal(t, SeverityWarning, alerts[0].Severity)
	assert.Equal(t, "Monthly technical drop", alerts[0].Message)
}

func TestDetectIgnoresDraftsAndSorts(t *testing.T) {
	now := time.Date(2024, 3, 31, 9, 0, 0, 0, time.UTC)
	draft := visit("Draft Site", "2024-03-30", "", "fixed", 0, 0)
	draft.IsAutoSave = true

	records := []record.FormRecord{
		draft,
		visit("S1", "2024-03-20", "", "fixed", 70, 40),
		visit("S2", "2024-03-25", "", "fixed", 50, 40),
		visit("S3", "2024-03-28", "", "fixed", 75, 40),
	}

	alerts := newTestDetector(now).Detect(records)
	for _, a := range alerts {
		assert.NotEqual(t, "Draft Site", a.Subject)
	}

	low := byRule(alerts, RuleLowCompliance)
	require.Len(t, low, 3)
	assert.Equal(t, "S2", low[0].Subject)
	assert.Equal(t, "S3", low[1].Subject)
	assert.Equal(t, "S1", low[2].Subject)

	for i := 1; i < len(alerts); i++ {
		assert.LessOrEqual(t, alerts[i-1].Severity.rank(), alerts[i].Severity.rank())
	}
}

func TestDetectWithCustomThresholds(t *testing.T) {
	th := DefaultThresholds()
	th.AttendanceWarningBelow = 10
	th.AttendanceCriticalBelow = 5

	d := NewDetector(catalog.Default(), WithClock(farFuture), WithThresholds(th))
	alerts := byRule(d.Detect([]record.FormRecord{
		visit("Parque", "2024-03-08", "", "community", 90, 15),
	}), RuleLowAttendance)
	assert.Empty(t, alerts)
}

func TestDetectEmpty(t *testing.T) {
	assert.Empty(t, newTestDetector(farFuture()).Detect(nil))
}

func TestRunReportsUndatedRecords(t *testing.T) {
	undated := visit("Lomas", "ayer", "Semillas", "fixed", 20, 40)
	draft := visit("Pinos", "mañana", "Semillas", "fixed", 20, 40)
	draft.IsAutoSave = true

	records := []record.FormRecord{
		visit("Pinos", "2024-03-04", "Semillas", "fixed", 90, 40),
		undated,
		draft,
	}

	res := newTestDetector(farFuture()).Run(records)
	require.Len(t, res.Undated, 1, "drafts are never reported")
	assert.Equal(t, "Lomas", res.Undated[0].SiteName)
	assert.Equal(t, newTestDetector(farFuture()).Detect(records), res.Alerts)
}
