package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/dotcommander/supervisa/internal/catalog"
	"github.com/dotcommander/supervisa/internal/record"
	"github.com/dotcommander/supervisa/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []record.FormRecord {
	return []record.FormRecord{
		{
			ID: "1", VisitDate: "2024-03-04", SiteName: "CDI Pinos", Contractor: "Fundación Semillas",
			SpaceType: "cdvfijo", Attendees: 40, PercentCompliance: 90,
			Supervisors: record.Names{"Ana Ruiz"},
		},
		{
			ID: "2", VisitDate: "2024-03-05", SiteName: "Parque Norte", Contractor: "Corporación Crecer",
			SpaceType: "cdvparque", Attendees: 20, PercentCompliance: 70,
			Supervisors: record.Names{"Luis Gómez", "Ana Ruiz"},
		},
		{
			ID: "3", VisitDate: "2024-03-05", SiteName: "CDI Robles", Contractor: "fundación semillas",
			SpaceType: "cdvfijo", Attendees: 31, PercentCompliance: 81,
		},
		{
			ID: "draft", VisitDate: "2024-03-06", SiteName: "CDI Pinos", Contractor: "Fundación Semillas",
			SpaceType: "cdvfijo", Attendees: 100, PercentCompliance: 10, IsAutoSave: true,
		},
		{
			ID: "4", VisitDate: "", SiteName: "Sin Fecha", Contractor: "",
			Attendees: 9, PercentCompliance: 50,
		},
	}
}

func TestComputeGlobals(t *testing.T) {
	m := Compute(sampleRecords(), Filter{}, catalog.Default())

	assert.Equal(t, 4, m.TotalVisits, "drafts are excluded")
	// (90+70+81+50)/4 = 72.75
	assert.Equal(t, 73, m.AverageCompliance)
	assert.Equal(t, 100, m.TotalAttendees)
	assert.Equal(t, 25, m.AverageAttendees)
}

func TestComputeDimensions(t *testing.T) {
	m := Compute(sampleRecords(), Filter{}, catalog.Default())

	require.Len(t, m.ByContractor, 2, "record without contractor is left out of the breakdown")
	assert.Equal(t, "Fundación Semillas", m.ByContractor[0].Name)
	assert.Equal(t, 2, m.ByContractor[0].Visits)
	assert.Equal(t, 86, m.ByContractor[0].AverageCompliance) // 85.5
	assert.Equal(t, 36, m.ByContractor[0].AverageAttendees)  // 35.5
	assert.Equal(t, "Corporación Crecer", m.ByContractor[1].Name)

	require.Len(t, m.BySpaceType, 2)
	assert.Equal(t, "community", m.BySpaceType[0].Name)
	assert.Equal(t, "fixed", m.BySpaceType[1].Name)
	assert.Equal(t, 2, m.BySpaceType[1].Visits)

	require.Len(t, m.ByDate, 2)
	assert.Equal(t, "2024-03-04", m.ByDate[0].Name)
	assert.Equal(t, "2024-03-05", m.ByDate[1].Name)
	assert.Equal(t, 2, m.ByDate[1].Visits)

	require.Len(t, m.BySupervisor, 2)
	assert.Equal(t, "Ana Ruiz", m.BySupervisor[0].Name)
	assert.Equal(t, 80, m.BySupervisor[0].AverageCompliance)
	assert.Equal(t, "Luis Gómez", m.BySupervisor[1].Name)
}

func TestComputeEmpty(t *testing.T) {
	m := Compute(nil, Filter{}, catalog.Default())

	assert.Zero(t, m.TotalVisits)
	assert.Zero(t, m.AverageCompliance)
	assert.Zero(t, m.AverageAttendees)
	assert.NotNil(t, m.ByContractor)
	require.Len(t, m.Components, 3)
	for _, c := range m.Components {
		assert.Zero(t, c.Percentage)
		assert.Zero(t, c.AveragePercentage)
		assert.NotNil(t, c.Items)
	}
}

func TestApplyFilter(t *testing.T) {
	tests := []struct {
		name    string
		filter  Filter
		wantIDs []string
	}{
		{"no filter", Filter{}, []string{"1", "2", "3", "4"}},
		{"all values", Filter{SpaceType: "all", Contractor: "all"}, []string{"1", "2", "3", "4"}},
		{"space type", Filter{SpaceType: "fixed"}, []string{"1", "3"}},
		{"space alias", Filter{SpaceType: "cdvparque"}, []string{"2"}},
		{"contractor ignores case", Filter{Contractor: "FUNDACIÓN SEMILLAS"}, []string{"1", "3"}},
		{"date from", Filter{DateFrom: "2024-03-05"}, []string{"2", "3"}},
		{"date range", Filter{DateFrom: "2024-03-01", DateTo: "2024-03-04"}, []string{"1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []string
			for _, r := range Apply(sampleRecords(), tt.filter) {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestComponentPercentageUsesAccumulatedPoints(t *testing.T) {
	records := []record.FormRecord{
		{
			ID: "small",
			SectionScores: map[string]record.SectionSummary{
				"Componente Técnico": {Total: 100, MaxPoints: 100},
			},
		},
		{
			ID: "large",
			SectionScores: map[string]record.SectionSummary{
				"Componente Técnico": {Total: 500, MaxPoints: 1000},
			},
		},
	}

	stats := ComponentStats(records, catalog.Default())
	require.Len(t, stats, 3)

	tech := stats[0]
	assert.Equal(t, catalog.ComponentTechnical, tech.Component)
	assert.Equal(t, 2, tech.Records)
	assert.Equal(t, 600, tech.EarnedPoints)
	assert.Equal(t, 1100, tech.PossiblePoints)
	assert.Equal(t, 55, tech.Percentage)
	assert.Equal(t, 75, tech.AveragePercentage)

	assert.Zero(t, stats[1].Records, "records without nutrition data are not counted")
}

func TestItemStatsGroupedByApplicability(t *testing.T) {
	records := []record.FormRecord{
		{
			SpaceType: "cdvfijo",
			Items: map[string]map[string]record.ItemDetail{
				"technical": {
					"tec_planeacion": {Value: scoring.Points(100), Label: "Planeación"},
					"tec_ambientes":  {Value: scoring.Points(0)},
				},
			},
		},
		{
			SpaceType: "cdvparque",
			Items: map[string]map[string]record.ItemDetail{
				"technical": {
					"tec_planeacion": {Value: scoring.Points(50)},
					"tec_material":   {Value: scoring.NA()},
				},
			},
		},
		{
			SpaceType: "fixed",
			Items: map[string]map[string]record.ItemDetail{
				"technical": {
					"tec_planeacion": {Value: scoring.Points(50), SpaceType: "fixed"},
				},
			},
		},
	}

	items := itemStats(records, catalog.Default(), catalog.ComponentTechnical)
	require.Len(t, items, 3)

	assert.Equal(t, "tec_ambientes", items[0].ItemID)
	assert.Equal(t, "fixed", items[0].SpaceType)
	assert.Equal(t, 1, items[0].Zeros)
	assert.Equal(t, "Ambientes pedagógicos organizados por grupo", items[0].Label)

	assert.Equal(t, "tec_planeacion", items[1].ItemID)
	assert.Equal(t, "community", items[1].SpaceType)
	assert.Equal(t, 50, items[1].Average)
	assert.Equal(t, 1, items[1].Evaluations)

	assert.Equal(t, "tec_planeacion", items[2].ItemID)
	assert.Equal(t, "fixed", items[2].SpaceType)
	assert.Equal(t, 75, items[2].Average)
	assert.Equal(t, 2, items[2].Evaluations)
}

func TestComputeConcurrentRunsAreIndependent(t *testing.T) {
	records := sampleRecords()
	want := Compute(records, Filter{}, catalog.Default())

	var wg sync.WaitGroup
	results := make([]Metrics, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Compute(records, Filter{}, catalog.Default())
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestWindow(t *testing.T) {
	now := time.Date(2024, 3, 31, 15, 0, 0, 0, time.UTC)
	records := []record.FormRecord{
		{ID: "in", VisitDate: "2024-03-15"},
		{ID: "edge", VisitDate: "2024-03-01"},
		{ID: "old", VisitDate: "2024-02-28"},
		{ID: "future", VisitDate: "2024-04-02"},
		{ID: "undated"},
	}

	var ids []string
	for _, r := range Window(records, now, 30) {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"in", "edge"}, ids)
}
