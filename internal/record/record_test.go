package record

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dotcommander/supervisa/internal/catalog"
	"github.com/dotcommander/supervisa/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormRecordPreservesUnknownFields(t *testing.T) {
	input := `{
		"id": "r1",
		"fechaVisita": "2024-03-10",
		"nombreEspacio": "Parque Central",
		"contratista": "Corporación Crecer",
		"pmAsistentes": "25",
		"tipoEspacio": "cdvparque",
		"percentCompliance": 88,
		"isAutoSave": false,
		"firmaResponsable": {"ref": "sig-1"},
		"observaciones": "sin novedad"
	}`

	var r FormRecord
	require.NoError(t, json.Unmarshal([]byte(input), &r))

	assert.Equal(t, "r1", r.ID)
	assert.Equal(t, 25, r.Attendees.Int())
	assert.Equal(t, 88, r.PercentCompliance.Int())
	require.Len(t, r.Extra, 2)
	assert.JSONEq(t, `{"ref": "sig-1"}`, string(r.Extra["firmaResponsable"]))

	out, err := json.Marshal(r)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, "sin novedad", back["observaciones"])
	assert.Equal(t, "Parque Central", back["nombreEspacio"])
	assert.Contains(t, back, "firmaResponsable")
}

func TestFormRecordKnownFieldsWinOverExtra(t *testing.T) {
	r := FormRecord{
		SiteName: "Real",
		Extra:    map[string]json.RawMessage{"nombreEspacio": json.RawMessage(`"Shadow"`)},
	}
	out, err := json.Marshal(r)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, "Real", back["nombreEspacio"])
}

func TestLenientFields(t *testing.T) {
	input := `{
		"fechaVisita": "2024-03-10",
		"nombreEspacio": "X",
		"pmAsistentes": "muchos",
		"percentCompliance": "75%",
		"pointsTotal": null,
		"apoyoSupervision": "Ana Ruiz, Luis Gómez"
	}`

	var r FormRecord
	require.NoError(t, json.Unmarshal([]byte(input), &r))
	assert.Equal(t, 0, r.Attendees.Int())
	assert.Equal(t, 75, r.PercentCompliance.Int())
	assert.Equal(t, 0, r.PointsTotal.Int())
	assert.Equal(t, Names{"Ana Ruiz", "Luis Gómez"}, r.Supervisors)

	var list FormRecord
	require.NoError(t, json.Unmarshal([]byte(`{"apoyoSupervision": ["Ana", "", 3]}`), &list))
	assert.Equal(t, Names{"Ana"}, list.Supervisors)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"2024-03-10", "2024-03-10", true},
		{"2024-03-10T15:30:00Z", "2024-03-10", true},
		{"2024-03-10 08:00:00", "2024-03-10", true},
		{"10/03/2024", "2024-03-10", true},
		{"", "", false},
		{"yesterday", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParseDate(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got.Format("2006-01-02"))
				assert.Equal(t, time.UTC, got.Location())
			}
		})
	}
}

func TestSpaceAndSiteKey(t *testing.T) {
	r := FormRecord{SpaceType: "cdvfijo", SiteName: "  CDI  Los   Pinos "}
	st, ok := r.Space()
	assert.True(t, ok)
	assert.Equal(t, catalog.SpaceFixed, st)
	assert.Equal(t, "cdi los pinos", r.SiteKey())

	_, ok = FormRecord{}.Space()
	assert.False(t, ok)
	_, ok = FormRecord{SpaceType: "all"}.Space()
	assert.False(t, ok)
}

func TestComponentPoints(t *testing.T) {
	cat := catalog.Default()

	fromSections := FormRecord{
		SectionScores: map[string]SectionSummary{
			"Componente Técnico": {Total: 300, MaxPoints: 400},
		},
	}
	earned, possible, ok := fromSections.ComponentPoints(cat, catalog.ComponentTechnical)
	require.True(t, ok)
	assert.Equal(t, 300.0, earned)
	assert.Equal(t, 400.0, possible)

	fromItems := FormRecord{
		Items: map[string]map[string]ItemDetail{
			"nutrition": {
				"nut_minuta":    {Value: scoring.Points(100), MaxValue: 100},
				"nut_porciones": {Value: scoring.Points(50)},
				"nut_tamizaje":  {Value: scoring.NA(), MaxValue: 100},
			},
		},
	}
	earned, possible, ok = fromItems.ComponentPoints(cat, catalog.ComponentNutrition)
	require.True(t, ok)
	assert.Equal(t, 150.0, earned)
	assert.Equal(t, 200.0, possible)

	_, _, ok = fromItems.ComponentPoints(cat, catalog.ComponentInfrastructure)
	assert.False(t, ok)
}

func TestComponentPointsPrefersFirstSortedKey(t *testing.T) {
	cat := catalog.Default()
	r := FormRecord{
		SectionScores: map[string]SectionSummary{
			"technical":          {Total: 100, MaxPoints: 400},
			"Componente Técnico": {Total: 300, MaxPoints: 400},
		},
	}

	for i := 0; i < 50; i++ {
		earned, possible, ok := r.ComponentPoints(cat, catalog.ComponentTechnical)
		require.True(t, ok)
		assert.Equal(t, 300.0, earned)
		assert.Equal(t, 400.0, possible)
	}
}

func TestBackfill(t *testing.T) {
	r := FormRecord{
		SpaceType: "cdvparque",
		Items: map[string]map[string]ItemDetail{
			"technical": {
				"tec_planeacion": {Value: scoring.Points(100)},
				"tec_ambientes":  {Value: scoring.Points(50), SpaceType: "fixed"},
			},
		},
	}

	filled := r.Backfill()
	assert.Equal(t, "community", filled.Items["technical"]["tec_planeacion"].SpaceType)
	assert.Equal(t, "fixed", filled.Items["technical"]["tec_ambientes"].SpaceType)
	assert.Empty(t, r.Items["technical"]["tec_planeacion"].SpaceType, "original must not be mutated")
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Parque (2024-03-10)", FormRecord{SiteName: "Parque", VisitDate: "2024-03-10"}.Label())
	assert.Equal(t, "abc", FormRecord{ID: "abc"}.Label())
	assert.Equal(t, "unnamed record", FormRecord{}.Label())
}
