package form

import (
	"fmt"
	"strings"
)

// RowKind tags a report row.
type RowKind string

const (
	RowHeader  RowKind = "header"
	RowSection RowKind = "section"
	RowItem    RowKind = "item"
	RowTotal   RowKind = "total"
)

// ReportRow is one display-ready line for the PDF renderer. Every value is
// already formatted; the renderer does no arithmetic.
type ReportRow struct {
	Kind    RowKind `json:"kind"`
	Section string  `json:"section,omitempty"`
	ItemID  string  `json:"itemId,omitempty"`
	Label   string  `json:"label"`
	Value   string  `json:"value"`
}

// ReportRows flattens a form into header, item, section and total rows.
func (e *Engine) ReportRows(s State) []ReportRow {
	s = e.Recompute(s)

	space := string(s.SpaceType)
	if s.SpaceType == "" || space == "all" {
		space = "-"
	}
	rows := []ReportRow{
		{Kind: RowHeader, Label: "Fecha", Value: s.Header.VisitDate},
		{Kind: RowHeader, Label: "Hora", Value: s.Header.VisitTime},
		{Kind: RowHeader, Label: "Espacio", Value: s.Header.SiteName},
		{Kind: RowHeader, Label: "Tipo de espacio", Value: space},
		{Kind: RowHeader, Label: "Contratista", Value: s.Contractor},
		{Kind: RowHeader, Label: "Asistentes", Value: fmt.Sprintf("%d", s.Header.Attendees)},
		{Kind: RowHeader, Label: "Apoyo a la supervisión", Value: strings.Join(s.Header.Supervisors, ", ")},
	}

	for _, sec := range e.Checklist(s) {
		for _, item := range sec.Items {
			rows = append(rows, ReportRow{
				Kind:    RowItem,
				Section: sec.Title,
				ItemID:  item.ID,
				Label:   item.Label,
				Value:   s.Value(sec.Title, item.ID).String(),
			})
		}
		score := s.Sections[sec.Title]
		rows = append(rows, ReportRow{
			Kind:    RowSection,
			Section: sec.Title,
			Label:   sec.Title,
			Value:   fmt.Sprintf("%d/%d (%d%%)", score.Total, score.MaxPoints, score.Percentage),
		})
	}

	rows = append(rows,
		ReportRow{Kind: RowTotal, Label: "Puntaje total", Value: fmt.Sprintf("%d/%d", s.Score.Total, s.Score.MaxPossiblePoints)},
		ReportRow{Kind: RowTotal, Label: "Cumplimiento", Value: fmt.Sprintf("%d%%", s.Score.PercentCompliance)},
		ReportRow{Kind: RowTotal, Label: "Avance", Value: fmt.Sprintf("%d%%", s.Score.PercentComplete)},
	)
	return rows
}
