package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dotcommander/supervisa/internal/catalog"
	"github.com/dotcommander/supervisa/internal/scoring"
)

// Number decodes from a JSON number or numeric string. Anything else
// decodes to zero instead of failing the whole record.
type Number float64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*n = 0
		return nil
	}
	switch x := raw.(type) {
	case float64:
		*n = Number(x)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(x), "%")), 64)
		if err != nil {
			f = 0
		}
		*n = Number(f)
	default:
		*n = 0
	}
	return nil
}

// Int rounds to the nearest integer.
func (n Number) Int() int { return scoring.Round(float64(n)) }

// Names decodes from a list of strings or a single comma separated string.
type Names []string

// UnmarshalJSON implements json.Unmarshaler.
func (n *Names) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*n = nil
		return nil
	}
	var out Names
	switch x := raw.(type) {
	case string:
		for _, part := range strings.Split(x, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	case []any:
		for _, v := range x {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	*n = out
	return nil
}

// SectionSummary is the persisted score of one section.
type SectionSummary struct {
	Total      Number `json:"total"`
	MaxPoints  Number `json:"maxPoints"`
	Percentage Number `json:"percentage"`
	Answered   Number `json:"answered"`
	ItemCount  Number `json:"itemCount"`
}

// ItemDetail is the persisted answer of one item.
type ItemDetail struct {
	Value    scoring.ItemValue `json:"value"`
	MaxValue Number            `json:"maxValue"`
	Label    string            `json:"label"`
	// SpaceType is the applicability of the item. Older records omit it;
	// Backfill assigns it from the owning record.
	SpaceType string `json:"tipoEspacio,omitempty"`
}

// Attachment references a signature or photo stored outside the record.
type Attachment struct {
	Kind string `json:"kind"`
	Ref  string `json:"ref"`
}

// GeoPoint is the location captured during the visit.
type GeoPoint struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy,omitempty"`
}

// FormRecord is one supervision visit as stored locally or remotely.
// Fields not modelled here are preserved in Extra and written back unchanged.
type FormRecord struct {
	ID                string                           `json:"id,omitempty"`
	VisitDate         string                           `json:"fechaVisita"`
	VisitTime         string                           `json:"horaVisita,omitempty"`
	SiteName          string                           `json:"nombreEspacio"`
	Contractor        string                           `json:"contratista"`
	Attendees         Number                           `json:"pmAsistentes"`
	Supervisors       Names                            `json:"apoyoSupervision,omitempty"`
	SpaceType         string                           `json:"tipoEspacio"`
	SectionScores     map[string]SectionSummary        `json:"sectionScores,omitempty"`
	Items             map[string]map[string]ItemDetail `json:"items,omitempty"`
	PercentCompliance Number                           `json:"percentCompliance"`
	PointsTotal       Number                           `json:"pointsTotal"`
	MaxPossiblePoints Number                           `json:"maxPossiblePoints,omitempty"`
	Attachments       []Attachment                     `json:"attachments,omitempty"`
	Location          *GeoPoint                        `json:"ubicacion,omitempty"`
	CreatedAt         string                           `json:"createdAt,omitempty"`
	UpdatedAt         string                           `json:"updatedAt,omitempty"`
	IsAutoSave        bool                             `json:"isAutoSave"`
	IsComplete        bool                             `json:"isComplete"`

	Extra map[string]json.RawMessage `json:"-"`
}

// knownFields lists the JSON keys owned by FormRecord.
var knownFields = []string{
	"id", "fechaVisita", "horaVisita", "nombreEspacio", "contratista",
	"pmAsistentes", "apoyoSupervision", "tipoEspacio", "sectionScores", "items",
	"percentCompliance", "pointsTotal", "maxPossiblePoints", "attachments",
	"ubicacion", "createdAt", "updatedAt", "isAutoSave", "isComplete",
}

type plainRecord FormRecord

// UnmarshalJSON decodes the known fields and keeps the rest in Extra.
func (r *FormRecord) UnmarshalJSON(data []byte) error {
	var plain plainRecord
	if err := json.Unmarshal(data, &plain); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range knownFields {
		delete(all, k)
	}
	if len(all) > 0 {
		plain.Extra = all
	} else {
		plain.Extra = nil
	}

	*r = FormRecord(plain)
	return nil
}

// MarshalJSON writes the known fields merged with Extra. Known fields win.
func (r FormRecord) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(plainRecord(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return known, nil
	}

	merged := make(map[string]json.RawMessage, len(r.Extra)+len(knownFields))
	for k, v := range r.Extra {
		merged[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(merged); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006",
}

// ParseDate parses a visit date. Only the calendar day is kept.
func ParseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// Date returns the visit day.
func (r FormRecord) Date() (time.Time, bool) {
	return ParseDate(r.VisitDate)
}

// Space returns the canonical space type. It is false when the record has
// no usable space type.
func (r FormRecord) Space() (catalog.SpaceType, bool) {
	st, ok := catalog.ParseSpaceType(r.SpaceType)
	if !ok || st == catalog.SpaceAll {
		return "", false
	}
	return st, true
}

// SiteKey identifies the site across visits.
func (r FormRecord) SiteKey() string {
	return strings.ToLower(strings.Join(strings.Fields(r.SiteName), " "))
}

// ContractorName returns the trimmed contractor name.
func (r FormRecord) ContractorName() string {
	return strings.TrimSpace(r.Contractor)
}

// Label is a short human identifier used in messages.
func (r FormRecord) Label() string {
	switch {
	case r.SiteName != "" && r.VisitDate != "":
		return fmt.Sprintf("%s (%s)", strings.TrimSpace(r.SiteName), r.VisitDate)
	case r.SiteName != "":
		return strings.TrimSpace(r.SiteName)
	case r.ID != "":
		return r.ID
	default:
		return "unnamed record"
	}
}

// ComponentPoints returns the earned and possible points the record reports
// for a component. Section scores are preferred; item details are the
// fallback for records that only carry per-item answers. When several
// section keys name the same component, the first in sorted order wins.
func (r FormRecord) ComponentPoints(cat *catalog.Catalog, comp catalog.Component) (earned, possible float64, ok bool) {
	keys := make([]string, 0, len(r.SectionScores))
	for key := range r.SectionScores {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		sec := r.SectionScores[key]
		c, found := cat.ComponentFor(key)
		if !found || c != comp {
			continue
		}
		if float64(sec.MaxPoints) > 0 {
			return float64(sec.Total), float64(sec.MaxPoints), true
		}
	}

	details, found := r.Items[string(comp)]
	if !found {
		return 0, 0, false
	}
	for _, d := range details {
		n, numeric := d.Value.Numeric()
		if !numeric {
			continue
		}
		max := float64(d.MaxValue)
		if max <= 0 {
			max = catalog.PointsPerItem
		}
		earned += float64(n)
		possible += max
	}
	return earned, possible, possible > 0
}

// Backfill returns a copy of the record where every item detail without an
// explicit space type inherits the record's own space type.
func (r FormRecord) Backfill() FormRecord {
	st, ok := r.Space()
	if !ok || len(r.Items) == 0 {
		return r
	}
	items := make(map[string]map[string]ItemDetail, len(r.Items))
	for comp, details := range r.Items {
		copied := make(map[string]ItemDetail, len(details))
		for id, d := range details {
			if strings.TrimSpace(d.SpaceType) == "" {
				d.SpaceType = string(st)
			}
			copied[id] = d
		}
		items[comp] = copied
	}
	r.Items = items
	return r
}
