package metrics

import (
	"sort"
	"strings"
	"time"

	"github.com/dotcommander/supervisa/internal/catalog"
	"github.com/dotcommander/supervisa/internal/record"
	"github.com/dotcommander/supervisa/internal/scoring"
)

// Filter narrows the records a dashboard run considers. Empty fields and
// "all" disable the corresponding filter.
type Filter struct {
	DateFrom   string `json:"dateFrom,omitempty" mapstructure:"dateFrom"`
	DateTo     string `json:"dateTo,omitempty" mapstructure:"dateTo"`
	SpaceType  string `json:"spaceType,omitempty" mapstructure:"spaceType"`
	Contractor string `json:"contractor,omitempty" mapstructure:"contractor"`
}

// DimensionStat aggregates the visits sharing one dimension value.
type DimensionStat struct {
	Name              string `json:"name"`
	Visits            int    `json:"visits"`
	AverageCompliance int    `json:"averageCompliance"`
	AverageAttendees  int    `json:"averageAttendees"`
}

// ItemStat aggregates the answers to one checklist item.
type ItemStat struct {
	ItemID      string `json:"itemId"`
	Label       string `json:"label"`
	SpaceType   string `json:"spaceType"`
	Average     int    `json:"average"`
	Evaluations int    `json:"evaluations"`
	Zeros       int    `json:"zeros"`
}

// ComponentStat aggregates one evaluation component across records.
type ComponentStat struct {
	Component         catalog.Component `json:"component"`
	Records           int               `json:"records"`
	AveragePercentage int               `json:"averagePercentage"`
	EarnedPoints      int               `json:"earnedPoints"`
	PossiblePoints    int               `json:"possiblePoints"`
	Percentage        int               `json:"percentage"`
	Items             []ItemStat        `json:"items"`
}

// Metrics is the dashboard payload. Field names are stable across runs.
type Metrics struct {
	TotalVisits       int             `json:"totalVisits"`
	AverageCompliance int             `json:"averageCompliance"`
	TotalAttendees    int             `json:"totalAttendees"`
	AverageAttendees  int             `json:"averageAttendees"`
	ByContractor      []DimensionStat `json:"byContractor"`
	BySpaceType       []DimensionStat `json:"bySpaceType"`
	ByDate            []DimensionStat `json:"byDate"`
	BySupervisor      []DimensionStat `json:"bySupervisor"`
	Components        []ComponentStat `json:"components"`
}

// Finalized drops autosaved drafts, which never count toward analytics.
func Finalized(records []record.FormRecord) []record.FormRecord {
	out := make([]record.FormRecord, 0, len(records))
	for _, r := range records {
		if !r.IsAutoSave {
			out = append(out, r)
		}
	}
	return out
}

// Apply returns the finalized records that pass the filter. Records without a
// parseable date are excluded only when a date bound is set.
func Apply(records []record.FormRecord, f Filter) []record.FormRecord {
	from, hasFrom := record.ParseDate(f.DateFrom)
	to, hasTo := record.ParseDate(f.DateTo)
	space, _ := catalog.ParseSpaceType(f.SpaceType)
	contractor := strings.TrimSpace(f.Contractor)
	allContractors := contractor == "" || strings.EqualFold(contractor, "all")

	out := make([]record.FormRecord, 0, len(records))
	for _, r := range Finalized(records) {
		if hasFrom || hasTo {
			d, ok := r.Date()
			if !ok || (hasFrom && d.Before(from)) || (hasTo && d.After(to)) {
				continue
			}
		}
		if space != "" && space != catalog.SpaceAll {
			st, ok := r.Space()
			if !ok || st != space {
				continue
			}
		}
		if !allContractors && !catalog.SameContractor(r.Contractor, contractor) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// accumulator collects the running sums of one dimension value.
type accumulator struct {
	name       string
	visits     int
	compliance float64
	attendees  float64
}

func (a *accumulator) add(r record.FormRecord) {
	a.visits++
	a.compliance += float64(r.PercentCompliance)
	a.attendees += float64(r.Attendees)
}

func (a *accumulator) stat() DimensionStat {
	return DimensionStat{
		Name:              a.name,
		Visits:            a.visits,
		AverageCompliance: scoring.Ratio(a.compliance, float64(a.visits)),
		AverageAttendees:  scoring.Ratio(a.attendees, float64(a.visits)),
	}
}

// dimension groups accumulators by a normalized key, keeping the first
// spelling seen as the display name.
type dimension struct {
	order []string
	byKey map[string]*accumulator
}

func newDimension() *dimension {
	return &dimension{byKey: make(map[string]*accumulator)}
}

func (d *dimension) add(name string, r record.FormRecord) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	key := strings.ToLower(name)
	acc, ok := d.byKey[key]
	if !ok {
		acc = &accumulator{name: name}
		d.byKey[key] = acc
		d.order = append(d.order, key)
	}
	acc.add(r)
}

func (d *dimension) stats() []DimensionStat {
	out := make([]DimensionStat, 0, len(d.order))
	for _, key := range d.order {
		out = append(out, d.byKey[key].stat())
	}
	return out
}

// Compute filters the records and builds every dashboard aggregate. It holds
// no state between calls, so overlapping runs are independent.
func Compute(records []record.FormRecord, f Filter, cat *catalog.Catalog) Metrics {
	selected := Apply(records, f)

	m := Metrics{
		ByContractor: []DimensionStat{},
		BySpaceType:  []DimensionStat{},
		ByDate:       []DimensionStat{},
		BySupervisor: []DimensionStat{},
	}

	contractors := newDimension()
	spaces := newDimension()
	dates := newDimension()
	supervisors := newDimension()

	var complianceSum, attendeeSum float64
	for _, r := range selected {
		m.TotalVisits++
		complianceSum += float64(r.PercentCompliance)
		attendeeSum += float64(r.Attendees)

		contractors.add(r.Contractor, r)
		if st, ok := r.Space(); ok {
			spaces.add(string(st), r)
		}
		if d, ok := r.Date(); ok {
			dates.add(d.Format("2006-01-02"), r)
		}
		for _, name := range r.Supervisors {
			supervisors.add(name, r)
		}
	}

	m.AverageCompliance = scoring.Ratio(complianceSum, float64(m.TotalVisits))
	m.TotalAttendees = scoring.Round(attendeeSum)
	m.AverageAttendees = scoring.Ratio(attendeeSum, float64(m.TotalVisits))

	m.ByContractor = rankByCompliance(contractors.stats())
	m.BySupervisor = rankByCompliance(supervisors.stats())
	m.BySpaceType = spaces.stats()
	sort.SliceStable(m.BySpaceType, func(i, j int) bool {
		return m.BySpaceType[i].Name < m.BySpaceType[j].Name
	})
	m.ByDate = dates.stats()
	sort.SliceStable(m.ByDate, func(i, j int) bool {
		return m.ByDate[i].Name < m.ByDate[j].Name
	})

	m.Components = ComponentStats(selected, cat)
	return m
}

// rankByCompliance sorts descending by average compliance, then by visits,
// then by name so ties are deterministic.
func rankByCompliance(stats []DimensionStat) []DimensionStat {
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].AverageCompliance != stats[j].AverageCompliance {
			return stats[i].AverageCompliance > stats[j].AverageCompliance
		}
		if stats[i].Visits != stats[j].Visits {
			return stats[i].Visits > stats[j].Visits
		}
		return stats[i].Name < stats[j].Name
	})
	return stats
}

// ComponentStats aggregates each component across records. The percentage is
// taken from accumulated points so forms with more possible points weigh
// more; AveragePercentage is the plain mean of per-record percentages.
func ComponentStats(records []record.FormRecord, cat *catalog.Catalog) []ComponentStat {
	out := make([]ComponentStat, 0, len(catalog.Components))
	for _, comp := range catalog.Components {
		stat := ComponentStat{Component: comp, Items: []ItemStat{}}
		var earned, possible, pctSum float64

		for _, r := range records {
			e, p, ok := r.ComponentPoints(cat, comp)
			if !ok {
				continue
			}
			stat.Records++
			earned += e
			possible += p
			pctSum += float64(scoring.Percent(e, p))
		}

		stat.EarnedPoints = scoring.Round(earned)
		stat.PossiblePoints = scoring.Round(possible)
		stat.Percentage = scoring.Percent(earned, possible)
		stat.AveragePercentage = scoring.Ratio(pctSum, float64(stat.Records))
		stat.Items = itemStats(records, cat, comp)
		out = append(out, stat)
	}
	return out
}

type itemKey struct {
	id    string
	space string
}

type itemAcc struct {
	label string
	sum   float64
	count int
	zeros int
}

// itemStats groups item answers by item and applicability. Applicability is
// the item's own tag, the catalog definition when the item is restricted to
// one space type, or the owning record's space type.
func itemStats(records []record.FormRecord, cat *catalog.Catalog, comp catalog.Component) []ItemStat {
	accs := make(map[itemKey]*itemAcc)
	var keys []itemKey

	for _, r := range records {
		r = r.Backfill()
		for id, d := range r.Items[string(comp)] {
			n, ok := d.Value.Numeric()
			if !ok {
				continue
			}
			k := itemKey{id: id, space: applicability(cat, id, d)}
			acc, found := accs[k]
			if !found {
				acc = &itemAcc{label: d.Label}
				if acc.label == "" {
					if _, item, ok := cat.Lookup(id); ok {
						acc.label = item.Label
					}
				}
				accs[k] = acc
				keys = append(keys, k)
			}
			acc.sum += float64(n)
			acc.count++
			if n == 0 {
				acc.zeros++
			}
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].id != keys[j].id {
			return keys[i].id < keys[j].id
		}
		return keys[i].space < keys[j].space
	})

	out := make([]ItemStat, 0, len(keys))
	for _, k := range keys {
		acc := accs[k]
		out = append(out, ItemStat{
			ItemID:      k.id,
			Label:       acc.label,
			SpaceType:   k.space,
			Average:     scoring.Ratio(acc.sum, float64(acc.count)),
			Evaluations: acc.count,
			Zeros:       acc.zeros,
		})
	}
	return out
}

func applicability(cat *catalog.Catalog, id string, d record.ItemDetail) string {
	if st, ok := catalog.ParseSpaceType(d.SpaceType); ok && st != catalog.SpaceAll {
		return string(st)
	}
	if _, item, ok := cat.Lookup(id); ok && len(item.SpaceTypes) == 1 {
		return string(item.SpaceTypes[0])
	}
	return string(catalog.SpaceAll)
}

// Window returns the records dated within [now-days, now].
func Window(records []record.FormRecord, now time.Time, days int) []record.FormRecord {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	since := today.AddDate(0, 0, -days)
	var out []record.FormRecord
	for _, r := range records {
		d, ok := r.Date()
		if !ok || d.Before(since) || d.After(today) {
			continue
		}
		out = append(out, r)
	}
	return out
}
