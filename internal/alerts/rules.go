package alerts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dotcommander/supervisa/internal/buckets"
	"github.com/dotcommander/supervisa/internal/catalog"
	"github.com/dotcommander/supervisa/internal/metrics"
	"github.com/dotcommander/supervisa/internal/record"
	"github.com/dotcommander/supervisa/internal/scoring"
)

// latestDate returns the newest visit date among records, or fallback.
func latestDate(records []record.FormRecord, fallback string) string {
	latest := ""
	for _, r := range records {
		if d, ok := r.Date(); ok {
			if s := d.Format("2006-01-02"); s > latest {
				latest = s
			}
		}
	}
	if latest == "" {
		return fallback
	}
	return latest
}

func ofContractor(records []record.FormRecord, name string) []record.FormRecord {
	var out []record.FormRecord
	for _, r := range records {
		if catalog.SameContractor(r.Contractor, name) {
			out = append(out, r)
		}
	}
	return out
}

func contractorWeekly(in *input) []Alert {
	prev, cur, ok := in.weeks.Latest()
	if !ok {
		return nil
	}

	prevStats := make(map[string]metrics.DimensionStat)
	for _, s := range metrics.Compute(prev.Records, metrics.Filter{}, in.catalog).ByContractor {
		prevStats[strings.ToLower(s.Name)] = s
	}

	var out []Alert
	for _, s := range metrics.Compute(cur.Records, metrics.Filter{}, in.catalog).ByContractor {
		p, found := prevStats[strings.ToLower(s.Name)]
		if !found {
			continue
		}
		drop := p.AverageCompliance - s.AverageCompliance
		if drop <= 0 {
			continue
		}
		severity := SeverityWarning
		if drop >= in.thresholds.ContractorWeeklyCritical {
			severity = SeverityCritical
		}
		out = append(out, Alert{
			Severity: severity,
			Subject:  s.Name,
			Message:  "Weekly compliance drop",
			Detail: fmt.Sprintf("%d%% -> %d%% (-%d pts), week of %s vs %s",
				p.AverageCompliance, s.AverageCompliance, drop, cur.Key, prev.Key),
			Date: latestDate(ofContractor(cur.Records, s.Name), cur.Key),
		})
	}
	return out
}

func componentWeekly(in *input) []Alert {
	return componentDrops(in, in.weeks, "Weekly", in.thresholds.ComponentWeeklyTrigger, in.thresholds.ComponentWeeklyCritical)
}

func componentMonthly(in *input) []Alert {
	return componentDrops(in, in.months, "Monthly", in.thresholds.ComponentMonthlyTrigger, in.thresholds.ComponentMonthlyCritical)
}

// componentDrops compares each contractor's component percentages between
// the two most recent buckets of g.
func componentDrops(in *input, g buckets.Grouping, period string, trigger, critical int) []Alert {
	prev, cur, ok := g.Latest()
	if !ok {
		return nil
	}

	var out []Alert
	for _, c := range metrics.Compute(cur.Records, metrics.Filter{}, in.catalog).ByContractor {
		curRecords := ofContractor(cur.Records, c.Name)
		prevRecords := ofContractor(prev.Records, c.Name)
		if len(prevRecords) == 0 {
			continue
		}

		curStats := metrics.ComponentStats(curRecords, in.catalog)
		prevStats := metrics.ComponentStats(prevRecords, in.catalog)
		for i := range curStats {
			p, n := prevStats[i], curStats[i]
			if p.Records == 0 || n.Records == 0 || p.Percentage == 0 {
				continue
			}
			drop := p.Percentage - n.Percentage
			if drop <= trigger {
				continue
			}
			severity := SeverityWarning
			if drop >= critical {
				severity = SeverityCritical
			}
			out = append(out, Alert{
				Severity: severity,
				Subject:  c.Name,
				Message:  fmt.Sprintf("%s %s drop", period, n.Component),
				Detail: fmt.Sprintf("%d%% -> %d%% (-%d pts), %s vs %s",
					p.Percentage, n.Percentage, drop, cur.Key, prev.Key),
				Date: latestDate(curRecords, cur.Key),
			})
		}
	}
	return out
}

// visitsBySite groups dated records by site, oldest first. Visits on the
// same day keep their input order.
func visitsBySite(records []record.FormRecord) ([]string, map[string][]record.FormRecord) {
	sites := make(map[string][]record.FormRecord)
	var order []string
	for _, r := range records {
		if _, ok := r.Date(); !ok || r.SiteKey() == "" {
			continue
		}
		k := r.SiteKey()
		if _, seen := sites[k]; !seen {
			order = append(order, k)
		}
		sites[k] = append(sites[k], r)
	}
	for _, k := range order {
		visits := sites[k]
		sort.SliceStable(visits, func(i, j int) bool {
			di, _ := visits[i].Date()
			dj, _ := visits[j].Date()
			return di.Before(dj)
		})
	}
	return order, sites
}

func lowAttendance(in *input) []Alert {
	order, sites := visitsBySite(in.records)

	var out []Alert
	for _, k := range order {
		visits := sites[k]
		latest := visits[len(visits)-1]
		if st, ok := latest.Space(); !ok || st != catalog.SpaceCommunity {
			continue
		}
		attendees := latest.Attendees.Int()
		var severity Severity
		switch {
		case attendees < in.thresholds.AttendanceCriticalBelow:
			severity = SeverityCritical
		case attendees < in.thresholds.AttendanceWarningBelow:
			severity = SeverityWarning
		default:
			continue
		}
		out = append(out, Alert{
			Severity: severity,
			Subject:  strings.TrimSpace(latest.SiteName),
			Message:  "Low attendance",
			Detail:   fmt.Sprintf("%d attendees at latest visit (minimum %d)", attendees, in.thresholds.AttendanceWarningBelow),
			Date:     latest.VisitDate,
		})
	}
	return out
}

func siteDrop(in *input) []Alert {
	order, sites := visitsBySite(in.records)

	var out []Alert
	for _, k := range order {
		visits := sites[k]
		if len(visits) < 2 {
			continue
		}
		prev, cur := visits[len(visits)-2], visits[len(visits)-1]
		p, c := prev.PercentCompliance.Int(), cur.PercentCompliance.Int()
		drop := p - c
		if drop <= in.thresholds.SiteDropTrigger {
			continue
		}
		severity := SeverityWarning
		if drop >= in.thresholds.SiteDropCritical {
			severity = SeverityCritical
		}
		out = append(out, Alert{
			Severity: severity,
			Subject:  strings.TrimSpace(cur.SiteName),
			Message:  "Compliance drop since previous visit",
			Detail:   fmt.Sprintf("%d%% -> %d%% (-%d pts), %s vs %s", p, c, drop, cur.VisitDate, prev.VisitDate),
			Date:     cur.VisitDate,
		})
	}
	return out
}

func lowCompliance(in *input) []Alert {
	var out []Alert
	for _, r := range metrics.Window(in.records, in.now, in.thresholds.RecentDays) {
		pct := r.PercentCompliance.Int()
		var severity Severity
		switch {
		case pct < in.thresholds.LowComplianceCriticalBelow:
			severity = SeverityCritical
		case pct < in.thresholds.LowComplianceWarningBelow:
			severity = SeverityWarning
		default:
			continue
		}
		out = append(out, Alert{
			Severity: severity,
			Subject:  strings.TrimSpace(r.SiteName),
			Message:  "Low compliance visit",
			Detail:   fmt.Sprintf("%d%% compliance (%s)", pct, r.ContractorName()),
			Date:     r.VisitDate,
		})
	}
	return capMostSevere(out, in.thresholds.RecentLimit)
}

func zeroScore(in *input) []Alert {
	var out []Alert
	for _, r := range metrics.Window(in.records, in.now, in.thresholds.RecentDays) {
		comps := make([]string, 0, len(r.Items))
		for comp := range r.Items {
			comps = append(comps, comp)
		}
		sort.Strings(comps)

		for _, comp := range comps {
			ids := make([]string, 0, len(r.Items[comp]))
			for id := range r.Items[comp] {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			for _, id := range ids {
				d := r.Items[comp][id]
				if n, ok := d.Value.Numeric(); !ok || n != 0 {
					continue
				}
				label := d.Label
				if label == "" {
					label = id
					if _, item, ok := in.catalog.Lookup(id); ok {
						label = item.Label
					}
				}
				out = append(out, Alert{
					Severity: SeverityCritical,
					Subject:  strings.TrimSpace(r.SiteName),
					Message:  "Item scored zero",
					Detail:   fmt.Sprintf("%s: %s", comp, label),
					Date:     r.VisitDate,
				})
			}
		}
	}
	return capMostSevere(out, in.thresholds.RecentLimit)
}

func visitFrequency(in *input) []Alert {
	curKey := buckets.WeekKey(in.now)
	prevKey := buckets.WeekKey(in.now.AddDate(0, 0, -7))

	prev, ok := in.weeks.Find(prevKey)
	if !ok || len(prev.Records) == 0 {
		return nil
	}
	cur, _ := in.weeks.Find(curKey)

	prevCount, curCount := len(prev.Records), len(cur.Records)
	if curCount >= prevCount {
		return nil
	}

	drop := prevCount - curCount
	pct := scoring.Percent(float64(drop), float64(prevCount))
	severity := SeverityWarning
	if pct >= in.thresholds.VisitDropCriticalPercent {
		severity = SeverityCritical
	}
	return []Alert{{
		Severity: severity,
		Subject:  "Visits",
		Message:  "Fewer visits than last week",
		Detail:   fmt.Sprintf("%d -> %d visits (-%d, -%d%%), week of %s", prevCount, curCount, drop, pct, curKey),
		Date:     curKey,
	}}
}
