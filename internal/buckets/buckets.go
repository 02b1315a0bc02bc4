package buckets

import (
	"sort"
	"time"

	"github.com/dotcommander/supervisa/internal/record"
)

// Bucket holds the records that fall into one week or month.
type Bucket struct {
	Key     string              `json:"key"`
	Start   time.Time           `json:"start"`
	Records []record.FormRecord `json:"records"`
}

// Grouping is a sparse, ascending list of buckets. Records whose date could
// not be parsed are listed in Skipped and appear in no bucket.
type Grouping struct {
	Buckets []Bucket
	Skipped []record.FormRecord
}

// WeekStart returns the Monday of the week containing t. Sunday belongs to
// the week that started six days earlier.
func WeekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	weekday := int(day.Weekday())
	if weekday == int(time.Sunday) {
		weekday = 7
	}
	return day.AddDate(0, 0, -(weekday - int(time.Monday)))
}

// WeekKey formats the week start as YYYY-MM-DD.
func WeekKey(t time.Time) string {
	return WeekStart(t).Format("2006-01-02")
}

// MonthStart returns the first day of the month containing t.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// MonthKey formats t as YYYY-MM.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// ByWeek groups records by the Monday of their visit week.
func ByWeek(records []record.FormRecord) Grouping {
	return group(records, WeekStart, WeekKey)
}

// ByMonth groups records by calendar month.
func ByMonth(records []record.FormRecord) Grouping {
	return group(records, MonthStart, MonthKey)
}

func group(records []record.FormRecord, start func(time.Time) time.Time, key func(time.Time) string) Grouping {
	var g Grouping
	index := make(map[string]int)

	for _, r := range records {
		d, ok := r.Date()
		if !ok {
			g.Skipped = append(g.Skipped, r)
			continue
		}
		k := key(d)
		i, found := index[k]
		if !found {
			i = len(g.Buckets)
			index[k] = i
			g.Buckets = append(g.Buckets, Bucket{Key: k, Start: start(d)})
		}
		g.Buckets[i].Records = append(g.Buckets[i].Records, r)
	}

	sort.Slice(g.Buckets, func(i, j int) bool {
		return g.Buckets[i].Start.Before(g.Buckets[j].Start)
	})
	return g
}

// Latest returns the two most recent buckets. ok is false when fewer than
// two buckets exist, in which case no comparison is meaningful.
func (g Grouping) Latest() (previous, current Bucket, ok bool) {
	n := len(g.Buckets)
	if n < 2 {
		return Bucket{}, Bucket{}, false
	}
	return g.Buckets[n-2], g.Buckets[n-1], true
}

// Find returns the bucket with the given key.
func (g Grouping) Find(key string) (Bucket, bool) {
	for _, b := range g.Buckets {
		if b.Key == key {
			return b, true
		}
	}
	return Bucket{}, false
}
