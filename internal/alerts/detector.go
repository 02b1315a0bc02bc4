package alerts

import (
	"time"

	"github.com/dotcommander/supervisa/internal/buckets"
	"github.com/dotcommander/supervisa/internal/catalog"
	"github.com/dotcommander/supervisa/internal/metrics"
	"github.com/dotcommander/supervisa/internal/record"
	"github.com/dotcommander/supervisa/internal/scoring"
)

// Thresholds configures when each rule fires. Drops are in percentage points.
type Thresholds struct {
	ContractorWeeklyCritical int `mapstructure:"contractorWeeklyCritical"`

	ComponentWeeklyTrigger   int `mapstructure:"componentWeeklyTrigger"`
	ComponentWeeklyCritical  int `mapstructure:"componentWeeklyCritical"`
	ComponentMonthlyTrigger  int `mapstructure:"componentMonthlyTrigger"`
	ComponentMonthlyCritical int `mapstructure:"componentMonthlyCritical"`

	AttendanceWarningBelow  int `mapstructure:"attendanceWarningBelow"`
	AttendanceCriticalBelow int `mapstructure:"attendanceCriticalBelow"`

	SiteDropTrigger  int `mapstructure:"siteDropTrigger"`
	SiteDropCritical int `mapstructure:"siteDropCritical"`

	LowComplianceWarningBelow  int `mapstructure:"lowComplianceWarningBelow"`
	LowComplianceCriticalBelow int `mapstructure:"lowComplianceCriticalBelow"`

	RecentDays  int `mapstructure:"recentDays"`
	RecentLimit int `mapstructure:"recentLimit"`

	VisitDropCriticalPercent int `mapstructure:"visitDropCriticalPercent"`
}

// DefaultThresholds returns the standard alerting thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ContractorWeeklyCritical:   10,
		ComponentWeeklyTrigger:     5,
		ComponentWeeklyCritical:    10,
		ComponentMonthlyTrigger:    7,
		ComponentMonthlyCritical:   15,
		AttendanceWarningBelow:     30,
		AttendanceCriticalBelow:    20,
		SiteDropTrigger:            5,
		SiteDropCritical:           10,
		LowComplianceWarningBelow:  scoring.ComplianceWarningBelow,
		LowComplianceCriticalBelow: scoring.ComplianceCriticalBelow,
		RecentDays:                 30,
		RecentLimit:                5,
		VisitDropCriticalPercent:   30,
	}
}

// Detector derives alerts from a set of records.
type Detector struct {
	thresholds Thresholds
	catalog    *catalog.Catalog
	now        func() time.Time
}

// Option customizes a Detector.
type Option func(*Detector)

// WithClock sets the time source used for recency windows.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// WithThresholds overrides the default thresholds.
func WithThresholds(t Thresholds) Option {
	return func(d *Detector) { d.thresholds = t }
}

// NewDetector creates a Detector over the given catalog.
func NewDetector(cat *catalog.Catalog, opts ...Option) *Detector {
	d := &Detector{
		thresholds: DefaultThresholds(),
		catalog:    cat,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// input is the shared, precomputed view every rule reads from.
type input struct {
	records    []record.FormRecord
	weeks      buckets.Grouping
	months     buckets.Grouping
	now        time.Time
	thresholds Thresholds
	catalog    *catalog.Catalog
}

// rule is one alert detector. Rules never fail; missing history yields no
// alerts.
type rule struct {
	name   string
	detect func(in *input) []Alert
}

var rules = []rule{
	{RuleContractorWeekly, contractorWeekly},
	{RuleComponentWeekly, componentWeekly},
	{RuleComponentMonthly, componentMonthly},
	{RuleLowAttendance, lowAttendance},
	{RuleSiteDrop, siteDrop},
	{RuleLowCompliance, lowCompliance},
	{RuleZeroScore, zeroScore},
	{RuleVisitFrequency, visitFrequency},
}

// Result is the outcome of one detector run.
type Result struct {
	Alerts []Alert
	// Undated lists finalized records whose visit date could not be parsed.
	// They are left out of every weekly and monthly window.
	Undated []record.FormRecord
}

// Detect runs every rule over the finalized records and returns the
// deduplicated, sorted alert list.
func (d *Detector) Detect(records []record.FormRecord) []Alert {
	return d.Run(records).Alerts
}

// Run is Detect that also reports the records no time window could use.
func (d *Detector) Run(records []record.FormRecord) Result {
	finalized := metrics.Finalized(records)
	in := &input{
		records:    finalized,
		weeks:      buckets.ByWeek(finalized),
		months:     buckets.ByMonth(finalized),
		now:        d.now(),
		thresholds: d.thresholds,
		catalog:    d.catalog,
	}

	var all []Alert
	for _, r := range rules {
		for _, a := range r.detect(in) {
			a.Rule = r.name
			all = append(all, a)
		}
	}

	all = Dedupe(all)
	Sort(all)
	return Result{Alerts: all, Undated: in.weeks.Skipped}
}
