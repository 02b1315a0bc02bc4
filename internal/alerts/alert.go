package alerts

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// Severity classifies an alert.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

func (s Severity) rank() int {
	if s == SeverityCritical {
		return 0
	}
	return 1
}

// Rule names identify which detector produced an alert.
const (
	RuleContractorWeekly = "contractor-weekly"
	RuleComponentWeekly  = "component-weekly"
	RuleComponentMonthly = "component-monthly"
	RuleLowAttendance    = "low-attendance"
	RuleSiteDrop         = "site-drop"
	RuleLowCompliance    = "low-compliance"
	RuleZeroScore        = "zero-score"
	RuleVisitFrequency   = "visit-frequency"
)

// Alert is an advisory signal derived from historical records. Alerts are
// recomputed on every run and never persisted.
type Alert struct {
	Severity Severity `json:"severity"`
	Rule     string   `json:"rule"`
	Subject  string   `json:"subject"`
	Message  string   `json:"message"`
	Detail   string   `json:"detail"`
	Date     string   `json:"date"`
}

// Fingerprint identifies an alert for deduplication and acknowledgement.
func (a Alert) Fingerprint() string {
	data := fmt.Sprintf("%s|%s|%s", strings.TrimSpace(a.Subject), strings.TrimSpace(a.Message), strings.TrimSpace(a.Detail))
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// Dedupe keeps the first alert of every fingerprint.
func Dedupe(alerts []Alert) []Alert {
	seen := make(map[string]bool, len(alerts))
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		fp := a.Fingerprint()
		if seen[fp] {
			continue
		}
		seen[fp] = true
		out = append(out, a)
	}
	return out
}

// Sort orders critical before warning, then newest first.
func Sort(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].Severity.rank() != alerts[j].Severity.rank() {
			return alerts[i].Severity.rank() < alerts[j].Severity.rank()
		}
		return alerts[i].Date > alerts[j].Date
	})
}

// Counts tallies alerts by severity.
func Counts(alerts []Alert) (critical, warning int) {
	for _, a := range alerts {
		if a.Severity == SeverityCritical {
			critical++
		} else {
			warning++
		}
	}
	return critical, warning
}

// capMostSevere sorts and keeps the first n alerts.
func capMostSevere(alerts []Alert, n int) []Alert {
	Sort(alerts)
	if n > 0 && len(alerts) > n {
		return alerts[:n]
	}
	return alerts
}
