package baseline

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dotcommander/supervisa/internal/alerts"
)

// Baseline is the set of alerts an operator has acknowledged. Acknowledged
// alerts are hidden from later runs until their pattern changes.
type Baseline struct {
	Version      string   `json:"version"`
	CreatedAt    string   `json:"created_at"`
	Fingerprints []string `json:"fingerprints"`
	index        map[string]bool
}

// CreateBaseline acknowledges every alert in the list.
func CreateBaseline(list []alerts.Alert, now time.Time) *Baseline {
	fingerprints := make([]string, 0, len(list))
	index := make(map[string]bool)

	for _, a := range list {
		fp := fingerprint(a)
		if !index[fp] {
			fingerprints = append(fingerprints, fp)
			index[fp] = true
		}
	}

	sort.Strings(fingerprints)

	return &Baseline{
		Version:      "1.0",
		CreatedAt:    now.UTC().Format(time.RFC3339),
		Fingerprints: fingerprints,
		index:        index,
	}
}

// LoadBaseline loads a baseline from a JSON file
func LoadBaseline(path string) (*Baseline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline file: %w", err)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse baseline file: %w", err)
	}

	b.index = make(map[string]bool, len(b.Fingerprints))
	for _, fp := range b.Fingerprints {
		b.index[fp] = true
	}

	return &b, nil
}

// SaveBaseline saves the baseline to a JSON file
func (b *Baseline) SaveBaseline(path string) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal baseline: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write baseline file: %w", err)
	}

	return nil
}

// IsKnown reports whether the alert has been acknowledged.
func (b *Baseline) IsKnown(a alerts.Alert) bool {
	if b == nil || b.index == nil {
		return false
	}
	return b.index[fingerprint(a)]
}

// Filter drops acknowledged alerts and reports how many were suppressed.
func (b *Baseline) Filter(list []alerts.Alert) ([]alerts.Alert, int) {
	kept := make([]alerts.Alert, 0, len(list))
	suppressed := 0
	for _, a := range list {
		if b.IsKnown(a) {
			suppressed++
			continue
		}
		kept = append(kept, a)
	}
	return kept, suppressed
}

// fingerprint hashes rule, subject, message and the normalized detail.
// Dates and figures are masked so a recurring condition at the same site
// stays acknowledged while its numbers move.
func fingerprint(a alerts.Alert) string {
	data := fmt.Sprintf("%s|%s|%s|%s",
		a.Rule,
		strings.ToLower(strings.Join(strings.Fields(a.Subject), " ")),
		normalizeMessage(a.Message),
		normalizeMessage(a.Detail))

	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

var (
	dateRe   = regexp.MustCompile(`\b\d{4}-\d{2}(-\d{2})?\b`)
	numberRe = regexp.MustCompile(`-?\b\d+\b`)
)

// normalizeMessage masks dates and numbers and collapses whitespace.
func normalizeMessage(msg string) string {
	msg = dateRe.ReplaceAllString(msg, "D")
	msg = numberRe.ReplaceAllString(msg, "N")
	return strings.Join(strings.Fields(msg), " ")
}
