package baseline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dotcommander/supervisa/internal/alerts"
)

var now = time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC)

func siteDrop(site, detail string) alerts.Alert {
	return alerts.Alert{
		Severity: alerts.SeverityCritical,
		Rule:     alerts.RuleSiteDrop,
		Subject:  site,
		Message:  "Compliance drop since previous visit",
		Detail:   detail,
		Date:     "2024-03-18",
	}
}

func TestCreateBaseline(t *testing.T) {
	list := []alerts.Alert{
		siteDrop("CDI Pinos", "85% -> 70% (-15 pts), 2024-03-18 vs 2024-03-11"),
		siteDrop("CDI Robles", "90% -> 80% (-10 pts), 2024-03-18 vs 2024-03-11"),
		// Same pattern as the first one
		siteDrop("CDI Pinos", "80% -> 60% (-20 pts), 2024-03-25 vs 2024-03-18"),
	}

	b := CreateBaseline(list, now)

	if b.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", b.Version)
	}
	if b.CreatedAt != "2024-03-31T10:00:00Z" {
		t.Errorf("Unexpected created_at %q", b.CreatedAt)
	}
	if len(b.Fingerprints) != 2 {
		t.Errorf("Expected 2 unique fingerprints, got %d", len(b.Fingerprints))
	}
	if len(b.index) != 2 {
		t.Errorf("Expected index with 2 entries, got %d", len(b.index))
	}
}

func TestIsKnown(t *testing.T) {
	known := siteDrop("CDI Pinos", "85% -> 70% (-15 pts), 2024-03-18 vs 2024-03-11")
	other := alerts.Alert{
		Severity: alerts.SeverityWarning,
		Rule:     alerts.RuleLowAttendance,
		Subject:  "CDI Pinos",
		Message:  "Low attendance",
		Detail:   "25 attendees at latest visit (minimum 30)",
	}

	b := CreateBaseline([]alerts.Alert{known}, now)

	if !b.IsKnown(known) {
		t.Error("Expected acknowledged alert to be known")
	}
	if b.IsKnown(other) {
		t.Error("Expected alert from another rule to be unknown")
	}

	var nilBaseline *Baseline
	if nilBaseline.IsKnown(known) {
		t.Error("Expected nil baseline to know nothing")
	}
}

func TestFilter(t *testing.T) {
	acked := siteDrop("CDI Pinos", "85% -> 70% (-15 pts), 2024-03-18 vs 2024-03-11")
	b := CreateBaseline([]alerts.Alert{acked}, now)

	list := []alerts.Alert{
		siteDrop("cdi  pinos", "70% -> 55% (-15 pts), 2024-03-25 vs 2024-03-18"),
		siteDrop("CDI Robles", "85% -> 70% (-15 pts), 2024-03-18 vs 2024-03-11"),
	}

	kept, suppressed := b.Filter(list)
	if suppressed != 1 {
		t.Errorf("Expected 1 suppressed alert, got %d", suppressed)
	}
	if len(kept) != 1 || kept[0].Subject != "CDI Robles" {
		t.Errorf("Expected only CDI Robles to remain, got %+v", kept)
	}
}

func TestSaveAndLoadBaseline(t *testing.T) {
	tmpDir := t.TempDir()
	baselinePath := filepath.Join(tmpDir, ".supervisabaseline.json")

	list := []alerts.Alert{siteDrop("CDI Pinos", "85% -> 70% (-15 pts), 2024-03-18 vs 2024-03-11")}
	original := CreateBaseline(list, now)

	if err := original.SaveBaseline(baselinePath); err != nil {
		t.Fatalf("Failed to save baseline: %v", err)
	}

	if _, err := os.Stat(baselinePath); err != nil {
		t.Fatalf("Baseline file not created: %v", err)
	}

	loaded, err := LoadBaseline(baselinePath)
	if err != nil {
		t.Fatalf("Failed to load baseline: %v", err)
	}

	if loaded.Version != original.Version {
		t.Errorf("Version mismatch: expected %s, got %s", original.Version, loaded.Version)
	}
	if loaded.CreatedAt != original.CreatedAt {
		t.Errorf("CreatedAt mismatch: expected %s, got %s", original.CreatedAt, loaded.CreatedAt)
	}
	if len(loaded.index) != len(original.Fingerprints) {
		t.Errorf("Index not rebuilt: expected %d entries, got %d",
			len(original.Fingerprints), len(loaded.index))
	}
	if !loaded.IsKnown(list[0]) {
		t.Error("Expected loaded baseline to recognize original alert")
	}
}

func TestNormalizeMessage(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{
			input:    "85% -> 70% (-15 pts), 2024-03-18 vs 2024-03-11",
			expected: "N% -> N% (N pts), D vs D",
		},
		{
			input:    "80% -> 60% (-20 pts), week of 2024-03-11 vs 2024-03-04",
			expected: "N% -> N% (N pts), week of D vs D",
		},
		{
			input:    "Monthly technical drop",
			expected: "Monthly technical drop",
		},
		{
			input:    "90% -> 80%, 2024-03 vs 2024-02",
			expected: "N% -> N%, D vs D",
		},
		{
			input:    "Extra   whitespace   here",
			expected: "Extra whitespace here",
		},
	}

	for _, tt := range tests {
		result := normalizeMessage(tt.input)
		if result != tt.expected {
			t.Errorf("normalizeMessage(%q)\nExpected: %q\nGot:      %q",
				tt.input, tt.expected, result)
		}
	}
}

func TestFingerprintStability(t *testing.T) {
	a := siteDrop("CDI Pinos", "85% -> 70% (-15 pts), 2024-03-18 vs 2024-03-11")
	fp1 := fingerprint(a)

	// Date and severity do not take part
	a.Date = "2024-04-01"
	a.Severity = alerts.SeverityWarning
	if fp1 != fingerprint(a) {
		t.Error("Fingerprint changed when only date or severity changed")
	}

	a.Detail = "80% -> 60% (-20 pts), 2024-03-25 vs 2024-03-18"
	if fp1 != fingerprint(a) {
		t.Error("Fingerprint changed when only figures changed (should normalize)")
	}

	a.Subject = "CDI Robles"
	if fp1 == fingerprint(a) {
		t.Error("Fingerprint didn't change when subject changed")
	}
}

func TestLoadNonexistentBaseline(t *testing.T) {
	_, err := LoadBaseline("/nonexistent/path/.supervisabaseline.json")
	if err == nil {
		t.Error("Expected error when loading nonexistent baseline")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	baselinePath := filepath.Join(tmpDir, ".supervisabaseline.json")

	if err := os.WriteFile(baselinePath, []byte("invalid json"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	_, err := LoadBaseline(baselinePath)
	if err == nil {
		t.Error("Expected error when loading invalid JSON")
	}
}
