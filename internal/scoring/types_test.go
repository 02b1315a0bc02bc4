package scoring

import (
	"testing"
)

func TestBandFromCompliance(t *testing.T) {
	tests := []struct {
		name     string
		pct      int
		wantBand Band
	}{
		{"ok - perfect", 100, BandOK},
		{"ok - exact boundary", 80, BandOK},
		{"warning - just below ok", 79, BandWarning},
		{"warning - exact boundary", 60, BandWarning},
		{"critical - just below warning", 59, BandCritical},
		{"critical - zero", 0, BandCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BandFromCompliance(tt.pct)
			if got != tt.wantBand {
				t.Errorf("BandFromCompliance(%d) = %q, want %q", tt.pct, got, tt.wantBand)
			}
		})
	}
}
