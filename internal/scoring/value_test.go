package scoring

import (
	"encoding/json"
	"testing"
)

func TestScoreItem(t *testing.T) {
	tests := []struct {
		name     string
		raw      any
		wantKind ValueKind
		wantText string
	}{
		{"zero", 0, Numeric, "0"},
		{"fifty float", float64(50), Numeric, "50"},
		{"hundred string", "100", Numeric, "100"},
		{"json number", json.Number("50"), Numeric, "50"},
		{"na", "N/A", NotApplicable, "N/A"},
		{"na lowercase", "n/a", NotApplicable, "N/A"},
		{"nil", nil, Unanswered, "N/A"},
		{"empty string", "", Unanswered, "N/A"},
		{"out of range", 75, NotApplicable, "N/A"},
		{"fraction", 50.5, NotApplicable, "N/A"},
		{"garbage string", "yes", NotApplicable, "N/A"},
		{"bool", true, NotApplicable, "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreItem(tt.raw)
			if got.Value.Kind() != tt.wantKind {
				t.Errorf("ScoreItem(%v) kind = %v, want %v", tt.raw, got.Value.Kind(), tt.wantKind)
			}
			if got.DisplayText != tt.wantText {
				t.Errorf("ScoreItem(%v) text = %q, want %q", tt.raw, got.DisplayText, tt.wantText)
			}
		})
	}
}

func TestItemValueJSON(t *testing.T) {
	type wrapper struct {
		A ItemValue `json:"a"`
		B ItemValue `json:"b"`
		C ItemValue `json:"c"`
	}

	in := wrapper{A: Points(50), B: NA(), C: Unset()}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"a":50,"b":"N/A","c":null}` {
		t.Errorf("Marshal = %s", data)
	}

	var out wrapper
	if err := json.Unmarshal([]byte(`{"a":"100","b":"n/a","c":{"x":1}}`), &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if n, ok := out.A.Numeric(); !ok || n != 100 {
		t.Errorf("A = %v, want 100", out.A)
	}
	if out.B.Kind() != NotApplicable {
		t.Errorf("B kind = %v, want NotApplicable", out.B.Kind())
	}
	if out.C.Kind() != NotApplicable {
		t.Errorf("C kind = %v, want NotApplicable for malformed input", out.C.Kind())
	}
}

func TestItemValueResponded(t *testing.T) {
	if Unset().Responded() {
		t.Error("Unset should not count as responded")
	}
	if !NA().Responded() {
		t.Error("NA should count as responded")
	}
	if NA().IsNumeric() {
		t.Error("NA should not be numeric")
	}
	if !Points(0).IsNumeric() {
		t.Error("0 should be numeric")
	}
}
