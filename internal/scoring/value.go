package scoring

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NotApplicableText is the display and wire form of a deliberate N/A answer.
const NotApplicableText = "N/A"

// ValueKind tags an ItemValue.
type ValueKind int

const (
	// Unanswered means the item has not been answered yet.
	Unanswered ValueKind = iota
	// NotApplicable is a deliberate answer that earns no points and is
	// excluded from point totals.
	NotApplicable
	// Numeric is a scored answer of 0, 50 or 100.
	Numeric
)

func (k ValueKind) String() string {
	switch k {
	case NotApplicable:
		return "not_applicable"
	case Numeric:
		return "numeric"
	default:
		return "unanswered"
	}
}

// ItemValue is the raw selection for one checklist item.
// The zero value is Unanswered.
type ItemValue struct {
	kind   ValueKind
	points int
}

// Points returns a Numeric value. Anything other than 0, 50 or 100 is
// treated as NotApplicable.
func Points(n int) ItemValue {
	if !validPoints(n) {
		return ItemValue{kind: NotApplicable}
	}
	return ItemValue{kind: Numeric, points: n}
}

// NA returns the NotApplicable value.
func NA() ItemValue { return ItemValue{kind: NotApplicable} }

// Unset returns the Unanswered value.
func Unset() ItemValue { return ItemValue{} }

func validPoints(n int) bool {
	return n == 0 || n == 50 || n == 100
}

// Kind reports the value's tag.
func (v ItemValue) Kind() ValueKind { return v.kind }

// Numeric returns the points and true for Numeric values.
func (v ItemValue) Numeric() (int, bool) {
	if v.kind != Numeric {
		return 0, false
	}
	return v.points, true
}

// IsNumeric reports whether the value contributes to point totals.
func (v ItemValue) IsNumeric() bool { return v.kind == Numeric }

// Responded reports whether the item carries a deliberate answer, N/A included.
func (v ItemValue) Responded() bool { return v.kind != Unanswered }

// String is the display text: "0", "50", "100" or "N/A".
func (v ItemValue) String() string {
	if v.kind == Numeric {
		return strconv.Itoa(v.points)
	}
	return NotApplicableText
}

// MarshalJSON encodes Numeric as a number, NotApplicable as "N/A" and
// Unanswered as null.
func (v ItemValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Numeric:
		return []byte(strconv.Itoa(v.points)), nil
	case NotApplicable:
		return []byte(`"N/A"`), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON never fails on unexpected content; it falls back to
// ParseItemValue semantics.
func (v *ItemValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Unset()
		return nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*v = NA()
		return nil
	}
	*v = ParseItemValue(raw)
	return nil
}

// MarshalYAML mirrors MarshalJSON.
func (v ItemValue) MarshalYAML() (any, error) {
	switch v.kind {
	case Numeric:
		return v.points, nil
	case NotApplicable:
		return NotApplicableText, nil
	default:
		return nil, nil
	}
}

// ParseItemValue converts a loosely typed selection into an ItemValue.
func ParseItemValue(raw any) ItemValue {
	switch x := raw.(type) {
	case nil:
		return Unset()
	case ItemValue:
		return x
	case int:
		return Points(x)
	case int64:
		return Points(int(x))
	case float64:
		if x != math.Trunc(x) {
			return NA()
		}
		return Points(int(x))
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return NA()
		}
		return Points(int(n))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return Unset()
		}
		if strings.EqualFold(s, NotApplicableText) {
			return NA()
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return NA()
		}
		return Points(n)
	default:
		return NA()
	}
}

// ItemScore is the scorer output for one item.
type ItemScore struct {
	Value       ItemValue `json:"value"`
	DisplayText string    `json:"displayText"`
}

// ScoreItem scores one raw selection.
func ScoreItem(raw any) ItemScore {
	v := ParseItemValue(raw)
	return ItemScore{Value: v, DisplayText: v.String()}
}
