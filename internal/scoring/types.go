package scoring

// SectionScore is the aggregate of one checklist section.
type SectionScore struct {
	Total      int `json:"total"`      // sum of numeric answers
	Average    int `json:"average"`    // 0-100, total/answered
	Answered   int `json:"answered"`   // numeric answers only
	Responded  int `json:"responded"`  // numeric and N/A answers
	ItemCount  int `json:"itemCount"`  // catalog items in the section
	MaxPoints  int `json:"maxPoints"`  // itemCount*100
	Percentage int `json:"percentage"` // 0-100, total/maxPoints
	Completion int `json:"completion"` // 0-100, responded/itemCount
}

// FormScore is the aggregate of a whole visit form.
type FormScore struct {
	Total             int  `json:"total"`
	Answered          int  `json:"answered"`
	Responded         int  `json:"responded"`
	Average           int  `json:"average"`
	ItemCount         int  `json:"itemCount"`
	MaxPossiblePoints int  `json:"maxPossiblePoints"`
	PercentComplete   int  `json:"percentComplete"`
	PercentCompliance int  `json:"percentCompliance"`
	Band              Band `json:"band"`
}

// Band classifies a compliance percentage.
type Band string

const (
	BandOK       Band = "ok"
	BandWarning  Band = "warning"
	BandCritical Band = "critical"
)

// Compliance thresholds shared by the form band and the low-compliance alert.
const (
	ComplianceWarningBelow  = 80
	ComplianceCriticalBelow = 60
)

// BandFromCompliance returns the band for a compliance percentage.
func BandFromCompliance(pct int) Band {
	switch {
	case pct >= ComplianceWarningBelow:
		return BandOK
	case pct >= ComplianceCriticalBelow:
		return BandWarning
	default:
		return BandCritical
	}
}
