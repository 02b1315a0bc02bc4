package form

import (
	"github.com/dotcommander/supervisa/internal/catalog"
	"github.com/dotcommander/supervisa/internal/record"
	"github.com/dotcommander/supervisa/internal/scoring"
)

// Header holds the visit metadata captured above the checklist.
type Header struct {
	VisitDate   string           `json:"fechaVisita"`
	VisitTime   string           `json:"horaVisita,omitempty"`
	SiteName    string           `json:"nombreEspacio"`
	Attendees   int              `json:"pmAsistentes"`
	Supervisors []string         `json:"apoyoSupervision,omitempty"`
	Location    *record.GeoPoint `json:"ubicacion,omitempty"`
}

// State is a form in progress. Responses are keyed by section title, then
// item id. Sections and Score are derived and only valid after Recompute.
type State struct {
	ID          string
	CreatedAt   string
	Header      Header
	SpaceType   catalog.SpaceType
	Contractor  string
	Responses   map[string]scoring.Responses
	Attachments []record.Attachment

	Sections map[string]scoring.SectionScore
	Score    scoring.FormScore

	// Version increases with every applied event.
	Version uint64
	// Dirty is set when inputs changed after the last recompute.
	Dirty bool
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Header.Supervisors = append([]string(nil), s.Header.Supervisors...)
	if s.Header.Location != nil {
		loc := *s.Header.Location
		out.Header.Location = &loc
	}
	out.Attachments = append([]record.Attachment(nil), s.Attachments...)
	if s.Responses != nil {
		out.Responses = make(map[string]scoring.Responses, len(s.Responses))
		for title, answers := range s.Responses {
			copied := make(scoring.Responses, len(answers))
			for id, v := range answers {
				copied[id] = v
			}
			out.Responses[title] = copied
		}
	}
	if s.Sections != nil {
		out.Sections = make(map[string]scoring.SectionScore, len(s.Sections))
		for title, sec := range s.Sections {
			out.Sections[title] = sec
		}
	}
	return out
}

// Value returns the current answer for an item.
func (s State) Value(sectionTitle, itemID string) scoring.ItemValue {
	return s.Responses[sectionTitle][itemID]
}

// Event is an input to Engine.Apply.
type Event interface {
	event()
}

// SetItem records the answer to one checklist item.
type SetItem struct {
	ItemID string
	Value  scoring.ItemValue
}

// SetSpaceType switches the checklist variant. Existing answers are cleared.
type SetSpaceType struct {
	SpaceType catalog.SpaceType
}

// SetContractor switches the contractor. Existing answers are cleared.
type SetContractor struct {
	Name string
}

// SetHeader replaces the visit metadata.
type SetHeader struct {
	Header Header
}

// AddAttachment references a signature or photo stored elsewhere.
type AddAttachment struct {
	Attachment record.Attachment
}

// Reset clears the header, answers and attachments. The id and the
// space type and contractor selection are kept.
type Reset struct{}

func (SetItem) event()       {}
func (SetSpaceType) event()  {}
func (SetContractor) event() {}
func (SetHeader) event()     {}
func (AddAttachment) event() {}
func (Reset) event()         {}
