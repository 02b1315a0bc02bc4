package form

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dotcommander/supervisa/internal/catalog"
	"github.com/dotcommander/supervisa/internal/record"
	"github.com/dotcommander/supervisa/internal/scoring"
)

// Engine applies events to form state against one catalog.
type Engine struct {
	catalog *catalog.Catalog
}

// NewEngine creates an Engine over cat.
func NewEngine(cat *catalog.Catalog) *Engine {
	return &Engine{catalog: cat}
}

// New returns an empty, scored form for the given selection.
func (e *Engine) New(st catalog.SpaceType, contractor string) State {
	return e.Recompute(State{
		SpaceType:  st,
		Contractor: strings.TrimSpace(contractor),
		Responses:  map[string]scoring.Responses{},
	})
}

// Apply folds ev into s without recomputing scores. The input state is not
// modified.
func (e *Engine) Apply(s State, ev Event) State {
	next := s.Clone()
	if next.Responses == nil {
		next.Responses = map[string]scoring.Responses{}
	}

	switch ev := ev.(type) {
	case SetItem:
		sec, item, ok := e.catalog.Lookup(ev.ItemID)
		if !ok || !item.AppliesTo(e.space(next.SpaceType), next.Contractor) {
			return s
		}
		answers := next.Responses[sec.Title]
		if answers == nil {
			answers = scoring.Responses{}
			next.Responses[sec.Title] = answers
		}
		answers[ev.ItemID] = ev.Value
	case SetSpaceType:
		if ev.SpaceType == next.SpaceType {
			return s
		}
		next.SpaceType = ev.SpaceType
		next.Responses = map[string]scoring.Responses{}
	case SetContractor:
		name := strings.TrimSpace(ev.Name)
		if catalog.SameContractor(name, next.Contractor) {
			return s
		}
		next.Contractor = name
		next.Responses = map[string]scoring.Responses{}
	case SetHeader:
		next.Header = ev.Header
		next.Header.Supervisors = append([]string(nil), ev.Header.Supervisors...)
	case AddAttachment:
		next.Attachments = append(next.Attachments, ev.Attachment)
	case Reset:
		next = State{
			ID:         s.ID,
			CreatedAt:  s.CreatedAt,
			SpaceType:  s.SpaceType,
			Contractor: s.Contractor,
			Responses:  map[string]scoring.Responses{},
		}
	default:
		return s
	}

	next.Version = s.Version + 1
	next.Dirty = true
	return next
}

// Recompute derives every section score and the form score in one pass.
func (e *Engine) Recompute(s State) State {
	next := s.Clone()
	next.Sections, next.Score = scoring.Evaluate(e.catalog, e.space(s.SpaceType), s.Contractor, s.Responses)
	next.Dirty = false
	return next
}

// Reduce applies ev and recomputes the derived scores.
func (e *Engine) Reduce(s State, ev Event) State {
	return e.Recompute(e.Apply(s, ev))
}

// Checklist returns the sections that apply to the form's selection.
func (e *Engine) Checklist(s State) []catalog.Section {
	return e.catalog.Checklist(e.space(s.SpaceType), s.Contractor)
}

func (e *Engine) space(st catalog.SpaceType) catalog.SpaceType {
	if st == "" {
		return catalog.SpaceAll
	}
	return st
}

// Finalize produces the immutable record pushed to the remote store.
// A blank id is replaced by a fresh UUID.
func (e *Engine) Finalize(s State, id string, now time.Time) record.FormRecord {
	r := e.snapshot(s, id, now)
	r.IsAutoSave = false
	return r
}

// Draft produces the autosave record kept in the local store.
func (e *Engine) Draft(s State, id string, now time.Time) record.FormRecord {
	r := e.snapshot(s, id, now)
	r.IsAutoSave = true
	return r
}

func (e *Engine) snapshot(s State, id string, now time.Time) record.FormRecord {
	s = e.Recompute(s)

	if id == "" {
		id = s.ID
	}
	if id == "" {
		id = uuid.NewString()
	}
	stamp := now.UTC().Format(time.RFC3339)
	created := s.CreatedAt
	if created == "" {
		created = stamp
	}

	r := record.FormRecord{
		ID:                id,
		VisitDate:         s.Header.VisitDate,
		VisitTime:         s.Header.VisitTime,
		SiteName:          s.Header.SiteName,
		Contractor:        s.Contractor,
		Attendees:         record.Number(s.Header.Attendees),
		Supervisors:       record.Names(append([]string(nil), s.Header.Supervisors...)),
		SectionScores:     make(map[string]record.SectionSummary),
		Items:             make(map[string]map[string]record.ItemDetail),
		PercentCompliance: record.Number(s.Score.PercentCompliance),
		PointsTotal:       record.Number(s.Score.Total),
		MaxPossiblePoints: record.Number(s.Score.MaxPossiblePoints),
		Attachments:       append([]record.Attachment(nil), s.Attachments...),
		CreatedAt:         created,
		UpdatedAt:         stamp,
		IsComplete:        s.Score.ItemCount > 0 && s.Score.Responded == s.Score.ItemCount,
	}
	if s.SpaceType != catalog.SpaceAll {
		r.SpaceType = string(s.SpaceType)
	}
	if s.Header.Location != nil {
		loc := *s.Header.Location
		r.Location = &loc
	}

	for _, sec := range e.Checklist(s) {
		score := s.Sections[sec.Title]
		r.SectionScores[sec.Title] = record.SectionSummary{
			Total:      record.Number(score.Total),
			MaxPoints:  record.Number(score.MaxPoints),
			Percentage: record.Number(score.Percentage),
			Answered:   record.Number(score.Answered),
			ItemCount:  record.Number(score.ItemCount),
		}
		details := make(map[string]record.ItemDetail, len(sec.Items))
		for _, item := range sec.Items {
			details[item.ID] = record.ItemDetail{
				Value:     s.Value(sec.Title, item.ID),
				MaxValue:  catalog.PointsPerItem,
				Label:     item.Label,
				SpaceType: r.SpaceType,
			}
		}
		r.Items[string(sec.Component)] = details
	}
	return r
}

// Restore rebuilds form state from a stored record, typically a draft.
// Item answers that no longer apply to the record's selection are dropped.
func (e *Engine) Restore(r record.FormRecord) State {
	st, ok := r.Space()
	if !ok {
		st = catalog.SpaceAll
	}
	s := State{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		Header: Header{
			VisitDate:   r.VisitDate,
			VisitTime:   r.VisitTime,
			SiteName:    r.SiteName,
			Attendees:   r.Attendees.Int(),
			Supervisors: append([]string(nil), r.Supervisors...),
		},
		SpaceType:   st,
		Contractor:  r.ContractorName(),
		Responses:   map[string]scoring.Responses{},
		Attachments: append([]record.Attachment(nil), r.Attachments...),
	}
	if r.Location != nil {
		loc := *r.Location
		s.Header.Location = &loc
	}

	for _, details := range r.Items {
		for id, d := range details {
			s = e.Apply(s, SetItem{ItemID: id, Value: d.Value})
		}
	}
	s.Version = 0
	return e.Recompute(s)
}
