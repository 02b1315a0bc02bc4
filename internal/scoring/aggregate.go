package scoring

import "github.com/dotcommander/supervisa/internal/catalog"

// Responses holds the answers of one section keyed by item id.
type Responses map[string]ItemValue

// ScoreSection folds the answers of one section against its catalog items.
// Answers for ids that are not in items are ignored.
func ScoreSection(items []catalog.Item, responses Responses) SectionScore {
	score := SectionScore{
		ItemCount: len(items),
		MaxPoints: len(items) * catalog.PointsPerItem,
	}

	for _, item := range items {
		v := responses[item.ID]
		if v.Responded() {
			score.Responded++
		}
		if n, ok := v.Numeric(); ok {
			score.Answered++
			score.Total += n
		}
	}

	score.Average = Ratio(float64(score.Total), float64(score.Answered))
	score.Percentage = Percent(float64(score.Total), float64(score.MaxPoints))
	score.Completion = Percent(float64(score.Responded), float64(score.ItemCount))
	return score
}

// ScoreForm folds section scores into the form score. The denominator comes
// from checklist so untouched sections still count; section scores whose
// title is not part of checklist are ignored.
func ScoreForm(sections map[string]SectionScore, checklist []catalog.Section) FormScore {
	var score FormScore

	for _, sec := range checklist {
		score.ItemCount += len(sec.Items)
		score.MaxPossiblePoints += sec.MaxPoints()

		s, ok := sections[sec.Title]
		if !ok {
			continue
		}
		score.Total += s.Total
		score.Answered += s.Answered
		score.Responded += s.Responded
	}

	score.Average = Ratio(float64(score.Total), float64(score.Answered))
	score.PercentCompliance = Percent(float64(score.Total), float64(score.MaxPossiblePoints))
	score.PercentComplete = Percent(float64(score.Responded), float64(score.ItemCount))
	score.Band = BandFromCompliance(score.PercentCompliance)
	return score
}

// Evaluate scores every section of the applicable checklist in one pass.
// responses is keyed by section title, then item id.
func Evaluate(p catalog.Provider, st catalog.SpaceType, contractor string, responses map[string]Responses) (map[string]SectionScore, FormScore) {
	checklist := p.Checklist(st, contractor)
	sections := make(map[string]SectionScore, len(checklist))
	for _, sec := range checklist {
		sections[sec.Title] = ScoreSection(sec.Items, responses[sec.Title])
	}
	return sections, ScoreForm(sections, checklist)
}
