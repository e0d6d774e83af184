package domain

import "sort"

// Ranking scores.
const (
	ScoreActiveRelevant = 100
	ScoreRelevant       = 50
	ScoreIrrelevant     = 0
)

// Score rates a record for the dashboard feed using strict matching.
func Score(r OutageRecord, target string) int {
	if !IsRelevant(r, target, MatchStrict) {
		return ScoreIrrelevant
	}
	if ParseStatus(r.Status).Active() {
		return ScoreActiveRelevant
	}
	return ScoreRelevant
}

// Rank returns a new slice ordered by score, then newest CreatedAt first.
// The sort is stable and the input slice is left untouched. With an empty
// target the result is purely reverse-chronological.
func Rank(records []OutageRecord, target string) []OutageRecord {
	type scored struct {
		rec   OutageRecord
		score int
	}
	items := make([]scored, len(records))
	for i, r := range records {
		items[i] = scored{rec: r, score: Score(r, target)}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].rec.CreatedAt.After(items[j].rec.CreatedAt)
	})

	out := make([]OutageRecord, len(items))
	for i, it := range items {
		out[i] = it.rec
	}
	return out
}
