package search

import "sort"

// Candidate is a stored vector offered for ranking.
type Candidate struct {
	ID     string
	Vector []float32
}

// Match is a ranked candidate. Index is the candidate's position in the
// input slice.
type Match struct {
	ID    string
	Index int
	Score float64
}

// Rank scores every candidate against query by cosine similarity and returns
// at most k matches, best first. Equal scores keep their input order.
// Candidates whose dimension differs from the query are skipped.
func Rank(query []float32, candidates []Candidate, k int) []Match {
	if k <= 0 || len(candidates) == 0 {
		return []Match{}
	}

	matches := make([]Match, 0, len(candidates))
	for i, c := range candidates {
		score, err := Cosine(query, c.Vector)
		if err != nil {
			continue
		}
		matches = append(matches, Match{ID: c.ID, Index: i, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}
