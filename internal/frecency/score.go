// Package frecency ranks tracked files by a blend of how often and how
// recently they were opened, and narrows them to the ones matching a keyword.
//
// Scores are never stored: they depend on the current time, so they are
// derived from an entry's visit count and last access at query time.
package frecency

import (
	"time"

	"github.com/runger/texo/internal/storage"
)

// Age bucket boundaries.
const (
	Hour = time.Hour
	Day  = 24 * time.Hour
	Week = 7 * Day
)

// Bucket multipliers applied to the visit count.
const (
	weightHour  = 4.0
	weightDay   = 2.0
	weightWeek  = 0.5
	weightOlder = 0.25
)

// Score returns the frecency score of e at time now.
//
//	age < 1h   count * 4
//	age < 1d   count * 2
//	age < 1w   count * 0.5
//	otherwise  count * 0.25
//
// An entry accessed "in the future" (clock skew between processes) counts
// as age zero.
func Score(e storage.Entry, now time.Time) float64 {
	return float64(e.VisitCount) * weight(now.Sub(e.LastAccessed))
}

func weight(age time.Duration) float64 {
	switch {
	case age < Hour:
		return weightHour
	case age < Day:
		return weightDay
	case age < Week:
		return weightWeek
	default:
		return weightOlder
	}
}

// Candidate is an entry scored for one query.
type Candidate struct {
	storage.Entry
	Score float64

	// MatchStart and MatchEnd are byte offsets of the keyword inside Path.
	// Both are zero for an empty keyword.
	MatchStart int
	MatchEnd   int
}

// Less reports whether a ranks before b: higher score first, then more
// recent access, then path in ascending byte order.
func Less(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.LastAccessed.Equal(b.LastAccessed) {
		return a.LastAccessed.After(b.LastAccessed)
	}
	return a.Path < b.Path
}

// Compare is Less as a three-way comparison for slices.SortFunc.
func Compare(a, b Candidate) int {
	switch {
	case Less(a, b):
		return -1
	case Less(b, a):
		return 1
	default:
		return 0
	}
}
