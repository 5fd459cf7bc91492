package frecency

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/runger/texo/internal/storage"
)

// Match returns the entries whose path contains keyword, scored at now and
// sorted best first. An empty keyword matches every entry.
//
// The keyword is a literal: no trimming, no glob or regex interpretation.
// Comparison folds case; the returned paths keep their original casing.
func Match(keyword string, entries []storage.Entry, now time.Time) []Candidate {
	candidates := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		start, end, ok := IndexFold(e.Path, keyword)
		if !ok {
			continue
		}
		candidates = append(candidates, Candidate{
			Entry:      e,
			Score:      Score(e, now),
			MatchStart: start,
			MatchEnd:   end,
		})
	}
	slices.SortFunc(candidates, Compare)
	return candidates
}

// Refine narrows an already ranked candidate list to those whose path also
// contains text, keeping their order. The highlight span is moved to the
// refinement match; an empty text returns the list unchanged.
func Refine(text string, candidates []Candidate) []Candidate {
	if text == "" {
		return candidates
	}
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		start, end, ok := IndexFold(c.Path, text)
		if !ok {
			continue
		}
		c.MatchStart, c.MatchEnd = start, end
		out = append(out, c)
	}
	return out
}

// IndexFold reports the byte span of the first case-insensitive occurrence
// of substr in s. An empty substr matches at 0 with an empty span.
func IndexFold(s, substr string) (start, end int, ok bool) {
	if substr == "" {
		return 0, 0, true
	}
	for i := range s {
		if n, ok := hasPrefixFold(s[i:], substr); ok {
			return i, i + n, true
		}
	}
	return -1, -1, false
}

// hasPrefixFold reports whether s starts with prefix under simple case
// folding, returning the byte length of the matched part of s.
func hasPrefixFold(s, prefix string) (int, bool) {
	n := 0
	for _, pr := range prefix {
		if n >= len(s) {
			return 0, false
		}
		sr, size := utf8.DecodeRuneInString(s[n:])
		if sr != pr && !strings.EqualFold(string(sr), string(pr)) {
			return 0, false
		}
		n += size
	}
	return n, true
}
