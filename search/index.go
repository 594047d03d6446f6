package search

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	// MinQueryLength is the shortest query that is searched.
	MinQueryLength = 2
	// MaxResults caps the ranked result list.
	MaxResults = 10

	ScoreExact    = 100
	ScorePrefix   = 75
	ScoreContains = 50
	ScoreHaystack = 25
)

// fieldSeparator keeps a query from matching across two adjacent fields.
const fieldSeparator = "\x1f"

// Scored is a ranked result. Locked is set when the session may not open
// the record's target module.
type Scored struct {
	Record Record
	Score  int
	Locked bool
}

type entry struct {
	record   Record
	primary  string
	haystack string
}

// Index is an immutable, ranked view over a corpus. It is safe for
// concurrent use.
type Index struct {
	entries []entry
}

// NewIndex validates records and prepares their normalized fields. Corpus
// order is preserved as the tie-break order.
func NewIndex(records []Record) (*Index, error) {
	seen := make(map[string]struct{}, len(records))
	entries := make([]entry, 0, len(records))
	for i, r := range records {
		if r == nil {
			return nil, fmt.Errorf("search: record %d is nil", i)
		}
		id := r.RecordID()
		if strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("search: record %d has empty id", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("search: duplicate record id %q", id)
		}
		seen[id] = struct{}{}

		primary := Primary(r)
		if strings.TrimSpace(primary) == "" {
			return nil, fmt.Errorf("search: record %q has empty primary field", id)
		}
		if Target(r) == "" {
			return nil, fmt.Errorf("search: record %q has no target module", id)
		}

		entries = append(entries, entry{
			record:   r,
			primary:  normalize(primary),
			haystack: normalize(strings.Join(Fields(r), fieldSeparator)),
		})
	}
	if len(entries) == 0 {
		return nil, errors.New("search: empty corpus")
	}
	return &Index{entries: entries}, nil
}

// Len returns the corpus size.
func (x *Index) Len() int { return len(x.entries) }

// Records returns the corpus in enumeration order.
func (x *Index) Records() []Record {
	out := make([]Record, len(x.entries))
	for i, e := range x.entries {
		out[i] = e.record
	}
	return out
}

// Search ranks the corpus against query. Queries shorter than
// MinQueryLength return nil.
func (x *Index) Search(query string) []Scored {
	q := normalize(query)
	n := utf8.RuneCountInString(q)
	if n < MinQueryLength {
		return nil
	}

	var out []Scored
	for _, e := range x.entries {
		score, ok := rank(e, q, n)
		if !ok {
			continue
		}
		out = append(out, Scored{Record: e.record, Score: score})
	}

	slices.SortStableFunc(out, func(a, b Scored) int {
		return b.Score - a.Score
	})
	if len(out) > MaxResults {
		out = out[:MaxResults]
	}
	return out
}

// Score returns the relevance of r for query and whether r matches at all.
func Score(r Record, query string) (int, bool) {
	q := normalize(query)
	n := utf8.RuneCountInString(q)
	if n < MinQueryLength {
		return 0, false
	}
	e := entry{
		record:   r,
		primary:  normalize(Primary(r)),
		haystack: normalize(strings.Join(Fields(r), fieldSeparator)),
	}
	return rank(e, q, n)
}

func rank(e entry, q string, qlen int) (int, bool) {
	if !strings.Contains(e.haystack, q) {
		return 0, false
	}

	var score int
	switch {
	case e.primary == q:
		score = ScoreExact
	case strings.HasPrefix(e.primary, q):
		score = ScorePrefix
	case strings.Contains(e.primary, q):
		score = ScoreContains
	default:
		score = ScoreHaystack
	}
	return score + max(0, 10-qlen), true
}

// normalize case-folds s and composes it to NFC. A Caser keeps state, so a
// fresh one is used per call.
func normalize(s string) string {
	return norm.NFC.String(cases.Fold().String(s))
}
