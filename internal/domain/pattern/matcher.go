package pattern

import "sort"

// MatchesAny evaluates every rule of rs against text and returns the ids of the rules that
// matched, in catalog order. It never short-circuits. A nil rule set matches nothing.
func MatchesAny(text string, rs *RuleSet) []string {
	if rs == nil || text == "" {
		return nil
	}
	var ids []string
	for _, r := range rs.rules {
		if r.re.MatchString(text) {
			ids = append(ids, r.id)
		}
	}
	return ids
}

// Categories returns the distinct categories of the rules whose ids are given, in
// first-seen order.
func Categories(rs *RuleSet, ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		r, ok := rs.Rule(id)
		if !ok {
			continue
		}
		if _, dup := seen[r.category]; dup {
			continue
		}
		seen[r.category] = struct{}{}
		out = append(out, r.category)
	}
	return out
}

// Span is a half-open byte range [Start, End) of a match.
type Span struct {
	Start  int
	End    int
	RuleID string
}

// FindSpans returns the non-overlapping spans matched by any rule of rs, sorted by start.
// When spans from different rules overlap they are merged into one span attributed to
// the earliest rule.
func FindSpans(text string, rs *RuleSet) []Span {
	if rs == nil || text == "" {
		return nil
	}
	var spans []Span
	for _, r := range rs.rules {
		for _, loc := range r.re.FindAllStringIndex(text, -1) {
			spans = append(spans, Span{Start: loc[0], End: loc[1], RuleID: r.id})
		}
	}
	return MergeSpans(spans)
}

// MergeSpans sorts spans by start and merges overlapping ones.
func MergeSpans(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End > spans[j].End
	})
	merged := []Span{spans[0]}
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.Start < last.End {
			if s.End > last.End {
				last.End = s.End
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}
