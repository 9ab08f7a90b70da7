package lexer

import (
	"sort"

	"github.com/tbenton/vscode-cfml/internal/types"
)

// span is a half-open byte span used while scanning
type span struct {
	start, end int
}

// mergeSpans sorts spans and joins overlapping ones. Touching spans stay apart.
func mergeSpans(spans []span) []span {
	if len(spans) < 2 {
		return spans
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end < spans[j].end
	})

	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.start < last.end {
			if s.end > last.end {
				last.end = s.end
			}
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

func toRanges(doc *types.Document, spans []span) []types.Range {
	if len(spans) == 0 {
		return nil
	}
	ranges := make([]types.Range, len(spans))
	for i, s := range spans {
		ranges[i] = doc.RangeOf(s.start, s.end)
	}
	return ranges
}

// MergeRanges returns ranges sorted by start with overlapping ranges joined
func MergeRanges(ranges []types.Range) []types.Range {
	if len(ranges) == 0 {
		return nil
	}
	sorted := make([]types.Range, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		if c := sorted[i].Start.Compare(sorted[j].Start); c != 0 {
			return c < 0
		}
		return sorted[i].End.Before(sorted[j].End)
	})

	merged := sorted[:1]
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if r.Start.Before(last.End) {
			if r.End.After(last.End) {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// InvertRanges returns the parts of the document not covered by ranges.
// Empty gaps are omitted.
func InvertRanges(doc *types.Document, ranges []types.Range) []types.Range {
	end := doc.PositionAt(doc.Len())
	var inverted []types.Range
	cursor := types.Position{}
	for _, r := range MergeRanges(ranges) {
		if cursor.Before(r.Start) {
			inverted = append(inverted, types.Range{Start: cursor, End: r.Start})
		}
		if r.End.After(cursor) {
			cursor = r.End
		}
	}
	if cursor.Before(end) {
		inverted = append(inverted, types.Range{Start: cursor, End: end})
	}
	return inverted
}

// RangesContain reports whether any range contains pos, boundaries included
func RangesContain(ranges []types.Range, pos types.Position) bool {
	for _, r := range ranges {
		if r.Contains(pos) {
			return true
		}
	}
	return false
}
