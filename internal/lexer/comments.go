package lexer

import (
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/tbenton/vscode-cfml/internal/debug"
	"github.com/tbenton/vscode-cfml/internal/tags"
	"github.com/tbenton/vscode-cfml/internal/types"
)

// CommentMode selects the comment extraction algorithm
type CommentMode uint8

const (
	// Accurate scans with the string/comment state machine and understands
	// embedded regions of the opposite syntax
	Accurate CommentMode = iota
	// Fast runs independent pattern sweeps; comment-like text inside string
	// literals is reported as a comment
	Fast
)

func (m CommentMode) String() string {
	if m == Fast {
		return "fast"
	}
	return "accurate"
}

// ParseCommentMode converts "fast" or "accurate" to a CommentMode
func ParseCommentMode(s string) (CommentMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fast":
		return Fast, true
	case "accurate", "":
		return Accurate, true
	}
	return Accurate, false
}

var (
	scriptLinePattern  = tags.MustCompile(`//[^\r\n]*`, 0)
	scriptBlockPattern = tags.MustCompile(`/\*[\s\S]*?\*/`, 0)
	tagBlockPattern    = tags.MustCompile(`<!---[\s\S]*?--->`, 0)
)

// CommentRanges returns the comments within rng (nil for the whole
// document), sorted and non-overlapping. isScript selects the syntax of the
// document; regions of the other syntax embedded in it are handled as well.
func CommentRanges(doc *types.Document, isScript bool, rng *types.Range, mode CommentMode) []types.Range {
	start, end := doc.Bounds(rng)

	var spans []span
	if mode == Fast {
		spans = fastCommentSpans(doc, start, end, isScript)
	} else {
		spans = accurateCommentSpans(doc, start, end, isScript)
	}

	merged := mergeSpans(spans)
	debug.LogLexer("%s comment scan of %s [%d,%d) script=%t: %d comments",
		mode, doc.URI(), start, end, isScript, len(merged))
	return toRanges(doc, merged)
}

func sweep(text string, start, end int, patterns ...*regexp2.Regexp) []span {
	var spans []span
	for _, re := range patterns {
		for _, m := range tags.FindAll(re, text, start, end) {
			s := m.Span()
			spans = append(spans, span{start: s.Start, end: s.End})
		}
	}
	return spans
}

func fastCommentSpans(doc *types.Document, start, end int, script bool) []span {
	text := doc.Text()
	if script {
		spans := sweep(text, start, end, scriptLinePattern, scriptBlockPattern)
		for _, island := range tagIslandSpans(text, start, end) {
			spans = append(spans, sweep(text, island.start, island.end, tagBlockPattern)...)
		}
		return spans
	}

	spans := sweep(text, start, end, tagBlockPattern)
	for _, region := range bodySpans(doc, "cfscript", start, end) {
		spans = append(spans, sweep(text, region.start, region.end, scriptLinePattern, scriptBlockPattern)...)
	}
	return spans
}

type scanJob struct {
	start, end int
	script     bool
}

// accurateCommentSpans scans [start, end) and every embedded region reached
// in code state, each region in the opposite syntax. Regions are queued on a
// work list rather than scanned recursively.
func accurateCommentSpans(doc *types.Document, start, end int, script bool) []span {
	text := doc.Text()
	var comments []span
	work := []scanJob{{start: start, end: end, script: script}}
	jobs := 0

	for len(work) > 0 {
		job := work[len(work)-1]
		work = work[:len(work)-1]
		jobs++

		regions := embeddedSpans(doc, job.start, job.end, job.script)
		found, live := scanComments(text, job, regions)
		comments = append(comments, found...)
		for _, r := range live {
			work = append(work, scanJob{start: r.start, end: r.end, script: !job.script})
		}
	}

	if jobs > 1 {
		debug.LogLexer("accurate comment scan of %s used %d region scans", doc.URI(), jobs)
	}
	return comments
}

// scanComments runs the state machine over one job. Embedded regions that
// start while the scanner is in code state are skipped and returned as live;
// regions that start inside a comment or string are part of it.
func scanComments(text string, job scanJob, regions []span) (comments []span, live []span) {
	bounded := text[:job.end]
	st := State{}
	next := 0

	for i := job.start; i < job.end; {
		for next < len(regions) && regions[next].start < i {
			next++
		}
		if next < len(regions) && regions[next].start == i && st.Kind == KindCode {
			live = append(live, regions[next])
			i = regions[next].end
			st = codeState(false)
			next++
			continue
		}

		prev := st
		var width int
		st, width = Step(st, bounded, i, job.script)
		if prev.Kind == KindComment && st.Kind != KindComment {
			end := i + width
			if prev.Comment == LineComment {
				end = i
			}
			comments = append(comments, span{start: prev.Start, end: end})
		}
		i += width
	}

	if st.Kind == KindComment {
		comments = append(comments, span{start: st.Start, end: job.end})
	}
	return comments, live
}
