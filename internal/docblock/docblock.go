// Package docblock reads the key/value metadata of /** ... */ comments.
//
//	/**
//	 * Manages users.
//	 * @extends models.Base
//	 * @accessors true
//	 */
//
// yields hint="Manages users.", extends="models.Base", accessors="true".
package docblock

import (
	"strings"

	"github.com/tbenton/vscode-cfml/internal/types"
)

// HintKey is the key given to text that precedes the first @key
const HintKey = "hint"

// Item is one key/value pair of a doc block. Keys are lower-cased. A value
// spanning several lines is joined with "\n"; ValueRange covers it in the
// document.
type Item struct {
	Key        string
	Value      string
	ValueRange types.Range
}

type pending struct {
	key        string
	lines      []string
	start, end int
}

// Parse reads the doc block covering rng. The comment delimiters are
// optional; leading '*' decoration on each line is ignored.
func Parse(doc *types.Document, rng types.Range) []Item {
	start, end := doc.Offsets(doc.ValidateRange(rng))
	text := doc.Text()

	if strings.HasPrefix(text[start:end], "/**") {
		start += 3
	}
	if strings.HasSuffix(text[start:end], "*/") {
		end -= 2
	}
	for end > start && text[end-1] == '*' {
		end--
	}

	var (
		items   []Item
		current *pending
	)
	flush := func() {
		if current == nil {
			return
		}
		items = append(items, Item{
			Key:        current.key,
			Value:      strings.Join(current.lines, "\n"),
			ValueRange: doc.RangeOf(current.start, current.end),
		})
		current = nil
	}

	for ls := start; ls < end; {
		le := ls
		for le < end && text[le] != '\n' && text[le] != '\r' {
			le++
		}
		next := le
		if next < end && text[next] == '\r' {
			next++
		}
		if next < end && text[next] == '\n' {
			next++
		}
		if next == le {
			next = le + 1
		}

		p, q := contentBounds(text, ls, le)
		switch {
		case p >= q:
			// blank line
		case text[p] == '@':
			flush()
			keyEnd := p + 1
			for keyEnd < q && isKeyByte(text[keyEnd]) {
				keyEnd++
			}
			vs := keyEnd
			for vs < q && (text[vs] == ' ' || text[vs] == '\t') {
				vs++
			}
			current = &pending{
				key:   strings.ToLower(text[p+1 : keyEnd]),
				start: vs,
				end:   q,
			}
			if vs < q {
				current.lines = append(current.lines, text[vs:q])
			}
		case current == nil:
			current = &pending{key: HintKey, lines: []string{text[p:q]}, start: p, end: q}
		default:
			if len(current.lines) == 0 {
				current.start = p
			}
			current.lines = append(current.lines, text[p:q])
			current.end = q
		}
		ls = next
	}
	flush()

	return items
}

// contentBounds trims whitespace and leading '*' decoration from a line
func contentBounds(text string, ls, le int) (int, int) {
	p := ls
	for p < le && (text[p] == ' ' || text[p] == '\t') {
		p++
	}
	for p < le && text[p] == '*' {
		p++
	}
	for p < le && (text[p] == ' ' || text[p] == '\t') {
		p++
	}
	q := le
	for q > p && (text[q-1] == ' ' || text[q-1] == '\t') {
		q--
	}
	return p, q
}

func isKeyByte(c byte) bool {
	return c == '_' || c == '.' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// Find returns the last item with key, which wins when a key repeats
func Find(items []Item, key string) (Item, bool) {
	key = strings.ToLower(key)
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Key == key {
			return items[i], true
		}
	}
	return Item{}, false
}
