package tags

import (
	"bytes"
	"strings"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// KnownTags are the tag names the engine asks about. The prefilter only
// answers for these; other names always pass.
var KnownTags = []string{
	"cfscript",
	"cfoutput",
	"script",
	"cffunction",
	"cfargument",
	"cfproperty",
	"cfset",
	"cfcomponent",
	"cfinterface",
}

// Prefilter reports which known tag openers occur in a text using a single
// Aho-Corasick pass, so that region sweeps can be skipped entirely.
type Prefilter struct {
	mu      sync.Mutex // the matcher keeps per-call scratch state
	matcher *ahocorasick.Matcher
	index   map[string]int
}

// NewPrefilter builds a prefilter over "<name" openers for the given tag names
func NewPrefilter(names []string) *Prefilter {
	openers := make([]string, len(names))
	index := make(map[string]int, len(names))
	for i, name := range names {
		name = strings.ToLower(name)
		openers[i] = "<" + name
		index[name] = i
	}
	return &Prefilter{
		matcher: ahocorasick.NewStringMatcher(openers),
		index:   index,
	}
}

var defaultPrefilter = NewPrefilter(KnownTags)

// DefaultPrefilter returns the shared prefilter over KnownTags
func DefaultPrefilter() *Prefilter {
	return defaultPrefilter
}

// Present returns the set of known tag names whose opener appears in text
func (p *Prefilter) Present(text string) map[string]bool {
	lowered := bytes.ToLower([]byte(text))

	p.mu.Lock()
	hits := p.matcher.Match(lowered)
	p.mu.Unlock()

	present := make(map[string]bool, len(hits))
	for name, i := range p.index {
		for _, hit := range hits {
			if hit == i {
				present[name] = true
				break
			}
		}
	}
	return present
}

// MayContain reports whether text may contain a <name opener. Names the
// prefilter was not built for always return true.
func (p *Prefilter) MayContain(text, name string) bool {
	name = strings.ToLower(name)
	if _, ok := p.index[name]; !ok {
		return true
	}
	return p.Present(text)[name]
}
