package index

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	cfmlerrors "github.com/tbenton/vscode-cfml/internal/errors"
)

// DefaultSuggestionThreshold is the minimum similarity for a suggestion
const DefaultSuggestionThreshold = 0.6

type scored struct {
	name  string
	score float32
}

// Suggest returns up to limit indexed component names similar to dotPath,
// best first, compared case-insensitively. A bare name is compared with the
// last segment of each component name; a dotted one with both the segment
// and the full name.
func (idx *Index) Suggest(dotPath string, limit int) []string {
	query := strings.ToLower(strings.TrimSpace(dotPath))
	if query == "" || limit <= 0 {
		return nil
	}
	queryLeaf := lastSegment(query)
	qualified := queryLeaf != query

	var candidates []scored
	for _, e := range idx.Entries() {
		if e.Component == nil || e.DotPath == "" {
			continue
		}
		name := strings.ToLower(e.DotPath)
		score := similarity(queryLeaf, lastSegment(name))
		if qualified {
			score = (score + similarity(query, name)) / 2
		}
		if score >= DefaultSuggestionThreshold && name != query {
			candidates = append(candidates, scored{name: e.DotPath, score: score})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].name < candidates[j].name
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.name
	}
	return names
}

// Resolver is satisfied by *resolver.Resolver
type Resolver interface {
	Resolve(dotPath, referencingFile string) (string, bool)
}

// ResolveOrSuggest resolves dotPath and, when it cannot be found, returns a
// *errors.ResolveError carrying did-you-mean suggestions from the index.
func (idx *Index) ResolveOrSuggest(r Resolver, dotPath, referencingFile string) (string, error) {
	if target, ok := r.Resolve(dotPath, referencingFile); ok {
		return target, nil
	}
	return "", cfmlerrors.NewResolveError(dotPath, referencingFile, idx.Suggest(dotPath, 3))
}

func similarity(a, b string) float32 {
	score, err := edlib.StringsSimilarity(a, b, edlib.Levenshtein)
	if err != nil {
		return 0
	}
	return score
}

func lastSegment(dotPath string) string {
	return dotPath[strings.LastIndex(dotPath, ".")+1:]
}
