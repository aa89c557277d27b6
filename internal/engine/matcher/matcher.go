package matcher

import (
	"log/slog"
	"math"
	"sort"

	"github.com/crimson-sun/triage/internal/engine/taxonomy"
	"github.com/crimson-sun/triage/internal/model"
)

const (
	DefaultThreshold = 0.5
	DefaultTopK      = 3
)

// Matcher ranks taxonomy leaves against an issue embedding.
type Matcher struct {
	Threshold float64
	TopK      int
}

// New creates a Matcher. A non-positive topK falls back to DefaultTopK.
func New(threshold float64, topK int) *Matcher {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Matcher{Threshold: threshold, TopK: topK}
}

// Match walks the whole tree depth-first and scores every leaf by cosine
// similarity. Leaves missing from the index are logged and skipped.
// Candidates below the threshold are dropped; the rest are ordered by
// descending score (ties keep traversal order) and cut to TopK.
// The result is never nil.
func (m *Matcher) Match(vector []float32, root *model.TaxonomyNode, ix *taxonomy.Index) []model.MatchCandidate {
	var scored []model.MatchCandidate
	var walk func(n *model.TaxonomyNode, names []string, pos []int)
	walk = func(n *model.TaxonomyNode, names []string, pos []int) {
		names = append(names, n.Name)
		if !n.IsLeaf() {
			for i, c := range n.Children {
				walk(c, names, append(pos, i))
			}
			return
		}

		path := model.LeafPath{Names: names, Position: pos}
		leaf, ok := ix.Lookup(path.Key())
		if !ok {
			slog.Error("leaf path missing from index", "path", path.String(), "key", path.Key(), "error", model.ErrLookupInconsistency)
			return
		}
		scored = append(scored, model.MatchCandidate{
			Path:            path.String(),
			SimilarityScore: CosineSimilarity(vector, leaf.Vector),
		})
	}
	if root != nil && ix != nil {
		walk(root, nil, nil)
	}
	return m.rank(scored)
}

func (m *Matcher) rank(scored []model.MatchCandidate) []model.MatchCandidate {
	kept := make([]model.MatchCandidate, 0, len(scored))
	for _, c := range scored {
		if c.SimilarityScore >= m.Threshold {
			kept = append(kept, c)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].SimilarityScore > kept[j].SimilarityScore
	})
	if len(kept) > m.TopK {
		kept = kept[:m.TopK]
	}
	return kept
}

// CosineSimilarity returns the cosine of the angle between a and b in [-1, 1].
// Mismatched lengths and zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
