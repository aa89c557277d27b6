package taxonomy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/crimson-sun/triage/internal/engine/embedder"
	"github.com/crimson-sun/triage/internal/model"
)

// Validate checks that root is present and every node carries a positive id.
// Violations wrap model.ErrConfiguration.
func Validate(root *model.TaxonomyNode) error {
	if root == nil {
		return fmt.Errorf("taxonomy: no root node: %w", model.ErrConfiguration)
	}
	var walk func(n *model.TaxonomyNode, pos []int) error
	walk = func(n *model.TaxonomyNode, pos []int) error {
		if n == nil {
			return fmt.Errorf("taxonomy: nil node at %q: %w", model.PositionKey(pos), model.ErrConfiguration)
		}
		if n.ID <= 0 {
			return fmt.Errorf("taxonomy: node %q has id %d, want a positive integer: %w",
				n.Name, n.ID, model.ErrConfiguration)
		}
		for i, c := range n.Children {
			if err := walk(c, append(pos, i)); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root, nil)
}

// LeafPaths enumerates every root-to-leaf route in pre-order, children in
// stored order. A root without children is itself the single leaf.
func LeafPaths(root *model.TaxonomyNode) []model.LeafPath {
	if root == nil {
		return nil
	}
	var paths []model.LeafPath
	var walk func(n *model.TaxonomyNode, names []string, ids, pos []int)
	walk = func(n *model.TaxonomyNode, names []string, ids, pos []int) {
		names = append(names, n.Name)
		ids = append(ids, n.ID)
		if n.IsLeaf() {
			paths = append(paths, model.LeafPath{
				Names:    append([]string(nil), names...),
				IDs:      append([]int(nil), ids...),
				Position: append([]int(nil), pos...),
			})
			return
		}
		for i, c := range n.Children {
			walk(c, names, ids, append(pos, i))
		}
	}
	walk(root, nil, nil, nil)
	return paths
}

// Fingerprint hashes the rendered leaf paths in order. Two trees with the
// same fingerprint produce the same candidates.
func Fingerprint(root *model.TaxonomyNode) string {
	h := sha256.New()
	for _, p := range LeafPaths(root) {
		h.Write([]byte(p.Key()))
		h.Write([]byte{0})
		h.Write([]byte(p.String()))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Index holds the embedding of every leaf path for one matching pass. It is
// read-only once built and safe to share between goroutines.
type Index struct {
	leaves []model.EmbeddedLeaf
	byKey  map[string]int
}

// BuildIndex enumerates the leaf paths of root and embeds their rendered
// strings in a single batch call.
func BuildIndex(ctx context.Context, root *model.TaxonomyNode, emb embedder.Embedder) (*Index, error) {
	paths := LeafPaths(root)
	texts := make([]string, len(paths))
	for i, p := range paths {
		texts[i] = p.String()
	}

	vecs, err := emb.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: embed leaf paths: %w: %w", model.ErrCollaborator, err)
	}
	if len(vecs) != len(paths) {
		return nil, fmt.Errorf("taxonomy: embedder returned %d vectors for %d leaf paths: %w",
			len(vecs), len(paths), model.ErrCollaborator)
	}
	return NewIndex(paths, vecs), nil
}

// NewIndex pairs paths with precomputed vectors. vecs must be parallel to paths.
func NewIndex(paths []model.LeafPath, vecs [][]float32) *Index {
	ix := &Index{
		leaves: make([]model.EmbeddedLeaf, len(paths)),
		byKey:  make(map[string]int, len(paths)),
	}
	for i, p := range paths {
		ix.leaves[i] = model.EmbeddedLeaf{Path: p, Vector: vecs[i]}
		ix.byKey[p.Key()] = i
	}
	return ix
}

// Lookup returns the leaf stored under a positional key.
func (ix *Index) Lookup(key string) (model.EmbeddedLeaf, bool) {
	i, ok := ix.byKey[key]
	if !ok {
		return model.EmbeddedLeaf{}, false
	}
	return ix.leaves[i], true
}

// Leaves returns the embedded leaves in enumeration order.
func (ix *Index) Leaves() []model.EmbeddedLeaf {
	return ix.leaves
}

// Len returns the number of indexed leaves.
func (ix *Index) Len() int {
	return len(ix.leaves)
}

// HasPath reports whether rendered is the display string of some leaf.
func HasPath(root *model.TaxonomyNode, rendered string) bool {
	for _, p := range LeafPaths(root) {
		if p.String() == rendered {
			return true
		}
	}
	return false
}
