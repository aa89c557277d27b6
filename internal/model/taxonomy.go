package model

import (
	"strconv"
	"strings"
)

// PathSeparator joins node names into a rendered leaf path.
const PathSeparator = " -> "

// TaxonomyNode represents a node in the classification tree. A node with no
// children is a leaf. Each node owns its children; there are no back references.
type TaxonomyNode struct {
	ID        int             `json:"id" yaml:"id"`
	Name      string          `json:"name" yaml:"name"`
	Activated *bool           `json:"activated,omitempty" yaml:"activated,omitempty"`
	Children  []*TaxonomyNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// IsLeaf reports whether the node has no children.
func (n *TaxonomyNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// IsActivated reports the node's activation flag. Nodes default to activated.
func (n *TaxonomyNode) IsActivated() bool {
	return n.Activated == nil || *n.Activated
}

// LeafPath identifies one leaf of a taxonomy by the route taken to reach it.
// Names and IDs run root-to-leaf; Position holds the child index taken at
// each level below the root, which is unique per leaf even when names or ids
// repeat.
type LeafPath struct {
	Names    []string
	IDs      []int
	Position []int
}

// String renders the canonical " -> "-joined path used for display and embedding.
func (p LeafPath) String() string {
	return strings.Join(p.Names, PathSeparator)
}

// Key returns a stable positional key for the leaf, e.g. "0.2.1".
// The root is always the empty prefix, so a single-node tree has key "".
func (p LeafPath) Key() string {
	return PositionKey(p.Position)
}

// PositionKey renders a child-index route as a dotted key.
func PositionKey(pos []int) string {
	var b strings.Builder
	for i, idx := range pos {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(idx))
	}
	return b.String()
}

// EmbeddedLeaf is a leaf path with its pre-computed embedding vector.
type EmbeddedLeaf struct {
	Path   LeafPath
	Vector []float32
}
