// Package gui maps a decoded structure model onto the string-keyed node IDs
// a tree widget asks for.
//
// IDs are slash-separated child indices from the roots: "2" is the third
// root, "2/0" its first child node. Fields are leaves addressed with an "f"
// prefix: "2/0/f3" is the fourth field of node "2/0". A node lists its fields
// before its child nodes.
package gui

import (
	"strconv"
	"strings"

	"github.com/ZacharyZcR/PEView/internal/pe"
)

// Tree answers tree-widget queries for one model. The zero value and a Tree
// over a nil model are empty.
type Tree struct {
	model *pe.Model
}

// NewTree creates a tree over m.
func NewTree(m *pe.Model) *Tree {
	return &Tree{model: m}
}

// ChildUIDs returns the IDs under uid. The empty ID is the invisible root.
func (t *Tree) ChildUIDs(uid string) []string {
	if t.model == nil {
		return nil
	}

	if uid == "" {
		ids := make([]string, len(t.model.Roots))
		for i := range t.model.Roots {
			ids[i] = strconv.Itoa(i)
		}
		return ids
	}

	n, field := t.lookup(uid)
	if n == nil || field >= 0 {
		return nil
	}

	ids := make([]string, 0, len(n.Fields)+len(n.Children))
	for i := range n.Fields {
		ids = append(ids, uid+"/f"+strconv.Itoa(i))
	}
	for i := range n.Children {
		ids = append(ids, uid+"/"+strconv.Itoa(i))
	}
	return ids
}

// IsBranch reports whether uid is a node with fields or children.
func (t *Tree) IsBranch(uid string) bool {
	if uid == "" {
		return t.model != nil
	}
	n, field := t.lookup(uid)
	return n != nil && field < 0 && len(n.Fields)+len(n.Children) > 0
}

// Text returns the display row for uid.
func (t *Tree) Text(uid string) string {
	n, field := t.lookup(uid)
	switch {
	case n == nil:
		return ""
	case field >= 0:
		return n.Fields[field].String()
	default:
		return n.Text()
	}
}

// Diagnostics returns one display line per model diagnostic.
func (t *Tree) Diagnostics() []string {
	if t.model == nil {
		return nil
	}
	lines := make([]string, len(t.model.Diagnostics))
	for i, d := range t.model.Diagnostics {
		lines[i] = d.String()
	}
	return lines
}

// lookup resolves uid to its node and, for field leaves, the field index.
// field is -1 for nodes. An unknown uid yields a nil node.
func (t *Tree) lookup(uid string) (*pe.Node, int) {
	if t.model == nil || uid == "" {
		return nil, -1
	}

	parts := strings.Split(uid, "/")
	nodes := t.model.Roots
	var n *pe.Node

	for i, part := range parts {
		if strings.HasPrefix(part, "f") {
			if n == nil || i != len(parts)-1 {
				return nil, -1
			}
			idx, err := strconv.Atoi(part[1:])
			if err != nil || idx < 0 || idx >= len(n.Fields) {
				return nil, -1
			}
			return n, idx
		}

		idx, err := strconv.Atoi(part)
		if err != nil || idx < 0 || idx >= len(nodes) {
			return nil, -1
		}
		n = nodes[idx]
		nodes = n.Children
	}

	return n, -1
}
