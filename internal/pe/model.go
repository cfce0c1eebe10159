// Package pe decodes the structure of a PE/COFF image held in memory into a
// tree of labelled records.
package pe

import (
	"fmt"
	"strings"

	"github.com/h2non/filetype"
	"github.com/pkg/errors"
)

// Node is one record of the decoded structure. Offset is the file offset of
// the record; RVA is set when Mapped is true.
type Node struct {
	Label    string
	Offset   uint32
	RVA      uint32
	Mapped   bool
	Note     string
	Fields   []Field
	Children []*Node
}

// Text renders the node as a one-line display row.
func (n *Node) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%08x", n.Offset)
	if n.Mapped {
		fmt.Fprintf(&b, " %08x", n.RVA)
	}
	b.WriteString(" ")
	b.WriteString(n.Label)
	if n.Note != "" {
		b.WriteString("  ")
		b.WriteString(n.Note)
	}
	return b.String()
}

// Field returns the field with the given label.
func (n *Node) Field(label string) (Field, bool) {
	return lookup(n.Fields, label)
}

// Model is the decoded forest plus the diagnostics of directories that could
// not be decoded. It does not reference the input buffer.
type Model struct {
	Roots       []*Node
	Diagnostics []Diagnostic
}

// Walk visits every node in pre-order. Returning false from fn skips the
// node's children.
func (m *Model) Walk(fn func(n *Node, depth int) bool) {
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	for _, r := range m.Roots {
		visit(r, 0)
	}
}

// Find returns the first node, in pre-order, whose label starts with prefix.
func (m *Model) Find(prefix string) *Node {
	var found *Node
	m.Walk(func(n *Node, _ int) bool {
		if found != nil {
			return false
		}
		if strings.HasPrefix(n.Label, prefix) {
			found = n
			return false
		}
		return true
	})
	return found
}

// Options bounds the work done on hostile input.
type Options struct {
	// MaxStringLength caps ASCIIZ names.
	MaxStringLength int
	// MaxEntries caps import descriptors per table and thunks per array.
	MaxEntries int
}

// DefaultOptions returns the limits used by Build.
func DefaultOptions() Options {
	return Options{
		MaxStringLength: 256,
		MaxEntries:      10000,
	}
}

// Build decodes buf with DefaultOptions.
func Build(buf []byte) (*Model, error) {
	return BuildWithOptions(buf, DefaultOptions())
}

// BuildWithOptions decodes the headers, the section table and the export,
// import and base relocation directories of buf.
//
// ErrNotAnImage, ErrMalformedHeader and a truncated header or section table
// are returned as errors with no model. A failure inside one directory is
// recorded in Model.Diagnostics and only that directory's subtree is omitted.
func BuildWithOptions(buf []byte, opts Options) (*Model, error) {
	if !filetype.Is(buf, "exe") {
		return nil, errors.Wrap(ErrNotAnImage, "缺少 MZ 签名")
	}

	d := &decoder{img: image(buf), opts: opts}

	headers, err := decodeHeaders(d.img)
	if err != nil {
		return nil, err
	}
	d.headers = headers

	sections, sectionNodes, err := decodeSectionTable(d.img, headers)
	if err != nil {
		return nil, err
	}
	d.sections = sections

	m := &Model{Roots: []*Node{headers.Node}}
	m.Roots = append(m.Roots, sectionNodes...)
	m.Diagnostics = append(m.Diagnostics, headers.warnings...)

	for _, dir := range []struct {
		table  string
		decode func() (*Node, error)
	}{
		{TableExport, d.decodeExports},
		{TableImport, d.decodeImports},
		{TableRelocation, d.decodeRelocations},
	} {
		node, err := dir.decode()
		if err != nil {
			m.Diagnostics = append(m.Diagnostics, Diagnostic{Table: dir.table, Err: err})
			continue
		}
		if node != nil {
			m.Roots = append(m.Roots, node)
		}
	}

	return m, nil
}

// decoder carries the state of one Build call.
type decoder struct {
	img      image
	opts     Options
	headers  *Headers
	sections *SectionTable
}

// directoryNode resolves a data directory RVA and returns the directory's
// root node and file offset.
func (d *decoder) directoryNode(label string, rva uint32) (*Node, uint32, error) {
	offset, s, err := d.sections.Resolve(rva)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "定位%s失败", label)
	}

	return &Node{
		Label:  label,
		Offset: offset,
		RVA:    rva,
		Mapped: true,
		Note:   sectionNote(s),
	}, offset, nil
}

// stringAt resolves rva and reads the ASCIIZ string there.
func (d *decoder) stringAt(rva uint32) (string, uint32, error) {
	offset, _, err := d.sections.Resolve(rva)
	if err != nil {
		return "", 0, err
	}
	s, err := d.img.cstring(offset, d.opts.MaxStringLength)
	if err != nil {
		return "", 0, err
	}
	return s, offset, nil
}

func sectionNote(s *Section) string {
	return fmt.Sprintf("节区 %s (PointerToRawData=%08x VirtualAddress=%08x)",
		s.Name, s.PointerToRawData, s.VirtualAddress)
}
