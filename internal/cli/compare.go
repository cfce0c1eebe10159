package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/ZacharyZcR/PEView/internal/pe"
	"github.com/fatih/color"
	peparser "github.com/saferwall/pe"
)

// Counts summarises a decoded image for cross-checking against another
// parser.
type Counts struct {
	Sections          int
	Imports           int
	ImportedFunctions int
	Exports           int
	RelocationBlocks  int
}

// ModelCounts counts the records of a structure model.
func ModelCounts(m *pe.Model) Counts {
	var c Counts
	m.Walk(func(n *pe.Node, depth int) bool {
		switch {
		case depth == 0 && strings.HasPrefix(n.Label, "IMAGE_SECTION_HEADER"):
			c.Sections++
			return false
		case strings.HasPrefix(n.Label, "IMAGE_IMPORT_DESCRIPTOR"):
			c.Imports++
			if len(n.Children) > 0 {
				c.ImportedFunctions += len(n.Children[0].Children)
			}
			return false
		case n.Label == "IMAGE_EXPORT_DIRECTORY":
			if f, ok := n.Field("NumberOfFunctions"); ok {
				c.Exports = int(f.Value)
			}
			return false
		case n.Label == "IMAGE_BASE_RELOCATION":
			c.RelocationBlocks = len(n.Children)
			return false
		}
		return true
	})
	return c
}

// ReferenceCounts parses buf with saferwall/pe and counts the same records.
func ReferenceCounts(buf []byte) (Counts, error) {
	f, err := peparser.NewBytes(buf, &peparser.Options{})
	if err != nil {
		return Counts{}, fmt.Errorf("参考解析器打开失败: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := f.Parse(); err != nil {
		return Counts{}, fmt.Errorf("参考解析器解析失败: %w", err)
	}

	c := Counts{
		Sections:         len(f.Sections),
		Imports:          len(f.Imports),
		Exports:          len(f.Export.Functions),
		RelocationBlocks: len(f.Relocations),
	}
	for _, imp := range f.Imports {
		c.ImportedFunctions += len(imp.Functions)
	}
	return c, nil
}

// Mismatch is one count on which the two parsers disagree.
type Mismatch struct {
	Name      string
	Got, Want int
}

// Compare returns the counts that differ, in a fixed order.
func Compare(got, want Counts) []Mismatch {
	rows := []Mismatch{
		{"节区", got.Sections, want.Sections},
		{"导入DLL", got.Imports, want.Imports},
		{"导入函数", got.ImportedFunctions, want.ImportedFunctions},
		{"导出函数", got.Exports, want.Exports},
		{"重定位块", got.RelocationBlocks, want.RelocationBlocks},
	}

	var diff []Mismatch
	for _, r := range rows {
		if r.Got != r.Want {
			diff = append(diff, r)
		}
	}
	return diff
}

// PrintComparison prints the cross-check result.
func PrintComparison(w io.Writer, got, want Counts) {
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Fprintln(w, "【交叉验证】(saferwall/pe)")

	diff := Compare(got, want)
	if len(diff) == 0 {
		green := color.New(color.FgGreen)
		green.Fprintln(w, "  ✓ 与参考解析器一致")
		fmt.Fprintln(w)
		return
	}

	red := color.New(color.FgRed, color.Bold)
	for _, d := range diff {
		red.Fprintf(w, "  ✗ %-10s 本工具: %d, 参考: %d\n", d.Name, d.Got, d.Want)
	}
	fmt.Fprintln(w)
}
