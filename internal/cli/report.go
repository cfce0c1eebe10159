// Package cli provides command-line interface utilities.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/ZacharyZcR/PEView/internal/pe"
	"github.com/fatih/color"
)

// defaultMaxFields is how many fields of a node are listed outside verbose
// mode.
const defaultMaxFields = 8

// Reporter prints a decoded structure model as a tree.
type Reporter struct {
	model    *pe.Model
	path     string
	size     int64
	verbose  bool
	maxDepth int
}

// NewReporter creates a new reporter for the model decoded from path.
func NewReporter(model *pe.Model, path string, size int64) *Reporter {
	return &Reporter{model: model, path: path, size: size}
}

// SetVerbose enables verbose mode (list every field of every node).
func (r *Reporter) SetVerbose(verbose bool) {
	r.verbose = verbose
}

// SetMaxDepth limits how deep the tree is printed. Zero means no limit.
func (r *Reporter) SetMaxDepth(depth int) {
	r.maxDepth = depth
}

// Print outputs the complete report.
func (r *Reporter) Print(w io.Writer) {
	r.printHeader(w)
	r.printBasicInfo(w)
	r.printDataDirectories(w)
	r.printTree(w)
	r.printDiagnostics(w)
}

func (r *Reporter) printHeader(w io.Writer) {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintln(w, "\n╔════════════════════════════════════════╗")
	cyan.Fprintln(w, "║          PEView 结构报告               ║")
	cyan.Fprintln(w, "╚════════════════════════════════════════╝")
}

func (r *Reporter) printBasicInfo(w io.Writer) {
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Fprintln(w, "\n【基本信息】")

	fmt.Fprintf(w, "  %-20s: %s\n", "文件路径", r.path)
	fmt.Fprintf(w, "  %-20s: %s\n", "文件大小", formatSize(r.size))

	counts := ModelCounts(r.model)
	fmt.Fprintf(w, "  %-20s: %d\n", "节区", counts.Sections)
	fmt.Fprintf(w, "  %-20s: %d 个DLL, %d 个函数\n", "导入", counts.Imports, counts.ImportedFunctions)
	fmt.Fprintf(w, "  %-20s: %d 个函数\n", "导出", counts.Exports)
	fmt.Fprintf(w, "  %-20s: %d 个块\n", "重定位", counts.RelocationBlocks)
}

// printDataDirectories lists the non-empty optional header directories.
func (r *Reporter) printDataDirectories(w io.Writer) {
	dirs := DataDirectories(r.model)

	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Fprintf(w, "\n【数据目录】(共 %d 个非空)\n", len(dirs))

	for _, d := range dirs {
		fmt.Fprintf(w, "  [%2d] %-15s RVA: 0x%08X  Size: 0x%08X\n", d.Index, d.Name, d.VirtualAddress, d.Size)
	}
}

func (r *Reporter) printTree(w io.Writer) {
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Fprintf(w, "\n【结构】(共 %d 个顶层节点)\n", len(r.model.Roots))

	for _, root := range r.model.Roots {
		fmt.Fprint(w, "  ")
		r.printNode(w, root, "  ", 0)
	}
	fmt.Fprintln(w)
}

// printNode prints n and then its fields and children as one list of
// branches under it.
func (r *Reporter) printNode(w io.Writer, n *pe.Node, prefix string, depth int) {
	labelColor := color.New(color.FgGreen)
	if depth == 0 {
		labelColor = color.New(color.FgCyan, color.Bold)
	}
	labelColor.Fprintln(w, n.Text())

	gray := color.New(color.FgHiBlack)
	if r.maxDepth > 0 && depth+1 >= r.maxDepth {
		if len(n.Children) > 0 {
			gray.Fprintf(w, "%s└── ... (%d 个子节点)\n", prefix, len(n.Children))
		}
		return
	}

	fields := n.Fields
	hidden := 0
	if !r.verbose && len(fields) > defaultMaxFields {
		hidden = len(fields) - defaultMaxFields
		fields = fields[:defaultMaxFields]
	}

	total := len(fields) + len(n.Children)
	if hidden > 0 {
		total++
	}
	item := 0

	branch := func() (string, string) {
		item++
		if item == total {
			return "└── ", "    "
		}
		return "├── ", "│   "
	}

	for _, f := range fields {
		marker, _ := branch()
		fmt.Fprint(w, prefix+marker)
		gray.Fprintf(w, "%08x ", f.Offset)
		fmt.Fprintf(w, "%-28s : %s\n", f.Label, f.ValueString())
	}
	if hidden > 0 {
		marker, _ := branch()
		gray.Fprintf(w, "%s%s... (还有 %d 个字段)\n", prefix, marker, hidden)
	}

	for _, child := range n.Children {
		marker, indent := branch()
		fmt.Fprint(w, prefix+marker)
		r.printNode(w, child, prefix+indent, depth+1)
	}
}

func (r *Reporter) printDiagnostics(w io.Writer) {
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Fprintf(w, "【诊断信息】(共 %d 条)\n", len(r.model.Diagnostics))

	if len(r.model.Diagnostics) == 0 {
		green := color.New(color.FgGreen)
		green.Fprintln(w, "  ✓ 所有数据目录均已解析")
		return
	}

	red := color.New(color.FgRed)
	for i, d := range r.model.Diagnostics {
		red.Fprintf(w, "  %3d. %s\n", i+1, d)
	}
	fmt.Fprintln(w)
}

// DataDirectory is one non-empty data directory entry.
type DataDirectory struct {
	Index          int
	Name           string
	VirtualAddress uint32
	Size           uint32
}

// DataDirectories reads the directory entries from the optional header node.
func DataDirectories(m *pe.Model) []DataDirectory {
	opt := m.Find("IMAGE_OPTIONAL_HEADER")
	if opt == nil {
		return nil
	}

	var dirs []DataDirectory
	index := 0
	for i, f := range opt.Fields {
		name, ok := strings.CutSuffix(f.Label, ".VirtualAddress")
		if !ok || i+1 >= len(opt.Fields) {
			continue
		}
		size := opt.Fields[i+1].Value
		if f.Value != 0 || size != 0 {
			dirs = append(dirs, DataDirectory{
				Index:          index,
				Name:           name,
				VirtualAddress: f.Value,
				Size:           size,
			})
		}
		index++
	}
	return dirs
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
