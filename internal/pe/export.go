package pe

import (
	"debug/pe"
	"fmt"

	"github.com/pkg/errors"
)

// decodeExports walks the export directory: the 11-field directory record,
// then its three parallel arrays. The arrays live at independent RVAs and are
// correlated by index only.
func (d *decoder) decodeExports() (*Node, error) {
	dir := d.headers.Directory(pe.IMAGE_DIRECTORY_ENTRY_EXPORT)
	if dir.VirtualAddress == 0 {
		return nil, nil
	}

	node, offset, err := d.directoryNode("IMAGE_EXPORT_DIRECTORY", dir.VirtualAddress)
	if err != nil {
		return nil, err
	}

	fields, err := decodeFields(d.img, offset, exportDirectoryFields)
	if err != nil {
		return nil, errors.Wrap(err, "读取导出目录失败")
	}

	moduleName, _, err := d.stringAt(valueOf(fields, "Name"))
	if err != nil {
		return nil, errors.Wrap(err, "读取导出模块名失败")
	}
	setText(fields, "Name", moduleName)
	node.Fields = fields

	base := valueOf(fields, "Base")
	numberOfFunctions := valueOf(fields, "NumberOfFunctions")
	numberOfNames := valueOf(fields, "NumberOfNames")

	funcNode, _, err := d.exportArray("AddressOfFunctions",
		valueOf(fields, "AddressOfFunctions"), numberOfFunctions, 4)
	if err != nil {
		return nil, err
	}
	for i := range funcNode.Fields {
		funcNode.Fields[i].Label = fmt.Sprintf("Function[%d]", i)
	}

	nameNode, namePointers, err := d.exportArray("AddressOfNames",
		valueOf(fields, "AddressOfNames"), numberOfNames, 4)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(namePointers))
	for i, rva := range namePointers {
		name, _, err := d.stringAt(rva)
		if err != nil {
			return nil, errors.Wrapf(err, "读取第 %d 个导出名失败", i)
		}
		names[i] = name
		nameNode.Fields[i].Label = fmt.Sprintf("Name[%d]", i)
		nameNode.Fields[i].Text = name
	}

	ordNode, ordinals, err := d.exportArray("AddressOfNameOrdinals",
		valueOf(fields, "AddressOfNameOrdinals"), numberOfNames, 2)
	if err != nil {
		return nil, err
	}
	for i, ord := range ordinals {
		ordNode.Fields[i].Label = fmt.Sprintf("NameOrdinal[%d]", i)
		ordNode.Fields[i].Text = fmt.Sprintf("序号 %d", base+ord)
	}

	node.Children = []*Node{
		funcNode,
		nameNode,
		ordNode,
		namedExports(funcNode, names, ordinals, base),
	}

	return node, nil
}

// exportArray reads count entries of width bytes at rva.
func (d *decoder) exportArray(label string, rva, count uint32, width int) (*Node, []uint32, error) {
	node := &Node{Label: label, RVA: rva, Mapped: rva != 0}
	if count == 0 {
		return node, nil, nil
	}

	offset, s, err := d.sections.Resolve(rva)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "定位%s失败", label)
	}
	node.Offset = offset
	node.Note = fmt.Sprintf("%d 项, %s", count, sectionNote(s))

	if uint64(count)*uint64(width) > uint64(len(d.img)) {
		return nil, nil, errors.Wrapf(ErrTruncatedBuffer, "%s 的 %d 项超出文件范围", label, count)
	}

	table := make([]FieldSpec, count)
	for i := range table {
		table[i] = FieldSpec{Width: width, Label: label}
	}
	fields, err := decodeFields(d.img, offset, table)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "读取%s失败", label)
	}

	values := make([]uint32, len(fields))
	for i, f := range fields {
		values[i] = f.Value
	}
	node.Fields = fields

	return node, values, nil
}

// namedExports joins the name and ordinal arrays with the function table.
func namedExports(funcNode *Node, names []string, ordinals []uint32, base uint32) *Node {
	node := &Node{Label: "Exports", Note: fmt.Sprintf("%d 个按名称导出", len(names))}

	for i, name := range names {
		idx := ordinals[i]
		f := Field{Label: name, Width: 4}
		if int(idx) < len(funcNode.Fields) {
			entry := funcNode.Fields[idx]
			f.Offset = entry.Offset
			f.Value = entry.Value
			f.Text = fmt.Sprintf("序号 %d", base+idx)
		} else {
			f.Text = fmt.Sprintf("序号 %d 超出函数表", base+idx)
		}
		node.Fields = append(node.Fields, f)
	}

	return node
}
