package pe

import (
	"debug/pe"
	"fmt"

	"github.com/pkg/errors"
)

const (
	ordinalFlag32 = 0x80000000
	thunkSize     = 4
)

// decodeImports walks the import descriptors until the first one whose
// OriginalFirstThunk is zero. Each descriptor gets two thunk arrays: the
// import name table (OriginalFirstThunk) and the import address table
// (FirstThunk), decoded independently.
func (d *decoder) decodeImports() (*Node, error) {
	dir := d.headers.Directory(pe.IMAGE_DIRECTORY_ENTRY_IMPORT)
	if dir.VirtualAddress == 0 {
		return nil, nil
	}

	node, offset, err := d.directoryNode("IMAGE_IMPORT_DIRECTORY", dir.VirtualAddress)
	if err != nil {
		return nil, err
	}

	descSize := tableSize(importDescriptorFields)
	for i := 0; ; i++ {
		if i >= d.opts.MaxEntries {
			return nil, errors.Wrapf(ErrMalformedDirectory, "导入描述符超过 %d 个", d.opts.MaxEntries)
		}

		fields, err := decodeFields(d.img, offset, importDescriptorFields)
		if err != nil {
			return nil, errors.Wrapf(err, "读取第 %d 个导入描述符失败", i)
		}
		if valueOf(fields, "OriginalFirstThunk") == 0 {
			break
		}

		lib, err := d.importLibrary(fields, offset)
		if err != nil {
			return nil, errors.Wrapf(err, "解析第 %d 个导入描述符失败", i)
		}
		node.Children = append(node.Children, lib)

		offset += descSize
	}

	node.Note = fmt.Sprintf("%d 个DLL, %s", len(node.Children), node.Note)
	return node, nil
}

// importLibrary decodes one IMAGE_IMPORT_DESCRIPTOR at offset.
func (d *decoder) importLibrary(fields []Field, offset uint32) (*Node, error) {
	name, _, err := d.stringAt(valueOf(fields, "Name"))
	if err != nil {
		return nil, errors.Wrap(err, "读取DLL名称失败")
	}
	setText(fields, "Name", name)

	// A non-zero TimeDateStamp means the IAT was bound at link time and holds
	// addresses, not name RVAs.
	bound := valueOf(fields, "TimeDateStamp") != 0

	names, err := d.thunkArray("OriginalFirstThunk", valueOf(fields, "OriginalFirstThunk"), false)
	if err != nil {
		return nil, err
	}
	addrs, err := d.thunkArray("FirstThunk", valueOf(fields, "FirstThunk"), bound)
	if err != nil {
		return nil, err
	}

	return &Node{
		Label:    "IMAGE_IMPORT_DESCRIPTOR " + name,
		Offset:   offset,
		Note:     fmt.Sprintf("%d 个函数", len(names.Children)),
		Fields:   fields,
		Children: []*Node{names, addrs},
	}, nil
}

// thunkArray walks 4-byte thunks at rva until a zero thunk.
func (d *decoder) thunkArray(label string, rva uint32, bound bool) (*Node, error) {
	node := &Node{Label: label, RVA: rva, Mapped: rva != 0}
	if rva == 0 {
		return node, nil
	}

	offset, s, err := d.sections.Resolve(rva)
	if err != nil {
		return nil, errors.Wrapf(err, "定位%s失败", label)
	}
	node.Offset = offset
	node.Note = sectionNote(s)

	for i := 0; ; i++ {
		if i >= d.opts.MaxEntries {
			return nil, errors.Wrapf(ErrMalformedDirectory, "%s 超过 %d 项", label, d.opts.MaxEntries)
		}

		value, err := d.img.uint32At(offset)
		if err != nil {
			return nil, errors.Wrapf(err, "读取%s第 %d 项失败", label, i)
		}
		if value == 0 {
			break
		}

		thunk, err := d.thunk(offset, rva+uint32(i)*thunkSize, value, bound)
		if err != nil {
			return nil, errors.Wrapf(err, "解析%s第 %d 项失败", label, i)
		}
		node.Children = append(node.Children, thunk)

		offset += thunkSize
	}

	return node, nil
}

// thunk classifies one thunk value by its top bit: ordinal import, or RVA of
// an IMAGE_IMPORT_BY_NAME record.
func (d *decoder) thunk(offset, rva, value uint32, bound bool) (*Node, error) {
	n := &Node{
		Offset: offset,
		RVA:    rva,
		Mapped: true,
		Fields: []Field{{Offset: offset, Label: "Thunk", Width: thunkSize, Value: value}},
	}

	switch {
	case value&ordinalFlag32 != 0:
		n.Label = fmt.Sprintf("Ordinal %d", value&^ordinalFlag32)
		n.Fields[0].Text = "按序号导入"

	case bound:
		n.Label = fmt.Sprintf("Bound %08x", value)
		n.Fields[0].Text = "已绑定地址"

	default:
		nameOffset, _, err := d.sections.Resolve(value)
		if err != nil {
			return nil, errors.Wrap(err, "定位导入名失败")
		}
		hint, err := d.img.uint16At(nameOffset)
		if err != nil {
			return nil, err
		}
		name, err := d.img.cstring(nameOffset+2, d.opts.MaxStringLength)
		if err != nil {
			return nil, err
		}

		n.Label = name
		n.Fields = append(n.Fields,
			Field{Offset: nameOffset, Label: "Hint", Width: 2, Value: uint32(hint)},
			Field{Offset: nameOffset + 2, Label: "Name", Width: len(name) + 1, Text: name},
		)
	}

	return n, nil
}
