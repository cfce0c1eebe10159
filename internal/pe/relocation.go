package pe

import (
	"debug/pe"
	"fmt"

	"github.com/pkg/errors"
)

const relocationEntrySize = 2

// decodeRelocations walks the base relocation blocks. Each block re-resolves
// its own section from its page RVA; blocks need not live in the section that
// holds the directory.
//
// The walk stops at a block whose VirtualAddress or SizeOfBlock is zero, or
// once the directory's Size bytes have been consumed.
func (d *decoder) decodeRelocations() (*Node, error) {
	dir := d.headers.Directory(pe.IMAGE_DIRECTORY_ENTRY_BASERELOC)
	if dir.VirtualAddress == 0 {
		return nil, nil
	}

	node, offset, err := d.directoryNode("IMAGE_BASE_RELOCATION", dir.VirtualAddress)
	if err != nil {
		return nil, err
	}

	headerSize := tableSize(baseRelocationFields)
	var consumed uint64
	entries := 0

	for i := 0; ; i++ {
		if dir.Size != 0 && consumed >= uint64(dir.Size) {
			break
		}
		if i >= d.opts.MaxEntries {
			return nil, errors.Wrapf(ErrMalformedDirectory, "重定位块超过 %d 个", d.opts.MaxEntries)
		}

		fields, err := decodeFields(d.img, offset, baseRelocationFields)
		if err != nil {
			return nil, errors.Wrapf(err, "读取第 %d 个重定位块失败", i)
		}
		va := valueOf(fields, "VirtualAddress")
		size := valueOf(fields, "SizeOfBlock")
		if va == 0 || size == 0 {
			break
		}
		if size < headerSize {
			return nil, errors.Wrapf(ErrMalformedDirectory,
				"第 %d 个重定位块 SizeOfBlock=%d 小于块头大小", i, size)
		}

		block, err := d.relocationBlock(offset, fields)
		if err != nil {
			return nil, errors.Wrapf(err, "解析第 %d 个重定位块失败", i)
		}
		node.Children = append(node.Children, block)
		entries += len(block.Children)

		// relocationBlock has bounds-checked every byte up to offset+size.
		offset += size
		consumed += uint64(size)
	}

	node.Note = fmt.Sprintf("%d 个块, %d 项, %s", len(node.Children), entries, node.Note)
	return node, nil
}

// relocationBlock decodes the entries that follow one block header at offset.
func (d *decoder) relocationBlock(offset uint32, fields []Field) (*Node, error) {
	va := valueOf(fields, "VirtualAddress")
	size := valueOf(fields, "SizeOfBlock")

	idx, ok := d.sections.FindSection(va)
	if !ok {
		return nil, errors.Wrapf(ErrUnresolvableAddress, "重定位页 RVA 0x%X", va)
	}
	s := d.sections.Section(idx)

	headerSize := tableSize(baseRelocationFields)
	count := (size - headerSize) / relocationEntrySize
	base := offset + headerSize
	if !d.img.contains(base, count*relocationEntrySize) {
		return nil, errors.Wrapf(ErrTruncatedBuffer,
			"重定位块 0x%X 的 %d 项超出文件范围", offset, count)
	}

	block := &Node{
		Label:  fmt.Sprintf("Block %08x", va),
		Offset: offset,
		RVA:    va,
		Mapped: true,
		Note:   fmt.Sprintf("%d 项, 节区 %s", count, s.Name),
		Fields: fields,
	}

	for j := uint32(0); j < count; j++ {
		entryOffset := base + j*relocationEntrySize
		raw, err := d.img.uint16At(entryOffset)
		if err != nil {
			return nil, err
		}
		block.Children = append(block.Children, d.relocationEntry(entryOffset, va, s, raw))
	}

	return block, nil
}

// relocationEntry splits a 16-bit entry into its 4-bit type and 12-bit page
// offset. Type 0 is padding and has no target.
func (d *decoder) relocationEntry(offset, page uint32, s *Section, raw uint16) *Node {
	typ := raw >> 12
	pageOffset := uint32(raw & 0x0FFF)
	rva := page + pageOffset

	n := &Node{
		Label:  RelocationTypeName(typ),
		Offset: offset,
		RVA:    rva,
		Mapped: true,
		Fields: []Field{{
			Offset: offset,
			Label:  "Entry",
			Width:  relocationEntrySize,
			Value:  uint32(raw),
			Text:   fmt.Sprintf("type=%d offset=0x%03X", typ, pageOffset),
		}},
	}

	if typ == relBasedAbsolute {
		n.Note = "对齐填充"
		return n
	}

	target := s.PointerToRawData + (page - s.VirtualAddress + pageOffset)
	n.Note = fmt.Sprintf("目标 RVA %08x 文件偏移 %08x", rva, target)

	if s.HasRawData(rva) {
		if v, err := d.img.uint32At(target); err == nil {
			n.Fields = append(n.Fields, Field{Offset: target, Label: "Target", Width: 4, Value: v})
		}
	}

	return n
}
