package pe

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
)

// Section is one decoded IMAGE_SECTION_HEADER.
type Section struct {
	Index                int
	HeaderOffset         uint32 // File offset of the 40-byte header.
	Name                 string
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLinenumbers uint32
	NumberOfRelocations  uint16
	NumberOfLinenumbers  uint16
	Characteristics      uint32
}

// Permissions returns the RWX summary of the section characteristics.
func (s *Section) Permissions() string {
	return getSectionPermissions(s.Characteristics)
}

// SectionTable is the per-decode list of section headers. It is sized to
// NumberOfSections and owned by one Build call.
type SectionTable struct {
	sections  []Section
	alignment uint32
}

// Len returns the number of sections.
func (t *SectionTable) Len() int {
	return len(t.sections)
}

// Section returns section i.
func (t *SectionTable) Section(i int) *Section {
	return &t.sections[i]
}

// decodeSectionTable decodes NumberOfSections headers starting right after
// the NT headers and returns one node per section.
func decodeSectionTable(img image, h *Headers) (*SectionTable, []*Node, error) {
	base := h.SectionTableOffset()
	count := uint32(h.NumberOfSections)
	if !img.contains(base, count*sectionHeaderSize) {
		return nil, nil, errors.Wrapf(ErrTruncatedBuffer,
			"节表 (%d 个节区, 偏移 0x%X) 超出文件范围 (文件大小 0x%X)", count, base, len(img))
	}

	table := &SectionTable{
		sections:  make([]Section, 0, count),
		alignment: h.SectionAlignment,
	}
	nodes := make([]*Node, 0, count)

	for i := uint32(0); i < count; i++ {
		offset := base + i*sectionHeaderSize
		fields, err := decodeFields(img, offset, sectionHeaderFields)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "读取第 %d 个节区头失败", i)
		}

		raw, _ := lookup(fields, "Name")
		s := Section{
			Index:                int(i),
			HeaderOffset:         offset,
			Name:                 sectionName(raw.Raw),
			VirtualSize:          valueOf(fields, "VirtualSize"),
			VirtualAddress:       valueOf(fields, "VirtualAddress"),
			SizeOfRawData:        valueOf(fields, "SizeOfRawData"),
			PointerToRawData:     valueOf(fields, "PointerToRawData"),
			PointerToRelocations: valueOf(fields, "PointerToRelocations"),
			PointerToLinenumbers: valueOf(fields, "PointerToLinenumbers"),
			NumberOfRelocations:  uint16(valueOf(fields, "NumberOfRelocations")),
			NumberOfLinenumbers:  uint16(valueOf(fields, "NumberOfLinenumbers")),
			Characteristics:      valueOf(fields, "Characteristics"),
		}
		setText(fields, "Name", s.Name)
		table.sections = append(table.sections, s)

		nodes = append(nodes, &Node{
			Label:  "IMAGE_SECTION_HEADER " + s.Name,
			Offset: offset,
			Note: fmt.Sprintf("%s entropy=%.2f",
				s.Permissions(), CalculateEntropy(sectionData(img, &s))),
			Fields: fields,
		})
	}

	return table, nodes, nil
}

// sectionName keeps the 8 raw bytes up to the first NUL.
func sectionName(raw []byte) string {
	if n := bytes.IndexByte(raw, 0); n >= 0 {
		return string(raw[:n])
	}
	return string(raw)
}

// sectionData returns the part of the section's raw data present in the
// buffer.
func sectionData(img image, s *Section) []byte {
	start := uint64(s.PointerToRawData)
	end := start + uint64(s.SizeOfRawData)
	if start >= uint64(len(img)) {
		return nil
	}
	if end > uint64(len(img)) {
		end = uint64(len(img))
	}
	return img[start:end]
}

// alignUp aligns a value up to the nearest multiple of alignment.
func alignUp(value, alignment uint32) uint64 {
	if alignment == 0 {
		return uint64(value)
	}
	a := uint64(alignment)
	return (uint64(value) + a - 1) / a * a
}
