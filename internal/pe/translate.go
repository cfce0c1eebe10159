package pe

import "github.com/pkg/errors"

// span returns the size of the section's in-memory footprint:
// VirtualSize rounded up to SectionAlignment. A zero VirtualSize falls back
// to SizeOfRawData, as the loader does.
func (t *SectionTable) span(s *Section) uint64 {
	size := s.VirtualSize
	if size == 0 {
		size = s.SizeOfRawData
	}
	return alignUp(size, t.alignment)
}

// FindSection returns the index of the first section, in table order, whose
// in-memory range [VirtualAddress, VirtualAddress+span) covers rva.
func (t *SectionTable) FindSection(rva uint32) (int, bool) {
	for i := range t.sections {
		s := &t.sections[i]
		if rva < s.VirtualAddress {
			continue
		}
		if uint64(rva)-uint64(s.VirtualAddress) < t.span(s) {
			return i, true
		}
	}
	return -1, false
}

// ToFileOffset translates rva using section s. The caller guarantees that s
// covers rva.
func (s *Section) ToFileOffset(rva uint32) uint32 {
	return s.PointerToRawData + (rva - s.VirtualAddress)
}

// HasRawData reports whether rva falls inside the part of the section that is
// backed by file data.
func (s *Section) HasRawData(rva uint32) bool {
	return rva >= s.VirtualAddress && rva-s.VirtualAddress < s.SizeOfRawData
}

// Resolve finds the section covering rva and translates rva to a file offset.
// An RVA in no section, or in the uninitialised tail of a section, is
// ErrUnresolvableAddress.
func (t *SectionTable) Resolve(rva uint32) (uint32, *Section, error) {
	i, ok := t.FindSection(rva)
	if !ok {
		return 0, nil, errors.Wrapf(ErrUnresolvableAddress, "RVA 0x%X", rva)
	}

	s := &t.sections[i]
	if !s.HasRawData(rva) {
		return 0, nil, errors.Wrapf(ErrUnresolvableAddress,
			"RVA 0x%X 位于节区 %s 的未初始化部分 (SizeOfRawData=0x%X)", rva, s.Name, s.SizeOfRawData)
	}

	return s.ToFileOffset(rva), s, nil
}
