package pe

import (
	"debug/pe"
	"encoding/binary"
)

const (
	testLfanew       = 0x80
	testSectionTable = testLfanew + ntHeadersSize
	testFileAlign    = 0x200
	testSectionAlign = 0x1000
	testImageBase    = 0x400000
)

// testSection is one section of a synthetic image. data is written at the
// section's PointerToRawData and padded to the file alignment.
type testSection struct {
	name            string
	virtualAddress  uint32
	virtualSize     uint32 // len(data) when zero
	data            []byte
	characteristics uint32
}

// testImage builds minimal PE32 images through the same field tables the
// decoder reads them with.
type testImage struct {
	sections    []testSection
	directories [numberOfDirectories]DataDirectory
}

func (ti *testImage) setDirectory(i int, rva, size uint32) {
	ti.directories[i] = DataDirectory{VirtualAddress: rva, Size: size}
}

func (ti *testImage) bytes() []byte {
	n := uint32(len(ti.sections))
	headersEnd := testAlign(testSectionTable+n*sectionHeaderSize, testFileAlign)

	cursor := headersEnd
	pointers := make([]uint32, n)
	imageEnd := uint32(testSectionAlign)
	for i, s := range ti.sections {
		pointers[i] = cursor
		cursor += testAlign(uint32(len(s.data)), testFileAlign)
		if end := testAlign(s.virtualAddress+uint32(len(s.data)), testSectionAlign); end > imageEnd {
			imageEnd = end
		}
	}
	buf := make([]byte, cursor)

	encodeFields(buf, 0, dosHeaderFields, map[string]uint32{
		"e_magic":    0x5A4D,
		"e_cblp":     0x90,
		"e_cp":       3,
		"e_cparhdr":  4,
		"e_maxalloc": 0xFFFF,
		"e_sp":       0xB8,
		"e_lfarlc":   0x40,
		"e_lfanew":   testLfanew,
	}, nil)
	encodeFields(buf, testLfanew, ntSignatureFields, map[string]uint32{
		"Signature": ntSignature,
	}, nil)
	encodeFields(buf, testLfanew+ntSignatureSize, fileHeaderFields, map[string]uint32{
		"Machine":              pe.IMAGE_FILE_MACHINE_I386,
		"NumberOfSections":     n,
		"SizeOfOptionalHeader": optionalHeader32Size,
		"Characteristics":      pe.IMAGE_FILE_EXECUTABLE_IMAGE | pe.IMAGE_FILE_32BIT_MACHINE,
	}, nil)

	opt := map[string]uint32{
		"Magic":               magicPE32,
		"ImageBase":           testImageBase,
		"SectionAlignment":    testSectionAlign,
		"FileAlignment":       testFileAlign,
		"SizeOfImage":         imageEnd,
		"SizeOfHeaders":       headersEnd,
		"Subsystem":           pe.IMAGE_SUBSYSTEM_WINDOWS_CUI,
		"NumberOfRvaAndSizes": numberOfDirectories,
	}
	for i, name := range directoryNames {
		opt[name+".VirtualAddress"] = ti.directories[i].VirtualAddress
		opt[name+".Size"] = ti.directories[i].Size
	}
	encodeFields(buf, testLfanew+ntSignatureSize+fileHeaderSize, optionalHeaderFields, opt, nil)

	for i, s := range ti.sections {
		virtualSize := s.virtualSize
		if virtualSize == 0 {
			virtualSize = uint32(len(s.data))
		}
		encodeFields(buf, testSectionTable+uint32(i)*sectionHeaderSize, sectionHeaderFields, map[string]uint32{
			"VirtualSize":      virtualSize,
			"VirtualAddress":   s.virtualAddress,
			"SizeOfRawData":    testAlign(uint32(len(s.data)), testFileAlign),
			"PointerToRawData": pointers[i],
			"Characteristics":  s.characteristics,
		}, map[string][]byte{
			"Name": []byte(s.name),
		})
		copy(buf[pointers[i]:], s.data)
	}

	return buf
}

// encodeFields is the inverse of decodeFields.
func encodeFields(buf []byte, base uint32, table []FieldSpec, values map[string]uint32, raw map[string][]byte) {
	pos := base
	for _, spec := range table {
		chunk := buf[pos : pos+uint32(spec.Width)]
		switch spec.Width {
		case 1:
			chunk[0] = byte(values[spec.Label])
		case 2:
			binary.LittleEndian.PutUint16(chunk, uint16(values[spec.Label]))
		case 4:
			binary.LittleEndian.PutUint32(chunk, values[spec.Label])
		default:
			copy(chunk, raw[spec.Label])
		}
		pos += uint32(spec.Width)
	}
}

func testAlign(v, a uint32) uint32 {
	return (v + a - 1) / a * a
}

func put16(b []byte, off int, v uint16) {
	binary.LittleEndian.PutUint16(b[off:], v)
}

func put32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:], v)
}

func putString(b []byte, off int, s string) {
	copy(b[off:], s)
	b[off+len(s)] = 0
}

// Common section layouts.

const (
	textRVA  = 0x1000
	rdataRVA = 0x2000
	idataRVA = 0x3000
	relocRVA = 0x4000
	dataRVA  = 0x5000
)

func textSection() testSection {
	data := make([]byte, 0x200)
	data[0] = 0xC3
	put32(data, 0x10, testImageBase+0x1234)
	put32(data, 0x24, testImageBase+0x5678)
	return testSection{
		name:            ".text",
		virtualAddress:  textRVA,
		data:            data,
		characteristics: pe.IMAGE_SCN_CNT_CODE | pe.IMAGE_SCN_MEM_READ | pe.IMAGE_SCN_MEM_EXECUTE,
	}
}

func dataSection() testSection {
	data := make([]byte, 0x200)
	put32(data, 0x08, testImageBase+0xABCD)
	return testSection{
		name:            ".data",
		virtualAddress:  dataRVA,
		data:            data,
		characteristics: pe.IMAGE_SCN_CNT_INITIALIZED_DATA | pe.IMAGE_SCN_MEM_READ | pe.IMAGE_SCN_MEM_WRITE,
	}
}

// exportSection lays out an export directory for test.dll with two
// functions, both exported by name: "alpha" is function 1 and "beta" is
// function 0.
func exportSection() testSection {
	data := make([]byte, 0x200)
	encodeFields(data, 0, exportDirectoryFields, map[string]uint32{
		"Name":                  rdataRVA + 0x80,
		"Base":                  1,
		"NumberOfFunctions":     2,
		"NumberOfNames":         2,
		"AddressOfFunctions":    rdataRVA + 0x40,
		"AddressOfNames":        rdataRVA + 0x60,
		"AddressOfNameOrdinals": rdataRVA + 0x70,
	}, nil)
	put32(data, 0x40, textRVA+0x100)
	put32(data, 0x44, textRVA+0x180)
	put32(data, 0x60, rdataRVA+0x90)
	put32(data, 0x64, rdataRVA+0x98)
	put16(data, 0x70, 1)
	put16(data, 0x72, 0)
	putString(data, 0x80, "test.dll")
	putString(data, 0x90, "alpha")
	putString(data, 0x98, "beta")
	return testSection{
		name:            ".rdata",
		virtualAddress:  rdataRVA,
		data:            data,
		characteristics: pe.IMAGE_SCN_CNT_INITIALIZED_DATA | pe.IMAGE_SCN_MEM_READ,
	}
}

// importSection lays out one import descriptor for kernel32.dll with an
// ordinal thunk (16) followed by a name thunk (ExitProcess, hint 0x123).
// nameRVA overrides the descriptor's Name field when non-zero.
func importSection(nameRVA uint32) testSection {
	if nameRVA == 0 {
		nameRVA = idataRVA + 0x80
	}
	data := make([]byte, 0x200)
	encodeFields(data, 0, importDescriptorFields, map[string]uint32{
		"OriginalFirstThunk": idataRVA + 0x40,
		"Name":               nameRVA,
		"FirstThunk":         idataRVA + 0x60,
	}, nil)
	for _, base := range []int{0x40, 0x60} {
		put32(data, base, ordinalFlag32|16)
		put32(data, base+4, idataRVA+0xA0)
	}
	putString(data, 0x80, "kernel32.dll")
	put16(data, 0xA0, 0x123)
	putString(data, 0xA2, "ExitProcess")
	return testSection{
		name:            ".idata",
		virtualAddress:  idataRVA,
		data:            data,
		characteristics: pe.IMAGE_SCN_CNT_INITIALIZED_DATA | pe.IMAGE_SCN_MEM_READ | pe.IMAGE_SCN_MEM_WRITE,
	}
}
