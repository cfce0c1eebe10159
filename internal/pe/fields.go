package pe

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// FieldSpec describes one entry of a fixed-layout record: its width in bytes
// and its label. Widths 1, 2 and 4 are little-endian integers; widths 8 and
// 20 are reserved or padding blocks kept as raw bytes.
type FieldSpec struct {
	Width int
	Label string
}

// Field is one decoded entry of a record.
type Field struct {
	Offset uint32 // File offset of the first byte.
	Label  string
	Width  int
	Value  uint32 // Integer value for widths 1, 2 and 4.
	Raw    []byte // Copied bytes for raw blocks and strings.
	Text   string // Resolved text (section name, library name, ...), if any.
}

// IsRaw reports whether the field is a byte block rather than an integer.
func (f Field) IsRaw() bool {
	return f.Raw != nil
}

// ValueString renders the field value the way a hex viewer shows it.
func (f Field) ValueString() string {
	var v string
	switch {
	case f.IsRaw():
		v = hex.EncodeToString(f.Raw)
	case f.Width == 1:
		v = fmt.Sprintf("%02x", f.Value)
	case f.Width == 2:
		v = fmt.Sprintf("%04x", f.Value)
	case f.Width == 4:
		v = fmt.Sprintf("%08x", f.Value)
	default:
		// ASCIIZ string fields carry only text.
		return fmt.Sprintf("%q", f.Text)
	}

	if f.Text != "" {
		return fmt.Sprintf("%s %q", v, f.Text)
	}
	return v
}

func (f Field) String() string {
	return fmt.Sprintf("%08x %-28s : %s", f.Offset, f.Label, f.ValueString())
}

func isRawWidth(width int) bool {
	return width == 8 || width == 20
}

// tableSize is the byte length of a record laid out by table.
func tableSize(table []FieldSpec) uint32 {
	var n uint32
	for _, spec := range table {
		n += uint32(spec.Width)
	}
	return n
}

// decodeFields applies table at base. Offsets are the running sum of the
// preceding widths.
func decodeFields(img image, base uint32, table []FieldSpec) ([]Field, error) {
	data, err := img.span(base, tableSize(table))
	if err != nil {
		return nil, err
	}

	fields := make([]Field, 0, len(table))
	pos := 0
	for _, spec := range table {
		chunk := data[pos : pos+spec.Width]
		f := Field{
			Offset: base + uint32(pos),
			Label:  spec.Label,
			Width:  spec.Width,
		}

		switch {
		case isRawWidth(spec.Width):
			f.Raw = append([]byte(nil), chunk...)
		case spec.Width == 1:
			f.Value = uint32(chunk[0])
		case spec.Width == 2:
			f.Value = uint32(binary.LittleEndian.Uint16(chunk))
		case spec.Width == 4:
			f.Value = binary.LittleEndian.Uint32(chunk)
		default:
			return nil, fmt.Errorf("不支持的字段宽度 %d (%s)", spec.Width, spec.Label)
		}

		fields = append(fields, f)
		pos += spec.Width
	}

	return fields, nil
}

// lookup returns the field with the given label.
func lookup(fields []Field, label string) (Field, bool) {
	for _, f := range fields {
		if f.Label == label {
			return f, true
		}
	}
	return Field{}, false
}

// valueOf returns the integer value of the labelled field, or 0.
func valueOf(fields []Field, label string) uint32 {
	f, _ := lookup(fields, label)
	return f.Value
}

// setText attaches resolved text to the labelled field.
func setText(fields []Field, label, text string) {
	for i := range fields {
		if fields[i].Label == label {
			fields[i].Text = text
			return
		}
	}
}

var dosHeaderFields = []FieldSpec{
	{2, "e_magic"},
	{2, "e_cblp"},
	{2, "e_cp"},
	{2, "e_crlc"},
	{2, "e_cparhdr"},
	{2, "e_minalloc"},
	{2, "e_maxalloc"},
	{2, "e_ss"},
	{2, "e_sp"},
	{2, "e_csum"},
	{2, "e_ip"},
	{2, "e_cs"},
	{2, "e_lfarlc"},
	{2, "e_ovno"},
	{8, "e_res"},
	{2, "e_oemid"},
	{2, "e_oeminfo"},
	{20, "e_res2"},
	{4, "e_lfanew"},
}

var ntSignatureFields = []FieldSpec{
	{4, "Signature"},
}

var fileHeaderFields = []FieldSpec{
	{2, "Machine"},
	{2, "NumberOfSections"},
	{4, "TimeDateStamp"},
	{4, "PointerToSymbolTable"},
	{4, "NumberOfSymbols"},
	{2, "SizeOfOptionalHeader"},
	{2, "Characteristics"},
}

// directoryNames indexes the 16 optional-header data directories.
var directoryNames = [numberOfDirectories]string{
	"Export",
	"Import",
	"Resource",
	"Exception",
	"Security",
	"BaseReloc",
	"Debug",
	"Architecture",
	"GlobalPtr",
	"TLS",
	"LoadConfig",
	"BoundImport",
	"IAT",
	"DelayImport",
	"COMDescriptor",
	"Reserved",
}

var optionalHeaderFields = append([]FieldSpec{
	{2, "Magic"},
	{1, "MajorLinkerVersion"},
	{1, "MinorLinkerVersion"},
	{4, "SizeOfCode"},
	{4, "SizeOfInitializedData"},
	{4, "SizeOfUninitializedData"},
	{4, "AddressOfEntryPoint"},
	{4, "BaseOfCode"},
	{4, "BaseOfData"},
	{4, "ImageBase"},
	{4, "SectionAlignment"},
	{4, "FileAlignment"},
	{2, "MajorOperatingSystemVersion"},
	{2, "MinorOperatingSystemVersion"},
	{2, "MajorImageVersion"},
	{2, "MinorImageVersion"},
	{2, "MajorSubsystemVersion"},
	{2, "MinorSubsystemVersion"},
	{4, "Win32VersionValue"},
	{4, "SizeOfImage"},
	{4, "SizeOfHeaders"},
	{4, "CheckSum"},
	{2, "Subsystem"},
	{2, "DllCharacteristics"},
	{4, "SizeOfStackReserve"},
	{4, "SizeOfStackCommit"},
	{4, "SizeOfHeapReserve"},
	{4, "SizeOfHeapCommit"},
	{4, "LoaderFlags"},
	{4, "NumberOfRvaAndSizes"},
}, dataDirectoryFields()...)

func dataDirectoryFields() []FieldSpec {
	table := make([]FieldSpec, 0, 2*numberOfDirectories)
	for _, name := range directoryNames {
		table = append(table,
			FieldSpec{4, name + ".VirtualAddress"},
			FieldSpec{4, name + ".Size"},
		)
	}
	return table
}

var sectionHeaderFields = []FieldSpec{
	{8, "Name"},
	{4, "VirtualSize"},
	{4, "VirtualAddress"},
	{4, "SizeOfRawData"},
	{4, "PointerToRawData"},
	{4, "PointerToRelocations"},
	{4, "PointerToLinenumbers"},
	{2, "NumberOfRelocations"},
	{2, "NumberOfLinenumbers"},
	{4, "Characteristics"},
}

var exportDirectoryFields = []FieldSpec{
	{4, "Characteristics"},
	{4, "TimeDateStamp"},
	{2, "MajorVersion"},
	{2, "MinorVersion"},
	{4, "Name"},
	{4, "Base"},
	{4, "NumberOfFunctions"},
	{4, "NumberOfNames"},
	{4, "AddressOfFunctions"},
	{4, "AddressOfNames"},
	{4, "AddressOfNameOrdinals"},
}

var importDescriptorFields = []FieldSpec{
	{4, "OriginalFirstThunk"},
	{4, "TimeDateStamp"},
	{4, "ForwarderChain"},
	{4, "Name"},
	{4, "FirstThunk"},
}

var baseRelocationFields = []FieldSpec{
	{4, "VirtualAddress"},
	{4, "SizeOfBlock"},
}
