package pe

import "github.com/pkg/errors"

const (
	dosHeaderSize        = 64
	ntSignatureSize      = 4
	fileHeaderSize       = 20
	optionalHeader32Size = 224
	ntHeadersSize        = ntSignatureSize + fileHeaderSize + optionalHeader32Size
	sectionHeaderSize    = 40
	numberOfDirectories  = 16

	ntSignature   = 0x00004550 // "PE\0\0"
	magicPE32     = 0x10b
	magicPE32Plus = 0x20b
)

// DataDirectory is one entry of the optional header directory table.
type DataDirectory struct {
	VirtualAddress uint32
	Size           uint32
}

// Headers holds the values later decode stages depend on, plus the decoded
// header subtree.
type Headers struct {
	Lfanew               uint32
	Machine              uint16
	NumberOfSections     uint16
	SizeOfOptionalHeader uint16
	Magic                uint16
	ImageBase            uint32
	SectionAlignment     uint32
	FileAlignment        uint32
	Subsystem            uint16
	DataDirectory        [numberOfDirectories]DataDirectory

	Node     *Node
	warnings []Diagnostic
}

// SectionTableOffset is where the first section header starts: right after
// the fixed-size PE32 NT headers.
func (h *Headers) SectionTableOffset() uint32 {
	return h.Lfanew + ntHeadersSize
}

// Directory returns data directory entry i (pe.IMAGE_DIRECTORY_ENTRY_*).
func (h *Headers) Directory(i int) DataDirectory {
	return h.DataDirectory[i]
}

// decodeHeaders decodes the DOS header, the NT signature, the file header
// and the PE32 optional header. The MZ signature has already been checked.
func decodeHeaders(img image) (*Headers, error) {
	dosFields, err := decodeFields(img, 0, dosHeaderFields)
	if err != nil {
		return nil, errors.Wrap(err, "读取DOS头失败")
	}

	h := &Headers{Lfanew: valueOf(dosFields, "e_lfanew")}
	if !img.contains(h.Lfanew, ntSignatureSize) {
		return nil, errors.Wrapf(ErrMalformedHeader,
			"e_lfanew 0x%X 超出文件范围 (文件大小 0x%X)", h.Lfanew, len(img))
	}

	sigFields, err := decodeFields(img, h.Lfanew, ntSignatureFields)
	if err != nil {
		return nil, err
	}
	if sig := valueOf(sigFields, "Signature"); sig != ntSignature {
		return nil, errors.Wrapf(ErrMalformedHeader, "NT签名错误: 0x%08X", sig)
	}
	setText(sigFields, "Signature", "PE")

	fileFields, err := decodeFields(img, h.Lfanew+ntSignatureSize, fileHeaderFields)
	if err != nil {
		return nil, errors.Wrap(err, "读取文件头失败")
	}
	h.Machine = uint16(valueOf(fileFields, "Machine"))
	h.NumberOfSections = uint16(valueOf(fileFields, "NumberOfSections"))
	h.SizeOfOptionalHeader = uint16(valueOf(fileFields, "SizeOfOptionalHeader"))
	setText(fileFields, "Machine", machineName(h.Machine))

	optBase := h.Lfanew + ntSignatureSize + fileHeaderSize
	optFields, err := decodeFields(img, optBase, optionalHeaderFields)
	if err != nil {
		return nil, errors.Wrap(err, "读取可选头失败")
	}
	h.Magic = uint16(valueOf(optFields, "Magic"))
	h.ImageBase = valueOf(optFields, "ImageBase")
	h.SectionAlignment = valueOf(optFields, "SectionAlignment")
	h.FileAlignment = valueOf(optFields, "FileAlignment")
	h.Subsystem = uint16(valueOf(optFields, "Subsystem"))
	for i, name := range directoryNames {
		h.DataDirectory[i] = DataDirectory{
			VirtualAddress: valueOf(optFields, name+".VirtualAddress"),
			Size:           valueOf(optFields, name+".Size"),
		}
	}
	setText(optFields, "Subsystem", getSubsystem(h.Subsystem))

	h.checkLayout()

	h.Node = &Node{
		Label: "PE Headers",
		Children: []*Node{
			{Label: "IMAGE_DOS_HEADER", Offset: 0, Fields: dosFields},
			{
				Label:  "IMAGE_NT_HEADERS",
				Offset: h.Lfanew,
				Fields: sigFields,
				Children: []*Node{
					{Label: "IMAGE_FILE_HEADER", Offset: h.Lfanew + ntSignatureSize, Fields: fileFields},
					{Label: "IMAGE_OPTIONAL_HEADER32", Offset: optBase, Fields: optFields},
				},
			},
		},
	}

	return h, nil
}

// checkLayout records header values that do not match the PE32 layout the
// decoder assumes. They are reported, not fatal.
func (h *Headers) checkLayout() {
	switch h.Magic {
	case magicPE32:
	case magicPE32Plus:
		h.warn(errors.Errorf("PE32+ 映像 (Magic=0x%X), 按 PE32 布局解析可选头", h.Magic))
	default:
		h.warn(errors.Errorf("未知的可选头 Magic 0x%X", h.Magic))
	}

	if h.SizeOfOptionalHeader != optionalHeader32Size {
		h.warn(errors.Errorf("SizeOfOptionalHeader 为 %d, 节表仍按偏移 e_lfanew+%d 读取",
			h.SizeOfOptionalHeader, ntHeadersSize))
	}

	if h.SectionAlignment == 0 {
		h.warn(errors.New("SectionAlignment 为 0, 节区按 VirtualSize 计算范围"))
	}
}

func (h *Headers) warn(err error) {
	h.warnings = append(h.warnings, Diagnostic{Table: TableHeaders, Err: err})
}
