package pe

import (
	"debug/pe"
	"fmt"
)

func machineName(machine uint16) string {
	switch machine {
	case pe.IMAGE_FILE_MACHINE_I386:
		return "x86 (32位)"
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return "x64 (64位)"
	case pe.IMAGE_FILE_MACHINE_ARM, pe.IMAGE_FILE_MACHINE_ARMNT:
		return "ARM"
	case pe.IMAGE_FILE_MACHINE_ARM64:
		return "ARM64"
	case pe.IMAGE_FILE_MACHINE_IA64:
		return "IA64"
	case pe.IMAGE_FILE_MACHINE_UNKNOWN:
		return "未指定"
	default:
		return fmt.Sprintf("未知 (0x%X)", machine)
	}
}

func getSubsystem(subsystem uint16) string {
	switch subsystem {
	case pe.IMAGE_SUBSYSTEM_WINDOWS_GUI:
		return "Windows GUI"
	case pe.IMAGE_SUBSYSTEM_WINDOWS_CUI:
		return "Windows 控制台"
	case pe.IMAGE_SUBSYSTEM_NATIVE:
		return "Native"
	case pe.IMAGE_SUBSYSTEM_EFI_APPLICATION:
		return "EFI 应用"
	default:
		return fmt.Sprintf("未知 (0x%X)", subsystem)
	}
}

func getSectionPermissions(c uint32) string {
	perms := [3]byte{'-', '-', '-'}

	if c&pe.IMAGE_SCN_MEM_READ != 0 {
		perms[0] = 'R'
	}
	if c&pe.IMAGE_SCN_MEM_WRITE != 0 {
		perms[1] = 'W'
	}
	if c&pe.IMAGE_SCN_MEM_EXECUTE != 0 {
		perms[2] = 'X'
	}

	return string(perms[:])
}

// relocation types, IMAGE_REL_BASED_*.
const (
	relBasedAbsolute      = 0
	relBasedHigh          = 1
	relBasedLow           = 2
	relBasedHighLow       = 3
	relBasedHighAdj       = 4
	relBasedMIPSJmpAddr   = 5
	relBasedThumbMov32    = 7
	relBasedMIPSJmpAddr16 = 9
	relBasedDir64         = 10
)

// RelocationTypeName returns the IMAGE_REL_BASED_* name of a relocation type.
func RelocationTypeName(relocType uint16) string {
	switch relocType {
	case relBasedAbsolute:
		return "ABSOLUTE"
	case relBasedHigh:
		return "HIGH"
	case relBasedLow:
		return "LOW"
	case relBasedHighLow:
		return "HIGHLOW"
	case relBasedHighAdj:
		return "HIGHADJ"
	case relBasedMIPSJmpAddr:
		return "MIPS_JMPADDR/ARM_MOV32"
	case relBasedThumbMov32:
		return "THUMB_MOV32"
	case relBasedMIPSJmpAddr16:
		return "MIPS_JMPADDR16"
	case relBasedDir64:
		return "DIR64"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", relocType)
	}
}
