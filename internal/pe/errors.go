package pe

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds returned by Build. Concrete failures wrap one of these, so
// callers classify with errors.Is.
var (
	// ErrNotAnImage means the buffer does not start with the MZ signature.
	ErrNotAnImage = errors.New("不是PE文件")
	// ErrMalformedHeader means e_lfanew points outside the buffer or the
	// NT signature is not PE\0\0.
	ErrMalformedHeader = errors.New("PE头格式错误")
	// ErrTruncatedBuffer means a fixed-size read would run past the end of
	// the buffer.
	ErrTruncatedBuffer = errors.New("读取数据越界")
	// ErrUnresolvableAddress means a non-zero RVA is not covered by any
	// section.
	ErrUnresolvableAddress = errors.New("RVA 不在任何节区内")
	// ErrMalformedDirectory means a directory table is self-inconsistent
	// (a relocation block shorter than its header, a walk that never
	// terminates).
	ErrMalformedDirectory = errors.New("数据目录格式错误")
)

// Table names used in diagnostics.
const (
	TableHeaders    = "headers"
	TableExport     = "export"
	TableImport     = "import"
	TableRelocation = "relocation"
)

// Diagnostic is a non-fatal decode failure attached to a Model. The decoded
// forest is complete except for the subtree named by Table.
type Diagnostic struct {
	Table string
	Err   error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %v", d.Table, d.Err)
}
