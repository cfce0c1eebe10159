package pe

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// image is a read-only view of the file contents with bounds-checked
// little-endian accessors. Offsets are file offsets.
type image []byte

// span returns n bytes at off, or ErrTruncatedBuffer if any of them lies
// past the end of the buffer.
func (b image) span(off, n uint32) ([]byte, error) {
	end := uint64(off) + uint64(n)
	if end > uint64(len(b)) {
		return nil, errors.Wrapf(ErrTruncatedBuffer,
			"偏移 0x%X 处读取 %d 字节 (文件大小 0x%X)", off, n, len(b))
	}
	return b[off:end], nil
}

func (b image) contains(off, n uint32) bool {
	return uint64(off)+uint64(n) <= uint64(len(b))
}

func (b image) uint16At(off uint32) (uint16, error) {
	data, err := b.span(off, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(data), nil
}

func (b image) uint32At(off uint32) (uint32, error) {
	data, err := b.span(off, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

// cstring reads a NUL-terminated ASCII string at off. At most limit bytes are
// returned; a longer string is cut at limit. Running off the end of the
// buffer before a NUL is a truncation error.
func (b image) cstring(off uint32, limit int) (string, error) {
	if !b.contains(off, 1) {
		return "", errors.Wrapf(ErrTruncatedBuffer, "字符串偏移 0x%X 超出文件范围", off)
	}

	rest := b[off:]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		if len(rest) <= limit {
			return "", errors.Wrapf(ErrTruncatedBuffer, "偏移 0x%X 处的字符串没有结束符", off)
		}
		end = limit
	}
	if end > limit {
		end = limit
	}

	return string(rest[:end]), nil
}
