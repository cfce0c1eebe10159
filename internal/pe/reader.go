package pe

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// Reader maps a file read-only so it can be decoded in place.
type Reader struct {
	file     *os.File
	data     mmap.MMap
	filepath string
	filesize int64
}

// Open maps filepath into memory. The mapping stays valid until Close.
func Open(filepath string) (*Reader, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("打开PE文件失败: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("获取文件信息失败: %w", err)
	}

	r := &Reader{
		file:     f,
		filepath: filepath,
		filesize: stat.Size(),
	}

	// Zero-length files cannot be mapped.
	if r.filesize > 0 {
		r.data, err = mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("映射文件失败: %w", err)
		}
	}

	return r, nil
}

// Close unmaps the file and closes it. Bytes must not be used afterwards.
func (r *Reader) Close() error {
	if r.data != nil {
		if err := r.data.Unmap(); err != nil {
			r.file.Close()
			return fmt.Errorf("解除映射失败: %w", err)
		}
		r.data = nil
	}
	return r.file.Close()
}

// Bytes returns the mapped file contents.
func (r *Reader) Bytes() []byte {
	return r.data
}

// Build decodes the mapped file. The returned Model outlives the Reader.
func (r *Reader) Build(opts Options) (*Model, error) {
	return BuildWithOptions(r.data, opts)
}

// FilePath returns the file path.
func (r *Reader) FilePath() string {
	return r.filepath
}

// FileSize returns the file size in bytes.
func (r *Reader) FileSize() int64 {
	return r.filesize
}
