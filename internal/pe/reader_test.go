package pe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.exe")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestOpen(t *testing.T) {
	data := (&testImage{sections: []testSection{textSection()}}).bytes()
	path := writeTemp(t, data)

	r, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, r.FilePath())
	assert.Equal(t, int64(len(data)), r.FileSize())
	assert.Equal(t, data, r.Bytes())

	m, err := r.Build(DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, r.Close())

	// The model must not refer to the unmapped file.
	require.Len(t, m.Roots, 2)
	name, _ := m.Roots[1].Field("Name")
	assert.Equal(t, []byte(".text\x00\x00\x00"), name.Raw)
}

func TestOpenEmptyFile(t *testing.T) {
	r, err := Open(writeTemp(t, nil))
	require.NoError(t, err)
	defer r.Close()

	assert.Empty(t, r.Bytes())
	_, err = r.Build(DefaultOptions())
	assert.True(t, errors.Is(err, ErrNotAnImage))
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.exe"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
