package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ZacharyZcR/PEView/internal/pe"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewPEErrors(t *testing.T) {
	dir := t.TempDir()

	notPE := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notPE, []byte("plain text, no MZ"), 0o644))

	err := viewPE(notPE)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pe.ErrNotAnImage), "got %v", err)

	err = viewPE(filepath.Join(dir, "missing.exe"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)
}

func TestViewPEMalformedHeader(t *testing.T) {
	buf := make([]byte, 0x100)
	copy(buf, "MZ")
	buf[0x3C] = 0xF0 // e_lfanew; no PE signature there

	path := filepath.Join(t.TempDir(), "bad.exe")
	require.NoError(t, os.WriteFile(path, buf, 0o644))

	err := viewPE(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pe.ErrMalformedHeader), "got %v", err)
}
