package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, writeCSV(path, func(f *os.File) error {
		_, err := f.WriteString("a,b\n")
		return err
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "a,b\n", string(data))

	errWrite := errors.New("write failed")
	err = writeCSV(path, func(f *os.File) error { return errWrite })
	require.ErrorIs(t, err, errWrite)

	err = writeCSV(filepath.Join(t.TempDir(), "missing", "out.csv"), func(f *os.File) error { return nil })
	require.Error(t, err)
}
