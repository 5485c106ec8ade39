package shardwriter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entities.bin")

	columns := []Column{
		{Name: "entity_id", Type: ColString},
		{Name: "tier", Type: ColInt32},
		{Name: "offset", Type: ColInt64},
	}
	rows := [][]any{
		{"e_aaa", int32(2), int64(1024)},
		{"e_bbb", int32(1), int64(2048)},
	}

	require.NoError(t, WriteTable(path, columns, rows))

	gotCols, gotRows, err := ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, columns, gotCols)
	assert.Equal(t, rows, gotRows)
}

func TestWriteTableStartsAndEndsWithMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.bin")
	require.NoError(t, WriteTable(path, []Column{{Name: "x", Type: ColString}}, [][]any{{"y"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Magic[:], data[:4])
	assert.Equal(t, Magic[:], data[len(data)-4:])
}

func TestWriteTableEmptyRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	require.NoError(t, WriteTable(path, []Column{{Name: "x", Type: ColString}}, nil))

	cols, rows, err := ReadTable(path)
	require.NoError(t, err)
	assert.Len(t, cols, 1)
	assert.Empty(t, rows)
}
