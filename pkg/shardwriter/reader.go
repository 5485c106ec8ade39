package shardwriter

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
)

// ReadTable deserializes a file written by WriteTable, returning its
// schema and rows in the same row-major, per-column-typed shape that was
// written.
func ReadTable(path string) ([]Column, [][]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	if len(data) < 8 || [4]byte(data[:4]) != Magic || [4]byte(data[len(data)-4:]) != Magic {
		return nil, nil, fmt.Errorf("shardwriter: %s is missing PAR1 sentinel", path)
	}
	body := data[4 : len(data)-4]

	if len(body) < 4 {
		return nil, nil, fmt.Errorf("shardwriter: %s truncated", path)
	}
	ftLen := binary.LittleEndian.Uint32(body[0:4])
	if uint32(len(body)) < 4+ftLen {
		return nil, nil, fmt.Errorf("shardwriter: %s footer length out of range", path)
	}
	ftBytes := body[4 : 4+ftLen]
	var ft footer
	if err := json.Unmarshal(ftBytes, &ft); err != nil {
		return nil, nil, fmt.Errorf("shardwriter: decoding footer: %w", err)
	}

	offset := int(4 + ftLen)
	rows := make([][]any, ft.RowCount)
	for i := range rows {
		rows[i] = make([]any, len(ft.Columns))
	}

	for ci, col := range ft.Columns {
		if offset+4 > len(body) {
			return nil, nil, fmt.Errorf("shardwriter: truncated chunk length for column %q", col.Name)
		}
		chunkLen := int(binary.LittleEndian.Uint32(body[offset : offset+4]))
		offset += 4
		if offset+chunkLen > len(body) {
			return nil, nil, fmt.Errorf("shardwriter: truncated chunk for column %q", col.Name)
		}
		chunk := body[offset : offset+chunkLen]
		offset += chunkLen

		pos := 0
		for ri := 0; ri < ft.RowCount; ri++ {
			switch col.Type {
			case ColString:
				if pos+4 > len(chunk) {
					return nil, nil, fmt.Errorf("shardwriter: truncated string length")
				}
				n := int(binary.LittleEndian.Uint32(chunk[pos : pos+4]))
				pos += 4
				if pos+n > len(chunk) {
					return nil, nil, fmt.Errorf("shardwriter: truncated string value")
				}
				rows[ri][ci] = string(chunk[pos : pos+n])
				pos += n
			case ColInt32:
				if pos+4 > len(chunk) {
					return nil, nil, fmt.Errorf("shardwriter: truncated i32 value")
				}
				rows[ri][ci] = int32(binary.LittleEndian.Uint32(chunk[pos : pos+4]))
				pos += 4
			case ColInt64:
				if pos+8 > len(chunk) {
					return nil, nil, fmt.Errorf("shardwriter: truncated i64 value")
				}
				rows[ri][ci] = int64(binary.LittleEndian.Uint64(chunk[pos : pos+8]))
				pos += 8
			default:
				return nil, nil, fmt.Errorf("shardwriter: unknown column type %q", col.Type)
			}
		}
	}

	return ft.Columns, rows, nil
}
