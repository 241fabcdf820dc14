package archive

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/parquet-go/parquet-go"
)

type EncodeResult struct {
	Data        []byte
	RecordCount int64
}

type parquetRow struct {
	RowIndex          int64  `parquet:"row_index"`
	ConversationID    string `parquet:"conversation_id"`
	SQLQuery          string `parquet:"sql_query"`
	VisualizationType string `parquet:"visualization_type"`
	ColumnsJSON       string `parquet:"columns_json"`
	RowJSON           string `parquet:"row_json"`
	ArchivedAtUnixMs  int64  `parquet:"archived_at_unix_ms"`
}

// EncodeRows writes one parquet row per result row. Each row's values are kept
// as a JSON object in column order.
func EncodeRows(record Record) (EncodeResult, error) {
	if len(record.Rows) == 0 {
		return EncodeResult{}, fmt.Errorf("rows are required")
	}

	columns, err := json.Marshal(record.Columns)
	if err != nil {
		return EncodeResult{}, fmt.Errorf("encode columns: %w", err)
	}
	archivedAt := record.CreatedAt.UTC().UnixMilli()
	rows := make([]parquetRow, 0, len(record.Rows))
	for i, row := range record.Rows {
		encoded, err := json.Marshal(row)
		if err != nil {
			return EncodeResult{}, fmt.Errorf("encode row %d: %w", i, err)
		}
		rows = append(rows, parquetRow{
			RowIndex:          int64(i),
			ConversationID:    record.ConversationID,
			SQLQuery:          record.Query,
			VisualizationType: record.VisualizationType,
			ColumnsJSON:       string(columns),
			RowJSON:           string(encoded),
			ArchivedAtUnixMs:  archivedAt,
		})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[parquetRow](buf)
	if _, err := writer.Write(rows); err != nil {
		return EncodeResult{}, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return EncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}

	return EncodeResult{Data: buf.Bytes(), RecordCount: int64(len(rows))}, nil
}

