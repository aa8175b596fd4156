package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// eventRow is one flattened event in a Parquet export.
type eventRow struct {
	Sequence   int64  `parquet:"name=sequence, type=INT64"`
	ReceiptID  string `parquet:"name=receipt_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Operation  string `parquet:"name=operation, type=BYTE_ARRAY, convertedtype=UTF8"`
	Caller     string `parquet:"name=caller, type=BYTE_ARRAY, convertedtype=UTF8"`
	Timestamp  int64  `parquet:"name=timestamp, type=INT64"`
	Position   int32  `parquet:"name=position, type=INT32"`
	EventType  string `parquet:"name=event_type, type=BYTE_ARRAY, convertedtype=UTF8"`
	Attributes string `parquet:"name=attributes, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ExportParquet writes every event matching filter to w as Snappy compressed
// Parquet, one row per event, in sequence order. filter.Limit is ignored.
// It returns the number of rows written.
func (s *Store) ExportParquet(ctx context.Context, w io.Writer, filter Filter) (int, error) {
	pw, err := writer.NewParquetWriter(writerfile.NewWriterFile(w), new(eventRow), 1)
	if err != nil {
		return 0, fmt.Errorf("eventlog: parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	written := 0
	filter.Limit = maxListLimit
	for {
		page, err := s.List(ctx, filter)
		if err != nil {
			pw.WriteStop()
			return written, err
		}
		for _, receipt := range page {
			for pos, evt := range receipt.Events {
				attrs, err := json.Marshal(evt.Attributes)
				if err != nil {
					pw.WriteStop()
					return written, fmt.Errorf("eventlog: encode %s: %w", evt.Type, err)
				}
				row := &eventRow{
					Sequence:   int64(receipt.Sequence),
					ReceiptID:  receipt.ID,
					Operation:  receipt.Operation,
					Caller:     receipt.Caller,
					Timestamp:  int64(receipt.Timestamp),
					Position:   int32(pos),
					EventType:  evt.Type,
					Attributes: string(attrs),
				}
				if err := pw.Write(row); err != nil {
					pw.WriteStop()
					return written, fmt.Errorf("eventlog: parquet write: %w", err)
				}
				written++
			}
		}
		if len(page) < maxListLimit {
			break
		}
		filter.AfterSequence = page[len(page)-1].Sequence
	}
	if err := pw.WriteStop(); err != nil {
		return written, fmt.Errorf("eventlog: parquet flush: %w", err)
	}
	return written, nil
}
