// Package export serializes a filtered result view into downloadable
// documents. The view is exported as-is: filtering and ordering are the
// query engine's job.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/visorlabs/visor/internal/result"
)

// WriteJSON writes items as a JSON document with a small envelope carrying
// the count and export time.
func WriteJSON(w io.Writer, items []result.AIResult) error {
	doc := struct {
		ExportedAt time.Time         `json:"exported_at"`
		Total      int               `json:"total"`
		Results    []result.AIResult `json:"results"`
	}{
		ExportedAt: time.Now().UTC(),
		Total:      len(items),
		Results:    items,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

var csvHeader = []string{"stream_id", "model_name", "timestamp", "alert_level", "confidence", "results"}

// WriteCSV writes items as CSV, one row per result, payload carried as its
// compact JSON text.
func WriteCSV(w io.Writer, items []result.AIResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range items {
		row := []string{
			r.StreamID,
			r.ModelName,
			r.Timestamp.Format(time.RFC3339Nano),
			string(r.AlertLevel),
			strconv.FormatFloat(r.Confidence, 'f', -1, 64),
			string(r.Payload),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
