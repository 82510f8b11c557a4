package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/visorlabs/visor/internal/result"
)

func sample() []result.AIResult {
	return []result.AIResult{
		{
			StreamID:   "cam1",
			ModelName:  "object_detection",
			Timestamp:  time.Date(2026, 8, 29, 10, 15, 0, 0, time.UTC),
			Payload:    json.RawMessage(`{"count":2}`),
			Confidence: 0.85,
			AlertLevel: result.LevelWarning,
		},
		{
			StreamID:   "cam2",
			ModelName:  "defect_analysis",
			Timestamp:  time.Date(2026, 8, 29, 10, 16, 0, 0, time.UTC),
			Confidence: 0.5,
			AlertLevel: result.LevelInfo,
		},
	}
}

func TestWriteJSON_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sample()); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var doc struct {
		Total   int               `json:"total"`
		Results []result.AIResult `json:"results"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if doc.Total != 2 || len(doc.Results) != 2 {
		t.Fatalf("expected 2 results, got total=%d len=%d", doc.Total, len(doc.Results))
	}
	if doc.Results[0].StreamID != "cam1" || doc.Results[1].StreamID != "cam2" {
		t.Fatal("export changed input order")
	}
	if string(doc.Results[0].Payload) != `{"count":2}` {
		t.Fatalf("payload not carried verbatim: %s", doc.Results[0].Payload)
	}
}

func TestWriteJSON_EmptyViewIsValid(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if !json.Valid(buf.Bytes()) {
		t.Fatal("empty export is not valid JSON")
	}
}

func TestWriteCSV_ParsesBack(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sample()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("export is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "stream_id" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "cam1" || rows[1][3] != "warning" || rows[1][4] != "0.85" {
		t.Fatalf("unexpected row: %v", rows[1])
	}
	if rows[1][5] != `{"count":2}` {
		t.Fatalf("payload column wrong: %q", rows[1][5])
	}
}
