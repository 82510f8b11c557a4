package result

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestAlertLevel_Rank(t *testing.T) {
	if !(LevelInfo.Rank() < LevelWarning.Rank() && LevelWarning.Rank() < LevelCritical.Rank()) {
		t.Fatal("expected info < warning < critical")
	}
	if AlertLevel("bogus").Rank() >= LevelInfo.Rank() {
		t.Fatal("expected unknown level to rank below info")
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel(" Critical ")
	if err != nil {
		t.Fatalf("ParseLevel: %v", err)
	}
	if l != LevelCritical {
		t.Fatalf("expected critical, got %q", l)
	}
	if _, err := ParseLevel("fatal"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestAIResult_UnmarshalWireFormats(t *testing.T) {
	// RFC3339 with zone.
	var r AIResult
	body := `{"stream_id":"cam1","model_name":"object_detection","timestamp":"2026-08-29T10:15:00Z","results":{"count":2},"confidence":0.85,"alert_level":"warning"}`
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		t.Fatalf("unmarshal RFC3339: %v", err)
	}
	if r.StreamID != "cam1" || r.AlertLevel != LevelWarning || r.Confidence != 0.85 {
		t.Fatalf("unexpected result: %+v", r)
	}

	// Python isoformat without zone, as the backend emits.
	body = `{"stream_id":"cam2","model_name":"defect_analysis","timestamp":"2026-08-29T10:15:00.123456","confidence":0.5,"alert_level":"info"}`
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		t.Fatalf("unmarshal isoformat: %v", err)
	}
	if r.Timestamp.Hour() != 10 || r.Timestamp.Minute() != 15 {
		t.Fatalf("timestamp parsed wrong: %v", r.Timestamp)
	}

	// Unparseable timestamp is an error, not a zero value.
	body = `{"stream_id":"cam3","timestamp":"yesterday","confidence":0.5,"alert_level":"info"}`
	if err := json.Unmarshal([]byte(body), &r); err == nil {
		t.Fatal("expected error for bad timestamp")
	}
}

func TestAIResult_PayloadPreserved(t *testing.T) {
	body := `{"stream_id":"cam1","model_name":"object_detection","timestamp":"2026-08-29T10:15:00Z","results":{"objects":[{"class":"person","bbox":[1,2,3,4]}]},"confidence":0.9,"alert_level":"info"}`
	var r AIResult
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var payload struct {
		Objects []struct {
			Class string `json:"class"`
		} `json:"objects"`
	}
	if err := json.Unmarshal(r.Payload, &payload); err != nil {
		t.Fatalf("payload not preserved verbatim: %v", err)
	}
	if len(payload.Objects) != 1 || payload.Objects[0].Class != "person" {
		t.Fatalf("payload content lost: %s", r.Payload)
	}
}

func TestAIResult_SearchText(t *testing.T) {
	r := AIResult{
		StreamID:  "Cam1",
		ModelName: "Object_Detection",
		Payload:   json.RawMessage(`{"class":"Person"}`),
	}
	text := r.SearchText()
	for _, want := range []string{"cam1", "object_detection", "person"} {
		if !strings.Contains(text, want) {
			t.Fatalf("search text missing %q: %s", want, text)
		}
	}
}
