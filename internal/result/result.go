// Package result defines the core data model of the console: AI inference
// results as delivered by the backend, the stream roster, and the bounded
// in-memory store that reconciles snapshot and push deliveries.
package result

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AlertLevel is the ordinal severity of a result: info < warning < critical.
type AlertLevel string

const (
	LevelInfo     AlertLevel = "info"
	LevelWarning  AlertLevel = "warning"
	LevelCritical AlertLevel = "critical"
)

// Rank returns the ordinal position of the level. Unknown levels rank below
// info so malformed data sorts first rather than masquerading as urgent.
func (l AlertLevel) Rank() int {
	switch l {
	case LevelInfo:
		return 1
	case LevelWarning:
		return 2
	case LevelCritical:
		return 3
	default:
		return 0
	}
}

// Valid reports whether l is one of the three known levels.
func (l AlertLevel) Valid() bool {
	return l == LevelInfo || l == LevelWarning || l == LevelCritical
}

// ParseLevel normalizes a user-supplied level string.
func ParseLevel(s string) (AlertLevel, error) {
	l := AlertLevel(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("unknown alert level %q (want info, warning or critical)", s)
	}
	return l, nil
}

// AIResult is one inference event. Immutable once admitted to the store.
// Payload is the model-specific result body, preserved but never interpreted.
type AIResult struct {
	StreamID   string          `json:"stream_id"`
	ModelName  string          `json:"model_name"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"results,omitempty"`
	Confidence float64         `json:"confidence"`
	AlertLevel AlertLevel      `json:"alert_level"`
}

// timestampLayouts are the accepted wire formats, in order of preference.
// The backend emits Python isoformat timestamps, which carry no zone suffix.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// UnmarshalJSON decodes a result, accepting both RFC3339 and zone-less
// isoformat timestamps.
func (r *AIResult) UnmarshalJSON(data []byte) error {
	type wire struct {
		StreamID   string          `json:"stream_id"`
		ModelName  string          `json:"model_name"`
		Timestamp  string          `json:"timestamp"`
		Payload    json.RawMessage `json:"results"`
		Confidence float64         `json:"confidence"`
		AlertLevel AlertLevel      `json:"alert_level"`
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	ts, err := ParseTimestamp(w.Timestamp)
	if err != nil {
		return err
	}
	*r = AIResult{
		StreamID:   w.StreamID,
		ModelName:  w.ModelName,
		Timestamp:  ts,
		Payload:    w.Payload,
		Confidence: w.Confidence,
		AlertLevel: w.AlertLevel,
	}
	return nil
}

// ParseTimestamp parses a wire timestamp into an instant.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// SearchText returns the lowercase text a free-text search matches against:
// the stream id, the model name and the payload body.
func (r AIResult) SearchText() string {
	return strings.ToLower(r.StreamID + " " + r.ModelName + " " + string(r.Payload))
}

// StreamConfig is the writable part of a stream definition, sent when
// creating a stream.
type StreamConfig struct {
	StreamID   string   `json:"stream_id"`
	Source     string   `json:"source"` // webcam | rtsp | file
	SourcePath string   `json:"source_path"`
	AIModels   []string `json:"ai_models"`
	IsActive   bool     `json:"is_active"`
}

// StreamInfo is one entry of the read-only stream roster owned by the
// backend. The console uses it to populate filter options and to correlate
// results with their source.
type StreamInfo struct {
	StreamID   string       `json:"stream_id"`
	Config     StreamConfig `json:"config"`
	IsRunning  bool         `json:"is_running"`
	LastUpdate string       `json:"last_update"`
	FrameCount int          `json:"frame_count"`
}

// DashboardStats is the backend's aggregate health summary.
type DashboardStats struct {
	ActiveStreams int            `json:"active_streams"`
	TotalStreams  int            `json:"total_streams"`
	RecentResults int            `json:"recent_results"`
	Alerts        int            `json:"alerts"`
	AlertCounts   map[string]int `json:"alert_breakdown"`
	Timestamp     string         `json:"timestamp"`
}

// ModelInfo describes one AI model available on the backend.
type ModelInfo struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	VisionEnabled bool   `json:"anthropic_enabled"`
}
