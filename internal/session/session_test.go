package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/visorlabs/visor/internal/api"
	"github.com/visorlabs/visor/internal/push"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// backend fakes the subset of the REST + websocket surface a session uses.
type backend struct {
	resultsBody atomic.Value // string
	failResults atomic.Bool
	wsFrames    chan string
}

func newBackend() *backend {
	b := &backend{wsFrames: make(chan string, 16)}
	b.resultsBody.Store(`{"results":[],"total":0}`)
	return b
}

func (b *backend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/results", func(w http.ResponseWriter, r *http.Request) {
		if b.failResults.Load() {
			http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
			return
		}
		w.Write([]byte(b.resultsBody.Load().(string)))
	})
	mux.HandleFunc("/streams", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"streams":[{"stream_id":"demo_webcam","config":{"source":"webcam","source_path":"0","ai_models":["object_detection"],"is_active":true},"is_running":true,"frame_count":10}],"total":1}`))
	})
	mux.HandleFunc("/dashboard/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"active_streams":1,"total_streams":1,"recent_results":2,"alerts":0,"alert_breakdown":{}}`))
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for frame := range b.wsFrames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
	})
	return mux
}

func startSession(t *testing.T, b *backend, interval time.Duration) (*Session, func()) {
	t.Helper()
	srv := httptest.NewServer(b.handler(t))
	client := api.New(srv.URL, "", time.Second)
	channel := push.New("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", time.Minute)

	s := New(client, channel, interval)
	s.Start(context.Background())
	return s, func() {
		s.Close()
		close(b.wsFrames)
		srv.Close()
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal(msg)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSession_InitialSnapshot(t *testing.T) {
	b := newBackend()
	b.resultsBody.Store(`{"results":[
		{"stream_id":"cam1","model_name":"object_detection","timestamp":"2026-08-29T10:15:00Z","confidence":0.8,"alert_level":"info"}
	],"total":1}`)

	s, stop := startSession(t, b, time.Hour)
	defer stop()

	if got := s.Store().Len(); got != 1 {
		t.Fatalf("expected initial snapshot of 1 result, got %d", got)
	}
	if streams := s.Streams(); len(streams) != 1 || streams[0].StreamID != "demo_webcam" {
		t.Fatalf("expected roster cached, got %+v", streams)
	}
	if stats := s.Stats(); stats == nil || stats.ActiveStreams != 1 {
		t.Fatalf("expected stats cached, got %+v", stats)
	}
}

func TestSession_PushAppendsToStore(t *testing.T) {
	b := newBackend()
	s, stop := startSession(t, b, time.Hour)
	defer stop()

	b.wsFrames <- `{"type":"ai_result","data":{"stream_id":"cam2","model_name":"defect_analysis","timestamp":"2026-08-29T10:16:00Z","confidence":0.6,"alert_level":"warning"}}`

	waitFor(t, func() bool { return s.Store().Len() == 1 }, "push delivery never reached the store")
	got := s.Store().Current()
	if got[0].StreamID != "cam2" {
		t.Fatalf("unexpected stored result: %+v", got[0])
	}
}

func TestSession_MalformedPushLeavesStoreUnchanged(t *testing.T) {
	b := newBackend()
	b.resultsBody.Store(`{"results":[
		{"stream_id":"cam1","model_name":"object_detection","timestamp":"2026-08-29T10:15:00Z","confidence":0.8,"alert_level":"info"}
	],"total":1}`)
	s, stop := startSession(t, b, time.Hour)
	defer stop()

	before := s.Store().Current()

	b.wsFrames <- `{"type":"ai_result","data":"garbage"}`
	b.wsFrames <- `{"type":"ai_result","data":{"stream_id":"ok","model_name":"m","timestamp":"2026-08-29T10:17:00Z","confidence":0.5,"alert_level":"info"}}`

	// The well-formed frame lands; the malformed one before it had no effect.
	waitFor(t, func() bool { return s.Store().Len() == len(before)+1 }, "valid push never arrived")
	got := s.Store().Current()
	for i := range before {
		if got[i].StreamID != before[i].StreamID {
			t.Fatalf("existing content disturbed at %d: %+v", i, got[i])
		}
	}
	if got[len(got)-1].StreamID != "ok" {
		t.Fatalf("expected valid frame appended last, got %+v", got[len(got)-1])
	}
}

func TestSession_FailedPollKeepsStaleData(t *testing.T) {
	b := newBackend()
	b.resultsBody.Store(`{"results":[
		{"stream_id":"cam1","model_name":"object_detection","timestamp":"2026-08-29T10:15:00Z","confidence":0.8,"alert_level":"info"}
	],"total":1}`)
	s, stop := startSession(t, b, time.Hour)
	defer stop()

	b.failResults.Store(true)
	s.Refresh(context.Background())

	if got := s.Store().Len(); got != 1 {
		t.Fatalf("failed fetch should leave the store unchanged, len=%d", got)
	}
}

func TestSession_PollReconciles(t *testing.T) {
	b := newBackend()
	s, stop := startSession(t, b, 20*time.Millisecond)
	defer stop()

	// Seed some push-only entries, then let a poll replace them wholesale.
	b.wsFrames <- `{"type":"ai_result","data":{"stream_id":"push-only","model_name":"m","timestamp":"2026-08-29T10:16:00Z","confidence":0.5,"alert_level":"info"}}`
	waitFor(t, func() bool { return s.Store().Len() >= 1 }, "push delivery never arrived")

	b.resultsBody.Store(`{"results":[
		{"stream_id":"snap","model_name":"m","timestamp":"2026-08-29T10:20:00Z","confidence":0.9,"alert_level":"info"}
	],"total":1}`)

	waitFor(t, func() bool {
		cur := s.Store().Current()
		return len(cur) == 1 && cur[0].StreamID == "snap"
	}, "poll never reconciled the store to the snapshot")
}

func TestSession_CloseStopsIngestion(t *testing.T) {
	b := newBackend()
	s, stop := startSession(t, b, 20*time.Millisecond)
	defer stop()

	s.Close()
	n := s.Store().Len()

	// Deliveries after teardown must not reach the store.
	select {
	case b.wsFrames <- `{"type":"ai_result","data":{"stream_id":"late","model_name":"m","timestamp":"2026-08-29T10:21:00Z","confidence":0.5,"alert_level":"info"}}`:
	default:
	}
	time.Sleep(50 * time.Millisecond)
	if got := s.Store().Len(); got != n {
		t.Fatalf("store changed after Close: %d -> %d", n, got)
	}
}

func TestSession_ConnectedTracksChannel(t *testing.T) {
	b := newBackend()
	s, stop := startSession(t, b, time.Hour)
	defer stop()

	waitFor(t, s.Connected, "session never reported connectivity")
}
