// Package session wires the two result feeds into the store for the
// lifetime of one console session. The session is the store's only writer:
// a periodic snapshot poll reconciles the authoritative REST view, and push
// deliveries are appended as they arrive. Everything else reads snapshots
// via Store().Current().
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/visorlabs/visor/internal/api"
	"github.com/visorlabs/visor/internal/push"
	"github.com/visorlabs/visor/internal/result"
)

// DefaultPollInterval is the snapshot reconciliation cadence.
const DefaultPollInterval = 5 * time.Second

// Session owns the result store and both feed adapters. Created empty at
// session start, discarded at session end; nothing is persisted.
type Session struct {
	client  *api.Client
	channel *push.Channel
	store   *result.Store

	interval time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu      sync.RWMutex
	streams []result.StreamInfo
	stats   *result.DashboardStats
}

// New creates a session polling client every interval and consuming channel.
// interval <= 0 selects DefaultPollInterval.
func New(client *api.Client, channel *push.Channel, interval time.Duration) *Session {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Session{
		client:   client,
		channel:  channel,
		store:    result.NewStore(result.DefaultCapacity),
		interval: interval,
	}
}

// Store returns the session's result store. Callers must treat it as
// read-only; the session is the single writer.
func (s *Session) Store() *result.Store { return s.store }

// Connected reports push-channel connectivity, derived from channel state
// transitions only. Snapshot fetch failures do not affect it.
func (s *Session) Connected() bool { return s.channel.Connected() }

// Start fetches the initial snapshot and launches the poll and push-consumer
// loops. It returns immediately; the loops run until Close.
func (s *Session) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.refresh(ctx)
	s.channel.Start(ctx)

	s.wg.Add(2)
	go s.runPoll(ctx)
	go s.runPushConsumer()
}

// runPoll re-fetches the snapshot, the roster and the dashboard stats on the
// poll cadence. A failed fetch leaves prior state in place: stale-but-valid
// data is preferred over a cleared store.
func (s *Session) runPoll(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

// runPushConsumer appends push deliveries until the channel closes.
func (s *Session) runPushConsumer() {
	defer s.wg.Done()
	for r := range s.channel.Events() {
		s.store.IngestPush(r)
	}
}

// refresh performs one reconciliation pass.
func (s *Session) refresh(ctx context.Context) {
	results, _, err := s.client.FetchResults(ctx, api.ResultFilter{Limit: s.store.Capacity()})
	if err != nil {
		log.Printf("[session] fetch results: %v (keeping previous state)", err)
	} else {
		s.store.IngestSnapshot(results)
	}

	streams, err := s.client.FetchStreams(ctx)
	if err != nil {
		log.Printf("[session] fetch streams: %v", err)
	} else {
		s.mu.Lock()
		s.streams = streams
		s.mu.Unlock()
	}

	stats, err := s.client.FetchStats(ctx)
	if err != nil {
		log.Printf("[session] fetch stats: %v", err)
	} else {
		s.mu.Lock()
		s.stats = stats
		s.mu.Unlock()
	}
}

// Refresh forces an immediate reconciliation pass outside the poll cadence.
func (s *Session) Refresh(ctx context.Context) { s.refresh(ctx) }

// Streams returns the cached stream roster from the last successful poll.
func (s *Session) Streams() []result.StreamInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]result.StreamInfo, len(s.streams))
	copy(out, s.streams)
	return out
}

// Stats returns the cached dashboard stats, or nil before the first
// successful fetch.
func (s *Session) Stats() *result.DashboardStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Close tears the session down deterministically: the poll ticker stops, the
// push channel closes, and every loop that references the store has exited
// before Close returns.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.channel.Close()
	s.wg.Wait()
}
