package callstore

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Call statuses tracked between webhook pushes and client polls.
const (
	StatusInitiated  = "initiated"
	StatusRinging    = "ringing"
	StatusInProgress = "in-progress"
	StatusEnded      = "ended"
)

var (
	// ErrNotFound means the call ID is unknown or its session expired.
	ErrNotFound = errors.New("call not found")

	// ErrNotReady means the call exists but its summary is not available
	// yet.
	ErrNotReady = errors.New("call summary not ready")
)

const (
	defaultTTL           = 30 * time.Minute
	defaultSweepInterval = 5 * time.Minute
)

// session tracks one call between initiation and summary pickup.
type session struct {
	status    string
	summary   string
	ready     bool
	delivered bool
	updatedAt time.Time
}

// Store keeps in-flight call sessions in memory. Sessions expire after a
// TTL without updates so abandoned calls do not accumulate.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session

	ttl         time.Duration
	cleanupTick *time.Ticker
	cleanupDone chan struct{}
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a store with the default TTL and sweep interval.
func New(logger *slog.Logger) *Store {
	return NewWithTTL(defaultTTL, defaultSweepInterval, logger)
}

// NewWithTTL creates a store with a custom TTL and sweep interval.
func NewWithTTL(ttl, sweepInterval time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		sessions:    make(map[string]*session),
		ttl:         ttl,
		cleanupTick: time.NewTicker(sweepInterval),
		cleanupDone: make(chan struct{}),
		logger:      logger,
		now:         time.Now,
	}

	go s.sweepExpired()

	return s
}

// Create registers a new call session in the initiated state.
func (s *Store) Create(callID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[callID] = &session{
		status:    StatusInitiated,
		updatedAt: s.now(),
	}
}

// SetStatus updates the status of a call. Unknown calls are created on the
// fly since webhook pushes can arrive before the initiate response is
// recorded.
func (s *Store) SetStatus(callID, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[callID]
	if !ok {
		sess = &session{}
		s.sessions[callID] = sess
	}
	sess.status = status
	sess.updatedAt = s.now()
}

// SetSummary stores the final summary of a call and marks it ready for
// pickup.
func (s *Store) SetSummary(callID, summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[callID]
	if !ok {
		sess = &session{status: StatusEnded}
		s.sessions[callID] = sess
	}
	sess.summary = summary
	sess.ready = true
	sess.updatedAt = s.now()
}

// Status returns the current status of a call.
func (s *Store) Status(callID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[callID]
	if !ok {
		return "", ErrNotFound
	}
	return sess.status, nil
}

// TakeSummary returns the summary of a call exactly once. Until a summary
// is stored it returns ErrNotReady; a successful read clears the summary,
// so a second read reports ErrNotReady again. The session itself stays
// until the TTL sweep removes it.
func (s *Store) TakeSummary(callID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[callID]
	if !ok {
		return "", ErrNotFound
	}
	if !sess.ready {
		return "", ErrNotReady
	}
	summary := sess.summary
	sess.summary = ""
	sess.ready = false
	sess.delivered = true
	sess.updatedAt = s.now()
	return summary, nil
}

// Delivered reports whether the call's summary has already been handed to
// a client. Unknown calls report false.
func (s *Store) Delivered(callID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[callID]
	return ok && sess.delivered
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the cleanup goroutine.
func (s *Store) Close() {
	s.cleanupTick.Stop()
	close(s.cleanupDone)
}

func (s *Store) sweepExpired() {
	for {
		select {
		case <-s.cleanupTick.C:
			s.removeExpired()
		case <-s.cleanupDone:
			return
		}
	}
}

func (s *Store) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, sess := range s.sessions {
		if sess.updatedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("evicted expired call sessions", slog.Int("count", removed))
	}
}
