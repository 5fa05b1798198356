// Package session keeps per-user working state between requests.
//
// Types:
//   - Session: uploaded files, produced outputs, the signature placement
//     workflow, cached page metrics and captured scan pages of one user.
//   - Store: all live sessions keyed by UUID, with an idle TTL.
//
// Expected outputs:
// - Session IDs are unique (UUID)
// - A session expires once it has been idle for longer than the TTL
// - Expiry and Delete remove every file the session owns
//
// The Store is created once at startup and injected into the API handlers.
package session

import (
	"context"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-pdftools/internal/geometry"
	"go-pdftools/internal/placement"
	"go-pdftools/internal/utils"
)

// Scan is one captured page uploaded from a scanning device.
type Scan struct {
	Seq     int       `json:"seq"`
	Path    string    `json:"-"`
	Name    string    `json:"name"`
	AddedAt time.Time `json:"addedAt"`
}

type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	lastSeen  time.Time
	files     []string
	outputs   []string
	status    string
	placement *placement.Session
	metrics   map[string][]geometry.PageMetrics
	scans     []Scan
}

func newSession(now time.Time) *Session {
	return &Session{
		ID:        utils.GenerateUUID(),
		CreatedAt: now,
		lastSeen:  now,
		status:    StatusIdle,
		placement: placement.NewSession(),
		metrics:   make(map[string][]geometry.PageMetrics),
	}
}

// Job status values.
const (
	StatusIdle       = "idle"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen) > ttl
}

func (s *Session) AddFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, path)
}

func (s *Session) SetFiles(files []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = slices.Clone(files)
}

func (s *Session) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.files)
}

func (s *Session) HasFile(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.files, path)
}

// AddOutput records a produced file so it can be downloaded and cleaned up.
func (s *Session) AddOutput(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputs = append(s.outputs, path)
}

func (s *Session) HasOutput(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.outputs, path)
}

// BeginJob moves the session from idle to in progress. It reports false when
// a job is already running.
func (s *Session) BeginJob() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusInProgress {
		return false
	}
	s.status = StatusInProgress
	return true
}

// EndJob records the outcome of the job started by BeginJob.
func (s *Session) EndJob(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ok {
		s.status = StatusDone
	} else {
		s.status = StatusIdle
	}
}

func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Placement runs fn with exclusive access to the session's placement
// workflow.
func (s *Session) Placement(fn func(p *placement.Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.placement)
}

// ResetPlacement discards the placement workflow, e.g. when a new document
// is chosen for signing.
func (s *Session) ResetPlacement() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placement = placement.NewSession()
}

// SetMetrics caches the page metrics of one document.
func (s *Session) SetMetrics(doc string, m []geometry.PageMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[doc] = slices.Clone(m)
}

func (s *Session) Metrics(doc string) ([]geometry.PageMetrics, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.metrics[doc]
	return slices.Clone(m), ok
}

// AppendScan adds a captured page and returns its sequence number. Safe to
// call while another device polls ScansSince.
func (s *Session) AppendScan(path, name string) Scan {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := Scan{Seq: len(s.scans) + 1, Path: path, Name: name, AddedAt: time.Now()}
	s.scans = append(s.scans, sc)
	return sc
}

// ScansSince returns the scans with a sequence number above cursor and the
// cursor to pass on the next poll. A poller that loses a response can resend
// its old cursor and receive the same scans again.
func (s *Session) ScansSince(cursor int) ([]Scan, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= len(s.scans) {
		return nil, len(s.scans)
	}
	return slices.Clone(s.scans[cursor:]), len(s.scans)
}

// Scans returns all captured pages in capture order.
func (s *Session) Scans() []Scan {
	out, _ := s.ScansSince(0)
	return out
}

// Cleanup removes every file the session owns.
func (s *Session) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, file := range s.files {
		os.Remove(file)
	}
	for _, file := range s.outputs {
		os.Remove(file)
	}
	for _, sc := range s.scans {
		os.Remove(sc.Path)
	}
	s.files, s.outputs, s.scans = nil, nil, nil
}

type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
	log      logrus.FieldLogger
}

func NewStore(ttl time.Duration, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		log:      log,
	}
}

func (st *Store) Create() *Session {
	s := newSession(st.now())
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	st.log.WithField("session", s.ID).Debug("session created")
	return s
}

// Get returns the session and marks it as used.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		s.touch(st.now())
	}
	return s, ok
}

// Delete removes the session and its files.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if ok {
		s.Cleanup()
	}
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions idle for longer than the TTL at now and returns how
// many were removed.
func (st *Store) Sweep(now time.Time) int {
	var expired []*Session
	st.mu.Lock()
	for id, s := range st.sessions {
		if s.expired(now, st.ttl) {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		s.Cleanup()
		st.log.WithField("session", s.ID).Info("session expired")
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep(st.now())
		}
	}
}

// CleanupAll removes every session and its files.
func (st *Store) CleanupAll() {
	st.mu.Lock()
	all := st.sessions
	st.sessions = make(map[string]*Session)
	st.mu.Unlock()
	for _, s := range all {
		s.Cleanup()
	}
}
