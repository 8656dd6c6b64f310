package catalog

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/grvbrk/intra_catalog/internal/metrics"
	"github.com/rs/zerolog"
)

// Lister is the read half of a persistent table. Implementations return
// records newest first.
type Lister[R any] interface {
	List(ctx context.Context) ([]R, error)
}

// RecordStore holds the last snapshot fetched from a Lister. It has no write
// path; callers mutate the table and then Load again.
type RecordStore[R any] struct {
	kind   string
	lister Lister[R]
	logger zerolog.Logger

	mu       sync.RWMutex
	snapshot []R
	lastErr  error
	loadedAt time.Time

	// tickets order loads against each other and against Fence calls.
	ticket    uint64
	fence     uint64
	installed uint64
}

func NewRecordStore[R any](kind string, lister Lister[R], logger zerolog.Logger) *RecordStore[R] {
	return &RecordStore[R]{
		kind:     kind,
		lister:   lister,
		logger:   logger.With().Str("component", "record_store").Str("kind", kind).Logger(),
		snapshot: []R{},
	}
}

// Load replaces the snapshot with a fresh listing. On failure the snapshot
// becomes empty and a *StoreError is returned. A listing that started before
// the latest Fence, or before a load that already landed, is discarded and the
// current snapshot is returned instead.
func (s *RecordStore[R]) Load(ctx context.Context) ([]R, error) {
	records, _, err := s.load(ctx)
	return records, err
}

// Fence marks every load still in flight as stale.
func (s *RecordStore[R]) Fence() {
	s.mu.Lock()
	s.ticket++
	s.fence = s.ticket
	s.mu.Unlock()
}

func (s *RecordStore[R]) load(ctx context.Context) ([]R, bool, error) {
	s.mu.Lock()
	s.ticket++
	ticket := s.ticket
	s.mu.Unlock()

	records, err := s.lister.List(ctx)

	s.mu.Lock()
	if ticket < s.fence || ticket < s.installed {
		current := slices.Clone(s.snapshot)
		s.mu.Unlock()
		s.logger.Debug().Uint64("ticket", ticket).Msg("discarding stale listing")
		if err != nil {
			return current, false, &StoreError{Op: "list", Kind: s.kind, Err: err}
		}
		return current, false, nil
	}
	s.installed = ticket
	s.loadedAt = time.Now()

	if err != nil {
		storeErr := &StoreError{Op: "list", Kind: s.kind, Err: err}
		s.snapshot = []R{}
		s.lastErr = storeErr
		s.mu.Unlock()

		metrics.RecordReload(s.kind, 0, err)
		s.logger.Error().Err(err).Msg("failed to load records")
		return []R{}, true, storeErr
	}

	if records == nil {
		records = []R{}
	}
	s.snapshot = records
	s.lastErr = nil
	s.mu.Unlock()

	metrics.RecordReload(s.kind, len(records), nil)
	s.logger.Debug().Int("count", len(records)).Msg("records loaded")
	return slices.Clone(records), true, nil
}

func (s *RecordStore[R]) Snapshot() []R {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.snapshot)
}

// LastError is the error of the load that produced the current snapshot.
func (s *RecordStore[R]) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *RecordStore[R]) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}
