package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grvbrk/intra_catalog/internal/catalog"
	"github.com/grvbrk/intra_catalog/internal/models"
)

// MemoryTable is an in-process table used when no database is configured.
// It assigns ids, timestamps and insertion sequence numbers the same way the
// Postgres tables do.
type MemoryTable[R catalog.Entity[D], D any] struct {
	mu    sync.RWMutex
	rows  []R
	seq   int64
	now   func() time.Time
	kind  string
	build func(id uuid.UUID, seq int64, at time.Time, d D) R
	apply func(r R, d D, at time.Time) R
}

func (m *MemoryTable[R, D]) List(ctx context.Context) ([]R, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	// rows are kept in insertion order; newest first is the reverse
	out := slices.Clone(m.rows)
	slices.Reverse(out)
	if out == nil {
		out = []R{}
	}
	return out, nil
}

func (m *MemoryTable[R, D]) Insert(ctx context.Context, d D) (R, error) {
	if err := ctx.Err(); err != nil {
		var zero R
		return zero, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	r := m.build(uuid.New(), m.seq, m.now(), d)
	m.rows = append(m.rows, r)
	return r, nil
}

func (m *MemoryTable[R, D]) Update(ctx context.Context, id uuid.UUID, d D) (R, error) {
	var zero R
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.rows {
		if r.Key() == id {
			m.rows[i] = m.apply(r, d, m.now())
			return m.rows[i], nil
		}
	}
	return zero, fmt.Errorf("%s %s: %w", m.kind, id, ErrNotFound)
}

func (m *MemoryTable[R, D]) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.rows {
		if r.Key() == id {
			m.rows = slices.Delete(m.rows, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("%s %s: %w", m.kind, id, ErrNotFound)
}

func NewMemoryVideoStore() *MemoryTable[models.Video, models.VideoDraft] {
	return &MemoryTable[models.Video, models.VideoDraft]{
		kind: "video",
		now:  time.Now,
		build: func(id uuid.UUID, seq int64, at time.Time, d models.VideoDraft) models.Video {
			v := models.Video{ID: id, Seq: seq, Created_At: at}
			return applyVideoDraft(v, d, at)
		},
		apply: applyVideoDraft,
	}
}

func applyVideoDraft(v models.Video, d models.VideoDraft, at time.Time) models.Video {
	v.Title = d.Title
	v.VideoURL = d.VideoURL
	v.Caption = nil
	if c := nullIfBlank(d.Caption); c.Valid {
		v.Caption = &c.String
	}
	v.VehicleModel = d.VehicleModel
	v.Region = d.Region
	v.Application = models.Application(d.Application)
	v.IsShort = d.IsShort
	v.Updated_At = at
	return v
}

func NewMemoryVehicleStore() *MemoryTable[models.Vehicle, models.VehicleDraft] {
	return &MemoryTable[models.Vehicle, models.VehicleDraft]{
		kind: "vehicle",
		now:  time.Now,
		build: func(id uuid.UUID, seq int64, at time.Time, d models.VehicleDraft) models.Vehicle {
			v := models.Vehicle{ID: id, Seq: seq, Created_At: at}
			return applyVehicleDraft(v, d, at)
		},
		apply: applyVehicleDraft,
	}
}

func applyVehicleDraft(v models.Vehicle, d models.VehicleDraft, at time.Time) models.Vehicle {
	v.Image = d.Image
	v.Name = d.Name
	v.SpecGVW = d.SpecGVW
	v.SpecPayload = d.SpecPayload
	v.SpecEngine = d.SpecEngine
	v.Updated_At = at
	return v
}
