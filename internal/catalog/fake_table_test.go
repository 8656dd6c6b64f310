package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grvbrk/intra_catalog/internal/models"
)

var errNoRow = errors.New("no row with that id")

// fakeVideoTable is an in-process videos table that counts calls and can be
// told to fail or block.
type fakeVideoTable struct {
	mu      sync.Mutex
	rows    []models.Video
	seq     int64
	clock   time.Time
	calls   map[string]int
	failOps map[string]error
	inserts []models.VideoDraft

	block   chan struct{}
	entered chan struct{}
}

func newFakeVideoTable() *fakeVideoTable {
	return &fakeVideoTable{
		clock:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		calls:   map[string]int{},
		failOps: map[string]error{},
	}
}

func (f *fakeVideoTable) seed(drafts ...models.VideoDraft) []models.Video {
	out := make([]models.Video, 0, len(drafts))
	for _, d := range drafts {
		v, _ := f.Insert(context.Background(), d)
		out = append(out, v)
	}
	f.mu.Lock()
	f.calls = map[string]int{}
	f.inserts = nil
	f.mu.Unlock()
	return out
}

func (f *fakeVideoTable) record(op string) error {
	f.mu.Lock()
	f.calls[op]++
	err := f.failOps[op]
	block, entered := f.block, f.entered
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return err
}

func (f *fakeVideoTable) storeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for op, c := range f.calls {
		if op != "list" {
			n += c
		}
	}
	return n
}

func (f *fakeVideoTable) List(ctx context.Context) ([]models.Video, error) {
	if err := f.record("list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	// newest first
	out := make([]models.Video, 0, len(f.rows))
	for i := len(f.rows) - 1; i >= 0; i-- {
		out = append(out, f.rows[i])
	}
	return out, nil
}

func (f *fakeVideoTable) Insert(ctx context.Context, d models.VideoDraft) (models.Video, error) {
	if err := f.record("insert"); err != nil {
		return models.Video{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	f.clock = f.clock.Add(time.Second)
	v := models.Video{
		ID:           uuid.New(),
		Title:        d.Title,
		VideoURL:     d.VideoURL,
		Caption:      d.Caption,
		VehicleModel: d.VehicleModel,
		Region:       d.Region,
		Application:  models.Application(d.Application),
		IsShort:      d.IsShort,
		Seq:          f.seq,
		Created_At:   f.clock,
		Updated_At:   f.clock,
	}
	f.rows = append(f.rows, v)
	f.inserts = append(f.inserts, d)
	return v, nil
}

func (f *fakeVideoTable) Update(ctx context.Context, id uuid.UUID, d models.VideoDraft) (models.Video, error) {
	if err := f.record("update"); err != nil {
		return models.Video{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, v := range f.rows {
		if v.ID != id {
			continue
		}
		v.Title = d.Title
		v.VideoURL = d.VideoURL
		v.Caption = d.Caption
		v.VehicleModel = d.VehicleModel
		v.Region = d.Region
		v.Application = models.Application(d.Application)
		v.IsShort = d.IsShort
		f.rows[i] = v
		return v, nil
	}
	return models.Video{}, errNoRow
}

func (f *fakeVideoTable) Delete(ctx context.Context, id uuid.UUID) error {
	if err := f.record("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, v := range f.rows {
		if v.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return errNoRow
}

// heldListTable reads its rows and then waits on release before returning,
// so a listing can be overtaken by a mutation. Only the first List is held.
type heldListTable struct {
	*fakeVideoTable

	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func newHeldListTable(inner *fakeVideoTable) *heldListTable {
	return &heldListTable{
		fakeVideoTable: inner,
		read:           make(chan struct{}),
		release:        make(chan struct{}),
	}
}

func (h *heldListTable) List(ctx context.Context) ([]models.Video, error) {
	rows, err := h.fakeVideoTable.List(ctx)
	held := false
	h.once.Do(func() { held = true })
	if held {
		close(h.read)
		<-h.release
	}
	return rows, err
}
