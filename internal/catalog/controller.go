package catalog

import (
	"context"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/grvbrk/intra_catalog/internal/metrics"
	"github.com/rs/zerolog"
)

// Entity is a stored record that can be turned back into its editable draft.
type Entity[D any] interface {
	Key() uuid.UUID
	Draft() D
}

// Table is the persistent store boundary for one entity kind.
type Table[R any, D any] interface {
	Lister[R]
	Insert(ctx context.Context, draft D) (R, error)
	Update(ctx context.Context, id uuid.UUID, draft D) (R, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ControllerState is a copy of the controller's form state for rendering.
type ControllerState[D any] struct {
	Mode       Mode       `json:"mode"`
	TargetID   *uuid.UUID `json:"target_id"`
	Submitting bool       `json:"submitting"`
	Draft      D          `json:"draft"`
}

// Controller drives create/edit/delete for one entity kind. It keeps at most
// one edit target and at most one in-flight mutation; every successful
// mutation is followed by a full reload of the RecordStore.
type Controller[R Entity[D], D any] struct {
	kind     string
	table    Table[R, D]
	records  *RecordStore[R]
	validate *validator.Validate
	logger   zerolog.Logger

	mu         sync.Mutex
	mode       Mode
	target     uuid.UUID
	draft      D
	submitting bool
}

func NewController[R Entity[D], D any](kind string, table Table[R, D], validate *validator.Validate, logger zerolog.Logger) *Controller[R, D] {
	return &Controller[R, D]{
		kind:     kind,
		table:    table,
		records:  NewRecordStore[R](kind, table, logger),
		validate: validate,
		logger:   logger.With().Str("component", "crud_controller").Str("kind", kind).Logger(),
	}
}

func (c *Controller[R, D]) Kind() string {
	return c.kind
}

func (c *Controller[R, D]) Records() *RecordStore[R] {
	return c.records
}

func (c *Controller[R, D]) State() ControllerState[D] {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := ControllerState[D]{
		Mode:       c.mode,
		Submitting: c.submitting,
		Draft:      c.draft,
	}
	if c.mode == ModeEdit {
		id := c.target
		state.TargetID = &id
	}
	return state
}

func (c *Controller[R, D]) StartCreate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitting {
		return ErrBusy
	}
	c.resetLocked()
	return nil
}

// StartEdit replaces any draft in progress with the fields of record.
func (c *Controller[R, D]) StartEdit(record R) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitting {
		return ErrBusy
	}
	c.records.Fence()
	c.mode = ModeEdit
	c.target = record.Key()
	c.draft = record.Draft()
	return nil
}

// Cancel drops the edit target. It does nothing while a submission is in flight.
func (c *Controller[R, D]) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitting {
		return
	}
	c.resetLocked()
}

// Reload refreshes the snapshot and leaves edit mode if the target is gone.
// A listing overtaken by a mutation or an edit is not used to reconcile.
func (c *Controller[R, D]) Reload(ctx context.Context) ([]R, error) {
	records, fresh, err := c.records.load(ctx)
	if err != nil || !fresh {
		return records, err
	}

	c.mu.Lock()
	c.reconcileLocked(records)
	c.mu.Unlock()
	return records, nil
}

// Submit validates draft and inserts it (Create) or overwrites the edit target
// (Edit). The draft is kept on failure so it can be corrected.
func (c *Controller[R, D]) Submit(ctx context.Context, draft D) (R, error) {
	var zero R

	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return zero, ErrBusy
	}
	c.submitting = true
	c.draft = draft
	mode, target := c.mode, c.target
	c.mu.Unlock()

	if err := c.check(draft); err != nil {
		c.idle()
		return zero, err
	}

	var (
		saved R
		err   error
		op    string
	)
	if mode == ModeEdit {
		op = "update"
		saved, err = c.table.Update(ctx, target, draft)
	} else {
		op = "insert"
		saved, err = c.table.Insert(ctx, draft)
	}
	metrics.RecordMutation(c.kind, op, err)
	if err != nil {
		c.logger.Error().Err(err).Str("op", op).Str("target", target.String()).Msg("store rejected submission")
		c.idle()
		return zero, &StoreError{Op: op, Kind: c.kind, Err: err}
	}

	c.logger.Info().Str("op", op).Str("id", saved.Key().String()).Msg("submission stored")

	c.records.Fence()
	_, loadErr := c.records.Load(ctx)

	c.mu.Lock()
	c.resetLocked()
	c.submitting = false
	c.mu.Unlock()

	return saved, loadErr
}

// Delete removes id from the store and reloads. confirmed must carry the
// caller's explicit confirmation; without it nothing is sent to the store.
func (c *Controller[R, D]) Delete(ctx context.Context, id uuid.UUID, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}

	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return ErrBusy
	}
	c.submitting = true
	c.mu.Unlock()

	err := c.table.Delete(ctx, id)
	metrics.RecordMutation(c.kind, "delete", err)
	if err != nil {
		c.logger.Error().Err(err).Str("id", id.String()).Msg("store rejected delete")
		c.idle()
		return &StoreError{Op: "delete", Kind: c.kind, Err: err}
	}

	c.logger.Info().Str("id", id.String()).Msg("record deleted")

	c.records.Fence()
	records, fresh, loadErr := c.records.load(ctx)

	c.mu.Lock()
	if c.mode == ModeEdit && c.target == id {
		c.resetLocked()
	}
	if loadErr == nil && fresh {
		c.reconcileLocked(records)
	}
	c.submitting = false
	c.mu.Unlock()

	return loadErr
}

// Find looks id up in the current snapshot.
func (c *Controller[R, D]) Find(id uuid.UUID) (R, bool) {
	for _, r := range c.records.Snapshot() {
		if r.Key() == id {
			return r, true
		}
	}
	var zero R
	return zero, false
}

func (c *Controller[R, D]) check(draft D) error {
	err := c.validate.Struct(draft)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Fields: []FieldError{{Field: "draft", Rule: err.Error()}}}
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	c.logger.Debug().Err(out).Msg("draft rejected")
	return out
}

func (c *Controller[R, D]) idle() {
	c.mu.Lock()
	c.submitting = false
	c.mu.Unlock()
}

func (c *Controller[R, D]) resetLocked() {
	var zero D
	c.mode = ModeCreate
	c.target = uuid.Nil
	c.draft = zero
}

func (c *Controller[R, D]) reconcileLocked(records []R) {
	if c.mode != ModeEdit {
		return
	}
	for _, r := range records {
		if r.Key() == c.target {
			return
		}
	}
	c.logger.Info().Str("target", c.target.String()).Msg("edit target no longer exists")
	c.resetLocked()
}
