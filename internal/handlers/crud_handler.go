package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/grvbrk/intra_catalog/internal/catalog"
	"github.com/grvbrk/intra_catalog/internal/middlewares"
	"github.com/grvbrk/intra_catalog/internal/utils"
	"github.com/rs/zerolog"
)

// CrudHandler serves the admin create/edit/delete routes of one entity kind
// through the signed-in admin's controller.
type CrudHandler[R catalog.Entity[D], D any] struct {
	workspaces *AdminWorkspaces
	pick       func(*Workspace) *catalog.Controller[R, D]
	Logger     zerolog.Logger
}

func NewCrudHandler[R catalog.Entity[D], D any](workspaces *AdminWorkspaces, pick func(*Workspace) *catalog.Controller[R, D], logger zerolog.Logger) *CrudHandler[R, D] {
	return &CrudHandler[R, D]{
		workspaces: workspaces,
		pick:       pick,
		Logger:     logger,
	}
}

func (h *CrudHandler[R, D]) controller(w http.ResponseWriter, r *http.Request) (*catalog.Controller[R, D], bool) {
	admin, ok := middlewares.GetAdminFromContext(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.Envelope{"error": "Admin access required"})
		return nil, false
	}
	return h.pick(h.workspaces.For(admin.ID)), true
}

func (h *CrudHandler[R, D]) HandlerList(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	records, err := ctrl.Reload(r.Context())
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"data": records, "state": ctrl.State(), "loaded_at": ctrl.Records().LoadedAt()})
}

// HandlerState reports the form state and how the current snapshot was
// obtained. last_error is set when the latest listing failed.
func (h *CrudHandler[R, D]) HandlerState(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var lastError *string
	if err := ctrl.Records().LastError(); err != nil {
		msg := err.Error()
		lastError = &msg
	}
	utils.WriteJSON(w, http.StatusOK, utils.Envelope{
		"data":       ctrl.State(),
		"loaded_at":  ctrl.Records().LoadedAt(),
		"last_error": lastError,
	})
}

func (h *CrudHandler[R, D]) HandlerSubmit(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var draft D
	if err := utils.ReadJSON(w, r, &draft); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.Envelope{"error": err.Error()})
		return
	}

	saved, err := ctrl.Submit(r.Context(), draft)
	if err != nil {
		var storeErr *catalog.StoreError
		// the mutation went through; only the reload after it failed
		if errors.As(err, &storeErr) && storeErr.Op == "list" {
			h.Logger.Warn().Err(err).Msg("reload after submit failed")
			utils.WriteJSON(w, http.StatusOK, utils.Envelope{"data": saved, "state": ctrl.State(), "warning": err.Error()})
			return
		}
		writeCatalogError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"data": saved, "records": ctrl.Records().Snapshot(), "state": ctrl.State()})
}

func (h *CrudHandler[R, D]) HandlerStartEdit(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	id, err := utils.ReadIDParam(r, "id")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.Envelope{"error": err.Error()})
		return
	}

	record, found := ctrl.Find(id)
	if !found {
		if _, err := ctrl.Reload(r.Context()); err != nil {
			writeCatalogError(w, r, err)
			return
		}
		record, found = ctrl.Find(id)
	}
	if !found {
		utils.WriteJSON(w, http.StatusNotFound, utils.Envelope{"error": "record not found"})
		return
	}

	if err := ctrl.StartEdit(record); err != nil {
		writeCatalogError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"data": ctrl.State()})
}

func (h *CrudHandler[R, D]) HandlerStartCreate(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	if err := ctrl.StartCreate(); err != nil {
		writeCatalogError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"data": ctrl.State()})
}

func (h *CrudHandler[R, D]) HandlerCancel(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	ctrl.Cancel()
	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"data": ctrl.State()})
}

func (h *CrudHandler[R, D]) HandlerDelete(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	id, err := utils.ReadIDParam(r, "id")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.Envelope{"error": err.Error()})
		return
	}

	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))

	err = ctrl.Delete(r.Context(), id, confirmed)
	if err != nil {
		var storeErr *catalog.StoreError
		if errors.As(err, &storeErr) && storeErr.Op == "list" {
			h.Logger.Warn().Err(err).Msg("reload after delete failed")
			utils.WriteJSON(w, http.StatusOK, utils.Envelope{"message": "deleted", "state": ctrl.State(), "warning": err.Error()})
			return
		}
		writeCatalogError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"message": "deleted", "records": ctrl.Records().Snapshot(), "state": ctrl.State()})
}
