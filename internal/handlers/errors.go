package handlers

import (
	"errors"
	"net/http"

	"github.com/grvbrk/intra_catalog/internal/catalog"
	"github.com/grvbrk/intra_catalog/internal/store"
	"github.com/grvbrk/intra_catalog/internal/utils"
	"github.com/rs/zerolog/hlog"
)

// writeCatalogError maps controller and store errors onto HTTP statuses.
func writeCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *catalog.ValidationError

	switch {
	case errors.As(err, &verr):
		utils.WriteJSON(w, http.StatusUnprocessableEntity, utils.Envelope{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, catalog.ErrBusy):
		utils.WriteJSON(w, http.StatusConflict, utils.Envelope{"error": "a submission is already in progress"})
	case errors.Is(err, catalog.ErrNotConfirmed):
		utils.WriteJSON(w, http.StatusPreconditionRequired, utils.Envelope{"error": "delete must be confirmed with confirm=true"})
	case errors.Is(err, store.ErrNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.Envelope{"error": "record not found"})
	case errors.Is(err, catalog.ErrStoreUnavailable):
		hlog.FromRequest(r).Error().Err(err).Msg("store call failed")
		utils.WriteJSON(w, http.StatusBadGateway, utils.Envelope{"error": err.Error()})
	default:
		utils.ServerError(w, r, err)
	}
}
