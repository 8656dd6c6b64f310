package handlers

import (
	"net/http"

	"github.com/grvbrk/intra_catalog/internal/catalog"
	"github.com/grvbrk/intra_catalog/internal/metrics"
	"github.com/grvbrk/intra_catalog/internal/models"
	"github.com/grvbrk/intra_catalog/internal/utils"
	"github.com/rs/zerolog"
)

// CatalogHandler serves the public pages. Every request loads a fresh
// snapshot; the listing cache in front of the table keeps that cheap.
type CatalogHandler struct {
	Videos   *catalog.RecordStore[models.Video]
	Vehicles *catalog.RecordStore[models.Vehicle]
	Logger   zerolog.Logger
}

func NewCatalogHandler(videos catalog.Lister[models.Video], vehicles catalog.Lister[models.Vehicle], logger zerolog.Logger) *CatalogHandler {
	logger = logger.With().Str("component", "catalog_handler").Logger()
	return &CatalogHandler{
		Videos:   catalog.NewRecordStore[models.Video]("video", videos, logger),
		Vehicles: catalog.NewRecordStore[models.Vehicle]("vehicle", vehicles, logger),
		Logger:   logger,
	}
}

type videoView struct {
	models.Video
	EmbedURL string `json:"embed_url"`
	IsShort  bool   `json:"is_short"`
}

func toVideoViews(videos []models.Video) []videoView {
	views := make([]videoView, 0, len(videos))
	for _, v := range videos {
		views = append(views, videoView{
			Video:    v,
			EmbedURL: catalog.EmbedURL(v.VideoURL),
			IsShort:  catalog.IsShort(v),
		})
	}
	return views
}

type videoListing struct {
	Videos    []videoView                    `json:"videos"`
	Options   map[catalog.Dimension][]string `json:"options"`
	Selection catalog.Selection              `json:"selection"`
	Total     int                            `json:"total"`
	Visible   int                            `json:"visible"`
}

func (ch *CatalogHandler) HandlerGetVideos(w http.ResponseWriter, r *http.Request) {
	records, err := ch.Videos.Load(r.Context())
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}

	sel := catalog.ParseSelection(r.URL.Query())
	visible := catalog.ApplyFilter(records, sel)
	metrics.RecordFilter(sel.Active())

	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"data": videoListing{
		Videos:    toVideoViews(visible),
		Options:   catalog.DeriveAllOptions(records),
		Selection: sel,
		Total:     len(records),
		Visible:   len(visible),
	}})
}

func (ch *CatalogHandler) HandlerGetVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := ch.Vehicles.Load(r.Context())
	if err != nil {
		writeCatalogError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"data": vehicles})
}

func (ch *CatalogHandler) HandlerGetApplications(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"data": models.Applications})
}
