package handlers

import (
	"errors"
	"net/http"

	"github.com/grvbrk/intra_catalog/internal/auth"
	"github.com/grvbrk/intra_catalog/internal/catalog"
	"github.com/grvbrk/intra_catalog/internal/media"
	"github.com/grvbrk/intra_catalog/internal/middlewares"
	"github.com/grvbrk/intra_catalog/internal/models"
	"github.com/grvbrk/intra_catalog/internal/store"
	"github.com/grvbrk/intra_catalog/internal/utils"
	"github.com/rs/zerolog"
)

const maxImageBytes = 10 << 20

type AdminHandler struct {
	Videos     *CrudHandler[models.Video, models.VideoDraft]
	Vehicles   *CrudHandler[models.Vehicle, models.VehicleDraft]
	Workspaces *AdminWorkspaces
	UserStore  store.UserStore
	Sessions   auth.SessionProvider
	Uploader   media.Uploader
	Logger     zerolog.Logger
}

// NewAdminHandler wires the admin routes. uploader may be nil when no bucket
// is configured; image uploads then answer 503.
func NewAdminHandler(workspaces *AdminWorkspaces, userStore store.UserStore, sessions auth.SessionProvider, uploader media.Uploader, logger zerolog.Logger) *AdminHandler {
	logger = logger.With().Str("component", "admin_handler").Logger()
	return &AdminHandler{
		Videos: NewCrudHandler(workspaces, func(ws *Workspace) *catalog.Controller[models.Video, models.VideoDraft] {
			return ws.Videos
		}, logger.With().Str("kind", "video").Logger()),
		Vehicles: NewCrudHandler(workspaces, func(ws *Workspace) *catalog.Controller[models.Vehicle, models.VehicleDraft] {
			return ws.Vehicles
		}, logger.With().Str("kind", "vehicle").Logger()),
		Workspaces: workspaces,
		UserStore:  userStore,
		Sessions:   sessions,
		Uploader:   uploader,
		Logger:     logger,
	}
}

func (ah *AdminHandler) HandlerMe(w http.ResponseWriter, r *http.Request) {
	admin, ok := middlewares.GetAdminFromContext(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.Envelope{"error": "Not Authenticated"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"data": map[string]any{
		"id":    admin.ID,
		"email": admin.Email,
		"name":  admin.Name,
		"image": admin.ImageSrc,
		"role":  admin.Role,
	}})
}

func (ah *AdminHandler) HandlerLogout(w http.ResponseWriter, r *http.Request) {
	if err := ah.Sessions.SignOut(w, r); err != nil {
		utils.ServerError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"message": "signed out"})
}

func (ah *AdminHandler) HandlerGetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := ah.UserStore.ListUsers(r.Context())
	if err != nil {
		ah.Logger.Error().Err(err).Msg("error fetching users")
		utils.WriteJSON(w, http.StatusInternalServerError, utils.Envelope{"error": "Internal Server Error"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"data": users})
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=ADMIN USER"`
}

func (ah *AdminHandler) HandlerSetUserRole(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ReadIDParam(r, "id")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.Envelope{"error": err.Error()})
		return
	}

	var req roleRequest
	if err := utils.ReadJSON(w, r, &req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.Envelope{"error": err.Error()})
		return
	}
	if err := ah.Workspaces.Validator().Struct(req); err != nil {
		utils.WriteJSON(w, http.StatusUnprocessableEntity, utils.Envelope{"error": "role must be ADMIN or USER"})
		return
	}

	admin, _ := middlewares.GetAdminFromContext(r)
	if admin != nil && admin.ID == id && req.Role != models.RoleAdmin {
		utils.WriteJSON(w, http.StatusBadRequest, utils.Envelope{"error": "admins cannot remove their own role"})
		return
	}

	if err := ah.UserStore.SetUserRole(r.Context(), id, req.Role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.Envelope{"error": "user not found"})
			return
		}
		ah.Logger.Error().Err(err).Msg("error updating user role")
		utils.WriteJSON(w, http.StatusInternalServerError, utils.Envelope{"error": "Internal Server Error"})
		return
	}

	user, err := ah.UserStore.GetUserByID(r.Context(), id)
	if err != nil {
		utils.ServerError(w, r, err)
		return
	}
	if req.Role != models.RoleAdmin {
		ah.Workspaces.Drop(id)
	}

	ah.Logger.Info().Str("user_id", id.String()).Str("role", req.Role).Msg("user role updated")
	utils.WriteJSON(w, http.StatusOK, utils.Envelope{"data": user})
}

func (ah *AdminHandler) HandlerUploadVehicleImage(w http.ResponseWriter, r *http.Request) {
	if ah.Uploader == nil {
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.Envelope{"error": "image uploads are not configured"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.Envelope{"error": "invalid multipart form"})
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.Envelope{"error": "image file is required"})
		return
	}
	defer file.Close()

	ref, err := ah.Uploader.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedType) {
			utils.WriteJSON(w, http.StatusUnsupportedMediaType, utils.Envelope{"error": err.Error()})
			return
		}
		ah.Logger.Error().Err(err).Msg("error uploading vehicle image")
		utils.WriteJSON(w, http.StatusBadGateway, utils.Envelope{"error": "image upload failed"})
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.Envelope{"data": map[string]string{"image": ref}})
}
