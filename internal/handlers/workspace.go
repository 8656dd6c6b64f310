package handlers

import (
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/grvbrk/intra_catalog/internal/auth"
	"github.com/grvbrk/intra_catalog/internal/catalog"
	"github.com/grvbrk/intra_catalog/internal/models"
	"github.com/grvbrk/intra_catalog/internal/store"
	"github.com/rs/zerolog"
)

type VideoController = catalog.Controller[models.Video, models.VideoDraft]
type VehicleController = catalog.Controller[models.Vehicle, models.VehicleDraft]

// Workspace is one admin's form state for both entity kinds.
type Workspace struct {
	Videos   *VideoController
	Vehicles *VehicleController
}

// AdminWorkspaces hands every signed-in admin their own controllers so two
// editors never share an edit target. Workspaces are dropped on sign-out.
type AdminWorkspaces struct {
	videos   store.VideoTable
	vehicles store.VehicleTable
	validate *validator.Validate
	logger   zerolog.Logger

	mu      sync.Mutex
	byAdmin map[uuid.UUID]*Workspace
}

func NewAdminWorkspaces(videos store.VideoTable, vehicles store.VehicleTable, validate *validator.Validate, logger zerolog.Logger) *AdminWorkspaces {
	return &AdminWorkspaces{
		videos:   videos,
		vehicles: vehicles,
		validate: validate,
		logger:   logger.With().Str("component", "admin_workspaces").Logger(),
		byAdmin:  make(map[uuid.UUID]*Workspace),
	}
}

func (aw *AdminWorkspaces) For(adminID uuid.UUID) *Workspace {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	if ws, ok := aw.byAdmin[adminID]; ok {
		return ws
	}

	log := aw.logger.With().Str("admin_id", adminID.String()).Logger()
	ws := &Workspace{
		Videos:   catalog.NewController[models.Video, models.VideoDraft]("video", aw.videos, aw.validate, log),
		Vehicles: catalog.NewController[models.Vehicle, models.VehicleDraft]("vehicle", aw.vehicles, aw.validate, log),
	}
	aw.byAdmin[adminID] = ws
	return ws
}

func (aw *AdminWorkspaces) Drop(adminID uuid.UUID) {
	aw.mu.Lock()
	defer aw.mu.Unlock()

	if _, ok := aw.byAdmin[adminID]; ok {
		delete(aw.byAdmin, adminID)
		aw.logger.Debug().Str("admin_id", adminID.String()).Msg("workspace dropped")
	}
}

func (aw *AdminWorkspaces) Len() int {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return len(aw.byAdmin)
}

// Attach drops an admin's workspace when they sign out.
func (aw *AdminWorkspaces) Attach(sessions auth.SessionProvider) (detach func()) {
	return sessions.Subscribe(func(ev auth.IdentityEvent) {
		if ev.Kind == auth.SignedOut {
			aw.Drop(ev.UserID)
		}
	})
}

func (aw *AdminWorkspaces) Validator() *validator.Validate {
	return aw.validate
}
