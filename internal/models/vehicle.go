package models

import (
	"time"

	"github.com/google/uuid"
)

type Vehicle struct {
	ID          uuid.UUID `json:"id"`
	Image       string    `json:"image"`
	Name        string    `json:"name"`
	SpecGVW     string    `json:"spec_gvw"`
	SpecPayload string    `json:"spec_payload"`
	SpecEngine  string    `json:"spec_engine"`
	Seq         int64     `json:"seq"`
	Created_At  time.Time `json:"created_at"`
	Updated_At  time.Time `json:"updated_at"`
}

// VehicleDraft is the editable part of a Vehicle spec card.
type VehicleDraft struct {
	Image       string `json:"image" validate:"notblank"`
	Name        string `json:"name" validate:"notblank"`
	SpecGVW     string `json:"spec_gvw" validate:"notblank"`
	SpecPayload string `json:"spec_payload" validate:"notblank"`
	SpecEngine  string `json:"spec_engine" validate:"notblank"`
}

func (v Vehicle) Draft() VehicleDraft {
	return VehicleDraft{
		Image:       v.Image,
		Name:        v.Name,
		SpecGVW:     v.SpecGVW,
		SpecPayload: v.SpecPayload,
		SpecEngine:  v.SpecEngine,
	}
}

func (v Vehicle) Key() uuid.UUID {
	return v.ID
}
