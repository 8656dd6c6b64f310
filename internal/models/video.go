package models

import (
	"time"

	"github.com/google/uuid"
)

type Video struct {
	ID           uuid.UUID   `json:"id"`
	Title        string      `json:"title"`
	VideoURL     string      `json:"video_url"`
	Caption      *string     `json:"caption"`
	VehicleModel string      `json:"vehicle_model"`
	Region       string      `json:"region"`
	Application  Application `json:"application"`
	IsShort      *bool       `json:"is_short"`
	Seq          int64       `json:"seq"`
	Created_At   time.Time   `json:"created_at"`
	Updated_At   time.Time   `json:"updated_at"`
}

// VideoDraft is the editable part of a Video, as submitted by the admin form.
type VideoDraft struct {
	Title        string  `json:"title" validate:"notblank"`
	VideoURL     string  `json:"video_url" validate:"notblank"`
	Caption      *string `json:"caption"`
	VehicleModel string  `json:"vehicle_model" validate:"notblank"`
	Region       string  `json:"region" validate:"notblank"`
	Application  string  `json:"application" validate:"omitempty,application"`
	IsShort      *bool   `json:"is_short"`
}

func (v Video) Draft() VideoDraft {
	return VideoDraft{
		Title:        v.Title,
		VideoURL:     v.VideoURL,
		Caption:      v.Caption,
		VehicleModel: v.VehicleModel,
		Region:       v.Region,
		Application:  string(v.Application),
		IsShort:      v.IsShort,
	}
}

func (v Video) Key() uuid.UUID {
	return v.ID
}
