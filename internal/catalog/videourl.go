package catalog

import (
	"net/url"
	"strings"

	"github.com/grvbrk/intra_catalog/internal/models"
)

// VideoURLShape tags the recognised forms of a video source URL.
type VideoURLShape int

const (
	ShapeUnknown VideoURLShape = iota
	ShapeWatch                 // youtube.com/watch?v=<id>
	ShapeShortLink             // youtu.be/<id>
	ShapeShorts                // youtube.com/shorts/<id>
	ShapeEmbed                 // youtube.com/embed/<id>
)

func (s VideoURLShape) String() string {
	switch s {
	case ShapeWatch:
		return "watch"
	case ShapeShortLink:
		return "short_link"
	case ShapeShorts:
		return "shorts"
	case ShapeEmbed:
		return "embed"
	}
	return "unknown"
}

const embedBase = "https://www.youtube.com/embed/"

type VideoURL struct {
	Raw     string
	Shape   VideoURLShape
	VideoID string
}

// pathShapes maps a leading path segment on youtube.com to its shape.
var pathShapes = map[string]VideoURLShape{
	"shorts": ShapeShorts,
	"embed":  ShapeEmbed,
}

func ClassifyVideoURL(raw string) VideoURL {
	out := VideoURL{Raw: raw}

	trimmed := strings.TrimSpace(raw)
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return out
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch host {
	case "youtu.be":
		out.Shape, out.VideoID = ShapeShortLink, segments[0]
	case "youtube.com", "youtube-nocookie.com":
		if len(segments) == 1 && segments[0] == "watch" {
			out.Shape, out.VideoID = ShapeWatch, u.Query().Get("v")
		} else if shape, ok := pathShapes[segments[0]]; ok && len(segments) > 1 {
			out.Shape, out.VideoID = shape, segments[1]
		}
	}

	if out.VideoID == "" {
		return VideoURL{Raw: raw}
	}
	return out
}

// EmbedURL rewrites recognised shapes to the embeddable player URL. Anything
// else is returned unchanged.
func EmbedURL(raw string) string {
	v := ClassifyVideoURL(raw)
	if v.Shape == ShapeUnknown {
		return raw
	}
	return embedBase + v.VideoID
}

// IsShort prefers the stored flag and falls back to the URL shape.
func IsShort(v models.Video) bool {
	if v.IsShort != nil {
		return *v.IsShort
	}
	return ClassifyVideoURL(v.VideoURL).Shape == ShapeShorts
}
