package catalog

import (
	"net/url"
	"strings"

	"github.com/grvbrk/intra_catalog/internal/models"
)

// Dimension is one filterable attribute of a video.
type Dimension string

const (
	DimensionModel       Dimension = "model"
	DimensionRegion      Dimension = "region"
	DimensionApplication Dimension = "application"
)

// All is the selection value that leaves a dimension unconstrained.
const All = "all"

var Dimensions = []Dimension{DimensionModel, DimensionRegion, DimensionApplication}

// Selection maps a dimension to a concrete value or All. A missing or blank
// entry is treated as All; keys outside Dimensions are ignored.
type Selection map[Dimension]string

func (s Selection) Value(d Dimension) string {
	v := strings.TrimSpace(s[d])
	if v == "" {
		return All
	}
	return v
}

// Active reports how many dimensions carry a concrete value.
func (s Selection) Active() int {
	n := 0
	for _, d := range Dimensions {
		if s.Value(d) != All {
			n++
		}
	}
	return n
}

// Normalized returns a selection with every known dimension set.
func (s Selection) Normalized() Selection {
	out := make(Selection, len(Dimensions))
	for _, d := range Dimensions {
		out[d] = s.Value(d)
	}
	return out
}

func ParseSelection(q url.Values) Selection {
	sel := make(Selection, len(Dimensions))
	for _, d := range Dimensions {
		sel[d] = q.Get(string(d))
	}
	return sel.Normalized()
}

func dimensionValue(v models.Video, d Dimension) string {
	switch d {
	case DimensionModel:
		return v.VehicleModel
	case DimensionRegion:
		return v.Region
	case DimensionApplication:
		return string(v.Application)
	}
	return ""
}

// matches compares trimmed values, the same form DeriveOptions reports.
func matches(d Dimension, have, want string) bool {
	have, want = strings.TrimSpace(have), strings.TrimSpace(want)
	if have == "" {
		return false
	}
	if d == DimensionApplication {
		return models.Application(have).Slug() == models.Application(want).Slug()
	}
	return have == want
}

// ApplyFilter keeps the videos that satisfy every constrained dimension. It
// never reorders, so the result is a subsequence of videos.
func ApplyFilter(videos []models.Video, sel Selection) []models.Video {
	out := make([]models.Video, 0, len(videos))
	for _, v := range videos {
		if visible(v, sel) {
			out = append(out, v)
		}
	}
	return out
}

func visible(v models.Video, sel Selection) bool {
	for _, d := range Dimensions {
		want := sel.Value(d)
		if want == All {
			continue
		}
		if !matches(d, dimensionValue(v, d), want) {
			return false
		}
	}
	return true
}

// DeriveOptions lists the distinct values of d in first-seen order. Pass the
// full record set: options must not shrink with the current selection.
// Application values are reported as canonical slugs.
func DeriveOptions(videos []models.Video, d Dimension) []string {
	seen := make(map[string]struct{})
	options := []string{}
	for _, v := range videos {
		value := strings.TrimSpace(dimensionValue(v, d))
		if value == "" || value == All {
			continue
		}
		if d == DimensionApplication {
			value = models.Application(value).Slug()
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		options = append(options, value)
	}
	return options
}

func DeriveAllOptions(videos []models.Video) map[Dimension][]string {
	out := make(map[Dimension][]string, len(Dimensions))
	for _, d := range Dimensions {
		out[d] = DeriveOptions(videos, d)
	}
	return out
}
