package models

import (
	"strings"
)

// Application is the customer use case a video belongs to.
type Application string

const (
	ApplicationFruitsAndVegetables Application = "fruits-and-vegetables"
	ApplicationCereal              Application = "cereal"
	ApplicationConstruction        Application = "construction"
	ApplicationLogistics           Application = "logistics"
	ApplicationPoultry             Application = "poultry"
	ApplicationFisheries           Application = "fisheries"
	ApplicationFMCG                Application = "fmcg"
	ApplicationMilk                Application = "milk"
	ApplicationRefrigeratedVans    Application = "refrigerated-vans"
)

var Applications = []Application{
	ApplicationFruitsAndVegetables,
	ApplicationCereal,
	ApplicationConstruction,
	ApplicationLogistics,
	ApplicationPoultry,
	ApplicationFisheries,
	ApplicationFMCG,
	ApplicationMilk,
	ApplicationRefrigeratedVans,
}

// Slug folds case, spaces and underscores so "Fruits and Vegetables",
// "FRUITS_AND_VEGETABLES" and "fruits-and-vegetables" compare equal.
func (a Application) Slug() string {
	s := strings.ToLower(strings.TrimSpace(string(a)))
	s = strings.NewReplacer(" ", "-", "_", "-").Replace(s)
	return s
}

func ParseApplication(s string) (Application, bool) {
	slug := Application(s).Slug()
	for _, a := range Applications {
		if string(a) == slug {
			return a, true
		}
	}
	return "", false
}
