// Package features derives the auxiliary inputs the crop model was trained
// with: a climate zone for each region and a fertility score for each soil
// type. Both lookup tables are baked in at build time and must stay in sync
// with the tables used when the crop model was trained; changing one without
// retraining silently degrades prediction quality.
package features

// DefaultClimateZone is used for regions missing from the lookup table.
const DefaultClimateZone = "Tropical"

// DefaultFertilityScore is the neutral score for unknown soil types.
const DefaultFertilityScore = 3

// climateZones maps each known region to its climate zone.
var climateZones = map[string]string{
	"Punjab":         "Semi-Arid",
	"Haryana":        "Semi-Arid",
	"Rajasthan":      "Arid",
	"Gujarat":        "Semi-Arid",
	"Maharashtra":    "Tropical",
	"Madhya Pradesh": "Tropical",
	"Bihar":          "Humid",
	"Uttar Pradesh":  "Humid",
	"Kerala":         "Tropical",
	"Tamil Nadu":     "Tropical",
}

// soilFertility scores each known soil type from 1 (poor) to 5 (rich).
var soilFertility = map[string]int{
	"Alluvial": 5,
	"Black":    4,
	"Red":      3,
	"Loamy":    5,
	"Clay":     3,
	"Sandy":    2,
	"Laterite": 2,
	"Peaty":    4,
	"Chalky":   3,
	"Saline":   1,
}

// ClimateZone returns the climate zone for a region, falling back to
// DefaultClimateZone for regions not in the table. The fallback is
// intentional: the trainer used the same default rather than rejecting
// unmapped regions.
func ClimateZone(region string) string {
	if zone, ok := climateZones[region]; ok {
		return zone
	}
	return DefaultClimateZone
}

// FertilityScore returns the fertility score for a soil type, falling back
// to DefaultFertilityScore for unknown soils.
func FertilityScore(soilType string) int {
	if score, ok := soilFertility[soilType]; ok {
		return score
	}
	return DefaultFertilityScore
}

// Enrich derives both auxiliary features for a (region, soil type) pair.
func Enrich(region, soilType string) (climateZone string, fertilityScore int) {
	return ClimateZone(region), FertilityScore(soilType)
}
