package profile

import (
	"math"

	"mealsnap/internal/bodymetrics"
	"mealsnap/internal/models"
)

// Macro split policy: 30% of calories from protein, 40% from carbs, 30% from
// fat, at 4/4/9 kcal per gram. Not user-configurable.
const (
	proteinShare = 0.30
	carbsShare   = 0.40
	fatShare     = 0.30

	kcalPerGramProtein = 4
	kcalPerGramCarbs   = 4
	kcalPerGramFat     = 9
)

type MacroGoals struct {
	ProteinG int `json:"protein_g"`
	CarbsG   int `json:"carbs_g"`
	FatG     int `json:"fat_g"`
}

// ResolveCalorieGoal returns the profile's stored goal when present and
// positive, otherwise derives one from body metrics. The profile carries no
// sex or activity-level field, so derivation uses the documented defaults
// (male, moderate) to keep goals reproducible.
func ResolveCalorieGoal(p models.Profile) int {
	if p.CalorieGoal > 0 {
		return p.CalorieGoal
	}
	bmr := bodymetrics.ComputeBMR(p.WeightKg, p.HeightCm, p.Age, bodymetrics.SexMale)
	return bodymetrics.ComputeCalorieGoal(bmr, bodymetrics.ActivityModerate)
}

// ResolveMacroGoals splits a calorie goal into per-macro gram targets.
func ResolveMacroGoals(calorieGoal int) MacroGoals {
	goal := float64(calorieGoal)
	return MacroGoals{
		ProteinG: int(math.Round(goal * proteinShare / kcalPerGramProtein)),
		CarbsG:   int(math.Round(goal * carbsShare / kcalPerGramCarbs)),
		FatG:     int(math.Round(goal * fatShare / kcalPerGramFat)),
	}
}
