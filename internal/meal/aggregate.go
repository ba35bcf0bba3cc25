// Package meal logs confirmed nutrition estimates as meal records and
// computes daily totals and progress from them.
package meal

import (
	"time"

	"mealsnap/internal/models"
)

type MacroTotals struct {
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// TotalCalories sums calories across records.
func TotalCalories(records []models.MealRecord) int {
	total := 0
	for _, r := range records {
		total += r.Calories
	}
	return total
}

// BreakdownByType accumulates calories per meal type. All four buckets are
// present even for empty input, because the client renders all four sections
// unconditionally. Records with an unrecognized type are skipped rather than
// surfacing in some other bucket; the API boundary rejects such values, so
// this only matters for rows predating the closed enum.
func BreakdownByType(records []models.MealRecord) map[models.MealType]int {
	out := make(map[models.MealType]int, len(models.MealTypes))
	for _, t := range models.MealTypes {
		out[t] = 0
	}
	for _, r := range records {
		if _, ok := out[r.MealType]; ok {
			out[r.MealType] += r.Calories
		}
	}
	return out
}

// SumMacros totals protein, carbs and fat grams across records.
func SumMacros(records []models.MealRecord) MacroTotals {
	var m MacroTotals
	for _, r := range records {
		m.ProteinG += r.ProteinG
		m.CarbsG += r.CarbsG
		m.FatG += r.FatG
	}
	return m
}

// FilterByDate keeps records logged within the full calendar day containing
// day, in day's own location (00:00:00.000 through 23:59:59.999...).
func FilterByDate(records []models.MealRecord, day time.Time) []models.MealRecord {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	out := make([]models.MealRecord, 0, len(records))
	for _, r := range records {
		at := r.LoggedAt.In(day.Location())
		if !at.Before(start) && at.Before(end) {
			out = append(out, r)
		}
	}
	return out
}

// GroupByType buckets records per meal type, preserving each record's
// relative order from the input. Unrecognized types are skipped.
func GroupByType(records []models.MealRecord) map[models.MealType][]models.MealRecord {
	out := make(map[models.MealType][]models.MealRecord, len(models.MealTypes))
	for _, t := range models.MealTypes {
		out[t] = []models.MealRecord{}
	}
	for _, r := range records {
		if _, ok := out[r.MealType]; ok {
			out[r.MealType] = append(out[r.MealType], r)
		}
	}
	return out
}
