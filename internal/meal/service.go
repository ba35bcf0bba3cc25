package meal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mealsnap/internal/models"
	"mealsnap/internal/profile"
	"mealsnap/pkg/logger"
)

type Store interface {
	InsertMeal(ctx context.Context, rec *models.MealRecord) error
	MealsByUser(ctx context.Context, userID uuid.UUID) ([]models.MealRecord, error)
	MealsByDateRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.MealRecord, error)
	DeleteMeal(ctx context.Context, userID, mealID uuid.UUID) error
}

type Service struct {
	store Store
	log   *logger.Logger
}

func NewService(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// Log copies a confirmed estimate into a new meal record. The record only
// exists once the store accepted it; callers report success strictly after
// this returns nil, so a read that follows immediately sees the new row.
func (s *Service) Log(ctx context.Context, userID uuid.UUID, mealType models.MealType, est models.NutritionEstimate) (*models.MealRecord, error) {
	if !mealType.Valid() {
		return nil, fmt.Errorf("invalid meal type %q", mealType)
	}
	rec := &models.MealRecord{
		UserID:      userID,
		MealType:    mealType,
		Calories:    est.Calories,
		Description: est.Description,
		Items:       est.Items,
		ProteinG:    est.ProteinG,
		CarbsG:      est.CarbsG,
		FatG:        est.FatG,
		LoggedAt:    time.Now().UTC(),
	}
	if rec.Items == nil {
		rec.Items = []string{}
	}
	if err := s.store.InsertMeal(ctx, rec); err != nil {
		return nil, fmt.Errorf("save meal: %w", err)
	}
	s.log.Infow("meal logged", "user_id", userID, "meal_type", mealType, "calories", rec.Calories)
	return rec, nil
}

// History returns all of the user's meals, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]models.MealRecord, error) {
	return s.store.MealsByUser(ctx, userID)
}

// ForDate returns the user's meals for the full calendar day containing day,
// in day's location, newest first.
func (s *Service) ForDate(ctx context.Context, userID uuid.UUID, day time.Time) ([]models.MealRecord, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return s.store.MealsByDateRange(ctx, userID, start, start.AddDate(0, 0, 1))
}

// Delete removes exactly one record, scoped to its owner.
func (s *Service) Delete(ctx context.Context, userID, mealID uuid.UUID) error {
	if err := s.store.DeleteMeal(ctx, userID, mealID); err != nil {
		return err
	}
	s.log.Infow("meal deleted", "user_id", userID, "meal_id", mealID)
	return nil
}

type Progress struct {
	Consumed float64 `json:"consumed"`
	Goal     float64 `json:"goal"`
	Percent  float64 `json:"percent"`
}

// Summary is a day's aggregated intake measured against resolved goals.
type Summary struct {
	Date          string                  `json:"date"`
	TotalCalories int                     `json:"total_calories"`
	CalorieGoal   int                     `json:"calorie_goal"`
	ByType        map[models.MealType]int `json:"by_meal_type"`
	Macros        MacroTotals             `json:"macros"`
	MacroGoals    profile.MacroGoals      `json:"macro_goals"`
	Progress      map[string]Progress     `json:"progress"`
}

// DailySummary aggregates the day's records against the supplied goals. Goals
// come from profile.ResolveCalorieGoal / ResolveMacroGoals so progress is
// never computed against an undefined target.
func (s *Service) DailySummary(ctx context.Context, userID uuid.UUID, day time.Time, calorieGoal int, macroGoals profile.MacroGoals) (*Summary, error) {
	records, err := s.ForDate(ctx, userID, day)
	if err != nil {
		return nil, err
	}

	macros := SumMacros(records)
	total := TotalCalories(records)

	return &Summary{
		Date:          day.Format("2006-01-02"),
		TotalCalories: total,
		CalorieGoal:   calorieGoal,
		ByType:        BreakdownByType(records),
		Macros:        macros,
		MacroGoals:    macroGoals,
		Progress: map[string]Progress{
			"calories": progressOf(float64(total), float64(calorieGoal)),
			"protein":  progressOf(macros.ProteinG, float64(macroGoals.ProteinG)),
			"carbs":    progressOf(macros.CarbsG, float64(macroGoals.CarbsG)),
			"fat":      progressOf(macros.FatG, float64(macroGoals.FatG)),
		},
	}, nil
}

// progressOf caps percent at 1.0; the client's rings don't overfill.
func progressOf(consumed, goal float64) Progress {
	p := Progress{Consumed: consumed, Goal: goal}
	if goal > 0 {
		p.Percent = consumed / goal
		if p.Percent > 1 {
			p.Percent = 1
		}
	}
	return p
}
