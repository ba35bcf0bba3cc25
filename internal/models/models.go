package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Storage sentinels. The db layer translates driver errors into these so
// services never see pgx internals.
var (
	ErrNotFound   = errors.New("record not found")
	ErrEmailTaken = errors.New("email already registered")
)

// MealType is a closed enumeration. Values outside this set are rejected at
// the API boundary.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
	MealSnack     MealType = "snack"
)

// MealTypes lists the four valid types in display order.
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner, MealSnack}

func ParseMealType(s string) (MealType, error) {
	t := MealType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown meal type %q", s)
	}
	return t, nil
}

func (t MealType) Valid() bool {
	switch t {
	case MealBreakfast, MealLunch, MealDinner, MealSnack:
		return true
	}
	return false
}

type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// Profile holds the body metrics the calorie goal is derived from. A profile
// is complete once name, age, height and weight are all present; completeness
// gates access to the rest of the app.
type Profile struct {
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Age         int       `json:"age"`
	HeightCm    float64   `json:"height_cm"`
	WeightKg    float64   `json:"weight_kg"`
	CalorieGoal int       `json:"calorie_goal"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NutritionEstimate is the structured result of analyzing a food photo. It is
// immutable and lives only until the user confirms the save, at which point it
// is copied into a MealRecord.
type NutritionEstimate struct {
	Calories    int      `json:"calories"`
	Description string   `json:"description"`
	Items       []string `json:"items"`
	ProteinG    float64  `json:"protein_g"`
	CarbsG      float64  `json:"carbs_g"`
	FatG        float64  `json:"fat_g"`
}

// MealRecord is a single logged eating event. Records are created on save and
// never mutated; an edit is modeled as delete + recreate.
type MealRecord struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	MealType    MealType  `json:"meal_type"`
	Calories    int       `json:"calories"`
	Description string    `json:"description"`
	Items       []string  `json:"items"`
	ProteinG    float64   `json:"protein_g"`
	CarbsG      float64   `json:"carbs_g"`
	FatG        float64   `json:"fat_g"`
	LoggedAt    time.Time `json:"logged_at"`
}

// Code purposes for emailed 6-digit codes.
const (
	CodeVerifyEmail   = "verify_email"
	CodePasswordReset = "password_reset"
)

type VerificationCode struct {
	UserID    uuid.UUID
	Purpose   string
	Code      string
	ExpiresAt time.Time
}
