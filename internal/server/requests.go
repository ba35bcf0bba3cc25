package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"mealsnap/internal/auth"
)

type signUpRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type passwordResetRequest struct {
	Email string `json:"email" validate:"required"`
}

type passwordResetConfirmRequest struct {
	Email       string `json:"email" validate:"required"`
	Code        string `json:"code" validate:"required,len=6"`
	NewPassword string `json:"new_password" validate:"required"`
}

type verifyEmailRequest struct {
	Email string `json:"email" validate:"required"`
	Code  string `json:"code" validate:"required,len=6"`
}

type emailLookupRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type putProfileRequest struct {
	Name        string  `json:"name" validate:"required"`
	Age         int     `json:"age" validate:"required,min=1,max=120"`
	HeightCm    float64 `json:"height_cm" validate:"required,min=50,max=300"`
	WeightKg    float64 `json:"weight_kg" validate:"required,min=20,max=500"`
	CalorieGoal int     `json:"calorie_goal" validate:"min=0"`
}

type putPhoneRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type analyzeRequest struct {
	ImageBase64 string `json:"image_base64" validate:"required"`
}

type logMealRequest struct {
	MealType    string   `json:"meal_type" validate:"required"`
	Calories    int      `json:"calories" validate:"min=0"`
	Description string   `json:"description"`
	Items       []string `json:"items"`
	ProteinG    float64  `json:"protein_g" validate:"min=0"`
	CarbsG      float64  `json:"carbs_g" validate:"min=0"`
	FatG        float64  `json:"fat_g" validate:"min=0"`
}

// Onboarding validation messages, per field. These mirror the modals the
// client shows during profile setup.
var fieldMessages = map[string]auth.Message{
	"Name":     {Title: "Missing Information", Message: "Please fill in all required fields to continue."},
	"Age":      {Title: "Invalid Age", Message: "Please enter a valid age between 1 and 120."},
	"HeightCm": {Title: "Invalid Height", Message: "Please enter a valid height between 50 and 300 cm."},
	"WeightKg": {Title: "Invalid Weight", Message: "Please enter a valid weight between 20 and 500 kg."},
}

var msgMissingFields = auth.Message{
	Title:   "Missing Information",
	Message: "Please fill in all required fields to continue.",
}

// validationMessage picks the friendly message for the first failed field.
func validationMessage(err error) auth.Message {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := fieldMessages[verrs[0].Field()]; ok {
			return msg
		}
	}
	return msgMissingFields
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg auth.Message) {
	writeJSON(w, status, msg)
}

// decodeAndValidate parses the JSON body into dst and runs struct validation.
// Returns false after writing the error response.
func (h *Handlers) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, msgMissingFields)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}
