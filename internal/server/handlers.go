package server

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"mealsnap/internal/auth"
	"mealsnap/internal/meal"
	"mealsnap/internal/models"
	"mealsnap/internal/profile"
	"mealsnap/pkg/logger"
)

// Estimator is the slice of the vision service the handlers need.
type Estimator interface {
	Estimate(ctx context.Context, imageJPEG []byte) (models.NutritionEstimate, error)
}

var msgAnalysisFailed = auth.Message{
	Title:   "Analysis Failed",
	Message: "Could not analyze the image. Please try again with a clearer photo of your food.",
}

var msgPersistenceFailed = auth.Message{
	Title:   "Something Went Wrong",
	Message: "We couldn't save your changes. Please try again.",
}

type Handlers struct {
	auth      *auth.Service
	profiles  *profile.Service
	meals     *meal.Service
	estimator Estimator
	tokens    *auth.TokenIssuer
	validate  *validator.Validate
	log       *logger.Logger
}

func NewHandlers(a *auth.Service, p *profile.Service, m *meal.Service, e Estimator, t *auth.TokenIssuer, log *logger.Logger) *Handlers {
	return &Handlers{
		auth:      a,
		profiles:  p,
		meals:     m,
		estimator: e,
		tokens:    t,
		validate:  validator.New(),
		log:       log,
	}
}

func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", h.signUp)
		r.Post("/signin", h.signIn)
		r.Post("/password-reset", h.sendPasswordReset)
		r.Post("/password-reset/confirm", h.confirmPasswordReset)
		r.Post("/verify-email", h.verifyEmail)
		r.Post("/email-lookup", h.emailLookup)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Get("/session", h.session)
			r.Post("/signout", h.signOut)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/profile", h.getProfile)
		r.Put("/profile", h.putProfile)
		r.Put("/profile/phone", h.putPhone)

		r.Post("/analyze", h.analyze)

		r.Post("/meals", h.logMeal)
		r.Get("/meals", h.listMeals)
		r.Delete("/meals/{id}", h.deleteMeal)

		r.Get("/summary", h.summary)
	})

	return r
}

// ---- auth ----

type authResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func (h *Handlers) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if !auth.ValidEmail(req.Email) {
		writeMessage(w, http.StatusBadRequest, auth.MsgInvalidEmail)
		return
	}
	if !auth.ValidPassword(req.Password) {
		writeMessage(w, http.StatusBadRequest, auth.MsgInvalidPassword)
		return
	}

	user, token, err := h.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		status := http.StatusConflict
		if !errors.Is(err, models.ErrEmailTaken) {
			status = http.StatusInternalServerError
			h.log.Errorw("signup failed", "error", err)
		}
		writeMessage(w, status, auth.FriendlyError(err))
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{User: user, Token: token})
}

func (h *Handlers) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, token, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeMessage(w, http.StatusUnauthorized, auth.FriendlyError(err))
			return
		}
		h.log.Errorw("signin failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, auth.FriendlyError(err))
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: user, Token: token})
}

type sessionResponse struct {
	User            *models.User `json:"user"`
	ProfileComplete bool         `json:"profile_complete"`
}

// session implements the get-session / get-current-user contract and reports
// the onboarding gate alongside.
func (h *Handlers) session(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	user, err := h.auth.SessionUser(r.Context(), tokenFrom(r))
	if err != nil {
		writeMessage(w, http.StatusUnauthorized, auth.MsgInvalidCredentials)
		return
	}

	complete := false
	if p, err := h.profiles.Get(r.Context(), userID); err == nil {
		complete = profile.IsComplete(p)
	}
	writeJSON(w, http.StatusOK, sessionResponse{User: user, ProfileComplete: complete})
}

func (h *Handlers) signOut(w http.ResponseWriter, r *http.Request) {
	// tokens are stateless; the client discards its copy
	h.log.Infow("user signed out", "user_id", userIDFrom(r.Context()))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handlers) sendPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if !auth.ValidEmail(req.Email) {
		writeMessage(w, http.StatusBadRequest, auth.MsgInvalidEmail)
		return
	}

	if err := h.auth.SendPasswordReset(r.Context(), req.Email); err != nil {
		status := http.StatusNotFound
		if !errors.Is(err, models.ErrNotFound) {
			status = http.StatusInternalServerError
			h.log.Errorw("password reset failed", "error", err)
		}
		writeMessage(w, status, auth.FriendlyError(err))
		return
	}
	writeJSON(w, http.StatusOK, auth.Message{
		Title:   "Check Your Email",
		Message: "We've sent a password reset code to your email.",
	})
}

func (h *Handlers) confirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req passwordResetConfirmRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if !auth.ValidPassword(req.NewPassword) {
		writeMessage(w, http.StatusBadRequest, auth.MsgInvalidPassword)
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, auth.ErrCodeInvalid) && !errors.Is(err, models.ErrNotFound) {
			status = http.StatusInternalServerError
			h.log.Errorw("password reset confirm failed", "error", err)
		}
		writeMessage(w, status, auth.FriendlyError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handlers) verifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.auth.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, auth.ErrCodeInvalid) && !errors.Is(err, models.ErrNotFound) {
			status = http.StatusInternalServerError
			h.log.Errorw("verify email failed", "error", err)
		}
		writeMessage(w, status, auth.FriendlyError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handlers) emailLookup(w http.ResponseWriter, r *http.Request) {
	var req emailLookupRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if !auth.ValidPhone(req.Phone) {
		writeMessage(w, http.StatusBadRequest, auth.MsgInvalidPhone)
		return
	}

	email, err := h.auth.LookupEmailByPhone(r.Context(), req.Phone)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, auth.MsgPhoneNotFound)
			return
		}
		h.log.Errorw("email lookup failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, auth.MsgGenericError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": email})
}

// ---- profile ----

type profileResponse struct {
	Profile     *models.Profile    `json:"profile"`
	CalorieGoal int                `json:"calorie_goal"`
	MacroGoals  profile.MacroGoals `json:"macro_goals"`
	Complete    bool               `json:"complete"`
}

func (h *Handlers) getProfile(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	p, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeJSON(w, http.StatusOK, profileResponse{Complete: false})
			return
		}
		h.log.Errorw("get profile failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, msgPersistenceFailed)
		return
	}

	goal := profile.ResolveCalorieGoal(*p)
	writeJSON(w, http.StatusOK, profileResponse{
		Profile:     p,
		CalorieGoal: goal,
		MacroGoals:  profile.ResolveMacroGoals(goal),
		Complete:    profile.IsComplete(p),
	})
}

func (h *Handlers) putProfile(w http.ResponseWriter, r *http.Request) {
	var req putProfileRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	userID := userIDFrom(r.Context())

	p := &models.Profile{
		UserID:      userID,
		Name:        req.Name,
		Age:         req.Age,
		HeightCm:    req.HeightCm,
		WeightKg:    req.WeightKg,
		CalorieGoal: req.CalorieGoal,
	}
	if err := h.profiles.Upsert(r.Context(), p); err != nil {
		h.log.Errorw("save profile failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, auth.Message{
			Title:   "Oops!",
			Message: "We couldn't save your profile. Please try again.",
		})
		return
	}

	goal := profile.ResolveCalorieGoal(*p)
	writeJSON(w, http.StatusOK, profileResponse{
		Profile:     p,
		CalorieGoal: goal,
		MacroGoals:  profile.ResolveMacroGoals(goal),
		Complete:    profile.IsComplete(p),
	})
}

func (h *Handlers) putPhone(w http.ResponseWriter, r *http.Request) {
	var req putPhoneRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if !auth.ValidPhone(req.Phone) {
		writeMessage(w, http.StatusBadRequest, auth.MsgInvalidPhone)
		return
	}

	if err := h.profiles.SetPhone(r.Context(), userIDFrom(r.Context()), req.Phone); err != nil {
		h.log.Errorw("update phone failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, msgPersistenceFailed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ---- analysis & meals ----

func (h *Handlers) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil || len(image) == 0 {
		writeMessage(w, http.StatusBadRequest, auth.Message{
			Title:   "No Image",
			Message: "Please choose or take a photo of your food first.",
		})
		return
	}

	est, err := h.estimator.Estimate(r.Context(), image)
	if err != nil {
		h.log.Warnw("analysis failed", "user_id", userIDFrom(r.Context()), "error", err)
		writeMessage(w, http.StatusBadGateway, msgAnalysisFailed)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

func (h *Handlers) logMeal(w http.ResponseWriter, r *http.Request) {
	var req logMealRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	mealType, err := models.ParseMealType(req.MealType)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, auth.Message{
			Title:   "Invalid Meal Type",
			Message: "Meal type must be breakfast, lunch, dinner or snack.",
		})
		return
	}

	est := models.NutritionEstimate{
		Calories:    req.Calories,
		Description: req.Description,
		Items:       req.Items,
		ProteinG:    req.ProteinG,
		CarbsG:      req.CarbsG,
		FatG:        req.FatG,
	}
	rec, err := h.meals.Log(r.Context(), userIDFrom(r.Context()), mealType, est)
	if err != nil {
		h.log.Errorw("log meal failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, msgPersistenceFailed)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handlers) listMeals(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	var (
		records []models.MealRecord
		err     error
	)
	if dateParam := r.URL.Query().Get("date"); dateParam != "" {
		day, ok := h.parseDay(w, r, dateParam)
		if !ok {
			return
		}
		records, err = h.meals.ForDate(r.Context(), userID, day)
	} else {
		records, err = h.meals.History(r.Context(), userID)
	}
	if err != nil {
		h.log.Errorw("list meals failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, msgPersistenceFailed)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handlers) deleteMeal(w http.ResponseWriter, r *http.Request) {
	mealID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, auth.MsgGenericError)
		return
	}

	if err := h.meals.Delete(r.Context(), userIDFrom(r.Context()), mealID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, auth.Message{
				Title:   "Not Found",
				Message: "That meal no longer exists.",
			})
			return
		}
		h.log.Errorw("delete meal failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, msgPersistenceFailed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handlers) summary(w http.ResponseWriter, r *http.Request) {
	userID := userIDFrom(r.Context())

	day := time.Now()
	if dateParam := r.URL.Query().Get("date"); dateParam != "" {
		var ok bool
		if day, ok = h.parseDay(w, r, dateParam); !ok {
			return
		}
	}

	goal := 0
	macroGoals := profile.MacroGoals{}
	if p, err := h.profiles.Get(r.Context(), userID); err == nil {
		goal = profile.ResolveCalorieGoal(*p)
		macroGoals = profile.ResolveMacroGoals(goal)
	}

	sum, err := h.meals.DailySummary(r.Context(), userID, day, goal, macroGoals)
	if err != nil {
		h.log.Errorw("summary failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, msgPersistenceFailed)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// parseDay reads a YYYY-MM-DD date, optionally in the client's IANA zone
// (?tz=America/New_York) so "today" means the user's local day.
func (h *Handlers) parseDay(w http.ResponseWriter, r *http.Request, dateParam string) (time.Time, bool) {
	loc := time.Local
	if tz := r.URL.Query().Get("tz"); tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	day, err := time.ParseInLocation("2006-01-02", dateParam, loc)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, auth.Message{
			Title:   "Invalid Date",
			Message: "Dates must look like 2026-08-28.",
		})
		return time.Time{}, false
	}
	return day, true
}

func tokenFrom(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 {
		return header[7:]
	}
	return ""
}
