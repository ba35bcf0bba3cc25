package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealsnap/internal/auth"
	"mealsnap/internal/meal"
	"mealsnap/internal/models"
	"mealsnap/internal/profile"
	"mealsnap/pkg/logger"
)

// memStore implements the auth, profile and meal store interfaces in memory.
type memStore struct {
	users    map[uuid.UUID]*models.User
	profiles map[uuid.UUID]*models.Profile
	meals    []models.MealRecord
	codes    []models.VerificationCode
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[uuid.UUID]*models.User{},
		profiles: map[uuid.UUID]*models.Profile{},
	}
}

func (m *memStore) CreateUser(_ context.Context, u *models.User) error {
	for _, ex := range m.users {
		if ex.Email == u.Email {
			return models.ErrEmailTaken
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *memStore) UserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memStore) UserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, models.ErrNotFound
}

func (m *memStore) MarkEmailVerified(_ context.Context, userID uuid.UUID) error {
	if u, ok := m.users[userID]; ok {
		u.EmailVerified = true
		return nil
	}
	return models.ErrNotFound
}

func (m *memStore) UpdatePassword(_ context.Context, userID uuid.UUID, hash string) error {
	if u, ok := m.users[userID]; ok {
		u.PasswordHash = hash
		return nil
	}
	return models.ErrNotFound
}

func (m *memStore) SaveCode(_ context.Context, code *models.VerificationCode) error {
	m.codes = append(m.codes, *code)
	return nil
}

func (m *memStore) ConsumeCode(_ context.Context, userID uuid.UUID, purpose, code string) error {
	for i, c := range m.codes {
		if c.UserID == userID && c.Purpose == purpose && c.Code == code && time.Now().Before(c.ExpiresAt) {
			m.codes = append(m.codes[:i], m.codes[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *memStore) EmailByPhone(_ context.Context, phone string) (string, error) {
	for userID, p := range m.profiles {
		if p.PhoneNumber == phone {
			if u, ok := m.users[userID]; ok {
				return u.Email, nil
			}
		}
	}
	return "", models.ErrNotFound
}

func (m *memStore) ProfileByUser(_ context.Context, userID uuid.UUID) (*models.Profile, error) {
	if p, ok := m.profiles[userID]; ok {
		return p, nil
	}
	return nil, models.ErrNotFound
}

func (m *memStore) UpsertProfile(_ context.Context, p *models.Profile) error {
	cp := *p
	m.profiles[p.UserID] = &cp
	return nil
}

func (m *memStore) UpdatePhone(_ context.Context, userID uuid.UUID, phone string) error {
	if p, ok := m.profiles[userID]; ok {
		p.PhoneNumber = phone
		return nil
	}
	return models.ErrNotFound
}

func (m *memStore) InsertMeal(_ context.Context, rec *models.MealRecord) error {
	rec.ID = uuid.New()
	m.meals = append(m.meals, *rec)
	return nil
}

func (m *memStore) MealsByUser(_ context.Context, userID uuid.UUID) ([]models.MealRecord, error) {
	var out []models.MealRecord
	for _, r := range m.meals {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoggedAt.After(out[j].LoggedAt) })
	return out, nil
}

func (m *memStore) MealsByDateRange(_ context.Context, userID uuid.UUID, from, to time.Time) ([]models.MealRecord, error) {
	var out []models.MealRecord
	for _, r := range m.meals {
		if r.UserID == userID && !r.LoggedAt.Before(from) && r.LoggedAt.Before(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) DeleteMeal(_ context.Context, userID, mealID uuid.UUID) error {
	for i, r := range m.meals {
		if r.ID == mealID && r.UserID == userID {
			m.meals = append(m.meals[:i], m.meals[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

type noopMailer struct{}

func (noopMailer) SendVerificationCode(context.Context, string, string) error { return nil }
func (noopMailer) SendResetCode(context.Context, string, string) error        { return nil }

type stubEstimator struct {
	est models.NutritionEstimate
	err error
}

func (s stubEstimator) Estimate(context.Context, []byte) (models.NutritionEstimate, error) {
	return s.est, s.err
}

func newTestServer(t *testing.T, est Estimator) *httptest.Server {
	t.Helper()
	store := newMemStore()
	log := logger.NewDevelopment()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)

	authSvc := auth.NewService(store, noopMailer{}, tokens, log)
	profileSvc := profile.NewService(store, profile.NewEvents(), log)
	mealSvc := meal.NewService(store, log)

	h := NewHandlers(authSvc, profileSvc, mealSvc, est, tokens, log)
	ts := httptest.NewServer(h.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func signUpUser(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, ts.URL+"/auth/signup", "", map[string]string{
		"email":    "ada@example.com",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out struct {
		Token string `json:"token"`
	}
	decodeBody(t, resp, &out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func TestSignUpValidation(t *testing.T) {
	ts := newTestServer(t, stubEstimator{})

	resp := doJSON(t, http.MethodPost, ts.URL+"/auth/signup", "", map[string]string{
		"email": "not-an-email", "password": "hunter22",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var msg auth.Message
	decodeBody(t, resp, &msg)
	assert.Equal(t, auth.MsgInvalidEmail, msg)

	resp = doJSON(t, http.MethodPost, ts.URL+"/auth/signup", "", map[string]string{
		"email": "ada@example.com", "password": "12345",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	decodeBody(t, resp, &msg)
	assert.Equal(t, auth.MsgInvalidPassword, msg)
}

func TestSignUpDuplicateGetsFriendlyMessage(t *testing.T) {
	ts := newTestServer(t, stubEstimator{})
	signUpUser(t, ts)

	resp := doJSON(t, http.MethodPost, ts.URL+"/auth/signup", "", map[string]string{
		"email": "ada@example.com", "password": "hunter22",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	var msg auth.Message
	decodeBody(t, resp, &msg)
	assert.Equal(t, auth.MsgUserExists, msg)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t, stubEstimator{})

	for _, path := range []string{"/profile", "/meals", "/summary"} {
		resp := doJSON(t, http.MethodGet, ts.URL+path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "path %s", path)
		resp.Body.Close()
	}
}

func TestOnboardingRangeValidation(t *testing.T) {
	ts := newTestServer(t, stubEstimator{})
	token := signUpUser(t, ts)

	tests := []struct {
		name string
		body map[string]interface{}
		want string
	}{
		{"age too high", map[string]interface{}{"name": "Ada", "age": 200, "height_cm": 170, "weight_kg": 60}, "Invalid Age"},
		{"height too low", map[string]interface{}{"name": "Ada", "age": 30, "height_cm": 20, "weight_kg": 60}, "Invalid Height"},
		{"weight too high", map[string]interface{}{"name": "Ada", "age": 30, "height_cm": 170, "weight_kg": 900}, "Invalid Weight"},
		{"missing name", map[string]interface{}{"age": 30, "height_cm": 170, "weight_kg": 60}, "Missing Information"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPut, ts.URL+"/profile", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			var msg auth.Message
			decodeBody(t, resp, &msg)
			assert.Equal(t, tt.want, msg.Title)
		})
	}
}

func TestProfileAndDerivedGoals(t *testing.T) {
	ts := newTestServer(t, stubEstimator{})
	token := signUpUser(t, ts)

	resp := doJSON(t, http.MethodPut, ts.URL+"/profile", token, map[string]interface{}{
		"name": "Ada", "age": 30, "height_cm": 175, "weight_kg": 70,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		CalorieGoal int                `json:"calorie_goal"`
		MacroGoals  profile.MacroGoals `json:"macro_goals"`
		Complete    bool               `json:"complete"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, 2556, out.CalorieGoal)
	assert.Equal(t, profile.MacroGoals{ProteinG: 192, CarbsG: 256, FatG: 85}, out.MacroGoals)
	assert.True(t, out.Complete)

	// session now reports the profile complete
	resp = doJSON(t, http.MethodGet, ts.URL+"/auth/session", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sess struct {
		ProfileComplete bool `json:"profile_complete"`
	}
	decodeBody(t, resp, &sess)
	assert.True(t, sess.ProfileComplete)
}

func TestAnalyzeLogAndSummarize(t *testing.T) {
	est := models.NutritionEstimate{
		Calories:    600,
		Description: "Chicken and rice",
		Items:       []string{"chicken", "rice"},
		ProteinG:    30, CarbsG: 70, FatG: 20,
	}
	ts := newTestServer(t, stubEstimator{est: est})
	token := signUpUser(t, ts)

	resp := doJSON(t, http.MethodPut, ts.URL+"/profile", token, map[string]interface{}{
		"name": "Ada", "age": 30, "height_cm": 175, "weight_kg": 70,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// analyze returns the estimate
	resp = doJSON(t, http.MethodPost, ts.URL+"/analyze", token, map[string]string{
		"image_base64": base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff}),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got models.NutritionEstimate
	decodeBody(t, resp, &got)
	assert.Equal(t, est, got)

	// confirm the save
	resp = doJSON(t, http.MethodPost, ts.URL+"/meals", token, map[string]interface{}{
		"meal_type": "lunch", "calories": got.Calories, "description": got.Description,
		"items": got.Items, "protein_g": got.ProteinG, "carbs_g": got.CarbsG, "fat_g": got.FatG,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var rec models.MealRecord
	decodeBody(t, resp, &rec)
	require.NotEqual(t, uuid.Nil, rec.ID)

	// totals immediately reflect the save
	resp = doJSON(t, http.MethodGet, ts.URL+"/summary", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sum meal.Summary
	decodeBody(t, resp, &sum)
	assert.Equal(t, 600, sum.TotalCalories)
	assert.Equal(t, 600, sum.ByType[models.MealLunch])
	assert.Equal(t, 0, sum.ByType[models.MealBreakfast])
	assert.Equal(t, meal.MacroTotals{ProteinG: 30, CarbsG: 70, FatG: 20}, sum.Macros)

	// delete it and totals drop back to zero
	resp = doJSON(t, http.MethodDelete, ts.URL+"/meals/"+rec.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, ts.URL+"/summary", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &sum)
	assert.Equal(t, 0, sum.TotalCalories)
}

func TestLogMealRejectsUnknownType(t *testing.T) {
	ts := newTestServer(t, stubEstimator{})
	token := signUpUser(t, ts)

	resp := doJSON(t, http.MethodPost, ts.URL+"/meals", token, map[string]interface{}{
		"meal_type": "brunch", "calories": 400,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestAnalyzeFailureIsFriendly(t *testing.T) {
	ts := newTestServer(t, stubEstimator{err: errors.New("model unavailable")})
	token := signUpUser(t, ts)

	resp := doJSON(t, http.MethodPost, ts.URL+"/analyze", token, map[string]string{
		"image_base64": base64.StdEncoding.EncodeToString([]byte{0x01}),
	})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	var msg auth.Message
	decodeBody(t, resp, &msg)
	assert.Equal(t, msgAnalysisFailed, msg)
}

func TestPhoneLookupFlow(t *testing.T) {
	ts := newTestServer(t, stubEstimator{})
	token := signUpUser(t, ts)

	resp := doJSON(t, http.MethodPut, ts.URL+"/profile", token, map[string]interface{}{
		"name": "Ada", "age": 30, "height_cm": 175, "weight_kg": 70,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPut, ts.URL+"/profile/phone", token, map[string]string{
		"phone": "+1 (555) 123-4567",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// public lookup by a differently formatted rendering of the same number
	resp = doJSON(t, http.MethodPost, ts.URL+"/auth/email-lookup", "", map[string]string{
		"phone": "+1 555 123 4567",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Email string `json:"email"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, "ada@example.com", out.Email)

	resp = doJSON(t, http.MethodPost, ts.URL+"/auth/email-lookup", "", map[string]string{
		"phone": "+1 555 999 9999",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
