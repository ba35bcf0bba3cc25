// Package profile manages user profiles and resolves the calorie and macro
// goals that progress displays are measured against.
package profile

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"mealsnap/internal/models"
	"mealsnap/pkg/logger"
)

type Store interface {
	ProfileByUser(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	UpsertProfile(ctx context.Context, p *models.Profile) error
	UpdatePhone(ctx context.Context, userID uuid.UUID, phone string) error
}

type Service struct {
	store  Store
	events *Events
	log    *logger.Logger
}

func NewService(store Store, events *Events, log *logger.Logger) *Service {
	return &Service{store: store, events: events, log: log}
}

func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return s.store.ProfileByUser(ctx, userID)
}

// Upsert creates or replaces the user's profile, stamps updated_at and
// notifies subscribers. Range validation happens at the API boundary before
// this is called.
func (s *Service) Upsert(ctx context.Context, p *models.Profile) error {
	p.UpdatedAt = time.Now().UTC()
	if err := s.store.UpsertProfile(ctx, p); err != nil {
		return err
	}
	s.log.Infow("profile saved", "user_id", p.UserID)
	s.events.Publish(Update{UserID: p.UserID, At: p.UpdatedAt})
	return nil
}

// SetPhone normalizes and stores the phone number used for email recovery.
func (s *Service) SetPhone(ctx context.Context, userID uuid.UUID, phone string) error {
	if err := s.store.UpdatePhone(ctx, userID, NormalizePhone(phone)); err != nil {
		return err
	}
	s.events.Publish(Update{UserID: userID, At: time.Now().UTC()})
	return nil
}

// IsComplete reports whether onboarding finished: name, age, height and
// weight must all be present. Completeness gates access to the app.
func IsComplete(p *models.Profile) bool {
	return p != nil && p.Name != "" && p.Age > 0 && p.HeightCm > 0 && p.WeightKg > 0
}

// NormalizePhone strips everything except digits and +.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
