// Package auth implements sign-up, sign-in, sessions, email verification,
// password reset and phone-to-email recovery for the mobile client.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"mealsnap/internal/models"
	"mealsnap/internal/profile"
	"mealsnap/pkg/logger"
)

var (
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrCodeInvalid        = errors.New("verification code is invalid or expired")
)

// codeTTL bounds how long an emailed 6-digit code stays usable.
const codeTTL = 15 * time.Minute

type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	MarkEmailVerified(ctx context.Context, userID uuid.UUID) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	SaveCode(ctx context.Context, code *models.VerificationCode) error
	ConsumeCode(ctx context.Context, userID uuid.UUID, purpose, code string) error
	EmailByPhone(ctx context.Context, phone string) (string, error)
}

type Mailer interface {
	SendVerificationCode(ctx context.Context, to, code string) error
	SendResetCode(ctx context.Context, to, code string) error
}

type Service struct {
	store  Store
	mailer Mailer
	tokens *TokenIssuer
	log    *logger.Logger
}

func NewService(store Store, mailer Mailer, tokens *TokenIssuer, log *logger.Logger) *Service {
	return &Service{store: store, mailer: mailer, tokens: tokens, log: log}
}

// SignUp creates an account and emails a 6-digit verification code. The
// account is usable immediately; verification is advisory. Input format is
// validated at the API boundary before any I/O happens here.
func (s *Service) SignUp(ctx context.Context, email, password string) (*models.User, string, error) {
	email = NormalizeEmail(email)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{Email: email, PasswordHash: string(hash)}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	if err := s.issueCode(ctx, user, models.CodeVerifyEmail); err != nil {
		// the account exists; a failed email must not undo the signup
		s.log.Errorw("failed to send verification code", "email", email, "error", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	s.log.Infow("user signed up", "user_id", user.ID)
	return user, token, nil
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.store.UserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// SessionUser resolves a bearer token to its user (the get-session /
// get-current-user contract).
func (s *Service) SessionUser(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.store.UserByID(ctx, userID)
}

// SendPasswordReset emails a reset code to an existing account.
func (s *Service) SendPasswordReset(ctx context.Context, email string) error {
	user, err := s.store.UserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}
	return s.issueCode(ctx, user, models.CodePasswordReset)
}

// ResetPassword exchanges a valid reset code for a new password.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	user, err := s.store.UserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}
	if err := s.store.ConsumeCode(ctx, user.ID, models.CodePasswordReset, code); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return ErrCodeInvalid
		}
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return err
	}
	s.log.Infow("password reset", "user_id", user.ID)
	return nil
}

// VerifyEmail marks the account verified when the emailed code matches.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	user, err := s.store.UserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}
	if err := s.store.ConsumeCode(ctx, user.ID, models.CodeVerifyEmail, code); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return ErrCodeInvalid
		}
		return err
	}
	return s.store.MarkEmailVerified(ctx, user.ID)
}

// LookupEmailByPhone finds the account email linked to a phone number, for
// the "forgot email" flow. The phone is normalized before the lookup so the
// stored and queried forms always agree.
func (s *Service) LookupEmailByPhone(ctx context.Context, phone string) (string, error) {
	return s.store.EmailByPhone(ctx, profile.NormalizePhone(phone))
}

func (s *Service) issueCode(ctx context.Context, user *models.User, purpose string) error {
	code, err := generateCode()
	if err != nil {
		return err
	}
	vc := &models.VerificationCode{
		UserID:    user.ID,
		Purpose:   purpose,
		Code:      code,
		ExpiresAt: time.Now().Add(codeTTL),
	}
	if err := s.store.SaveCode(ctx, vc); err != nil {
		return err
	}
	switch purpose {
	case models.CodePasswordReset:
		return s.mailer.SendResetCode(ctx, user.Email, code)
	default:
		return s.mailer.SendVerificationCode(ctx, user.Email, code)
	}
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// NormalizeEmail lowercases and trims, matching how addresses are stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
