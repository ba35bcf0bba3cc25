// Package db is the Postgres persistence layer. It implements the Store
// interfaces of the auth, profile and meal services and translates driver
// errors into the shared storage sentinels.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mealsnap/internal/models"
)

type Config struct {
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(cfg Config) (*Postgres, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode, cfg.MaxOpenConns,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnLifetime
	poolConfig.MaxConnIdleTime = 15 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (db *Postgres) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    email_verified BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS profiles (
    user_id UUID PRIMARY KEY REFERENCES users(id),
    name TEXT NOT NULL DEFAULT '',
    age INT NOT NULL DEFAULT 0,
    height_cm DOUBLE PRECISION NOT NULL DEFAULT 0,
    weight_kg DOUBLE PRECISION NOT NULL DEFAULT 0,
    calorie_goal INT NOT NULL DEFAULT 0,
    phone_number TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS meals (
    id UUID PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id),
    meal_type TEXT NOT NULL,
    calories INT NOT NULL DEFAULT 0,
    description TEXT NOT NULL DEFAULT '',
    items TEXT[] NOT NULL DEFAULT '{}',
    protein_g DOUBLE PRECISION NOT NULL DEFAULT 0,
    carbs_g DOUBLE PRECISION NOT NULL DEFAULT 0,
    fat_g DOUBLE PRECISION NOT NULL DEFAULT 0,
    logged_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS meals_user_logged_at_idx ON meals (user_id, logged_at DESC);

CREATE TABLE IF NOT EXISTS verification_codes (
    user_id UUID NOT NULL REFERENCES users(id),
    purpose TEXT NOT NULL,
    code TEXT NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS verification_codes_user_idx ON verification_codes (user_id, purpose);
`

// Migrate creates the tables if they don't exist yet.
func (db *Postgres) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// ---- auth.Store ----

func (db *Postgres) CreateUser(ctx context.Context, user *models.User) error {
	user.ID = uuid.New()

	query := `
        INSERT INTO users (id, email, password_hash)
        VALUES ($1, $2, $3)
        RETURNING created_at
    `
	err := db.pool.QueryRow(ctx, query, user.ID, user.Email, user.PasswordHash).Scan(&user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.ErrEmailTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (db *Postgres) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
        SELECT id, email, password_hash, email_verified, created_at
        FROM users
        WHERE email = $1
    `
	var user models.User
	err := db.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.EmailVerified, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

func (db *Postgres) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
        SELECT id, email, password_hash, email_verified, created_at
        FROM users
        WHERE id = $1
    `
	var user models.User
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.EmailVerified, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (db *Postgres) MarkEmailVerified(ctx context.Context, userID uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `UPDATE users SET email_verified = TRUE WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (db *Postgres) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	tag, err := db.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (db *Postgres) SaveCode(ctx context.Context, code *models.VerificationCode) error {
	// one live code per user and purpose
	query := `
        DELETE FROM verification_codes WHERE user_id = $1 AND purpose = $2
    `
	if _, err := db.pool.Exec(ctx, query, code.UserID, code.Purpose); err != nil {
		return fmt.Errorf("failed to clear old codes: %w", err)
	}
	query = `
        INSERT INTO verification_codes (user_id, purpose, code, expires_at)
        VALUES ($1, $2, $3, $4)
    `
	if _, err := db.pool.Exec(ctx, query, code.UserID, code.Purpose, code.Code, code.ExpiresAt); err != nil {
		return fmt.Errorf("failed to save code: %w", err)
	}
	return nil
}

func (db *Postgres) ConsumeCode(ctx context.Context, userID uuid.UUID, purpose, code string) error {
	query := `
        DELETE FROM verification_codes
        WHERE user_id = $1 AND purpose = $2 AND code = $3 AND expires_at > NOW()
    `
	tag, err := db.pool.Exec(ctx, query, userID, purpose, code)
	if err != nil {
		return fmt.Errorf("failed to consume code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (db *Postgres) EmailByPhone(ctx context.Context, phone string) (string, error) {
	query := `
        SELECT u.email
        FROM users u
        JOIN profiles p ON p.user_id = u.id
        WHERE p.phone_number = $1
    `
	var email string
	err := db.pool.QueryRow(ctx, query, phone).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", models.ErrNotFound
		}
		return "", fmt.Errorf("failed to look up email by phone: %w", err)
	}
	return email, nil
}

// ---- profile.Store ----

func (db *Postgres) ProfileByUser(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	query := `
        SELECT user_id, name, age, height_cm, weight_kg, calorie_goal, phone_number, updated_at
        FROM profiles
        WHERE user_id = $1
    `
	var p models.Profile
	err := db.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID, &p.Name, &p.Age, &p.HeightCm, &p.WeightKg,
		&p.CalorieGoal, &p.PhoneNumber, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

func (db *Postgres) UpsertProfile(ctx context.Context, p *models.Profile) error {
	query := `
        INSERT INTO profiles (user_id, name, age, height_cm, weight_kg, calorie_goal, phone_number, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (user_id) DO UPDATE
        SET name = $2, age = $3, height_cm = $4, weight_kg = $5, calorie_goal = $6, updated_at = $8
    `
	_, err := db.pool.Exec(ctx, query,
		p.UserID, p.Name, p.Age, p.HeightCm, p.WeightKg, p.CalorieGoal, p.PhoneNumber, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

func (db *Postgres) UpdatePhone(ctx context.Context, userID uuid.UUID, phone string) error {
	query := `
        UPDATE profiles
        SET phone_number = $2, updated_at = NOW()
        WHERE user_id = $1
    `
	tag, err := db.pool.Exec(ctx, query, userID, phone)
	if err != nil {
		return fmt.Errorf("failed to update phone: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ---- meal.Store ----

func (db *Postgres) InsertMeal(ctx context.Context, rec *models.MealRecord) error {
	rec.ID = uuid.New()

	query := `
        INSERT INTO meals (id, user_id, meal_type, calories, description, items, protein_g, carbs_g, fat_g, logged_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	_, err := db.pool.Exec(ctx, query,
		rec.ID, rec.UserID, string(rec.MealType), rec.Calories, rec.Description,
		rec.Items, rec.ProteinG, rec.CarbsG, rec.FatG, rec.LoggedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert meal: %w", err)
	}
	return nil
}

const mealColumns = `id, user_id, meal_type, calories, description, items, protein_g, carbs_g, fat_g, logged_at`

func (db *Postgres) MealsByUser(ctx context.Context, userID uuid.UUID) ([]models.MealRecord, error) {
	query := `
        SELECT ` + mealColumns + `
        FROM meals
        WHERE user_id = $1
        ORDER BY logged_at DESC
    `
	rows, err := db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals: %w", err)
	}
	defer rows.Close()
	return scanMeals(rows)
}

func (db *Postgres) MealsByDateRange(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.MealRecord, error) {
	query := `
        SELECT ` + mealColumns + `
        FROM meals
        WHERE user_id = $1 AND logged_at >= $2 AND logged_at < $3
        ORDER BY logged_at DESC
    `
	rows, err := db.pool.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list meals by date: %w", err)
	}
	defer rows.Close()
	return scanMeals(rows)
}

func (db *Postgres) DeleteMeal(ctx context.Context, userID, mealID uuid.UUID) error {
	query := `
        DELETE FROM meals
        WHERE id = $1 AND user_id = $2
    `
	tag, err := db.pool.Exec(ctx, query, mealID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete meal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func scanMeals(rows pgx.Rows) ([]models.MealRecord, error) {
	meals := []models.MealRecord{}
	for rows.Next() {
		var r models.MealRecord
		var mealType string
		if err := rows.Scan(
			&r.ID, &r.UserID, &mealType, &r.Calories, &r.Description,
			&r.Items, &r.ProteinG, &r.CarbsG, &r.FatG, &r.LoggedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		r.MealType = models.MealType(mealType)
		meals = append(meals, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read meals: %w", err)
	}
	return meals, nil
}
