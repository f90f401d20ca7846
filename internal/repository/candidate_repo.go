package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"intervia-backend/internal/models"
)

type CandidateRepo struct {
	pool *pgxpool.Pool
}

func NewCandidateRepo(pool *pgxpool.Pool) *CandidateRepo {
	return &CandidateRepo{pool: pool}
}

func (r *CandidateRepo) Create(ctx context.Context, c *models.Candidate) error {
	query := `
		INSERT INTO candidates (id, email, password_hash, full_name, profile, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	c.ID = uuid.New()
	c.IsActive = true

	return r.pool.QueryRow(ctx, query,
		c.ID, c.Email, c.PasswordHash, c.FullName, c.Profile, c.IsActive,
	).Scan(&c.CreatedAt)
}

func (r *CandidateRepo) GetByEmail(ctx context.Context, email string) (*models.Candidate, error) {
	c := &models.Candidate{}
	query := `SELECT id, email, password_hash, full_name, profile, is_active, created_at, last_login_at
		FROM candidates WHERE email = $1`

	err := r.pool.QueryRow(ctx, query, email).Scan(
		&c.ID, &c.Email, &c.PasswordHash, &c.FullName, &c.Profile,
		&c.IsActive, &c.CreatedAt, &c.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CandidateRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Candidate, error) {
	c := &models.Candidate{}
	query := `SELECT id, email, password_hash, full_name, profile, is_active, created_at, last_login_at
		FROM candidates WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Email, &c.PasswordHash, &c.FullName, &c.Profile,
		&c.IsActive, &c.CreatedAt, &c.LastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CandidateRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, "UPDATE candidates SET last_login_at = $1 WHERE id = $2", at, id)
	return err
}
