package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
	"unicode"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"intervia-backend/internal/middleware"
	"intervia-backend/internal/models"
	"intervia-backend/internal/repository"
)

type AuthService struct {
	candidateRepo *repository.CandidateRepo
	jwt           *middleware.JWTAuth
}

func NewAuthService(candidateRepo *repository.CandidateRepo, jwt *middleware.JWTAuth) *AuthService {
	return &AuthService{candidateRepo: candidateRepo, jwt: jwt}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.Candidate, *models.AuthTokens, error) {
	// Validate all fields at once
	fieldErrors := make(map[string]string)

	if req.FullName == "" {
		fieldErrors["full_name"] = "Full name is required"
	}
	if !emailRegex.MatchString(req.Email) {
		fieldErrors["email"] = "Invalid email format"
	}
	if err := validatePassword(req.Password); err != nil {
		fieldErrors["password"] = err.Error()
	}

	if len(fieldErrors) > 0 {
		return nil, nil, &ValidationError{Fields: fieldErrors}
	}

	// Check uniqueness
	_, err := s.candidateRepo.GetByEmail(ctx, req.Email)
	if err == nil {
		return nil, nil, &ConflictError{Message: "Email already in use"}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, err
	}

	// Hash password (bcrypt cost 12)
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	candidate := &models.Candidate{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Profile:      req.Profile,
	}
	if err := s.candidateRepo.Create(ctx, candidate); err != nil {
		return nil, nil, err
	}

	tokens, err := s.issueTokens(candidate)
	if err != nil {
		return nil, nil, err
	}
	return candidate, tokens, nil
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.Candidate, *models.AuthTokens, error) {
	candidate, err := s.candidateRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, &UnauthorizedError{Message: "Invalid email or password"}
		}
		return nil, nil, err
	}

	if !candidate.IsActive {
		return nil, nil, &UnauthorizedError{Message: "Account is deactivated"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(candidate.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, &UnauthorizedError{Message: "Invalid email or password"}
	}

	now := time.Now()
	candidate.LastLoginAt = &now
	s.candidateRepo.UpdateLastLogin(ctx, candidate.ID, now)

	tokens, err := s.issueTokens(candidate)
	if err != nil {
		return nil, nil, err
	}
	return candidate, tokens, nil
}

func (s *AuthService) issueTokens(candidate *models.Candidate) (*models.AuthTokens, error) {
	access, err := s.jwt.GenerateAccessToken(candidate.ID, candidate.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &models.AuthTokens{
		AccessToken: access,
		ExpiresIn:   int(middleware.AccessTokenTTL.Seconds()),
	}, nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("Password must be at least 8 characters")
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("Password must contain upper and lower case letters and a digit")
	}
	return nil
}

// Service error types, mapped to HTTP statuses by the handlers.

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }
