// Package service provides authentication business logic,
// delegating persistence to a UserRepository.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atinyakov/docchat/internal/models"
	"github.com/atinyakov/docchat/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned when a bearer token fails verification.
	ErrInvalidToken = errors.New("invalid token")
	// ErrBlankName is returned by Register when the name is empty after trimming.
	ErrBlankName = errors.New("name is blank")
)

// UserRepository defines the persistence operations
// required by the authentication service.
type UserRepository interface {
	CreateUser(ctx context.Context, rec repository.UserRecord) error
	GetUserByEmail(ctx context.Context, email string) (repository.UserRecord, error)
	GetUserByID(ctx context.Context, id string) (repository.UserRecord, error)
}

// Claims are the contents of an issued token. Subject holds the user id.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Service registers and authenticates users and issues HS256 tokens.
type Service struct {
	repo   UserRepository
	secret []byte
	ttl    time.Duration

	now   func() time.Time
	newID func() string
	cost  int
}

// NewAuthService constructs a Service signing tokens with secret that
// expire after ttl.
func NewAuthService(repo UserRepository, secret string, ttl time.Duration) *Service {
	return &Service{
		repo:   repo,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		newID:  uuid.NewString,
		cost:   bcrypt.DefaultCost,
	}
}

// Register creates a user and returns it with a fresh token.
// repository.ErrUserExists is returned unchanged for a taken email.
func (s *Service) Register(ctx context.Context, email, password, name string) (models.User, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.User{}, "", ErrBlankName
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	rec := repository.UserRecord{
		User: models.User{
			ID:    s.newID(),
			Email: normalizeEmail(email),
			Name:  name,
		},
		PasswordHash: hash,
	}
	if err := s.repo.CreateUser(ctx, rec); err != nil {
		return models.User{}, "", err
	}
	token, err := s.issue(rec.User)
	if err != nil {
		return models.User{}, "", err
	}
	return rec.User, token, nil
}

// Login verifies the password of email and returns the user with a fresh token.
func (s *Service) Login(ctx context.Context, email, password string) (models.User, string, error) {
	rec, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, "", err
	}
	if err := bcrypt.CompareHashAndPassword(rec.PasswordHash, []byte(password)); err != nil {
		return models.User{}, "", ErrInvalidCredentials
	}
	token, err := s.issue(rec.User)
	if err != nil {
		return models.User{}, "", err
	}
	return rec.User, token, nil
}

// User returns the user with the given id.
func (s *Service) User(ctx context.Context, id string) (models.User, error) {
	rec, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	return rec.User, nil
}

// ParseToken verifies signature and expiry of token and returns its claims.
func (s *Service) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}

func (s *Service) issue(u models.User) (string, error) {
	now := s.now()
	claims := Claims{
		Email: u.Email,
		Name:  u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
