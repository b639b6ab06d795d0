// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, and issuing and checking
// access tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/alertkeeper/internal/common"
	"github.com/dmitrijs2005/alertkeeper/internal/cryptox"
	"github.com/dmitrijs2005/alertkeeper/internal/server/auth"
	"github.com/dmitrijs2005/alertkeeper/internal/server/config"
	"github.com/dmitrijs2005/alertkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/alertkeeper/internal/server/models"
	"github.com/dmitrijs2005/alertkeeper/internal/server/repositories/repomanager"
)

// TokenValidity is how long an issued access token stays valid.
const TokenValidity = time.Hour

// UserService provides authentication-related operations:
// - Register: create users
// - Login: verify credentials and mint tokens
// - ValidateToken: resolve an Authorization header to a username
type UserService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	jwtSecret     []byte
	tokenValidity time.Duration
	now           func() time.Time
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:            db,
		repomanager:   m,
		jwtSecret:     []byte(cfg.SecretKey),
		tokenValidity: TokenValidity,
		now:           time.Now,
	}
}

// Register creates a new user. The password is stored only as a salted
// argon2id hash.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: missing username or password", common.ErrorValidation)
	}

	user := &models.User{UserName: username, PasswordHash: cryptox.HashPassword(password)}
	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, fmt.Errorf("user %q: %w", username, common.ErrorAlreadyExists)
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// Login verifies the password against the stored hash and, on success,
// returns a signed access token.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	if username == "" || password == "" {
		metrics.AuthFailures.WithLabelValues(metrics.AuthReasonBadCredentials).Inc()
		return "", common.ErrorUnauthorized
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// burn the same hashing time as a real check
			_, _ = cryptox.VerifyPassword(password, dummyHash())
			metrics.AuthFailures.WithLabelValues(metrics.AuthReasonBadCredentials).Inc()
			return "", common.ErrorUnauthorized
		}
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	ok, err := cryptox.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if !ok {
		metrics.AuthFailures.WithLabelValues(metrics.AuthReasonBadCredentials).Inc()
		return "", common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(user.UserName, s.jwtSecret, s.now(), s.tokenValidity)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return token, nil
}

// ValidateToken checks an Authorization header value and returns the
// username the token was issued for. Errors are common.ErrTokenMissing,
// common.ErrTokenExpired or common.ErrInvalidToken.
func (s *UserService) ValidateToken(header string) (string, error) {
	token, err := auth.BearerToken(header)
	if err != nil {
		metrics.AuthFailures.WithLabelValues(metrics.AuthReasonTokenMissing).Inc()
		return "", err
	}

	username, err := auth.GetUsernameFromToken(token, s.jwtSecret, s.now())
	switch {
	case errors.Is(err, common.ErrTokenExpired):
		metrics.AuthFailures.WithLabelValues(metrics.AuthReasonTokenExpired).Inc()
		return "", err
	case err != nil:
		metrics.AuthFailures.WithLabelValues(metrics.AuthReasonTokenInvalid).Inc()
		return "", err
	}
	return username, nil
}

var dummyHash = sync.OnceValue(func() string {
	return cryptox.HashPassword("not-a-real-password")
})
