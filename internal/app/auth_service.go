package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"account-service/internal/model"
	"account-service/internal/pkg/jwtutil"
	"account-service/internal/pkg/password"
	"account-service/internal/repository"
)

const TokenTypeBearer = "bearer"

type TokenCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, token string, ttl time.Duration) error
}

type AuthService struct {
	userRepo  *repository.UserRepository
	hasher    *password.Hasher
	tokens    TokenCache
	jwtSecret string
	tokenTTL  time.Duration
	logger    *logrus.Logger

	// Collapses concurrent cache misses for the same credentials.
	issuing singleflight.Group
}

type RegisterInput struct {
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
	Balance   int64
}

type TokenResult struct {
	AccessToken string
	TokenType   string
	Cached      bool
}

type Identity struct {
	Username  string
	ExpiresAt time.Time
}

func NewAuthService(
	userRepo *repository.UserRepository,
	hasher *password.Hasher,
	tokens TokenCache,
	jwtSecret string,
	tokenTTL time.Duration,
	logger *logrus.Logger,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		hasher:    hasher,
		tokens:    tokens,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	username := strings.TrimSpace(input.Username)

	if input.Password == "" || input.Balance < 0 {
		return nil, ErrInvalidInput
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidInput
	}

	existingByEmail, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existingByEmail != nil {
		return nil, ErrEmailExists
	}

	var usernamePtr *string
	if username != "" {
		existingByName, err := s.userRepo.GetByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if existingByName != nil {
			return nil, ErrUsernameExists
		}
		usernamePtr = &username
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooLong) {
			return nil, ErrInvalidInput
		}
		return nil, err
	}

	user := &model.User{
		Email:          email,
		Username:       usernamePtr,
		PasswordHash:   hash,
		FirstName:      strings.TrimSpace(input.FirstName),
		LastName:       strings.TrimSpace(input.LastName),
		Balance:        input.Balance,
		LastActivityAt: time.Now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, s.duplicateCause(ctx, email)
		}
		return nil, err
	}
	return user, nil
}

// Login checks an email and password pair. No token is minted; clients use IssueToken.
func (s *AuthService) Login(ctx context.Context, email, plain string) (*model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || plain == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !s.hasher.Verify(plain, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	s.touch(ctx, user)
	return user, nil
}

// IssueToken returns a live cached token for username when there is one,
// without re-checking the password. Otherwise it authenticates, mints a new
// token and caches it until the token's own expiry.
func (s *AuthService) IssueToken(ctx context.Context, username, plain string) (*TokenResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || plain == "" {
		return nil, ErrInvalidCredentials
	}

	token, found, err := s.tokens.Get(ctx, username)
	switch {
	case err != nil:
		s.logger.WithError(err).WithField("username", username).Warn("token cache read failed, falling back to authentication")
	case found:
		s.logger.WithField("username", username).Info("returning stored token")
		return &TokenResult{AccessToken: token, TokenType: TokenTypeBearer, Cached: true}, nil
	}

	sum := sha256.Sum256([]byte(plain))
	key := username + ":" + hex.EncodeToString(sum[:])
	v, err, _ := s.issuing.Do(key, func() (any, error) {
		return s.authenticateAndMint(ctx, username, plain)
	})
	if err != nil {
		return nil, err
	}
	return v.(*TokenResult), nil
}

func (s *AuthService) authenticateAndMint(ctx context.Context, username, plain string) (*TokenResult, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !s.hasher.Verify(plain, user.PasswordHash) {
		s.logger.WithField("username", username).Error("failed login attempt")
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := jwtutil.GenerateToken(s.jwtSecret, s.tokenTTL, username)
	if err != nil {
		return nil, err
	}

	// The entry lives exactly as long as the token it holds.
	if err := s.tokens.Set(ctx, username, token, time.Until(expiresAt)); err != nil {
		s.logger.WithError(err).WithField("username", username).Warn("token cache write failed")
	}
	s.touch(ctx, user)

	s.logger.WithField("username", username).Info("user logged in, token created")
	return &TokenResult{AccessToken: token, TokenType: TokenTypeBearer}, nil
}

func (s *AuthService) VerifyToken(_ context.Context, token string) (*Identity, error) {
	claims, err := jwtutil.ParseToken(s.jwtSecret, token)
	if err != nil {
		if errors.Is(err, jwtutil.ErrExpiredToken) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	return &Identity{Username: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// CurrentUser resolves a verified identity to an enabled user.
func (s *AuthService) CurrentUser(ctx context.Context, identity *Identity) (*model.User, error) {
	if identity == nil || identity.Username == "" {
		return nil, ErrInvalidToken
	}
	user, err := s.userRepo.GetByUsername(ctx, identity.Username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}
	if user.Disabled {
		return nil, ErrInactiveUser
	}
	return user, nil
}

func (s *AuthService) touch(ctx context.Context, user *model.User) {
	now := time.Now()
	if err := s.userRepo.TouchActivity(ctx, user.ID, now); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("update last activity failed")
		return
	}
	user.LastActivityAt = now
}

func (s *AuthService) duplicateCause(ctx context.Context, email string) error {
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("resolve duplicate user failed: %w", err)
	}
	if existing != nil {
		return ErrEmailExists
	}
	return ErrUsernameExists
}
