package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"heater_monitor/internal/config"
	"heater_monitor/internal/logger"
	"heater_monitor/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultTokenTTL   = time.Hour
	maxUsernameLength = 64
)

var (
	ErrInvalidUsername  = errors.New("invalid username")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrUsernameTaken    = errors.New("username already taken")
	ErrOperatorNotFound = errors.New("operator not found")
	ErrInvalidToken     = errors.New("invalid token")
)

// Claims are the JWT claims issued to an operator.
type Claims struct {
	jwt.RegisteredClaims
	OperatorID int `json:"operator_id"`
}

// AuthService registers operators and issues the bearer tokens the API checks.
type AuthService struct {
	repo       repository.Authorization
	signingKey []byte
	tokenTTL   time.Duration
	clock      clockwork.Clock
	log        *logger.Logger
}

// NewAuthService builds the service from the auth config. An empty signing key is
// replaced by a random one, so tokens do not survive a restart.
func NewAuthService(repo repository.Authorization, cfg config.AuthConfig, clock clockwork.Clock, log *logger.Logger) *AuthService {
	key := cfg.SigningKey
	if key == "" {
		key = uuid.NewString() + uuid.NewString()
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AuthService{repo: repo, signingKey: []byte(key), tokenTTL: ttl, clock: clock, log: log}
}

// SignUp validates the credentials and stores a new operator with a bcrypt hash.
func (s *AuthService) SignUp(ctx context.Context, username, password string) (int, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > maxUsernameLength {
		return 0, fmt.Errorf("%w: must be 1-%d characters", ErrInvalidUsername, maxUsernameLength)
	}
	hash, err := hashPassword(password)
	if err != nil {
		return 0, err
	}
	id, err := s.repo.Create(ctx, username, hash, s.clock.Now())
	if errors.Is(err, repository.ErrUsernameTaken) {
		return 0, ErrUsernameTaken
	}
	return id, err
}

// GenerateToken checks the credentials and returns a signed token. The login time
// is recorded best effort.
func (s *AuthService) GenerateToken(ctx context.Context, username, password string) (string, error) {
	op, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", err
	}
	if op == nil {
		return "", ErrOperatorNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidPassword
	}

	token, err := s.issueToken(op.ID)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	if err := s.repo.TouchLogin(ctx, op.ID, s.clock.Now()); err != nil {
		s.log.Warnw("operator_login_not_recorded", "operator_id", op.ID, "err", err)
	}
	return token, nil
}

// ParseToken verifies an HS256 token against the service clock and returns the operator ID.
func (s *AuthService) ParseToken(accessToken string) (int, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(accessToken, &claims,
		func(*jwt.Token) (any, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.OperatorID <= 0 {
		return 0, ErrInvalidToken
	}
	return claims.OperatorID, nil
}

func (s *AuthService) issueToken(operatorID int) (string, error) {
	now := s.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OperatorID: operatorID,
	})
	return token.SignedString(s.signingKey)
}

func hashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPassword)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
