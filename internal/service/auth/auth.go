// Package auth issues and verifies operator session tokens for the admin
// API. There is a single operator identity configured through a bcrypt
// password hash; sessions are short-lived HS256 JWTs.
package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ndmitriev/coinvault/internal/apperrors"
)

const (
	defaultTokenTTL      = 1 * time.Hour
	defaultSigningMethod = "HS256"

	operatorSubject = "operator"
)

type Claims struct {
	jwt.RegisteredClaims
}

type Config struct {
	// Secret key to sign session tokens
	// Required to be set
	SecretKey string

	// Bcrypt hash of the operator password
	// Required to be set
	PasswordHash string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set than default is used
	Alg string

	// Session token lifetime
	// If not set than default is used
	TokenTTL time.Duration
}

type AuthService struct {
	key          string
	passwordHash string
	alg          jwt.SigningMethod
	tokenTTL     time.Duration
}

func NewService(cfg Config) (*AuthService, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}
	if cfg.PasswordHash == "" {
		return nil, errors.New("operator password hash must not be empty")
	}
	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaultTokenTTL
	}

	return &AuthService{
		key:          cfg.SecretKey,
		passwordHash: cfg.PasswordHash,
		alg:          jwt.GetSigningMethod(cfg.Alg),
		tokenTTL:     cfg.TokenTTL,
	}, nil
}

// Login checks the operator password and issues a session token.
func (s *AuthService) Login(password string) (token string, expiresAt time.Time, err error) {
	sum := sha256.Sum256([]byte(password))
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), sum[:]); err != nil {
		return "", time.Time{}, apperrors.ErrInvalidCredentials
	}

	now := time.Now().Truncate(time.Second)
	expiresAt = now.Add(s.tokenTTL)

	sessionToken := jwt.NewWithClaims(
		s.alg,
		Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				Subject:   operatorSubject,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
		},
	)

	token, err = sessionToken.SignedString([]byte(s.key))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error while signing session token. Err: %w", err)
	}

	return token, expiresAt, nil
}

// Verify parses and validates a session token.
func (s *AuthService) Verify(token string) error {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (any, error) {
			return []byte(s.key), nil
		},
		jwt.WithValidMethods([]string{s.alg.Alg()}),
	)
	if err != nil || claims.Subject != operatorSubject {
		return apperrors.ErrTokenInvalid
	}

	return nil
}

// Auth authorizes an admin request from its bearer token.
func (s *AuthService) Auth(r *http.Request) error {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return apperrors.ErrTokenInvalid
	}

	return s.Verify(token)
}

// HashPassword produces the bcrypt hash Login expects in the config.
// Passwords are pre-hashed with sha256 so bcrypt's 72-byte limit never
// truncates long passphrases.
func HashPassword(password string) (string, error) {
	sum := sha256.Sum256([]byte(password))
	hash, err := bcrypt.GenerateFromPassword(sum[:], bcrypt.DefaultCost)
	return string(hash), err
}
