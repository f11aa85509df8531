package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// OperatorSubject is the token subject of the single map operator.
const OperatorSubject = "operator"

const tokenTTL = 12 * time.Hour

// Service issues and checks operator tokens. With an empty secret
// authentication is disabled.
type Service struct {
	jwtSecret    []byte
	passwordHash []byte
	now          func() time.Time
}

func NewService(jwtSecret, passwordHash string) *Service {
	return &Service{
		jwtSecret:    []byte(jwtSecret),
		passwordHash: []byte(passwordHash),
		now:          time.Now,
	}
}

// Enabled reports whether requests must carry a token.
func (s *Service) Enabled() bool {
	return len(s.jwtSecret) > 0
}

type TokenResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Login checks the operator password and issues a token.
func (s *Service) Login(password string) (*TokenResult, error) {
	if len(s.passwordHash) == 0 {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issueToken(OperatorSubject)
}

func (s *Service) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}

	subject, ok := claims["sub"].(string)
	if !ok || subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return subject, nil
}

func (s *Service) issueToken(subject string) (*TokenResult, error) {
	now := s.now()
	expires := now.Add(tokenTTL)
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": expires.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &TokenResult{Token: signed, ExpiresAt: time.Unix(expires.Unix(), 0).UTC()}, nil
}

// HashPassword produces a value for OPERATOR_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
