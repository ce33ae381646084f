package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	AdminSubject = "admin"
	tokenTTL     = 12 * time.Hour
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Service is the single-admin gate: it checks the configured credentials and
// hands out signed tokens for the admin API and the editor socket.
type Service struct {
	user     string
	password string
	secret   []byte
	now      func() time.Time
}

func NewService(user, password, secret string) *Service {
	return &Service{user: user, password: password, secret: []byte(secret), now: time.Now}
}

func (s *Service) Login(user, password string) (string, time.Time, error) {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(s.user)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
	if !userOK || !passOK {
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := s.now()
	expires := now.Add(tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   AdminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}
