package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrMissingKey   = errors.New("jwt secret must not be empty")
)

// Claims represents session token claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"_id"`
}

// Manager issues and verifies HMAC-signed session tokens.
type Manager struct {
	secret []byte
	maxAge time.Duration
	issuer string
	now    func() time.Time
}

// NewManager creates a new JWT manager. Tokens are valid for maxAge after
// they were issued.
func NewManager(secret string, maxAge time.Duration, issuer string) (*Manager, error) {
	if secret == "" {
		return nil, ErrMissingKey
	}
	return &Manager{
		secret: []byte(secret),
		maxAge: maxAge,
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// MaxAge returns the token lifetime, also used as the cookie max-age.
func (m *Manager) MaxAge() time.Duration {
	return m.maxAge
}

// GenerateToken signs a token for userID.
func (m *Manager) GenerateToken(userID string) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.maxAge)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID: userID,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// ValidateToken verifies signature, expiry and age, and returns the claims.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}

	if m.maxAge > 0 && claims.IssuedAt != nil && m.now().Sub(claims.IssuedAt.Time) > m.maxAge {
		return nil, ErrExpiredToken
	}

	return claims, nil
}
