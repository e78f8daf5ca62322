package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager issues and validates the signed session token. Tokens are
// HS256, carry the claim set below and live for exactly TTL (24h in the
// default config).
type JWTManager struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

func NewJWTManager(secret, issuer, audience string, ttl time.Duration) *JWTManager {
	return &JWTManager{
		Secret:   []byte(secret),
		Issuer:   issuer,
		Audience: audience,
		TTL:      ttl,
	}
}

// TokenSubject is the user data stamped into the session token.
type TokenSubject struct {
	ID        string
	Name      string
	Email     string
	FirstName string
	LastName  string
	Roles     []string
}

type Claims struct {
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	FirstName string   `json:"first_name,omitempty"`
	LastName  string   `json:"last_name,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Generate signs a session token for the subject, returning the token
// string and its expiry.
func (m *JWTManager) Generate(sub TokenSubject) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.TTL)
	claims := &Claims{
		Name:      sub.Name,
		Email:     sub.Email,
		FirstName: sub.FirstName,
		LastName:  sub.LastName,
		Roles:     sub.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.ID,
			Issuer:    m.Issuer,
			Audience:  jwt.ClaimStrings{m.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.Secret)
	return s, exp, err
}

// Parse validates signature, signing method, issuer and audience, and
// returns the claims of a live token.
func (m *JWTManager) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	}, jwt.WithIssuer(m.Issuer), jwt.WithAudience(m.Audience))
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
