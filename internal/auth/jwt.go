package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/senyabanana/surplus-market/internal/models"
)

const accessTokenExpiry = 24 * time.Hour

// Claims is the access token payload shared by the server and the client session.
type Claims struct {
	UserID    uuid.UUID       `json:"sub"`
	CompanyID *int64          `json:"company_id,omitempty"`
	Role      models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Identity converts the claims into the caller identity.
func (c *Claims) Identity() models.Identity {
	role := c.Role
	if role == "" {
		role = models.RoleMember
	}
	return models.Identity{UserID: c.UserID, CompanyID: c.CompanyID, Role: role}
}

// JWTService signs and verifies access tokens.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTService creates a JWT service; a non-positive ttl falls back to 24h.
func NewJWTService(secret string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = accessTokenExpiry
	}
	return &JWTService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// SignAccessToken issues a token for the given identity.
func (s *JWTService) SignAccessToken(id models.Identity) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID:    id.UserID,
		CompanyID: id.CompanyID,
		Role:      id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return tokenString, nil
}

// VerifyToken verifies the signature and expiry of a token and returns its claims.
func (s *JWTService) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == uuid.Nil {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// ErrTokenExpired is returned by ReadClaims for a token past its expiry.
var ErrTokenExpired = errors.New("token expired")

// ReadClaims decodes a token without checking its signature. Clients use it
// to restore a session from a persisted token; the server still verifies
// every request.
func ReadClaims(tokenString string, now time.Time) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	if claims.UserID == uuid.Nil {
		return nil, errors.New("token has no subject")
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}
