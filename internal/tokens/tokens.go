package tokens

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/config"
	"github.com/Frbastoseng/bdgd-aneel-sub001/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned by ExpiresAt for tokens without an exp claim.
var ErrNoExpiry = errors.New("token has no expiry")

// Claims carried by access tokens issued by the dev backend.
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// GenerateAccessToken creates a signed JWT access token for the user
func GenerateAccessToken(cfg *config.Config, u *models.Identity, ttl time.Duration) (string, error) {
	if cfg.JWT.Secret == "" {
		return "", errors.New("tokens: JWT secret is not configured")
	}
	now := time.Now()
	claims := Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   string(u.Role),
		Type:   "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(cfg.JWT.Secret))
}

// ParseAccessToken verifies signature, algorithm and expiry.
func ParseAccessToken(cfg *config.Config, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWT.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	if claims.Type != "access" {
		return nil, errors.New("parse access token: not an access token")
	}
	return claims, nil
}

// ExpiresAt reads the exp claim without verifying the signature. The client
// uses it for display only; the backend stays the authority on validity.
func ExpiresAt(tokenStr string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return time.Time{}, fmt.Errorf("inspect token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("inspect token: %w", err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}
