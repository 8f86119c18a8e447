package middleware

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/marketfleet/dispatch/internal/domain/models"
	"github.com/marketfleet/dispatch/internal/domain/types"
	"github.com/marketfleet/dispatch/pkg/logger"
)

type Middleware struct {
	jwtSecret []byte
	log       logger.Logger
}

func NewMiddleware(jwtSecret string, log logger.Logger) *Middleware {
	return &Middleware{
		jwtSecret: []byte(jwtSecret),
		log:       log,
	}
}

type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// verifyToken validates the access token issued by the user directory
// and extracts the caller's identity.
func (m *Middleware) verifyToken(token string) (*models.User, error) {
	claims := &accessClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid token subject: %w", err)
	}

	return &models.User{
		ID:   userID,
		Role: types.UserRole(claims.Role),
	}, nil
}
