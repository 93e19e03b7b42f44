package services

import (
	"fmt"
	"strings"
	"time"

	"quizzy/models"

	"github.com/golang-jwt/jwt/v5"
)

type AuthService struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewAuthService(secret string, expiry time.Duration) *AuthService {
	return &AuthService{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
}

// Issue signs the caller's claims as an HS256 token. exp and iat are always
// set by the service.
func (s *AuthService) Issue(claims map[string]any) (string, error) {
	now := s.now()
	mc := jwt.MapClaims{}
	for k, v := range claims {
		mc[k] = v
	}
	mc["iat"] = now.Unix()
	mc["exp"] = now.Add(s.expiry).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, mc)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate checks a raw token. An empty token is ErrUnauthorized; anything
// that fails signature or expiry checks is ErrForbidden.
func (s *AuthService) Validate(tokenString string) (*models.Identity, error) {
	if tokenString == "" {
		return nil, models.ErrUnauthorized
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, models.ErrForbidden
	}

	email, _ := claims["email"].(string)
	return &models.Identity{Email: email, Claims: map[string]any(claims)}, nil
}

// ValidateHeader reads an "Authorization: Bearer <token>" value. A header that
// is present but carries no token is treated as an invalid credential.
func (s *AuthService) ValidateHeader(header string) (*models.Identity, error) {
	if header == "" {
		return nil, models.ErrUnauthorized
	}
	parts := strings.Fields(header)
	if len(parts) < 2 {
		return nil, models.ErrForbidden
	}
	return s.Validate(parts[1])
}
