package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

type Principal struct {
	UserID string
	Name   string
	Role   string // teacher or student
}

type principalContextKey struct{}

func WithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(Principal)
	return principal, ok
}

type Service struct {
	SigningKey []byte
	Now        func() time.Time
}

func NewService(signingKey string) *Service {
	return &Service{
		SigningKey: []byte(signingKey),
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) AuthenticateRequest(r *http.Request) (Principal, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return Principal{}, ErrUnauthorized
	}
	return s.VerifyToken(parts[1])
}

func (s *Service) VerifyToken(rawToken string) (Principal, error) {
	if len(s.SigningKey) == 0 {
		return Principal{}, fmt.Errorf("%w: token signing key not configured", ErrUnauthorized)
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.SigningKey, nil
	}, jwt.WithTimeFunc(s.Now))
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	principal := Principal{
		UserID: stringClaim(claims, "sub"),
		Name:   stringClaim(claims, "name"),
		Role:   stringClaim(claims, "role"),
	}
	if principal.UserID == "" {
		return Principal{}, fmt.Errorf("%w: missing subject", ErrUnauthorized)
	}
	if principal.Role != "teacher" && principal.Role != "student" {
		return Principal{}, fmt.Errorf("%w: unknown role %q", ErrUnauthorized, principal.Role)
	}
	return principal, nil
}

func (s *Service) IssueToken(principal Principal, ttl time.Duration) (string, error) {
	now := s.Now()
	claims := jwt.MapClaims{
		"sub":  principal.UserID,
		"name": principal.Name,
		"role": principal.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.SigningKey)
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
