// internal/auth/jwt.go
package auth

import (
	"errors"
	"log/slog"
	"time"

	"studio-settlement/internal/config"
	"studio-settlement/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is what a valid token proves about its bearer.
type Identity struct {
	MemberID int64
	Role     domain.Role
}

func (i Identity) IsAdmin() bool { return i.Role == domain.RoleAdmin }

type TokenService struct {
	secretKey []byte
	expiresIn time.Duration
	now       func() time.Time
}

func NewTokenService(cfg config.Config) *TokenService {
	return &TokenService{
		secretKey: []byte(cfg.JWTSecret),
		expiresIn: cfg.JWTExpiresIn,
		now:       time.Now,
	}
}

func (s *TokenService) GenerateToken(id Identity) (string, time.Time, error) {
	expTime := s.now().Add(s.expiresIn)
	claims := jwt.MapClaims{
		"member_id": id.MemberID,
		"role":      string(id.Role),
		"iat":       s.now().Unix(),
		"exp":       expTime.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", time.Time{}, err
	}
	slog.Info("JWT generated", "member_id", id.MemberID, "expires_at", expTime.Format("2006-01-02 15:04:05"))
	return tokenStr, expTime, nil
}

func (s *TokenService) ParseToken(tokenStr string) (Identity, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secretKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return Identity{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	// numbers arrive as float64 from encoding/json
	idFloat, ok := claims["member_id"].(float64)
	if !ok || idFloat <= 0 {
		return Identity{}, ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	switch domain.Role(role) {
	case domain.RoleAdmin, domain.RoleDesigner:
	default:
		return Identity{}, ErrInvalidToken
	}

	id := Identity{MemberID: int64(idFloat), Role: domain.Role(role)}
	slog.Debug("JWT parsed successfully", "member_id", id.MemberID, "role", id.Role)
	return id, nil
}
