package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims 只放鉴权需要的字段；角色以数据库为准，这里仅供前端展示
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	secretKey     []byte
	tokenLifetime time.Duration
	now           func() time.Time
}

func NewJWTManager(secretKey string, lifetime time.Duration) *JWTManager {
	return &JWTManager{secretKey: []byte(secretKey), tokenLifetime: lifetime, now: time.Now}
}

func (m *JWTManager) Lifetime() time.Duration { return m.tokenLifetime }

// GenerateToken 签发 HS256 token，jti 每次新生成
func (m *JWTManager) GenerateToken(userID, email, role string) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return s, claims, nil
}

func (m *JWTManager) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secretKey, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Issuer 签发 token 并在会话表里登记 jti，撤销后 token 立即失效
type Issuer struct {
	jwt      *JWTManager
	registry Registry
}

func NewIssuer(j *JWTManager, r Registry) *Issuer {
	return &Issuer{jwt: j, registry: r}
}

func (i *Issuer) Issue(ctx context.Context, userID, email, role string) (string, *Claims, error) {
	tok, claims, err := i.jwt.GenerateToken(userID, email, role)
	if err != nil {
		return "", nil, err
	}
	if err := i.registry.Create(ctx, claims.ID, userID, claims.ExpiresAt.Time); err != nil {
		return "", nil, err
	}
	return tok, claims, nil
}

func (i *Issuer) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := i.jwt.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	as, err := i.registry.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: session revoked", ErrInvalidToken)
		}
		return nil, err
	}
	if as.UserID != claims.UserID {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (i *Issuer) Revoke(ctx context.Context, claims *Claims) error {
	return i.registry.Delete(ctx, claims.ID)
}

func (i *Issuer) RevokeAllForUser(ctx context.Context, userID string) error {
	return i.registry.RevokeAllForUser(ctx, userID)
}

func (i *Issuer) ActiveSessions(ctx context.Context, userID string) (int64, error) {
	return i.registry.CountForUser(ctx, userID)
}
