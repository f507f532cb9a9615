// Package auth 负责校验账号密码以及签发、解析会话令牌。
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// Authenticator 抽象了登录凭证校验和令牌签发，便于在测试中替换
type Authenticator interface {
	Verify(ctx context.Context, email, password string) (*domain.Identity, error)
	IssueClaim(identity *domain.Identity) (string, *Claims, error)
	ParseClaim(token string) (*Claims, error)
}

type IdentityLookup interface {
	GetIdentityByEmail(ctx context.Context, email string) (*domain.Identity, error)
}

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Email  string        `json:"email"`
	Role   domain.Role   `json:"role"`
	Status domain.Status `json:"status"`
	jwt.RegisteredClaims
}

type Service struct {
	lookup     IdentityLookup
	secret     []byte
	issuer     string
	expiration time.Duration
	now        func() time.Time
}

func NewService(lookup IdentityLookup, secret, issuer string, expiration time.Duration) *Service {
	return &Service{
		lookup:     lookup,
		secret:     []byte(secret),
		issuer:     issuer,
		expiration: expiration,
		now:        time.Now,
	}
}

// NormalizeEmail 去掉首尾空白并转为小写
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Verify 依次检查用户是否存在、密码是否正确以及是否已通过审批，
// 只有三项都满足时才返回用户，未审批的用户无论密码是否正确都拿不到令牌。
func (s *Service) Verify(ctx context.Context, email, password string) (*domain.Identity, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	identity, err := s.lookup.GetIdentityByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !identity.IsApproved() {
		return nil, domain.ErrPendingApproval
	}

	return identity, nil
}

func (s *Service) IssueClaim(identity *domain.Identity) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		Email:  identity.Email,
		Role:   identity.Role,
		Status: identity.Status,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   identity.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}

	return ss, claims, nil
}

func (s *Service) ParseClaim(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
