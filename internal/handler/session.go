package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/auth"
)

const sessionCookieName = "__gatekeeper_token"

// tokenFromRequest 优先读取 cookie，其次读取 Authorization: Bearer 头
func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}

	return ""
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string, expiration time.Time) {
	// 通过 http-only 的 cookie 返回给客户端
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Expires:  expiration,
		Path:     "/",
		HttpOnly: true,
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
	}

	if h.config.Environment == "production" {
		cookie.Secure = true
		cookie.SameSite = http.SameSiteStrictMode
	}

	http.SetCookie(w, cookie)
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		MaxAge:   -1,
		Path:     "/",
		HttpOnly: true,
	})
}

func revokedKey(jti string) string {
	return fmt.Sprintf("session_revoked_%s", jti)
}

func (h *Handler) isRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(h.config.Redis.OperationTimeout)*time.Second)
	defer cancel()

	n, err := h.redisClient.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

// revoke 把令牌加入注销名单，保留到令牌本身过期为止
func (h *Handler) revoke(ctx context.Context, claims *auth.Claims) error {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(h.config.Redis.OperationTimeout)*time.Second)
	defer cancel()

	return h.redisClient.Set(ctx, revokedKey(claims.ID), 1, ttl).Err()
}

// logout 注销请求中携带的令牌（如果有效）
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) error {
	if token := tokenFromRequest(r); token != "" {
		if claims, err := h.auth.ParseClaim(token); err == nil {
			if err := h.revoke(r.Context(), claims); err != nil {
				return err
			}
		}
	}

	h.clearSessionCookie(w)
	return nil
}
