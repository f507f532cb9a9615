package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"time"

	"github.com/gorilla/csrf"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/domain"
)

type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.StatusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)
		slog.Info("已处理请求", "status", rw.StatusCode, "ip", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "duration", duration)
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.internalServerError(w, r, fmt.Errorf("panic: %v", err))
				stackTrace := string(debug.Stack())
				fmt.Print(stackTrace) // 这里如果用 slog 的话会很乱
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// authenticate 解析会话令牌并在每次请求时重新读取用户记录。
// 令牌无效、已注销、用户不存在或者已不再是 APPROVED 时都视为未登录，不在这里拦截请求。
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := h.auth.ParseClaim(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		revoked, err := h.isRevoked(r.Context(), claims.ID)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		if revoked {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := h.store.GetIdentityByID(r.Context(), claims.Subject)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrIdentityNotFound):
				next.ServeHTTP(w, r)
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		// 管理员可能已经撤销了审批
		if !identity.IsApproved() {
			next.ServeHTTP(w, r)
			return
		}

		ctx := withSession(r.Context(), &Session{Claims: claims, Identity: identity})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := sessionFromContext(r.Context()); !ok {
			h.unauthorized(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) RequiredRole(roles []domain.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := sessionFromContext(r.Context())
			if !ok || !slices.Contains(roles, session.Identity.Role) {
				h.unauthorized(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) requirePageSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := sessionFromContext(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requirePageElevated 未登录跳转到登录页，普通用户跳转到 dashboard
func (h *Handler) requirePageElevated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if !session.IsElevated() {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) csrf(next http.Handler) http.Handler {
	protected := h.csrfProtect(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.config.Environment != "production" {
			r = csrf.PlaintextHTTPRequest(r)
		}
		protected.ServeHTTP(w, r)
	})
}

func (h *Handler) limitLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.loginLimiter.allowRequest(r) {
			h.errorResponse(w, r, http.StatusTooManyRequests, msgTooManyLogins)
			return
		}
		next.ServeHTTP(w, r)
	})
}
