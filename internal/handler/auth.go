package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/auth"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/domain"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/obs"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt 只接受不超过 72 字节的密码，按字节而不是字符计算
const (
	maxPasswordBytes   = 72
	msgPasswordTooLong = "password must be at most 72 bytes"
)

type signupRequest struct {
	Name     string `json:"name" validate:"max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

// signup 是 API 和注册表单共用的注册流程，返回值中的错误信息可直接展示给用户
func (h *Handler) signup(ctx context.Context, req signupRequest) (*domain.Identity, string, error) {
	req.Email = auth.NormalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)

	if err := h.validate.Struct(req); err != nil {
		return nil, h.validationMessage(err), err
	}

	if len(req.Password) > maxPasswordBytes {
		return nil, msgPasswordTooLong, bcrypt.ErrPasswordTooLong
	}

	hash, err := auth.HashPassword(req.Password, h.config.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, msgPasswordTooLong, err
		}
		return nil, "", err
	}

	identity := &domain.Identity{
		Email:        req.Email,
		PasswordHash: hash,
	}
	if req.Name != "" {
		identity.DisplayName = &req.Name
	}

	// 角色和状态由存储层在同一个事务里决定
	if err := h.store.CreateIdentity(ctx, identity); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, domain.ErrEmailTaken.Error(), err
		}
		return nil, "", err
	}

	obs.SignupsTotal.WithLabelValues(string(identity.Role)).Inc()

	if identity.Status == domain.StatusPending {
		h.publishMail(domain.MailMessage{
			Type: domain.MailTypeSignupPending,
			To:   identity.Email,
			Data: domain.SignupPendingMailData{
				DisplayName: displayName(identity),
				Email:       identity.Email,
			},
		})
	}

	return identity, "", nil
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := h.readJSON(r, &req); err != nil {
		h.writeJSON(w, r, http.StatusBadRequest, messageBody{Message: msgInvalidBody})
		return
	}

	identity, msg, err := h.signup(r.Context(), req)
	if err != nil {
		if msg == "" {
			h.internalServerError(w, r, err)
			return
		}
		h.writeJSON(w, r, http.StatusBadRequest, messageBody{Message: msg})
		return
	}

	h.writeJSON(w, r, http.StatusCreated, messageBody{Message: "User created successfully", User: identity})
}

// login 校验凭证并签发令牌，同时写入 cookie
func (h *Handler) login(w http.ResponseWriter, r *http.Request, email, password string) (*domain.Identity, string, *auth.Claims, error) {
	identity, err := h.auth.Verify(r.Context(), email, password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			obs.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		case errors.Is(err, domain.ErrPendingApproval):
			obs.LoginsTotal.WithLabelValues("pending").Inc()
		default:
			obs.LoginsTotal.WithLabelValues("error").Inc()
		}
		return nil, "", nil, err
	}

	token, claims, err := h.auth.IssueClaim(identity)
	if err != nil {
		obs.LoginsTotal.WithLabelValues("error").Inc()
		return nil, "", nil, err
	}

	h.setSessionCookie(w, token, claims.ExpiresAt.Time)
	obs.LoginsTotal.WithLabelValues("success").Inc()

	return identity, token, claims, nil
}

func isCredentialError(err error) bool {
	return errors.Is(err, domain.ErrInvalidCredentials) || errors.Is(err, domain.ErrPendingApproval)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, msgInvalidBody)
		return
	}

	identity, token, claims, err := h.login(w, r, req.Email, req.Password)
	if err != nil {
		if isCredentialError(err) {
			h.errorResponse(w, r, http.StatusUnauthorized, err.Error())
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"message":   "Login successful",
		"user":      identity,
		"token":     token,
		"expiresAt": claims.ExpiresAt.Time,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.logout(w, r); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, messageBody{Message: "Logged out"})
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, _ := sessionFromContext(r.Context())

	h.writeJSON(w, r, http.StatusOK, map[string]any{
		"user":      session.Identity,
		"expiresAt": session.Claims.ExpiresAt.Time,
	})
}

func displayName(identity *domain.Identity) string {
	if identity.DisplayName != nil && *identity.DisplayName != "" {
		return *identity.DisplayName
	}
	return identity.Email
}
