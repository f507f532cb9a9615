package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/domain"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/obs"
)

const msgIDAndStatusRequired = "User ID and status are required"

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	identities, err := h.store.ListIdentities(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if identities == nil {
		identities = []*domain.Identity{}
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{"users": identities})
}

// transitionStatus 直接覆盖状态，重复提交同一状态结果不变
func (h *Handler) transitionStatus(ctx context.Context, id string, status domain.Status) (*domain.Identity, error) {
	identity, err := h.store.UpdateIdentityStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	obs.StatusTransitionsTotal.WithLabelValues(string(status)).Inc()

	h.publishMail(domain.MailMessage{
		Type: domain.MailTypeStatusChanged,
		To:   identity.Email,
		Data: domain.StatusChangedMailData{
			DisplayName: displayName(identity),
			Status:      identity.Status,
		},
	})

	return identity, nil
}

func (h *Handler) UpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		Status string `json:"status"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, msgInvalidBody)
		return
	}

	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" || req.Status == "" {
		h.errorResponse(w, r, http.StatusBadRequest, msgIDAndStatusRequired)
		return
	}

	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	identity, err := h.transitionStatus(r.Context(), req.UserID, status)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrIdentityNotFound):
			h.errorResponse(w, r, http.StatusNotFound, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]any{"user": identity})
}
