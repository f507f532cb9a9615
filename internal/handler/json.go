package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

const (
	msgSomethingWentWrong = "Something went wrong"
	msgInvalidBody        = "Invalid request body"
	msgMissingFields      = "Missing required fields"
	msgUnauthorized       = "Unauthorized"
)

func (h *Handler) logInternalServerError(r *http.Request, err error) {
	slog.Error("服务器内部错误", "method", r.Method, "path", r.URL.Path, "error", err)
}

func (h *Handler) readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logInternalServerError(r, err)
	}
}

type errorBody struct {
	Error       string `json:"error"`
	NeedsManual bool   `json:"needsManual,omitempty"`
}

type messageBody struct {
	Message string `json:"message"`
	User    any    `json:"user,omitempty"`
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, status int, msg string) {
	h.writeJSON(w, r, status, errorBody{Error: msg})
}

func (h *Handler) unauthorized(w http.ResponseWriter, r *http.Request) {
	h.errorResponse(w, r, http.StatusUnauthorized, msgUnauthorized)
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.logInternalServerError(r, err)
	h.errorResponse(w, r, http.StatusInternalServerError, msgSomethingWentWrong)
}

// validationMessage 把校验错误翻译成可读信息；缺少必填字段时统一返回 Missing required fields
func (h *Handler) validationMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return msgInvalidBody
	}

	for _, fe := range validationErrors {
		if fe.Tag() == "required" {
			return msgMissingFields
		}
	}

	return validationErrors[0].Translate(h.translator)
}
