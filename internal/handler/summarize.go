package handler

import (
	"errors"
	"net/http"

	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/obs"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/summarizer"
)

// summarizeFailure 把摘要错误映射为状态码和响应体
func summarizeFailure(err error) (int, errorBody) {
	var upstream *summarizer.UpstreamError

	switch {
	case errors.Is(err, summarizer.ErrNeedsManualTranscript):
		obs.SummariesTotal.WithLabelValues("needs_manual").Inc()
		return http.StatusBadRequest, errorBody{Error: err.Error(), NeedsManual: true}
	case errors.Is(err, summarizer.ErrInputRequired), errors.Is(err, summarizer.ErrInvalidURL):
		obs.SummariesTotal.WithLabelValues("bad_input").Inc()
		return http.StatusBadRequest, errorBody{Error: err.Error()}
	case errors.As(err, &upstream):
		obs.SummariesTotal.WithLabelValues("upstream_error").Inc()
		return http.StatusInternalServerError, errorBody{Error: upstream.Error()}
	default:
		obs.SummariesTotal.WithLabelValues("error").Inc()
		return http.StatusInternalServerError, errorBody{Error: msgSomethingWentWrong}
	}
}

func (h *Handler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL  string `json:"url"`
		Text string `json:"text"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, msgInvalidBody)
		return
	}

	summary, err := h.summarizer.Summarize(r.Context(), summarizer.Input{URL: req.URL, Text: req.Text})
	if err != nil {
		status, body := summarizeFailure(err)
		if status == http.StatusInternalServerError {
			h.logInternalServerError(r, err)
		}
		h.writeJSON(w, r, status, body)
		return
	}

	obs.SummariesTotal.WithLabelValues("success").Inc()
	h.writeJSON(w, r, http.StatusOK, map[string]string{"summary": summary})
}
