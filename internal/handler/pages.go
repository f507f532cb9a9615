package handler

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/domain"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/obs"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/summarizer"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"home", "login", "signup", "dashboard", "admin", "summarizer"}

// mdRenderer 没有开启 WithUnsafe，markdown 中的原始 HTML 会被转义
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

var pageFuncs = template.FuncMap{
	"renderMarkdown": renderMarkdown,
	"displayName":    displayName,
}

func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(pageFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, err
		}
		pages[name] = tmpl
	}
	return pages, nil
}

type pageData struct {
	Title     string
	Session   *Session
	CSRFField template.HTML
	Error     string
	Notice    string
	Email     string

	Users    []*domain.Identity
	Pending  []*domain.Identity
	Approved int
	Rejected int

	URL         string
	Text        string
	Summary     string
	NeedsManual bool
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data *pageData) {
	tmpl, ok := h.pages[name]
	if !ok {
		h.internalServerError(w, r, errors.New("unknown page "+name))
		return
	}

	data.Session, _ = sessionFromContext(r.Context())
	data.CSRFField = csrf.TemplateField(r)

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("无法写入页面", "page", name, "error", err)
	}
}

func (h *Handler) HomePage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "home", &pageData{Title: "Welcome"})
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := sessionFromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	data := &pageData{Title: "Sign in"}
	switch r.URL.Query().Get("signup") {
	case "approved":
		data.Notice = "Account created. You can sign in now."
	case "pending":
		data.Notice = "Account created. An administrator needs to approve it before you can sign in."
	}

	h.render(w, r, http.StatusOK, "login", data)
}

func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if !h.loginLimiter.allowRequest(r) {
		h.render(w, r, http.StatusTooManyRequests, "login", &pageData{Title: "Sign in", Error: msgTooManyLogins})
		return
	}

	email := r.PostFormValue("email")
	if _, _, _, err := h.login(w, r, email, r.PostFormValue("password")); err != nil {
		if isCredentialError(err) {
			h.render(w, r, http.StatusUnauthorized, "login", &pageData{Title: "Sign in", Error: err.Error(), Email: email})
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) SignupPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "signup", &pageData{Title: "Create account"})
}

func (h *Handler) SignupForm(w http.ResponseWriter, r *http.Request) {
	req := signupRequest{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}

	identity, msg, err := h.signup(r.Context(), req)
	if err != nil {
		if msg == "" {
			h.internalServerError(w, r, err)
			return
		}
		h.render(w, r, http.StatusBadRequest, "signup", &pageData{Title: "Create account", Error: msg, Email: req.Email})
		return
	}

	if identity.IsApproved() {
		http.Redirect(w, r, "/login?signup=approved", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login?signup=pending", http.StatusSeeOther)
}

func (h *Handler) LogoutForm(w http.ResponseWriter, r *http.Request) {
	if err := h.logout(w, r); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) DashboardPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "dashboard", &pageData{Title: "Dashboard"})
}

func (h *Handler) adminPageData(r *http.Request) (*pageData, error) {
	identities, err := h.store.ListIdentities(r.Context())
	if err != nil {
		return nil, err
	}

	data := &pageData{Title: "Admin", Users: identities}
	for _, identity := range identities {
		switch identity.Status {
		case domain.StatusPending:
			data.Pending = append(data.Pending, identity)
		case domain.StatusApproved:
			data.Approved++
		case domain.StatusRejected:
			data.Rejected++
		}
	}

	return data, nil
}

func (h *Handler) AdminPage(w http.ResponseWriter, r *http.Request) {
	data, err := h.adminPageData(r)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.render(w, r, http.StatusOK, "admin", data)
}

func (h *Handler) AdminStatusForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	status, err := domain.ParseStatus(r.PostFormValue("status"))
	if err == nil {
		_, err = h.transitionStatus(r.Context(), id, status)
	}

	if err != nil {
		code := http.StatusBadRequest
		switch {
		case errors.Is(err, domain.ErrInvalidStatus):
		case errors.Is(err, domain.ErrIdentityNotFound):
			code = http.StatusNotFound
		default:
			h.internalServerError(w, r, err)
			return
		}

		data, listErr := h.adminPageData(r)
		if listErr != nil {
			h.internalServerError(w, r, listErr)
			return
		}
		data.Error = err.Error()
		h.render(w, r, code, "admin", data)
		return
	}

	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (h *Handler) SummarizerPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "summarizer", &pageData{Title: "AI Summarizer"})
}

func (h *Handler) SummarizerForm(w http.ResponseWriter, r *http.Request) {
	data := &pageData{
		Title: "AI Summarizer",
		URL:   strings.TrimSpace(r.PostFormValue("url")),
		Text:  r.PostFormValue("text"),
	}

	summary, err := h.summarizer.Summarize(r.Context(), summarizer.Input{URL: data.URL, Text: data.Text})
	if err != nil {
		status, body := summarizeFailure(err)
		if status == http.StatusInternalServerError {
			h.logInternalServerError(r, err)
		}
		data.Error = body.Error
		data.NeedsManual = body.NeedsManual
		h.render(w, r, status, "summarizer", data)
		return
	}

	obs.SummariesTotal.WithLabelValues("success").Inc()
	data.Summary = summary
	h.render(w, r, http.StatusOK, "summarizer", data)
}
