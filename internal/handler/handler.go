package handler

import (
	"context"
	"html/template"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gorilla/csrf"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/auth"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/config"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/domain"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/obs"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/summarizer"
)

type IdentityStore interface {
	CreateIdentity(ctx context.Context, identity *domain.Identity) error
	GetIdentityByID(ctx context.Context, id string) (*domain.Identity, error)
	GetIdentityByEmail(ctx context.Context, email string) (*domain.Identity, error)
	ListIdentities(ctx context.Context) ([]*domain.Identity, error)
	UpdateIdentityStatus(ctx context.Context, id string, status domain.Status) (*domain.Identity, error)
}

// MailPublisher 与 *amqp.Channel 的发布方法签名一致
type MailPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Summarizer interface {
	Summarize(ctx context.Context, in summarizer.Input) (string, error)
}

type Handler struct {
	validate     *validator.Validate
	config       *config.Config
	store        IdentityStore
	auth         auth.Authenticator
	translator   ut.Translator
	mailChannel  MailPublisher
	redisClient  redis.Cmdable
	summarizer   Summarizer
	loginLimiter *ipRateLimiter
	csrfProtect  func(http.Handler) http.Handler
	pages        map[string]*template.Template

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, store IdentityStore, authenticator auth.Authenticator, mailCh MailPublisher, rdb redis.Cmdable, sum Summarizer) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// 校验错误信息中使用 json 字段名
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	en := en.New()
	uni := ut.New(en, en)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	loginLimiter, err := newIPRateLimiter(cfg.LoginRate.PerMinute, cfg.LoginRate.Burst, cfg.LoginRate.TrustedProxies)
	if err != nil {
		return nil, err
	}

	return &Handler{
		validate:     validate,
		config:       cfg,
		store:        store,
		auth:         authenticator,
		translator:   trans,
		mailChannel:  mailCh,
		redisClient:  rdb,
		summarizer:   sum,
		loginLimiter: loginLimiter,
		csrfProtect: csrf.Protect(
			[]byte(cfg.CSRF.Key),
			csrf.Secure(cfg.Environment == "production"),
			csrf.Path("/"),
			csrf.TrustedOrigins(cfg.CSRF.TrustedOrigins),
		),
		pages: pages,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)
	h.Mux.Use(obs.Instrument)
	h.Mux.Use(h.authenticate)

	h.Mux.Get("/healthz", h.Healthz)
	h.Mux.Handle("/metrics", obs.Handler())

	h.Mux.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.Signup)
			r.With(h.limitLogin).Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.With(h.requireSession).Get("/session", h.GetSession)
		})

		// 只有管理员能够查看和审批用户
		r.Route("/admin/users", func(r chi.Router) {
			r.Use(h.RequiredRole([]domain.Role{domain.RoleElevated}))
			r.Get("/", h.ListUsers)
			r.Patch("/", h.UpdateUserStatus)
		})

		r.Post("/ai/summarize", h.Summarize)
	})

	// 页面，表单提交需要 CSRF 令牌
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.csrf)

		r.Get("/", h.HomePage)
		r.Get("/login", h.LoginPage)
		r.Post("/login", h.LoginForm)
		r.Get("/signup", h.SignupPage)
		r.Post("/signup", h.SignupForm)
		r.Post("/logout", h.LogoutForm)

		r.Route("/dashboard", func(r chi.Router) {
			r.Use(h.requirePageSession)
			r.Get("/", h.DashboardPage)
			r.Get("/ai-summarizer", h.SummarizerPage)
			r.Post("/ai-summarizer", h.SummarizerForm)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.requirePageElevated)
			r.Get("/", h.AdminPage)
			r.Post("/users/{id}/status", h.AdminStatusForm)
		})
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
