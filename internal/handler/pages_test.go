package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/gatekeeper/backend/internal/domain"
)

var csrfFieldPattern = regexp.MustCompile(`name="gorilla.csrf.Token" value="([^"]+)"`)

// formClient 模拟浏览器：保存 cookie 并在提交表单时带上 CSRF 令牌
type formClient struct {
	env     *testEnv
	cookies map[string]*http.Cookie
	token   string
}

func newFormClient(env *testEnv) *formClient {
	return &formClient{env: env, cookies: make(map[string]*http.Cookie)}
}

func (c *formClient) send(req *http.Request) *httptest.ResponseRecorder {
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c.env.handler.Mux.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.MaxAge < 0 {
			delete(c.cookies, cookie.Name)
			continue
		}
		c.cookies[cookie.Name] = cookie
	}
	if m := csrfFieldPattern.FindStringSubmatch(rec.Body.String()); m != nil {
		c.token = m[1]
	}
	return rec
}

func (c *formClient) get(path string) *httptest.ResponseRecorder {
	return c.send(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *formClient) post(path string, form url.Values) *httptest.ResponseRecorder {
	form.Set("gorilla.csrf.Token", c.token)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.send(req)
}

func TestFormPostWithoutCSRFTokenIsForbidden(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{"email": {"a@example.com"}, "password": {"pw"}}
	req := httptest.NewRequest(http.MethodPost, "/signup", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	env.handler.Mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, env.store.count())
}

func TestSignupAndLoginForms(t *testing.T) {
	env := newTestEnv(t)
	browser := newFormClient(env)

	rec := browser.get("/signup")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, browser.token)

	rec = browser.post("/signup", url.Values{"name": {"Ada"}, "email": {"ada@example.com"}, "password": {"ada-pass"}})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/login?signup=approved", rec.Header().Get("Location"))

	rec = browser.get("/login?signup=approved")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "You can sign in now")

	rec = browser.post("/login", url.Values{"email": {"ada@example.com"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")

	rec = browser.post("/login", url.Values{"email": {"ada@example.com"}, "password": {"ada-pass"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = browser.get("/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome, Ada")

	rec = browser.post("/logout", url.Values{})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = browser.get("/dashboard")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestSignupFormShowsErrors(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "admin@example.com", "admin-pass")
	browser := newFormClient(env)
	browser.get("/signup")

	rec := browser.post("/signup", url.Values{"email": {"admin@example.com"}, "password": {"x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "User already exists")

	rec = browser.post("/signup", url.Values{"email": {"new@example.com"}, "password": {"x"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?signup=pending", rec.Header().Get("Location"))
}

func TestAdminStatusForm(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "admin@example.com", "admin-pass")
	bob := env.signup(t, "bob@example.com", "bob-pass")

	browser := newFormClient(env)
	browser.get("/login")
	rec := browser.post("/login", url.Values{"email": {"admin@example.com"}, "password": {"admin-pass"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = browser.get("/admin")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/admin/users/"+bob.ID+"/status")

	rec = browser.post("/admin/users/"+bob.ID+"/status", url.Values{"status": {"BOGUS"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid status")

	rec = browser.post("/admin/users/nobody/status", url.Values{"status": {"APPROVED"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = browser.post("/admin/users/"+bob.ID+"/status", url.Values{"status": {"APPROVED"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))

	stored, err := env.store.GetIdentityByID(t.Context(), bob.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, stored.Status)
}

func TestSummarizerFormRendersMarkdown(t *testing.T) {
	env := newTestEnv(t)
	env.signup(t, "admin@example.com", "admin-pass")

	browser := newFormClient(env)
	browser.get("/login")
	browser.post("/login", url.Values{"email": {"admin@example.com"}, "password": {"admin-pass"}})

	rec := browser.get("/dashboard/ai-summarizer")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = browser.post("/dashboard/ai-summarizer", url.Values{"url": {"https://www.youtube.com/watch?v=dQw4w9WgXcQ"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Study guide</h1>")

	env.video.transcript = "short"
	rec = browser.post("/dashboard/ai-summarizer", url.Values{"url": {"https://www.youtube.com/watch?v=dQw4w9WgXcQ"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="text"`)
}
