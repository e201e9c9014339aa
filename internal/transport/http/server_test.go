package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"account-service/internal/bootstrap"
	"account-service/internal/config"
	"account-service/internal/logging"
	"account-service/internal/model"
	"account-service/internal/transport/http/response"
)

type fakePublisher struct {
	mu   sync.Mutex
	jobs []model.NotificationJob
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, job model.NotificationJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

type testServer struct {
	router    *gin.Engine
	publisher *fakePublisher
}

func newTestServer(t *testing.T, mutate func(cfg *config.Config)) *testServer {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&model.User{}))

	mr := miniredis.RunT(t)
	client := redisv9.NewClient(&redisv9.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Config{
		App:       config.AppConfig{Name: "account-service", Env: "test", GinMode: gin.TestMode},
		Auth:      config.AuthConfig{JWTSecret: "test-secret", JWTExpireMinute: 30},
		Redis:     config.RedisConfig{TokenCachePrefix: "token:"},
		RateLimit: config.RateLimitConfig{RPS: 1000, Burst: 1000},
	}
	if mutate != nil {
		mutate(cfg)
	}

	publisher := &fakePublisher{}
	app := &bootstrap.App{
		Config:    cfg,
		Logger:    logging.Discard(),
		DB:        db,
		Redis:     client,
		Publisher: publisher,
		StartedAt: time.Now(),
	}
	return &testServer{router: NewRouter(app), publisher: publisher}
}

func (s *testServer) do(t *testing.T, method, target string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(t *testing.T, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return s.do(t, method, target, strings.NewReader(string(raw)), map[string]string{"Content-Type": "application/json"})
}

func (s *testServer) token(t *testing.T, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	return s.do(t, nethttp.MethodPost, "/token", strings.NewReader(form.Encode()), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
}

func (s *testServer) registerBob(t *testing.T) {
	t.Helper()
	rec := s.doJSON(t, nethttp.MethodPost, "/register", gin.H{
		"email":      "a@x.com",
		"username":   "a",
		"password":   "p1",
		"first_name": "Bob",
		"last_name":  "T",
		"balance":    100,
	})
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status, code int) {
	t.Helper()
	assert.Equal(t, status, rec.Code, rec.Body.String())
	body := decode[response.APIResponse](t, rec)
	assert.Equal(t, code, body.Code)
	assert.NotEmpty(t, body.Message)
}

func TestRegister(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.doJSON(t, nethttp.MethodPost, "/register", gin.H{
		"email":      "a@x.com",
		"username":   "a",
		"password":   "p1",
		"first_name": "Bob",
		"last_name":  "T",
		"balance":    100,
	})
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())

	user := decode[map[string]any](t, rec)
	assert.Equal(t, "a@x.com", user["email"])
	assert.Equal(t, "a", user["username"])
	assert.Equal(t, "Bob", user["first_name"])
	assert.EqualValues(t, 100, user["balance"])
	assert.NotContains(t, user, "password_hash")
	assert.NotContains(t, rec.Body.String(), "p1")

	rec = srv.doJSON(t, nethttp.MethodPost, "/register", gin.H{
		"email": "a@x.com", "password": "p2", "first_name": "X", "last_name": "Y", "balance": 0,
	})
	assertError(t, rec, nethttp.StatusBadRequest, response.CodeEmailExists)

	rec = srv.doJSON(t, nethttp.MethodPost, "/register", gin.H{
		"email": "b@x.com", "username": "a", "password": "p2", "first_name": "X", "last_name": "Y", "balance": 0,
	})
	assertError(t, rec, nethttp.StatusBadRequest, response.CodeUsernameExists)

	rec = srv.doJSON(t, nethttp.MethodPost, "/register", gin.H{"email": "c@x.com"})
	assertError(t, rec, nethttp.StatusBadRequest, response.CodeBadRequest)

	rec = srv.doJSON(t, nethttp.MethodPost, "/register", gin.H{
		"email": "d@x.com", "password": "p", "first_name": "X", "last_name": "Y", "balance": -5,
	})
	assertError(t, rec, nethttp.StatusBadRequest, response.CodeBadRequest)
}

func TestLoginAndLogout(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.registerBob(t)

	rec := srv.doJSON(t, nethttp.MethodPost, "/login", gin.H{"email": "a@x.com", "password": "p1"})
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, "You are now logged in", decode[map[string]string](t, rec)["message"])

	rec = srv.doJSON(t, nethttp.MethodPost, "/login", gin.H{"email": "a@x.com", "password": "nope"})
	assertError(t, rec, nethttp.StatusUnauthorized, response.CodeInvalidCredentials)

	rec = srv.do(t, nethttp.MethodPost, "/logout", nil, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, "User logged out successfully", decode[map[string]string](t, rec)["message"])
}

func TestTokenAndCurrentUser(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.registerBob(t)

	rec := srv.token(t, "a", "p1")
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	tok := decode[map[string]string](t, rec)
	assert.Equal(t, "bearer", tok["token_type"])
	require.NotEmpty(t, tok["access_token"])

	again := decode[map[string]string](t, srv.token(t, "a", "p1"))
	assert.Equal(t, tok["access_token"], again["access_token"])

	rec = srv.token(t, "a", "wrong-but-cached")
	require.Equal(t, nethttp.StatusOK, rec.Code)

	rec = srv.token(t, "ghost", "p1")
	assertError(t, rec, nethttp.StatusUnauthorized, response.CodeInvalidCredentials)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	bearer := map[string]string{"Authorization": "Bearer " + tok["access_token"]}

	rec = srv.do(t, nethttp.MethodGet, "/users/me/", nil, bearer)
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	me := decode[map[string]any](t, rec)
	assert.Equal(t, "a", me["username"])
	assert.Equal(t, "a@x.com", me["email"])

	rec = srv.do(t, nethttp.MethodGet, "/users/me/items/", nil, bearer)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	items := decode[[]map[string]string](t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, "Foo", items[0]["item_id"])
	assert.Equal(t, "a", items[0]["owner"])
}

func TestCurrentUserRejectsBadTokens(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, nethttp.MethodGet, "/users/me/", nil, nil)
	assertError(t, rec, nethttp.StatusUnauthorized, response.CodeInvalidToken)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	rec = srv.do(t, nethttp.MethodGet, "/users/me/", nil, map[string]string{"Authorization": "Bearer garbage"})
	assertError(t, rec, nethttp.StatusUnauthorized, response.CodeInvalidToken)

	rec = srv.do(t, nethttp.MethodGet, "/users/me/", nil, map[string]string{"Authorization": "Basic abc"})
	assertError(t, rec, nethttp.StatusUnauthorized, response.CodeInvalidToken)
}

func TestBalanceAndWithdraw(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.registerBob(t)

	rec := srv.do(t, nethttp.MethodGet, "/balance?first_name=Bob&last_name=T", nil, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.EqualValues(t, 100, decode[map[string]any](t, rec)["balance"])

	rec = srv.do(t, nethttp.MethodPut, "/withdraw_balance?first_name=Bob&last_name=T&amount=30", nil, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "Balance updated", body["message"])
	assert.EqualValues(t, 70, body["new_balance"])

	rec = srv.do(t, nethttp.MethodPut, "/withdraw_balance?first_name=Bob&last_name=T&amount=1000", nil, nil)
	assertError(t, rec, nethttp.StatusBadRequest, response.CodeInsufficientFunds)

	rec = srv.do(t, nethttp.MethodPut, "/withdraw_balance?first_name=Bob&last_name=T&amount=-1", nil, nil)
	assertError(t, rec, nethttp.StatusBadRequest, response.CodeBadRequest)

	rec = srv.do(t, nethttp.MethodPut, "/withdraw_balance?first_name=No&last_name=One&amount=1", nil, nil)
	assertError(t, rec, nethttp.StatusNotFound, response.CodeUserNotFound)

	rec = srv.do(t, nethttp.MethodGet, "/balance?first_name=Bob&last_name=T", nil, nil)
	assert.EqualValues(t, 70, decode[map[string]any](t, rec)["balance"])

	rec = srv.do(t, nethttp.MethodGet, "/balance?first_name=Bob", nil, nil)
	assertError(t, rec, nethttp.StatusBadRequest, response.CodeBadRequest)
}

func TestProfileUpdateAndFetch(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.registerBob(t)

	rec := srv.doJSON(t, nethttp.MethodPut, "/update_profile", gin.H{
		"email":          "a@x.com",
		"first_name":     "Bob",
		"last_name":      "T",
		"new_first_name": "Robert",
		"new_last_name":  "Tester",
	})
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "Profile updated", body["message"])
	assert.Equal(t, "Robert", body["first_name"])
	assert.Equal(t, "Tester", body["last_name"])

	rec = srv.do(t, nethttp.MethodGet, "/profile?first_name=Robert&last_name=Tester", nil, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, "a@x.com", decode[map[string]any](t, rec)["email"])

	rec = srv.do(t, nethttp.MethodGet, "/profile?first_name=Bob&last_name=T", nil, nil)
	assertError(t, rec, nethttp.StatusNotFound, response.CodeUserNotFound)

	rec = srv.doJSON(t, nethttp.MethodPut, "/update_profile", gin.H{
		"first_name": "Bob", "last_name": "T", "new_first_name": "X", "new_last_name": "Y",
	})
	assertError(t, rec, nethttp.StatusNotFound, response.CodeUserNotFound)
}

func TestChangePassword(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.registerBob(t)

	change := func(email, old, next, confirm string) *httptest.ResponseRecorder {
		return srv.doJSON(t, nethttp.MethodPost, "/change_password", gin.H{
			"email":                email,
			"password":             old,
			"new_password":         next,
			"confirm_new_password": confirm,
		})
	}

	assertError(t, change("ghost@x.com", "p1", "n", "n"), nethttp.StatusNotFound, response.CodeUserNotFound)
	assertError(t, change("a@x.com", "bad", "n", "n"), nethttp.StatusBadRequest, response.CodeWrongOldPassword)
	assertError(t, change("a@x.com", "p1", "n1", "n2"), nethttp.StatusBadRequest, response.CodePasswordMismatch)

	rec := change("a@x.com", "p1", "n", "n")
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Password changed successfully", decode[map[string]string](t, rec)["message"])

	rec = srv.doJSON(t, nethttp.MethodPost, "/login", gin.H{"email": "a@x.com", "password": "n"})
	assert.Equal(t, nethttp.StatusOK, rec.Code)
}

func TestListUsers(t *testing.T) {
	srv := newTestServer(t, nil)
	for i, first := range []string{"Ann", "Ben", "Cid"} {
		rec := srv.doJSON(t, nethttp.MethodPost, "/register", gin.H{
			"email":      fmt.Sprintf("u%d@x.com", i),
			"password":   "p",
			"first_name": first,
			"last_name":  "L",
			"balance":    i * 10,
		})
		require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	}

	rec := srv.do(t, nethttp.MethodGet, "/get_users?sort_by=id&order=desc", nil, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	users := decode[[]map[string]any](t, rec)
	require.Len(t, users, 3)
	assert.Equal(t, "Cid", users[0]["first_name"])
	assert.Equal(t, "Ann", users[2]["first_name"])
	for i := 1; i < len(users); i++ {
		assert.Greater(t, users[i-1]["id"], users[i]["id"])
	}

	rec = srv.do(t, nethttp.MethodGet, "/get_users?first_name=Ben", nil, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	users = decode[[]map[string]any](t, rec)
	require.Len(t, users, 1)
	assert.Equal(t, "Ben", users[0]["first_name"])

	rec = srv.do(t, nethttp.MethodGet, "/get_users?skip=1&limit=1", nil, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = srv.do(t, nethttp.MethodGet, "/get_users?sort_by=password_hash", nil, nil)
	assertError(t, rec, nethttp.StatusBadRequest, response.CodeBadRequest)

	rec = srv.do(t, nethttp.MethodGet, "/get_users?limit=abc", nil, nil)
	assertError(t, rec, nethttp.StatusBadRequest, response.CodeBadRequest)
}

func TestPush(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, nethttp.MethodGet, "/push/device-123", nil, nil)
	require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "Notification sent", body["message"])
	assert.NotEmpty(t, body["job_id"])

	require.Len(t, srv.publisher.jobs, 1)
	assert.Equal(t, "device-123", srv.publisher.jobs[0].DeviceToken)
	assert.Equal(t, body["job_id"], srv.publisher.jobs[0].ID)

	srv.publisher.err = errors.New("broker down")
	rec = srv.do(t, nethttp.MethodGet, "/push/device-123", nil, nil)
	assertError(t, rec, nethttp.StatusServiceUnavailable, response.CodeNotificationEnqueue)
}

func TestCredentialEndpointsAreRateLimited(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 2}
	})

	assert.Equal(t, nethttp.StatusUnauthorized, srv.token(t, "ghost", "p").Code)
	rec := srv.doJSON(t, nethttp.MethodPost, "/login", gin.H{"email": "ghost@x.com", "password": "p"})
	assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)

	rec = srv.token(t, "ghost", "p")
	assertError(t, rec, nethttp.StatusTooManyRequests, response.CodeTooManyRequests)

	rec = srv.do(t, nethttp.MethodPost, "/logout", nil, nil)
	assert.Equal(t, nethttp.StatusOK, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := srv.do(t, nethttp.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, nethttp.StatusServiceUnavailable, rec.Code)

	var body struct {
		App          string `json:"app"`
		Dependencies map[string]struct {
			OK bool `json:"ok"`
		} `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "account-service", body.App)
	assert.True(t, body.Dependencies["database"].OK)
	assert.True(t, body.Dependencies["redis"].OK)
	assert.False(t, body.Dependencies["rabbitmq"].OK)
}
