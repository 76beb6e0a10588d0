package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mailmaster/internal/api/registry"
	"mailmaster/internal/config"
	"mailmaster/internal/repository"
	"mailmaster/internal/services"
	"mailmaster/internal/utils"
	"mailmaster/internal/utils/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testSecret = "test-secret"

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Host: "localhost", Port: 0, BaseURL: "http://localhost"},
		JWT:       config.JWTConfig{Secret: testSecret, TokenTTL: time.Hour},
		RateLimit: config.RateLimitConfig{PerMinute: 100, AuthPerMinute: 2},
	}
}

type testEnv struct {
	server *Server
	mock   sqlmock.Sqlmock
}

func newTestServer(t *testing.T, redis *utils.RedisClient) *testEnv {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	cfg := testConfig()
	users := repository.NewUserRepository(conn, nil)
	tokens := repository.NewTokenRepository(conn)
	newsletters := repository.NewNewsletterRepository(conn, nil)
	subscribers := repository.NewSubscriberRepository(conn, nil)
	campaigns := repository.NewCampaignRepository(conn, nil)

	log := logger.New("TEST")
	log.SetOutput(&bytes.Buffer{})

	srv := NewServer(cfg, conn, redis, registry.Services{
		Auth:        services.NewAuthService(users, tokens, cfg.JWT),
		Users:       services.NewUserService(users),
		Newsletters: services.NewNewsletterService(newsletters),
		Subscribers: services.NewSubscriberService(subscribers, newsletters, cfg.JWT.Secret),
		Campaigns:   services.NewCampaignService(campaigns, newsletters, nil, nil),
	}, log)

	return &testEnv{server: srv, mock: mock}
}

func (env *testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	env.server.Echo().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRoot(t *testing.T) {
	env := newTestServer(t, nil)
	rec := env.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "MailMaster")
}

func TestHealthCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := utils.NewRedisClient(&config.Config{Redis: config.RedisConfig{Addr: mr.Addr()}})
	require.NoError(t, err)
	defer client.Close()

	env := newTestServer(t, client)

	rec := env.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])

	mr.Close()
	rec = env.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "unhealthy", body["status"])
	assert.Equal(t, "unavailable", body["checks"].(map[string]interface{})["redis"])
}

func TestHealthCheckWithoutRedis(t *testing.T) {
	env := newTestServer(t, nil)

	rec := env.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "disabled", decode(t, rec)["checks"].(map[string]interface{})["redis"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestServer(t, nil)

	for _, path := range []string{
		"/api/v1/newsletters",
		"/api/v1/subscribers",
		"/api/v1/campaigns",
		"/api/v1/auth/me",
		"/api/v1/users",
	} {
		rec := env.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "Unauthenticated.", decode(t, rec)["message"], path)
	}

	rec := env.do(http.MethodGet, "/api/v1/newsletters", "", map[string]string{"Authorization": "Bearer not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnknownTokenIsRejected(t *testing.T) {
	env := newTestServer(t, nil)

	now := time.Now()
	raw, err := utils.GenerateAccessToken(testSecret, uuid.NewString(), uuid.NewString(), now, now.Add(time.Hour))
	require.NoError(t, err)

	env.mock.ExpectQuery(`SELECT \* FROM "access_tokens"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := env.do(http.MethodGet, "/api/v1/newsletters", "", map[string]string{"Authorization": "Bearer " + raw})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestLoginValidation(t *testing.T) {
	env := newTestServer(t, nil)

	rec := env.do(http.MethodPost, "/api/v1/auth/login", `{"email":"not-an-email"}`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "The given data was invalid.", body["message"])
	errs := body["errors"].(map[string]interface{})
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "password")
}

func TestRegisterValidation(t *testing.T) {
	env := newTestServer(t, nil)

	rec := env.do(http.MethodPost, "/api/v1/auth/register",
		`{"name":"Ann","email":"ann@example.com","password":"secret123","password_confirmation":"other"}`, nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode(t, rec)["errors"], "password_confirmation")
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	env := newTestServer(t, nil)

	for i := 0; i < 2; i++ {
		rec := env.do(http.MethodPost, "/api/v1/auth/login", `{}`, nil)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	}

	rec := env.do(http.MethodPost, "/api/v1/auth/login", `{}`, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestPublicUnsubscribeRequiresToken(t *testing.T) {
	env := newTestServer(t, nil)

	rec := env.do(http.MethodGet, "/api/v1/public/unsubscribe", "", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode(t, rec)["errors"], "token")

	rec = env.do(http.MethodPost, "/api/v1/public/unsubscribe?token=garbage", "", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
