package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mailmaster/internal/api/controllers"
	"mailmaster/internal/api/middleware"
	"mailmaster/internal/api/registry"
	"mailmaster/internal/config"
	"mailmaster/internal/handlers"
	"mailmaster/internal/models"
	"mailmaster/internal/repository/repotest"
	"mailmaster/internal/routes"
	"mailmaster/internal/services"
	"mailmaster/internal/utils/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQueue struct {
	campaigns []string
}

func (q *recordingQueue) EnqueueCampaignSend(_ context.Context, id string) error {
	q.campaigns = append(q.campaigns, id)
	return nil
}

type testEnv struct {
	echo        *echo.Echo
	svc         registry.Services
	newsletters *repotest.Newsletters
	subscribers *repotest.Subscribers
	queue       *recordingQueue
	user        *models.User
	token       string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	users := repotest.NewUsers()
	tokens := repotest.NewTokens()
	newsletters := repotest.NewNewsletters()
	subscribers := repotest.NewSubscribers(newsletters)
	campaigns := repotest.NewCampaigns(newsletters)
	queue := &recordingQueue{}

	svc := registry.Services{
		Auth:        services.NewAuthService(users, tokens, config.JWTConfig{Secret: "test-secret", TokenTTL: time.Hour}),
		Users:       services.NewUserService(users),
		Newsletters: services.NewNewsletterService(newsletters),
		Subscribers: services.NewSubscriberService(subscribers, newsletters, "test-secret"),
		Campaigns:   services.NewCampaignService(campaigns, newsletters, queue, nil),
	}

	log := logger.New("TEST")
	log.SetOutput(&bytes.Buffer{})

	e := echo.New()
	e.Validator = controllers.NewValidator()
	e.HTTPErrorHandler = controllers.ErrorHandler(log)

	api := e.Group("/api/v1")
	auth := middleware.NewAuthMiddleware(svc.Auth).Middleware()
	routes.SetupAuthRoutes(api, handlers.NewAuthHandler(svc.Auth, svc.Users), auth)
	routes.SetupPublicRoutes(api, handlers.NewUnsubscribeHandler(svc.Subscribers))
	registry.RegisterCRUDRoutes(api.Group("", auth), svc)

	user, issued, err := svc.Auth.Register(context.Background(), services.RegisterInput{
		Name:                 "Ada",
		Email:                "ada@example.com",
		Password:             "password123",
		PasswordConfirmation: "password123",
	}, services.ClientMeta{})
	require.NoError(t, err)

	return &testEnv{
		echo:        e,
		svc:         svc,
		newsletters: newsletters,
		subscribers: subscribers,
		queue:       queue,
		user:        user,
		token:       issued.Token,
	}
}

// tokenWith issues a bearer token for the test user limited to abilities.
func (env *testEnv) tokenWith(t *testing.T, abilities ...string) string {
	t.Helper()
	issued, err := env.svc.Auth.IssueToken(context.Background(), env.user, "limited", abilities, services.ClientMeta{})
	require.NoError(t, err)
	return issued.Token
}

func (env *testEnv) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSubscribeCreatesThenReactivates(t *testing.T) {
	env := newTestEnv(t)
	n := env.newsletters.Add(env.user.ID, "Weekly")
	path := "/api/v1/newsletters/" + n.ID + "/subscribers"

	rec := env.do(http.MethodPost, path, `{"email":"Ann@Example.com","name":"Ann"}`, env.token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	assert.Equal(t, "ann@example.com", created["email"])
	subID := created["id"].(string)

	rec = env.do(http.MethodPost, path, `{"email":"ann@example.com"}`, env.token)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode(t, rec)["errors"], "email")

	rec = env.do(http.MethodDelete, path+"/"+subID, "", env.token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, string(models.SubscriberStatusUnsubscribed), decode(t, rec)["status"])

	rec = env.do(http.MethodPost, path, `{"email":"ann@example.com"}`, env.token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reactivated := decode(t, rec)
	assert.Equal(t, subID, reactivated["id"])
	assert.Equal(t, string(models.SubscriberStatusActive), reactivated["status"])
	assert.Len(t, env.subscribers.Rows, 1)
}

func TestUnsubscribeTwiceIsInvalid(t *testing.T) {
	env := newTestEnv(t)
	n := env.newsletters.Add(env.user.ID, "Weekly")
	sub, _, err := env.svc.Subscribers.Subscribe(context.Background(), env.user.ID, n.ID, services.SubscribeInput{Email: "ann@example.com"})
	require.NoError(t, err)

	path := "/api/v1/newsletters/" + n.ID + "/subscribers/" + sub.ID
	require.Equal(t, http.StatusOK, env.do(http.MethodDelete, path, "", env.token).Code)

	rec := env.do(http.MethodDelete, path, "", env.token)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "The subscriber has already unsubscribed.", decode(t, rec)["message"])

	other := env.newsletters.Add(env.user.ID, "Monthly")
	rec = env.do(http.MethodDelete, "/api/v1/newsletters/"+other.ID+"/subscribers/"+sub.ID, "", env.token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportSubscribers(t *testing.T) {
	env := newTestEnv(t)
	n := env.newsletters.Add(env.user.ID, "Weekly")
	_, _, err := env.svc.Subscribers.Subscribe(context.Background(), env.user.ID, n.ID, services.SubscribeInput{Email: "ann@example.com"})
	require.NoError(t, err)

	rec := env.do(http.MethodGet, "/api/v1/newsletters/"+n.ID+"/subscribers/export", "", env.token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "subscribers-"+n.ID+".xlsx")
	// xlsx files are zip archives
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestSendCampaignIsAccepted(t *testing.T) {
	env := newTestEnv(t)
	n := env.newsletters.Add(env.user.ID, "Weekly")
	c, err := env.svc.Campaigns.Create(context.Background(), env.user.ID, services.CampaignInput{
		NewsletterID: n.ID, Subject: "Hello", Body: "<p>Hi</p>",
	})
	require.NoError(t, err)

	rec := env.do(http.MethodPost, "/api/v1/campaigns/"+c.ID+"/send", "", env.token)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, string(models.CampaignStatusQueued), decode(t, rec)["status"])
	assert.Equal(t, []string{c.ID}, env.queue.campaigns)

	rec = env.do(http.MethodPost, "/api/v1/campaigns/"+c.ID+"/send", "", env.token)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/campaigns/not-a-uuid/send", "", env.token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestArchiveWithoutStorage(t *testing.T) {
	env := newTestEnv(t)
	n := env.newsletters.Add(env.user.ID, "Weekly")
	c, err := env.svc.Campaigns.Create(context.Background(), env.user.ID, services.CampaignInput{
		NewsletterID: n.ID, Subject: "Hello", Body: "<p>Hi</p>",
	})
	require.NoError(t, err)

	rec := env.do(http.MethodGet, "/api/v1/campaigns/"+c.ID+"/archive", "", env.token)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Campaign archive not found", decode(t, rec)["message"])
}

func TestResourceRoutesEnforceAbilities(t *testing.T) {
	env := newTestEnv(t)
	n := env.newsletters.Add(env.user.ID, "Weekly")
	readOnly := env.tokenWith(t, models.AbilityNewslettersRead)

	tests := []struct {
		method  string
		path    string
		body    string
		want    int
		ability string
	}{
		{http.MethodGet, "/api/v1/newsletters", "", http.StatusOK, ""},
		{http.MethodPost, "/api/v1/newsletters", `{"name":"New"}`, http.StatusForbidden, models.AbilityNewslettersWrite},
		{http.MethodGet, "/api/v1/subscribers", "", http.StatusForbidden, models.AbilitySubscribersRead},
		{http.MethodPost, "/api/v1/newsletters/" + n.ID + "/subscribers", `{"email":"a@example.com"}`, http.StatusForbidden, models.AbilitySubscribersWrite},
		{http.MethodGet, "/api/v1/campaigns", "", http.StatusForbidden, models.AbilityCampaignsRead},
		{http.MethodGet, "/api/v1/newsletters/" + n.ID + "/campaigns", "", http.StatusForbidden, models.AbilityCampaignsRead},
		{http.MethodGet, "/api/v1/users", "", http.StatusForbidden, models.AbilityUsersRead},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := env.do(tt.method, tt.path, tt.body, readOnly)
			require.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.ability != "" {
				assert.Equal(t, "missing required ability: "+tt.ability, decode(t, rec)["message"])
			}
		})
	}
}

func TestLimitedTokenCannotEscalate(t *testing.T) {
	env := newTestEnv(t)
	limited := env.tokenWith(t, models.AbilityNewslettersRead)

	rec := env.do(http.MethodPost, "/api/v1/auth/tokens", `{"name":"root","abilities":["*"]}`, limited)
	require.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	assert.Equal(t, "missing required ability: *", decode(t, rec)["message"])

	rec = env.do(http.MethodPost, "/api/v1/auth/tokens", `{"name":"rw","abilities":["newsletters:write"]}`, limited)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/auth/tokens", `{"name":"ro","abilities":["newsletters:read"]}`, limited)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []interface{}{"newsletters:read"}, decode(t, rec)["abilities"])

	for _, r := range []struct{ method, body string }{
		{http.MethodPut, `{"name":"Mallory"}`},
		{http.MethodDelete, ""},
	} {
		rec = env.do(r.method, "/api/v1/auth/me", r.body, limited)
		assert.Equal(t, http.StatusForbidden, rec.Code, r.method)
	}
	rec = env.do(http.MethodDelete, "/api/v1/auth/tokens", "", limited)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// a limited token still manages itself
	rec = env.do(http.MethodGet, "/api/v1/auth/me", "", limited)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/auth/tokens", `{"name":"root","abilities":["*"]}`, env.token)
	assert.Equal(t, http.StatusCreated, rec.Code)
}
