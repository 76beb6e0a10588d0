package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"mailmaster/internal/config"
	"mailmaster/internal/models"
	"mailmaster/internal/repository/repotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService() (*AuthService, *repotest.Users, *repotest.Tokens) {
	users := repotest.NewUsers()
	tokens := repotest.NewTokens()
	svc := NewAuthService(users, tokens, config.JWTConfig{Secret: "test-secret", TokenTTL: time.Hour})
	svc.hashCost = bcrypt.MinCost
	return svc, users, tokens
}

func register(t *testing.T, svc *AuthService, email string) (*models.User, *IssuedToken) {
	t.Helper()
	user, token, err := svc.Register(context.Background(), RegisterInput{
		Name:                 "Ada",
		Email:                email,
		Password:             "password123",
		PasswordConfirmation: "password123",
	}, ClientMeta{IPAddress: "10.0.0.1", UserAgent: "curl/8.0"})
	require.NoError(t, err)
	return user, token
}

func TestRegisterIssuesUsableToken(t *testing.T) {
	svc, _, tokens := newAuthService()
	ctx := context.Background()

	user, token := register(t, svc, "  Ada@Example.com ")

	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEqual(t, "password123", user.Password)
	assert.Equal(t, "Bearer", token.TokenType)
	require.Len(t, tokens.Rows, 1)

	got, record, err := svc.Authenticate(ctx, token.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.True(t, record.Can(models.AbilityNewslettersWrite))
	assert.NotNil(t, tokens.Rows[record.ID].LastUsedAt)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newAuthService()
	register(t, svc, "ada@example.com")

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Name: "Other", Email: "ADA@example.com", Password: "password123", PasswordConfirmation: "password123",
	}, ClientMeta{})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "email", verr.Field)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newAuthService()
	ctx := context.Background()
	user, _ := register(t, svc, "ada@example.com")

	t.Run("valid credentials", func(t *testing.T) {
		got, token, err := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "password123"}, ClientMeta{})
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.NotEmpty(t, token.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "nope-nope"}, ClientMeta{})
		assert.Equal(t, errInvalidCredentials, err)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.Login(ctx, LoginInput{Email: "bob@example.com", Password: "password123"}, ClientMeta{})
		assert.Equal(t, errInvalidCredentials, err)
	})
}

func TestLogoutRevokesOnlyCurrentToken(t *testing.T) {
	svc, _, _ := newAuthService()
	ctx := context.Background()
	_, first := register(t, svc, "ada@example.com")
	_, second, err := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "password123"}, ClientMeta{})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, first.AccessToken))

	_, _, err = svc.Authenticate(ctx, first.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, _, err = svc.Authenticate(ctx, second.Token)
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.Logout(ctx, first.AccessToken), ErrUnauthenticated)
}

func TestLogoutAll(t *testing.T) {
	svc, _, _ := newAuthService()
	ctx := context.Background()
	user, first := register(t, svc, "ada@example.com")
	_, second, err := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "password123"}, ClientMeta{})
	require.NoError(t, err)

	n, err := svc.LogoutAll(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	for _, tok := range []*IssuedToken{first, second} {
		_, _, err := svc.Authenticate(ctx, tok.Token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	}
}

func TestAuthenticateRejects(t *testing.T) {
	svc, _, tokens := newAuthService()
	ctx := context.Background()
	_, token := register(t, svc, "ada@example.com")

	t.Run("garbage", func(t *testing.T) {
		_, _, err := svc.Authenticate(ctx, "not-a-token")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("expired", func(t *testing.T) {
		svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { svc.now = time.Now }()
		_, _, err := svc.Authenticate(ctx, token.Token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("row deleted", func(t *testing.T) {
		delete(tokens.Rows, token.AccessToken.ID)
		_, _, err := svc.Authenticate(ctx, token.Token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestRefreshKeepsAbilities(t *testing.T) {
	svc, _, _ := newAuthService()
	ctx := context.Background()
	user, _ := register(t, svc, "ada@example.com")

	limited, err := svc.IssueToken(ctx, user, "ci", []string{models.AbilityCampaignsRead}, ClientMeta{})
	require.NoError(t, err)

	fresh, err := svc.Refresh(ctx, user, limited.AccessToken, ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, "ci", fresh.AccessToken.Name)
	assert.Equal(t, []string{models.AbilityCampaignsRead}, []string(fresh.AccessToken.Abilities))

	_, _, err = svc.Authenticate(ctx, limited.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestIssueScopedTokenCannotWidenAbilities(t *testing.T) {
	svc, _, tokens := newAuthService()
	ctx := context.Background()
	user, full := register(t, svc, "ada@example.com")

	limited, err := svc.IssueScopedToken(ctx, user, full.AccessToken, "ci", []string{models.AbilityNewslettersRead}, ClientMeta{})
	require.NoError(t, err)

	_, err = svc.IssueScopedToken(ctx, user, limited.AccessToken, "root", []string{models.AbilityAll}, ClientMeta{})
	var abilityErr *AbilityError
	require.True(t, errors.As(err, &abilityErr))
	assert.Equal(t, models.AbilityAll, abilityErr.Ability)

	_, err = svc.IssueScopedToken(ctx, user, limited.AccessToken, "rw", []string{models.AbilityNewslettersWrite}, ClientMeta{})
	assert.True(t, errors.As(err, &abilityErr))

	narrow, err := svc.IssueScopedToken(ctx, user, limited.AccessToken, "ro", []string{models.AbilityNewslettersRead}, ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, []string{models.AbilityNewslettersRead}, []string(narrow.AccessToken.Abilities))
	assert.Len(t, tokens.Rows, 3)

	_, err = svc.IssueScopedToken(ctx, user, nil, "x", []string{models.AbilityNewslettersRead}, ClientMeta{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestUpdateProfile(t *testing.T) {
	svc, users, _ := newAuthService()
	ctx := context.Background()
	user, _ := register(t, svc, "ada@example.com")
	register(t, svc, "bob@example.com")

	_, err := svc.UpdateProfile(ctx, user, ProfileInput{Email: "bob@example.com"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	updated, err := svc.UpdateProfile(ctx, user, ProfileInput{Name: "Ada L.", Password: "new-password"})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated.Name)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users.Rows[user.ID].Password), []byte("new-password")))
}

func TestUserServiceNotFound(t *testing.T) {
	users := repotest.NewUsers()
	svc := NewUserService(users)

	_, err := svc.Get(context.Background(), "missing")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "User not found", nf.Error())
}
