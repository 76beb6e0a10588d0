package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mailmaster/internal/config"
	"mailmaster/internal/models"
	"mailmaster/internal/repository"
	"mailmaster/internal/utils"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenName = "auth_token"

var errInvalidCredentials = invalid("email", "The provided credentials are incorrect.")

// IssuedToken is a freshly minted bearer token. Token is only available at
// issue time; the server keeps the AccessToken row, not the string.
type IssuedToken struct {
	Token       string              `json:"token"`
	TokenType   string              `json:"token_type"`
	ExpiresAt   time.Time           `json:"expires_at"`
	AccessToken *models.AccessToken `json:"-"`
}

// AuthService registers users and issues, checks and revokes their tokens.
type AuthService struct {
	users    repository.UserRepository
	tokens   repository.TokenRepository
	secret   string
	ttl      time.Duration
	hashCost int
	now      func() time.Time
}

func NewAuthService(users repository.UserRepository, tokens repository.TokenRepository, cfg config.JWTConfig) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		secret:   cfg.Secret,
		ttl:      cfg.TokenTTL,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput, meta ClientMeta) (*models.User, *IssuedToken, error) {
	email := normalizeEmail(in.Email)
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Password: string(hashed),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, invalid("email", "The email has already been taken.")
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.IssueToken(ctx, user, defaultTokenName, []string{models.AbilityAll}, meta)
	if err != nil {
		return nil, nil, err
	}

	return user, token, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput, meta ClientMeta) (*models.User, *IssuedToken, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, errInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return nil, nil, errInvalidCredentials
	}

	token, err := s.IssueToken(ctx, user, defaultTokenName, []string{models.AbilityAll}, meta)
	if err != nil {
		return nil, nil, err
	}

	return user, token, nil
}

// IssueScopedToken issues a token on behalf of parent. Every requested
// ability must already be granted by parent, so a token can only mint
// narrower ones.
func (s *AuthService) IssueScopedToken(ctx context.Context, user *models.User, parent *models.AccessToken, name string, abilities []string, meta ClientMeta) (*IssuedToken, error) {
	if user == nil || parent == nil {
		return nil, ErrUnauthenticated
	}
	for _, ability := range abilities {
		if !parent.Can(ability) {
			return nil, &AbilityError{Ability: ability}
		}
	}
	return s.IssueToken(ctx, user, name, abilities, meta)
}

// IssueToken stores a new access token for user and signs the bearer string
// that refers to it.
func (s *AuthService) IssueToken(ctx context.Context, user *models.User, name string, abilities []string, meta ClientMeta) (*IssuedToken, error) {
	now := s.now()

	record := &models.AccessToken{
		Base:      models.Base{ID: uuid.New().String()},
		UserID:    user.ID,
		Name:      name,
		Abilities: pq.StringArray(abilities),
		IPAddress: meta.IPAddress,
		Device:    utils.DescribeDevice(meta.UserAgent),
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.tokens.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}

	raw, err := utils.GenerateAccessToken(s.secret, record.ID, user.ID, now, record.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &IssuedToken{
		Token:       raw,
		TokenType:   "Bearer",
		ExpiresAt:   record.ExpiresAt,
		AccessToken: record,
	}, nil
}

// Authenticate resolves a bearer token to its user. Any failure, including
// a revoked or expired token, is reported as ErrUnauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*models.User, *models.AccessToken, error) {
	claims, err := utils.ParseAccessToken(s.secret, raw)
	if err != nil {
		return nil, nil, ErrUnauthenticated
	}

	token, err := s.tokens.FindByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrUnauthenticated
		}
		return nil, nil, err
	}

	now := s.now()
	if token.UserID != claims.UserID || !token.Active(now) {
		return nil, nil, ErrUnauthenticated
	}

	user, err := s.users.FindByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrUnauthenticated
		}
		return nil, nil, err
	}

	// last_used_at is informational, a failed write must not reject the request.
	_ = s.tokens.Touch(ctx, token.ID, now)

	return user, token, nil
}

// Logout revokes the token used for the current request.
func (s *AuthService) Logout(ctx context.Context, token *models.AccessToken) error {
	if err := s.tokens.Revoke(ctx, token.ID, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUnauthenticated
		}
		return err
	}
	return nil
}

// LogoutAll revokes every live token of the user.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int64, error) {
	return s.tokens.RevokeAllForUser(ctx, userID, s.now())
}

// Refresh replaces the current token with a new one carrying the same name
// and abilities.
func (s *AuthService) Refresh(ctx context.Context, user *models.User, current *models.AccessToken, meta ClientMeta) (*IssuedToken, error) {
	if err := s.Logout(ctx, current); err != nil {
		return nil, err
	}
	return s.IssueToken(ctx, user, current.Name, current.Abilities, meta)
}

func (s *AuthService) UpdateProfile(ctx context.Context, user *models.User, in ProfileInput) (*models.User, error) {
	if in.Name != "" {
		user.Name = strings.TrimSpace(in.Name)
	}

	if in.Email != "" {
		email := normalizeEmail(in.Email)
		if email != user.Email {
			if err := s.ensureEmailFree(ctx, email, user.ID); err != nil {
				return nil, err
			}
			user.Email = email
		}
	}

	if in.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = string(hashed)
	}

	if err := s.users.Save(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalid("email", "The email has already been taken.")
		}
		return nil, err
	}

	return user, nil
}

// DeleteAccount removes the user. Tokens and newsletters go with it.
func (s *AuthService) DeleteAccount(ctx context.Context, user *models.User) error {
	return s.users.Delete(ctx, user.ID)
}

// PruneTokens deletes tokens that have expired or were revoked.
func (s *AuthService) PruneTokens(ctx context.Context) (int64, error) {
	return s.tokens.PruneExpired(ctx, s.now())
}

func (s *AuthService) ensureEmailFree(ctx context.Context, email, exceptUserID string) error {
	existing, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != exceptUserID:
		return invalid("email", "The email has already been taken.")
	case err == nil, errors.Is(err, repository.ErrNotFound):
		return nil
	default:
		return err
	}
}

// UserService is the read-only user directory.
type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) List(ctx context.Context, q repository.ListQuery) ([]models.User, int64, error) {
	return s.users.List(ctx, q)
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound("User", err)
	}
	return user, nil
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, notFound("User", err)
	}
	return user, nil
}
