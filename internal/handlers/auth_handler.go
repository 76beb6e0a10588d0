package handlers

import (
	"net/http"
	"time"

	"mailmaster/internal/api/controllers"
	"mailmaster/internal/api/middleware"
	"mailmaster/internal/models"
	"mailmaster/internal/services"
	"mailmaster/internal/utils"

	"github.com/labstack/echo/v4"
)

type AuthHandler struct {
	auth  *services.AuthService
	users *services.UserService
}

func NewAuthHandler(auth *services.AuthService, users *services.UserService) *AuthHandler {
	return &AuthHandler{auth: auth, users: users}
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// TokenResponse describes a newly issued token.
type TokenResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Abilities []string  `json:"abilities"`
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newAuthResponse(user *models.User, token *services.IssuedToken) AuthResponse {
	return AuthResponse{User: user, Token: token.Token, TokenType: token.TokenType, ExpiresAt: token.ExpiresAt}
}

func newTokenResponse(token *services.IssuedToken) TokenResponse {
	return TokenResponse{
		ID:        token.AccessToken.ID,
		Name:      token.AccessToken.Name,
		Abilities: token.AccessToken.Abilities,
		Token:     token.Token,
		TokenType: token.TokenType,
		ExpiresAt: token.ExpiresAt,
	}
}

func clientMeta(c echo.Context) services.ClientMeta {
	return services.ClientMeta{
		IPAddress: utils.GetIPAddress(c.Request()),
		UserAgent: c.Request().UserAgent(),
	}
}

func message(c echo.Context, code int, text string) error {
	return c.JSON(code, map[string]string{"message": text})
}

// Register creates an account and returns its first token.
// @Summary Register a new user
// @Description Register a new user and issue a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.RegisterInput true "Registration details"
// @Success 201 {object} AuthResponse
// @Failure 422 {object} controllers.APIError "Validation error or email taken"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req services.RegisterInput
	if err := controllers.BindAndValidate(c, &req); err != nil {
		return err
	}

	user, token, err := h.auth.Register(c.Request().Context(), req, clientMeta(c))
	if err != nil {
		return controllers.ServiceError(err, "User")
	}

	return c.JSON(http.StatusCreated, newAuthResponse(user, token))
}

// Login checks credentials and issues a new token. Earlier tokens stay valid.
// @Summary Login user
// @Description Authenticate user and return a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.LoginInput true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 422 {object} controllers.APIError "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req services.LoginInput
	if err := controllers.BindAndValidate(c, &req); err != nil {
		return err
	}

	user, token, err := h.auth.Login(c.Request().Context(), req, clientMeta(c))
	if err != nil {
		return controllers.ServiceError(err, "User")
	}

	return c.JSON(http.StatusOK, newAuthResponse(user, token))
}

// Logout revokes the token used for this request.
// @Summary Logout
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 401 {object} controllers.APIError
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.auth.Logout(c.Request().Context(), middleware.GetToken(c)); err != nil {
		return controllers.ServiceError(err, "Token")
	}
	return message(c, http.StatusOK, "Successfully logged out")
}

// RevokeTokens revokes every token of the current user.
// @Summary Revoke all tokens
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /auth/tokens [delete]
func (h *AuthHandler) RevokeTokens(c echo.Context) error {
	if _, err := h.auth.LogoutAll(c.Request().Context(), middleware.GetUserID(c)); err != nil {
		return controllers.ServiceError(err, "Token")
	}
	return message(c, http.StatusOK, "Token deleted")
}

// CreateToken issues a named personal access token with limited abilities.
// The presenting token must grant every requested ability.
// @Summary Create personal access token
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body services.TokenInput true "Token name and abilities"
// @Success 201 {object} TokenResponse
// @Failure 403 {object} controllers.APIError
// @Failure 422 {object} controllers.APIError
// @Router /auth/tokens [post]
func (h *AuthHandler) CreateToken(c echo.Context) error {
	var req services.TokenInput
	if err := controllers.BindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := h.auth.IssueScopedToken(c.Request().Context(), middleware.GetUser(c), middleware.GetToken(c), req.Name, req.Abilities, clientMeta(c))
	if err != nil {
		return controllers.ServiceError(err, "Token")
	}

	return c.JSON(http.StatusCreated, newTokenResponse(token))
}

// Refresh swaps the current token for a new one.
// @Summary Refresh token
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} TokenResponse
// @Failure 401 {object} controllers.APIError
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	token, err := h.auth.Refresh(c.Request().Context(), middleware.GetUser(c), middleware.GetToken(c), clientMeta(c))
	if err != nil {
		return controllers.ServiceError(err, "Token")
	}
	return c.JSON(http.StatusOK, newTokenResponse(token))
}

// Me returns the authenticated user.
// @Summary Current user
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.User
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.GetUser(c))
}

// UpdateMe changes the name, email or password of the current user.
// @Summary Update profile
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body services.ProfileInput true "Fields to change"
// @Success 200 {object} models.User
// @Failure 422 {object} controllers.APIError
// @Router /auth/me [put]
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	var req services.ProfileInput
	if err := controllers.BindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.auth.UpdateProfile(c.Request().Context(), middleware.GetUser(c), req)
	if err != nil {
		return controllers.ServiceError(err, "User")
	}
	return c.JSON(http.StatusOK, user)
}

// DeleteMe removes the current user with all newsletters and tokens.
// @Summary Delete account
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /auth/me [delete]
func (h *AuthHandler) DeleteMe(c echo.Context) error {
	if err := h.auth.DeleteAccount(c.Request().Context(), middleware.GetUser(c)); err != nil {
		return controllers.ServiceError(err, "User")
	}
	return message(c, http.StatusOK, "User deleted successfully")
}

// ListUsers pages through every user.
// @Summary List users
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param email query string false "Exact email"
// @Success 200 {object} controllers.Page[models.User]
// @Router /users [get]
func (h *AuthHandler) ListUsers(c echo.Context) error {
	q, err := controllers.ListQuery(c, map[string]string{"email": "email"})
	if err != nil {
		return err
	}

	users, total, err := h.users.List(c.Request().Context(), q)
	if err != nil {
		return controllers.ServiceError(err, "User")
	}
	return c.JSON(http.StatusOK, controllers.NewPage(users, total, q))
}

// GetUser returns one user by id.
// @Summary Get user
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} controllers.APIError
// @Router /users/{id} [get]
func (h *AuthHandler) GetUser(c echo.Context) error {
	id, err := controllers.PathID(c, "id", "User")
	if err != nil {
		return err
	}

	user, err := h.users.Get(c.Request().Context(), id)
	if err != nil {
		return controllers.ServiceError(err, "User")
	}
	return c.JSON(http.StatusOK, user)
}

// LookupUser finds a user by email.
// @Summary Find user by email
// @Tags users
// @Security BearerAuth
// @Produce json
// @Param email query string true "Email"
// @Success 200 {object} models.User
// @Failure 404 {object} controllers.APIError
// @Failure 422 {object} controllers.APIError
// @Router /users/lookup [get]
func (h *AuthHandler) LookupUser(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return controllers.Invalid("email", "The email field is required.")
	}

	user, err := h.users.FindByEmail(c.Request().Context(), email)
	if err != nil {
		return controllers.ServiceError(err, "User")
	}
	return c.JSON(http.StatusOK, user)
}
