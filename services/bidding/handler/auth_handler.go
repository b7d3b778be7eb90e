package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	auth "auction-backend/internal/authService"
	"auction-backend/internal/biddingerrors"
	model "auction-backend/internal/models"
	"auction-backend/services/bidding/helpers"
	"auction-backend/utils"

	"github.com/gin-gonic/gin"
)

//go:generate mockgen -destination=mock_auth_service.go -package=handler auction-backend/services/bidding/handler AuthServiceInterface

type AuthServiceInterface interface {
	Signup(ctx context.Context, in auth.SignupInput) (model.User, error)
	Login(ctx context.Context, username, password string) (auth.Session, error)
	Logout(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, token string) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

// CookieConfig controls the session cookie
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

type AuthHandler struct {
	service AuthServiceInterface
	cookie  CookieConfig
}

func NewAuthHandler(service AuthServiceInterface, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{service: service, cookie: cookie}
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(helpers.SessionCookie, value, maxAge, "/", "", h.cookie.Secure, true)
}

// SignupHandler handles POST /api/auth/signup
func (h *AuthHandler) SignupHandler(c *gin.Context) {
	var req helpers.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SignupHandler", err)
		return
	}

	user, err := h.service.Signup(c.Request.Context(), auth.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		helpers.RespondError(c, "SignupHandler", err, map[string]any{"username": req.Username})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, user, "user created successfully")
	helpers.LogSuccess("SignupHandler", "user created", map[string]any{"user_id": user.ID, "username": user.Username})
}

// LoginHandler handles POST /api/auth/login
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req helpers.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "LoginHandler", err)
		return
	}

	sess, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		helpers.RespondError(c, "LoginHandler", err, map[string]any{"username": req.Username})
		return
	}

	h.setSessionCookie(c, sess.Token, int(h.cookie.MaxAge.Seconds()))
	utils.JSONResponse(c, http.StatusOK, helpers.LoginResponse{
		User:      sess.User,
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
	}, "login successful")
	helpers.LogSuccess("LoginHandler", "user logged in", map[string]any{"user_id": sess.User.ID})
}

// LogoutHandler handles POST /api/auth/logout
func (h *AuthHandler) LogoutHandler(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), helpers.Credential(c)); err != nil {
		helpers.RespondError(c, "LogoutHandler", err, nil)
		return
	}

	h.setSessionCookie(c, "", -1)
	utils.JSONResponse(c, http.StatusOK, nil, "logged out")
}

// CheckHandler handles GET /api/auth/check. An anonymous caller is not an error here.
func (h *AuthHandler) CheckHandler(c *gin.Context) {
	token := helpers.Credential(c)
	if token == "" {
		utils.JSONResponse(c, http.StatusOK, helpers.AuthCheckResponse{}, "not authenticated")
		return
	}

	user, err := h.service.CurrentUser(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, biddingerrors.ErrUnauthenticated) {
			utils.JSONResponse(c, http.StatusOK, helpers.AuthCheckResponse{}, "not authenticated")
			return
		}
		helpers.RespondError(c, "CheckHandler", err, nil)
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.AuthCheckResponse{Authenticated: true, User: &user}, "authenticated")
}

// ListUsersHandler handles GET /api/users
func (h *AuthHandler) ListUsersHandler(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		helpers.RespondError(c, "ListUsersHandler", err, nil)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	utils.JSONResponse(c, http.StatusOK, users, "users retrieved successfully")
}
