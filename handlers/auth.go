package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lendinghub/lending-service/internal/authz"
	"github.com/lendinghub/lending-service/internal/config"
	"github.com/lendinghub/lending-service/internal/models"
	"github.com/lendinghub/lending-service/internal/tokens"
	"github.com/lendinghub/lending-service/internal/users"
	"github.com/lendinghub/lending-service/pkg/logger"
)

// CredentialsRequest is the body of signup and login.
type CredentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is returned by signup and login.
type TokenResponse struct {
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"`
	ExpiresIn   int64        `json:"expiresIn"`
	User        *models.User `json:"user"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	cfg      *config.Config
	usersSvc *users.Service
	tokens   *tokens.Service
}

func NewAuthHandler(cfg *config.Config, u *users.Service, t *tokens.Service) *AuthHandler {
	return &AuthHandler{cfg: cfg, usersSvc: u, tokens: t}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/signup", h.Signup)
	a.POST("/login", h.Login)
}

// Signup creates an account and returns an access token for it. The role is
// taken from ?role= and defaults to USER; ADMIN requires AUTH_ALLOW_ADMIN_SIGNUP.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	role := models.Role(strings.ToUpper(c.DefaultQuery("role", string(models.RoleUser))))
	if role == models.RoleAdmin && !h.cfg.Auth.AllowAdminSignup {
		writeError(c, authz.ErrForbidden)
		return
	}
	u, err := h.usersSvc.Signup(c.Request.Context(), req.Username, req.Password, role)
	if err != nil {
		writeError(c, err)
		return
	}
	logger.Component("http").With(logger.Fields{"user": u.ID, "role": string(u.Role)}).Infof("signup")
	h.respondWithToken(c, http.StatusCreated, u)
}

// Login verifies the password and returns a fresh access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, err := h.usersSvc.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	h.respondWithToken(c, http.StatusOK, u)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, u *models.User) {
	access, _, err := h.tokens.Issue(u.ID, u.Role)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(status, TokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.tokens.TTL().Seconds()),
		User:        u,
	})
}
