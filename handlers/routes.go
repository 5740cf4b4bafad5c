package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/lendinghub/lending-service/internal/config"
	invservice "github.com/lendinghub/lending-service/internal/inventory/service"
	"github.com/lendinghub/lending-service/internal/lending"
	"github.com/lendinghub/lending-service/internal/tokens"
	"github.com/lendinghub/lending-service/internal/users"
)

// Services bundles what the HTTP surface needs.
type Services struct {
	Config  *config.Config
	Users   *users.Service
	Tokens  *tokens.Service
	Catalog *invservice.Service
	Engine  *lending.Engine
}

// RegisterRoutes mounts /auth, /api/items, /api/loans and the swagger pages.
// The engine must already run middleware.IdentityMiddleware.
func RegisterRoutes(r *gin.Engine, s Services) {
	root := r.Group("/")
	NewAuthHandler(s.Config, s.Users, s.Tokens).Register(root)

	api := r.Group("/api")
	NewItemsHandler(s.Catalog).Register(api)
	NewLoansHandler(s.Engine).Register(api)

	RegisterSwagger(r)
}
