package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lendinghub/lending-service/internal/authz"
	invservice "github.com/lendinghub/lending-service/internal/inventory/service"
	"github.com/lendinghub/lending-service/pkg/middleware"
)

// ItemsHandler exposes the catalog: browsing for every role, edits for admins.
type ItemsHandler struct {
	svc *invservice.Service
}

func NewItemsHandler(svc *invservice.Service) *ItemsHandler {
	return &ItemsHandler{svc: svc}
}

func (h *ItemsHandler) Register(rg *gin.RouterGroup) {
	browse := middleware.RequireCapability(authz.OpBrowseInventory)
	manage := middleware.RequireCapability(authz.OpManageInventory)

	items := rg.Group("/items")
	items.GET("", browse, h.List)
	items.GET("/:id", browse, h.Get)
	items.POST("", manage, h.Create)
	items.PUT("/:id", manage, h.Update)
	items.DELETE("/:id", manage, h.Delete)
}

func (h *ItemsHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *ItemsHandler) Get(c *gin.Context) {
	it, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

func (h *ItemsHandler) Create(c *gin.Context) {
	var in invservice.ItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	it, err := h.svc.Add(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, it)
}

func (h *ItemsHandler) Update(c *gin.Context) {
	var in invservice.ItemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	it, err := h.svc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

func (h *ItemsHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
