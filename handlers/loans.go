package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lendinghub/lending-service/internal/authz"
	"github.com/lendinghub/lending-service/internal/lending"
	"github.com/lendinghub/lending-service/pkg/middleware"
)

// LoansHandler exposes borrow, return and the holder's loan history. The
// holder is always the authenticated identity, never a request parameter.
type LoansHandler struct {
	engine *lending.Engine
}

func NewLoansHandler(e *lending.Engine) *LoansHandler {
	return &LoansHandler{engine: e}
}

func (h *LoansHandler) Register(rg *gin.RouterGroup) {
	loans := rg.Group("/loans")
	loans.GET("/me", middleware.RequireCapability(authz.OpListLoans), h.ListMine)
	loans.POST("/:itemId", middleware.RequireCapability(authz.OpBorrow), h.Borrow)
	loans.POST("/:itemId/return", middleware.RequireCapability(authz.OpReturn), h.Return)
}

func (h *LoansHandler) Borrow(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	loan, err := h.engine.BorrowItem(c.Request.Context(), id.HolderID, c.Param("itemId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

func (h *LoansHandler) Return(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	loan, err := h.engine.ReturnItem(c.Request.Context(), id.HolderID, c.Param("itemId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func (h *LoansHandler) ListMine(c *gin.Context) {
	id := middleware.CurrentIdentity(c)
	loans, err := h.engine.ListOpenLoans(c.Request.Context(), id.HolderID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loans)
}
