package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lendinghub/lending-service/internal/authz"
	invservice "github.com/lendinghub/lending-service/internal/inventory/service"
	"github.com/lendinghub/lending-service/internal/lending"
	"github.com/lendinghub/lending-service/internal/tokens"
	"github.com/lendinghub/lending-service/internal/users"
	"github.com/lendinghub/lending-service/pkg/logger"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorTable = []errorMapping{
	{lending.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{invservice.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{lending.ErrUnavailable, http.StatusConflict, "UNAVAILABLE"},
	{lending.ErrAlreadyHeld, http.StatusConflict, "ALREADY_HELD"},
	{lending.ErrNotHeld, http.StatusConflict, "NOT_HELD"},
	{tokens.ErrInvalidToken, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{authz.ErrUnauthenticated, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{users.ErrInvalidCredentials, http.StatusUnauthorized, "UNAUTHENTICATED"},
	{authz.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{users.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{invservice.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{users.ErrUserExists, http.StatusConflict, "USER_EXISTS"},
	{invservice.ErrItemOnLoan, http.StatusConflict, "ITEM_ON_LOAN"},
	{invservice.ErrStockConflict, http.StatusConflict, "STOCK_CONFLICT"},
}

// writeError maps a domain error to its status and stable code. Unknown
// errors are logged and reported as 500 without details.
func writeError(c *gin.Context, err error) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			c.AbortWithStatusJSON(m.status, gin.H{"error": err.Error(), "code": m.code})
			return
		}
	}
	logger.Component("http").Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "INTERNAL"})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "INVALID_INPUT"})
}
