package authz

import (
	"errors"
	"fmt"

	"github.com/lendinghub/lending-service/internal/models"
	"github.com/lendinghub/lending-service/internal/tokens"
)

var (
	ErrUnauthenticated = errors.New("authz: unauthenticated")
	ErrForbidden       = errors.New("authz: forbidden")
)

// Operation names a guarded action.
type Operation string

const (
	OpBorrow          Operation = "borrow"
	OpReturn          Operation = "return"
	OpListLoans       Operation = "list_loans"
	OpBrowseInventory Operation = "browse_inventory"
	OpManageInventory Operation = "manage_inventory"
)

// capabilities is the static (role, operation) allow table. Anything absent is denied.
var capabilities = map[models.Role]map[Operation]bool{
	models.RoleUser: {
		OpBorrow:          true,
		OpReturn:          true,
		OpListLoans:       true,
		OpBrowseInventory: true,
	},
	models.RoleAdmin: {
		OpManageInventory: true,
		OpBrowseInventory: true,
	},
}

// Allowed reports whether role may perform op.
func Allowed(role models.Role, op Operation) bool {
	return capabilities[role][op]
}

// Authorize checks a verified identity against the table. A nil identity is
// unauthenticated.
func Authorize(id *tokens.Identity, op Operation) error {
	if id == nil {
		return ErrUnauthenticated
	}
	if !Allowed(id.Role, op) {
		return fmt.Errorf("%w: role %s may not %s", ErrForbidden, id.Role, op)
	}
	return nil
}
