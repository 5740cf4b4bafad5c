package authz

import (
	"errors"
	"testing"

	"github.com/lendinghub/lending-service/internal/models"
	"github.com/lendinghub/lending-service/internal/tokens"
)

func TestCapabilityTable(t *testing.T) {
	cases := []struct {
		role models.Role
		op   Operation
		want bool
	}{
		{models.RoleUser, OpBorrow, true},
		{models.RoleUser, OpReturn, true},
		{models.RoleUser, OpListLoans, true},
		{models.RoleUser, OpBrowseInventory, true},
		{models.RoleUser, OpManageInventory, false},
		{models.RoleAdmin, OpManageInventory, true},
		{models.RoleAdmin, OpBrowseInventory, true},
		{models.RoleAdmin, OpBorrow, false},
		{models.RoleAdmin, OpReturn, false},
		{models.RoleAdmin, OpListLoans, false},
		{models.Role("GUEST"), OpBrowseInventory, false},
	}
	for _, tc := range cases {
		if got := Allowed(tc.role, tc.op); got != tc.want {
			t.Errorf("Allowed(%s, %s) = %v, want %v", tc.role, tc.op, got, tc.want)
		}
	}
}

func TestAuthorize(t *testing.T) {
	if err := Authorize(nil, OpBorrow); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	admin := &tokens.Identity{HolderID: "a1", Role: models.RoleAdmin}
	if err := Authorize(admin, OpBorrow); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := Authorize(admin, OpManageInventory); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
