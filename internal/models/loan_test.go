package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoanNextDeadline(t *testing.T) {
	hard := time.Date(2026, 10, 24, 9, 0, 0, 0, time.UTC)
	policy := time.Date(2026, 10, 17, 22, 0, 0, 0, time.UTC)

	require.Nil(t, (&Loan{}).NextDeadline())
	require.Equal(t, &hard, (&Loan{HardExpiresAt: &hard}).NextDeadline())
	require.Equal(t, &policy, (&Loan{PolicyReturnAt: &policy}).NextDeadline())
	require.Equal(t, &policy, (&Loan{HardExpiresAt: &hard, PolicyReturnAt: &policy}).NextDeadline())
}

func TestRoleValid(t *testing.T) {
	require.True(t, RoleUser.Valid())
	require.True(t, RoleAdmin.Valid())
	require.False(t, Role("ROLE_ADMIN").Valid())
	require.False(t, Role("").Valid())
}
