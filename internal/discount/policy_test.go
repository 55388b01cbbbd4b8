package discount

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type stubRoles struct {
	role string
	err  error
}

func (s stubRoles) Role(context.Context, string) (string, error) {
	return s.role, s.err
}

func TestResolveDefaultTable(t *testing.T) {
	r := NewResolver(nil)

	admin := r.Resolve(RoleAdmin)
	require.True(t, admin.CanEdit)
	require.Nil(t, admin.MaxGeneral)
	require.Nil(t, admin.MaxIndividual)

	seller := r.Resolve("Seller")
	require.True(t, seller.CanEdit)
	require.True(t, seller.MaxGeneral.Equal(decimal.NewFromInt(10)))
	require.True(t, seller.MaxIndividual.Equal(decimal.NewFromInt(5)))

	viewer := r.Resolve(RoleViewer)
	require.False(t, viewer.CanEdit)

	unknown := r.Resolve("intern")
	require.False(t, unknown.CanEdit)
}

func TestPolicyBounds(t *testing.T) {
	seller := NewResolver(nil).Resolve(RoleSeller)

	ok, msg := seller.IsValidIndividualDiscount(decimal.NewFromInt(5))
	require.True(t, ok)
	require.Empty(t, msg)

	ok, msg = seller.IsValidIndividualDiscount(decimal.RequireFromString("5.01"))
	require.False(t, ok)
	require.Contains(t, msg, "exceeds the maximum of 5%")

	ok, msg = seller.IsValidGeneralDiscount(decimal.NewFromInt(-1))
	require.False(t, ok)
	require.Contains(t, msg, "cannot be negative")

	ok, _ = seller.IsValidGeneralDiscount(decimal.NewFromInt(10))
	require.True(t, ok)
}

func TestUnrestrictedStillCappedAtHundred(t *testing.T) {
	admin := NewResolver(nil).Resolve(RoleAdmin)
	require.NoError(t, admin.CheckIndividual(decimal.NewFromInt(100)))

	err := admin.CheckIndividual(decimal.NewFromInt(101))
	var rejection *Rejection
	require.True(t, errors.As(err, &rejection))
	require.Equal(t, "individual", rejection.Scope)
}

func TestReadOnlyRejectsEverything(t *testing.T) {
	viewer := NewResolver(nil).Resolve(RoleViewer)
	ok, msg := viewer.IsValidIndividualDiscount(decimal.Zero)
	require.False(t, ok)
	require.Contains(t, msg, "not allowed to edit discounts")
}

func TestForUserFailsClosed(t *testing.T) {
	r := NewResolver(nil)

	policy, err := r.ForUser(context.Background(), stubRoles{err: errors.New("profile store down")}, "u-1")
	require.Error(t, err)
	require.False(t, policy.CanEdit)

	policy, err = r.ForUser(context.Background(), nil, "u-1")
	require.NoError(t, err)
	require.False(t, policy.CanEdit)

	policy, err = r.ForUser(context.Background(), stubRoles{role: "manager"}, "u-1")
	require.NoError(t, err)
	require.True(t, policy.CanEdit)
}

func TestParseTable(t *testing.T) {
	table, err := ParseTable(DefaultTable(), "seller=15/7.5, manager=*/20, admin=-, trainee=2/1")
	require.NoError(t, err)

	r := NewResolver(table)
	seller := r.Resolve(RoleSeller)
	require.True(t, seller.MaxGeneral.Equal(decimal.NewFromInt(15)))
	require.True(t, seller.MaxIndividual.Equal(decimal.RequireFromString("7.5")))

	manager := r.Resolve(RoleManager)
	require.Nil(t, manager.MaxGeneral)
	require.True(t, manager.MaxIndividual.Equal(decimal.NewFromInt(20)))

	require.False(t, r.Resolve(RoleAdmin).CanEdit)
	require.True(t, r.Resolve("trainee").CanEdit)

	_, err = ParseTable(DefaultTable(), "seller=15")
	require.Error(t, err)
	_, err = ParseTable(DefaultTable(), "seller=150/1")
	require.Error(t, err)
}
