package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Role
		ok   bool
	}{
		{name: "user", in: "ROLE_USER", want: RoleUser, ok: true},
		{name: "admin", in: "ROLE_ADMIN", want: RoleAdmin, ok: true},
		{name: "lower case", in: "role_admin", want: RoleAdmin, ok: true},
		{name: "unknown", in: "ROLE_ROOT", ok: false},
		{name: "empty", in: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRole(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoleRoundTrip(t *testing.T) {
	for _, r := range []Role{RoleUser, RoleAdmin} {
		got, ok := ParseRole(r.String())
		assert.True(t, ok)
		assert.Equal(t, r, got)
	}
	assert.Equal(t, "ROLE_UNKNOWN", Role(0).String())
}

func TestPrincipalHasRole(t *testing.T) {
	u := User{ID: 7, Username: "alice", Roles: []Role{RoleUser}}
	p := u.Principal()

	assert.True(t, p.HasRole(RoleUser))
	assert.False(t, p.HasRole(RoleAdmin))

	u.Roles[0] = RoleAdmin
	assert.False(t, p.HasRole(RoleAdmin), "principal must not share role storage with user")
}

func TestOrderItemSubtotal(t *testing.T) {
	item := OrderItem{Quantity: 3, UnitPrice: decimal.RequireFromString("0.10")}
	assert.True(t, item.Subtotal().Equal(decimal.RequireFromString("0.30")))
}
