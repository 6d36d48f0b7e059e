package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strp(s string) *string { return &s }

func TestPrincipalUser(t *testing.T) {
	p := UserPrincipal(User{ID: 7, Name: "Sara", Email: strp("s@x.com"), PasswordHash: "h", Role: RoleAdmin})

	assert.Equal(t, KindUser, p.Kind)
	assert.Equal(t, uint64(7), p.ID())
	assert.Equal(t, RoleAdmin, p.Role())
	assert.Equal(t, "Sara", p.Name())
	assert.Equal(t, "s@x.com", p.Email())
	assert.Equal(t, "h", p.PasswordHash())
	assert.Equal(t, "user", p.Kind.String())

	assert.Empty(t, UserPrincipal(User{ID: 8, Name: "No Mail"}).Email())
}

func TestPrincipalStudentCarriesImplicitRole(t *testing.T) {
	p := StudentPrincipal(Student{ID: 3, Name: "Ali"})

	assert.Equal(t, KindStudent, p.Kind)
	assert.Equal(t, uint64(3), p.ID())
	assert.Equal(t, RoleStudent, p.Role())
	assert.Empty(t, p.Email())
	assert.Empty(t, p.PasswordHash())
	assert.Equal(t, "student", p.Kind.String())
}

func TestValidRole(t *testing.T) {
	for _, r := range []string{RoleAdmin, RoleAmbassador, RoleDonor, RoleStudent} {
		assert.True(t, ValidRole(r), r)
	}
	assert.False(t, ValidRole("OWNER"))
	assert.False(t, ValidRole("admin"))
}
