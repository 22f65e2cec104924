package rbac_test

import (
	"testing"

	"go-conge/internal/domain"
	"go-conge/internal/rbac"

	"github.com/stretchr/testify/assert"
)

func TestRBACService_Enforce(t *testing.T) {
	svc, err := rbac.NewDefaultService()
	assert.NoError(t, err)

	tests := []struct {
		name     string
		role     string
		resource string
		action   string
		want     bool
	}{
		{"user creates leave", rbac.RoleUser, rbac.ResourceLeave, rbac.ActionCreate, true},
		{"user cannot validate", rbac.RoleUser, rbac.ResourceLeave, rbac.ActionValidate, false},
		{"user cannot export", rbac.RoleUser, rbac.ResourceLeave, rbac.ActionExport, false},
		{"user cannot manage users", rbac.RoleUser, rbac.ResourceUser, rbac.ActionManage, false},
		{"admin validates", rbac.RoleAdmin, rbac.ResourceLeave, rbac.ActionValidate, true},
		{"user cannot read all leaves", rbac.RoleUser, rbac.ResourceLeave, rbac.ActionReadAll, false},
		{"user cannot read all balances", rbac.RoleUser, rbac.ResourceBalance, rbac.ActionReadAll, false},
		{"user cannot manage others' leaves", rbac.RoleUser, rbac.ResourceLeave, rbac.ActionManage, false},
		{"admin reads all leaves", rbac.RoleAdmin, rbac.ResourceLeave, rbac.ActionReadAll, true},
		{"admin reads all balances", rbac.RoleAdmin, rbac.ResourceBalance, rbac.ActionReadAll, true},
		{"admin manages others' leaves", rbac.RoleAdmin, rbac.ResourceLeave, rbac.ActionManage, true},
		{"admin inherits user permission", rbac.RoleAdmin, rbac.ResourceLeave, rbac.ActionCreate, true},
		{"unknown role", "guest", rbac.ResourceLeave, rbac.ActionRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, err := svc.Enforce(domain.EnforceRequest{
				Subject:  "u-1",
				Role:     tt.role,
				Resource: tt.resource,
				Action:   tt.action,
			})
			assert.NoError(t, err)
			assert.Equal(t, tt.want, allowed)
		})
	}
}

func TestRBACService_PermissionsFor(t *testing.T) {
	svc, err := rbac.NewDefaultService()
	assert.NoError(t, err)

	userPerms, err := svc.PermissionsFor(rbac.RoleUser)
	assert.NoError(t, err)
	adminPerms, err := svc.PermissionsFor(rbac.RoleAdmin)
	assert.NoError(t, err)

	assert.Contains(t, userPerms, domain.PermissionResponse{Resource: rbac.ResourceLeave, Action: rbac.ActionCreate})
	assert.NotContains(t, userPerms, domain.PermissionResponse{Resource: rbac.ResourceLeave, Action: rbac.ActionValidate})
	assert.Contains(t, adminPerms, domain.PermissionResponse{Resource: rbac.ResourceLeave, Action: rbac.ActionCreate})
	assert.Greater(t, len(adminPerms), len(userPerms))
}
