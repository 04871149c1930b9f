package auth

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mypharma/pharma-backend/internal/model"
)

func TestSuperAdminBypassesTable(t *testing.T) {
	for cap := range capabilityRoles {
		assert.True(t, Allowed(model.RoleSuperAdmin, cap), "capability %s", cap)
	}
}

func TestSuperAdminOnlyCapabilities(t *testing.T) {
	others := []string{
		model.RolePharmacyAdmin, model.RoleDoctor,
		model.RoleRegisteredUser, model.RoleGuestUser,
	}
	for _, cap := range []Capability{CapUserDelete, CapSystemConfig, CapAuditView} {
		for _, role := range others {
			assert.False(t, Allowed(role, cap), "role %s capability %s", role, cap)
		}
		assert.True(t, Allowed(model.RoleSuperAdmin, cap))
	}
}

func TestGuestSeesProductsOnly(t *testing.T) {
	caps := Capabilities(model.RoleGuestUser)
	assert.Equal(t, []Capability{CapProductView}, caps)
}

func TestUnknownRoleHasNoGrants(t *testing.T) {
	assert.Empty(t, Capabilities("INTRUDER"))
	assert.False(t, Allowed("", CapProductView))
}

func TestRoleGrantTable(t *testing.T) {
	want := map[string][]Capability{
		model.RoleDoctor: {
			CapOrderView, CapPrescriptionCreate, CapPrescriptionView,
			CapProductView, CapReportView,
		},
		model.RoleRegisteredUser: {
			CapOrderManage, CapOrderView, CapPrescriptionView, CapProductView,
		},
	}
	for role, caps := range want {
		got := Capabilities(role)
		sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
		assert.Equal(t, caps, got, "role %s", role)
	}
}

func TestPharmacyAdminManagesCatalog(t *testing.T) {
	assert.True(t, Allowed(model.RolePharmacyAdmin, CapProductManage))
	assert.True(t, Allowed(model.RolePharmacyAdmin, CapPrescriptionApprove))
	assert.False(t, Allowed(model.RoleDoctor, CapProductManage))
	assert.False(t, Allowed(model.RoleRegisteredUser, CapProductManage))
}
