package auth

import "github.com/mypharma/pharma-backend/internal/model"

// Capability names a guarded operation. Grants are a static table keyed by
// capability, evaluated by one lookup; there is no inheritance between
// roles. Object-level ownership checks belong to the domain layer, not
// here.
type Capability string

const (
	CapUserView            Capability = "user.view"
	CapUserCreate          Capability = "user.create"
	CapUserEdit            Capability = "user.edit"
	CapUserDelete          Capability = "user.delete"
	CapPharmacyView        Capability = "pharmacy.view"
	CapPharmacyManage      Capability = "pharmacy.manage"
	CapProductView         Capability = "product.view"
	CapProductManage       Capability = "product.manage"
	CapPrescriptionView    Capability = "prescription.view"
	CapPrescriptionCreate  Capability = "prescription.create"
	CapPrescriptionApprove Capability = "prescription.approve"
	CapOrderView           Capability = "order.view"
	CapOrderManage         Capability = "order.manage"
	CapPaymentView         Capability = "payment.view"
	CapPaymentProcess      Capability = "payment.process"
	CapReportView          Capability = "report.view"
	CapReportGenerate      Capability = "report.generate"
	CapSystemConfig        Capability = "system.config"
	CapAuditView           Capability = "audit.view"
)

// capabilityRoles declares, per capability, the exact set of roles allowed.
// SUPER_ADMIN is deliberately absent: it bypasses the table entirely.
var capabilityRoles = map[Capability][]string{
	CapUserView:            {model.RolePharmacyAdmin},
	CapUserCreate:          {model.RolePharmacyAdmin},
	CapUserEdit:            {model.RolePharmacyAdmin},
	CapUserDelete:          {},
	CapPharmacyView:        {model.RolePharmacyAdmin},
	CapPharmacyManage:      {model.RolePharmacyAdmin},
	CapProductView:         {model.RolePharmacyAdmin, model.RoleDoctor, model.RoleRegisteredUser, model.RoleGuestUser},
	CapProductManage:       {model.RolePharmacyAdmin},
	CapPrescriptionView:    {model.RolePharmacyAdmin, model.RoleDoctor, model.RoleRegisteredUser},
	CapPrescriptionCreate:  {model.RoleDoctor},
	CapPrescriptionApprove: {model.RolePharmacyAdmin},
	CapOrderView:           {model.RolePharmacyAdmin, model.RoleDoctor, model.RoleRegisteredUser},
	CapOrderManage:         {model.RolePharmacyAdmin, model.RoleRegisteredUser},
	CapPaymentView:         {model.RolePharmacyAdmin},
	CapPaymentProcess:      {model.RolePharmacyAdmin},
	CapReportView:          {model.RolePharmacyAdmin, model.RoleDoctor},
	CapReportGenerate:      {model.RolePharmacyAdmin},
	CapSystemConfig:        {},
	CapAuditView:           {},
}

// Allowed reports whether role may exercise cap. SUPER_ADMIN is always
// allowed, including for capabilities granted to no other role.
func Allowed(role string, cap Capability) bool {
	if role == model.RoleSuperAdmin {
		return true
	}
	for _, r := range capabilityRoles[cap] {
		if r == role {
			return true
		}
	}
	return false
}

// Capabilities returns the grant list for a role, primarily for the /me
// payload and admin tooling.
func Capabilities(role string) []Capability {
	var out []Capability
	for cap := range capabilityRoles {
		if Allowed(role, cap) {
			out = append(out, cap)
		}
	}
	return out
}
