package audit

import (
	"github.com/google/uuid"
	"github.com/upb/tenant-notes/models"
)

// Builders for the events the notes API records.

// NoteCreated builds the audit log of a created note
func NoteCreated(note *models.Note) *models.AuditLog {
	return models.NewAuditLog(note.TenantID, models.AuditActionNoteCreated, "note").
		WithUser(note.CreatedBy).
		WithResource(note.ID).
		WithDetails(map[string]interface{}{"title": note.Title})
}

// NoteUpdated builds the audit log of an updated note
func NoteUpdated(note *models.Note, userID uuid.UUID, fields []string) *models.AuditLog {
	return models.NewAuditLog(note.TenantID, models.AuditActionNoteUpdated, "note").
		WithUser(userID).
		WithResource(note.ID).
		WithDetails(map[string]interface{}{"fields": fields})
}

// NoteDeleted builds the audit log of a deleted note
func NoteDeleted(tenantID, noteID, userID uuid.UUID) *models.AuditLog {
	return models.NewAuditLog(tenantID, models.AuditActionNoteDeleted, "note").
		WithUser(userID).
		WithResource(noteID)
}

// QuotaRejected builds the audit log of a create refused by the plan limit
func QuotaRejected(tenant *models.Tenant, userID uuid.UUID, limit int) *models.AuditLog {
	return models.NewAuditLog(tenant.ID, models.AuditActionQuotaRejected, "tenant").
		WithUser(userID).
		WithResource(tenant.ID).
		WithDetails(map[string]interface{}{"plan": tenant.Plan, "limit": limit})
}

// UserInvited builds the audit log of an invited user
func UserInvited(user *models.User, inviterID uuid.UUID) *models.AuditLog {
	return models.NewAuditLog(user.TenantID, models.AuditActionUserInvited, "user").
		WithUser(inviterID).
		WithResource(user.ID).
		WithDetails(map[string]interface{}{"email": user.Email, "role": user.Role})
}

// TenantUpgraded builds the audit log of a plan upgrade
func TenantUpgraded(tenant *models.Tenant, userID uuid.UUID) *models.AuditLog {
	return models.NewAuditLog(tenant.ID, models.AuditActionTenantUpgraded, "tenant").
		WithUser(userID).
		WithResource(tenant.ID).
		WithDetails(map[string]interface{}{"plan": tenant.Plan})
}
