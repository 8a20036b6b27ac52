package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/tenant-notes/models"
	"github.com/upb/tenant-notes/repositories"
	"go.uber.org/zap"
)

const auditColumns = `id, tenant_id, user_id, action, resource_type, resource_id, details, request_id, timestamp`

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new audit log entry
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, tenant_id, user_id, action, resource_type, resource_id, details, request_id, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	// JSONB rejects an empty byte slice
	var details interface{}
	if len(log.Details) > 0 {
		details = []byte(log.Details)
	}

	q := conn(ctx, r.db)
	_, err := q.ExecContext(ctx, query,
		log.ID,
		log.TenantID,
		log.UserID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		details,
		log.RequestID,
		log.Timestamp,
	)
	if err != nil {
		return mapError("insert audit log", err)
	}

	r.logger.Debug("audit log inserted", zap.String("id", log.ID.String()), zap.String("action", string(log.Action)))
	return nil
}

// GetByTenantID retrieves audit logs for a tenant with pagination
func (r *AuditRepository) GetByTenantID(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_logs
		WHERE tenant_id = $1
		ORDER BY timestamp DESC
		LIMIT $2 OFFSET $3
	`
	return r.queryLogs(ctx, query, tenantID, limit, offset)
}

// GetByRequestID retrieves the audit logs a request wrote for a tenant
func (r *AuditRepository) GetByRequestID(ctx context.Context, tenantID uuid.UUID, requestID string) ([]*models.AuditLog, error) {
	query := `
		SELECT ` + auditColumns + `
		FROM audit_logs
		WHERE tenant_id = $1 AND request_id = $2
		ORDER BY timestamp ASC
	`
	return r.queryLogs(ctx, query, tenantID, requestID)
}

func (r *AuditRepository) queryLogs(ctx context.Context, query string, args ...interface{}) ([]*models.AuditLog, error) {
	q := conn(ctx, r.db)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("query audit logs", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		log := &models.AuditLog{}
		var (
			userID, resourceID uuid.NullUUID
			details            []byte
			requestID          *string
		)
		if err := rows.Scan(
			&log.ID,
			&log.TenantID,
			&userID,
			&log.Action,
			&log.ResourceType,
			&resourceID,
			&details,
			&requestID,
			&log.Timestamp,
		); err != nil {
			return nil, mapError("scan audit log", err)
		}
		if userID.Valid {
			log.UserID = &userID.UUID
		}
		if resourceID.Valid {
			log.ResourceID = &resourceID.UUID
		}
		if requestID != nil {
			log.RequestID = *requestID
		}
		log.Details = details
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, mapError("iterate audit log rows", err)
	}

	return logs, nil
}
