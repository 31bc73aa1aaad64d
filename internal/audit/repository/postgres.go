package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"storefront/backend/internal/audit/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit log. The audit log must have ID and CreatedAt set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	tenantID := sql.NullString{String: a.TenantID, Valid: a.TenantID != ""}
	label := sql.NullString{String: a.ActorLabel, Valid: a.ActorLabel != ""}
	meta := []byte(a.Metadata)
	if len(meta) == 0 {
		meta = []byte("{}")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tenant_audit_logs (id, action, tenant_id, actor_id, actor_label, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.Action, tenantID, a.ActorID, label, meta, a.CreatedAt,
	)
	return err
}

// ListByTenant returns audit logs for the given tenant, newest first.
// Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID string, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, action, tenant_id, actor_id, actor_label, metadata, created_at
		FROM tenant_audit_logs
		WHERE tenant_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.AuditLog, 0)
	for rows.Next() {
		var (
			a        domain.AuditLog
			tenant   sql.NullString
			label    sql.NullString
			metadata []byte
		)
		if err := rows.Scan(&a.ID, &a.Action, &tenant, &a.ActorID, &label, &metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		if tenant.Valid {
			a.TenantID = tenant.String
		}
		if label.Valid {
			a.ActorLabel = label.String
		}
		a.Metadata = json.RawMessage(metadata)
		out = append(out, &a)
	}
	return out, rows.Err()
}
