package repository

import (
	"context"
	"database/sql"

	"github.com/mypharma/pharma-backend/internal/model"
)

// AuditRepo appends to and reads the audit_logs table. There is no update
// or delete path; the table is insert-only by construction.
type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Record appends one audit entry.
func (r *AuditRepo) Record(ctx context.Context, e model.AuditLog) error {
	var meta interface{}
	if e.Metadata != "" {
		meta = e.Metadata
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO audit_logs (user_id, action, ip, user_agent, metadata) VALUES (?,?,?,?,?)",
		e.UserID, e.Action, e.IP, e.UserAgent, meta)
	return err
}

// ListRecent returns the newest entries, capped at limit.
func (r *AuditRepo) ListRecent(ctx context.Context, limit int) ([]model.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, action, ip, user_agent, COALESCE(metadata, ''), created_at
		 FROM audit_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AuditLog
	for rows.Next() {
		var e model.AuditLog
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.IP, &e.UserAgent, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
