package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/AnshRaj112/diary-backend/internal/models"
	"github.com/AnshRaj112/diary-backend/pkg/utils"
	"github.com/google/uuid"
)

// AuditRecorder appends entry mutations to an audit trail.
type AuditRecorder interface {
	Record(ctx context.Context, action models.EntryEventType, owner, entryID string) error
}

// NopAudit discards audit records. Used when no audit database is configured.
type NopAudit struct{}

func (NopAudit) Record(context.Context, models.EntryEventType, string, string) error { return nil }

// PostgresAudit writes to the entry_audit table. The owner is stored as utils.OwnerKey.
type PostgresAudit struct {
	db *sql.DB
}

func NewPostgresAudit(db *sql.DB) *PostgresAudit {
	return &PostgresAudit{db: db}
}

func (a *PostgresAudit) Record(ctx context.Context, action models.EntryEventType, owner, entryID string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO entry_audit (id, entry_id, owner_key, action, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), entryID, utils.OwnerKey(owner), string(action), time.Now().UTC())
	return err
}
