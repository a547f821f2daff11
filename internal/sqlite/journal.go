package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/mr-karan/hawkalert/pkg/models"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// InsertSyncJournal appends a journal entry and sets its ID and CreatedAt.
func (db *DB) InsertSyncJournal(ctx context.Context, entry *models.SyncJournalEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	res, err := db.writeDB.ExecContext(ctx, `
		INSERT INTO sync_journal
			(request_id, alert_id, operation, trigger_id, id_format, condition_count, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID,
		entry.AlertID,
		entry.Operation,
		entry.TriggerID,
		string(entry.IDFormat),
		entry.ConditionCount,
		string(entry.Status),
		entry.Error,
		entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync journal entry for alert %s: %w", entry.AlertID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read sync journal id: %w", err)
	}
	entry.ID = id
	return nil
}

// ListSyncJournal returns the most recent entries for an alert, newest first.
func (db *DB) ListSyncJournal(ctx context.Context, alertID string, limit int) ([]models.SyncJournalEntry, error) {
	if limit <= 0 {
		limit = models.DefaultJournalLimit
	}
	rows, err := db.readDB.QueryContext(ctx, `
		SELECT id, request_id, alert_id, operation, trigger_id, id_format, condition_count, status, error, created_at
		FROM sync_journal
		WHERE alert_id = ?
		ORDER BY id DESC
		LIMIT ?`, alertID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync journal for alert %s: %w", alertID, err)
	}
	defer rows.Close()

	entries := []models.SyncJournalEntry{}
	for rows.Next() {
		var (
			e         models.SyncJournalEntry
			idFormat  string
			status    string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &e.AlertID, &e.Operation, &e.TriggerID, &idFormat,
			&e.ConditionCount, &status, &e.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync journal row: %w", err)
		}
		e.IDFormat = models.TriggerIDFormat(idFormat)
		e.Status = models.SyncStatus(status)
		if t, err := time.Parse(timeLayout, createdAt); err == nil {
			e.CreatedAt = t
		} else {
			db.log.Warn("unparseable journal timestamp", "id", e.ID, "created_at", createdAt)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sync journal rows: %w", err)
	}
	return entries, nil
}

// PruneSyncJournal keeps the newest keep entries of an alert and deletes the rest.
func (db *DB) PruneSyncJournal(ctx context.Context, alertID string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := db.writeDB.ExecContext(ctx, `
		DELETE FROM sync_journal
		WHERE alert_id = ?
		  AND id NOT IN (
			SELECT id FROM sync_journal WHERE alert_id = ? ORDER BY id DESC LIMIT ?
		  )`, alertID, alertID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sync journal for alert %s: %w", alertID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read pruned row count: %w", err)
	}
	return n, nil
}
