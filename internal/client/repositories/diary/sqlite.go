package diary

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"timecapsule/internal/client/models"
	"timecapsule/internal/common"
	"timecapsule/internal/dbx"
)

// SQLiteRepository implements Repository on the local client database.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, e *models.DiaryEntry) error {
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}
	query := `INSERT INTO diary_entries (id, title, date, content, mood, pinned, sync_state, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET title = excluded.title,
				date = excluded.date,
				content = excluded.content,
				mood = excluded.mood,
				pinned = excluded.pinned,
				sync_state = excluded.sync_state,
				updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		e.Id, e.Title, e.Date, e.Content, e.Mood, e.Pinned, string(e.SyncState), e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert diary entry: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.DiaryEntry, error) {
	query := `SELECT id, title, date, content, mood, pinned, sync_state, updated_at
		FROM diary_entries ORDER BY pinned DESC, date DESC, updated_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select diary entries: %w", err)
	}
	defer rows.Close()

	var result []models.DiaryEntry
	for rows.Next() {
		item, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.DiaryEntry, error) {
	query := `SELECT id, title, date, content, mood, pinned, sync_state, updated_at
		FROM diary_entries WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id)

	e := &models.DiaryEntry{}
	var state string
	err := row.Scan(&e.Id, &e.Title, &e.Date, &e.Content, &e.Mood, &e.Pinned, &state, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	e.SyncState = models.SyncState(state)
	return e, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM diary_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete diary entry: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}

func (r *SQLiteRepository) GetAllLocalOnly(ctx context.Context) ([]*models.DiaryEntry, error) {
	query := `SELECT id, title, date, content, mood, pinned, sync_state, updated_at
		FROM diary_entries WHERE sync_state = ? ORDER BY updated_at`
	rows, err := r.db.QueryContext(ctx, query, string(models.SyncStateLocalOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to select local-only entries: %w", err)
	}
	defer rows.Close()

	var pending []*models.DiaryEntry
	for rows.Next() {
		item, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		pending = append(pending, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pending, nil
}

// Promote removes the old row and writes the server-accepted entry in one
// transaction, so a crash cannot leave both the temporary and the real id
// behind.
func (r *SQLiteRepository) Promote(ctx context.Context, oldId string, e *models.DiaryEntry) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM diary_entries WHERE id = ?`, oldId); err != nil {
			return fmt.Errorf("failed to drop promoted entry: %w", err)
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = time.Now().UTC()
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO diary_entries
			(id, title, date, content, mood, pinned, sync_state, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.Id, e.Title, e.Date, e.Content, e.Mood, e.Pinned, string(e.SyncState), e.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert promoted entry: %w", err)
		}
		return nil
	})
}

func scanEntry(rows *sql.Rows) (*models.DiaryEntry, error) {
	e := &models.DiaryEntry{}
	var state string
	if err := rows.Scan(&e.Id, &e.Title, &e.Date, &e.Content, &e.Mood, &e.Pinned, &state, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.SyncState = models.SyncState(state)
	return e, nil
}
