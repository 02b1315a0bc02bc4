package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dotcommander/supervisa/internal/record"
)

var (
	// ErrNotFound is returned when no draft has the requested id.
	ErrNotFound = errors.New("draft not found")
	// ErrFinalized is returned when a finalized draft would be changed.
	ErrFinalized = errors.New("draft is already finalized")
)

// Draft is one locally stored form and its sync state.
type Draft struct {
	ID          string
	Record      record.FormRecord
	UpdatedAt   time.Time
	FinalizedAt *time.Time
	SyncedAt    *time.Time
}

// Store keeps drafts in a SQLite database. Records are stored as JSON blobs
// so fields the model does not know about survive a round trip.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS drafts (
	id           TEXT PRIMARY KEY,
	site         TEXT NOT NULL DEFAULT '',
	visit_date   TEXT NOT NULL DEFAULT '',
	body         TEXT NOT NULL,
	updated_at   DATETIME NOT NULL,
	finalized_at DATETIME,
	synced_at    DATETIME
);
CREATE INDEX IF NOT EXISTS idx_drafts_updated_at ON drafts(updated_at);
CREATE INDEX IF NOT EXISTS idx_drafts_finalized_at ON drafts(finalized_at);
`

// Open opens (or creates) the draft database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open draft store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize draft store: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveDraft inserts or replaces a draft and returns its id. A record without
// id is assigned a fresh UUID. The stored copy is always marked as autosave.
// Finalized drafts are never overwritten.
func (s *Store) SaveDraft(ctx context.Context, r record.FormRecord) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.IsAutoSave = true

	body, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode draft %s: %w", r.ID, err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO drafts (id, site, visit_date, body, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			site = excluded.site,
			visit_date = excluded.visit_date,
			body = excluded.body,
			updated_at = excluded.updated_at
		 WHERE drafts.finalized_at IS NULL`,
		r.ID, r.SiteName, r.VisitDate, string(body), s.now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to save draft %s: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", fmt.Errorf("%w: %s", ErrFinalized, r.ID)
	}
	return r.ID, nil
}

// LoadDraft returns the draft with the given id.
func (s *Store) LoadDraft(ctx context.Context, id string) (*Draft, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, body, updated_at, finalized_at, synced_at FROM drafts WHERE id = ?`, id)
	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDrafts returns every stored draft, most recently updated first.
// With pendingOnly set, drafts that were already finalized are left out.
func (s *Store) ListDrafts(ctx context.Context, pendingOnly bool) ([]Draft, error) {
	query := `SELECT id, body, updated_at, finalized_at, synced_at FROM drafts`
	if pendingOnly {
		query += ` WHERE finalized_at IS NULL`
	}
	query += ` ORDER BY updated_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}
	defer rows.Close()

	var out []Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Unsynced returns finalized drafts that have not been pushed yet.
func (s *Store) Unsynced(ctx context.Context) ([]Draft, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, body, updated_at, finalized_at, synced_at FROM drafts
		 WHERE finalized_at IS NOT NULL AND synced_at IS NULL
		 ORDER BY finalized_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsynced drafts: %w", err)
	}
	defer rows.Close()

	var out []Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// MarkFinalized stores the finalized snapshot of a draft. The local draft is
// kept for reference; only its body and finalized timestamp change. A draft
// is finalized once.
func (s *Store) MarkFinalized(ctx context.Context, final record.FormRecord) error {
	if final.ID == "" {
		return fmt.Errorf("finalized record has no id")
	}
	final.IsAutoSave = false

	body, err := json.Marshal(final)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", final.ID, err)
	}

	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE drafts SET body = ?, updated_at = ?, finalized_at = ?
		 WHERE id = ? AND finalized_at IS NULL`,
		string(body), now, now, final.ID)
	if err != nil {
		return fmt.Errorf("failed to finalize draft %s: %w", final.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.LoadDraft(ctx, final.ID); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrFinalized, final.ID)
	}
	return nil
}

// MarkSynced records that a finalized draft reached the remote store.
func (s *Store) MarkSynced(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE drafts SET synced_at = ? WHERE id = ?`, s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark draft %s as synced: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(row scanner) (*Draft, error) {
	var (
		d         Draft
		body      string
		finalized sql.NullTime
		synced    sql.NullTime
	)
	if err := row.Scan(&d.ID, &body, &d.UpdatedAt, &finalized, &synced); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(body), &d.Record); err != nil {
		return nil, fmt.Errorf("failed to decode draft %s: %w", d.ID, err)
	}
	if finalized.Valid {
		t := finalized.Time
		d.FinalizedAt = &t
	}
	if synced.Valid {
		t := synced.Time
		d.SyncedAt = &t
	}
	return &d, nil
}
