package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Joseda-hg/lazytrip/internal/model"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store keeps named snapshots of an itinerary in sqlite.
type Store struct {
	DB  *sql.DB
	Now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db, Now: time.Now}
}

func (s *Store) SaveSnapshot(ctx context.Context, name string, records []model.Record) (model.Snapshot, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Snapshot{}, fmt.Errorf("%w: snapshot name is required", model.ErrInvalidArgument)
	}

	snapshot := model.Snapshot{
		ID:        uuid.New(),
		Name:      name,
		Count:     len(records),
		CreatedAt: s.Now().UTC(),
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.Snapshot{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO snapshots (id, name, created_at) VALUES (?, ?, ?)",
		snapshot.ID.String(), snapshot.Name, snapshot.CreatedAt.Format(timeLayout),
	); err != nil {
		return model.Snapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO snapshot_records (snapshot_id, position, date, time, city, activity, duration, notes) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return model.Snapshot{}, err
	}
	defer stmt.Close()

	for position, r := range records {
		if _, err := stmt.ExecContext(ctx, snapshot.ID.String(), position, r.Date, r.Time, r.City, r.Activity, r.Duration, r.Notes); err != nil {
			return model.Snapshot{}, fmt.Errorf("insert snapshot record %d: %w", position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Snapshot{}, err
	}
	return snapshot, nil
}

func (s *Store) ListSnapshots(ctx context.Context) ([]model.Snapshot, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT s.id, s.name, s.created_at, COUNT(r.position)
		FROM snapshots s
		LEFT JOIN snapshot_records r ON r.snapshot_id = s.id
		GROUP BY s.id, s.name, s.created_at
		ORDER BY s.created_at DESC, s.rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := []model.Snapshot{}
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

func (s *Store) LatestSnapshot(ctx context.Context) (model.Snapshot, error) {
	snapshots, err := s.ListSnapshots(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	if len(snapshots) == 0 {
		return model.Snapshot{}, fmt.Errorf("latest snapshot: %w", model.ErrNotFound)
	}
	return snapshots[0], nil
}

func (s *Store) LoadSnapshot(ctx context.Context, id uuid.UUID) ([]model.Record, error) {
	if err := s.ensureSnapshot(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx,
		"SELECT date, time, city, activity, duration, notes FROM snapshot_records WHERE snapshot_id = ? ORDER BY position",
		id.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		var r model.Record
		if err := rows.Scan(&r.Date, &r.Time, &r.City, &r.Activity, &r.Duration, &r.Notes); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) DeleteSnapshot(ctx context.Context, id uuid.UUID) error {
	if err := s.ensureSnapshot(ctx, id); err != nil {
		return err
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_records WHERE snapshot_id = ?", id.String()); err != nil {
		return fmt.Errorf("delete snapshot records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshots WHERE id = ?", id.String()); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return tx.Commit()
}

func (s *Store) ensureSnapshot(ctx context.Context, id uuid.UUID) error {
	var exists int
	err := s.DB.QueryRowContext(ctx, "SELECT 1 FROM snapshots WHERE id = ?", id.String()).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("snapshot %s: %w", id, model.ErrNotFound)
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (model.Snapshot, error) {
	var (
		id        string
		snapshot  model.Snapshot
		createdAt string
	)
	if err := row.Scan(&id, &snapshot.Name, &createdAt, &snapshot.Count); err != nil {
		return model.Snapshot{}, err
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("parse snapshot id %q: %w", id, err)
	}
	parsedAt, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("parse snapshot time %q: %w", createdAt, err)
	}

	snapshot.ID = parsedID
	snapshot.CreatedAt = parsedAt
	return snapshot, nil
}
