package events

import (
	"context"
	"database/sql"
	"errors"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, ev Event) (Event, error) {
	row := s.db.QueryRowContext(ctx, `
		insert into events (id, title, genre, venue, starts_at)
		values ($1, $2, $3, $4, $5)
		returning id, title, genre, venue, starts_at, created_at
	`, ev.ID, ev.Title, ev.Genre, ev.Venue, ev.StartsAt)
	return scanEvent(row)
}

func (s *PGStore) Find(ctx context.Context, id string) (Event, error) {
	row := s.db.QueryRowContext(ctx, `
		select id, title, genre, venue, starts_at, created_at
		from events where id = $1
	`, id)
	return scanEvent(row)
}

func (s *PGStore) List(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, title, genre, venue, starts_at, created_at
		from events
		order by starts_at
		limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Genre, &ev.Venue, &ev.StartsAt, &ev.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from events where id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEvent(row *sql.Row) (Event, error) {
	var ev Event
	err := row.Scan(&ev.ID, &ev.Title, &ev.Genre, &ev.Venue, &ev.StartsAt, &ev.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, ErrNotFound
	}
	if err != nil {
		return Event{}, err
	}
	return ev, nil
}
