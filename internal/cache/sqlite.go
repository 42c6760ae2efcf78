package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/venue-atlas/internal/model"
)

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// A single connection serialises writers; the cache has one writer.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS venue_geocodes (
	name       TEXT NOT NULL,
	city       TEXT NOT NULL,
	state      TEXT NOT NULL DEFAULT '',
	rating     REAL,
	longitude  REAL NOT NULL,
	latitude   REAL NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (name, city)
);

CREATE INDEX IF NOT EXISTS idx_venue_geocodes_state ON venue_geocodes(state);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key model.VenueKey) (*model.CacheRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, city, state, rating, longitude, latitude, created_at, updated_at
		 FROM venue_geocodes WHERE name = ? AND city = ?`,
		key.Name, key.City,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get %s, %s", key.Name, key.City)
	}
	return rec, nil
}

func (s *SQLiteStore) Put(ctx context.Context, rec model.CacheRecord) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO venue_geocodes (name, city, state, rating, longitude, latitude, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name, city) DO UPDATE SET
			state = excluded.state,
			rating = excluded.rating,
			longitude = excluded.longitude,
			latitude = excluded.latitude,
			updated_at = excluded.updated_at`,
		rec.Name, rec.City, rec.State, rec.Rating.Ptr(), rec.Longitude, rec.Latitude, now, now,
	)
	return eris.Wrapf(err, "sqlite: put %s, %s", rec.Name, rec.City)
}

func (s *SQLiteStore) UpdateRating(ctx context.Context, key model.VenueKey, rating model.Rating) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE venue_geocodes SET rating = ?, updated_at = ? WHERE name = ? AND city = ?`,
		rating.Ptr(), time.Now().UTC(), key.Name, key.City,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update rating %s, %s", key.Name, key.City)
	}
	return checkRowsAffected(res, key)
}

func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]model.CacheRecord, error) {
	query := `SELECT name, city, state, rating, longitude, latitude, created_at, updated_at
		FROM venue_geocodes WHERE 1=1`
	var args []any

	if filter.State != "" {
		query += ` AND state = ?`
		args = append(args, filter.State)
	}
	if filter.City != "" {
		query += ` AND city = ?`
		args = append(args, filter.City)
	}
	query += ` ORDER BY state, city, name LIMIT ?`
	args = append(args, filter.limit())
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list")
	}
	defer rows.Close()

	var recs []model.CacheRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: list scan")
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: list iterate")
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM venue_geocodes`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count")
}

func checkRowsAffected(res sql.Result, key model.VenueKey) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s, %s", key.Name, key.City)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*model.CacheRecord, error) {
	var rec model.CacheRecord
	var rating sql.NullFloat64
	if err := row.Scan(&rec.Name, &rec.City, &rec.State, &rating,
		&rec.Longitude, &rec.Latitude, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if rating.Valid {
		rec.Rating = model.RatingOf(rating.Float64)
	}
	return &rec, nil
}
