package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/venue-atlas/internal/db"
	"github.com/sells-group/venue-atlas/internal/model"
)

// PostgresStore implements Store on a shared Postgres database.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres connects to connString.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := db.Open(ctx, connString, db.PoolConfig{})
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Close does not close it.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS venue_geocodes (
	name       TEXT NOT NULL,
	city       TEXT NOT NULL,
	state      TEXT NOT NULL DEFAULT '',
	rating     DOUBLE PRECISION,
	longitude  DOUBLE PRECISION NOT NULL,
	latitude   DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (name, city)
);

CREATE INDEX IF NOT EXISTS idx_venue_geocodes_state ON venue_geocodes(state);
`

const selectRecord = `SELECT name, city, state, rating, longitude, latitude, created_at, updated_at FROM venue_geocodes`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key model.VenueKey) (*model.CacheRecord, error) {
	row := s.pool.QueryRow(ctx, selectRecord+` WHERE name = $1 AND city = $2`, key.Name, key.City)
	rec, err := scanPgRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get %s, %s", key.Name, key.City)
	}
	return rec, nil
}

func (s *PostgresStore) Put(ctx context.Context, rec model.CacheRecord) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO venue_geocodes (name, city, state, rating, longitude, latitude, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		 ON CONFLICT (name, city) DO UPDATE SET
			state = EXCLUDED.state,
			rating = EXCLUDED.rating,
			longitude = EXCLUDED.longitude,
			latitude = EXCLUDED.latitude,
			updated_at = EXCLUDED.updated_at`,
		rec.Name, rec.City, rec.State, rec.Rating.Ptr(), rec.Longitude, rec.Latitude, now,
	)
	return eris.Wrapf(err, "postgres: put %s, %s", rec.Name, rec.City)
}

func (s *PostgresStore) UpdateRating(ctx context.Context, key model.VenueKey, rating model.Rating) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE venue_geocodes SET rating = $1, updated_at = $2 WHERE name = $3 AND city = $4`,
		rating.Ptr(), time.Now().UTC(), key.Name, key.City,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update rating %s, %s", key.Name, key.City)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "%s, %s", key.Name, key.City)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]model.CacheRecord, error) {
	query := selectRecord + ` WHERE 1=1`
	var args []any

	if filter.State != "" {
		args = append(args, filter.State)
		query += fmt.Sprintf(` AND state = $%d`, len(args))
	}
	if filter.City != "" {
		args = append(args, filter.City)
		query += fmt.Sprintf(` AND city = $%d`, len(args))
	}
	args = append(args, filter.limit())
	query += fmt.Sprintf(` ORDER BY state, city, name LIMIT $%d`, len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list")
	}
	defer rows.Close()

	var recs []model.CacheRecord
	for rows.Next() {
		rec, err := scanPgRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list scan")
		}
		recs = append(recs, *rec)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: list iterate")
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM venue_geocodes`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count")
}

func scanPgRecord(row scannable) (*model.CacheRecord, error) {
	var rec model.CacheRecord
	var rating *float64
	if err := row.Scan(&rec.Name, &rec.City, &rec.State, &rating,
		&rec.Longitude, &rec.Latitude, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Rating = model.RatingFromPtr(rating)
	return &rec, nil
}
