package click

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/linklite/linklite/internal/errx"
)

// db is the subset of pgxpool.Pool the store needs.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pgStore struct {
	db db
}

// NewPGStore creates a Postgres-backed event store.
func NewPGStore(db db) Store {
	return &pgStore{db: db}
}

const insertEventSQL = `
INSERT INTO click_events (id, link_id, occurred_at, device_category, geo_city, geo_country)
VALUES ($1, $2, $3, $4, $5, $6)`

func (s *pgStore) Insert(ctx context.Context, event Event) error {
	const op = "click.store.Insert"

	_, err := s.db.Exec(ctx, insertEventSQL,
		event.ID,
		event.LinkID,
		event.OccurredAt,
		string(event.DeviceCategory),
		event.GeoCity,
		event.GeoCountry,
	)
	if err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	return nil
}

const summarizeDeviceSQL = `
SELECT device_category, COUNT(*)
FROM click_events
WHERE link_id = $1
GROUP BY device_category`

const summarizeCountrySQL = `
SELECT COALESCE(geo_country, 'unknown'), COUNT(*)
FROM click_events
WHERE link_id = $1
GROUP BY COALESCE(geo_country, 'unknown')`

func (s *pgStore) SummarizeByLink(ctx context.Context, linkID uuid.UUID) (Summary, error) {
	const op = "click.store.SummarizeByLink"

	byDevice, total, err := s.groupCount(ctx, summarizeDeviceSQL, linkID)
	if err != nil {
		return Summary{}, errx.E(op, errx.Unavailable, err)
	}

	byCountry, _, err := s.groupCount(ctx, summarizeCountrySQL, linkID)
	if err != nil {
		return Summary{}, errx.E(op, errx.Unavailable, err)
	}

	return Summary{
		Total:     total,
		ByDevice:  byDevice,
		ByCountry: byCountry,
	}, nil
}

func (s *pgStore) groupCount(ctx context.Context, sql string, linkID uuid.UUID) (map[string]int64, int64, error) {
	rows, err := s.db.Query(ctx, sql, linkID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	groups := make(map[string]int64)
	var total int64
	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return nil, 0, err
		}
		groups[key] = count
		total += count
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return groups, total, nil
}
