package link

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/linklite/linklite/internal/errx"
	"github.com/linklite/linklite/internal/idgen"
)

// db is the subset of pgxpool.Pool the store needs.
type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgStore struct {
	db  db
	ids idgen.Generator
}

// StoreConfig holds configuration for the Postgres store.
type StoreConfig struct {
	IDGenerator idgen.Generator
}

// NewPGStore creates a Postgres-backed link store.
func NewPGStore(db db, config *StoreConfig) Store {
	if config == nil {
		config = &StoreConfig{}
	}

	// Default: UUID v7 (good for DB locality). Retry once by default inside idgen.NewV7.
	if config.IDGenerator == nil {
		config.IDGenerator = idgen.NewV7(idgen.WithRetries(1))
	}

	return &pgStore{
		db:  db,
		ids: config.IDGenerator,
	}
}

func isShortCodeUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" &&
		pgErr.ConstraintName == "links_short_code_unique"
}

func mapStoreError(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errx.E(op, errx.NotFound, err)

	case isShortCodeUniqueViolation(err):
		return errx.E(op, errx.Conflict, err)

	default:
		return errx.E(op, errx.Unavailable, err)
	}
}

const createLinkSQL = `
INSERT INTO links (id, short_code, destination_url, owner_id)
VALUES ($1, $2, $3, $4)
RETURNING id, short_code, destination_url, owner_id, created_at`

func (s *pgStore) Create(ctx context.Context, link Link) (Link, error) {
	const op = "link.store.Create"

	// Generate ID if not provided
	if link.ID == uuid.Nil {
		id, err := s.ids.Generate()
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}
		link.ID = id
	}

	row := s.db.QueryRow(ctx, createLinkSQL,
		link.ID,
		link.ShortCode,
		link.DestinationURL,
		link.OwnerID,
	)

	created, err := scanLink(row)
	if err != nil {
		return Link{}, mapStoreError(op, err)
	}
	return created, nil
}

const byShortCodeSQL = `
SELECT id, short_code, destination_url, owner_id, created_at
FROM links
WHERE short_code = $1`

func (s *pgStore) ByShortCode(ctx context.Context, code string) (Link, error) {
	const op = "link.store.ByShortCode"

	link, err := scanLink(s.db.QueryRow(ctx, byShortCodeSQL, code))
	if err != nil {
		return Link{}, mapStoreError(op, err)
	}
	return link, nil
}

const byIDSQL = `
SELECT id, short_code, destination_url, owner_id, created_at
FROM links
WHERE id = $1`

func (s *pgStore) ByID(ctx context.Context, id uuid.UUID) (Link, error) {
	const op = "link.store.ByID"

	link, err := scanLink(s.db.QueryRow(ctx, byIDSQL, id))
	if err != nil {
		return Link{}, mapStoreError(op, err)
	}
	return link, nil
}

const byOwnerSQL = `
SELECT id, short_code, destination_url, owner_id, created_at
FROM links
WHERE owner_id = $1
ORDER BY created_at DESC`

func (s *pgStore) ByOwner(ctx context.Context, ownerID string) ([]Link, error) {
	const op = "link.store.ByOwner"

	rows, err := s.db.Query(ctx, byOwnerSQL, ownerID)
	if err != nil {
		return nil, mapStoreError(op, err)
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, mapStoreError(op, err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreError(op, err)
	}

	return links, nil
}

func scanLink(row pgx.Row) (Link, error) {
	var link Link
	err := row.Scan(
		&link.ID,
		&link.ShortCode,
		&link.DestinationURL,
		&link.OwnerID,
		&link.CreatedAt,
	)
	if err != nil {
		return Link{}, err
	}
	return link, nil
}
