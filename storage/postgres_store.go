package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"reklama5-scraper/models"
	"reklama5-scraper/utils"
)

var _ ListingStore = (*PostgresStore)(nil)

// PostgresStore persists listings and their change log to PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresStore opens a connection to PostgreSQL, waits for it to accept
// pings, runs schema migrations, and returns a ready-to-use store.
func NewPostgresStore(ctx context.Context, dsn string, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		logger.Warn("[postgres] Ping attempt %d failed: %v", i+1, err)
		if sleepErr := utils.SleepContext(ctx, 2*time.Second); sleepErr != nil {
			err = sleepErr
			break
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db, logger: logger.Component("postgres")}
	if err := ps.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return ps, nil
}

func (ps *PostgresStore) migrate(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS listings (
			id             TEXT        PRIMARY KEY,
			link           TEXT        NOT NULL DEFAULT '',
			make           TEXT        NOT NULL DEFAULT '',
			model          TEXT        NOT NULL DEFAULT '',
			year           INTEGER,
			price          INTEGER,
			km             INTEGER,
			kw             INTEGER,
			ps             INTEGER,
			fuel           TEXT        NOT NULL DEFAULT '',
			gearbox        TEXT        NOT NULL DEFAULT '',
			body           TEXT        NOT NULL DEFAULT '',
			color          TEXT        NOT NULL DEFAULT '',
			registration   TEXT        NOT NULL DEFAULT '',
			reg_until      TEXT        NOT NULL DEFAULT '',
			emission_class TEXT        NOT NULL DEFAULT '',
			date           TEXT        NOT NULL DEFAULT '',
			city           TEXT        NOT NULL DEFAULT '',
			promoted       BOOLEAN     NOT NULL DEFAULT FALSE,
			hash           TEXT        NOT NULL DEFAULT '',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_seen      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS listing_changes (
			id         BIGSERIAL   PRIMARY KEY,
			listing_id TEXT        NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
			field      TEXT        NOT NULL,
			old_value  TEXT        NOT NULL DEFAULT '',
			new_value  TEXT        NOT NULL DEFAULT '',
			changed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_listings_make_model   ON listings(make, model);
		CREATE INDEX IF NOT EXISTS idx_listings_last_seen    ON listings(last_seen);
		CREATE INDEX IF NOT EXISTS idx_listings_hash         ON listings(hash);
		CREATE INDEX IF NOT EXISTS idx_changes_listing_id    ON listing_changes(listing_id);
		CREATE INDEX IF NOT EXISTS idx_changes_field_changed ON listing_changes(field, changed_at DESC);
	`)
	return err
}

const listingColumns = `id, link, make, model, year, price, km, kw, ps,
	fuel, gearbox, body, color, registration, reg_until, emission_class,
	date, city, promoted, hash, created_at, updated_at, last_seen`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (*models.Listing, error) {
	l := &models.Listing{}
	var year, price, km, kw, ps sql.NullInt64
	if err := row.Scan(
		&l.ID, &l.Link, &l.Make, &l.Model, &year, &price, &km, &kw, &ps,
		&l.Fuel, &l.Gearbox, &l.Body, &l.Color, &l.Registration, &l.RegUntil, &l.EmissionClass,
		&l.Date, &l.City, &l.Promoted, &l.Hash, &l.CreatedAt, &l.UpdatedAt, &l.LastSeen,
	); err != nil {
		return nil, err
	}
	l.Year, l.Price, l.KM, l.KW, l.PS = fromNull(year), fromNull(price), fromNull(km), fromNull(kw), fromNull(ps)
	// Stored hashes may predate a change of the comparison set.
	l.Hash = l.ComparisonHash()
	return l, nil
}

func (ps *PostgresStore) Get(ctx context.Context, id string) (*models.Listing, error) {
	row := ps.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
	l, err := scanListing(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get %s: %w", id, err)
	}
	return l, nil
}

// Upsert applies one classified listing inside a transaction so a changed
// listing and its change rows are written together.
func (ps *PostgresStore) Upsert(ctx context.Context, l *models.Listing, class models.Classification, now time.Time) (err error) {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	switch class.Status {
	case models.StatusNew:
		_, err = tx.ExecContext(ctx, `
			INSERT INTO listings (`+listingColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$21,$21)
			ON CONFLICT (id) DO UPDATE SET
				link = EXCLUDED.link, make = EXCLUDED.make, model = EXCLUDED.model,
				year = EXCLUDED.year, price = EXCLUDED.price, km = EXCLUDED.km,
				kw = EXCLUDED.kw, ps = EXCLUDED.ps, fuel = EXCLUDED.fuel,
				gearbox = EXCLUDED.gearbox, body = EXCLUDED.body, color = EXCLUDED.color,
				registration = EXCLUDED.registration, reg_until = EXCLUDED.reg_until,
				emission_class = EXCLUDED.emission_class, date = EXCLUDED.date,
				city = EXCLUDED.city, promoted = EXCLUDED.promoted, hash = EXCLUDED.hash,
				updated_at = EXCLUDED.updated_at, last_seen = EXCLUDED.last_seen`,
			append(listingArgs(l), now)...)
	case models.StatusChanged:
		_, err = tx.ExecContext(ctx, `
			UPDATE listings SET
				link = $2, make = $3, model = $4, year = $5, price = $6, km = $7,
				kw = $8, ps = $9, fuel = $10, gearbox = $11, body = $12, color = $13,
				registration = $14, reg_until = $15, emission_class = $16, date = $17,
				city = $18, promoted = $19, hash = $20, updated_at = $21, last_seen = $21
			WHERE id = $1`,
			append(listingArgs(l), now)...)
		if err == nil {
			err = insertChanges(ctx, tx, l.ID, class.Changes, now)
		}
	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE listings SET
				fuel = $2, gearbox = $3, body = $4, color = $5, registration = $6,
				reg_until = $7, emission_class = $8, last_seen = $9
			WHERE id = $1`,
			l.ID, l.Fuel, l.Gearbox, l.Body, l.Color, l.Registration, l.RegUntil, l.EmissionClass, now)
	}
	if err != nil {
		return fmt.Errorf("postgres: upsert %s (%s): %w", l.ID, class.Status, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit %s: %w", l.ID, err)
	}
	return nil
}

func insertChanges(ctx context.Context, tx *sql.Tx, id string, changes []models.FieldChange, now time.Time) error {
	if len(changes) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO listing_changes (listing_id, field, old_value, new_value, changed_at)
		VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, c := range changes {
		if _, err := stmt.ExecContext(ctx, id, c.Field, c.Old, c.New, now); err != nil {
			return err
		}
	}
	return nil
}

func listingArgs(l *models.Listing) []any {
	return []any{
		l.ID, l.Link, l.Make, l.Model,
		toNull(l.Year), toNull(l.Price), toNull(l.KM), toNull(l.KW), toNull(l.PS),
		l.Fuel, l.Gearbox, l.Body, l.Color, l.Registration, l.RegUntil, l.EmissionClass,
		l.Date, l.City, l.Promoted, l.ComparisonHash(),
	}
}

// All retrieves every stored listing, used for aggregation.
func (ps *PostgresStore) All(ctx context.Context) ([]*models.Listing, error) {
	rows, err := ps.db.QueryContext(ctx, `SELECT `+listingColumns+` FROM listings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (ps *PostgresStore) RecentChanges(ctx context.Context, field string, limit int) ([]*models.ListingChange, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := ps.db.QueryContext(ctx, `
		SELECT id, listing_id, field, old_value, new_value, changed_at
		FROM listing_changes
		WHERE $1 = '' OR field = $1
		ORDER BY changed_at DESC, id DESC
		LIMIT $2`, field, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent changes: %w", err)
	}
	defer rows.Close()

	var out []*models.ListingChange
	for rows.Next() {
		c := &models.ListingChange{}
		if err := rows.Scan(&c.ID, &c.ListingID, &c.Field, &c.OldValue, &c.NewValue, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan change: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

func toNull(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func fromNull(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
