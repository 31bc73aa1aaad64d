package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"storefront/backend/internal/tenant/domain"
)

// activationLockKey is the pg_advisory_xact_lock key that serializes every write which can
// turn a tenant active.
const activationLockKey int64 = 0x73746f7265667274

const uniqueViolation = "23505"

const tenantColumns = `id, slug, name, domain, is_active, config, asset_urls, created_at, updated_at, created_by, updated_by`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a tenant repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Ping checks database connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// List returns all tenants ordered by creation time then id.
func (r *PostgresRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTenants(rows)
}

// GetByID returns the tenant for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	return r.getOne(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
}

// GetBySlug returns the tenant for slug, or nil if not found.
func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	return r.getOne(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE slug = $1`, slug)
}

// GetByDomain returns the tenant bound to host, or nil if none claims it.
func (r *PostgresRepository) GetByDomain(ctx context.Context, host string) (*domain.Tenant, error) {
	if host == "" {
		return nil, nil
	}
	return r.getOne(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE domain = $1`, host)
}

// ListActive returns at most limit active tenants.
func (r *PostgresRepository) ListActive(ctx context.Context, limit int) ([]*domain.Tenant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE is_active ORDER BY updated_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTenants(rows)
}

// Create persists t. The tenant must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Tenant) error {
	cfg, assets, err := encodePayload(t)
	if err != nil {
		return err
	}
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if t.IsActive {
			if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, activationLockKey); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE tenants SET is_active = false, updated_at = $1, updated_by = $2 WHERE is_active`,
				t.CreatedAt, t.CreatedBy); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tenants (`+tenantColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			t.ID, t.Slug, t.Name, nullString(t.Domain), t.IsActive, cfg, assets,
			t.CreatedAt, t.UpdatedAt, t.CreatedBy, t.UpdatedBy,
		)
		return mapUniqueViolation(err, t)
	})
}

// Update writes slug, name, domain, config and asset_urls for t.ID.
func (r *PostgresRepository) Update(ctx context.Context, t *domain.Tenant) error {
	cfg, assets, err := encodePayload(t)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE tenants
		SET slug = $2, name = $3, domain = $4, config = $5, asset_urls = $6, updated_at = $7, updated_by = $8
		WHERE id = $1`,
		t.ID, t.Slug, t.Name, nullString(t.Domain), cfg, assets, t.UpdatedAt, t.UpdatedBy,
	)
	if err != nil {
		return mapUniqueViolation(err, t)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.NotFoundError{ID: t.ID}
	}
	return nil
}

// Activate switches every other active tenant off and id on, in one transaction serialized by an
// advisory lock so that concurrent activations commit one after another.
func (r *PostgresRepository) Activate(ctx context.Context, id, actorID string, at time.Time) (Activation, error) {
	var out Activation
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, activationLockKey); err != nil {
			return err
		}
		var active bool
		err := tx.QueryRowContext(ctx, `SELECT is_active FROM tenants WHERE id = $1 FOR UPDATE`, id).Scan(&active)
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.NotFoundError{ID: id}
		}
		if err != nil {
			return err
		}
		rows, err := tx.QueryContext(ctx, `
			UPDATE tenants SET is_active = false, updated_at = $2, updated_by = $3
			WHERE is_active AND id <> $1
			RETURNING id`, id, at, actorID)
		if err != nil {
			return err
		}
		for rows.Next() {
			var prev string
			if err := rows.Scan(&prev); err != nil {
				rows.Close()
				return err
			}
			out.PreviousActiveIDs = append(out.PreviousActiveIDs, prev)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if !active {
			if _, err := tx.ExecContext(ctx,
				`UPDATE tenants SET is_active = true, updated_at = $2, updated_by = $3 WHERE id = $1`,
				id, at, actorID); err != nil {
				return err
			}
		}
		out.Changed = !active || len(out.PreviousActiveIDs) > 0
		return nil
	})
	return out, err
}

// Deactivate clears is_active on id.
func (r *PostgresRepository) Deactivate(ctx context.Context, id, actorID string, at time.Time) (Activation, error) {
	var out Activation
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var active bool
		err := tx.QueryRowContext(ctx, `SELECT is_active FROM tenants WHERE id = $1 FOR UPDATE`, id).Scan(&active)
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.NotFoundError{ID: id}
		}
		if err != nil {
			return err
		}
		if !active {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE tenants SET is_active = false, updated_at = $2, updated_by = $3 WHERE id = $1`,
			id, at, actorID); err != nil {
			return err
		}
		out.Changed = true
		return nil
	})
	return out, err
}

func (r *PostgresRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*domain.Tenant, error) {
	t, err := scanTenant(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTenant(s scanner) (*domain.Tenant, error) {
	var (
		t      domain.Tenant
		host   sql.NullString
		cfg    []byte
		assets []byte
	)
	if err := s.Scan(&t.ID, &t.Slug, &t.Name, &host, &t.IsActive, &cfg, &assets,
		&t.CreatedAt, &t.UpdatedAt, &t.CreatedBy, &t.UpdatedBy); err != nil {
		return nil, err
	}
	if host.Valid {
		t.Domain = host.String
	}
	t.Config = json.RawMessage(cfg)
	if len(assets) > 0 {
		if err := json.Unmarshal(assets, &t.AssetURLs); err != nil {
			return nil, fmt.Errorf("decode asset_urls for %s: %w", t.ID, err)
		}
	}
	return &t, nil
}

func scanTenants(rows *sql.Rows) ([]*domain.Tenant, error) {
	out := make([]*domain.Tenant, 0)
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func encodePayload(t *domain.Tenant) (cfg []byte, assets []byte, err error) {
	cfg = []byte(t.Config)
	if len(cfg) == 0 {
		cfg = []byte("{}")
	}
	assetMap := t.AssetURLs
	if assetMap == nil {
		assetMap = map[string]string{}
	}
	assets, err = json.Marshal(assetMap)
	if err != nil {
		return nil, nil, fmt.Errorf("encode asset_urls: %w", err)
	}
	return cfg, assets, nil
}

func mapUniqueViolation(err error, t *domain.Tenant) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "slug"):
		return &domain.ConflictError{Field: "slug", Value: t.Slug}
	case strings.Contains(pgErr.ConstraintName, "domain"):
		return &domain.ConflictError{Field: "domain", Value: t.Domain}
	case strings.Contains(pgErr.ConstraintName, "single_active"):
		return &domain.ConflictError{Field: "is_active", Value: t.ID}
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
