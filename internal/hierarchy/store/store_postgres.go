package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sangha/internal/hierarchy/models"
	"sangha/pkg/domain"
	"sangha/pkg/platform/sentinel"
	"sangha/pkg/platform/tx"
)

// PostgresStore persists holders in a single table with a unique seat
// constraint. Apply loads the full forest FOR UPDATE inside the enclosing
// transaction, validates the prospective state in memory, then writes; the
// transaction boundary supplies all-or-nothing semantics.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the holders table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS leadership_holders (
			person_id   UUID PRIMARY KEY,
			role        TEXT NOT NULL,
			scope_value TEXT NOT NULL,
			superior_id UUID,
			UNIQUE (role, scope_value)
		);
		CREATE INDEX IF NOT EXISTS idx_holders_superior ON leadership_holders (superior_id);
	`)
	if err != nil {
		return fmt.Errorf("ensure holders schema: %w", err)
	}
	return nil
}

type executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) db(ctx context.Context) executor {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.pool
}

const holderColumns = `person_id, role, scope_value, superior_id`

func (s *PostgresStore) HolderOf(ctx context.Context, personID domain.PersonID) (*models.Holder, error) {
	row := s.db(ctx).QueryRow(ctx,
		`SELECT `+holderColumns+` FROM leadership_holders WHERE person_id = $1`,
		personID.String(),
	)
	return scanHolderRow(row)
}

func (s *PostgresStore) HolderOfSlot(ctx context.Context, key models.SlotKey) (*models.Holder, error) {
	row := s.db(ctx).QueryRow(ctx,
		`SELECT `+holderColumns+` FROM leadership_holders WHERE role = $1 AND scope_value = $2`,
		key.Role.String(), key.ScopeValue,
	)
	return scanHolderRow(row)
}

func (s *PostgresStore) Subordinates(ctx context.Context, personID domain.PersonID) ([]*models.Holder, error) {
	return s.queryHolders(ctx,
		`SELECT `+holderColumns+` FROM leadership_holders WHERE superior_id = $1`,
		personID.String(),
	)
}

func (s *PostgresStore) Snapshot(ctx context.Context) ([]*models.Holder, error) {
	return s.queryHolders(ctx, `SELECT `+holderColumns+` FROM leadership_holders`)
}

func (s *PostgresStore) Apply(ctx context.Context, changeset models.Changeset) error {
	db := s.db(ctx)

	rows, err := db.Query(ctx, `SELECT `+holderColumns+` FROM leadership_holders FOR UPDATE`)
	if err != nil {
		return fmt.Errorf("lock holders: %w", err)
	}
	current, err := collectHolders(rows)
	if err != nil {
		return err
	}

	byID := make(map[domain.PersonID]*models.Holder, len(current))
	for _, h := range current {
		byID[h.PersonID] = h
	}
	if err := validateForest(prospective(byID, changeset)); err != nil {
		return err
	}

	for _, change := range changeset.Changes {
		if change.Holder == nil {
			if _, err := db.Exec(ctx,
				`DELETE FROM leadership_holders WHERE person_id = $1`,
				change.PersonID.String(),
			); err != nil {
				return fmt.Errorf("clear holder: %w", err)
			}
			continue
		}
		var superior *string
		if change.Holder.SuperiorID != nil {
			v := change.Holder.SuperiorID.String()
			superior = &v
		}
		if _, err := db.Exec(ctx, `
			INSERT INTO leadership_holders (person_id, role, scope_value, superior_id)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (person_id) DO UPDATE
			SET role = EXCLUDED.role, scope_value = EXCLUDED.scope_value, superior_id = EXCLUDED.superior_id`,
			change.Holder.PersonID.String(), change.Holder.Role.String(), change.Holder.ScopeValue, superior,
		); err != nil {
			return fmt.Errorf("set holder: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) queryHolders(ctx context.Context, sql string, args ...any) ([]*models.Holder, error) {
	rows, err := s.db(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query holders: %w", err)
	}
	holders, err := collectHolders(rows)
	if err != nil {
		return nil, err
	}
	sortHolders(holders)
	return holders, nil
}

func collectHolders(rows pgx.Rows) ([]*models.Holder, error) {
	defer rows.Close()
	var out []*models.Holder
	for rows.Next() {
		h, err := scanHolder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func scanHolderRow(row pgx.Row) (*models.Holder, error) {
	h, err := scanHolder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return h, err
}

func scanHolder(row pgx.Row) (*models.Holder, error) {
	var (
		h              models.Holder
		personID, role string
		superior       *string
	)
	if err := row.Scan(&personID, &role, &h.ScopeValue, &superior); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan holder: %w", err)
	}

	var err error
	if h.PersonID, err = domain.ParsePersonID(personID); err != nil {
		return nil, err
	}
	if h.Role, err = domain.ParseRole(role); err != nil {
		return nil, err
	}
	if superior != nil {
		sid, err := domain.ParsePersonID(*superior)
		if err != nil {
			return nil, err
		}
		h.SuperiorID = &sid
	}
	return &h, nil
}
