package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sangha/internal/ledger/models"
	"sangha/pkg/domain"
	"sangha/pkg/platform/tx"
)

// PostgresStore persists transitions in an append-only table. A bigserial seq
// column orders records within a shared commit timestamp.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the ledger table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS leadership_transitions (
			seq           BIGSERIAL PRIMARY KEY,
			id            UUID NOT NULL UNIQUE,
			occurred_at   TIMESTAMPTZ NOT NULL,
			person_id     UUID NOT NULL,
			previous_role TEXT,
			new_role      TEXT,
			reason        TEXT NOT NULL,
			replaced_by   UUID,
			actor_id      TEXT NOT NULL DEFAULT '',
			request_id    TEXT NOT NULL DEFAULT '',
			CONSTRAINT role_change CHECK (previous_role IS NOT NULL OR new_role IS NOT NULL)
		);
		CREATE INDEX IF NOT EXISTS idx_transitions_person ON leadership_transitions (person_id, seq);
	`)
	if err != nil {
		return fmt.Errorf("ensure transitions schema: %w", err)
	}
	return nil
}

type executor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// db picks the enclosing transaction when the succession engine opened one,
// and falls back to the pool for standalone reads.
func (s *PostgresStore) db(ctx context.Context) executor {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.pool
}

func (s *PostgresStore) Append(ctx context.Context, record *models.TransitionRecord) error {
	var prev, next *string
	if record.PreviousRole != nil {
		v := record.PreviousRole.String()
		prev = &v
	}
	if record.NewRole != nil {
		v := record.NewRole.String()
		next = &v
	}
	var replacedBy *string
	if record.ReplacedBy != nil {
		v := record.ReplacedBy.String()
		replacedBy = &v
	}

	_, err := s.db(ctx).Exec(ctx, `
		INSERT INTO leadership_transitions
			(id, occurred_at, person_id, previous_role, new_role, reason, replaced_by, actor_id, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID.String(), record.Timestamp, record.PersonID.String(),
		prev, next, record.Reason.String(), replacedBy, record.ActorID, record.RequestID,
	)
	if err != nil {
		return fmt.Errorf("append transition: %w", err)
	}
	return nil
}

func (s *PostgresStore) ByPerson(ctx context.Context, personID domain.PersonID) ([]*models.TransitionRecord, error) {
	rows, err := s.db(ctx).Query(ctx, `
		SELECT id, occurred_at, person_id, previous_role, new_role, reason, replaced_by, actor_id, request_id
		FROM leadership_transitions
		WHERE person_id = $1
		ORDER BY occurred_at, seq`,
		personID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []*models.TransitionRecord
	for rows.Next() {
		record, err := scanTransition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func scanTransition(rows pgx.Rows) (*models.TransitionRecord, error) {
	var (
		record               models.TransitionRecord
		id, personID         string
		prev, next, replaced *string
		reason               string
	)
	if err := rows.Scan(&id, &record.Timestamp, &personID, &prev, &next, &reason, &replaced, &record.ActorID, &record.RequestID); err != nil {
		return nil, fmt.Errorf("scan transition: %w", err)
	}

	var err error
	if record.ID, err = domain.ParseTransitionID(id); err != nil {
		return nil, err
	}
	if record.PersonID, err = domain.ParsePersonID(personID); err != nil {
		return nil, err
	}
	if prev != nil {
		role, err := domain.ParseRole(*prev)
		if err != nil {
			return nil, err
		}
		record.PreviousRole = &role
	}
	if next != nil {
		role, err := domain.ParseRole(*next)
		if err != nil {
			return nil, err
		}
		record.NewRole = &role
	}
	if replaced != nil {
		pid, err := domain.ParsePersonID(*replaced)
		if err != nil {
			return nil, err
		}
		record.ReplacedBy = &pid
	}
	record.Reason = models.Reason(reason)
	return &record, nil
}
