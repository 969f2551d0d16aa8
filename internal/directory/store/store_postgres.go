package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sangha/internal/directory/models"
	"sangha/pkg/domain"
	"sangha/pkg/platform/sentinel"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the directory tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS namahattas (
			id         UUID PRIMARY KEY,
			code       TEXT NOT NULL UNIQUE,
			name       TEXT NOT NULL,
			district   TEXT NOT NULL,
			state      TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS people (
			id           UUID PRIMARY KEY,
			display_name TEXT NOT NULL,
			legal_name   TEXT NOT NULL DEFAULT '',
			email        TEXT NOT NULL DEFAULT '',
			namahatta_id UUID REFERENCES namahattas (id),
			district     TEXT NOT NULL,
			state        TEXT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_people_district ON people (district);
	`)
	if err != nil {
		return fmt.Errorf("ensure directory schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreatePerson(ctx context.Context, person *models.Person) error {
	var namahattaID *string
	if person.NamahattaID != nil {
		v := person.NamahattaID.String()
		namahattaID = &v
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO people (id, display_name, legal_name, email, namahatta_id, district, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		person.ID.String(), person.DisplayName, person.LegalName, person.Email, namahattaID,
		person.District, person.State, person.CreatedAt, person.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("create person: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdatePerson(ctx context.Context, person *models.Person) error {
	var namahattaID *string
	if person.NamahattaID != nil {
		v := person.NamahattaID.String()
		namahattaID = &v
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE people
		SET display_name = $2, legal_name = $3, email = $4, namahatta_id = $5, district = $6, state = $7, updated_at = $8
		WHERE id = $1`,
		person.ID.String(), person.DisplayName, person.LegalName, person.Email, namahattaID,
		person.District, person.State, person.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const personColumns = `id, display_name, legal_name, email, namahatta_id, district, state, created_at, updated_at`

func (s *PostgresStore) PersonByID(ctx context.Context, id domain.PersonID) (*models.Person, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+personColumns+` FROM people WHERE id = $1`, id.String())
	person, err := scanPerson(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return person, err
}

func (s *PostgresStore) ListPeople(ctx context.Context, filter PersonFilter) ([]*models.Person, error) {
	query := `SELECT ` + personColumns + ` FROM people WHERE 1=1`
	var args []any
	if filter.District != "" {
		args = append(args, filter.District)
		query += fmt.Sprintf(" AND district = $%d", len(args))
	}
	if filter.State != "" {
		args = append(args, filter.State)
		query += fmt.Sprintf(" AND state = $%d", len(args))
	}
	if filter.Namahatta != nil {
		args = append(args, filter.Namahatta.String())
		query += fmt.Sprintf(" AND namahatta_id = $%d", len(args))
	}
	query += " ORDER BY display_name, id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	var out []*models.Person
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, person)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateNamahatta(ctx context.Context, namahatta *models.Namahatta) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO namahattas (id, code, name, district, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		namahatta.ID.String(), namahatta.Code, namahatta.Name,
		namahatta.District, namahatta.State, namahatta.CreatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrAlreadyUsed
	}
	if err != nil {
		return fmt.Errorf("create namahatta: %w", err)
	}
	return nil
}

func (s *PostgresStore) NamahattaByID(ctx context.Context, id domain.NamahattaID) (*models.Namahatta, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, code, name, district, state, created_at FROM namahattas WHERE id = $1`,
		id.String(),
	)
	namahatta, err := scanNamahatta(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return namahatta, err
}

func (s *PostgresStore) ListNamahattas(ctx context.Context) ([]*models.Namahatta, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, code, name, district, state, created_at FROM namahattas ORDER BY code`,
	)
	if err != nil {
		return nil, fmt.Errorf("list namahattas: %w", err)
	}
	defer rows.Close()

	var out []*models.Namahatta
	for rows.Next() {
		namahatta, err := scanNamahatta(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, namahatta)
	}
	return out, rows.Err()
}

func scanPerson(row pgx.Row) (*models.Person, error) {
	var (
		person      models.Person
		id          string
		namahattaID *string
	)
	if err := row.Scan(&id, &person.DisplayName, &person.LegalName, &person.Email, &namahattaID,
		&person.District, &person.State, &person.CreatedAt, &person.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan person: %w", err)
	}

	var err error
	if person.ID, err = domain.ParsePersonID(id); err != nil {
		return nil, err
	}
	if namahattaID != nil {
		nid, err := domain.ParseNamahattaID(*namahattaID)
		if err != nil {
			return nil, err
		}
		person.NamahattaID = &nid
	}
	return &person, nil
}

func scanNamahatta(row pgx.Row) (*models.Namahatta, error) {
	var (
		namahatta models.Namahatta
		id        string
	)
	if err := row.Scan(&id, &namahatta.Code, &namahatta.Name,
		&namahatta.District, &namahatta.State, &namahatta.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan namahatta: %w", err)
	}

	var err error
	if namahatta.ID, err = domain.ParseNamahattaID(id); err != nil {
		return nil, err
	}
	return &namahatta, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
