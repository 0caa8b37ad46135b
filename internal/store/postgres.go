package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/wardrounds/rounds-cli/internal/db"
	"github.com/wardrounds/rounds-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS patients (
	id         TEXT PRIMARY KEY,
	hn         TEXT NOT NULL UNIQUE,
	ward       TEXT,
	doc        JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	display_name  TEXT,
	role          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS audit_log (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	action      TEXT NOT NULL,
	resource    TEXT NOT NULL,
	resource_id TEXT,
	body        TEXT,
	ts          TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_patients_hn ON patients(hn);
CREATE INDEX IF NOT EXISTS idx_patients_ward ON patients(ward);
CREATE INDEX IF NOT EXISTS idx_audit_log_ts ON audit_log(ts);
CREATE INDEX IF NOT EXISTS idx_audit_log_user ON audit_log(user_id);
`

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

func (s *PostgresStore) CreatePatient(ctx context.Context, p *model.Patient) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	doc, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal patient")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO patients (id, hn, ward, doc, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.HN, p.Ward, doc, now, now,
	)
	return eris.Wrapf(err, "postgres: insert patient %s", p.HN)
}

func (s *PostgresStore) GetPatient(ctx context.Context, id string) (*model.Patient, error) {
	return s.getPatientWhere(ctx, `SELECT doc FROM patients WHERE id = $1`, id)
}

func (s *PostgresStore) GetPatientByHN(ctx context.Context, hn string) (*model.Patient, error) {
	return s.getPatientWhere(ctx, `SELECT doc FROM patients WHERE hn = $1`, hn)
}

func (s *PostgresStore) getPatientWhere(ctx context.Context, query, arg string) (*model.Patient, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, query, arg).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get patient")
	}

	var p model.Patient
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal patient")
	}
	return &p, nil
}

func (s *PostgresStore) ReplacePatient(ctx context.Context, p *model.Patient) error {
	p.UpdatedAt = time.Now().UTC()

	doc, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal patient")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE patients SET hn = $1, ward = $2, doc = $3, updated_at = $4 WHERE id = $5`,
		p.HN, p.Ward, doc, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: replace patient %s", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "patient %s", p.ID)
	}
	return nil
}

func (s *PostgresStore) ListPatients(ctx context.Context, filter PatientFilter) ([]model.Patient, error) {
	query := `SELECT doc FROM patients WHERE 1=1`
	var args []any

	if filter.Ward != "" {
		args = append(args, filter.Ward)
		query += ` AND ward = $1`
	}
	query += ` ORDER BY hn`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list patients")
	}
	defer rows.Close()

	var patients []model.Patient
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan patient")
		}
		var p model.Patient
		if err := json.Unmarshal(doc, &p); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal patient")
		}
		patients = append(patients, p)
	}
	return patients, eris.Wrap(rows.Err(), "postgres: list patients iterate")
}

func (s *PostgresStore) DeletePatient(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete patient %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "patient %s", id)
	}
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username, display_name, role, password_hash, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Username, u.DisplayName, string(u.Role), u.PasswordHash, u.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert user %s", u.Username)
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	var role string
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, display_name, role, password_hash, created_at FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.DisplayName, &role, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get user")
	}
	u.Role = model.Role(role)
	return &u, nil
}

func (s *PostgresStore) AppendAudit(ctx context.Context, entry model.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_log (id, user_id, action, resource, resource_id, body, ts) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.UserID, entry.Action, entry.Resource, entry.ResourceID, entry.SanitizedBody, entry.Timestamp,
	)
	return eris.Wrap(err, "postgres: append audit")
}

func (s *PostgresStore) ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, action, resource, resource_id, body, ts FROM audit_log ORDER BY ts DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audit")
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var resourceID, body *string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Resource, &resourceID, &body, &e.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit")
		}
		if resourceID != nil {
			e.ResourceID = *resourceID
		}
		if body != nil {
			e.SanitizedBody = *body
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list audit iterate")
}
