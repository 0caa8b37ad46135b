package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/wardrounds/rounds-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS patients (
	id         TEXT PRIMARY KEY,
	hn         TEXT NOT NULL UNIQUE,
	ward       TEXT,
	doc        TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	display_name  TEXT,
	role          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS audit_log (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	action      TEXT NOT NULL,
	resource    TEXT NOT NULL,
	resource_id TEXT,
	body        TEXT,
	ts          DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_patients_hn ON patients(hn);
CREATE INDEX IF NOT EXISTS idx_patients_ward ON patients(ward);
CREATE INDEX IF NOT EXISTS idx_audit_log_ts ON audit_log(ts);
CREATE INDEX IF NOT EXISTS idx_audit_log_user ON audit_log(user_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreatePatient(ctx context.Context, p *model.Patient) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	doc, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal patient")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO patients (id, hn, ward, doc, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.HN, p.Ward, string(doc), now, now,
	)
	return eris.Wrapf(err, "sqlite: insert patient %s", p.HN)
}

func (s *SQLiteStore) GetPatient(ctx context.Context, id string) (*model.Patient, error) {
	return s.getPatientWhere(ctx, `id = ?`, id)
}

func (s *SQLiteStore) GetPatientByHN(ctx context.Context, hn string) (*model.Patient, error) {
	return s.getPatientWhere(ctx, `hn = ?`, hn)
}

func (s *SQLiteStore) getPatientWhere(ctx context.Context, where, arg string) (*model.Patient, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM patients WHERE `+where, arg,
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get patient")
	}

	var p model.Patient
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal patient")
	}
	return &p, nil
}

func (s *SQLiteStore) ReplacePatient(ctx context.Context, p *model.Patient) error {
	p.UpdatedAt = time.Now().UTC()

	doc, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal patient")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE patients SET hn = ?, ward = ?, doc = ?, updated_at = ? WHERE id = ?`,
		p.HN, p.Ward, string(doc), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: replace patient %s", p.ID)
	}
	return checkRowsAffected(res, "patient", p.ID)
}

func (s *SQLiteStore) ListPatients(ctx context.Context, filter PatientFilter) ([]model.Patient, error) {
	query := `SELECT doc FROM patients WHERE 1=1`
	var args []any

	if filter.Ward != "" {
		query += ` AND ward = ?`
		args = append(args, filter.Ward)
	}
	query += ` ORDER BY hn`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list patients")
	}
	defer rows.Close()

	var patients []model.Patient
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan patient")
		}
		var p model.Patient
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal patient")
		}
		patients = append(patients, p)
	}
	return patients, eris.Wrap(rows.Err(), "sqlite: list patients iterate")
}

func (s *SQLiteStore) DeletePatient(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM patients WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete patient %s", id)
	}
	return checkRowsAffected(res, "patient", id)
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	u.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, display_name, role, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.DisplayName, string(u.Role), u.PasswordHash, u.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert user %s", u.Username)
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, display_name, role, password_hash, created_at FROM users WHERE username = ?`,
		username,
	).Scan(&u.ID, &u.Username, &u.DisplayName, &role, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get user")
	}
	u.Role = model.Role(role)
	return &u, nil
}

func (s *SQLiteStore) AppendAudit(ctx context.Context, entry model.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, user_id, action, resource, resource_id, body, ts) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.Action, entry.Resource, entry.ResourceID, entry.SanitizedBody, entry.Timestamp,
	)
	return eris.Wrap(err, "sqlite: append audit")
}

func (s *SQLiteStore) ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, action, resource, resource_id, body, ts FROM audit_log ORDER BY ts DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audit")
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var resourceID, body sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Resource, &resourceID, &body, &e.Timestamp); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan audit")
		}
		e.ResourceID = resourceID.String
		e.SanitizedBody = body.String
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list audit iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}
