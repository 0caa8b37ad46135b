package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/wardrounds/rounds-cli/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = eris.New("store: not found")

// PatientFilter specifies criteria for listing patients.
type PatientFilter struct {
	Ward   string `json:"ward,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface. Patients are stored as whole
// JSON documents and replaced atomically; reconciliation happens in memory
// before the replace.
type Store interface {
	// Patients
	CreatePatient(ctx context.Context, p *model.Patient) error
	GetPatient(ctx context.Context, id string) (*model.Patient, error)
	GetPatientByHN(ctx context.Context, hn string) (*model.Patient, error)
	ReplacePatient(ctx context.Context, p *model.Patient) error
	ListPatients(ctx context.Context, filter PatientFilter) ([]model.Patient, error)
	DeletePatient(ctx context.Context, id string) error

	// Users
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)

	// Audit
	AppendAudit(ctx context.Context, entry model.AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
