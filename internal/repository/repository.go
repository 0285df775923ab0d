package repository

import (
	"context"
	"database/sql"
	"time"

	"heater_monitor/internal/models"
)

// Authorization stores operator accounts.
type Authorization interface {
	Create(ctx context.Context, username, hash string, at time.Time) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.Operator, error)
	TouchLogin(ctx context.Context, id int, at time.Time) error
}

// StateRepo keeps the single persisted heater snapshot.
type StateRepo interface {
	Save(ctx context.Context, s models.HeaterSnapshot) error
	Load(ctx context.Context) (models.HeaterSnapshot, error)
}

// EventRepo is the append-only event journal.
type EventRepo interface {
	Append(ctx context.Context, e models.HeaterEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.HeaterEvent, error)
	Prune(ctx context.Context, before time.Time, keep int) (int64, error)
}

type Repository struct {
	StateRepo StateRepo
	EventRepo EventRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StateRepo: NewStateSQLite(db),
		EventRepo: NewEventSQLite(db),
		Auth:      NewOperatorSQLite(db),
	}
}
