package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Create assigns the next token number for the doctor and day.
	Create(ctx context.Context, t *Token) error
	GetByID(ctx context.Context, id uuid.UUID) (*Token, error)
	Update(ctx context.Context, t *Token) error
	ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Token, error)
	ListByPatientDate(ctx context.Context, patientID uuid.UUID, date time.Time) ([]*Token, error)
	// NextWaiting returns the lowest-numbered waiting token, or nil when the
	// queue is empty.
	NextWaiting(ctx context.Context, doctorID uuid.UUID, date time.Time) (*Token, error)
	// CurrentCalled returns the token currently in called status, or nil.
	CurrentCalled(ctx context.Context, doctorID uuid.UUID, date time.Time) (*Token, error)
}
