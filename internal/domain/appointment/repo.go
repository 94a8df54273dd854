package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrSlotTaken is returned when another active appointment already holds the
// requested doctor/date/time slot.
var ErrSlotTaken = errors.New("slot is already booked")

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, date *time.Time, limit, offset int) ([]*Appointment, int, error)
	// BookedSlots returns the time slots held by active appointments for a
	// doctor on a given day.
	BookedSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error)
}
