package pharmacy

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrInsufficientStock is returned when an order asks for more units than the
// medicine has on hand.
var ErrInsufficientStock = errors.New("insufficient stock")

type MedicineRepository interface {
	Create(ctx context.Context, m *Medicine) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error)
	Update(ctx context.Context, m *Medicine) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Medicine, int, error)
	// DecrementStock atomically subtracts qty, failing with
	// ErrInsufficientStock when stock would go negative.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) error
	IncrementStock(ctx context.Context, id uuid.UUID, qty int) error
}

type OrderRepository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Order, int, error)
}
