package pharmacy

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carebridge/hms/internal/domain/patient"
	"github.com/carebridge/hms/internal/platform/notification"
)

type Service struct {
	medicines MedicineRepository
	orders    OrderRepository
	patients  patient.Repository
	notifier  *notification.Manager
}

func NewService(medicines MedicineRepository, orders OrderRepository, patients patient.Repository, notifier *notification.Manager) *Service {
	return &Service{medicines: medicines, orders: orders, patients: patients, notifier: notifier}
}

// -- Medicine --

func (s *Service) CreateMedicine(ctx context.Context, m *Medicine) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if m.Price < 0 {
		return fmt.Errorf("price cannot be negative")
	}
	if m.Stock < 0 {
		return fmt.Errorf("stock cannot be negative")
	}
	return s.medicines.Create(ctx, m)
}

func (s *Service) GetMedicine(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return s.medicines.GetByID(ctx, id)
}

func (s *Service) UpdateMedicine(ctx context.Context, m *Medicine) error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if m.Price < 0 || m.Stock < 0 {
		return fmt.Errorf("price and stock cannot be negative")
	}
	return s.medicines.Update(ctx, m)
}

func (s *Service) DeleteMedicine(ctx context.Context, id uuid.UUID) error {
	return s.medicines.Delete(ctx, id)
}

func (s *Service) SearchMedicines(ctx context.Context, params map[string]string, limit, offset int) ([]*Medicine, int, error) {
	return s.medicines.Search(ctx, params, limit, offset)
}

func (s *Service) Restock(ctx context.Context, id uuid.UUID, qty int) (*Medicine, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	if err := s.medicines.IncrementStock(ctx, id, qty); err != nil {
		return nil, err
	}
	return s.medicines.GetByID(ctx, id)
}

// -- Order --

// OrderLine is a requested order entry before pricing.
type OrderLine struct {
	MedicineID uuid.UUID `json:"medicine_id"`
	Quantity   int       `json:"quantity"`
}

// PlaceOrder prices each line at the current medicine price, reserves stock
// and records the order. Stock already taken is returned if a later line
// fails.
func (s *Service) PlaceOrder(ctx context.Context, patientID uuid.UUID, lines []OrderLine) (*Order, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("order must contain at least one item")
	}
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("patient not found")
	}

	order := &Order{PatientID: patientID, Status: StatusPlaced}
	var taken []OrderLine

	release := func() {
		for _, l := range taken {
			_ = s.medicines.IncrementStock(ctx, l.MedicineID, l.Quantity)
		}
	}

	for _, line := range lines {
		if line.Quantity <= 0 {
			release()
			return nil, fmt.Errorf("quantity must be positive")
		}
		m, err := s.medicines.GetByID(ctx, line.MedicineID)
		if err != nil {
			release()
			return nil, fmt.Errorf("medicine %s not found", line.MedicineID)
		}
		if err := s.medicines.DecrementStock(ctx, line.MedicineID, line.Quantity); err != nil {
			release()
			if err == ErrInsufficientStock {
				return nil, fmt.Errorf("%w for %s", ErrInsufficientStock, m.Name)
			}
			return nil, err
		}
		taken = append(taken, line)

		order.Items = append(order.Items, &OrderItem{
			MedicineID: line.MedicineID,
			Quantity:   line.Quantity,
			UnitPrice:  m.Price,
		})
		order.Total += m.Price * int64(line.Quantity)
	}

	if err := s.orders.Create(ctx, order); err != nil {
		release()
		return nil, err
	}

	s.notifier.Notify("order-status", map[string]string{
		"patient_name": p.Name,
		"order_id":     order.ID.String(),
		"status":       order.Status,
	}, p.Email)
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// UpdateOrderStatus moves an order through its state machine. Cancelling an
// order returns its stock.
func (s *Service) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("order not found")
	}
	if !CanTransition(o.Status, status) {
		return nil, fmt.Errorf("cannot change status from %s to %s", o.Status, status)
	}

	if err := s.orders.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	o.Status = status

	if status == StatusCancelled {
		for _, item := range o.Items {
			_ = s.medicines.IncrementStock(ctx, item.MedicineID, item.Quantity)
		}
	}

	if p, perr := s.patients.GetByID(ctx, o.PatientID); perr == nil {
		s.notifier.Notify("order-status", map[string]string{
			"patient_name": p.Name,
			"order_id":     o.ID.String(),
			"status":       status,
		}, p.Email)
	}
	return o, nil
}

func (s *Service) ListOrdersByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	return s.orders.ListByPatient(ctx, patientID, limit, offset)
}
