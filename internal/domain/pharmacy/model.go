package pharmacy

import (
	"time"

	"github.com/google/uuid"
)

// Medicine maps to the medicines table. Price is stored in the smallest
// currency unit.
type Medicine struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Manufacturer *string    `db:"manufacturer" json:"manufacturer,omitempty"`
	Category     *string    `db:"category" json:"category,omitempty"`
	Price        int64      `db:"price" json:"price"`
	Stock        int        `db:"stock" json:"stock"`
	ExpiryDate   *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Order maps to the pharmacy_orders table.
type Order struct {
	ID        uuid.UUID   `db:"id" json:"id"`
	PatientID uuid.UUID   `db:"patient_id" json:"patient_id"`
	Status    string      `db:"status" json:"status"`
	Total     int64       `db:"total" json:"total"`
	Items     []*OrderItem `json:"items,omitempty"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// OrderItem maps to the pharmacy_order_items table. UnitPrice is captured at
// order time so later price changes do not rewrite history.
type OrderItem struct {
	ID         uuid.UUID `db:"id" json:"id"`
	OrderID    uuid.UUID `db:"order_id" json:"order_id"`
	MedicineID uuid.UUID `db:"medicine_id" json:"medicine_id"`
	Quantity   int       `db:"quantity" json:"quantity"`
	UnitPrice  int64     `db:"unit_price" json:"unit_price"`
}

// Order statuses.
const (
	StatusPlaced     = "placed"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

var validTransitions = map[string][]string{
	StatusPlaced:     {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusReady, StatusCancelled},
	StatusReady:      {StatusDelivered},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
