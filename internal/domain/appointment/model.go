package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment maps to the appointments table. Date carries only the calendar
// day; TimeSlot is one of the grid values in SlotGrid.
type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Date      time.Time `db:"date" json:"date"`
	TimeSlot  string    `db:"time_slot" json:"time_slot"`
	Reason    *string   `db:"reason" json:"reason,omitempty"`
	Status    string    `db:"status" json:"status"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Appointment statuses.
const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// SlotGrid is the clinic's bookable day: half-hour slots across the morning
// session (09:00-12:00) and the afternoon session (14:00-17:00).
var SlotGrid = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30", "12:00",
	"14:00", "14:30", "15:00", "15:30", "16:00", "16:30", "17:00",
}

var slotSet = func() map[string]bool {
	m := make(map[string]bool, len(SlotGrid))
	for _, s := range SlotGrid {
		m[s] = true
	}
	return m
}()

// ValidSlot reports whether t is one of the grid slots.
func ValidSlot(t string) bool { return slotSet[t] }

// blocking lists the statuses that hold a slot. Cancelled and no-show
// appointments free their slot for rebooking.
var blocking = map[string]bool{
	StatusScheduled: true,
	StatusConfirmed: true,
}

// Blocking reports whether an appointment in the given status occupies its slot.
func Blocking(status string) bool { return blocking[status] }

// validTransitions describes the status state machine. Completed, cancelled
// and no_show are terminal.
var validTransitions = map[string][]string{
	StatusScheduled: {StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

// CanTransition reports whether an appointment may move from one status to
// another.
func CanTransition(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
