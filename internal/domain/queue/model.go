package queue

import (
	"time"

	"github.com/google/uuid"
)

// Token maps to the queue_tokens table. Numbers restart at 1 for each doctor
// each day.
type Token struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctor_id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	Date        time.Time `db:"date" json:"date"`
	TokenNumber int       `db:"token_number" json:"token_number"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Token statuses.
const (
	StatusWaiting   = "waiting"
	StatusCalled    = "called"
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
)

var validTransitions = map[string][]string{
	StatusWaiting: {StatusCalled, StatusSkipped},
	StatusCalled:  {StatusCompleted, StatusSkipped},
}

// CanTransition reports whether a token may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Board is the live queue view for one doctor on one day.
type Board struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     string    `json:"date"`
	Current  *Token    `json:"current,omitempty"`
	Waiting  []*Token  `json:"waiting"`
	Served   int       `json:"served"`
}
