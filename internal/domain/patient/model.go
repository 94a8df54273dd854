package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patients table.
type Patient struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	Email          string     `db:"email" json:"email"`
	Phone          *string    `db:"phone" json:"phone,omitempty"`
	DateOfBirth    *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender         *string    `db:"gender" json:"gender,omitempty"`
	Address        *string    `db:"address" json:"address,omitempty"`
	BloodGroup     *string    `db:"blood_group" json:"blood_group,omitempty"`
	MedicalHistory *string    `db:"medical_history" json:"medical_history,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Age returns the patient's age in whole years, or -1 when the date of
// birth is unknown.
func (p *Patient) Age(now time.Time) int {
	if p.DateOfBirth == nil {
		return -1
	}
	dob := *p.DateOfBirth
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}
