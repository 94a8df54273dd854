package doctor

import (
	"time"

	"github.com/google/uuid"
)

// Doctor maps to the doctors table.
type Doctor struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	Specialization string    `db:"specialization" json:"specialization"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	RoomNumber     *string   `db:"room_number" json:"room_number,omitempty"`
	Available      bool      `db:"available" json:"available"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
