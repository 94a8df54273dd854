package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/hms/internal/domain/appointment"
	"github.com/carebridge/hms/internal/domain/queue"
)

const basePrompt = `You are CareBridge, the hospital's virtual assistant. You help patients
find doctors, check appointment availability, book and cancel appointments,
and look up medicines in the pharmacy.

Rules:
- Use the provided tools for any live hospital data. Never invent doctors,
  slots, appointments or prices.
- Appointments run in half-hour slots between 09:00-12:00 and 14:00-17:00.
- If a tool reports an error, tell the user plainly what went wrong. Do not
  retry on your own.
- You are not a doctor. For medical questions, suggest the right
  specialization and offer to book an appointment. In an emergency tell the
  user to call the emergency line immediately.

When an action the user can tap would help, emit an action marker on its own
inside your reply using exactly this syntax:
  [ACTION:<label>|<tag>|<json>]
where <label> is the button text, <tag> is one of book_appointment or
get_available_slots, and <json> is the tool argument object. Escape any
literal | as \| and ] as \] inside the segments.`

// buildSystemPrompt assembles the per-request system message: standing
// instructions, today's date and a fresh snapshot of the hospital state.
// The snapshot is rebuilt on every request, never cached.
func (s *Service) buildSystemPrompt(ctx context.Context, patientID uuid.UUID, now time.Time) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	fmt.Fprintf(&b, "\n\nToday is %s.", now.Format("Monday, 2 January 2006"))

	s.writeDoctorSnapshot(ctx, &b, now)

	if patientID == uuid.Nil {
		b.WriteString("\nNo patient record is linked to this account; booking tools are unavailable.")
		return b.String()
	}

	s.writePatientSnapshot(ctx, &b, patientID, now)
	return b.String()
}

// writeDoctorSnapshot appends a plain-text table of doctors with their free
// slots for today.
func (s *Service) writeDoctorSnapshot(ctx context.Context, b *strings.Builder, now time.Time) {
	doctors, _, err := s.tools.doctors.Search(ctx, map[string]string{"available": "true"}, 20, 0)
	if err != nil || len(doctors) == 0 {
		return
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	b.WriteString("\n\nDoctors on duty today (id | name | specialization | free slots | next free):")
	for _, d := range doctors {
		free, err := s.tools.appointments.AvailableSlots(ctx, d.ID, today)
		if err != nil {
			continue
		}
		next := "none"
		if len(free) > 0 {
			next = free[0]
		}
		fmt.Fprintf(b, "\n%s | %s | %s | %d | %s", d.ID, d.Name, d.Specialization, len(free), next)
	}
}

// writePatientSnapshot appends the linked patient record, their upcoming
// appointments and any live queue tokens for today.
func (s *Service) writePatientSnapshot(ctx context.Context, b *strings.Builder, patientID uuid.UUID, now time.Time) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return
	}

	fmt.Fprintf(b, "\n\nYou are speaking with %s.", p.Name)
	if age := p.Age(now); age >= 0 {
		fmt.Fprintf(b, " Age: %d.", age)
	}
	if p.BloodGroup != nil {
		fmt.Fprintf(b, " Blood group: %s.", *p.BloodGroup)
	}
	if p.MedicalHistory != nil && *p.MedicalHistory != "" {
		fmt.Fprintf(b, "\nMedical history on file: %s", *p.MedicalHistory)
	}

	if appts, _, err := s.tools.appointments.ListByPatient(ctx, patientID, 10, 0); err == nil && len(appts) > 0 {
		b.WriteString("\nUpcoming appointments (doctor_id | date | time | status):")
		for _, a := range appts {
			if !appointment.Blocking(a.Status) {
				continue
			}
			fmt.Fprintf(b, "\n%s | %s | %s | %s", a.DoctorID, a.Date.Format("2006-01-02"), a.TimeSlot, a.Status)
		}
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if tokens, err := s.queue.ListByPatientDate(ctx, patientID, today); err == nil && len(tokens) > 0 {
		b.WriteString("\nQueue tokens today (doctor_id | token | status):")
		for _, t := range tokens {
			if t.Status != queue.StatusWaiting && t.Status != queue.StatusCalled {
				continue
			}
			fmt.Fprintf(b, "\n%s | %d | %s", t.DoctorID, t.TokenNumber, t.Status)
		}
	}
}
