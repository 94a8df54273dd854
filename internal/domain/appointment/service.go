package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/hms/internal/domain/doctor"
	"github.com/carebridge/hms/internal/domain/patient"
	"github.com/carebridge/hms/internal/platform/notification"
)

type Service struct {
	appointments Repository
	patients     patient.Repository
	doctors      doctor.Repository
	notifier     *notification.Manager
}

func NewService(appts Repository, patients patient.Repository, doctors doctor.Repository, notifier *notification.Manager) *Service {
	return &Service{appointments: appts, patients: patients, doctors: doctors, notifier: notifier}
}

// Book creates an appointment on the slot grid. The slot must be free for the
// doctor on that day; a concurrent booking of the same slot loses with
// ErrSlotTaken.
func (s *Service) Book(ctx context.Context, a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if a.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if !ValidSlot(a.TimeSlot) {
		return fmt.Errorf("invalid time slot: %s", a.TimeSlot)
	}
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if a.Status != StatusScheduled {
		return fmt.Errorf("new appointments must start as %s", StatusScheduled)
	}

	p, err := s.patients.GetByID(ctx, a.PatientID)
	if err != nil {
		return fmt.Errorf("patient not found")
	}
	d, err := s.doctors.GetByID(ctx, a.DoctorID)
	if err != nil {
		return fmt.Errorf("doctor not found")
	}

	if err := s.appointments.Create(ctx, a); err != nil {
		return err
	}

	s.notifier.Notify("appointment-booked", map[string]string{
		"patient_name": p.Name,
		"doctor_name":  d.Name,
		"date":         a.Date.Format("2006-01-02"),
		"time":         a.TimeSlot,
	}, p.Email)
	return nil
}

// AvailableSlots returns the grid slots not held by an active appointment for
// the doctor on the given day, in grid order.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	if _, err := s.doctors.GetByID(ctx, doctorID); err != nil {
		return nil, fmt.Errorf("doctor not found")
	}
	booked, err := s.appointments.BookedSlots(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(booked))
	for _, b := range booked {
		taken[b] = true
	}
	available := make([]string, 0, len(SlotGrid))
	for _, slot := range SlotGrid {
		if !taken[slot] {
			available = append(available, slot)
		}
	}
	return available, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

// UpdateStatus moves an appointment through its status state machine and
// notifies the patient.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("appointment not found")
	}
	if !CanTransition(a.Status, status) {
		return nil, fmt.Errorf("cannot change status from %s to %s", a.Status, status)
	}

	a.Status = status
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, err
	}

	if p, perr := s.patients.GetByID(ctx, a.PatientID); perr == nil {
		doctorName := ""
		if d, derr := s.doctors.GetByID(ctx, a.DoctorID); derr == nil {
			doctorName = d.Name
		}
		s.notifier.Notify("appointment-status", map[string]string{
			"patient_name": p.Name,
			"doctor_name":  doctorName,
			"date":         a.Date.Format("2006-01-02"),
			"time":         a.TimeSlot,
			"status":       status,
		}, p.Email)
	}
	return a, nil
}

// Reschedule moves an active appointment to a new date and slot.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, date time.Time, timeSlot string) (*Appointment, error) {
	if !ValidSlot(timeSlot) {
		return nil, fmt.Errorf("invalid time slot: %s", timeSlot)
	}
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("appointment not found")
	}
	if !Blocking(a.Status) {
		return nil, fmt.Errorf("cannot reschedule a %s appointment", a.Status)
	}

	a.Date = date
	a.TimeSlot = timeSlot
	if err := s.appointments.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.appointments.Delete(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, date *time.Time, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByDoctor(ctx, doctorID, date, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.Search(ctx, params, limit, offset)
}
