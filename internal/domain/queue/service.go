package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/hms/internal/domain/doctor"
	"github.com/carebridge/hms/internal/domain/patient"
	"github.com/carebridge/hms/internal/platform/notification"
)

type Service struct {
	tokens   Repository
	patients patient.Repository
	doctors  doctor.Repository
	notifier *notification.Manager
}

func NewService(tokens Repository, patients patient.Repository, doctors doctor.Repository, notifier *notification.Manager) *Service {
	return &Service{tokens: tokens, patients: patients, doctors: doctors, notifier: notifier}
}

// CheckIn issues the next token for the doctor's queue today.
func (s *Service) CheckIn(ctx context.Context, doctorID, patientID uuid.UUID, date time.Time) (*Token, error) {
	if _, err := s.doctors.GetByID(ctx, doctorID); err != nil {
		return nil, fmt.Errorf("doctor not found")
	}
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, fmt.Errorf("patient not found")
	}

	t := &Token{
		DoctorID:  doctorID,
		PatientID: patientID,
		Date:      date,
		Status:    StatusWaiting,
	}
	if err := s.tokens.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// CallNext completes the currently called token, if any, and calls the
// lowest-numbered waiting one. Returns nil when the queue is empty.
func (s *Service) CallNext(ctx context.Context, doctorID uuid.UUID, date time.Time) (*Token, error) {
	current, err := s.tokens.CurrentCalled(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	if current != nil {
		current.Status = StatusCompleted
		if err := s.tokens.Update(ctx, current); err != nil {
			return nil, err
		}
	}

	next, err := s.tokens.NextWaiting(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, nil
	}

	next.Status = StatusCalled
	if err := s.tokens.Update(ctx, next); err != nil {
		return nil, err
	}

	if p, perr := s.patients.GetByID(ctx, next.PatientID); perr == nil {
		doctorName := ""
		if d, derr := s.doctors.GetByID(ctx, doctorID); derr == nil {
			doctorName = d.Name
		}
		s.notifier.Notify("queue-called", map[string]string{
			"patient_name": p.Name,
			"doctor_name":  doctorName,
			"token_number": strconv.Itoa(next.TokenNumber),
		}, p.Email)
	}
	return next, nil
}

// UpdateStatus moves a token through its state machine.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Token, error) {
	t, err := s.tokens.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("token not found")
	}
	if !CanTransition(t.Status, status) {
		return nil, fmt.Errorf("cannot change status from %s to %s", t.Status, status)
	}
	t.Status = status
	if err := s.tokens.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Board assembles the live queue view for a doctor's day.
func (s *Service) Board(ctx context.Context, doctorID uuid.UUID, date time.Time) (*Board, error) {
	tokens, err := s.tokens.ListByDoctorDate(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}

	board := &Board{
		DoctorID: doctorID,
		Date:     date.Format("2006-01-02"),
		Waiting:  []*Token{},
	}
	for _, t := range tokens {
		switch t.Status {
		case StatusCalled:
			board.Current = t
		case StatusWaiting:
			board.Waiting = append(board.Waiting, t)
		case StatusCompleted:
			board.Served++
		}
	}
	return board, nil
}
