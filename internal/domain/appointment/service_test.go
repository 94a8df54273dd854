package appointment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carebridge/hms/internal/domain/doctor"
	"github.com/carebridge/hms/internal/domain/patient"
	"github.com/carebridge/hms/internal/platform/notification"
)

// -- Mock Repositories --

type mockApptRepo struct {
	appts map[uuid.UUID]*Appointment
}

func newMockApptRepo() *mockApptRepo {
	return &mockApptRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockApptRepo) slotHeld(a *Appointment) bool {
	for _, other := range m.appts {
		if other.ID != a.ID && other.DoctorID == a.DoctorID &&
			other.Date.Equal(a.Date) && other.TimeSlot == a.TimeSlot && Blocking(other.Status) {
			return true
		}
	}
	return false
}

func (m *mockApptRepo) Create(_ context.Context, a *Appointment) error {
	if m.slotHeld(a) {
		return ErrSlotTaken
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	m.appts[a.ID] = a
	return nil
}

func (m *mockApptRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return a, nil
}

func (m *mockApptRepo) Update(_ context.Context, a *Appointment) error {
	if Blocking(a.Status) && m.slotHeld(a) {
		return ErrSlotTaken
	}
	m.appts[a.ID] = a
	return nil
}

func (m *mockApptRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.appts, id)
	return nil
}

func (m *mockApptRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appts {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockApptRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, date *time.Time, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appts {
		if a.DoctorID != doctorID {
			continue
		}
		if date != nil && !a.Date.Equal(*date) {
			continue
		}
		result = append(result, a)
	}
	return result, len(result), nil
}

func (m *mockApptRepo) BookedSlots(_ context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	var slots []string
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.Date.Equal(date) && Blocking(a.Status) {
			slots = append(slots, a.TimeSlot)
		}
	}
	return slots, nil
}

func (m *mockApptRepo) Search(_ context.Context, _ map[string]string, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appts {
		result = append(result, a)
	}
	return result, len(result), nil
}

type mockPatientRepo struct {
	patients map[uuid.UUID]*patient.Patient
}

func (m *mockPatientRepo) Create(_ context.Context, p *patient.Patient) error {
	p.ID = uuid.New()
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

func (m *mockPatientRepo) GetByEmail(_ context.Context, email string) (*patient.Patient, error) {
	for _, p := range m.patients {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockPatientRepo) Update(_ context.Context, p *patient.Patient) error { return nil }
func (m *mockPatientRepo) Delete(_ context.Context, id uuid.UUID) error      { return nil }
func (m *mockPatientRepo) Search(_ context.Context, _ map[string]string, limit, offset int) ([]*patient.Patient, int, error) {
	return nil, 0, nil
}

type mockDoctorRepo struct {
	doctors map[uuid.UUID]*doctor.Doctor
}

func (m *mockDoctorRepo) Create(_ context.Context, d *doctor.Doctor) error {
	d.ID = uuid.New()
	m.doctors[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return d, nil
}

func (m *mockDoctorRepo) Update(_ context.Context, d *doctor.Doctor) error { return nil }
func (m *mockDoctorRepo) Delete(_ context.Context, id uuid.UUID) error     { return nil }
func (m *mockDoctorRepo) Search(_ context.Context, _ map[string]string, limit, offset int) ([]*doctor.Doctor, int, error) {
	return nil, 0, nil
}
func (m *mockDoctorRepo) ListSpecializations(_ context.Context) ([]string, error) {
	return nil, nil
}

// -- Fixtures --

type fixture struct {
	svc       *Service
	repo      *mockApptRepo
	patientID uuid.UUID
	doctorID  uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMockApptRepo()
	patients := &mockPatientRepo{patients: make(map[uuid.UUID]*patient.Patient)}
	doctors := &mockDoctorRepo{doctors: make(map[uuid.UUID]*doctor.Doctor)}

	p := &patient.Patient{Name: "Asha", Email: "asha@example.com"}
	_ = patients.Create(context.Background(), p)
	d := &doctor.Doctor{Name: "Menon", Email: "menon@example.com", Specialization: "Cardiology"}
	_ = doctors.Create(context.Background(), d)

	notifier := notification.NewManager(&notification.MockEmailSender{}, notification.NewTemplateEngine(), zerolog.Nop())
	return &fixture{
		svc:       NewService(repo, patients, doctors, notifier),
		repo:      repo,
		patientID: p.ID,
		doctorID:  d.ID,
	}
}

var testDate = time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)

func (f *fixture) book(t *testing.T, slot string) *Appointment {
	t.Helper()
	a := &Appointment{PatientID: f.patientID, DoctorID: f.doctorID, Date: testDate, TimeSlot: slot}
	if err := f.svc.Book(context.Background(), a); err != nil {
		t.Fatalf("book %s: %v", slot, err)
	}
	return a
}

// -- Tests --

func TestBookAppointment(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "09:30")
	if a.Status != StatusScheduled {
		t.Errorf("expected scheduled, got %s", a.Status)
	}
}

func TestBookRejectsOffGridSlot(t *testing.T) {
	f := newFixture(t)
	a := &Appointment{PatientID: f.patientID, DoctorID: f.doctorID, Date: testDate, TimeSlot: "13:00"}
	if err := f.svc.Book(context.Background(), a); err == nil {
		t.Fatal("expected error for off-grid slot")
	}
}

func TestBookRejectsUnknownDoctor(t *testing.T) {
	f := newFixture(t)
	a := &Appointment{PatientID: f.patientID, DoctorID: uuid.New(), Date: testDate, TimeSlot: "09:00"}
	if err := f.svc.Book(context.Background(), a); err == nil {
		t.Fatal("expected error for unknown doctor")
	}
}

func TestDoubleBookingRejected(t *testing.T) {
	f := newFixture(t)
	f.book(t, "10:00")

	dup := &Appointment{PatientID: f.patientID, DoctorID: f.doctorID, Date: testDate, TimeSlot: "10:00"}
	err := f.svc.Book(context.Background(), dup)
	if err != ErrSlotTaken {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}

func TestCancelledSlotRebookable(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "10:30")

	if _, err := f.svc.UpdateStatus(context.Background(), a.ID, StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	f.book(t, "10:30")
}

func TestAvailableSlots(t *testing.T) {
	f := newFixture(t)
	f.book(t, "09:00")
	f.book(t, "14:30")

	slots, err := f.svc.AvailableSlots(context.Background(), f.doctorID, testDate)
	if err != nil {
		t.Fatalf("available slots: %v", err)
	}
	if len(slots) != 12 {
		t.Errorf("expected 12 free slots, got %d", len(slots))
	}
	for _, s := range slots {
		if s == "09:00" || s == "14:30" {
			t.Errorf("booked slot %s reported available", s)
		}
	}
	// Grid order is preserved.
	if slots[0] != "09:30" {
		t.Errorf("expected 09:30 first, got %s", slots[0])
	}
}

func TestAvailableSlotsShrinkAfterBooking(t *testing.T) {
	f := newFixture(t)

	before, err := f.svc.AvailableSlots(context.Background(), f.doctorID, testDate)
	if err != nil {
		t.Fatalf("available slots: %v", err)
	}
	if len(before) != len(SlotGrid) {
		t.Fatalf("expected full grid free, got %d", len(before))
	}

	f.book(t, before[0])

	after, err := f.svc.AvailableSlots(context.Background(), f.doctorID, testDate)
	if err != nil {
		t.Fatalf("available slots: %v", err)
	}
	if len(after) != len(before)-1 {
		t.Errorf("expected %d slots after booking, got %d", len(before)-1, len(after))
	}
	for _, s := range after {
		if s == before[0] {
			t.Errorf("booked slot %s still reported free", s)
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "11:00")

	if _, err := f.svc.UpdateStatus(context.Background(), a.ID, StatusConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), a.ID, StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.svc.UpdateStatus(context.Background(), a.ID, StatusScheduled); err == nil {
		t.Fatal("expected error reopening a completed appointment")
	}
}

func TestReschedule(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "09:00")

	got, err := f.svc.Reschedule(context.Background(), a.ID, testDate, "16:00")
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if got.TimeSlot != "16:00" {
		t.Errorf("expected 16:00, got %s", got.TimeSlot)
	}

	if _, err := f.svc.Reschedule(context.Background(), a.ID, testDate, "13:13"); err == nil {
		t.Fatal("expected error for off-grid slot")
	}
}

func TestRescheduleTerminalRejected(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, "09:00")
	_, _ = f.svc.UpdateStatus(context.Background(), a.ID, StatusCancelled)

	if _, err := f.svc.Reschedule(context.Background(), a.ID, testDate, "09:30"); err == nil {
		t.Fatal("expected error rescheduling a cancelled appointment")
	}
}
