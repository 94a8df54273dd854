package queue

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carebridge/hms/internal/domain/doctor"
	"github.com/carebridge/hms/internal/domain/patient"
	"github.com/carebridge/hms/internal/platform/notification"
)

type mockTokenRepo struct {
	tokens map[uuid.UUID]*Token
}

func newMockTokenRepo() *mockTokenRepo {
	return &mockTokenRepo{tokens: make(map[uuid.UUID]*Token)}
}

func (m *mockTokenRepo) Create(_ context.Context, t *Token) error {
	t.ID = uuid.New()
	max := 0
	for _, other := range m.tokens {
		if other.DoctorID == t.DoctorID && other.Date.Equal(t.Date) && other.TokenNumber > max {
			max = other.TokenNumber
		}
	}
	t.TokenNumber = max + 1
	t.CreatedAt = time.Now()
	t.UpdatedAt = time.Now()
	m.tokens[t.ID] = t
	return nil
}

func (m *mockTokenRepo) GetByID(_ context.Context, id uuid.UUID) (*Token, error) {
	t, ok := m.tokens[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return t, nil
}

func (m *mockTokenRepo) Update(_ context.Context, t *Token) error {
	m.tokens[t.ID] = t
	return nil
}

func (m *mockTokenRepo) ListByDoctorDate(_ context.Context, doctorID uuid.UUID, date time.Time) ([]*Token, error) {
	var result []*Token
	for _, t := range m.tokens {
		if t.DoctorID == doctorID && t.Date.Equal(date) {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TokenNumber < result[j].TokenNumber })
	return result, nil
}

func (m *mockTokenRepo) ListByPatientDate(_ context.Context, patientID uuid.UUID, date time.Time) ([]*Token, error) {
	var result []*Token
	for _, t := range m.tokens {
		if t.PatientID == patientID && t.Date.Equal(date) {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TokenNumber < result[j].TokenNumber })
	return result, nil
}

func (m *mockTokenRepo) byStatus(doctorID uuid.UUID, date time.Time, status string) *Token {
	var best *Token
	for _, t := range m.tokens {
		if t.DoctorID == doctorID && t.Date.Equal(date) && t.Status == status {
			if best == nil || t.TokenNumber < best.TokenNumber {
				best = t
			}
		}
	}
	return best
}

func (m *mockTokenRepo) NextWaiting(_ context.Context, doctorID uuid.UUID, date time.Time) (*Token, error) {
	return m.byStatus(doctorID, date, StatusWaiting), nil
}

func (m *mockTokenRepo) CurrentCalled(_ context.Context, doctorID uuid.UUID, date time.Time) (*Token, error) {
	return m.byStatus(doctorID, date, StatusCalled), nil
}

type stubPatientRepo struct {
	patients map[uuid.UUID]*patient.Patient
}

func (m *stubPatientRepo) Create(_ context.Context, p *patient.Patient) error {
	p.ID = uuid.New()
	m.patients[p.ID] = p
	return nil
}
func (m *stubPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}
func (m *stubPatientRepo) GetByEmail(_ context.Context, _ string) (*patient.Patient, error) {
	return nil, fmt.Errorf("not found")
}
func (m *stubPatientRepo) Update(_ context.Context, _ *patient.Patient) error { return nil }
func (m *stubPatientRepo) Delete(_ context.Context, _ uuid.UUID) error        { return nil }
func (m *stubPatientRepo) Search(_ context.Context, _ map[string]string, _, _ int) ([]*patient.Patient, int, error) {
	return nil, 0, nil
}

type stubDoctorRepo struct {
	doctors map[uuid.UUID]*doctor.Doctor
}

func (m *stubDoctorRepo) Create(_ context.Context, d *doctor.Doctor) error {
	d.ID = uuid.New()
	m.doctors[d.ID] = d
	return nil
}
func (m *stubDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return d, nil
}
func (m *stubDoctorRepo) Update(_ context.Context, _ *doctor.Doctor) error { return nil }
func (m *stubDoctorRepo) Delete(_ context.Context, _ uuid.UUID) error      { return nil }
func (m *stubDoctorRepo) Search(_ context.Context, _ map[string]string, _, _ int) ([]*doctor.Doctor, int, error) {
	return nil, 0, nil
}
func (m *stubDoctorRepo) ListSpecializations(_ context.Context) ([]string, error) {
	return nil, nil
}

type fixture struct {
	svc       *Service
	doctorID  uuid.UUID
	patientID uuid.UUID
	date      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	patients := &stubPatientRepo{patients: make(map[uuid.UUID]*patient.Patient)}
	doctors := &stubDoctorRepo{doctors: make(map[uuid.UUID]*doctor.Doctor)}

	p := &patient.Patient{Name: "Asha", Email: "asha@example.com"}
	_ = patients.Create(context.Background(), p)
	d := &doctor.Doctor{Name: "Menon", Email: "m@example.com", Specialization: "ENT"}
	_ = doctors.Create(context.Background(), d)

	notifier := notification.NewManager(&notification.MockEmailSender{}, notification.NewTemplateEngine(), zerolog.Nop())
	return &fixture{
		svc:       NewService(newMockTokenRepo(), patients, doctors, notifier),
		doctorID:  d.ID,
		patientID: p.ID,
		date:      time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestCheckInAssignsSequentialTokens(t *testing.T) {
	f := newFixture(t)

	for want := 1; want <= 3; want++ {
		tok, err := f.svc.CheckIn(context.Background(), f.doctorID, f.patientID, f.date)
		if err != nil {
			t.Fatalf("check-in: %v", err)
		}
		if tok.TokenNumber != want {
			t.Errorf("expected token %d, got %d", want, tok.TokenNumber)
		}
		if tok.Status != StatusWaiting {
			t.Errorf("expected waiting, got %s", tok.Status)
		}
	}
}

func TestCheckInUnknownDoctor(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.CheckIn(context.Background(), uuid.New(), f.patientID, f.date); err == nil {
		t.Fatal("expected error for unknown doctor")
	}
}

func TestCallNextAdvancesQueue(t *testing.T) {
	f := newFixture(t)
	_, _ = f.svc.CheckIn(context.Background(), f.doctorID, f.patientID, f.date)
	_, _ = f.svc.CheckIn(context.Background(), f.doctorID, f.patientID, f.date)

	first, err := f.svc.CallNext(context.Background(), f.doctorID, f.date)
	if err != nil {
		t.Fatalf("call next: %v", err)
	}
	if first.TokenNumber != 1 || first.Status != StatusCalled {
		t.Errorf("unexpected first token: %+v", first)
	}

	second, err := f.svc.CallNext(context.Background(), f.doctorID, f.date)
	if err != nil {
		t.Fatalf("call next: %v", err)
	}
	if second.TokenNumber != 2 {
		t.Errorf("expected token 2, got %d", second.TokenNumber)
	}

	// Calling again on an empty queue completes the current token and
	// returns nil.
	third, err := f.svc.CallNext(context.Background(), f.doctorID, f.date)
	if err != nil {
		t.Fatalf("call next: %v", err)
	}
	if third != nil {
		t.Errorf("expected nil on empty queue, got %+v", third)
	}
}

func TestBoard(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		_, _ = f.svc.CheckIn(context.Background(), f.doctorID, f.patientID, f.date)
	}
	_, _ = f.svc.CallNext(context.Background(), f.doctorID, f.date)
	_, _ = f.svc.CallNext(context.Background(), f.doctorID, f.date)

	board, err := f.svc.Board(context.Background(), f.doctorID, f.date)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if board.Current == nil || board.Current.TokenNumber != 2 {
		t.Errorf("unexpected current token: %+v", board.Current)
	}
	if len(board.Waiting) != 1 || board.Waiting[0].TokenNumber != 3 {
		t.Errorf("unexpected waiting list: %+v", board.Waiting)
	}
	if board.Served != 1 {
		t.Errorf("expected 1 served, got %d", board.Served)
	}
}

func TestSkipToken(t *testing.T) {
	f := newFixture(t)
	tok, _ := f.svc.CheckIn(context.Background(), f.doctorID, f.patientID, f.date)

	got, err := f.svc.UpdateStatus(context.Background(), tok.ID, StatusSkipped)
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if got.Status != StatusSkipped {
		t.Errorf("expected skipped, got %s", got.Status)
	}

	// A skipped token cannot be completed.
	if _, err := f.svc.UpdateStatus(context.Background(), tok.ID, StatusCompleted); err == nil {
		t.Fatal("expected error completing a skipped token")
	}
}
