package patient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*Patient, error) {
	for _, p := range m.patients {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.patients, id)
	return nil
}

func (m *mockRepo) Search(_ context.Context, _ map[string]string, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		result = append(result, p)
	}
	return result, len(result), nil
}

func strPtr(s string) *string { return &s }

func TestCreatePatient(t *testing.T) {
	svc := NewService(newMockRepo())

	p := &Patient{Name: "Asha Rao", Email: "asha@example.com", Gender: strPtr("female")}
	if err := svc.Create(context.Background(), p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected assigned ID")
	}
}

func TestCreatePatientValidation(t *testing.T) {
	svc := NewService(newMockRepo())

	cases := []struct {
		name    string
		patient Patient
	}{
		{"missing name", Patient{Email: "a@example.com"}},
		{"bad email", Patient{Name: "A", Email: "not-an-email"}},
		{"bad gender", Patient{Name: "A", Email: "a@example.com", Gender: strPtr("robot")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.patient
			if err := svc.Create(context.Background(), &p); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestGetByEmail(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p := &Patient{Name: "Asha", Email: "asha@example.com"}
	_ = svc.Create(context.Background(), p)

	got, err := svc.GetByEmail(context.Background(), "asha@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != p.ID {
		t.Error("wrong patient returned")
	}
}

func TestPatientAge(t *testing.T) {
	now := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	dob := time.Date(1990, 9, 15, 0, 0, 0, 0, time.UTC)
	p := &Patient{DateOfBirth: &dob}
	if got := p.Age(now); got != 35 {
		t.Errorf("expected 35 before birthday, got %d", got)
	}

	dob = time.Date(1990, 8, 1, 0, 0, 0, 0, time.UTC)
	p = &Patient{DateOfBirth: &dob}
	if got := p.Age(now); got != 36 {
		t.Errorf("expected 36 after birthday, got %d", got)
	}

	p = &Patient{}
	if got := p.Age(now); got != -1 {
		t.Errorf("expected -1 without date of birth, got %d", got)
	}
}
