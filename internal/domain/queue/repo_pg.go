package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const tokenCols = `id, doctor_id, patient_id, date, token_number, status, created_at, updated_at`

func scanToken(row pgx.Row) (*Token, error) {
	var t Token
	err := row.Scan(&t.ID, &t.DoctorID, &t.PatientID, &t.Date, &t.TokenNumber,
		&t.Status, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *repoPG) Create(ctx context.Context, t *Token) error {
	t.ID = uuid.New()
	// The number is assigned inside the INSERT so concurrent check-ins for
	// the same doctor and day cannot race to the same token.
	return r.pool.QueryRow(ctx, `
		INSERT INTO queue_tokens (id, doctor_id, patient_id, date, token_number, status)
		VALUES ($1, $2, $3, $4,
			(SELECT COALESCE(MAX(token_number), 0) + 1 FROM queue_tokens
			 WHERE doctor_id = $2 AND date = $4),
			$5)
		RETURNING token_number`,
		t.ID, t.DoctorID, t.PatientID, t.Date, t.Status).Scan(&t.TokenNumber)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Token, error) {
	return scanToken(r.pool.QueryRow(ctx, `SELECT `+tokenCols+` FROM queue_tokens WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, t *Token) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE queue_tokens SET status=$2, updated_at=NOW() WHERE id = $1`,
		t.ID, t.Status)
	return err
}

func (r *repoPG) ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Token, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+tokenCols+` FROM queue_tokens
		WHERE doctor_id = $1 AND date = $2 ORDER BY token_number`,
		doctorID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, nil
}

func (r *repoPG) ListByPatientDate(ctx context.Context, patientID uuid.UUID, date time.Time) ([]*Token, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+tokenCols+` FROM queue_tokens
		WHERE patient_id = $1 AND date = $2 ORDER BY token_number`,
		patientID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Token
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, nil
}

func (r *repoPG) NextWaiting(ctx context.Context, doctorID uuid.UUID, date time.Time) (*Token, error) {
	t, err := scanToken(r.pool.QueryRow(ctx, `SELECT `+tokenCols+` FROM queue_tokens
		WHERE doctor_id = $1 AND date = $2 AND status = $3
		ORDER BY token_number LIMIT 1`,
		doctorID, date, StatusWaiting))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

func (r *repoPG) CurrentCalled(ctx context.Context, doctorID uuid.UUID, date time.Time) (*Token, error) {
	t, err := scanToken(r.pool.QueryRow(ctx, `SELECT `+tokenCols+` FROM queue_tokens
		WHERE doctor_id = $1 AND date = $2 AND status = $3
		ORDER BY token_number LIMIT 1`,
		doctorID, date, StatusCalled))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return t, err
}
