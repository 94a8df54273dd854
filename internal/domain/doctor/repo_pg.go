package doctor

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const doctorCols = `id, name, email, specialization, phone, room_number, available,
	created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Email, &d.Specialization, &d.Phone,
		&d.RoomNumber, &d.Available, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *repoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO doctors (id, name, email, specialization, phone, room_number, available)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.Name, d.Email, d.Specialization, d.Phone, d.RoomNumber, d.Available)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(r.pool.QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, d *Doctor) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE doctors SET name=$2, email=$3, specialization=$4, phone=$5,
			room_number=$6, available=$7, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Name, d.Email, d.Specialization, d.Phone, d.RoomNumber, d.Available)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM doctors WHERE id = $1`, id)
	return err
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Doctor, int, error) {
	query := `SELECT ` + doctorCols + ` FROM doctors WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM doctors WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["name"]; ok {
		query += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		args = append(args, "%"+p+"%")
		idx++
	}
	if p, ok := params["specialization"]; ok {
		query += fmt.Sprintf(` AND specialization ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND specialization ILIKE $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["available"]; ok {
		query += fmt.Sprintf(` AND available = $%d`, idx)
		countQuery += fmt.Sprintf(` AND available = $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, nil
}

func (r *repoPG) ListSpecializations(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT specialization FROM doctors ORDER BY specialization`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var specs []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}
