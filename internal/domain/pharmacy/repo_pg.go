package pharmacy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// =========== Medicine Repository ===========

type medicineRepoPG struct{ pool *pgxpool.Pool }

func NewMedicineRepoPG(pool *pgxpool.Pool) MedicineRepository { return &medicineRepoPG{pool: pool} }

const medicineCols = `id, name, manufacturer, category, price, stock, expiry_date,
	created_at, updated_at`

func scanMedicine(row pgx.Row) (*Medicine, error) {
	var m Medicine
	err := row.Scan(&m.ID, &m.Name, &m.Manufacturer, &m.Category, &m.Price, &m.Stock,
		&m.ExpiryDate, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func (r *medicineRepoPG) Create(ctx context.Context, m *Medicine) error {
	m.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO medicines (id, name, manufacturer, category, price, stock, expiry_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ID, m.Name, m.Manufacturer, m.Category, m.Price, m.Stock, m.ExpiryDate)
	return err
}

func (r *medicineRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medicine, error) {
	return scanMedicine(r.pool.QueryRow(ctx, `SELECT `+medicineCols+` FROM medicines WHERE id = $1`, id))
}

func (r *medicineRepoPG) Update(ctx context.Context, m *Medicine) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE medicines SET name=$2, manufacturer=$3, category=$4, price=$5, stock=$6,
			expiry_date=$7, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.Name, m.Manufacturer, m.Category, m.Price, m.Stock, m.ExpiryDate)
	return err
}

func (r *medicineRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM medicines WHERE id = $1`, id)
	return err
}

func (r *medicineRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Medicine, int, error) {
	query := `SELECT ` + medicineCols + ` FROM medicines WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM medicines WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["name"]; ok {
		query += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		args = append(args, "%"+p+"%")
		idx++
	}
	if p, ok := params["category"]; ok {
		query += fmt.Sprintf(` AND category = $%d`, idx)
		countQuery += fmt.Sprintf(` AND category = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["max_stock"]; ok {
		query += fmt.Sprintf(` AND stock <= $%d`, idx)
		countQuery += fmt.Sprintf(` AND stock <= $%d`, idx)
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
	var items []*Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, nil
}

func (r *medicineRepoPG) DecrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE medicines SET stock = stock - $2, updated_at=NOW()
		WHERE id = $1 AND stock >= $2`, id, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *medicineRepoPG) IncrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE medicines SET stock = stock + $2, updated_at=NOW() WHERE id = $1`, id, qty)
	return err
}

// =========== Order Repository ===========

type orderRepoPG struct{ pool *pgxpool.Pool }

func NewOrderRepoPG(pool *pgxpool.Pool) OrderRepository { return &orderRepoPG{pool: pool} }

const orderCols = `id, patient_id, status, total, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.PatientID, &o.Status, &o.Total, &o.CreatedAt, &o.UpdatedAt)
	return &o, err
}

func (r *orderRepoPG) Create(ctx context.Context, o *Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	o.ID = uuid.New()
	if _, err := tx.Exec(ctx, `
		INSERT INTO pharmacy_orders (id, patient_id, status, total)
		VALUES ($1,$2,$3,$4)`,
		o.ID, o.PatientID, o.Status, o.Total); err != nil {
		return err
	}

	for _, item := range o.Items {
		item.ID = uuid.New()
		item.OrderID = o.ID
		if _, err := tx.Exec(ctx, `
			INSERT INTO pharmacy_order_items (id, order_id, medicine_id, quantity, unit_price)
			VALUES ($1,$2,$3,$4,$5)`,
			item.ID, item.OrderID, item.MedicineID, item.Quantity, item.UnitPrice); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *orderRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderCols+` FROM pharmacy_orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, medicine_id, quantity, unit_price
		FROM pharmacy_order_items WHERE order_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MedicineID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, &item)
	}
	return o, nil
}

func (r *orderRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE pharmacy_orders SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	return err
}

func (r *orderRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pharmacy_orders WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+orderCols+` FROM pharmacy_orders
		WHERE patient_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, nil
}
