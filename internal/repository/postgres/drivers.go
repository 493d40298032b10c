package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/edrive/ride-hailing/internal/domain/driver"
)

// DriverRepository implements driver.Repository
type DriverRepository struct {
	db *sql.DB
}

func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{db: db}
}

const driverColumns = `id, name, phone, category, vehicle_model, vehicle_number, status,
	needs_manual_review, documents, created_at, updated_at`

func scanDriver(row scanner) (*driver.Driver, error) {
	var (
		d    driver.Driver
		docs []byte
	)
	err := row.Scan(&d.ID, &d.Name, &d.Phone, &d.Category, &d.VehicleModel, &d.VehicleNumber, &d.Status,
		&d.NeedsManualReview, &docs, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(docs) > 0 {
		if err := json.Unmarshal(docs, &d.Documents); err != nil {
			return nil, fmt.Errorf("decode driver documents: %w", err)
		}
	}
	return &d, nil
}

func (r *DriverRepository) Save(ctx context.Context, d *driver.Driver) error {
	docs, err := json.Marshal(d.Documents)
	if err != nil {
		return fmt.Errorf("encode driver documents: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO drivers (`+driverColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			category = EXCLUDED.category,
			vehicle_model = EXCLUDED.vehicle_model,
			vehicle_number = EXCLUDED.vehicle_number,
			status = EXCLUDED.status,
			needs_manual_review = EXCLUDED.needs_manual_review,
			documents = EXCLUDED.documents,
			updated_at = EXCLUDED.updated_at
	`, d.ID, d.Name, d.Phone, string(d.Category), d.VehicleModel, d.VehicleNumber, string(d.Status),
		d.NeedsManualReview, docs, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save driver: %w", err)
	}
	return nil
}

func (r *DriverRepository) GetByID(ctx context.Context, id string) (*driver.Driver, error) {
	d, err := scanDriver(r.db.QueryRowContext(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, driver.ErrDriverNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get driver: %w", err)
	}
	return d, nil
}

func (r *DriverRepository) List(ctx context.Context, status driver.Status) ([]*driver.Driver, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+driverColumns+` FROM drivers WHERE ($1 = '' OR status = $1) ORDER BY created_at
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()

	var out []*driver.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DriverRepository) UpdateStatus(ctx context.Context, id string, status driver.Status) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE drivers
		SET status = $2,
		    needs_manual_review = CASE WHEN $2 = 'pending' THEN needs_manual_review ELSE FALSE END,
		    updated_at = $3
		WHERE id = $1
	`, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update driver status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return driver.ErrDriverNotFound
	}
	return nil
}
