package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/edrive/ride-hailing/internal/domain/place"
	"github.com/edrive/ride-hailing/internal/domain/support"
)

const complaintColumns = `
	id, reporter_id, reporter_name, subject, message,
	target_name, target_phone, target_email, proof_image,
	status, created_at, updated_at`

// ComplaintRepository implements support.Repository
type ComplaintRepository struct {
	db *sql.DB
}

func NewComplaintRepository(db *sql.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

func scanComplaint(row scanner) (*support.Complaint, error) {
	var c support.Complaint
	err := row.Scan(
		&c.ID, &c.ReporterID, &c.ReporterName, &c.Subject, &c.Message,
		&c.TargetName, &c.TargetPhone, &c.TargetEmail, &c.ProofImage,
		&c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ComplaintRepository) Create(ctx context.Context, c *support.Complaint) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO complaints (`+complaintColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`, c.ID, c.ReporterID, c.ReporterName, c.Subject, c.Message,
		c.TargetName, c.TargetPhone, c.TargetEmail, c.ProofImage,
		string(c.Status), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert complaint: %w", err)
	}
	return nil
}

func (r *ComplaintRepository) GetByID(ctx context.Context, id string) (*support.Complaint, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id = $1`, id)
	c, err := scanComplaint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, support.ErrComplaintNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get complaint: %w", err)
	}
	return c, nil
}

func (r *ComplaintRepository) List(ctx context.Context, status support.Status, limit int) ([]*support.Complaint, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+complaintColumns+` FROM complaints
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	defer rows.Close()

	var out []*support.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ComplaintRepository) UpdateStatus(ctx context.Context, id string, status support.Status, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE complaints SET status = $2, updated_at = $3 WHERE id = $1
	`, id, string(status), at)
	if err != nil {
		return fmt.Errorf("update complaint status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return support.ErrComplaintNotFound
	}
	return nil
}

// PlaceRepository implements place.Repository over city_locations
type PlaceRepository struct {
	db *sql.DB
}

func NewPlaceRepository(db *sql.DB) *PlaceRepository {
	return &PlaceRepository{db: db}
}

const placeColumns = `id, name, address, category, lat, lng, created_at, updated_at`

func scanPlace(row scanner) (*place.Place, error) {
	var p place.Place
	if err := row.Scan(&p.ID, &p.Name, &p.Address, &p.Category, &p.Lat, &p.Lng, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PlaceRepository) Save(ctx context.Context, p *place.Place) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO city_locations (`+placeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			category = EXCLUDED.category,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			updated_at = EXCLUDED.updated_at
	`, p.ID, p.Name, p.Address, p.Category, p.Lat, p.Lng, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save place: %w", err)
	}
	return nil
}

func (r *PlaceRepository) GetByID(ctx context.Context, id string) (*place.Place, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+placeColumns+` FROM city_locations WHERE id = $1`, id)
	p, err := scanPlace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, place.ErrPlaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get place: %w", err)
	}
	return p, nil
}

func (r *PlaceRepository) List(ctx context.Context) ([]*place.Place, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+placeColumns+` FROM city_locations ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	defer rows.Close()

	var out []*place.Place
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PlaceRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM city_locations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete place: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return place.ErrPlaceNotFound
	}
	return nil
}
