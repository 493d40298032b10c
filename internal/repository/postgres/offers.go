package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/edrive/ride-hailing/internal/domain/offer"
)

// OfferRepository implements offer.Repository
type OfferRepository struct {
	db *sql.DB
}

func NewOfferRepository(db *sql.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

const offerColumns = `id, request_id, driver_id, driver_name, fare, status, created_at`

func scanOffer(row scanner) (*offer.Offer, error) {
	var o offer.Offer
	if err := row.Scan(&o.ID, &o.RequestID, &o.DriverID, &o.DriverName, &o.Fare, &o.Status, &o.CreatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

// Create inserts the offer only while its request is pending. The request row
// can still leave pending right after; the accept path resolves that race.
func (r *OfferRepository) Create(ctx context.Context, o *offer.Offer) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO ride_offers (id, request_id, driver_id, driver_name, fare, status, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE EXISTS (SELECT 1 FROM ride_requests WHERE id = $2 AND status = 'pending')
	`, o.ID, o.RequestID, o.DriverID, o.DriverName, o.Fare, string(o.Status), o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert offer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return offer.ErrRequestNotPending
	}
	return nil
}

func (r *OfferRepository) GetByID(ctx context.Context, id string) (*offer.Offer, error) {
	o, err := scanOffer(r.db.QueryRowContext(ctx, `SELECT `+offerColumns+` FROM ride_offers WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, offer.ErrOfferNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get offer: %w", err)
	}
	return o, nil
}

func (r *OfferRepository) ListByRequest(ctx context.Context, requestID string) ([]*offer.Offer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+offerColumns+` FROM ride_offers WHERE request_id = $1 ORDER BY created_at, id
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}
	defer rows.Close()

	var out []*offer.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *OfferRepository) Settle(ctx context.Context, requestID, acceptedOfferID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE ride_offers
		SET status = CASE WHEN id = $2 THEN 'accepted' ELSE 'stale' END
		WHERE request_id = $1
	`, requestID, acceptedOfferID)
	if err != nil {
		return fmt.Errorf("settle offers: %w", err)
	}
	return nil
}

func (r *OfferRepository) Expire(ctx context.Context, requestID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE ride_offers SET status = 'stale' WHERE request_id = $1 AND status = 'open'
	`, requestID)
	if err != nil {
		return fmt.Errorf("expire offers: %w", err)
	}
	return nil
}

func (r *OfferRepository) DeleteByRequest(ctx context.Context, requestID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM ride_offers WHERE request_id = $1`, requestID); err != nil {
		return fmt.Errorf("delete offers: %w", err)
	}
	return nil
}
