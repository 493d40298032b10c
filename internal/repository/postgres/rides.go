// Package postgres implements the domain repositories on PostgreSQL via lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/edrive/ride-hailing/internal/domain/ride"
	"github.com/lib/pq"
)

const requestColumns = `
	id, passenger_id, passenger_name, category,
	pickup_address, pickup_lat, pickup_lng,
	dest_address, dest_lat, dest_lng,
	fare, instructions, voice_note, item_type,
	status, driver_id, accepted_offer_id, cancel_reason, cancelled_by,
	created_at, accepted_at, started_at, completed_at, cancelled_at, updated_at`

// RideRepository implements ride.Repository
type RideRepository struct {
	db *sql.DB
}

func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{db: db}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row scanner) (*ride.Request, error) {
	var (
		r                                               ride.Request
		driverID, offerID                               sql.NullString
		acceptedAt, startedAt, completedAt, cancelledAt sql.NullTime
	)
	err := row.Scan(
		&r.ID, &r.PassengerID, &r.PassengerName, &r.Category,
		&r.Pickup.Address, &r.Pickup.Lat, &r.Pickup.Lng,
		&r.Destination.Address, &r.Destination.Lat, &r.Destination.Lng,
		&r.Fare, &r.Instructions, &r.VoiceNote, &r.ItemType,
		&r.Status, &driverID, &offerID, &r.CancelReason, &r.CancelledBy,
		&r.CreatedAt, &acceptedAt, &startedAt, &completedAt, &cancelledAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if driverID.Valid {
		r.DriverID = &driverID.String
	}
	r.OfferID = offerID.String
	r.AcceptedAt = nullTime(acceptedAt)
	r.StartedAt = nullTime(startedAt)
	r.CompletedAt = nullTime(completedAt)
	r.CancelledAt = nullTime(cancelledAt)
	return &r, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func (r *RideRepository) Create(ctx context.Context, req *ride.Request) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ride_requests (
			id, passenger_id, passenger_name, category,
			pickup_address, pickup_lat, pickup_lng,
			dest_address, dest_lat, dest_lng,
			fare, instructions, voice_note, item_type,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $16)
	`, req.ID, req.PassengerID, req.PassengerName, string(req.Category),
		req.Pickup.Address, req.Pickup.Lat, req.Pickup.Lng,
		req.Destination.Address, req.Destination.Lat, req.Destination.Lng,
		req.Fare, req.Instructions, req.VoiceNote, req.ItemType,
		string(req.Status), req.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ride request: %w", err)
	}
	return nil
}

func (r *RideRepository) GetByID(ctx context.Context, id string) (*ride.Request, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM ride_requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ride.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ride request: %w", err)
	}
	return req, nil
}

func (r *RideRepository) List(ctx context.Context, filter ride.Filter) ([]*ride.Request, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+requestColumns+` FROM ride_requests
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR category = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, string(filter.Status), string(filter.Category), limit)
	if err != nil {
		return nil, fmt.Errorf("list ride requests: %w", err)
	}
	return collectRequests(rows)
}

func (r *RideRepository) ListByParticipant(ctx context.Context, userID string, limit int) ([]*ride.Request, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+requestColumns+` FROM ride_requests
		WHERE passenger_id = $1 OR driver_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list participant requests: %w", err)
	}
	return collectRequests(rows)
}

// Accept is a single conditional UPDATE: it only matches while the row is
// still pending, so concurrent accepts cannot both bind a driver.
func (r *RideRepository) Accept(ctx context.Context, id string, bind ride.Binding) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE ride_requests
		SET status = 'accepted', driver_id = $2, accepted_offer_id = $3, fare = $4,
		    accepted_at = $5, updated_at = $5
		WHERE id = $1 AND status = 'pending'
	`, id, bind.DriverID, bind.OfferID, bind.Fare, bind.At)
	if err != nil {
		return false, fmt.Errorf("accept ride request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("accept ride request: %w", err)
	}
	return n == 1, nil
}

// Transition returns the row as the UPDATE left it, so callers see a driver
// bound by an accept that landed after their own read.
func (r *RideRepository) Transition(ctx context.Context, id string, t ride.Transition) (*ride.Request, bool, error) {
	from := make([]string, len(t.From))
	for i, s := range t.From {
		from[i] = string(s)
	}

	row := r.db.QueryRowContext(ctx, `
		UPDATE ride_requests SET
			status        = $2::text,
			updated_at    = $3::timestamptz,
			started_at    = CASE WHEN $2::text = 'ongoing' THEN $3::timestamptz ELSE started_at END,
			completed_at  = CASE WHEN $2::text = 'completed' THEN $3::timestamptz ELSE completed_at END,
			cancelled_at  = CASE WHEN $2::text = 'cancelled' THEN $3::timestamptz ELSE cancelled_at END,
			cancel_reason = CASE WHEN $2::text = 'cancelled' THEN $4::text ELSE cancel_reason END,
			cancelled_by  = CASE WHEN $2::text = 'cancelled' THEN $5::text ELSE cancelled_by END
		WHERE id = $1
		  AND status = ANY($6)
		  AND ($7::text = '' OR driver_id = $7::text)
		RETURNING `+requestColumns,
		id, string(t.To), t.At, t.Reason, t.CancelledBy, pq.Array(from), t.RequireDriver)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("transition ride request: %w", err)
	}
	return req, true, nil
}

func (r *RideRepository) ActiveByDriver(ctx context.Context, driverID string) (*ride.Request, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+` FROM ride_requests
		WHERE driver_id = $1 AND status IN ('accepted', 'ongoing')
		ORDER BY accepted_at DESC
		LIMIT 1
	`, driverID)
	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ride.ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("active request by driver: %w", err)
	}
	return req, nil
}

func (r *RideRepository) CompletedByDriver(ctx context.Context, driverID string, from, to time.Time) ([]*ride.Request, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+requestColumns+` FROM ride_requests
		WHERE driver_id = $1 AND status = 'completed'
		  AND completed_at >= $2 AND completed_at < $3
		ORDER BY completed_at
	`, driverID, from, to)
	if err != nil {
		return nil, fmt.Errorf("completed requests by driver: %w", err)
	}
	return collectRequests(rows)
}

// Delete hard-deletes a request; offers go with it through ON DELETE CASCADE
func (r *RideRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ride_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete ride request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ride.ErrRequestNotFound
	}
	return nil
}

func collectRequests(rows *sql.Rows) ([]*ride.Request, error) {
	defer rows.Close()
	var out []*ride.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ride request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
