package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/edrive/ride-hailing/internal/domain/chat"
)

// ChatRepository implements chat.Repository and chat.SafetyRepository
type ChatRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Append stores the message; the BIGSERIAL seq records arrival order
func (r *ChatRepository) Append(ctx context.Context, m *chat.Message) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO ride_chat (id, trip_id, sender_id, text, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING seq
	`, m.ID, m.TripID, m.SenderID, m.Text, m.CreatedAt).Scan(&m.Seq)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

func (r *ChatRepository) History(ctx context.Context, tripID string) ([]*chat.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, trip_id, sender_id, text, seq, created_at
		FROM ride_chat WHERE trip_id = $1
		ORDER BY created_at, seq
	`, tripID)
	if err != nil {
		return nil, fmt.Errorf("chat history: %w", err)
	}
	defer rows.Close()

	var out []*chat.Message
	for rows.Next() {
		var m chat.Message
		if err := rows.Scan(&m.ID, &m.TripID, &m.SenderID, &m.Text, &m.Seq, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *ChatRepository) CreateBlock(ctx context.Context, b *chat.Block) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_blocks (id, blocker_id, blocked_id, trip_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (blocker_id, blocked_id) DO NOTHING
	`, b.ID, b.BlockerID, b.BlockedID, b.TripID, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert block: %w", err)
	}
	return nil
}

func (r *ChatRepository) IsBlocked(ctx context.Context, a, b string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_blocks
			WHERE (blocker_id = $1 AND blocked_id = $2) OR (blocker_id = $2 AND blocked_id = $1)
		)
	`, a, b).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check block: %w", err)
	}
	return exists, nil
}

func (r *ChatRepository) CreateReport(ctx context.Context, rep *chat.Report) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reports (id, reporter_id, reported_id, trip_id, reason, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rep.ID, rep.ReporterID, rep.ReportedID, rep.TripID, rep.Reason, rep.Details, rep.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (r *ChatRepository) ListReports(ctx context.Context, limit int) ([]*chat.Report, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, reporter_id, reported_id, trip_id, reason, details, created_at
		FROM reports ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []*chat.Report
	for rows.Next() {
		var rep chat.Report
		if err := rows.Scan(&rep.ID, &rep.ReporterID, &rep.ReportedID, &rep.TripID, &rep.Reason, &rep.Details, &rep.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, &rep)
	}
	return out, rows.Err()
}
