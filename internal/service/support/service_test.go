package support

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edrive/ride-hailing/internal/domain/notification"
	"github.com/edrive/ride-hailing/internal/domain/support"
	"github.com/edrive/ride-hailing/internal/repository/memory"
	apperrors "github.com/edrive/ride-hailing/pkg/errors"
	"github.com/edrive/ride-hailing/pkg/logger"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n notification.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func validInput() FileInput {
	return FileInput{
		ReporterID:  "p1",
		Subject:     "Overcharged",
		Message:     "Asked for Rs 500 instead of the agreed 300",
		TargetName:  "Driver Ali",
		TargetPhone: "03001234567",
	}
}

func TestService_File(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(in *FileInput)
		wantCode string
	}{
		{name: "complete", mutate: func(in *FileInput) {}},
		{name: "missing subject", mutate: func(in *FileInput) { in.Subject = "  " }, wantCode: "VALIDATION_ERROR"},
		{name: "missing target", mutate: func(in *FileInput) { in.TargetName = "" }, wantCode: "VALIDATION_ERROR"},
		{name: "missing message", mutate: func(in *FileInput) { in.Message = "" }, wantCode: "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(memory.NewComplaintStore(), nil, logger.NewNop())
			in := validInput()
			tt.mutate(&in)

			c, err := svc.File(context.Background(), in)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, apperrors.GetAppError(err).Code)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, c.ID)
			assert.Equal(t, support.StatusOpen, c.Status)
			assert.Equal(t, "Driver Ali", c.TargetName)
		})
	}
}

func TestService_ListAndSetStatus(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	svc := NewService(memory.NewComplaintStore(), notifier, logger.NewNop())

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	first, err := svc.File(ctx, validInput())
	require.NoError(t, err)
	svc.now = func() time.Time { return base.Add(time.Minute) }
	second, err := svc.File(ctx, validInput())
	require.NoError(t, err)

	all, err := svc.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID, "newest first")

	updated, err := svc.SetStatus(ctx, first.ID, "investigating")
	require.NoError(t, err)
	assert.Equal(t, support.StatusInvestigating, updated.Status)

	open, err := svc.List(ctx, "open", 10)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "p1", notifier.sent[0].UserID)
	assert.Equal(t, "Complaint Update", notifier.sent[0].Title)

	_, err = svc.SetStatus(ctx, first.ID, "resolved")
	assert.Equal(t, "VALIDATION_ERROR", apperrors.GetAppError(err).Code)
	_, err = svc.SetStatus(ctx, "missing", "closed")
	assert.ErrorIs(t, err, apperrors.ErrComplaintNotFound)
	_, err = svc.List(ctx, "pending", 10)
	assert.Equal(t, "VALIDATION_ERROR", apperrors.GetAppError(err).Code)
}
