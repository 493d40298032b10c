package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edrive/ride-hailing/internal/domain/driver"
	"github.com/edrive/ride-hailing/internal/domain/notification"
	"github.com/edrive/ride-hailing/internal/repository/memory"
	apperrors "github.com/edrive/ride-hailing/pkg/errors"
	"github.com/edrive/ride-hailing/pkg/logger"
)

type stubVerifier struct {
	verdicts map[driver.DocumentType]*Verification
	err      error
}

func (s *stubVerifier) Verify(ctx context.Context, image string, docType driver.DocumentType) (*Verification, error) {
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.verdicts[docType]; ok {
		return v, nil
	}
	return &Verification{Valid: true, Reason: "Looks good"}, nil
}

type recordingNotifier struct{ sent []notification.Notification }

func (r *recordingNotifier) Notify(ctx context.Context, n notification.Notification) {
	r.sent = append(r.sent, n)
}

func validInput() SubmitInput {
	return SubmitInput{
		DriverID:      "d1",
		Name:          "Ali Raza",
		Phone:         "+923001234567",
		Category:      "moto",
		VehicleModel:  "Honda CD 70",
		VehicleNumber: "gaa-1234",
		Documents: []DocumentInput{
			{Type: driver.DocumentLicense, Image: "aW1n"},
			{Type: driver.DocumentVehicle, Image: "aW1n"},
		},
	}
}

func TestSubmit(t *testing.T) {
	tests := []struct {
		name       string
		verifier   DocumentVerifier
		mutate     func(in *SubmitInput)
		wantErr    bool
		wantReview bool
	}{
		{name: "all documents valid", verifier: &stubVerifier{}},
		{name: "verifier down", verifier: &stubVerifier{err: errors.New("timeout")}, wantReview: true},
		{
			name: "license rejected",
			verifier: &stubVerifier{verdicts: map[driver.DocumentType]*Verification{
				driver.DocumentLicense: {Valid: false},
			}},
			wantErr: true,
		},
		{
			name:     "missing vehicle photo",
			verifier: &stubVerifier{},
			mutate:   func(in *SubmitInput) { in.Documents = in.Documents[:1] },
			wantErr:  true,
		},
		{
			name:     "unknown category",
			verifier: &stubVerifier{},
			mutate:   func(in *SubmitInput) { in.Category = "plane" },
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewDriverStore()
			svc := NewService(store, tt.verifier, nil, logger.NewNop())
			in := validInput()
			if tt.mutate != nil {
				tt.mutate(&in)
			}

			d, err := svc.Submit(context.Background(), in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, "VALIDATION_ERROR", apperrors.GetAppError(err).Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, driver.StatusPending, d.Status, "onboarding never approves")
			assert.Equal(t, tt.wantReview, d.NeedsManualReview)
			assert.Equal(t, "GAA-1234", d.VehicleNumber)
			assert.False(t, d.CanBid())
		})
	}
}

func TestSubmit_RejectionCarriesReason(t *testing.T) {
	svc := NewService(memory.NewDriverStore(), &stubVerifier{verdicts: map[driver.DocumentType]*Verification{
		driver.DocumentVehicle: {Valid: false},
	}}, nil, logger.NewNop())

	_, err := svc.Submit(context.Background(), validInput())
	appErr := apperrors.GetAppError(err)
	assert.Equal(t, InvalidReason(driver.DocumentVehicle), appErr.Message)
	assert.Equal(t, "vehicle_photo", appErr.Details["document"])
}

func TestSetStatus(t *testing.T) {
	store := memory.NewDriverStore()
	notifier := &recordingNotifier{}
	svc := NewService(store, &stubVerifier{err: errors.New("down")}, notifier, logger.NewNop())
	ctx := context.Background()

	_, err := svc.Submit(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, "d1", "pending")
	assert.Error(t, err)

	_, err = svc.SetStatus(ctx, "ghost", "approved")
	assert.ErrorIs(t, err, apperrors.ErrDriverNotFound)

	d, err := svc.SetStatus(ctx, "d1", "approved")
	require.NoError(t, err)
	assert.True(t, d.CanBid())
	assert.False(t, d.NeedsManualReview)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "Profile Approved", notifier.sent[0].Title)

	_, err = svc.Submit(ctx, validInput())
	assert.Equal(t, "CONFLICT", apperrors.GetAppError(err).Code)

	pending, err := svc.List(ctx, "pending")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// geminiReply wraps a verdict the way generateContent returns model text
func geminiReply(t *testing.T, w http.ResponseWriter, verdict Verification) {
	t.Helper()
	text, err := json.Marshal(verdict)
	require.NoError(t, err)
	require.NoError(t, json.NewEncoder(w).Encode(map[string]interface{}{
		"candidates": []map[string]interface{}{{
			"content": map[string]interface{}{
				"role":  "model",
				"parts": []map[string]string{{"text": string(text)}},
			},
			"finishReason": "STOP",
		}},
	}))
}

func newGeminiVerifier(t *testing.T, handler http.HandlerFunc) *GeminiVerifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	v, err := NewGeminiVerifier(context.Background(), GeminiConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/",
		Timeout: time.Second,
	})
	require.NoError(t, err)
	return v
}

func TestGeminiVerifier(t *testing.T) {
	v := newGeminiVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, DefaultModel+":generateContent"), r.URL.Path)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		if strings.Contains(string(body), InvalidReason(driver.DocumentLicense)) {
			geminiReply(t, w, Verification{Valid: true, Reason: "Real license"})
			return
		}
		geminiReply(t, w, Verification{Valid: false, Reason: "looks like a screenshot"})
	})

	ok, err := v.Verify(context.Background(), "data:image/png;base64,aW1n", driver.DocumentLicense)
	require.NoError(t, err)
	assert.True(t, ok.Valid)
	assert.False(t, ok.ManualReview)

	bad, err := v.Verify(context.Background(), "aW1n", driver.DocumentVehicle)
	require.NoError(t, err)
	assert.False(t, bad.Valid)
	assert.Equal(t, InvalidReason(driver.DocumentVehicle), bad.Reason)
}

func TestGeminiVerifier_FailuresAreErrors(t *testing.T) {
	v := newGeminiVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := v.Verify(context.Background(), "aW1n", driver.DocumentLicense)
	assert.Error(t, err)

	_, err = v.Verify(context.Background(), "data:image/jpeg;base64,%%%", driver.DocumentLicense)
	assert.Error(t, err, "undecodable image")

	_, err = NewGeminiVerifier(context.Background(), GeminiConfig{})
	assert.Error(t, err, "api key is required")
}

func TestDecodeImage(t *testing.T) {
	tests := []struct {
		name     string
		image    string
		wantMIME string
		wantErr  bool
	}{
		{name: "data url", image: "data:image/png;base64,aW1n", wantMIME: "image/png"},
		{name: "bare base64", image: "aW1n", wantMIME: "image/jpeg"},
		{name: "data url without comma", image: "data:image/png;base64", wantErr: true},
		{name: "not base64", image: "***", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, mime, err := decodeImage(tt.image)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "img", string(data))
			assert.Equal(t, tt.wantMIME, mime)
		})
	}
}
