package driver

import (
	"testing"

	"github.com/edrive/ride-hailing/internal/domain/ride"
	"github.com/stretchr/testify/assert"
)

func TestEligible_MatchesRule(t *testing.T) {
	for _, d := range ride.Categories {
		for _, r := range ride.Categories {
			want := d == r || (d == ride.CategoryMoto && (r == ride.CategoryMoto || r == ride.CategoryDelivery))
			assert.Equal(t, want, Eligible(d, r), "driver %s request %s", d, r)
		}
	}
}

func TestVisibleCategories(t *testing.T) {
	tests := []struct {
		name     string
		driver   ride.Category
		expected []ride.Category
	}{
		{name: "moto sees deliveries", driver: ride.CategoryMoto, expected: []ride.Category{ride.CategoryMoto, ride.CategoryDelivery}},
		{name: "car sees only cars", driver: ride.CategoryCar, expected: []ride.Category{ride.CategoryCar}},
		{name: "rickshaw sees only rickshaws", driver: ride.CategoryRickshaw, expected: []ride.Category{ride.CategoryRickshaw}},
		{name: "delivery sees only deliveries", driver: ride.CategoryDelivery, expected: []ride.Category{ride.CategoryDelivery}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, VisibleCategories(tt.driver))
		})
	}
}

func TestDriver_CanBid(t *testing.T) {
	tests := []struct {
		status Status
		canBid bool
	}{
		{StatusPending, false},
		{StatusApproved, true},
		{StatusRejected, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			d := &Driver{Status: tt.status}
			assert.Equal(t, tt.canBid, d.CanBid())
		})
	}
}

func TestDriver_SetStatusClearsManualReview(t *testing.T) {
	d := &Driver{Status: StatusPending, NeedsManualReview: true}
	assert.NoError(t, d.SetStatus(StatusApproved))
	assert.False(t, d.NeedsManualReview)
	assert.ErrorIs(t, d.SetStatus("banned"), ErrInvalidDriverStatus)
}

func BenchmarkEligible(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Eligible(ride.CategoryMoto, ride.Categories[i%len(ride.Categories)])
	}
}
