package pricing_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/tarjuman/order-service/internal/pricing"
)

func TestComputePrice(t *testing.T) {
	tests := []struct {
		name            string
		totalPages      int
		urgencyDays     int
		hardCopy        bool
		discountPercent int
		want            int64
	}{
		{
			name:        "ten_pages_reguler",
			totalPages:  10,
			urgencyDays: 9,
			want:        750000,
		},
		{
			name:        "ten_pages_reguler_hard_copy",
			totalPages:  10,
			urgencyDays: 9,
			hardCopy:    true,
			want:        770000,
		},
		{
			name:            "hard_copy_with_thirty_percent_discount",
			totalPages:      10,
			urgencyDays:     9,
			hardCopy:        true,
			discountPercent: 30,
			want:            539000,
		},
		{
			name:        "five_pages_ekspres",
			totalPages:  5,
			urgencyDays: 2,
			want:        825000,
		},
		{
			name:        "single_page_kilat",
			totalPages:  1,
			urgencyDays: 1,
			want:        300000,
		},
		{
			name:        "unknown_days_falls_back_to_slowest_tier",
			totalPages:  4,
			urgencyDays: 3,
			want:        300000,
		},
		{
			name:            "discount_rounds_to_nearest_rupiah",
			totalPages:      1,
			urgencyDays:     9,
			discountPercent: 33,
			want:            50250,
		},
		{
			name:       "zero_pages",
			totalPages: 0, urgencyDays: 9,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pricing.ComputePrice(tt.totalPages, tt.urgencyDays, tt.hardCopy, tt.discountPercent)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTierByDays(t *testing.T) {
	ekspres := pricing.TierByDays(2)
	want := pricing.Tier{ID: "ekspres", Label: "Ekspres", Description: "Prioritas", Days: 2, PricePerPage: 165000}
	if diff := cmp.Diff(want, ekspres); diff != "" {
		t.Errorf("TierByDays(2) mismatch (-want +got):\n%s", diff)
	}

	fallback := pricing.TierByDays(42)
	assert.Equal(t, "reguler", fallback.ID)
	assert.Equal(t, int64(75000), fallback.PricePerPage)
}

func TestFormatIDR(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{825000, "Rp 825.000"},
		{75000, "Rp 75.000"},
		{1500000, "Rp 1.500.000"},
		{999, "Rp 999"},
		{0, "Rp 0"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, pricing.FormatIDR(tt.amount))
	}
}
