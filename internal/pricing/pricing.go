// Package pricing holds the fixed tier catalog and the price computation for
// translation orders. All amounts are integer rupiah.
package pricing

import (
	"fmt"
	"math"
	"strconv"
)

// HardCopyFee is the flat surcharge for a printed, shipped copy.
const HardCopyFee int64 = 20000

// Tier is a named turnaround-speed/price combination offered to the buyer.
// Immutable reference data.
type Tier struct {
	ID           string
	Label        string
	Description  string
	Days         int
	PricePerPage int64
}

var Tiers = []Tier{
	{ID: "reguler", Label: "Reguler", Description: "Paling Hemat (Recommended)", Days: 9, PricePerPage: 75000},
	{ID: "sedang", Label: "Standar", Description: "Standar", Days: 5, PricePerPage: 125000},
	{ID: "ekspres", Label: "Ekspres", Description: "Prioritas", Days: 2, PricePerPage: 165000},
	{ID: "kilat", Label: "Kilat", Description: "Super Urgent", Days: 1, PricePerPage: 300000},
}

// TierByDays returns the tier with an exact turnaround-days match, falling
// back to the slowest (cheapest) tier for unknown values. Legacy orders may
// carry day counts from a retired catalog.
func TierByDays(days int) Tier {
	for _, t := range Tiers {
		if t.Days == days {
			return t
		}
	}
	return Tiers[0]
}

// ComputePrice maps order attributes to the final integer price:
// pages x tier price, plus the hard-copy fee if requested, then the promo
// discount. Pure and deterministic; the server recomputes this on order
// creation and never trusts a client-submitted total.
func ComputePrice(totalPages int, urgencyDays int, hardCopy bool, discountPercent int) int64 {
	tier := TierByDays(urgencyDays)

	price := int64(totalPages) * tier.PricePerPage
	if hardCopy {
		price += HardCopyFee
	}
	if discountPercent > 0 {
		price = int64(math.Round(float64(price) * (1 - float64(discountPercent)/100)))
	}

	return price
}

// FormatIDR renders an amount the way the site displays it, e.g. 825000 ->
// "Rp 825.000".
func FormatIDR(amount int64) string {
	digits := strconv.FormatInt(amount, 10)
	negative := false
	if amount < 0 {
		negative = true
		digits = digits[1:]
	}

	var grouped []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped = append(grouped, '.')
		}
		grouped = append(grouped, d)
	}

	if negative {
		return fmt.Sprintf("-Rp %s", grouped)
	}
	return fmt.Sprintf("Rp %s", grouped)
}
