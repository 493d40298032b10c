package driver

import "github.com/edrive/ride-hailing/internal/domain/ride"

// Eligible reports whether a driver of vehicle category d may see and bid on a
// request of category r. A moto driver also serves deliveries; every other
// category matches only itself.
func Eligible(d, r ride.Category) bool {
	if d == r {
		return true
	}
	return d == ride.CategoryMoto && r == ride.CategoryDelivery
}

// VisibleCategories returns the request categories a driver of category d sees
func VisibleCategories(d ride.Category) []ride.Category {
	var out []ride.Category
	for _, c := range ride.Categories {
		if Eligible(d, c) {
			out = append(out, c)
		}
	}
	return out
}
