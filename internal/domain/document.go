package domain

import "strings"

// BookingFields is what document analysis pulls out of a confirmation email,
// PDF or screenshot. Every field may be missing.
type BookingFields struct {
	HotelName          string   `json:"hotel_name"`
	CheckIn            string   `json:"check_in"`
	CheckOut           string   `json:"check_out"`
	Price              *float64 `json:"price"`
	Currency           string   `json:"currency"`
	RoomType           string   `json:"room_type,omitempty"`
	Adults             int      `json:"adults,omitempty"`
	Children           int      `json:"children,omitempty"`
	FreeCancellation   *bool    `json:"free_cancellation"`
	BreakfastIncluded  *bool    `json:"breakfast_included"`
	CancellationPolicy string   `json:"cancellation_policy,omitempty"`
	MealPlan           string   `json:"meal_plan,omitempty"`
}

// Snapshot converts extracted fields into a validated BookingSnapshot.
func (f BookingFields) Snapshot() (BookingSnapshot, error) {
	if f.Price == nil {
		return BookingSnapshot{}, ValidationError{Field: "price", Msg: "not found in document"}
	}
	b := BookingSnapshot{
		HotelName:         f.HotelName,
		CheckIn:           f.CheckIn,
		CheckOut:          f.CheckOut,
		OriginalPrice:     *f.Price,
		Currency:          f.Currency,
		FreeCancellation:  f.FreeCancellation,
		BreakfastIncluded: f.BreakfastIncluded,
	}
	if rt := strings.TrimSpace(f.RoomType); rt != "" {
		b.RoomType = &rt
	}
	if err := b.Validate(); err != nil {
		return BookingSnapshot{}, err
	}
	return b, nil
}
