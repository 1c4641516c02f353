package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const DateLayout = "2006-01-02"

// Column limits of the trackings table.
const (
	maxTextLen = 255
	maxPrice   = 1e10 // DECIMAL(12,2)
)

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// BookingSnapshot is the user's existing booking; the reference point for a comparison.
// Tri-state flags use nil for "unknown".
type BookingSnapshot struct {
	HotelName         string  `json:"hotel_name"`
	CheckIn           string  `json:"check_in"`  // YYYY-MM-DD
	CheckOut          string  `json:"check_out"` // YYYY-MM-DD
	OriginalPrice     float64 `json:"original_price"`
	Currency          string  `json:"currency"`
	RoomType          *string `json:"room_type,omitempty"`
	FreeCancellation  *bool   `json:"free_cancellation"`
	BreakfastIncluded *bool   `json:"breakfast_included"`
}

// Validate trims and checks the snapshot in place. Currency defaults to ILS.
func (b *BookingSnapshot) Validate() error {
	b.HotelName = strings.TrimSpace(b.HotelName)
	if b.HotelName == "" {
		return ValidationError{Field: "hotel_name", Msg: "is required"}
	}
	if utf8.RuneCountInString(b.HotelName) > maxTextLen {
		return ValidationError{Field: "hotel_name", Msg: "must be at most 255 characters"}
	}
	in, err := time.Parse(DateLayout, strings.TrimSpace(b.CheckIn))
	if err != nil {
		return ValidationError{Field: "check_in", Msg: "must be a YYYY-MM-DD date", Err: err}
	}
	out, err := time.Parse(DateLayout, strings.TrimSpace(b.CheckOut))
	if err != nil {
		return ValidationError{Field: "check_out", Msg: "must be a YYYY-MM-DD date", Err: err}
	}
	if !out.After(in) {
		return ValidationError{Field: "check_out", Msg: "must be after check_in"}
	}
	b.CheckIn, b.CheckOut = in.Format(DateLayout), out.Format(DateLayout)
	if b.OriginalPrice < 0 || b.OriginalPrice != b.OriginalPrice {
		return ValidationError{Field: "original_price", Msg: "must be a non-negative number"}
	}
	if b.OriginalPrice >= maxPrice {
		return ValidationError{Field: "original_price", Msg: "is too large"}
	}
	b.Currency = strings.ToUpper(strings.TrimSpace(b.Currency))
	if b.Currency == "" {
		b.Currency = "ILS"
	}
	if !currencyCode.MatchString(b.Currency) {
		return ValidationError{Field: "currency", Msg: "must be a three-letter currency code"}
	}
	if b.RoomType != nil {
		if rt := strings.TrimSpace(*b.RoomType); rt != "" {
			if utf8.RuneCountInString(rt) > maxTextLen {
				return ValidationError{Field: "room_type", Msg: "must be at most 255 characters"}
			}
			b.RoomType = &rt
		} else {
			b.RoomType = nil
		}
	}
	return nil
}

// Conditions is the condition set echoed back to callers.
func (b BookingSnapshot) Conditions() Conditions {
	return Conditions{
		RoomType:          b.RoomType,
		FreeCancellation:  b.FreeCancellation,
		BreakfastIncluded: b.BreakfastIncluded,
	}
}

type Conditions struct {
	RoomType          *string `json:"room_type,omitempty"`
	FreeCancellation  *bool   `json:"free_cancellation"`
	BreakfastIncluded *bool   `json:"breakfast_included"`
}

// OfferQuery is what one search pass asks for: the stay plus the conditions a
// candidate offer has to match, as natural-language fragments.
type OfferQuery struct {
	HotelName     string
	CheckIn       string
	CheckOut      string
	Currency      string
	OriginalPrice float64
	Constraints   []string
}

// NewOfferQuery derives the query from a validated snapshot. Unknown flags add no constraint.
func NewOfferQuery(b BookingSnapshot) OfferQuery {
	q := OfferQuery{
		HotelName:     b.HotelName,
		CheckIn:       b.CheckIn,
		CheckOut:      b.CheckOut,
		Currency:      b.Currency,
		OriginalPrice: b.OriginalPrice,
	}
	if b.RoomType != nil {
		q.Constraints = append(q.Constraints, "room type: "+*b.RoomType+" (or an equivalent room)")
	}
	if b.FreeCancellation != nil {
		if *b.FreeCancellation {
			q.Constraints = append(q.Constraints, "must include free cancellation")
		} else {
			q.Constraints = append(q.Constraints, "non-refundable rates are acceptable")
		}
	}
	if b.BreakfastIncluded != nil {
		if *b.BreakfastIncluded {
			q.Constraints = append(q.Constraints, "breakfast must be included")
		} else {
			q.Constraints = append(q.Constraints, "room only, breakfast not required")
		}
	}
	return q
}

// ConstraintText joins the fragments for prompt interpolation.
func (q OfferQuery) ConstraintText() string {
	if len(q.Constraints) == 0 {
		return "no special conditions"
	}
	return strings.Join(q.Constraints, "; ")
}
