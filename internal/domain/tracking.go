package domain

import "time"

// TrackingRecord is a booking a user asked us to keep re-checking.
type TrackingRecord struct {
	ID        string          `json:"id"`
	Subject   string          `json:"-"`
	Booking   BookingSnapshot `json:"booking"`
	Active    bool            `json:"active"`
	Last      *TrackingResult `json:"last,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TrackingResult is the summary of the most recent comparison for a record.
type TrackingResult struct {
	Status    ResultStatus `json:"status"`
	BestPrice float64      `json:"best_price"`
	Provider  string       `json:"provider,omitempty"`
	Link      string       `json:"link,omitempty"`
	CheckedAt time.Time    `json:"checked_at"`
}

func SummarizeResult(r ComparisonResult, at time.Time) TrackingResult {
	return TrackingResult{
		Status:    r.Status,
		BestPrice: r.BestPrice(),
		Provider:  r.Provider,
		Link:      r.Link,
		CheckedAt: at.UTC(),
	}
}
