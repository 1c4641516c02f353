package app_test

import (
	"context"
	"strings"
	"sync"

	"pricedrop/internal/domain"
)

// ---- fakes ----

// fakeLLM answers broad and partner prompts separately and records every request.
type fakeLLM struct {
	mu      sync.Mutex
	broad   string
	partner string
	doc     string
	err     error
	block   bool // wait for ctx instead of answering
	reqs    []domain.InferenceRequest
}

func (f *fakeLLM) Generate(ctx context.Context, in domain.InferenceRequest) (string, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, in)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	switch {
	case in.Attachment != nil:
		return f.doc, nil
	case strings.Contains(in.Prompt, "Search ONLY these booking sites"):
		return f.partner, nil
	default:
		return f.broad, nil
	}
}

func (f *fakeLLM) requests() []domain.InferenceRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.InferenceRequest(nil), f.reqs...)
}

// fixedRand always returns the same draw.
type fixedRand struct {
	f float64
	n int
}

func (r fixedRand) Float64() float64 { return r.f }
func (r fixedRand) IntN(n int) int   { return r.n % n }

func ptr[T any](v T) *T { return &v }

func booking(price float64) domain.BookingSnapshot {
	return domain.BookingSnapshot{
		HotelName:     "Hotel Dan Tel Aviv",
		CheckIn:       "2025-03-01",
		CheckOut:      "2025-03-04",
		OriginalPrice: price,
		Currency:      "ILS",
	}
}
