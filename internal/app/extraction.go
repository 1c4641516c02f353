package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"pricedrop/internal/domain"
)

const extractPrompt = `You read hotel booking confirmations. Extract the booking from the attached document.

Return exactly one JSON object with these fields and nothing else (null when not stated):
{
  "hotel_name": "string",
  "check_in": "YYYY-MM-DD",
  "check_out": "YYYY-MM-DD",
  "price": <total price paid for the stay as a number>,
  "currency": "ISO 4217 code",
  "room_type": "string",
  "adults": <number>,
  "children": <number>,
  "free_cancellation": <true|false|null>,
  "breakfast_included": <true|false|null>,
  "cancellation_policy": "string",
  "meal_plan": "string"
}`

// Content types the inference capability accepts as inline attachments.
var supportedDocumentTypes = map[string]struct{}{
	"application/pdf": {},
	"image/png":       {},
	"image/jpeg":      {},
	"image/webp":      {},
	"text/plain":      {},
	"text/html":       {},
}

// ExtractionService turns a booking document into BookingFields. Unlike the
// offer searches, its failures are reported to the caller.
type ExtractionService struct {
	llm     domain.InferenceClient
	timeout time.Duration
}

func NewExtractionService(llm domain.InferenceClient, timeout time.Duration) *ExtractionService {
	if timeout <= 0 {
		timeout = DefaultAnalysisTimeout
	}
	return &ExtractionService{llm: llm, timeout: timeout}
}

func (s *ExtractionService) Extract(ctx context.Context, content []byte, contentType string) (domain.BookingFields, error) {
	mt := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if _, ok := supportedDocumentTypes[mt]; !ok {
		return domain.BookingFields{}, domain.ValidationError{Field: "content_type", Msg: fmt.Sprintf("unsupported document type %q", mt)}
	}
	if len(content) == 0 {
		return domain.BookingFields{}, domain.ValidationError{Field: "document", Msg: "is empty"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.llm.Generate(ctx, domain.InferenceRequest{
		Prompt:     extractPrompt,
		Attachment: &domain.Attachment{MIMEType: mt, Data: content},
	})
	if err != nil {
		return domain.BookingFields{}, fmt.Errorf("document analysis: %w", err)
	}
	obj, err := extractJSONObject(text)
	if err != nil {
		log.Warn().Err(err).Str("content_type", mt).Msg("document analysis output unparseable")
		return domain.BookingFields{}, domain.ValidationError{Field: "document", Msg: "no booking details could be read", Err: err}
	}
	f := mapBookingFields(obj)
	if f.HotelName == "" {
		return domain.BookingFields{}, domain.ValidationError{Field: "document", Msg: "no hotel name found"}
	}
	return f, nil
}
