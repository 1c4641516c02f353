package domain

import (
	"context"
	"time"
)

// InferenceClient is the generation-with-retrieval capability behind both the
// offer searches and document analysis.
type InferenceClient interface {
	Generate(ctx context.Context, req InferenceRequest) (string, error)
}

type InferenceRequest struct {
	Prompt     string
	Attachment *Attachment
	WebSearch  bool
}

type Attachment struct {
	MIMEType string
	Data     []byte
}

type TrackingRepository interface {
	// Write paths
	Create(ctx context.Context, t TrackingRecord) error
	UpdateResult(ctx context.Context, id string, res TrackingResult) error
	Deactivate(ctx context.Context, subject, id string) error

	// Read paths
	Get(ctx context.Context, subject, id string) (TrackingRecord, error)
	ListBySubject(ctx context.Context, subject string, limit int) ([]TrackingRecord, error)
	ListActive(ctx context.Context, limit int) ([]TrackingRecord, error)
}

// QuotaLimiter counts requests per key in a fixed window.
type QuotaLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// IdentityVerifier turns a bearer credential into a subject identifier.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}
