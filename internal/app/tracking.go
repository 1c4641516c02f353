package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pricedrop/internal/domain"
)

type comparer interface {
	Compare(ctx context.Context, b domain.BookingSnapshot) (domain.ComparisonResult, error)
}

// TrackingService stores bookings users want watched and refreshes their latest result.
type TrackingService struct {
	repo    domain.TrackingRepository
	compare comparer
	now     func() time.Time
}

func NewTrackingService(r domain.TrackingRepository, c comparer) *TrackingService {
	return &TrackingService{repo: r, compare: c, now: time.Now}
}

// Track runs a first comparison and stores the record with its result.
func (s *TrackingService) Track(ctx context.Context, subject string, b domain.BookingSnapshot) (domain.TrackingRecord, domain.ComparisonResult, error) {
	if err := b.Validate(); err != nil {
		return domain.TrackingRecord{}, domain.ComparisonResult{}, err
	}
	res, err := s.compare.Compare(ctx, b)
	if err != nil {
		return domain.TrackingRecord{}, domain.ComparisonResult{}, err
	}

	now := s.now().UTC()
	last := domain.SummarizeResult(res, now)
	rec := domain.TrackingRecord{
		ID:        uuid.NewString(),
		Subject:   subject,
		Booking:   b,
		Active:    true,
		Last:      &last,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return domain.TrackingRecord{}, domain.ComparisonResult{}, fmt.Errorf("create tracking: %w", err)
	}
	return rec, res, nil
}

func (s *TrackingService) Get(ctx context.Context, subject, id string) (domain.TrackingRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.TrackingRecord{}, domain.ErrNotFound
	}
	return s.repo.Get(ctx, subject, id)
}

func (s *TrackingService) List(ctx context.Context, subject string, limit int) ([]domain.TrackingRecord, error) {
	return s.repo.ListBySubject(ctx, subject, limit)
}

func (s *TrackingService) Stop(ctx context.Context, subject, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	return s.repo.Deactivate(ctx, subject, id)
}

// Recheck re-runs the comparison for one stored record and saves the outcome.
func (s *TrackingService) Recheck(ctx context.Context, rec domain.TrackingRecord) (domain.TrackingResult, error) {
	res, err := s.compare.Compare(ctx, rec.Booking)
	if err != nil {
		return domain.TrackingResult{}, err
	}
	last := domain.SummarizeResult(res, s.now())
	if err := s.repo.UpdateResult(ctx, rec.ID, last); err != nil {
		return domain.TrackingResult{}, fmt.Errorf("update tracking %s: %w", rec.ID, err)
	}
	return last, nil
}

// ActiveBatch lists records due for a recheck.
func (s *TrackingService) ActiveBatch(ctx context.Context, limit int) ([]domain.TrackingRecord, error) {
	return s.repo.ListActive(ctx, limit)
}
