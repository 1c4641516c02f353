package mysql

import (
	"context"
	"database/sql"
	"time"

	"pricedrop/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valBool(p *bool) any {
	if p == nil {
		return nil
	}
	return *p
}
func valDate(s string) any {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return s
	}
	return t
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Create(ctx context.Context, t domain.TrackingRecord) error {
	var (
		status, provider, link any
		best, checked          any
	)
	if t.Last != nil {
		status = string(t.Last.Status)
		best = t.Last.BestPrice
		provider = t.Last.Provider
		link = t.Last.Link
		checked = t.Last.CheckedAt.UTC()
	}
	_, err := r.db.ExecContext(ctx, insertTrackingSQL,
		t.ID,
		t.Subject,
		t.Booking.HotelName,
		valDate(t.Booking.CheckIn),
		valDate(t.Booking.CheckOut),
		t.Booking.OriginalPrice,
		t.Booking.Currency,
		valStr(t.Booking.RoomType),
		valBool(t.Booking.FreeCancellation),
		valBool(t.Booking.BreakfastIncluded),
		t.Active,
		status,
		best,
		provider,
		link,
		checked,
		t.CreatedAt.UTC(),
		t.UpdatedAt.UTC(),
	)
	return err
}

func (r *Repo) UpdateResult(ctx context.Context, id string, res domain.TrackingResult) error {
	out, err := r.db.ExecContext(ctx, updateResultSQL,
		string(res.Status),
		res.BestPrice,
		res.Provider,
		res.Link,
		res.CheckedAt.UTC(),
		id,
	)
	if err != nil {
		return err
	}
	return mustAffect(out)
}

func (r *Repo) Deactivate(ctx context.Context, subject, id string) error {
	out, err := r.db.ExecContext(ctx, deactivateSQL, subject, id)
	if err != nil {
		return err
	}
	return mustAffect(out)
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, subject, id string) (domain.TrackingRecord, error) {
	t, err := scanTracking(r.db.QueryRowContext(ctx, getTrackingSQL, subject, id))
	if err == sql.ErrNoRows {
		return domain.TrackingRecord{}, domain.ErrNotFound
	}
	return t, err
}

func (r *Repo) ListBySubject(ctx context.Context, subject string, limit int) ([]domain.TrackingRecord, error) {
	return r.list(ctx, listBySubjectSQL, subject, limit)
}

func (r *Repo) ListActive(ctx context.Context, limit int) ([]domain.TrackingRecord, error) {
	return r.list(ctx, listActiveSQL, limit)
}

func (r *Repo) list(ctx context.Context, q string, args ...any) ([]domain.TrackingRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TrackingRecord
	for rows.Next() {
		t, err := scanTracking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTracking(s scanner) (domain.TrackingRecord, error) {
	var t domain.TrackingRecord
	var (
		checkIn, checkOut  time.Time
		roomType           sql.NullString
		freeCancel, brkfst sql.NullBool
		status, provider   sql.NullString
		link               sql.NullString
		best               sql.NullFloat64
		checkedAt          sql.NullTime
	)
	if err := s.Scan(
		&t.ID,
		&t.Subject,
		&t.Booking.HotelName,
		&checkIn,
		&checkOut,
		&t.Booking.OriginalPrice,
		&t.Booking.Currency,
		&roomType,
		&freeCancel,
		&brkfst,
		&t.Active,
		&status,
		&best,
		&provider,
		&link,
		&checkedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return domain.TrackingRecord{}, err
	}

	t.Booking.CheckIn = checkIn.Format(domain.DateLayout)
	t.Booking.CheckOut = checkOut.Format(domain.DateLayout)
	if roomType.Valid {
		rt := roomType.String
		t.Booking.RoomType = &rt
	}
	if freeCancel.Valid {
		b := freeCancel.Bool
		t.Booking.FreeCancellation = &b
	}
	if brkfst.Valid {
		b := brkfst.Bool
		t.Booking.BreakfastIncluded = &b
	}
	if status.Valid && checkedAt.Valid {
		t.Last = &domain.TrackingResult{
			Status:    domain.ResultStatus(status.String),
			BestPrice: best.Float64,
			Provider:  provider.String,
			Link:      link.String,
			CheckedAt: checkedAt.Time,
		}
	}
	return t, nil
}
