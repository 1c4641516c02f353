package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"pricedrop/internal/adapters/observability"
	"pricedrop/internal/domain"
)

type offerSource interface {
	SearchBroad(ctx context.Context, q domain.OfferQuery) domain.RawOffer
	SearchPartner(ctx context.Context, q domain.OfferQuery) domain.RawOffer
}

type linkComposer interface {
	Compose(o domain.SanitizedOffer, hotel, checkIn, checkOut string) Link
}

// CompareService runs both searches, repairs their prices, applies the fairness
// rule and links the winner.
type CompareService struct {
	offers offerSource
	san    *Sanitizer
	links  linkComposer
	decide func(original, partnerPrice, competitorPrice float64) domain.FairnessDecision
}

func NewCompareService(acq *AcquisitionService, san *Sanitizer, links *LinkComposer) *CompareService {
	return &CompareService{offers: acq, san: san, links: links, decide: Decide}
}

func (s *CompareService) Compare(ctx context.Context, b domain.BookingSnapshot) (domain.ComparisonResult, error) {
	if err := b.Validate(); err != nil {
		return domain.ComparisonResult{}, err
	}
	q := domain.NewOfferQuery(b)

	// The passes are independent; each absorbs its own failures.
	var broad, partner domain.RawOffer
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		broad = s.offers.SearchBroad(gctx, q)
		return nil
	})
	g.Go(func() error {
		partner = s.offers.SearchPartner(gctx, q)
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return domain.ComparisonResult{}, fmt.Errorf("compare aborted: %w", err)
	}

	competitor := s.san.Sanitize(broad, b.OriginalPrice)
	affiliate := s.san.Sanitize(partner, b.OriginalPrice)

	res := domain.ComparisonResult{
		OriginalPrice: b.OriginalPrice,
		Currency:      b.Currency,
		Conditions:    b.Conditions(),
	}

	if affiliate.Price >= b.OriginalPrice && competitor.Price >= b.OriginalPrice {
		res.Status = domain.StatusNoSavings
		res.Message = "Your booking is already the best price we could find."
		observability.ObserveDecision(string(res.Status))
		log.Info().
			Str("hotel", b.HotelName).
			Float64("original", b.OriginalPrice).
			Float64("partner", affiliate.Price).
			Float64("competitor", competitor.Price).
			Msg("no savings found")
		return res, nil
	}

	d := s.decide(b.OriginalPrice, affiliate.Price, competitor.Price)
	chosen, winner := competitor, domain.PassBroad
	res.Status = domain.StatusCompetitorSavings
	if d.ShowPartner {
		chosen, winner = affiliate, domain.PassPartner
		res.Status = domain.StatusPartnerSavings
	}

	link := s.links.Compose(chosen, b.HotelName, b.CheckIn, b.CheckOut)

	res.Provider = chosen.Site
	if res.Provider == "" {
		res.Provider = "Web search"
	}
	res.NewPrice = chosen.Price
	res.Savings = b.OriginalPrice - chosen.Price
	res.Link = link.URL
	res.IsAffiliate = link.Affiliate
	res.ConditionsMatch = chosen.ConditionsMatch
	if !chosen.ConditionsMatch {
		res.Warning = "This offer may not match your booking's room type, cancellation or breakfast terms. Check the details before booking."
	}
	res.Trace = &domain.DecisionTrace{
		BroadPrice:        competitor.Price,
		PartnerPrice:      affiliate.Price,
		PartnerSavings:    d.PartnerSavings,
		CompetitorSavings: d.CompetitorSavings,
		SavingsGap:        d.SavingsGap,
		Threshold:         d.Threshold,
		ShowPartner:       d.ShowPartner,
		Winner:            winner,
		Explanation:       d.Explanation,
	}

	observability.ObserveDecision(string(res.Status))
	log.Info().
		Str("hotel", b.HotelName).
		Str("status", string(res.Status)).
		Str("provider", res.Provider).
		Float64("original", b.OriginalPrice).
		Float64("new_price", res.NewPrice).
		Float64("gap", d.SavingsGap).
		Float64("threshold", d.Threshold).
		Bool("affiliate", res.IsAffiliate).
		Msg("comparison decided")
	return res, nil
}
