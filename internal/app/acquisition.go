package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"pricedrop/internal/adapters/observability"
	"pricedrop/internal/domain"
)

const (
	DefaultSearchTimeout   = 45 * time.Second
	DefaultAnalysisTimeout = 30 * time.Second
)

// Fallback offers are priced at a fraction of the original booking price.
// Policy constants, not derived from data.
const (
	fallbackPriceMin = 0.90
	fallbackPriceMax = 1.10
)

var fallbackSites = []string{"Booking.com", "Agoda", "Hotels.com", "Expedia", "Trip.com"}

const broadPrompt = `You are a hotel price researcher. Search the web for the current price of this stay.

Hotel: %s
Check-in: %s
Check-out: %s
Currency: %s
Conditions the offer must match: %s

Check major booking sites such as Booking.com, Agoda, Hotels.com, Expedia and Trip.com, but do not limit yourself to them.
Find the single cheapest offer for the whole stay that matches the conditions.

Return exactly one JSON object and nothing else:
{"site": "<site name>", "price": <total price for the stay in %s as a number, or null if unknown>, "conditions_match": <true if every condition is met, else false>, "direct_link": "<URL of the offer, or empty string>"}`

const partnerPrompt = `You are a hotel price researcher. Search ONLY these booking sites: %s. Ignore every other site.

Hotel: %s
Check-in: %s
Check-out: %s
Currency: %s
Conditions the offer must match: %s

Find the single cheapest offer for the whole stay on those sites that matches the conditions.
Set "partner_id" from the site name: %s. If the site matches none of these, use "%s".

Return exactly one JSON object and nothing else:
{"site": "<site name>", "partner_id": "<partner id>", "price": <total price for the stay in %s as a number, or null if unknown>, "conditions_match": <true if every condition is met, else false>, "direct_link": "<URL of the offer, or empty string>"}`

// AcquisitionService asks the inference capability for one offer per pass.
// It never fails: upstream and parse errors become a synthetic offer.
type AcquisitionService struct {
	llm      domain.InferenceClient
	partners domain.PartnerCatalog
	rnd      RandSource
	timeout  time.Duration
}

func NewAcquisitionService(llm domain.InferenceClient, partners domain.PartnerCatalog, rnd RandSource, timeout time.Duration) *AcquisitionService {
	if rnd == nil {
		rnd = DefaultRand()
	}
	if timeout <= 0 {
		timeout = DefaultSearchTimeout
	}
	return &AcquisitionService{llm: llm, partners: partners, rnd: rnd, timeout: timeout}
}

// SearchBroad looks for the cheapest matching offer anywhere on the web.
func (s *AcquisitionService) SearchBroad(ctx context.Context, q domain.OfferQuery) domain.RawOffer {
	prompt := fmt.Sprintf(broadPrompt,
		q.HotelName, q.CheckIn, q.CheckOut, q.Currency, q.ConstraintText(), q.Currency)
	return s.search(ctx, domain.PassBroad, q, prompt)
}

// SearchPartner looks for the cheapest matching offer on the approved partners only.
func (s *AcquisitionService) SearchPartner(ctx context.Context, q domain.OfferQuery) domain.RawOffer {
	prompt := fmt.Sprintf(partnerPrompt,
		strings.Join(s.partners.DisplayNames(), ", "),
		q.HotelName, q.CheckIn, q.CheckOut, q.Currency, q.ConstraintText(),
		s.partnerRule(), s.defaultPartnerID(), q.Currency)
	return s.search(ctx, domain.PassPartner, q, prompt)
}

func (s *AcquisitionService) search(ctx context.Context, pass domain.Pass, q domain.OfferQuery, prompt string) domain.RawOffer {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	text, err := s.llm.Generate(ctx, domain.InferenceRequest{Prompt: prompt, WebSearch: true})
	if err != nil {
		log.Warn().Err(err).
			Str("pass", string(pass)).
			Str("hotel", q.HotelName).
			Bool("timeout", errors.Is(err, context.DeadlineExceeded)).
			Dur("elapsed", time.Since(start)).
			Msg("offer search failed; using fallback offer")
		observability.ObserveFallback(string(pass), "upstream")
		return s.fallback(pass, q)
	}

	obj, err := extractJSONObject(text)
	if err != nil {
		log.Warn().Err(err).
			Str("pass", string(pass)).
			Str("hotel", q.HotelName).
			Int("output_len", len(text)).
			Msg("offer output unparseable; using fallback offer")
		observability.ObserveFallback(string(pass), "parse")
		return s.fallback(pass, q)
	}

	o := mapRawOffer(pass, obj, s.partners)
	log.Debug().
		Str("pass", string(pass)).
		Str("site", o.Site).
		Bool("price_known", o.Price != nil).
		Bool("conditions_match", o.ConditionsMatch).
		Dur("elapsed", time.Since(start)).
		Msg("offer acquired")
	return o
}

// fallback builds the synthetic offer used when a pass fails.
func (s *AcquisitionService) fallback(pass domain.Pass, q domain.OfferQuery) domain.RawOffer {
	frac := fallbackPriceMin + (fallbackPriceMax-fallbackPriceMin)*s.rnd.Float64()
	price := math.Floor(q.OriginalPrice * frac)
	o := domain.RawOffer{
		Pass:      pass,
		Price:     &price,
		Synthetic: true,
	}
	if pass == domain.PassPartner && len(s.partners) > 0 {
		o.PartnerID = s.partners[0].ID
		o.Site = s.partners[0].DisplayName
		return o
	}
	o.Site = fallbackSites[s.rnd.IntN(len(fallbackSites))]
	return o
}

func (s *AcquisitionService) partnerRule() string {
	rules := make([]string, 0, len(s.partners))
	for _, p := range s.partners {
		m := strings.ToLower(p.DisplayName)
		if len(p.Matches) > 0 {
			m = p.Matches[0]
		}
		rules = append(rules, fmt.Sprintf("a site containing %q is %q", m, p.ID))
	}
	return strings.Join(rules, ", ")
}

func (s *AcquisitionService) defaultPartnerID() string {
	if len(s.partners) == 0 {
		return ""
	}
	return s.partners[0].ID
}
