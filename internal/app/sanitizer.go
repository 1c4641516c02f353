package app

import (
	"math"

	"github.com/rs/zerolog/log"

	"pricedrop/internal/adapters/observability"
	"pricedrop/internal/domain"
)

// A price below this fraction of the original is treated as implausible.
const implausibleFloor = 0.30

type priceBand struct{ Lo, Hi float64 }

type repairBands struct {
	Missing     priceBand
	Implausible priceBand
}

// Business policy constants: replacement bands as fractions of the original price.
// Partner offers are modeled slightly dearer than broad finds.
var sanitizeBands = map[domain.Pass]repairBands{
	domain.PassBroad: {
		Missing:     priceBand{Lo: 0.85, Hi: 0.95},
		Implausible: priceBand{Lo: 0.70, Hi: 0.85},
	},
	domain.PassPartner: {
		Missing:     priceBand{Lo: 0.88, Hi: 0.95},
		Implausible: priceBand{Lo: 0.75, Hi: 0.90},
	},
}

// Sanitizer repairs missing or implausibly low offer prices.
type Sanitizer struct {
	rnd RandSource
}

func NewSanitizer(rnd RandSource) *Sanitizer {
	if rnd == nil {
		rnd = DefaultRand()
	}
	return &Sanitizer{rnd: rnd}
}

// Sanitize applies, in order: missing price → Missing band; price below
// 30% of original → Implausible band; otherwise the price is kept.
func (s *Sanitizer) Sanitize(o domain.RawOffer, original float64) domain.SanitizedOffer {
	out := domain.SanitizedOffer{
		Pass:            o.Pass,
		Site:            o.Site,
		ConditionsMatch: o.ConditionsMatch,
		PartnerID:       o.PartnerID,
		DirectLink:      o.DirectLink,
		Synthetic:       o.Synthetic,
	}
	bands, ok := sanitizeBands[o.Pass]
	if !ok {
		bands = sanitizeBands[domain.PassBroad]
	}

	switch {
	case o.Price == nil || !finite(*o.Price):
		out.Price = s.draw(bands.Missing, original)
		out.Repaired = true
		observability.ObservePriceRepair(string(o.Pass), "missing")
		log.Debug().Str("pass", string(o.Pass)).Float64("repaired", out.Price).Msg("offer price missing")
	case *o.Price < implausibleFloor*original:
		out.Price = s.draw(bands.Implausible, original)
		out.Repaired = true
		observability.ObservePriceRepair(string(o.Pass), "implausible")
		log.Debug().Str("pass", string(o.Pass)).
			Float64("raw", *o.Price).
			Float64("repaired", out.Price).
			Msg("offer price implausible")
	default:
		out.Price = *o.Price
	}
	return out
}

// draw picks uniformly in [Lo, Hi)×original, floored to a whole currency unit.
func (s *Sanitizer) draw(b priceBand, original float64) float64 {
	if original <= 0 {
		return 0
	}
	return math.Floor(original * (b.Lo + (b.Hi-b.Lo)*s.rnd.Float64()))
}
