package domain

import "strings"

// ApprovedPartner is a commission-paying booking site.
type ApprovedPartner struct {
	ID           string
	DisplayName  string
	TrackingBase string // commission-tracking redirect; target goes in ?url=
	Matches      []string
}

// PartnerCatalog is the fixed, ordered set of approved partners. Order matters:
// the first entry is the default for unrecognized site names.
type PartnerCatalog []ApprovedPartner

// DefaultPartners is the reference deployment's catalog.
func DefaultPartners() PartnerCatalog {
	return PartnerCatalog{
		{ID: "agoda", DisplayName: "Agoda", TrackingBase: "https://go.pricedrop.app/aff/agoda", Matches: []string{"agoda"}},
		{ID: "hotels_com", DisplayName: "Hotels.com", TrackingBase: "https://go.pricedrop.app/aff/hotels-com", Matches: []string{"hotels.com", "hotels com", "hotelscom"}},
		{ID: "expedia", DisplayName: "Expedia", TrackingBase: "https://go.pricedrop.app/aff/expedia", Matches: []string{"expedia"}},
	}
}

func (c PartnerCatalog) Lookup(id string) (ApprovedPartner, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, p := range c {
		if p.ID == id {
			return p, true
		}
	}
	return ApprovedPartner{}, false
}

// Resolve maps a free-text site name onto a catalog identifier by substring,
// defaulting to the first entry.
func (c PartnerCatalog) Resolve(site string) string {
	if len(c) == 0 {
		return ""
	}
	low := strings.ToLower(site)
	for _, p := range c {
		for _, m := range p.Matches {
			if strings.Contains(low, m) {
				return p.ID
			}
		}
	}
	return c[0].ID
}

func (c PartnerCatalog) DisplayNames() []string {
	out := make([]string, 0, len(c))
	for _, p := range c {
		out = append(out, p.DisplayName)
	}
	return out
}
