package app

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"pricedrop/internal/domain"
)

// Link is a bookable URL for the chosen offer.
type Link struct {
	URL       string
	Affiliate bool
}

// deepLink renders a site's search URL. Dates arrive as YYYY-MM-DD.
type deepLink func(hotel, checkIn, checkOut string) string

type siteTemplate struct {
	match []string // lower-case substrings of the site name
	build deepLink
}

func bookingCom(hotel, in, out string) string {
	return fmt.Sprintf("https://www.booking.com/searchresults.html?ss=%s&checkin=%s&checkout=%s",
		url.QueryEscape(hotel), in, out)
}

func agoda(hotel, in, out string) string {
	return fmt.Sprintf("https://www.agoda.com/search?textToSearch=%s&checkIn=%s&checkOut=%s",
		url.QueryEscape(hotel), in, out)
}

// hotels.com still honors its dash-separated legacy keys.
func hotelsCom(hotel, in, out string) string {
	return fmt.Sprintf("https://www.hotels.com/search.do?q-destination=%s&q-check-in=%s&q-check-out=%s",
		url.QueryEscape(hotel), in, out)
}

func expedia(hotel, in, out string) string {
	return fmt.Sprintf("https://www.expedia.com/Hotel-Search?destination=%s&startDate=%s&endDate=%s",
		url.QueryEscape(hotel), in, out)
}

func tripCom(hotel, in, out string) string {
	return fmt.Sprintf("https://www.trip.com/hotels/list?keyword=%s&checkin=%s&checkout=%s",
		url.QueryEscape(hotel), slashDate(in), slashDate(out))
}

// kayak takes everything as path segments.
func kayak(hotel, in, out string) string {
	return fmt.Sprintf("https://www.kayak.com/hotels/%s/%s/%s",
		url.PathEscape(hotel), in, out)
}

func slashDate(d string) string { return strings.ReplaceAll(d, "-", "/") }

// Order matters: first match wins.
var siteTemplates = []siteTemplate{
	{match: []string{"booking.com", "booking"}, build: bookingCom},
	{match: []string{"agoda"}, build: agoda},
	{match: []string{"hotels.com", "hotelscom", "hotels com"}, build: hotelsCom},
	{match: []string{"expedia"}, build: expedia},
	{match: []string{"trip.com", "tripcom", "ctrip"}, build: tripCom},
	{match: []string{"kayak"}, build: kayak},
}

// Affiliate deep links keyed by partner identifier.
var partnerTemplates = map[string]deepLink{
	"agoda":      agoda,
	"hotels_com": hotelsCom,
	"expedia":    expedia,
}

// LinkComposer turns a chosen offer into a URL. It never fails.
type LinkComposer struct {
	partners domain.PartnerCatalog
}

func NewLinkComposer(partners domain.PartnerCatalog) *LinkComposer {
	return &LinkComposer{partners: partners}
}

func (c *LinkComposer) Compose(o domain.SanitizedOffer, hotel, checkIn, checkOut string) Link {
	// a verified, condition-matching link from the search beats anything we build
	if o.DirectLink != "" && o.ConditionsMatch {
		return Link{URL: o.DirectLink}
	}

	if o.Pass == domain.PassPartner {
		if p, ok := c.partners.Lookup(o.PartnerID); ok {
			build, ok := partnerTemplates[p.ID]
			if !ok {
				build = func(h, in, out string) string { return directURL(p.DisplayName, h, in, out) }
			}
			return Link{URL: wrapTracking(p.TrackingBase, build(hotel, checkIn, checkOut)), Affiliate: true}
		}
		log.Warn().Str("partner_id", o.PartnerID).Msg("unknown partner id; building direct link")
	}
	return Link{URL: directURL(o.Site, hotel, checkIn, checkOut)}
}

func wrapTracking(base, target string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "url=" + url.QueryEscape(target)
}

// directURL picks the site's template, or a web search restricted to the site.
func directURL(site, hotel, checkIn, checkOut string) string {
	low := strings.ToLower(site)
	for _, t := range siteTemplates {
		for _, m := range t.match {
			if strings.Contains(low, m) {
				return t.build(hotel, checkIn, checkOut)
			}
		}
	}
	q := strings.TrimSpace(fmt.Sprintf("%s %s %s", hotel, checkIn, checkOut))
	if d := siteDomain(site); d != "" {
		q += " site:" + d
	}
	return "https://www.google.com/search?q=" + url.QueryEscape(q)
}

// siteDomain guesses a domain from a free-text site name: "Hostelworld" → "hostelworld.com".
func siteDomain(site string) string {
	s := strings.ToLower(strings.TrimSpace(site))
	if u, err := url.Parse(s); err == nil && u.Host != "" {
		s = u.Host
	}
	s = strings.TrimPrefix(s, "www.")
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		}
		return -1
	}, s)
	s = strings.Trim(s, ".-")
	if s == "" {
		return ""
	}
	if !strings.Contains(s, ".") {
		s += ".com"
	}
	return s
}
