package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"pricedrop/internal/app"
	"pricedrop/internal/domain"
)

func newAcquisition(llm domain.InferenceClient) *app.AcquisitionService {
	return app.NewAcquisitionService(llm, domain.DefaultPartners(), app.SeededRand(7), time.Second)
}

func query() domain.OfferQuery {
	b := booking(4000)
	b.BreakfastIncluded = ptr(true)
	return domain.NewOfferQuery(b)
}

func TestSearchBroad_ParsesJSONInsideProse(t *testing.T) {
	llm := &fakeLLM{broad: "Sure! I checked several sites.\n```json\n" +
		`{"site": "Booking.com", "price": 3450, "conditions_match": true, "direct_link": "https://www.booking.com/hotel/il/dan.html"}` +
		"\n```\nLet me know if you need anything else."}
	o := newAcquisition(llm).SearchBroad(context.Background(), query())

	if o.Synthetic || o.Pass != domain.PassBroad {
		t.Fatalf("unexpected offer %+v", o)
	}
	if o.Site != "Booking.com" || o.Price == nil || *o.Price != 3450 || !o.ConditionsMatch {
		t.Fatalf("unexpected offer %+v", o)
	}
	if o.DirectLink != "https://www.booking.com/hotel/il/dan.html" {
		t.Fatalf("unexpected link %q", o.DirectLink)
	}

	reqs := llm.requests()
	if len(reqs) != 1 || !reqs[0].WebSearch || reqs[0].Attachment != nil {
		t.Fatalf("unexpected requests %+v", reqs)
	}
	p := reqs[0].Prompt
	for _, want := range []string{"Hotel Dan Tel Aviv", "2025-03-01", "2025-03-04", "ILS", "breakfast must be included"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestSearchBroad_NullAndStringPrices(t *testing.T) {
	o := newAcquisition(&fakeLLM{broad: `{"site":"Agoda","price":null,"conditions_match":false}`}).
		SearchBroad(context.Background(), query())
	if o.Synthetic || o.Price != nil || o.Site != "Agoda" {
		t.Fatalf("null price should stay unknown: %+v", o)
	}

	o = newAcquisition(&fakeLLM{broad: `{"site":"Agoda","total_price":"₪3,450.50"}`}).
		SearchBroad(context.Background(), query())
	if o.Price == nil || *o.Price != 3450.5 {
		t.Fatalf("money string not parsed: %+v", o)
	}

	o = newAcquisition(&fakeLLM{broad: `{"site":"Agoda","price":"call us"}`}).
		SearchBroad(context.Background(), query())
	if o.Price != nil {
		t.Fatalf("unparseable price should be unknown: %v", *o.Price)
	}
}

func TestSearchBroad_DropsNonHTTPLinks(t *testing.T) {
	o := newAcquisition(&fakeLLM{broad: `{"site":"Agoda","price":3000,"conditions_match":true,"direct_link":"javascript:alert(1)"}`}).
		SearchBroad(context.Background(), query())
	if o.DirectLink != "" {
		t.Fatalf("expected link dropped, got %q", o.DirectLink)
	}
}

func TestSearch_UpstreamErrorYieldsFallback(t *testing.T) {
	llm := &fakeLLM{err: errors.New("boom")}
	acq := app.NewAcquisitionService(llm, domain.DefaultPartners(), fixedRand{f: 0.25, n: 3}, time.Second)

	o := acq.SearchBroad(context.Background(), query())
	if !o.Synthetic || o.Price == nil || *o.Price < 3600 || *o.Price > 4400 {
		t.Fatalf("unexpected fallback %+v", o)
	}
	if o.Site != "Expedia" {
		t.Fatalf("expected site picked by IntN, got %q", o.Site)
	}

	p := acq.SearchPartner(context.Background(), query())
	if !p.Synthetic || p.PartnerID != "agoda" || p.Site != "Agoda" || p.Pass != domain.PassPartner {
		t.Fatalf("unexpected partner fallback %+v", p)
	}
}

func TestSearch_UnparseableOutputYieldsFallback(t *testing.T) {
	for _, text := range []string{"", "no offers found", "{not json}", `{"site": "Agoda", "price": 12`} {
		o := newAcquisition(&fakeLLM{broad: text}).SearchBroad(context.Background(), query())
		if !o.Synthetic || o.Price == nil {
			t.Fatalf("%q: expected synthetic offer, got %+v", text, o)
		}
	}
}

func TestSearch_TimeoutYieldsFallback(t *testing.T) {
	acq := app.NewAcquisitionService(&fakeLLM{block: true}, domain.DefaultPartners(), app.SeededRand(1), 20*time.Millisecond)
	start := time.Now()
	o := acq.SearchPartner(context.Background(), query())
	if !o.Synthetic {
		t.Fatalf("expected synthetic offer, got %+v", o)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("search did not honor its timeout")
	}
}

func TestSearchPartner_MapsPartnerIdentifier(t *testing.T) {
	cases := []struct {
		text string
		id   string
		site string
	}{
		{`{"site":"Expedia","partner_id":"EXPEDIA","price":3700}`, "expedia", "Expedia"},
		{`{"site":"Hotels.com Israel","partner_id":"booking","price":3700}`, "hotels_com", "Hotels.com Israel"},
		{`{"site":"Some OTA","price":3700}`, "agoda", "Some OTA"},
		{`{"partner_id":"hotels_com","price":3700}`, "hotels_com", "Hotels.com"},
	}
	for _, tc := range cases {
		o := newAcquisition(&fakeLLM{partner: tc.text}).SearchPartner(context.Background(), query())
		if o.PartnerID != tc.id || o.Site != tc.site {
			t.Fatalf("%s: got id=%q site=%q", tc.text, o.PartnerID, o.Site)
		}
	}
}

func TestSearchPartner_PromptNamesOnlyPartners(t *testing.T) {
	llm := &fakeLLM{partner: `{"site":"Agoda","partner_id":"agoda","price":3700}`}
	newAcquisition(llm).SearchPartner(context.Background(), query())
	p := llm.requests()[0].Prompt
	if !strings.Contains(p, "Agoda, Hotels.com, Expedia") {
		t.Fatalf("prompt does not list partners:\n%s", p)
	}
}
