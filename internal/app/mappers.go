package app

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"pricedrop/internal/domain"
)

/********** alias registries (single source of truth) **********/

// Models drift on key names; these are the spellings seen in practice.
var offerAliases = map[string][]string{
	"site":       {"site", "site_name", "siteName", "provider", "source", "website", "offer.site"},
	"price":      {"price", "total_price", "totalPrice", "price.amount", "price.total", "offer.price"},
	"conditions": {"conditions_match", "conditionsMatch", "matches_conditions", "offer.conditions_match"},
	"partner":    {"partner_id", "partnerId", "partner"},
	"link":       {"direct_link", "directLink", "url", "link", "booking_url", "offer.url"},
}

var bookingAliases = map[string][]string{
	"hotel":        {"hotel_name", "hotelName", "hotel", "property_name"},
	"check_in":     {"check_in", "checkIn", "checkin", "arrival_date"},
	"check_out":    {"check_out", "checkOut", "checkout", "departure_date"},
	"price":        {"price", "total_price", "totalPrice", "price.amount"},
	"currency":     {"currency", "currency_code", "price.currency"},
	"room_type":    {"room_type", "roomType", "room"},
	"adults":       {"adults", "occupancy.adults", "guests.adults"},
	"children":     {"children", "occupancy.children", "guests.children"},
	"cancellation": {"free_cancellation", "freeCancellation", "is_refundable", "refundable"},
	"breakfast":    {"breakfast_included", "breakfastIncluded", "breakfast"},
	"policy":       {"cancellation_policy", "cancellationPolicy"},
	"meal_plan":    {"meal_plan", "mealPlan", "board"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := strings.TrimSpace(lookupStr(m, p)); s != "" {
			return s
		}
	}
	return ""
}

// priceFlexible: first usable number across paths. Accepts float64 and strings
// like "₪3,450" or "3450.00 ILS". Null, non-numeric and non-finite values are skipped.
func priceFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			if finite(v) {
				f := v
				return &f
			}
		case string:
			if f, ok := parseMoney(v); ok {
				return &f
			}
		}
	}
	return nil
}

// moneyToken is one number with its grouping separators. It starts and ends
// on a digit so that "approx." or a sentence-final period never joins it.
var moneyToken = regexp.MustCompile(`-?\d(?:[\d.,]*\d)?`)

// parseMoney reads a single amount out of free text. Strings with more than
// one number, or with separators that cannot be told apart, are rejected.
func parseMoney(s string) (float64, bool) {
	toks := moneyToken.FindAllString(s, -1)
	if len(toks) != 1 {
		return 0, false
	}
	tok := toks[0]
	neg := strings.HasPrefix(tok, "-")
	tok = strings.TrimPrefix(tok, "-")

	num, ok := normalizeAmount(tok)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || !finite(f) {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

// normalizeAmount rewrites "3,450.00", "3.450,00", "1.234.567" or "3450,5"
// into a plain decimal string. A lone dot before three digits is ambiguous.
func normalizeAmount(tok string) (string, bool) {
	dot, comma := strings.LastIndexByte(tok, '.'), strings.LastIndexByte(tok, ',')
	switch {
	case dot < 0 && comma < 0:
		return tok, true
	case dot >= 0 && comma >= 0:
		// the later separator is the decimal mark
		dec, grp := byte('.'), ","
		if comma > dot {
			dec, grp = ',', "."
		}
		i := strings.LastIndexByte(tok, dec)
		intPart, frac := tok[:i], tok[i+1:]
		if strings.ContainsAny(frac, ".,") || !grouped(intPart, grp) {
			return "", false
		}
		return strings.ReplaceAll(intPart, grp, "") + "." + frac, true
	default:
		sep := ","
		if dot >= 0 {
			sep = "."
		}
		parts := strings.Split(tok, sep)
		if len(parts) == 2 && len(parts[1]) != 3 {
			return parts[0] + "." + parts[1], true
		}
		if len(parts) == 2 && sep == "." {
			// "3.450" is either 3.45 or 3450
			return "", false
		}
		if !grouped(tok, sep) {
			return "", false
		}
		return strings.ReplaceAll(tok, sep, ""), true
	}
}

// grouped reports whether s is digits split into thousands by sep.
func grouped(s, sep string) bool {
	parts := strings.Split(s, sep)
	if len(parts) == 1 {
		return true
	}
	if len(parts[0]) == 0 || len(parts[0]) > 3 {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// boolFlexible: true/false from bools or "true"/"yes"/"false"/"no". nil when absent.
func boolFlexible(m map[string]any, paths ...string) *bool {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case bool:
			b := v
			return &b
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "yes", "y", "1":
				b := true
				return &b
			case "false", "no", "n", "0":
				b := false
				return &b
			}
		}
	}
	return nil
}

func intFlexible(m map[string]any, paths ...string) int {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			return int(v)
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n
			}
		}
	}
	return 0
}

/********** JSON extraction from model output **********/

// extractJSONObject pulls the object between the first '{' and the last '}'.
// When that span does not parse (prose with braces after the object, two objects),
// the first balanced object starting at the same '{' is tried instead.
func extractJSONObject(text string) (map[string]any, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return nil, domain.ParseError{Reason: "no JSON object in output"}
	}
	var out map[string]any
	err := json.Unmarshal([]byte(text[start:end+1]), &out)
	if err == nil {
		return out, nil
	}
	if span, ok := balancedObject(text[start:]); ok {
		if json.Unmarshal([]byte(span), &out) == nil {
			return out, nil
		}
	}
	return nil, domain.ParseError{Reason: "invalid JSON object", Err: err}
}

// balancedObject returns the first brace-balanced span of s, which must start with '{'.
// Braces inside string literals are ignored.
func balancedObject(s string) (string, bool) {
	depth := 0
	inStr, esc := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

/********** offer mapper **********/

func mapRawOffer(pass domain.Pass, p map[string]any, partners domain.PartnerCatalog) domain.RawOffer {
	o := domain.RawOffer{
		Pass:       pass,
		Site:       firstNonEmptyAlias(p, offerAliases, "site"),
		Price:      priceFlexible(p, offerAliases["price"]...),
		DirectLink: firstNonEmptyAlias(p, offerAliases, "link"),
	}
	if b := boolFlexible(p, offerAliases["conditions"]...); b != nil {
		o.ConditionsMatch = *b
	}
	if !strings.HasPrefix(o.DirectLink, "http://") && !strings.HasPrefix(o.DirectLink, "https://") {
		o.DirectLink = ""
	}

	if pass == domain.PassPartner {
		// The model's partner_id is a claim; trust it only if the catalog knows it,
		// otherwise map from the site name.
		id := firstNonEmptyAlias(p, offerAliases, "partner")
		if _, ok := partners.Lookup(id); !ok {
			id = partners.Resolve(o.Site)
		}
		o.PartnerID = strings.ToLower(id)
		if o.Site == "" {
			if pt, ok := partners.Lookup(o.PartnerID); ok {
				o.Site = pt.DisplayName
			}
		}
	}
	return o
}

/********** booking fields mapper **********/

func mapBookingFields(p map[string]any) domain.BookingFields {
	return domain.BookingFields{
		HotelName:          firstNonEmptyAlias(p, bookingAliases, "hotel"),
		CheckIn:            firstNonEmptyAlias(p, bookingAliases, "check_in"),
		CheckOut:           firstNonEmptyAlias(p, bookingAliases, "check_out"),
		Price:              priceFlexible(p, bookingAliases["price"]...),
		Currency:           strings.ToUpper(firstNonEmptyAlias(p, bookingAliases, "currency")),
		RoomType:           firstNonEmptyAlias(p, bookingAliases, "room_type"),
		Adults:             intFlexible(p, bookingAliases["adults"]...),
		Children:           intFlexible(p, bookingAliases["children"]...),
		FreeCancellation:   boolFlexible(p, bookingAliases["cancellation"]...),
		BreakfastIncluded:  boolFlexible(p, bookingAliases["breakfast"]...),
		CancellationPolicy: firstNonEmptyAlias(p, bookingAliases, "policy"),
		MealPlan:           firstNonEmptyAlias(p, bookingAliases, "meal_plan"),
	}
}
