package domain

type ResultStatus string

const (
	StatusNoSavings         ResultStatus = "NO_SAVINGS"
	StatusPartnerSavings    ResultStatus = "SAVINGS_FOUND_PARTNER"
	StatusCompetitorSavings ResultStatus = "SAVINGS_FOUND_COMPETITOR"
)

// ComparisonResult is the payload returned for one compare request.
// Fields past Message are only set when savings were found; the two flags are
// always serialized so a false conditions_match stays visible.
type ComparisonResult struct {
	Status        ResultStatus `json:"status"`
	OriginalPrice float64      `json:"original_price"`
	Currency      string       `json:"currency"`
	Conditions    Conditions   `json:"conditions"`
	Message       string       `json:"message,omitempty"`

	Provider        string         `json:"provider,omitempty"`
	NewPrice        float64        `json:"new_price,omitempty"`
	Savings         float64        `json:"savings,omitempty"`
	Link            string         `json:"link,omitempty"`
	IsAffiliate     bool           `json:"is_affiliate"`
	ConditionsMatch bool           `json:"conditions_match"`
	Warning         string         `json:"warning,omitempty"`
	Trace           *DecisionTrace `json:"trace,omitempty"`
}

// DecisionTrace is the business-logic trail behind a SAVINGS_FOUND result.
type DecisionTrace struct {
	BroadPrice        float64 `json:"broad_price"`
	PartnerPrice      float64 `json:"partner_price"`
	PartnerSavings    float64 `json:"partner_savings"`
	CompetitorSavings float64 `json:"competitor_savings"`
	SavingsGap        float64 `json:"savings_gap"`
	Threshold         float64 `json:"threshold"`
	ShowPartner       bool    `json:"show_partner"`
	Winner            Pass    `json:"winner"`
	Explanation       string  `json:"explanation"`
}

// BestPrice is the price a result points the user to; the original when nothing beat it.
func (r ComparisonResult) BestPrice() float64 {
	if r.Status == StatusNoSavings {
		return r.OriginalPrice
	}
	return r.NewPrice
}
