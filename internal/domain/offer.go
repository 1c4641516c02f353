package domain

// Pass identifies which search produced an offer.
type Pass string

const (
	PassBroad   Pass = "broad"
	PassPartner Pass = "partner"
)

// RawOffer is the untrusted output of one acquisition pass.
// A nil Price means the model gave no usable number.
type RawOffer struct {
	Pass            Pass     `json:"pass"`
	Site            string   `json:"site"`
	Price           *float64 `json:"price"`
	ConditionsMatch bool     `json:"conditions_match"`
	PartnerID       string   `json:"partner_id,omitempty"`
	DirectLink      string   `json:"direct_link,omitempty"`
	Synthetic       bool     `json:"synthetic,omitempty"` // produced by the fallback path
}

// SanitizedOffer carries a finite, non-negative price.
type SanitizedOffer struct {
	Pass            Pass    `json:"pass"`
	Site            string  `json:"site"`
	Price           float64 `json:"price"`
	ConditionsMatch bool    `json:"conditions_match"`
	PartnerID       string  `json:"partner_id,omitempty"`
	DirectLink      string  `json:"direct_link,omitempty"`
	Synthetic       bool    `json:"synthetic,omitempty"`
	Repaired        bool    `json:"repaired,omitempty"`
}

// FairnessDecision is the outcome of comparing the partner and competitor offers.
type FairnessDecision struct {
	PartnerSavings    float64 `json:"partner_savings"`
	CompetitorSavings float64 `json:"competitor_savings"`
	SavingsGap        float64 `json:"savings_gap"`
	Threshold         float64 `json:"threshold"`
	ShowPartner       bool    `json:"show_partner"`
	Explanation       string  `json:"explanation"`
}
