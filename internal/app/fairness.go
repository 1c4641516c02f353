package app

import (
	"fmt"
	"math"

	"pricedrop/internal/domain"
)

// FairnessRatio caps how much of the partner's own savings the user may forgo
// so that the commission-paying offer is shown.
const FairnessRatio = 0.40

// Decide compares the partner and competitor prices against the original.
// The partner wins unless the competitor saves more than 40% of the partner's
// savings on top of them. Callers handle the case where neither beats the original.
func Decide(original, partnerPrice, competitorPrice float64) domain.FairnessDecision {
	ps := original - partnerPrice
	cs := original - competitorPrice
	gap := cs - ps
	threshold := math.Round(FairnessRatio * ps)
	show := gap <= threshold

	var why string
	if show {
		why = fmt.Sprintf("partner offer kept: competitor saves %.0f more, within the %.0f allowance (40%% of partner savings %.0f)",
			gap, threshold, ps)
	} else {
		why = fmt.Sprintf("competitor offer shown: it saves %.0f more, above the %.0f allowance (40%% of partner savings %.0f)",
			gap, threshold, ps)
	}
	return domain.FairnessDecision{
		PartnerSavings:    ps,
		CompetitorSavings: cs,
		SavingsGap:        gap,
		Threshold:         threshold,
		ShowPartner:       show,
		Explanation:       why,
	}
}
