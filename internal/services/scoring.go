package services

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"

	"vantagebuild/proposal-engine/internal/models"
)

// DeterministicScore is the locked per-proposal verdict computed before the
// narrative stage. The narrative stage must echo these values; the
// reconciler re-applies them regardless.
type DeterministicScore struct {
	ProposalID        uuid.UUID
	CoverageScore     int
	PriceScore        *int
	FinalScore        int
	Rank              int
	Recommendation    string
	KnockedOut        bool
	KnockoutReason    string
	KnockoutCategory  models.KnockoutCategory
	DataCompleteness  float64
	MissingFeeItems   []string
	MissingScopeItems []string
	CoveredMandatory  int
	TotalMandatory    int
}

// Recommendation bands, applied after knockout forcing.
const (
	RecommendationHigh   = "Highly Recommended"
	RecommendationMedium = "Recommended"
	RecommendationReview = "Review Required"
	RecommendationLow    = "Not Recommended"
)

const (
	coverageWeight = 0.7
	priceWeight    = 0.3
)

// ScoreProposals computes the full deterministic verdict for a batch. The
// result is ordered by rank (final score desc, proposal id asc).
func ScoreProposals(catalog RequirementCatalog, bundles []ProposalBundle, pre *PrecheckResult, mode models.EvaluationMode) []DeterministicScore {
	scores := make([]DeterministicScore, 0, len(bundles))

	priceScores := normalizePrices(bundles, mode)

	for _, bundle := range bundles {
		score := scoreOne(catalog, bundle, pre, mode, priceScores[bundle.Proposal.ID])
		scores = append(scores, score)
	}

	rankScores(scores)
	return scores
}

func scoreOne(catalog RequirementCatalog, bundle ProposalBundle, pre *PrecheckResult, mode models.EvaluationMode, priceScore *int) DeterministicScore {
	proposal := bundle.Proposal

	covered, missingFee, missingScope := requirementCoverage(catalog, proposal)
	total := len(catalog.MandatoryFeeItems()) + len(catalog.MandatoryScopeItems())

	coverage := 100
	if total > 0 {
		coverage = clampScore(math.Round(100 * float64(covered) / float64(total)))
	}

	score := DeterministicScore{
		ProposalID:        proposal.ID,
		CoverageScore:     coverage,
		PriceScore:        priceScore,
		DataCompleteness:  dataCompleteness(proposal),
		MissingFeeItems:   missingFee,
		MissingScopeItems: missingScope,
		CoveredMandatory:  covered,
		TotalMandatory:    total,
	}

	missing := total - covered
	switch {
	case pre != nil && pre.HardViolation[proposal.ID]:
		score.KnockedOut = true
		score.KnockoutCategory = models.KnockoutPolicy
		score.KnockoutReason = pre.FirstHardMessage(proposal.ID)
	case total > 0 && missing*2 > total:
		score.KnockedOut = true
		score.KnockoutCategory = models.KnockoutCoverage
		score.KnockoutReason = "majority of mandatory items missing from the proposal"
	}

	if score.KnockedOut {
		score.FinalScore = 0
	} else if mode == models.ModeCompare {
		price := 0.0
		if priceScore != nil {
			price = float64(*priceScore)
		}
		score.FinalScore = clampScore(math.Round(coverageWeight*float64(coverage) + priceWeight*price))
	} else {
		score.FinalScore = coverage
	}

	score.Recommendation = recommendationFor(score.FinalScore)
	return score
}

// requirementCoverage matches mandatory fee items by id first, then by
// normalized description, and mandatory scope items by selected-service id
// membership.
func requirementCoverage(catalog RequirementCatalog, proposal models.Proposal) (covered int, missingFee, missingScope []string) {
	lineByFeeID := make(map[uuid.UUID]bool)
	lineByDesc := make(map[string]bool)
	for _, line := range proposal.FeeLineItems {
		if line.FeeItemID != nil {
			lineByFeeID[*line.FeeItemID] = true
		}
		if desc := normalizeDescription(line.Description); desc != "" {
			lineByDesc[desc] = true
		}
	}

	for _, item := range catalog.MandatoryFeeItems() {
		if lineByFeeID[item.ID] || lineByDesc[normalizeDescription(item.Description)] {
			covered++
		} else {
			missingFee = append(missingFee, item.Description)
		}
	}

	selected := make(map[uuid.UUID]bool)
	for _, s := range proposal.SelectedServices {
		selected[s.ScopeItemID] = true
	}
	for _, item := range catalog.MandatoryScopeItems() {
		if selected[item.ID] {
			covered++
		} else {
			missingScope = append(missingScope, item.TaskName)
		}
	}

	return covered, missingFee, missingScope
}

// normalizeDescription lower-cases, trims and collapses whitespace so that
// supplier line items match catalog descriptions despite formatting drift.
func normalizeDescription(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// normalizePrices min-max normalizes prices across the batch in compare
// mode: cheapest 100, most expensive 0, all-equal 100. Proposals with a
// non-positive price are excluded and get no price score.
func normalizePrices(bundles []ProposalBundle, mode models.EvaluationMode) map[uuid.UUID]*int {
	result := make(map[uuid.UUID]*int, len(bundles))
	if mode != models.ModeCompare {
		return result
	}

	var min, max float64
	first := true
	for _, b := range bundles {
		if b.Proposal.Price <= 0 {
			continue
		}
		if first {
			min, max = b.Proposal.Price, b.Proposal.Price
			first = false
			continue
		}
		if b.Proposal.Price < min {
			min = b.Proposal.Price
		}
		if b.Proposal.Price > max {
			max = b.Proposal.Price
		}
	}
	if first {
		return result
	}

	for _, b := range bundles {
		price := b.Proposal.Price
		if price <= 0 {
			continue
		}
		score := 100
		if max > min {
			score = clampScore(math.Round(100 * (max - price) / (max - min)))
		}
		s := score
		result[b.Proposal.ID] = &s
	}
	return result
}

// completenessSignals are the seven weighted presence checks behind the
// data-completeness confidence weight.
var completenessSignals = []struct {
	weight  float64
	present func(p models.Proposal) bool
}{
	{0.18, func(p models.Proposal) bool { return p.Price > 0 }},
	{0.08, func(p models.Proposal) bool { return p.TimelineDays > 0 }},
	{0.20, func(p models.Proposal) bool {
		return len(strings.TrimSpace(p.ScopeText)) > 50 || len(strings.TrimSpace(p.ExtractedText)) > 50
	}},
	{0.08, func(p models.Proposal) bool { return strings.TrimSpace(p.Terms) != "" }},
	{0.22, func(p models.Proposal) bool { return len(p.FeeLineItems) > 0 }},
	{0.12, func(p models.Proposal) bool { return len(p.SelectedServices) > 0 }},
	{0.12, func(p models.Proposal) bool { return len(p.MilestoneAdjustments) > 0 }},
}

func dataCompleteness(proposal models.Proposal) float64 {
	var total float64
	for _, signal := range completenessSignals {
		if signal.present(proposal) {
			total += signal.weight
		}
	}
	return math.Round(total*100) / 100
}

func recommendationFor(finalScore int) string {
	switch {
	case finalScore >= 80:
		return RecommendationHigh
	case finalScore >= 60:
		return RecommendationMedium
	case finalScore >= 40:
		return RecommendationReview
	default:
		return RecommendationLow
	}
}

// rankScores orders by final score descending with proposal id as the
// deterministic tiebreak, then assigns 1-based ranks. A knocked-out
// proposal scores 0 and therefore never outranks a surviving one.
func rankScores(scores []DeterministicScore) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].FinalScore != scores[j].FinalScore {
			return scores[i].FinalScore > scores[j].FinalScore
		}
		return strings.Compare(scores[i].ProposalID.String(), scores[j].ProposalID.String()) < 0
	})
	for i := range scores {
		scores[i].Rank = i + 1
	}
}

func clampScore(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}
