package services

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"vantagebuild/proposal-engine/internal/models"
)

// buildCatalog returns a catalog with the given number of mandatory fee
// items followed by one optional fee item and the given mandatory scope
// items.
func buildCatalog(mandatoryFees, mandatoryScopes int) RequirementCatalog {
	invite := models.RfpInvite{ID: uuid.New(), RfpID: uuid.New(), AdvisorType: "quantity_surveyor"}
	catalog := RequirementCatalog{Invite: invite}
	for i := 0; i < mandatoryFees; i++ {
		catalog.FeeItems = append(catalog.FeeItems, models.FeeItem{
			ID:          uuid.New(),
			InviteID:    invite.ID,
			Description: "Fee item " + string(rune('A'+i)),
			Position:    i,
		})
	}
	catalog.FeeItems = append(catalog.FeeItems, models.FeeItem{
		ID:          uuid.New(),
		InviteID:    invite.ID,
		Description: "Optional extra",
		Optional:    true,
		Position:    mandatoryFees,
	})
	for i := 0; i < mandatoryScopes; i++ {
		catalog.ScopeItems = append(catalog.ScopeItems, models.ScopeItem{
			ID:       uuid.New(),
			InviteID: invite.ID,
			TaskName: "Task " + string(rune('A'+i)),
			Position: i,
		})
	}
	return catalog
}

// fullBundle builds a proposal answering every mandatory item in the
// catalog, priced as given.
func fullBundle(catalog RequirementCatalog, price float64) ProposalBundle {
	proposal := models.Proposal{
		ID:           uuid.New(),
		SupplierName: "Acme Consulting",
		Price:        price,
		Currency:     "EUR",
		TimelineDays: 90,
		ScopeText:    "Full quantity surveying services for the development, including cost planning and reporting.",
		Terms:        "Payment within 30 days of invoice.",
		Status:       models.ProposalSubmitted,
		Version:      1,
	}
	for _, item := range catalog.MandatoryFeeItems() {
		id := item.ID
		proposal.FeeLineItems = append(proposal.FeeLineItems, models.FeeLineItem{
			ID:          uuid.New(),
			ProposalID:  proposal.ID,
			FeeItemID:   &id,
			Description: item.Description,
			Amount:      price / 4,
		})
	}
	for _, item := range catalog.MandatoryScopeItems() {
		proposal.SelectedServices = append(proposal.SelectedServices, models.SelectedService{
			ID:          uuid.New(),
			ProposalID:  proposal.ID,
			ScopeItemID: item.ID,
		})
	}
	proposal.MilestoneAdjustments = []models.MilestoneAdjustment{
		{ID: uuid.New(), ProposalID: proposal.ID, Label: "Completion", Percent: 100},
	}
	return ProposalBundle{
		Proposal: proposal,
		Advisor:  models.Advisor{ID: uuid.New(), CompanyName: "Acme Consulting"},
		Invite:   catalog.Invite,
	}
}

func emptyPrecheck() *PrecheckResult {
	return &PrecheckResult{
		Violations:    make(map[uuid.UUID][]models.PolicyViolation),
		HardViolation: make(map[uuid.UUID]bool),
	}
}

func TestScoreProposalsCompareWeighting(t *testing.T) {
	catalog := buildCatalog(4, 0)

	// A answers everything but is twice as expensive; B answers half and
	// is the cheapest.
	bundleA := fullBundle(catalog, 200000)
	bundleB := fullBundle(catalog, 100000)
	bundleB.Proposal.FeeLineItems = bundleB.Proposal.FeeLineItems[:2]

	scores := ScoreProposals(catalog, []ProposalBundle{bundleA, bundleB}, emptyPrecheck(), models.ModeCompare)
	if len(scores) != 2 {
		t.Fatalf("ScoreProposals() returned %d scores, want 2", len(scores))
	}

	byID := map[uuid.UUID]DeterministicScore{}
	for _, s := range scores {
		byID[s.ProposalID] = s
	}

	scoreA := byID[bundleA.Proposal.ID]
	scoreB := byID[bundleB.Proposal.ID]

	// A: coverage 100, price 0 -> 0.7*100 + 0.3*0 = 70
	if scoreA.FinalScore != 70 {
		t.Errorf("proposal A final score = %d, want 70", scoreA.FinalScore)
	}
	// B: coverage 50, price 100 -> 0.7*50 + 0.3*100 = 65
	if scoreB.FinalScore != 65 {
		t.Errorf("proposal B final score = %d, want 65", scoreB.FinalScore)
	}
	if scoreA.Rank != 1 || scoreB.Rank != 2 {
		t.Errorf("ranks = (%d, %d), want (1, 2)", scoreA.Rank, scoreB.Rank)
	}
	if scoreA.Recommendation != RecommendationMedium {
		t.Errorf("proposal A recommendation = %q, want %q", scoreA.Recommendation, RecommendationMedium)
	}
	if len(scoreB.MissingFeeItems) != 2 {
		t.Errorf("proposal B missing fee items = %d, want 2", len(scoreB.MissingFeeItems))
	}
}

func TestScoreProposalsSingleModeIgnoresPrice(t *testing.T) {
	catalog := buildCatalog(3, 1)
	bundle := fullBundle(catalog, 50000)

	scores := ScoreProposals(catalog, []ProposalBundle{bundle}, emptyPrecheck(), models.ModeSingle)
	if len(scores) != 1 {
		t.Fatalf("ScoreProposals() returned %d scores, want 1", len(scores))
	}
	if scores[0].PriceScore != nil {
		t.Errorf("single-mode price score = %v, want nil", *scores[0].PriceScore)
	}
	if scores[0].FinalScore != scores[0].CoverageScore {
		t.Errorf("single-mode final score = %d, want coverage %d", scores[0].FinalScore, scores[0].CoverageScore)
	}
	if scores[0].FinalScore != 100 {
		t.Errorf("final score = %d, want 100", scores[0].FinalScore)
	}
}

func TestScoreProposalsPolicyKnockout(t *testing.T) {
	catalog := buildCatalog(4, 0)
	bundle := fullBundle(catalog, 100000)

	pre := emptyPrecheck()
	pre.Violations[bundle.Proposal.ID] = []models.PolicyViolation{{
		ProposalID: bundle.Proposal.ID,
		Type:       models.ViolationCurrency,
		Message:    "currency GBP is not accepted by the owner's organization",
	}}
	pre.HardViolation[bundle.Proposal.ID] = true

	scores := ScoreProposals(catalog, []ProposalBundle{bundle}, pre, models.ModeSingle)
	got := scores[0]

	if !got.KnockedOut {
		t.Fatal("expected proposal to be knocked out")
	}
	if got.FinalScore != 0 {
		t.Errorf("knocked-out final score = %d, want 0", got.FinalScore)
	}
	if got.KnockoutCategory != models.KnockoutPolicy {
		t.Errorf("knockout category = %q, want %q", got.KnockoutCategory, models.KnockoutPolicy)
	}
	if got.Recommendation != RecommendationLow {
		t.Errorf("recommendation = %q, want %q", got.Recommendation, RecommendationLow)
	}
	// Coverage is still reported for the reviewer even after knockout.
	if got.CoverageScore != 100 {
		t.Errorf("coverage score = %d, want 100", got.CoverageScore)
	}
}

func TestScoreProposalsCoverageKnockout(t *testing.T) {
	catalog := buildCatalog(4, 0)
	bundle := fullBundle(catalog, 100000)
	// Answer only 1 of 4 mandatory items: 3 missing, strictly more than half.
	bundle.Proposal.FeeLineItems = bundle.Proposal.FeeLineItems[:1]

	scores := ScoreProposals(catalog, []ProposalBundle{bundle}, emptyPrecheck(), models.ModeSingle)
	got := scores[0]

	if !got.KnockedOut {
		t.Fatal("expected coverage knockout")
	}
	if got.KnockoutCategory != models.KnockoutCoverage {
		t.Errorf("knockout category = %q, want %q", got.KnockoutCategory, models.KnockoutCoverage)
	}
	if got.FinalScore != 0 {
		t.Errorf("final score = %d, want 0", got.FinalScore)
	}
}

func TestScoreProposalsExactlyHalfMissingSurvives(t *testing.T) {
	catalog := buildCatalog(4, 0)
	bundle := fullBundle(catalog, 100000)
	// 2 of 4 missing is exactly half, not a majority.
	bundle.Proposal.FeeLineItems = bundle.Proposal.FeeLineItems[:2]

	scores := ScoreProposals(catalog, []ProposalBundle{bundle}, emptyPrecheck(), models.ModeSingle)
	if scores[0].KnockedOut {
		t.Fatal("half-missing proposal should not be knocked out")
	}
	if scores[0].FinalScore != 50 {
		t.Errorf("final score = %d, want 50", scores[0].FinalScore)
	}
}

func TestRequirementCoverageMatchesByDescription(t *testing.T) {
	catalog := buildCatalog(2, 0)
	bundle := fullBundle(catalog, 100000)

	// Drop the catalog ids and rely on description matching with
	// formatting drift.
	for i := range bundle.Proposal.FeeLineItems {
		bundle.Proposal.FeeLineItems[i].FeeItemID = nil
		bundle.Proposal.FeeLineItems[i].Description = "  " + strings.ToUpper(bundle.Proposal.FeeLineItems[i].Description) + "  "
	}

	covered, missingFee, _ := requirementCoverage(catalog, bundle.Proposal)
	if covered != 2 {
		t.Errorf("covered = %d, want 2 (missing: %v)", covered, missingFee)
	}
}

func TestNormalizePricesAllEqual(t *testing.T) {
	catalog := buildCatalog(2, 0)
	a := fullBundle(catalog, 75000)
	b := fullBundle(catalog, 75000)

	prices := normalizePrices([]ProposalBundle{a, b}, models.ModeCompare)
	for _, bundle := range []ProposalBundle{a, b} {
		score := prices[bundle.Proposal.ID]
		if score == nil || *score != 100 {
			t.Errorf("equal-price score = %v, want 100", score)
		}
	}
}

func TestNormalizePricesExcludesNonPositive(t *testing.T) {
	catalog := buildCatalog(2, 0)
	priced := fullBundle(catalog, 50000)
	unpriced := fullBundle(catalog, 0)

	prices := normalizePrices([]ProposalBundle{priced, unpriced}, models.ModeCompare)
	if prices[unpriced.Proposal.ID] != nil {
		t.Errorf("unpriced proposal got price score %v, want nil", *prices[unpriced.Proposal.ID])
	}
	if score := prices[priced.Proposal.ID]; score == nil || *score != 100 {
		t.Errorf("sole priced proposal score = %v, want 100", score)
	}
}

func TestDataCompletenessWeights(t *testing.T) {
	catalog := buildCatalog(2, 1)
	full := fullBundle(catalog, 100000)
	if got := dataCompleteness(full.Proposal); got != 1.0 {
		t.Errorf("full proposal completeness = %v, want 1.0", got)
	}

	empty := models.Proposal{ID: uuid.New()}
	if got := dataCompleteness(empty); got != 0 {
		t.Errorf("empty proposal completeness = %v, want 0", got)
	}

	// Price and fee lines only: 0.18 + 0.22.
	partial := models.Proposal{
		ID:    uuid.New(),
		Price: 100,
		FeeLineItems: []models.FeeLineItem{
			{ID: uuid.New(), Description: "x", Amount: 100},
		},
	}
	if got := dataCompleteness(partial); got != 0.4 {
		t.Errorf("partial proposal completeness = %v, want 0.4", got)
	}
}

func TestRecommendationBands(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{100, RecommendationHigh},
		{80, RecommendationHigh},
		{79, RecommendationMedium},
		{60, RecommendationMedium},
		{59, RecommendationReview},
		{40, RecommendationReview},
		{39, RecommendationLow},
		{0, RecommendationLow},
	}
	for _, tc := range cases {
		if got := recommendationFor(tc.score); got != tc.want {
			t.Errorf("recommendationFor(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestRankScoresDeterministicTiebreak(t *testing.T) {
	idLow := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	idHigh := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	scores := []DeterministicScore{
		{ProposalID: idHigh, FinalScore: 70},
		{ProposalID: idLow, FinalScore: 70},
	}
	rankScores(scores)

	if scores[0].ProposalID != idLow || scores[0].Rank != 1 {
		t.Errorf("tie broken wrong: first = %s rank %d, want %s rank 1",
			scores[0].ProposalID, scores[0].Rank, idLow)
	}
	if scores[1].ProposalID != idHigh || scores[1].Rank != 2 {
		t.Errorf("tie broken wrong: second = %s rank %d, want %s rank 2",
			scores[1].ProposalID, scores[1].Rank, idHigh)
	}
}

func TestScoreProposalsEmptyCatalog(t *testing.T) {
	catalog := RequirementCatalog{Invite: models.RfpInvite{ID: uuid.New(), RfpID: uuid.New()}}
	bundle := fullBundle(buildCatalog(0, 0), 100000)

	scores := ScoreProposals(catalog, []ProposalBundle{bundle}, emptyPrecheck(), models.ModeSingle)
	if scores[0].CoverageScore != 100 {
		t.Errorf("empty-catalog coverage = %d, want 100", scores[0].CoverageScore)
	}
	if scores[0].KnockedOut {
		t.Error("empty-catalog proposal should not be knocked out")
	}
}
