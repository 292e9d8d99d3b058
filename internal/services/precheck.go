package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"vantagebuild/proposal-engine/internal/models"
)

// PrecheckResult groups the policy violations per proposal. HardViolation
// marks proposals with at least one knockout-grade violation.
type PrecheckResult struct {
	Violations    map[uuid.UUID][]models.PolicyViolation
	HardViolation map[uuid.UUID]bool
}

func (r *PrecheckResult) FirstHardMessage(proposalID uuid.UUID) string {
	for _, v := range r.Violations[proposalID] {
		if v.Hard() {
			return v.Message
		}
	}
	return ""
}

type PrecheckService interface {
	Check(bundles []ProposalBundle, policy *models.OrganizationPolicy) *PrecheckResult
}

type precheckService struct{}

func NewPrecheckService() PrecheckService {
	return &precheckService{}
}

// upfrontMarkers is the milestone-label language that counts toward the
// upfront-payment sum.
var upfrontMarkers = []string{"upfront", "advance"}

// Check implements PrecheckService. Each proposal is evaluated
// independently; a nil policy imposes no constraints.
func (s *precheckService) Check(bundles []ProposalBundle, policy *models.OrganizationPolicy) *PrecheckResult {
	result := &PrecheckResult{
		Violations:    make(map[uuid.UUID][]models.PolicyViolation),
		HardViolation: make(map[uuid.UUID]bool),
	}

	for _, bundle := range bundles {
		violations := checkProposal(bundle, policy)
		result.Violations[bundle.Proposal.ID] = violations
		for _, v := range violations {
			if v.Hard() {
				result.HardViolation[bundle.Proposal.ID] = true
				break
			}
		}
	}

	return result
}

func checkProposal(bundle ProposalBundle, policy *models.OrganizationPolicy) []models.PolicyViolation {
	var violations []models.PolicyViolation
	proposal := bundle.Proposal

	if policy != nil {
		if v := checkCurrency(proposal, policy); v != nil {
			violations = append(violations, *v)
		}
		if v := checkUpfront(proposal, policy); v != nil {
			violations = append(violations, *v)
		}
		violations = append(violations, checkClauses(proposal, policy)...)
	}

	if v := checkVendorName(bundle); v != nil {
		violations = append(violations, *v)
	}

	return violations
}

// checkCurrency flags currencies outside the allowed set. Proposals without
// a currency are not penalized here; the completeness score covers missing
// data.
func checkCurrency(proposal models.Proposal, policy *models.OrganizationPolicy) *models.PolicyViolation {
	currency := strings.TrimSpace(proposal.Currency)
	if currency == "" {
		return nil
	}

	allowed := gjson.Parse(policy.AllowedCurrencies)
	if !allowed.IsArray() || len(allowed.Array()) == 0 {
		return nil
	}

	for _, entry := range allowed.Array() {
		if strings.EqualFold(strings.TrimSpace(entry.String()), currency) {
			return nil
		}
	}

	return &models.PolicyViolation{
		ProposalID: proposal.ID,
		Type:       models.ViolationCurrency,
		Message:    fmt.Sprintf("currency %s is not accepted by the owner's organization", currency),
	}
}

func checkUpfront(proposal models.Proposal, policy *models.OrganizationPolicy) *models.PolicyViolation {
	if policy.MaxUpfrontPercent <= 0 {
		return nil
	}

	var upfrontSum float64
	for _, m := range proposal.MilestoneAdjustments {
		label := strings.ToLower(m.Label)
		for _, marker := range upfrontMarkers {
			if strings.Contains(label, marker) {
				upfrontSum += m.Percent
				break
			}
		}
	}

	if upfrontSum > policy.MaxUpfrontPercent {
		return &models.PolicyViolation{
			ProposalID: proposal.ID,
			Type:       models.ViolationPaymentTerms,
			Message: fmt.Sprintf("upfront payment of %.1f%% exceeds the organization maximum of %.1f%%",
				upfrontSum, policy.MaxUpfrontPercent),
		}
	}
	return nil
}

// checkClauses flags required contract clauses absent from the proposal
// terms. Advisory only.
func checkClauses(proposal models.Proposal, policy *models.OrganizationPolicy) []models.PolicyViolation {
	required := gjson.Parse(policy.RequiredClauses)
	if !required.IsArray() {
		return nil
	}

	terms := strings.ToLower(proposal.Terms)
	var violations []models.PolicyViolation
	for _, clause := range required.Array() {
		text := strings.TrimSpace(clause.String())
		if text == "" {
			continue
		}
		if !strings.Contains(terms, strings.ToLower(text)) {
			violations = append(violations, models.PolicyViolation{
				ProposalID: proposal.ID,
				Type:       models.ViolationProcurement,
				Message:    fmt.Sprintf("required clause %q not found in proposal terms", text),
			})
		}
	}
	return violations
}

func checkVendorName(bundle ProposalBundle) *models.PolicyViolation {
	if strings.TrimSpace(bundle.Proposal.SupplierName) != "" {
		return nil
	}
	if strings.TrimSpace(bundle.Advisor.CompanyName) != "" {
		return nil
	}
	if strings.TrimSpace(bundle.Advisor.Name) != "" {
		return nil
	}
	return &models.PolicyViolation{
		ProposalID: bundle.Proposal.ID,
		Type:       models.ViolationVendorIncomplete,
		Message:    "no vendor or company name could be resolved for this proposal",
	}
}
