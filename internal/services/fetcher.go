package services

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"vantagebuild/proposal-engine/internal/models"
	"vantagebuild/proposal-engine/internal/repositories"
)

// ProposalBundle pairs a proposal with its resolved advisor and invite.
type ProposalBundle struct {
	Proposal models.Proposal
	Advisor  models.Advisor
	Invite   models.RfpInvite
}

// RequirementCatalog is the contract a proposal is evaluated against: the
// invite plus its fee and scope items. Mandatory items are the non-optional
// subset.
type RequirementCatalog struct {
	Invite     models.RfpInvite
	FeeItems   []models.FeeItem
	ScopeItems []models.ScopeItem
}

func (c *RequirementCatalog) MandatoryFeeItems() []models.FeeItem {
	var items []models.FeeItem
	for _, item := range c.FeeItems {
		if !item.Optional {
			items = append(items, item)
		}
	}
	return items
}

func (c *RequirementCatalog) MandatoryScopeItems() []models.ScopeItem {
	var items []models.ScopeItem
	for _, item := range c.ScopeItems {
		if !item.Optional {
			items = append(items, item)
		}
	}
	return items
}

type FetchResult struct {
	Project models.Project
	Catalog RequirementCatalog
	Bundles []ProposalBundle
}

type FetcherService interface {
	Fetch(ctx context.Context, projectID uuid.UUID, proposalIDs []uuid.UUID) (*FetchResult, error)
}

type fetcherService struct {
	projectRepo     repositories.ProjectRepository
	proposalRepo    repositories.ProposalRepository
	requirementRepo repositories.RequirementRepository
}

func NewFetcherService(
	projectRepo repositories.ProjectRepository,
	proposalRepo repositories.ProposalRepository,
	requirementRepo repositories.RequirementRepository,
) FetcherService {
	return &fetcherService{
		projectRepo:     projectRepo,
		proposalRepo:    proposalRepo,
		requirementRepo: requirementRepo,
	}
}

// Fetch implements FetcherService.
func (f *fetcherService) Fetch(ctx context.Context, projectID uuid.UUID, proposalIDs []uuid.UUID) (*FetchResult, error) {
	project, err := f.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Errf(CodeNotFound, "project %s not found", projectID)
		}
		return nil, WrapErr(CodeEvaluationFailed, err, "failed to load project")
	}

	proposals, err := f.proposalRepo.FindEligible(projectID, proposalIDs)
	if err != nil {
		return nil, WrapErr(CodeEvaluationFailed, err, "failed to load proposals")
	}

	var bundles []ProposalBundle
	for _, proposal := range proposals {
		// Drop proposals without a resolvable advisor or invite.
		if proposal.Advisor.ID == uuid.Nil || proposal.Invite.ID == uuid.Nil {
			log.Printf("⚠️  Dropping proposal %s: unresolvable advisor or invite", proposal.ID)
			continue
		}
		if proposal.Invite.Status == models.InviteDeclined || proposal.Invite.Status == models.InviteExpired {
			log.Printf("⚠️  Dropping proposal %s: invite %s is %s", proposal.ID, proposal.Invite.ID, proposal.Invite.Status)
			continue
		}
		bundles = append(bundles, ProposalBundle{
			Proposal: proposal,
			Advisor:  proposal.Advisor,
			Invite:   proposal.Invite,
		})
	}

	bundles = DedupeLatest(bundles)
	if len(bundles) == 0 {
		return nil, Errf(CodeNoEligibleProposals, "no eligible proposals for project %s", projectID)
	}

	if err := EnsureComparable(bundles); err != nil {
		return nil, err
	}

	// Requirement catalogs are shared across a comparison batch by
	// construction of the invite workflow; the first survivor's invite is
	// authoritative.
	feeItems, scopeItems, err := f.requirementRepo.FindByInvite(bundles[0].Invite.ID)
	if err != nil {
		return nil, WrapErr(CodeEvaluationFailed, err, "failed to load requirement catalog")
	}

	return &FetchResult{
		Project: *project,
		Catalog: RequirementCatalog{
			Invite:     bundles[0].Invite,
			FeeItems:   feeItems,
			ScopeItems: scopeItems,
		},
		Bundles: bundles,
	}, nil
}

// DedupeLatest keeps one proposal per invite: the highest version, then the
// latest submission, then the lowest id. The result is ordered by proposal
// id so repeated runs see the same batch regardless of input order.
func DedupeLatest(bundles []ProposalBundle) []ProposalBundle {
	byInvite := make(map[uuid.UUID][]ProposalBundle)
	for _, b := range bundles {
		byInvite[b.Invite.ID] = append(byInvite[b.Invite.ID], b)
	}

	var survivors []ProposalBundle
	for _, group := range byInvite {
		sort.Slice(group, func(i, j int) bool {
			pi, pj := group[i].Proposal, group[j].Proposal
			if pi.Version != pj.Version {
				return pi.Version > pj.Version
			}
			if !pi.SubmittedAt.Equal(pj.SubmittedAt) {
				return pi.SubmittedAt.After(pj.SubmittedAt)
			}
			return strings.Compare(pi.ID.String(), pj.ID.String()) < 0
		})
		survivors = append(survivors, group[0])
	}

	sort.Slice(survivors, func(i, j int) bool {
		return strings.Compare(survivors[i].Proposal.ID.String(), survivors[j].Proposal.ID.String()) < 0
	})
	return survivors
}

// EnsureComparable rejects mixed batches: ranking architects against
// structural engineers, or proposals from different RFPs, is meaningless.
// Single-proposal batches are trivially comparable.
func EnsureComparable(bundles []ProposalBundle) error {
	if len(bundles) < 2 {
		return nil
	}
	rfpID := bundles[0].Invite.RfpID
	advisorType := bundles[0].Invite.AdvisorType
	for _, b := range bundles[1:] {
		if b.Invite.RfpID != rfpID {
			return Errf(CodeIncomparableSet,
				"proposal %s belongs to RFP %s, expected %s", b.Proposal.ID, b.Invite.RfpID, rfpID)
		}
		if b.Invite.AdvisorType != advisorType {
			return Errf(CodeIncomparableSet,
				"proposal %s is for advisor type %q, expected %q", b.Proposal.ID, b.Invite.AdvisorType, advisorType)
		}
	}
	return nil
}
