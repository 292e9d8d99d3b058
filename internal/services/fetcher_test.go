package services

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"vantagebuild/proposal-engine/internal/models"
)

func bundleFor(invite models.RfpInvite, version int, submittedAt time.Time) ProposalBundle {
	return ProposalBundle{
		Proposal: models.Proposal{
			ID:          uuid.New(),
			InviteID:    invite.ID,
			Status:      models.ProposalSubmitted,
			Version:     version,
			SubmittedAt: submittedAt,
		},
		Advisor: models.Advisor{ID: invite.AdvisorID, CompanyName: "Vendor"},
		Invite:  invite,
	}
}

func TestDedupeLatestKeepsHighestVersion(t *testing.T) {
	invite := models.RfpInvite{ID: uuid.New(), RfpID: uuid.New(), AdvisorID: uuid.New(), AdvisorType: "architect"}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	v1 := bundleFor(invite, 1, base)
	v2 := bundleFor(invite, 2, base.Add(time.Hour))
	v3 := bundleFor(invite, 3, base.Add(2*time.Hour))

	got := DedupeLatest([]ProposalBundle{v1, v3, v2})
	if len(got) != 1 {
		t.Fatalf("DedupeLatest() kept %d proposals, want 1", len(got))
	}
	if got[0].Proposal.ID != v3.Proposal.ID {
		t.Errorf("survivor = version %d, want version 3", got[0].Proposal.Version)
	}
}

func TestDedupeLatestTiebreaks(t *testing.T) {
	invite := models.RfpInvite{ID: uuid.New(), RfpID: uuid.New(), AdvisorID: uuid.New(), AdvisorType: "architect"}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Same version: latest submission wins.
	early := bundleFor(invite, 2, base)
	late := bundleFor(invite, 2, base.Add(time.Minute))
	got := DedupeLatest([]ProposalBundle{early, late})
	if got[0].Proposal.ID != late.Proposal.ID {
		t.Error("same version: latest submission should survive")
	}

	// Same version and timestamp: lowest id wins.
	a := bundleFor(invite, 2, base)
	b := bundleFor(invite, 2, base)
	a.Proposal.ID = uuid.MustParse("00000000-0000-0000-0000-00000000000a")
	b.Proposal.ID = uuid.MustParse("00000000-0000-0000-0000-00000000000b")
	got = DedupeLatest([]ProposalBundle{b, a})
	if got[0].Proposal.ID != a.Proposal.ID {
		t.Error("full tie: lowest proposal id should survive")
	}
}

func TestDedupeLatestOrderIndependent(t *testing.T) {
	inviteA := models.RfpInvite{ID: uuid.New(), RfpID: uuid.New(), AdvisorID: uuid.New(), AdvisorType: "architect"}
	inviteB := models.RfpInvite{ID: uuid.New(), RfpID: inviteA.RfpID, AdvisorID: uuid.New(), AdvisorType: "architect"}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	bundles := []ProposalBundle{
		bundleFor(inviteA, 1, base),
		bundleFor(inviteA, 2, base.Add(time.Hour)),
		bundleFor(inviteB, 1, base),
		bundleFor(inviteB, 3, base.Add(2*time.Hour)),
	}

	forward := DedupeLatest(bundles)
	reversed := DedupeLatest([]ProposalBundle{bundles[3], bundles[2], bundles[1], bundles[0]})

	if len(forward) != 2 || len(reversed) != 2 {
		t.Fatalf("DedupeLatest() kept %d and %d proposals, want 2 and 2", len(forward), len(reversed))
	}
	for i := range forward {
		if forward[i].Proposal.ID != reversed[i].Proposal.ID {
			t.Errorf("position %d differs across input orders: %s vs %s",
				i, forward[i].Proposal.ID, reversed[i].Proposal.ID)
		}
	}
}

func TestEnsureComparableMixedAdvisorTypes(t *testing.T) {
	rfpID := uuid.New()
	architect := models.RfpInvite{ID: uuid.New(), RfpID: rfpID, AdvisorID: uuid.New(), AdvisorType: "architect"}
	engineer := models.RfpInvite{ID: uuid.New(), RfpID: rfpID, AdvisorID: uuid.New(), AdvisorType: "structural_engineer"}
	base := time.Now()

	err := EnsureComparable([]ProposalBundle{
		bundleFor(architect, 1, base),
		bundleFor(engineer, 1, base),
	})
	if err == nil {
		t.Fatal("EnsureComparable() error = nil, want IncomparableSet")
	}
	if CodeOf(err) != CodeIncomparableSet {
		t.Errorf("CodeOf(err) = %q, want %q", CodeOf(err), CodeIncomparableSet)
	}
}

func TestEnsureComparableMixedRfps(t *testing.T) {
	inviteA := models.RfpInvite{ID: uuid.New(), RfpID: uuid.New(), AdvisorID: uuid.New(), AdvisorType: "architect"}
	inviteB := models.RfpInvite{ID: uuid.New(), RfpID: uuid.New(), AdvisorID: uuid.New(), AdvisorType: "architect"}
	base := time.Now()

	err := EnsureComparable([]ProposalBundle{
		bundleFor(inviteA, 1, base),
		bundleFor(inviteB, 1, base),
	})
	if CodeOf(err) != CodeIncomparableSet {
		t.Errorf("CodeOf(err) = %q, want %q", CodeOf(err), CodeIncomparableSet)
	}
}

func TestEnsureComparableSingleAndUniform(t *testing.T) {
	invite := models.RfpInvite{ID: uuid.New(), RfpID: uuid.New(), AdvisorID: uuid.New(), AdvisorType: "architect"}
	other := models.RfpInvite{ID: uuid.New(), RfpID: invite.RfpID, AdvisorID: uuid.New(), AdvisorType: "architect"}
	base := time.Now()

	if err := EnsureComparable([]ProposalBundle{bundleFor(invite, 1, base)}); err != nil {
		t.Errorf("single bundle: EnsureComparable() error = %v, want nil", err)
	}
	if err := EnsureComparable([]ProposalBundle{bundleFor(invite, 1, base), bundleFor(other, 1, base)}); err != nil {
		t.Errorf("uniform batch: EnsureComparable() error = %v, want nil", err)
	}
}
