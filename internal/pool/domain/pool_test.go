package domain

import (
	"errors"
	"testing"
)

func impactPool() *AccessPool {
	return &AccessPool{
		ID:            "impact-water",
		Kind:          KindImpact,
		Visibility:    VisibilityPublic,
		Source:        SourceOffChain,
		AdminUserID:   "admin",
		JoinedUserIDs: []string{"admin"},
	}
}

func TestValidate_KindVisibilityCoupling(t *testing.T) {
	if err := impactPool().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	p := impactPool()
	p.Visibility = VisibilityPrivate
	var verr *ValidationError
	if err := p.Validate(); !errors.As(err, &verr) || verr.Field != "visibility" {
		t.Errorf("PRIVATE impact pool: got %v, want visibility error", err)
	}

	g := &AccessPool{ID: "0xabc", Kind: KindGoal, Visibility: VisibilityPublic, Source: SourceOnChain}
	if err := g.Validate(); !errors.As(err, &verr) || verr.Field != "visibility" {
		t.Errorf("PUBLIC goal pool: got %v, want visibility error", err)
	}

	g.Visibility = VisibilityPrivate
	g.Source = SourceOffChain
	if err := g.Validate(); !errors.As(err, &verr) || verr.Field != "source" {
		t.Errorf("off-chain goal pool: got %v, want source error", err)
	}
}

func TestValidate_JoinedSet(t *testing.T) {
	p := impactPool()
	p.JoinedUserIDs = []string{"admin", "u1", "u1"}
	if err := p.Validate(); err == nil {
		t.Error("duplicate members should fail validation")
	}

	p = impactPool()
	p.JoinedUserIDs = []string{"u1"}
	if err := p.Validate(); err == nil {
		t.Error("admin missing from joined set should fail validation")
	}
}

func TestJoin_Idempotent(t *testing.T) {
	p := impactPool()
	if !p.Join("u1") {
		t.Fatal("first Join should add the member")
	}
	if p.Join("u1") {
		t.Fatal("second Join should be a no-op")
	}
	count := 0
	for _, id := range p.JoinedUserIDs {
		if id == "u1" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("u1 appears %d times, want 1", count)
	}
}

func TestNormalizeInvited(t *testing.T) {
	got := NormalizeInvited([]string{" B@X.com ", "", "b@x.com", "  ", "Ada"})
	want := []string{"b@x.com", "ada"}
	if len(got) != len(want) {
		t.Fatalf("NormalizeInvited = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("NormalizeInvited[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestClone_IsDeep(t *testing.T) {
	p := impactPool()
	p.Withdrawals = []ImpactWithdrawal{{ID: WithdrawalID(1), ApprovedBy: []string{"r1"}}}
	c := p.Clone()
	c.JoinedUserIDs[0] = "other"
	c.Withdrawals[0].ApprovedBy[0] = "r2"
	if p.JoinedUserIDs[0] != "admin" {
		t.Error("Clone shares JoinedUserIDs")
	}
	if p.Withdrawals[0].ApprovedBy[0] != "r1" {
		t.Error("Clone shares withdrawal reviewers")
	}
}

func TestWithdrawalID(t *testing.T) {
	cases := map[int]string{1: "REQ-001", 2: "REQ-002", 42: "REQ-042", 1000: "REQ-1000"}
	for seq, want := range cases {
		if got := WithdrawalID(seq); got != want {
			t.Errorf("WithdrawalID(%d) = %q, want %q", seq, got, want)
		}
	}
}

func TestViewerIdentifiers(t *testing.T) {
	var anon *Viewer
	if anon.Identifiers() != nil {
		t.Error("anonymous viewer should have no identifiers")
	}
	v := &Viewer{UserID: "U1", Email: " B@X.com ", Pseudonym: ""}
	ids := v.Identifiers()
	if len(ids) != 2 || ids[0] != "u1" || ids[1] != "b@x.com" {
		t.Errorf("Identifiers = %v", ids)
	}
}
