package service

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"poolfi/backend/internal/policy/engine"
	"poolfi/backend/internal/pool/domain"
	"poolfi/backend/internal/pool/repository"
)

const poolID = "water-project-a1b2c3"

var (
	admin    = &domain.Viewer{UserID: "admin"}
	r1       = &domain.Viewer{UserID: "r1"}
	r2       = &domain.Viewer{UserID: "r2"}
	r3       = &domain.Viewer{UserID: "r3"}
	stranger = &domain.Viewer{UserID: "outsider"}
)

func newTestService(t *testing.T, policy engine.Evaluator) (*Service, repository.Repository) {
	t.Helper()
	ctx := context.Background()
	repo := repository.NewFileRepository(filepath.Join(t.TempDir(), repository.DocumentName), nil, nil)
	p := &domain.AccessPool{
		ID:            poolID,
		Kind:          domain.KindImpact,
		Visibility:    domain.VisibilityPublic,
		Source:        domain.SourceOffChain,
		Name:          "Water Project",
		Category:      "General",
		AdminUserID:   "admin",
		JoinedUserIDs: []string{"admin", "r1", "r2", "r3"},
		Target:        1000000,
		CreatedAt:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.CreatePool(ctx, p, repository.PlaceFirst); err != nil {
		t.Fatalf("CreatePool: %v", err)
	}
	s := NewService(repo, Options{Policy: policy})
	s.nowF = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	return s, repo
}

func validWithdrawal() WithdrawalInput {
	return WithdrawalInput{Amount: 250000, Purpose: "Borehole drilling", Vendor: "AquaWorks Ltd", Stage: "Phase 1"}
}

func TestCreateWithdrawal_SequentialIDs(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t, nil)

	w1, err := s.CreateWithdrawal(ctx, admin, poolID, validWithdrawal())
	if err != nil {
		t.Fatalf("CreateWithdrawal: %v", err)
	}
	if w1.ID != "REQ-001" || w1.Status != domain.WithdrawalPending || w1.Approvals != 0 || w1.RequiredApprovals != 3 {
		t.Errorf("first withdrawal = %+v", w1)
	}
	w2, err := s.CreateWithdrawal(ctx, admin, poolID, validWithdrawal())
	if err != nil {
		t.Fatalf("CreateWithdrawal: %v", err)
	}
	if w2.ID != "REQ-002" {
		t.Errorf("second id = %q, want REQ-002", w2.ID)
	}
	list, err := s.ListWithdrawals(ctx, admin, poolID)
	if err != nil {
		t.Fatalf("ListWithdrawals: %v", err)
	}
	if len(list) != 2 || list[0].ID != "REQ-002" || list[1].ID != "REQ-001" {
		t.Errorf("withdrawals should be newest first: %+v", list)
	}
}

func TestCreateWithdrawal_IDsArePerPool(t *testing.T) {
	ctx := context.Background()
	s, repo := newTestService(t, nil)
	const otherID = "school-roof-d4e5f6"
	other := &domain.AccessPool{
		ID:            otherID,
		Kind:          domain.KindImpact,
		Visibility:    domain.VisibilityPublic,
		Source:        domain.SourceOffChain,
		Name:          "School Roof",
		Category:      "Education",
		AdminUserID:   "admin",
		JoinedUserIDs: []string{"admin", "r1"},
		Target:        50000,
		CreatedAt:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.CreatePool(ctx, other, repository.PlaceLast); err != nil {
		t.Fatalf("CreatePool: %v", err)
	}

	steps := []struct {
		pool string
		want string
	}{
		{poolID, "REQ-001"},
		{otherID, "REQ-001"},
		{poolID, "REQ-002"},
		{otherID, "REQ-002"},
	}
	for i, step := range steps {
		w, err := s.CreateWithdrawal(ctx, admin, step.pool, validWithdrawal())
		if err != nil {
			t.Fatalf("step %d CreateWithdrawal(%s): %v", i, step.pool, err)
		}
		if w.ID != step.want {
			t.Errorf("step %d pool %s id = %q, want %q", i, step.pool, w.ID, step.want)
		}
	}

	for _, id := range []string{poolID, otherID} {
		list, err := s.ListWithdrawals(ctx, admin, id)
		if err != nil {
			t.Fatalf("ListWithdrawals(%s): %v", id, err)
		}
		if len(list) != 2 || list[0].ID != "REQ-002" || list[1].ID != "REQ-001" {
			t.Errorf("pool %s withdrawals = %+v", id, list)
		}
	}
}

func TestCreateWithdrawal_NonAdminIsNotFound(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t, nil)
	for _, v := range []*domain.Viewer{r1, stranger} {
		if _, err := s.CreateWithdrawal(ctx, v, poolID, validWithdrawal()); !errors.Is(err, domain.ErrPoolNotFound) {
			t.Errorf("%s: err = %v, want ErrPoolNotFound", v.UserID, err)
		}
	}
	if _, err := s.CreateWithdrawal(ctx, admin, "impact-oguta-water", validWithdrawal()); !errors.Is(err, domain.ErrPoolNotFound) {
		t.Errorf("admin of another pool: err = %v, want ErrPoolNotFound", err)
	}
}

func TestCreateWithdrawal_Validation(t *testing.T) {
	s, _ := newTestService(t, nil)
	cases := []struct {
		field string
		mut   func(*WithdrawalInput)
	}{
		{"amount", func(in *WithdrawalInput) { in.Amount = 0 }},
		{"amount", func(in *WithdrawalInput) { in.Amount = math.Inf(1) }},
		{"purpose", func(in *WithdrawalInput) { in.Purpose = " " }},
		{"vendor", func(in *WithdrawalInput) { in.Vendor = "" }},
		{"stage", func(in *WithdrawalInput) { in.Stage = "" }},
	}
	for _, tc := range cases {
		in := validWithdrawal()
		tc.mut(&in)
		_, err := s.CreateWithdrawal(context.Background(), admin, poolID, in)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) || verr.Field != tc.field {
			t.Errorf("err = %v, want validation error on %s", err, tc.field)
		}
	}
}

func TestWithdrawal_ApproveToRelease(t *testing.T) {
	ctx := context.Background()
	policy, err := engine.NewOPAEvaluator(ctx, "", nil)
	if err != nil {
		t.Fatalf("NewOPAEvaluator: %v", err)
	}
	s, _ := newTestService(t, policy)
	w, err := s.CreateWithdrawal(ctx, admin, poolID, validWithdrawal())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Release(ctx, admin, poolID, w.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("release of pending = %v, want ErrInvalidTransition", err)
	}

	got, err := s.Approve(ctx, r1, poolID, w.ID)
	if err != nil {
		t.Fatalf("Approve r1: %v", err)
	}
	if got.Approvals != 1 || got.Status != domain.WithdrawalPending {
		t.Errorf("after r1 = %+v", got)
	}
	got, err = s.Approve(ctx, r1, poolID, w.ID)
	if err != nil {
		t.Fatalf("Approve r1 again: %v", err)
	}
	if got.Approvals != 1 {
		t.Errorf("repeat approval counted: approvals = %d", got.Approvals)
	}
	if _, err := s.Approve(ctx, r2, poolID, "req-001"); err != nil {
		t.Fatalf("Approve r2: %v", err)
	}
	got, err = s.Approve(ctx, r3, poolID, w.ID)
	if err != nil {
		t.Fatalf("Approve r3: %v", err)
	}
	if got.Approvals != 3 || got.Status != domain.WithdrawalApproved || got.DecidedAt == nil {
		t.Errorf("after r3 = %+v", got)
	}

	if _, err := s.Reject(ctx, r1, poolID, w.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("reject of approved = %v, want ErrInvalidTransition", err)
	}
	if _, err := s.Release(ctx, r1, poolID, w.ID); !errors.Is(err, domain.ErrPoolNotFound) {
		t.Errorf("release by reviewer = %v, want ErrPoolNotFound", err)
	}
	got, err = s.Release(ctx, admin, poolID, w.ID)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if got.Status != domain.WithdrawalReleased || got.ReleasedAt == nil {
		t.Errorf("after release = %+v", got)
	}
	if _, err := s.Release(ctx, admin, poolID, w.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("second release = %v, want ErrInvalidTransition", err)
	}
}

func TestWithdrawal_RejectIsTerminal(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t, nil)
	w, err := s.CreateWithdrawal(ctx, admin, poolID, validWithdrawal())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Approve(ctx, r1, poolID, w.ID); err != nil {
		t.Fatal(err)
	}
	got, err := s.Reject(ctx, r2, poolID, w.ID)
	if err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if got.Status != domain.WithdrawalRejected || len(got.RejectedBy) != 1 {
		t.Errorf("after reject = %+v", got)
	}
	if _, err := s.Approve(ctx, r3, poolID, w.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("approve of rejected = %v, want ErrInvalidTransition", err)
	}
}

func TestWithdrawal_ReviewerRules(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t, nil)
	w, err := s.CreateWithdrawal(ctx, admin, poolID, validWithdrawal())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Approve(ctx, admin, poolID, w.ID); !errors.Is(err, domain.ErrPoolNotFound) {
		t.Errorf("admin approval = %v, want ErrPoolNotFound", err)
	}
	if _, err := s.Approve(ctx, stranger, poolID, w.ID); !errors.Is(err, domain.ErrPoolNotFound) {
		t.Errorf("non-member approval = %v, want ErrPoolNotFound", err)
	}
	if _, err := s.Approve(ctx, r1, poolID, "REQ-099"); !errors.Is(err, domain.ErrWithdrawalNotFound) {
		t.Errorf("unknown request = %v, want ErrWithdrawalNotFound", err)
	}
	if _, err := s.Approve(ctx, nil, poolID, w.ID); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("anonymous = %v, want ErrUnauthenticated", err)
	}
}

func TestUpdates(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t, nil)

	if _, err := s.ListUpdates(ctx, r1, poolID); !errors.Is(err, domain.ErrPoolNotFound) {
		t.Errorf("ListUpdates by member = %v, want ErrPoolNotFound", err)
	}
	list, err := s.ListUpdates(ctx, admin, poolID)
	if err != nil || len(list) != 0 {
		t.Fatalf("ListUpdates empty = %v, %v", list, err)
	}
	if _, err := s.PostUpdate(ctx, admin, poolID, UpdateInput{Title: "Drilling", Details: ""}); err == nil {
		t.Error("PostUpdate without details should fail")
	}
	first, err := s.PostUpdate(ctx, admin, poolID, UpdateInput{Title: " Site survey ", Details: "Done", ReferenceLink: "https://example.org/r"})
	if err != nil {
		t.Fatalf("PostUpdate: %v", err)
	}
	if first.ID == "" || first.Title != "Site survey" {
		t.Errorf("update = %+v", first)
	}
	if _, err := s.PostUpdate(ctx, admin, poolID, UpdateInput{Title: "Drilling", Details: "Started"}); err != nil {
		t.Fatal(err)
	}
	list, err = s.ListUpdates(ctx, admin, poolID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != first.ID {
		t.Errorf("updates should be appended: %+v", list)
	}
}
