package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"poolfi/backend/internal/pool/domain"
)

func newFileRepo(t *testing.T) *FileRepository {
	t.Helper()
	return NewFileRepository(filepath.Join(t.TempDir(), DocumentName), nil, nil)
}

func newImpact(id, admin string) *domain.AccessPool {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return &domain.AccessPool{
		ID: id, Kind: domain.KindImpact, Visibility: domain.VisibilityPublic, Source: domain.SourceOffChain,
		Name: id, AdminUserID: admin, JoinedUserIDs: []string{admin}, CreatedAt: now, UpdatedAt: now,
	}
}

func newGoal(addr, admin string) *domain.AccessPool {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return &domain.AccessPool{
		ID: addr, Kind: domain.KindGoal, Visibility: domain.VisibilityPrivate, Source: domain.SourceOnChain,
		Name: "goal", Address: addr, AdminUserID: admin, JoinedUserIDs: []string{admin}, CreatedAt: now, UpdatedAt: now,
	}
}

func ids(pools []*domain.AccessPool) []string {
	out := make([]string, len(pools))
	for i, p := range pools {
		out[i] = p.ID
	}
	return out
}

func TestFileRepository_SeedsImpactPools(t *testing.T) {
	r := newFileRepo(t)
	pools, err := r.ListPools(context.Background())
	if err != nil {
		t.Fatalf("ListPools: %v", err)
	}
	got := ids(pools)
	want := []string{"impact-oguta-water", "impact-uniben-scholarship", "impact-rural-clinic"}
	if len(got) != len(want) {
		t.Fatalf("ListPools = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pool[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if pools[0].Raised != 670000 || pools[0].Target != 1000000 || pools[0].ContributionPerPerson != 1000 {
		t.Errorf("oguta figures = %v/%v/%v", pools[0].Raised, pools[0].Target, pools[0].ContributionPerPerson)
	}
}

func TestFileRepository_Placement(t *testing.T) {
	ctx := context.Background()
	r := newFileRepo(t)
	if err := r.CreatePool(ctx, newImpact("impact-new", "a"), PlaceFirst); err != nil {
		t.Fatalf("CreatePool first: %v", err)
	}
	if err := r.CreatePool(ctx, newGoal("0xabc", "a"), PlaceLast); err != nil {
		t.Fatalf("CreatePool last: %v", err)
	}
	pools, _ := r.ListPools(ctx)
	got := ids(pools)
	if got[0] != "impact-new" || got[len(got)-1] != "0xabc" {
		t.Errorf("order = %v", got)
	}
	if err := r.CreatePool(ctx, newImpact("impact-new", "b"), PlaceLast); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Errorf("duplicate CreatePool = %v, want ErrAlreadyExists", err)
	}
}

func TestFileRepository_UpdateVersionCheck(t *testing.T) {
	ctx := context.Background()
	r := newFileRepo(t)
	if err := r.CreatePool(ctx, newImpact("impact-x", "a"), PlaceFirst); err != nil {
		t.Fatalf("CreatePool: %v", err)
	}
	first, _ := r.GetPool(ctx, "impact-x")
	second, _ := r.GetPool(ctx, "IMPACT-X")
	if second == nil {
		t.Fatal("GetPool should match ids case-insensitively")
	}

	first.Join("u1")
	if err := r.UpdatePool(ctx, first); err != nil {
		t.Fatalf("UpdatePool: %v", err)
	}
	if first.Version != 1 {
		t.Errorf("Version = %d, want 1", first.Version)
	}

	second.Join("u2")
	if err := r.UpdatePool(ctx, second); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("stale UpdatePool = %v, want ErrVersionConflict", err)
	}

	stored, _ := r.GetPool(ctx, "impact-x")
	if !stored.HasJoined("u1") || stored.HasJoined("u2") {
		t.Errorf("stored members = %v", stored.JoinedUserIDs)
	}
}

func TestFileRepository_UpdateRejectsInvalidPool(t *testing.T) {
	ctx := context.Background()
	r := newFileRepo(t)
	p, _ := r.GetPool(ctx, "impact-rural-clinic")
	p.Visibility = domain.VisibilityPrivate
	var verr *domain.ValidationError
	if err := r.UpdatePool(ctx, p); !errors.As(err, &verr) {
		t.Fatalf("UpdatePool = %v, want ValidationError", err)
	}
}

func TestFileRepository_UpdateMissing(t *testing.T) {
	r := newFileRepo(t)
	if err := r.UpdatePool(context.Background(), newImpact("ghost", "a")); !errors.Is(err, domain.ErrPoolNotFound) {
		t.Errorf("UpdatePool = %v, want ErrPoolNotFound", err)
	}
	p, err := r.GetPool(context.Background(), "ghost")
	if err != nil || p != nil {
		t.Errorf("GetPool(ghost) = %v, %v; want nil, nil", p, err)
	}
}

func TestFileRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := newFileRepo(t)
	p, _ := r.GetPool(ctx, "impact-oguta-water")
	p.Name = "mutated"
	again, _ := r.GetPool(ctx, "impact-oguta-water")
	if again.Name == "mutated" {
		t.Error("GetPool should return a copy")
	}
}
