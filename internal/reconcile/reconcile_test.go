package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"poolfi/backend/internal/chain"
	"poolfi/backend/internal/pool/domain"
	"poolfi/backend/internal/pool/repository"
)

type fakeChain struct {
	pools []chain.PoolRecord
	err   error
}

func (f *fakeChain) ListPools(context.Context) ([]chain.PoolRecord, error) { return f.pools, f.err }

func (f *fakeChain) LatestPool(context.Context) (*chain.PoolRecord, error) { return nil, f.err }

func (f *fakeChain) ListMembers(context.Context, string) ([]chain.MemberRecord, error) {
	return nil, f.err
}

type fakeRepo struct {
	pools []*domain.AccessPool
	err   error
}

func (f *fakeRepo) ListPools(context.Context) ([]*domain.AccessPool, error) { return f.pools, f.err }

func (f *fakeRepo) GetPool(context.Context, string) (*domain.AccessPool, error) { return nil, nil }

func (f *fakeRepo) CreatePool(context.Context, *domain.AccessPool, repository.Placement) error {
	return nil
}

func (f *fakeRepo) UpdatePool(context.Context, *domain.AccessPool) error { return nil }

var viewer = &domain.Viewer{UserID: "u1", Email: "u1@x.com"}

func goal(id, admin string, invited ...string) *domain.AccessPool {
	return &domain.AccessPool{
		ID: id, Kind: domain.KindGoal, Visibility: domain.VisibilityPrivate, Source: domain.SourceOnChain,
		Name: "goal " + id, Address: id, AdminUserID: admin, JoinedUserIDs: []string{admin}, Invited: invited,
		Raised: 999999, Target: 999999,
	}
}

func impact(id string, joined ...string) *domain.AccessPool {
	return &domain.AccessPool{
		ID: id, Kind: domain.KindImpact, Visibility: domain.VisibilityPublic, Source: domain.SourceOffChain,
		Name: "impact " + id, JoinedUserIDs: joined, Raised: 10, Target: 100,
	}
}

func record(addr string, raised, target float64, status chain.Status) chain.PoolRecord {
	return chain.PoolRecord{
		ID: addr, Address: addr, Kind: domain.KindGoal, Raised: raised, Target: target,
		ContributorsPaid: 2, ContributorsTotal: 2, Status: status,
		StartAt: time.Unix(1767225600, 0).UTC(), Deadline: time.Unix(1769904000, 0).UTC(),
	}
}

func ids(pools []Pool) []string {
	out := make([]string, len(pools))
	for i, p := range pools {
		out[i] = p.ID
	}
	return out
}

func TestReconcile_GoalPoolsFirstInStoreOrder(t *testing.T) {
	repo := &fakeRepo{pools: []*domain.AccessPool{
		impact("i1", "u1"),
		goal("0xg1", "u1"),
		impact("i2", "someone"),
		impact("i3", "u1", "other"),
		goal("0xg2", "other", "U1@X.com"),
		goal("0xg3", "other"),
	}}
	reader := &fakeChain{pools: []chain.PoolRecord{
		record("0xG2", 50, 500, chain.StatusClosed),
		record("0xg1", 10, 100, chain.StatusActive),
		record("0xg3", 1, 1, chain.StatusActive),
	}}
	r := New(reader, repo, nil)

	got, err := r.Reconcile(context.Background(), viewer, ViewHome)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	want := []string{"0xg1", "0xg2", "i1", "i3"}
	if g := ids(got); len(g) != len(want) {
		t.Fatalf("ids = %v, want %v", g, want)
	} else {
		for i := range want {
			if g[i] != want[i] {
				t.Fatalf("ids = %v, want %v", g, want)
			}
		}
	}

	g1 := got[0]
	if g1.Raised != 10 || g1.Target != 100 || g1.ContributorsPaid != 2 || g1.Status != chain.StatusActive {
		t.Errorf("goal financials should come from chain: %+v", g1)
	}
	if !g1.IsAdmin || !g1.IsJoined || g1.StartAt == nil {
		t.Errorf("goal flags = %+v", g1)
	}
	if got[1].Status != chain.StatusClosed || got[1].IsAdmin || got[1].IsJoined {
		t.Errorf("invited goal = %+v", got[1])
	}
	i3 := got[3]
	if i3.ContributorsTotal != 2 || i3.Status != chain.StatusActive || !i3.IsJoined {
		t.Errorf("impact = %+v", i3)
	}
}

func TestReconcile_GoalWithoutChainRecordDropped(t *testing.T) {
	repo := &fakeRepo{pools: []*domain.AccessPool{goal("0xg1", "u1"), goal("0xgone", "u1")}}
	reader := &fakeChain{pools: []chain.PoolRecord{record("0xg1", 0, 100, chain.StatusActive)}}
	got, err := New(reader, repo, nil).Reconcile(context.Background(), viewer, ViewMyPools)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(got) != 1 || got[0].ID != "0xg1" {
		t.Errorf("ids = %v, want [0xg1]", ids(got))
	}
}

func TestReconcile_Views(t *testing.T) {
	repo := &fakeRepo{pools: []*domain.AccessPool{
		goal("0xg1", "other", "u1@x.com"),
		impact("i1"),
	}}
	reader := &fakeChain{pools: []chain.PoolRecord{record("0xg1", 0, 100, chain.StatusActive)}}
	r := New(reader, repo, nil)

	cases := []struct {
		view View
		want int
	}{
		{ViewHome, 1},
		{ViewMyPools, 1},
		{ViewAccessible, 2},
	}
	for _, tc := range cases {
		got, err := r.Reconcile(context.Background(), viewer, tc.view)
		if err != nil {
			t.Fatalf("Reconcile(%d): %v", tc.view, err)
		}
		if len(got) != tc.want {
			t.Errorf("view %d: ids = %v, want %d pools", tc.view, ids(got), tc.want)
		}
	}
}

func TestReconcile_ChainFailureIsFatal(t *testing.T) {
	repo := &fakeRepo{pools: []*domain.AccessPool{impact("i1", "u1")}}
	reader := &fakeChain{err: errors.New("rpc down")}
	got, err := New(reader, repo, nil).Reconcile(context.Background(), viewer, ViewHome)
	if err == nil {
		t.Fatal("Reconcile should fail when the chain read fails")
	}
	if got != nil {
		t.Errorf("partial result returned: %v", ids(got))
	}
}

func TestReconcile_Anonymous(t *testing.T) {
	repo := &fakeRepo{pools: []*domain.AccessPool{impact("i1")}}
	got, err := New(&fakeChain{}, repo, nil).Reconcile(context.Background(), nil, ViewAccessible)
	if err != nil || len(got) != 0 {
		t.Errorf("anonymous = %v, %v; want empty", got, err)
	}
}

func TestDashboard_Totals(t *testing.T) {
	repo := &fakeRepo{pools: []*domain.AccessPool{goal("0xg1", "u1"), impact("i1", "u1")}}
	reader := &fakeChain{pools: []chain.PoolRecord{record("0xg1", 40, 400, chain.StatusActive)}}
	d, err := New(reader, repo, nil).Dashboard(context.Background(), viewer)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.PoolCount != 2 || d.TotalRaised != 50 || d.TotalTarget != 500 {
		t.Errorf("dashboard = %+v", d)
	}
}

func TestPoolKindFieldName(t *testing.T) {
	docs := map[string]any{
		"listing": Pool{ID: "0xg1", Kind: domain.KindGoal},
		"chain":   chain.PoolRecord{ID: "0xg1", Kind: domain.KindGoal},
		"stored":  domain.AccessPool{ID: "0xg1", Kind: domain.KindGoal},
	}
	for name, v := range docs {
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("%s: Marshal: %v", name, err)
		}
		if !strings.Contains(string(b), `"kind":"GOAL"`) || strings.Contains(string(b), `"type":`) {
			t.Errorf("%s json = %s, want a kind field", name, b)
		}
	}
}
