package memory

import (
	"context"
	"errors"
	"testing"

	"alphatrend/internal/domain"
	"alphatrend/internal/storage"
)

func cycleOutput(id string, ts int64) *domain.CycleOutput {
	return &domain.CycleOutput{
		Snapshot: &domain.Snapshot{
			SnapshotID:  id,
			TimestampMs: ts,
			Regime:      domain.RegimeRotation,
			TotalTokens: 2,
			ChainHeat:   map[domain.Chain]int{domain.ChainSolana: 60},
			TopGainers:  []string{"t1"},
			IsComplete:  true,
		},
		Tokens: []*domain.TokenOutput{
			{TokenID: "t1", SnapshotID: id, Chain: domain.ChainSolana, CompositeScore: 80, Lifecycle: domain.PhaseExpansion, Integrity: domain.IntegrityOrganic},
			{TokenID: "t2", SnapshotID: id, Chain: domain.ChainBase, CompositeScore: 55, Lifecycle: domain.PhaseDecay, Integrity: domain.IntegrityMixed},
		},
		Metas: []*domain.MetaOutput{
			{MetaID: "m1", SnapshotID: id, AvgCompositeScore: 62, TokenIDs: []string{"t1", "t2"}, Chains: []domain.Chain{domain.ChainSolana}},
		},
		Chains: []*domain.ChainOutput{
			{Chain: domain.ChainBase, SnapshotID: id, HeatScore: 50},
			{Chain: domain.ChainSolana, SnapshotID: id, HeatScore: 60},
		},
	}
}

func TestCommitAndGetByID(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	if err := store.Commit(ctx, cycleOutput("s1", 1000)); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	snap, err := store.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if snap.Regime != domain.RegimeRotation || snap.TimestampMs != 1000 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestCommitDuplicateRejected(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	if err := store.Commit(ctx, cycleOutput("s1", 1000)); err != nil {
		t.Fatalf("first commit failed: %v", err)
	}
	if err := store.Commit(ctx, cycleOutput("s1", 2000)); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestCommitInvalidInput(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	if err := store.Commit(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil output, got %v", err)
	}
	if err := store.Commit(ctx, &domain.CycleOutput{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing snapshot, got %v", err)
	}
}

func TestLatestAdvancesOnCommit(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	if _, err := store.Latest(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound before first commit, got %v", err)
	}

	if err := store.Commit(ctx, cycleOutput("s1", 1000)); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if err := store.Commit(ctx, cycleOutput("s2", 2000)); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	latest, err := store.Latest(ctx)
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if latest.SnapshotID != "s2" {
		t.Errorf("expected latest s2, got %s", latest.SnapshotID)
	}
}

func TestListRecentOrdering(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	for _, c := range []struct {
		id string
		ts int64
	}{{"s1", 1000}, {"s3", 3000}, {"s2", 2000}} {
		if err := store.Commit(ctx, cycleOutput(c.id, c.ts)); err != nil {
			t.Fatalf("commit %s failed: %v", c.id, err)
		}
	}

	snaps, err := store.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(snaps) != 2 || snaps[0].SnapshotID != "s3" || snaps[1].SnapshotID != "s2" {
		t.Errorf("expected [s3 s2], got %v", snapIDs(snaps))
	}
}

func TestCommitIsolatesCallerMutation(t *testing.T) {
	store := NewSnapshotStore()
	ctx := context.Background()

	out := cycleOutput("s1", 1000)
	if err := store.Commit(ctx, out); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	// Mutations after commit must not leak into the store.
	out.Snapshot.Regime = domain.RegimeContraction
	out.Snapshot.TopGainers[0] = "mutated"
	out.Tokens[0].CompositeScore = 0

	snap, err := store.GetByID(ctx, "s1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if snap.Regime != domain.RegimeRotation || snap.TopGainers[0] != "t1" {
		t.Error("committed snapshot mutated through caller reference")
	}

	tokens, err := NewTokenOutputStore(store).GetBySnapshot(ctx, "s1", storage.TokenFilter{})
	if err != nil {
		t.Fatalf("get tokens failed: %v", err)
	}
	if tokens[0].CompositeScore != 80 {
		t.Error("committed token mutated through caller reference")
	}
}

func snapIDs(snaps []*domain.Snapshot) []string {
	ids := make([]string, len(snaps))
	for i, s := range snaps {
		ids[i] = s.SnapshotID
	}
	return ids
}
