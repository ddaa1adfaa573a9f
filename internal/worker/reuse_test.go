package worker

import (
	"testing"

	"github.com/google/uuid"
)

func testPool(n int) []PoolAsset {
	pool := make([]PoolAsset, n)
	for i := range pool {
		pool[i] = PoolAsset{
			AssetID:     uuid.New(),
			StoragePath: "some/path.mp4",
			Query:       "ocean waves",
		}
	}
	return pool
}

func TestRandomReusePolicyIsDeterministicForSeed(t *testing.T) {
	pool := testPool(3)

	a := NewRandomReusePolicy(42, 0.5)
	b := NewRandomReusePolicy(42, 0.5)

	for i := 0; i < 50; i++ {
		got := a.ChooseVisual(i, pool)
		want := b.ChooseVisual(i, pool)

		if (got == nil) != (want == nil) {
			t.Fatalf("decision %d diverged between identical seeds", i)
		}
		if got != nil && got.AssetID != want.AssetID {
			t.Fatalf("decision %d picked different pool assets", i)
		}
	}
}

func TestRandomReusePolicyEmptyPool(t *testing.T) {
	p := NewRandomReusePolicy(1, 1.0)
	if p.ChooseVisual(0, nil) != nil {
		t.Error("empty pool must always fetch fresh")
	}
}

func TestRandomReusePolicyProbabilityBounds(t *testing.T) {
	pool := testPool(2)

	always := NewRandomReusePolicy(7, 1.0)
	for i := 0; i < 20; i++ {
		if always.ChooseVisual(i, pool) == nil {
			t.Fatal("probability 1.0 should always reuse")
		}
	}

	never := NewRandomReusePolicy(7, 0.0)
	for i := 0; i < 20; i++ {
		if never.ChooseVisual(i, pool) != nil {
			t.Fatal("probability 0.0 should never reuse")
		}
	}
}

func TestFixedReusePolicy(t *testing.T) {
	pool := testPool(2)

	reuse := &FixedReusePolicy{Reuse: true}
	if got := reuse.ChooseVisual(0, pool); got == nil || got.AssetID != pool[0].AssetID {
		t.Error("fixed reuse policy should pick the first pool asset")
	}
	if reuse.ChooseVisual(0, nil) != nil {
		t.Error("fixed reuse policy cannot reuse from an empty pool")
	}

	fresh := &FixedReusePolicy{Reuse: false}
	if fresh.ChooseVisual(0, pool) != nil {
		t.Error("fixed fresh policy should never reuse")
	}
}
