package worker

import (
	"math/rand"
	"sync"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Asset reuse policy
// Stock footage for a recurring query doesn't need to be re-downloaded every
// time. The policy decides, per scene, whether to reuse a previously stored
// clip from the pool or fetch fresh footage. Reused objects are always
// copied to the new scene's storage path, never aliased.
// ---------------------------------------------------------------------------

// PoolAsset is a previously stored stock clip eligible for reuse.
type PoolAsset struct {
	AssetID     uuid.UUID
	StoragePath string
	Query       string
}

// ReusePolicy chooses a visual for a scene: a pool asset to reuse, or nil
// to fetch fresh footage.
type ReusePolicy interface {
	ChooseVisual(sceneIndex int, pool []PoolAsset) *PoolAsset
}

// RandomReusePolicy reuses pool footage with a fixed probability. Seeded
// construction keeps runs reproducible.
type RandomReusePolicy struct {
	mu          sync.Mutex
	rng         *rand.Rand
	probability float64
}

func NewRandomReusePolicy(seed int64, probability float64) *RandomReusePolicy {
	if probability < 0 {
		probability = 0
	}
	if probability > 1 {
		probability = 1
	}
	return &RandomReusePolicy{
		rng:         rand.New(rand.NewSource(seed)),
		probability: probability,
	}
}

func (p *RandomReusePolicy) ChooseVisual(sceneIndex int, pool []PoolAsset) *PoolAsset {
	if len(pool) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rng.Float64() >= p.probability {
		return nil
	}
	return &pool[p.rng.Intn(len(pool))]
}

// FixedReusePolicy always answers the same way. Reuse=true picks the first
// pool asset; false always fetches fresh.
type FixedReusePolicy struct {
	Reuse bool
}

func (p *FixedReusePolicy) ChooseVisual(sceneIndex int, pool []PoolAsset) *PoolAsset {
	if !p.Reuse || len(pool) == 0 {
		return nil
	}
	return &pool[0]
}
