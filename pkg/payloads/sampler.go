package payloads

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/waymap/waymap/pkg/finding"
)

// Sampler draws payload subsets. A Sampler is not safe for concurrent use;
// the scan session calls it from its single loop goroutine.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a sampler drawing from rng.
func NewSampler(rng *rand.Rand) *Sampler {
	if rng == nil {
		return NewEntropySampler()
	}
	return &Sampler{rng: rng}
}

// NewSeededSampler returns a reproducible sampler.
func NewSeededSampler(seed uint64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewEntropySampler returns a sampler seeded from system entropy.
func NewEntropySampler() *Sampler {
	return &Sampler{rng: rand.New(rand.NewPCG(rand.Uint64(), uint64(time.Now().UnixNano())))}
}

// Sample returns k payloads drawn uniformly without replacement from
// catalog. The catalog is left untouched. Fails with
// finding.ErrInsufficientPayloads when the catalog holds fewer than k.
func (s *Sampler) Sample(catalog []string, k int) ([]string, error) {
	if k <= 0 {
		return nil, fmt.Errorf("sample size must be positive, got %d", k)
	}
	n := len(catalog)
	if n < k {
		return nil, fmt.Errorf("%w: catalog has %d, need %d", finding.ErrInsufficientPayloads, n, k)
	}

	// Partial Fisher-Yates over indices: the first k slots end up holding
	// a uniform k-subset in random order.
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	out := make([]string, k)
	for i := 0; i < k; i++ {
		j := i + s.rng.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
		out[i] = catalog[idx[i]]
	}
	return out, nil
}
