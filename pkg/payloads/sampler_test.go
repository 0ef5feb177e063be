package payloads

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waymap/waymap/pkg/defaults"
	"github.com/waymap/waymap/pkg/finding"
)

func catalogOf(n int) []string {
	c := make([]string, n)
	for i := range c {
		c[i] = fmt.Sprintf("p%d", i)
	}
	return c
}

func TestSample_DistinctMembers(t *testing.T) {
	catalog := catalogOf(40)
	s := NewSeededSampler(7)

	for k := 1; k <= len(catalog); k++ {
		got, err := s.Sample(catalog, k)
		require.NoError(t, err)
		require.Len(t, got, k)

		seen := make(map[string]bool, k)
		for _, p := range got {
			assert.False(t, seen[p], "duplicate %q at k=%d", p, k)
			seen[p] = true
			assert.True(t, slices.Contains(catalog, p), "%q not from catalog", p)
		}
	}
}

func TestSample_ExactCatalogSize(t *testing.T) {
	catalog := catalogOf(10)
	got, err := NewSeededSampler(1).Sample(catalog, 10)
	require.NoError(t, err)

	sorted := slices.Clone(got)
	slices.Sort(sorted)
	want := slices.Clone(catalog)
	slices.Sort(want)
	assert.Equal(t, want, sorted)
}

func TestSample_Insufficient(t *testing.T) {
	_, err := NewSeededSampler(1).Sample(catalogOf(3), 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, finding.ErrInsufficientPayloads))
}

func TestSample_NonPositive(t *testing.T) {
	_, err := NewSeededSampler(1).Sample(catalogOf(3), 0)
	assert.Error(t, err)
}

func TestSample_Reproducible(t *testing.T) {
	catalog := catalogOf(100)
	a, err := NewSeededSampler(42).Sample(catalog, 10)
	require.NoError(t, err)
	b, err := NewSeededSampler(42).Sample(catalog, 10)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSample_DoesNotMutateCatalog(t *testing.T) {
	catalog := catalogOf(20)
	orig := slices.Clone(catalog)
	_, err := NewSeededSampler(3).Sample(catalog, 15)
	require.NoError(t, err)
	assert.Equal(t, orig, catalog)
}

func TestSample_RoughlyUniform(t *testing.T) {
	catalog := catalogOf(10)
	s := NewSeededSampler(99)
	counts := make(map[string]int)
	const rounds = 5000
	for i := 0; i < rounds; i++ {
		got, err := s.Sample(catalog, 3)
		require.NoError(t, err)
		for _, p := range got {
			counts[p]++
		}
	}
	// Expected 1500 hits each; allow a wide band.
	for _, p := range catalog {
		assert.InDelta(t, 1500, counts[p], 250, "payload %s", p)
	}
}

func TestDefaultCatalog(t *testing.T) {
	sql, err := DefaultCatalog(defaults.KindSQL)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(sql), defaults.SampleSize)
	assert.Contains(t, sql, "' OR '1'='1")
	assert.Contains(t, sql, "1' OR '1'='1' #")

	cmdi, err := DefaultCatalog(defaults.KindCMDI)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(cmdi), defaults.SampleSize)

	_, err = DefaultCatalog("ldap")
	assert.True(t, errors.Is(err, finding.ErrDefinitionLoad))
}
