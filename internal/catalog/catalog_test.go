package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackageByKey(t *testing.T) {
	t.Run("known package", func(t *testing.T) {
		p, ok := PackageByKey("ind_starter")
		require.True(t, ok)
		require.Equal(t, "Starter", p.Name)
		require.Equal(t, int64(100), p.Credits)
		require.Equal(t, TierIndividual, p.Tier)
	})

	t.Run("unknown package", func(t *testing.T) {
		_, ok := PackageByKey("nonexistent")
		require.False(t, ok)
	})
}

func TestPackagesByTier(t *testing.T) {
	ind := Packages(TierIndividual)
	require.Len(t, ind, 3)
	for _, p := range ind {
		require.Equal(t, TierIndividual, p.Tier)
	}

	biz := Packages(TierBusiness)
	require.Len(t, biz, 3)
	for _, p := range biz {
		require.Equal(t, TierBusiness, p.Tier)
	}

	all := Packages("")
	require.Len(t, all, 6)
}

func TestToolByKey(t *testing.T) {
	t.Run("known tool", func(t *testing.T) {
		tool, ok := ToolByKey("email_writer")
		require.True(t, ok)
		require.Equal(t, int64(8), tool.Cost)
	})

	t.Run("unknown tool", func(t *testing.T) {
		_, ok := ToolByKey("nonexistent")
		require.False(t, ok)
	})
}

func TestToolCostsArePositive(t *testing.T) {
	for _, tool := range Tools() {
		require.Positive(t, tool.Cost, "tool %s", tool.Key)
	}
}
