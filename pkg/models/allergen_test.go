package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAllergen(t *testing.T) {
	composed := "\u0110\u1eadu ph\u1ed9ng"
	decomposed := "\u0110a\u0323\u0302u pho\u0323\u0302ng"
	assert.NotEqual(t, composed, decomposed)
	assert.Equal(t, NormalizeAllergen(composed), NormalizeAllergen(decomposed))

	assert.Equal(t, NormalizeAllergen("Peanut"), NormalizeAllergen(" peanut "))
	assert.Equal(t, NormalizeAllergen("Đậu phộng"), NormalizeAllergen("đậu phộng"))
	assert.Equal(t, NormalizeAllergen("tôm"), NormalizeAllergen("tôm"))
	assert.Empty(t, NormalizeAllergen("   "))
}

func TestAllergenSet(t *testing.T) {
	set := AllergenSet([]string{"Peanut", "peanut", "", "Shrimp"})
	assert.Len(t, set, 2)
	_, ok := set[NormalizeAllergen("PEANUT")]
	assert.True(t, ok)
}

func TestTasteProfile(t *testing.T) {
	var empty TasteProfile
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, DefaultSpicyLevel, empty.EffectiveSpicyLevel())
	assert.False(t, empty.PrefersSoup())

	spicy := 4
	soup := true
	p := TasteProfile{SpicyLevel: &spicy, PreferSoup: &soup}
	assert.False(t, p.IsEmpty())
	assert.Equal(t, 4, p.EffectiveSpicyLevel())
	assert.True(t, p.PrefersSoup())

	assert.False(t, TasteProfile{Allergens: []string{"Peanut"}}.IsEmpty())
	assert.False(t, TasteProfile{FavoriteRegions: []Region{RegionNorth}}.IsEmpty())
}

func TestRegionAndStrategy(t *testing.T) {
	assert.True(t, RegionCentral.Valid())
	assert.False(t, Region("east").Valid())
	assert.Equal(t, "Northern Vietnam", RegionNorth.DisplayName())

	assert.Less(t, StrategyContentBased.Priority(), StrategyCollaborative.Priority())
	assert.Less(t, StrategyCollaborative.Priority(), StrategyLocationBased.Priority())
	assert.Less(t, StrategyLocationBased.Priority(), StrategyTrending.Priority())

	assert.True(t, InteractionRecommendClick.Valid())
	assert.False(t, InteractionKind("share").Valid())
}
