package services

import (
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/temcen/dishrec/internal/config"
	"github.com/temcen/dishrec/internal/database"
	"github.com/temcen/dishrec/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func intPtr(v int) *int       { return &v }
func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func regionPtr(r models.Region) *models.Region { return &r }

func dish(name string, region models.Region, foodType models.FoodType, spicy int, views int64) models.Food {
	return models.Food{
		Name:       name,
		Region:     region,
		FoodType:   foodType,
		SpicyLevel: spicy,
		ViewCount:  views,
		Active:     true,
	}
}

// catalog is a small Vietnamese menu spread across the three regions.
type catalog struct {
	Pho, BunCha, BanhCuon  models.Food // north
	BunBoHue, MiQuang, Che models.Food // central
	ComTam, HuTieu, Chay   models.Food // south
	Retired                models.Food // inactive
}

func seedCatalog(t *testing.T, store *database.MemoryStore) catalog {
	t.Helper()

	chay := dish("Com chay", models.RegionSouth, models.FoodTypeDry, 0, 15)
	chay.Vegetarian = true
	che := dish("Che ba mau", models.RegionCentral, models.FoodTypeDessert, 0, 25)
	che.Vegetarian = true
	retired := dish("Banh da cua", models.RegionNorth, models.FoodTypeSoup, 1, 1000)
	retired.Active = false
	buncha := dish("Bun cha", models.RegionNorth, models.FoodTypeDry, 1, 90)
	buncha.Allergens = []string{"Đậu phộng"}

	return catalog{
		Pho:      store.AddFood(dish("Pho bo", models.RegionNorth, models.FoodTypeSoup, 1, 120)),
		BunCha:   store.AddFood(buncha),
		BanhCuon: store.AddFood(dish("Banh cuon", models.RegionNorth, models.FoodTypeDry, 0, 40)),
		BunBoHue: store.AddFood(dish("Bun bo Hue", models.RegionCentral, models.FoodTypeSoup, 4, 100)),
		MiQuang:  store.AddFood(dish("Mi Quang", models.RegionCentral, models.FoodTypeDry, 2, 60)),
		Che:      store.AddFood(che),
		ComTam:   store.AddFood(dish("Com tam", models.RegionSouth, models.FoodTypeDry, 1, 110)),
		HuTieu:   store.AddFood(dish("Hu tieu", models.RegionSouth, models.FoodTypeSoup, 0, 70)),
		Chay:     store.AddFood(chay),
		Retired:  store.AddFood(retired),
	}
}

func newTestOrchestrator(neighbors NeighborSource) *RecommendationOrchestrator {
	cfg := config.DefaultEngineConfig()
	return NewRecommendationOrchestrator(&cfg, neighbors, nil, testLogger())
}

func resultIDs(results []models.RecommendationResult) []string {
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Food.Name
	}
	return names
}
