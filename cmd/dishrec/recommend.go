package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/temcen/dishrec/internal/app"
	"github.com/temcen/dishrec/internal/config"
	"github.com/temcen/dishrec/internal/database"
	"github.com/temcen/dishrec/internal/services"
	"github.com/temcen/dishrec/pkg/models"
)

type recommendOptions struct {
	catalog   string
	userID    string
	similarTo string
	limit     int
	latitude  float64
	longitude float64
}

func recommendCmd(load configLoader) *cobra.Command {
	opts := &recommendOptions{}

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Run one recommendation query and print the response as JSON",
		Long: `Run one recommendation query against Postgres, or against a JSON
catalog file when --catalog is given.

Examples:
  dishrec recommend --limit 5
  dishrec recommend --user 6f1c2b8e-2d0a-4b7e-9a43-0d3c1e5f7a21 --lat 21.03 --lon 105.85
  dishrec recommend --catalog dishes.json --similar 0b7d3c6e-1a2f-4e8b-9c5d-7f6a5b4c3d2e`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			geoSet := cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon")
			if geoSet && !(cmd.Flags().Changed("lat") && cmd.Flags().Changed("lon")) {
				return fmt.Errorf("--lat and --lon must be given together")
			}
			return runRecommend(cmd, cfg, opts, geoSet)
		},
	}

	cmd.Flags().StringVar(&opts.catalog, "catalog", "", "JSON catalog file to use instead of Postgres")
	cmd.Flags().StringVarP(&opts.userID, "user", "u", "", "requesting user id")
	cmd.Flags().StringVar(&opts.similarTo, "similar", "", "recommend dishes similar to this food id")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "maximum results")
	cmd.Flags().Float64Var(&opts.latitude, "lat", 0, "requester latitude")
	cmd.Flags().Float64Var(&opts.longitude, "lon", 0, "requester longitude")

	return cmd
}

func runRecommend(cmd *cobra.Command, cfg *config.Config, opts *recommendOptions, geoSet bool) error {
	logger := app.NewLogger(cfg.Logging)
	ctx := cmd.Context()

	var store services.Store
	if opts.catalog != "" {
		f, err := os.Open(opts.catalog)
		if err != nil {
			return fmt.Errorf("failed to open catalog: %w", err)
		}
		defer f.Close()

		memory, err := database.LoadCatalog(f)
		if err != nil {
			return err
		}
		store = memory
	} else {
		cfg.Redis.Hot.URL, cfg.Redis.Warm.URL, cfg.Neo4j.URL = "", "", ""
		db, err := database.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		store = database.NewPostgresStore(db.PG, logger)
	}

	orchestrator := services.NewRecommendationOrchestrator(&cfg.Engine, nil, nil, logger)
	service := services.NewRecommendationService(store, orchestrator, nil, nil, cfg, nil, logger)

	var (
		response *models.RecommendationResponse
		err      error
	)
	switch {
	case opts.similarTo != "":
		foodID, parseErr := uuid.Parse(opts.similarTo)
		if parseErr != nil {
			return fmt.Errorf("invalid --similar food id: %w", parseErr)
		}
		response, err = service.RecommendSimilar(ctx, foodID, opts.limit)
	default:
		var userID *uuid.UUID
		if opts.userID != "" {
			id, parseErr := uuid.Parse(opts.userID)
			if parseErr != nil {
				return fmt.Errorf("invalid --user id: %w", parseErr)
			}
			userID = &id
		}
		var geo *models.GeoPoint
		if geoSet {
			geo = &models.GeoPoint{Latitude: opts.latitude, Longitude: opts.longitude}
		}
		response, err = service.Recommend(ctx, userID, opts.limit, geo)
	}
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}
