// Package services wires together the planning core's infrastructure
// collaborators (database, cache, action registry, replan monitor) behind
// one struct, following the teacher's NewServices/Shutdown lifecycle
// pattern from internal/services.
package services

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"wayfare-backend/internal/cache"
	"wayfare-backend/internal/config"
	"wayfare-backend/internal/planning/actions"
	"wayfare-backend/internal/planning/replan"
	"wayfare-backend/internal/replanmonitor"
	"wayfare-backend/internal/store"
)

// Services contains all service dependencies.
type Services struct {
	DB            *gorm.DB
	Redis         *redis.Client
	PoiStore      *store.PoiStore
	TripStore     *store.TripStore
	TransitCache  *cache.TransitCache
	PoiFactsCache *cache.PoiFactsCache
	Actions       *actions.Registry
	ReplanMonitor *replanmonitor.Monitor
}

// NewServices initializes and returns all services.
func NewServices(cfg *config.Config) (*Services, error) {
	db, err := gorm.Open(postgres.Open(cfg.Postgres.DSN()), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	poiStore := store.NewPoiStore(db)
	if err := poiStore.Migrate(); err != nil {
		return nil, err
	}
	tripStore := store.NewTripStore(db)
	if err := tripStore.Migrate(); err != nil {
		return nil, err
	}

	redisClient := cache.NewClient(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)

	registry := actions.BuildRegistry(actions.Deps{TripStore: tripStore, Places: poiStore})

	monitor := replanmonitor.NewMonitor(nil, nil, tripStore, changeBudgetFromConfig(cfg))
	if err := monitor.Schedule(cfg.Replan.MonitorCronSchedule); err != nil {
		log.Printf("Warning: failed to schedule replan monitor: %v", err)
	}

	log.Println("Services initialized successfully")

	return &Services{
		DB:            db,
		Redis:         redisClient,
		PoiStore:      poiStore,
		TripStore:     tripStore,
		TransitCache:  cache.NewTransitCache(redisClient),
		PoiFactsCache: cache.NewPoiFactsCache(redisClient),
		Actions:       registry,
		ReplanMonitor: monitor,
	}, nil
}

// Shutdown gracefully shuts down all services.
func (s *Services) Shutdown(ctx context.Context) error {
	s.ReplanMonitor.Stop()

	var lastError error
	if err := s.Redis.Close(); err != nil {
		log.Printf("Error closing redis client: %v", err)
		lastError = err
	}

	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		lastError = err
	}

	log.Println("All services shut down")
	return lastError
}

func changeBudgetFromConfig(cfg *config.Config) replan.ChangeBudget {
	return replan.ChangeBudget{
		MaxChangeCount:  cfg.Replan.MaxChangeCount,
		MaxTimeShiftMin: cfg.Replan.MaxTimeShiftMin,
	}
}
