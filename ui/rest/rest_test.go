package rest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/AzielCF/az-pilot/autopilot/application"
	"github.com/AzielCF/az-pilot/autopilot/domain"
	"github.com/AzielCF/az-pilot/autopilot/repository"
	"github.com/AzielCF/az-pilot/pkg/pairlock"
	"github.com/AzielCF/az-pilot/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testStores struct {
	db          *gorm.DB
	settings    *repository.SettingsGormRepository
	queue       *repository.ContentQueueGormRepository
	checkpoints *repository.CheckpointGormStore
	ledger      *repository.ScheduleLedgerGormRepository
	engine      domain.IAutopilotEngine
	timing      application.EngineConfig
}

func setupStores(t *testing.T) testStores {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "autopilot.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}

	ctx := context.Background()
	settings := repository.NewSettingsGormRepository(db)
	queue := repository.NewContentQueueGormRepository(db)
	checkpoints := repository.NewCheckpointGormStore(db)
	ledger := repository.NewScheduleLedgerGormRepository(db)
	for _, init := range []func(context.Context) error{settings.Init, queue.Init, checkpoints.Init, ledger.Init} {
		if err := init(ctx); err != nil {
			t.Fatalf("failed to init schema: %v", err)
		}
	}

	timing := application.EngineConfig{
		UniversalMinGap: 2 * time.Hour,
		DedupWindow:     5 * time.Minute,
		ImmediateBuffer: 2 * time.Minute,
		LockTTL:         time.Minute,
		ItemTimeout:     5 * time.Second,
	}
	engine := application.NewAutopilotEngine(settings, queue, checkpoints, ledger, pairlock.NewMemory(), timing)

	return testStores{
		db:          db,
		settings:    settings,
		queue:       queue,
		checkpoints: checkpoints,
		ledger:      ledger,
		engine:      engine,
		timing:      timing,
	}
}

func setupTestApp(t *testing.T) (*fiber.App, testStores) {
	t.Helper()
	stores := setupStores(t)

	app := fiber.New()
	app.Use(middleware.Recovery())
	api := app.Group("/api")
	InitRestPairSettings(api, stores.settings)
	InitRestContentQueue(api, stores.queue)
	InitRestSchedule(api, stores.engine, stores.settings, stores.queue, stores.checkpoints, stores.ledger, stores.timing)

	return app, stores
}

type responseEnvelope struct {
	Status  int            `json:"status"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Results map[string]any `json:"results"`
}
