package cmd

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/AzielCF/az-pilot/autopilot/application"
	"github.com/AzielCF/az-pilot/autopilot/domain"
	"github.com/AzielCF/az-pilot/autopilot/domain/monitoring"
	"github.com/AzielCF/az-pilot/autopilot/repository"
	coreconfig "github.com/AzielCF/az-pilot/core/config"
	coreDB "github.com/AzielCF/az-pilot/core/database"
	coreSettings "github.com/AzielCF/az-pilot/core/settings/application"
	"github.com/AzielCF/az-pilot/infrastructure/valkey"
	"github.com/AzielCF/az-pilot/pkg/pairlock"
	"github.com/AzielCF/az-pilot/pkg/pairworker"
	"github.com/AzielCF/az-pilot/pkg/pilotmonitor"
	"github.com/AzielCF/az-pilot/pkg/utils"
	"github.com/AzielCF/az-pilot/ui/websocket"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

var (
	db *gorm.DB

	// Stores
	settingsRepo    domain.ISettingsRepository
	queueRepo       domain.IContentQueue
	checkpointStore domain.ICheckpointStore
	ledgerRepo      domain.IScheduleLedger
	systemSettings  *coreSettings.SettingsService

	// Infrastructure
	vkClient     *valkey.Client
	locks        pairlock.Guard
	monitorStore monitoring.MonitoringStore
	serverID     string

	// Engine and loops
	engine     domain.IAutopilotEngine
	publisher  domain.IPlatformPublisher
	pairPool   *pairworker.PairWorkerPool
	watcher    *application.Watcher
	dispatcher *application.Dispatcher
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "az-pilot",
	Short: "Autopilot scheduling engine for social publishing",
	Long: `az-pilot watches per-account content queues and decides when each post
goes out, reconciling the configured cadence of every (account, platform)
pair with the platform-wide minimum gap between posts.`,
}

func init() {
	// Load environment variables first
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	if _, err := coreconfig.LoadConfig(); err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize flags first, before any subcommands are added
	initFlags()

	// Then initialize other components
	cobra.OnInitialize(initEnvConfig, initApp)
}

// initEnvConfig loads configuration from environment variables
func initEnvConfig() {
	viper.AutomaticEnv()

	// Application settings
	if envPort := viper.GetString("app_port"); envPort != "" {
		coreconfig.Global.App.Port = envPort
	}
	if viper.IsSet("app_debug") {
		coreconfig.Global.App.Debug = viper.GetBool("app_debug")
	}
	envBasicAuth := viper.GetString("app_basic_auth")
	if envBasicAuth == "" {
		envBasicAuth = os.Getenv("APP_BASIC_AUTH")
	}
	if envBasicAuth != "" {
		coreconfig.Global.App.BasicAuth = strings.Split(envBasicAuth, ",")
	}
	if envBasePath := viper.GetString("app_base_path"); envBasePath != "" {
		coreconfig.Global.App.BasePath = envBasePath
	}
	if envTrustedProxies := viper.GetString("app_trusted_proxies"); envTrustedProxies != "" {
		coreconfig.Global.App.TrustedProxies = strings.Split(envTrustedProxies, ",")
	}

	// Database settings
	if envDriver := viper.GetString("db_driver"); envDriver != "" {
		coreconfig.Global.Database.Driver = envDriver
	}
	if envName := viper.GetString("db_name"); envName != "" {
		coreconfig.Global.Database.Name = envName
	}
	if viper.IsSet("valkey_enabled") {
		coreconfig.Global.Database.ValkeyEnabled = viper.GetBool("valkey_enabled")
	}
	if envValkey := viper.GetString("valkey_address"); envValkey != "" {
		coreconfig.Global.Database.ValkeyAddress = envValkey
	}

	// Scheduling settings
	if envSpec := viper.GetString("autopilot_watch_spec"); envSpec != "" {
		coreconfig.Global.Autopilot.WatchSpec = envSpec
	}
	if envSpec := viper.GetString("autopilot_dispatch_spec"); envSpec != "" {
		coreconfig.Global.Autopilot.DispatchSpec = envSpec
	}
	if envWebhook := viper.GetString("autopilot_publish_webhook"); envWebhook != "" {
		coreconfig.Global.Publisher.WebhookURLs = strings.Split(envWebhook, ",")
	}
	if envSecret := viper.GetString("autopilot_publish_webhook_secret"); envSecret != "" {
		coreconfig.Global.Publisher.WebhookSecret = envSecret
	}
	if viper.IsSet("autopilot_publish_webhook_insecure_skip_verify") {
		coreconfig.Global.Publisher.WebhookInsecureSkipVerify = viper.GetBool("autopilot_publish_webhook_insecure_skip_verify")
	}
}

func initFlags() {
	// Application flags
	rootCmd.PersistentFlags().StringVarP(
		&coreconfig.Global.App.Port,
		"port", "p",
		coreconfig.Global.App.Port,
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&coreconfig.Global.App.Debug,
		"debug", "d",
		coreconfig.Global.App.Debug,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&coreconfig.Global.App.BasicAuth,
		"basic-auth", "b",
		coreconfig.Global.App.BasicAuth,
		"basic auth credential | -b=yourUsername:yourPassword",
	)
	rootCmd.PersistentFlags().StringVarP(
		&coreconfig.Global.App.BasePath,
		"base-path", "",
		coreconfig.Global.App.BasePath,
		`base path for subpath deployment --base-path <string> | example: --base-path="/azpilot"`,
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&coreconfig.Global.App.TrustedProxies,
		"trusted-proxies", "",
		coreconfig.Global.App.TrustedProxies,
		`trusted proxy IP ranges for reverse proxy deployments --trusted-proxies <string> | example: --trusted-proxies="10.0.0.0/8,172.16.0.0/12"`,
	)

	// Database flags
	rootCmd.PersistentFlags().StringVarP(
		&coreconfig.Global.Database.Driver,
		"db-driver", "",
		coreconfig.Global.Database.Driver,
		`database driver --db-driver <string> | example: --db-driver="postgres" (default: sqlite)`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&coreconfig.Global.Database.Name,
		"db-name", "",
		coreconfig.Global.Database.Name,
		`database name, or file path for sqlite --db-name <string> | example: --db-name="storages/autopilot.db"`,
	)

	// Scheduling flags
	rootCmd.PersistentFlags().StringVarP(
		&coreconfig.Global.Autopilot.WatchSpec,
		"watch-spec", "",
		coreconfig.Global.Autopilot.WatchSpec,
		`cadence of the pair sweep --watch-spec <cron> | example: --watch-spec="@every 30s"`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&coreconfig.Global.Autopilot.DispatchSpec,
		"dispatch-spec", "",
		coreconfig.Global.Autopilot.DispatchSpec,
		`cadence of the publish dispatcher --dispatch-spec <cron> | example: --dispatch-spec="@every 10s"`,
	)
	rootCmd.PersistentFlags().IntVarP(
		&coreconfig.Global.Autopilot.MaxBatch,
		"max-batch", "",
		coreconfig.Global.Autopilot.MaxBatch,
		`ready items per scheduling batch, 0 means unbounded --max-batch <number> | example: --max-batch=25`,
	)

	// Publisher flags
	rootCmd.PersistentFlags().StringSliceVarP(
		&coreconfig.Global.Publisher.WebhookURLs,
		"webhook", "w",
		coreconfig.Global.Publisher.WebhookURLs,
		`forward due entries to webhook --webhook <string> | example: --webhook="https://yourcallback.com/publish"`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&coreconfig.Global.Publisher.WebhookSecret,
		"webhook-secret", "",
		coreconfig.Global.Publisher.WebhookSecret,
		`secure webhook request --webhook-secret <string> | example: --webhook-secret="super-secret-key"`,
	)

	// Pair Worker Pool flags
	rootCmd.PersistentFlags().IntVarP(
		&coreconfig.Global.WorkerPool.Size,
		"pair-workers", "",
		coreconfig.Global.WorkerPool.Size,
		`number of concurrent pair workers --pair-workers <number> | example: --pair-workers=30 (default: 20)`,
	)
	rootCmd.PersistentFlags().IntVarP(
		&coreconfig.Global.WorkerPool.QueueSize,
		"pair-queue-size", "",
		coreconfig.Global.WorkerPool.QueueSize,
		`queue size per pair worker --pair-queue-size <number> | example: --pair-queue-size=1500 (default: 1000)`,
	)
}

func initApp() {
	cfg := coreconfig.Global

	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	// preparing folder if not exist
	if err := utils.CreateFolder(cfg.Paths.Storages); err != nil {
		logrus.Errorln(err)
	}

	ctx := context.Background()

	var err error
	db, err = coreDB.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("failed to open database: %v", err)
	}

	// 1. Stores
	settingsRepo = repository.NewSettingsGormRepository(db)
	queueRepo = repository.NewContentQueueGormRepository(db)
	checkpointStore = repository.NewCheckpointGormStore(db)
	ledgerRepo = repository.NewScheduleLedgerGormRepository(db)
	systemSettings = coreSettings.NewSettingsService(db)

	if err := settingsRepo.Init(ctx); err != nil {
		logrus.Fatalf("failed to init settings schema: %v", err)
	}
	if err := queueRepo.Init(ctx); err != nil {
		logrus.Fatalf("failed to init queue schema: %v", err)
	}
	if err := checkpointStore.Init(ctx); err != nil {
		logrus.Fatalf("failed to init checkpoint schema: %v", err)
	}
	if err := ledgerRepo.Init(ctx); err != nil {
		logrus.Fatalf("failed to init ledger schema: %v", err)
	}
	if err := systemSettings.Init(ctx); err != nil {
		logrus.Fatalf("failed to init system settings schema: %v", err)
	}

	// 2. Valkey (optional). Without it, locks and cluster stats stay in-process.
	if cfg.Database.ValkeyEnabled {
		vkClient, err = valkey.NewClient(valkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			logrus.WithError(err).Warn("[APP] Valkey unavailable, falling back to in-process locks")
			vkClient = nil
		}
	}

	if vkClient != nil {
		locks = valkey.NewLocker(vkClient)
		monitorStore = repository.NewValkeyMonitoringStore(vkClient)
	} else {
		locks = pairlock.NewMemory()
		monitorStore = repository.NewMemoryMonitoringStore()
	}

	serverID = utils.GetPersistentServerID(cfg.App.ServerID, cfg.Paths.Storages)

	// 3. Engine
	engine = application.NewAutopilotEngine(settingsRepo, queueRepo, checkpointStore, ledgerRepo, locks, engineTiming(cfg))

	// 4. Pair worker pool, reporting activity to the cluster store
	pairPool = pairworker.NewPairWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize)
	pairPool.OnWorkerStart = func(workerID int, pairKey string) {
		now := time.Now().UTC()
		_ = monitorStore.UpdateWorkerActivity(context.Background(), monitoring.WorkerActivity{
			ServerID:     serverID,
			WorkerID:     workerID,
			PoolType:     "pair",
			IsProcessing: true,
			PairKey:      pairKey,
			StartedAt:    now,
			UpdatedAt:    now,
		})
	}
	pairPool.OnWorkerEnd = func(workerID int, pairKey string) {
		_ = monitorStore.UpdateWorkerActivity(context.Background(), monitoring.WorkerActivity{
			ServerID:     serverID,
			WorkerID:     workerID,
			PoolType:     "pair",
			IsProcessing: false,
			UpdatedAt:    time.Now().UTC(),
		})
	}

	// 5. Loops, gated by the runtime operator switches
	watcher = application.NewWatcher(engine, settingsRepo, pairPool, cfg.Autopilot.WatchSpec)
	watcher.Paused = systemSettings.IsSweepPaused

	publisher = newPublisher(cfg)
	dispatcher = application.NewDispatcher(ledgerRepo, publisher, locks, cfg.Autopilot.DispatchSpec, cfg.Autopilot.DispatchBatch, cfg.Autopilot.ItemTimeout)
	dispatcher.Paused = systemSettings.IsDispatchPaused

	// 6. Hooks: counters to the cluster store, events to the websocket hub
	pilotmonitor.OnIncrement = func(key string) {
		_ = monitorStore.IncrementStat(context.Background(), key)
	}
	pilotmonitor.OnEvent = websocket.PublishEvent
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of the loops and database connections.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if watcher != nil {
		watcher.Stop()
	}
	if dispatcher != nil {
		dispatcher.Stop()
	}
	if pairPool != nil {
		pairPool.Stop()
	}

	if monitorStore != nil && serverID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := monitorStore.RemoveServer(ctx, serverID); err != nil {
			logrus.WithError(err).Warn("[APP] Failed to deregister server from cluster store")
		}
		cancel()
	}

	if vkClient != nil {
		vkClient.Close()
	}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
