package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	coreconfig "github.com/AzielCF/az-pilot/core/config"
	"github.com/AzielCF/az-pilot/ui/rest"
	"github.com/AzielCF/az-pilot/ui/rest/middleware"
	"github.com/AzielCF/az-pilot/ui/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var restCmd = &cobra.Command{
	Use:   "rest",
	Short: "Run the scheduling engine with its HTTP API",
	Long: `Starts the watcher and dispatcher loops and exposes the configuration,
queue and monitoring API over HTTP.`,
	Run: restServer,
}

func init() {
	restCmd.Flags().String("basic-auth", "", "Basic auth for API (format: user:pass,user2:pass2)")
	rootCmd.AddCommand(restCmd)
}

func restServer(cmd *cobra.Command, _ []string) {
	// Override basic auth if flag is provided
	if baFlag, _ := cmd.Flags().GetString("basic-auth"); baFlag != "" {
		coreconfig.Global.App.BasicAuth = strings.Split(baFlag, ",")
	}

	fiberConfig := fiber.Config{
		EnableTrustedProxyCheck: true,
		Network:                 "tcp",
		AppName:                 "Az-Pilot Autopilot Engine",
		DisableStartupMessage:   false,
		ServerHeader:            "Hidden",
	}

	// Configure proxy settings if trusted proxies are specified
	if len(coreconfig.Global.App.TrustedProxies) > 0 {
		fiberConfig.TrustedProxies = coreconfig.Global.App.TrustedProxies
		fiberConfig.ProxyHeader = fiber.HeaderXForwardedHost
	}

	app := fiber.New(fiberConfig)

	// Security: RequestID for audit trails
	app.Use(requestid.New())

	// Security: Strict CORS
	origins := strings.Join(coreconfig.Global.App.CorsAllowedOrigins, ", ")
	if !strings.Contains(origins, coreconfig.Global.App.BaseUrl) {
		origins += ", " + coreconfig.Global.App.BaseUrl
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.Recovery())

	// Security: Hardened Headers
	app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		HSTSMaxAge:            31536000,
		HSTSExcludeSubdomains: false,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        1000,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
	}))

	if coreconfig.Global.App.Debug {
		app.Use(logger.New())
	}

	if len(coreconfig.Global.App.BasicAuth) == 0 {
		logrus.Fatalln("APP_BASIC_AUTH is required. Nothing should be public; please set APP_BASIC_AUTH=<user>:<secret>[,<user2>:<secret2>] and restart.")
	}

	account := make(map[string]string)
	for _, basicAuth := range coreconfig.Global.App.BasicAuth {
		ba := strings.Split(basicAuth, ":")
		if len(ba) != 2 {
			logrus.Fatalln("Basic auth is not valid, please this following format <user>:<secret>")
		}
		account[ba[0]] = ba[1]
	}

	// Create API group
	apiGroup := app.Group(coreconfig.Global.App.BasePath + "/api")

	// Apply BasicAuth ONLY to the API group
	apiGroup.Use(basicauth.New(basicauth.Config{
		Users: account,
		Next: func(c *fiber.Ctx) bool {
			// Allow CORS preflight without credentials.
			if c.Method() == fiber.MethodOptions {
				return true
			}
			return false
		},
	}))

	// Context shared by the loops; cancelled on shutdown.
	appCtx, stopLoops := context.WithCancel(context.Background())

	// Graceful shutdown handler
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Info("[REST] Reception of termination signal, shutting down gracefully...")
		if err := app.Shutdown(); err != nil {
			logrus.Errorf("[REST] Error during Fiber shutdown: %v", err)
		}

		stopLoops()
		StopApp()
	}()

	// Register handlers
	rest.InitRestPairSettings(apiGroup, settingsRepo)
	rest.InitRestContentQueue(apiGroup, queueRepo)
	rest.InitRestSchedule(apiGroup, engine, settingsRepo, queueRepo, checkpointStore, ledgerRepo, engineTiming(coreconfig.Global))
	rest.InitRestSystem(apiGroup, systemSettings)
	rest.InitRestHealth(apiGroup, db, vkClient, ledgerRepo, serverID, coreconfig.Global.App.Version)

	// Unified Monitoring System (Multi-server aware)
	rest.InitRestMonitoring(apiGroup, monitorStore)
	rest.SetPairPool(pairPool)
	apiGroup.Get("/worker-pool/stats", rest.GetWorkerPoolStats)

	// Websocket
	websocket.SetValkeyClient(vkClient, serverID)
	websocket.RegisterRoutes(apiGroup)
	go websocket.RunHub()

	// Start the scheduling loops
	pairPool.Start(appCtx)
	if err := watcher.Start(appCtx); err != nil {
		logrus.Fatalln("Failed to start watcher: ", err.Error())
	}
	if err := dispatcher.Start(appCtx); err != nil {
		logrus.Fatalln("Failed to start dispatcher: ", err.Error())
	}

	go heartbeatLoop(appCtx)

	// 404 Handler ONLY for API group
	apiGroup.All("/*", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "API Endpoint not found",
			"path":  c.Path(),
		})
	})

	if err := app.Listen(":" + coreconfig.Global.App.Port); err != nil {
		logrus.Fatalln("Failed to start: ", err.Error())
	}
}

// heartbeatLoop keeps this node visible in the cluster store and refreshes
// the scheduled-backlog gauge.
func heartbeatLoop(ctx context.Context) {
	started := time.Now()
	beat := func() {
		beatCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		uptime := int64(time.Since(started).Seconds())
		if err := monitorStore.ReportHeartbeat(beatCtx, serverID, uptime, coreconfig.Global.App.Version); err != nil {
			logrus.WithError(err).Debug("[MONITOR] Heartbeat failed")
		}
		if backlog, err := ledgerRepo.CountScheduled(beatCtx); err == nil {
			_ = monitorStore.UpdateStat(beatCtx, "scheduled_backlog", backlog)
		}
	}

	beat()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			beat()
		}
	}
}
