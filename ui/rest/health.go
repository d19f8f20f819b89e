package rest

import (
	"time"

	domainAutopilot "github.com/AzielCF/az-pilot/autopilot/domain"
	"github.com/AzielCF/az-pilot/infrastructure/valkey"
	"github.com/AzielCF/az-pilot/pkg/utils"
	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Health reports process liveness plus the state of the two backing stores.
// Valkey is optional infrastructure, so "disabled" is a healthy answer there.
type Health struct {
	DB       *gorm.DB
	Valkey   *valkey.Client
	Ledger   domainAutopilot.IScheduleLedger
	ServerID string
	Version  string
	started  time.Time
}

func InitRestHealth(app fiber.Router, db *gorm.DB, valkeyClient *valkey.Client, ledger domainAutopilot.IScheduleLedger, serverID, version string) Health {
	handler := Health{
		DB:       db,
		Valkey:   valkeyClient,
		Ledger:   ledger,
		ServerID: serverID,
		Version:  version,
		started:  time.Now(),
	}
	app.Get("/health/status", handler.GetStatus)
	return handler
}

func (h *Health) GetStatus(c *fiber.Ctx) error {
	ctx := c.UserContext()

	database := "up"
	if sqlDB, err := h.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		database = "down"
	}

	valkeyState := "disabled"
	if h.Valkey != nil {
		valkeyState = "down"
		if h.Valkey.Ping(ctx) == nil {
			valkeyState = "up"
		}
	}

	// The backlog is informational; a count failure must not flip liveness.
	backlog, err := h.Ledger.CountScheduled(ctx)
	if err != nil {
		backlog = -1
	}

	status := 200
	code := "SUCCESS"
	if database == "down" {
		status = 503
		code = "INTERNAL_ERROR"
	}

	return c.Status(status).JSON(utils.ResponseData{
		Status:  status,
		Code:    code,
		Message: "Health status retrieved",
		Results: fiber.Map{
			"server_id":         h.ServerID,
			"version":           h.Version,
			"started":           humanize.Time(h.started),
			"database":          database,
			"valkey":            valkeyState,
			"scheduled_backlog": backlog,
		},
	})
}
