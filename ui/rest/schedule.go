package rest

import (
	"errors"
	"time"

	"github.com/AzielCF/az-pilot/autopilot/application"
	domainAutopilot "github.com/AzielCF/az-pilot/autopilot/domain"
	"github.com/AzielCF/az-pilot/pkg/utils"
	"github.com/AzielCF/az-pilot/validations"
	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
)

type Schedule struct {
	Engine      domainAutopilot.IAutopilotEngine
	Settings    domainAutopilot.ISettingsRepository
	Queue       domainAutopilot.IContentQueue
	Checkpoints domainAutopilot.ICheckpointStore
	Ledger      domainAutopilot.IScheduleLedger
	Timing      application.EngineConfig
}

func InitRestSchedule(
	app fiber.Router,
	engine domainAutopilot.IAutopilotEngine,
	settings domainAutopilot.ISettingsRepository,
	queue domainAutopilot.IContentQueue,
	checkpoints domainAutopilot.ICheckpointStore,
	ledger domainAutopilot.IScheduleLedger,
	timing application.EngineConfig,
) Schedule {
	rest := Schedule{
		Engine:      engine,
		Settings:    settings,
		Queue:       queue,
		Checkpoints: checkpoints,
		Ledger:      ledger,
		Timing:      timing,
	}
	app.Post("/pairs/:account_id/:platform/run", rest.RunPair)
	app.Get("/pairs/:account_id/:platform/status", rest.GetStatus)
	app.Get("/pairs/:account_id/:platform/entries", rest.ListEntries)
	app.Delete("/pairs/:account_id/:platform/checkpoint", rest.ResetPair)
	app.Delete("/accounts/:account_id/checkpoints", rest.ResetAccount)
	return rest
}

// RunPair triggers one scheduling batch for the pair outside the watcher
// cycle. The response carries the batch outcome, including the in_progress
// flag when another batch already held the pair lock.
func (controller *Schedule) RunPair(c *fiber.Ctx) error {
	accountID := c.Params("account_id")
	platform := c.Params("platform")
	err := validations.ValidatePair(c.UserContext(), accountID, platform)
	utils.PanicIfNeeded(err)

	result, err := controller.Engine.ScheduleReady(c.UserContext(), accountID, domainAutopilot.Platform(platform))
	utils.PanicIfNeeded(err)

	message := "Scheduling batch completed"
	if result.InProgress {
		message = "Scheduling batch already in progress for this pair"
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: message,
		Results: result,
	})
}

func (controller *Schedule) GetStatus(c *fiber.Ctx) error {
	accountID := c.Params("account_id")
	platform := c.Params("platform")
	err := validations.ValidatePair(c.UserContext(), accountID, platform)
	utils.PanicIfNeeded(err)

	settings, err := controller.Settings.Get(c.UserContext(), accountID, domainAutopilot.Platform(platform))
	if errors.Is(err, domainAutopilot.ErrSettingsNotFound) {
		return c.Status(404).JSON(utils.ResponseData{
			Status:  404,
			Code:    "NOT_FOUND",
			Message: "Pair settings not found",
		})
	}
	utils.PanicIfNeeded(err)

	checkpoint, err := controller.Checkpoints.Get(c.UserContext(), accountID, domainAutopilot.Platform(platform))
	utils.PanicIfNeeded(err)

	readyCount, err := controller.Queue.CountReady(c.UserContext(), accountID, domainAutopilot.Platform(platform))
	utils.PanicIfNeeded(err)

	entries, err := controller.Ledger.ListByPair(c.UserContext(), accountID, domainAutopilot.Platform(platform))
	utils.PanicIfNeeded(err)
	scheduled := 0
	for _, entry := range entries {
		if entry.Status == domainAutopilot.ScheduleEntryStatusScheduled {
			scheduled++
		}
	}

	nextAt := application.NextPublishTime(
		checkpoint,
		settings.Interval(),
		controller.Timing.UniversalMinGap,
		controller.Timing.ImmediateBuffer,
		time.Now().UTC(),
	)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch pair status",
		Results: PairStatusResponse{
			AccountID:        accountID,
			Platform:         platform,
			Enabled:          settings.Enabled,
			AutoSchedule:     settings.AutoScheduleEnabled,
			Connected:        settings.Connected,
			IntervalHours:    settings.IntervalHours,
			Checkpoint:       checkpoint,
			NextEligibleAt:   nextAt,
			NextEligibleIn:   humanize.Time(nextAt),
			ReadyItems:       readyCount,
			ScheduledEntries: scheduled,
		},
	})
}

func (controller *Schedule) ListEntries(c *fiber.Ctx) error {
	accountID := c.Params("account_id")
	platform := c.Params("platform")
	err := validations.ValidatePair(c.UserContext(), accountID, platform)
	utils.PanicIfNeeded(err)

	entries, err := controller.Ledger.ListByPair(c.UserContext(), accountID, domainAutopilot.Platform(platform))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch schedule entries",
		Results: entries,
	})
}

// ResetPair clears the pair checkpoint so the next batch starts the chain
// from scratch. Ledger history is left untouched.
func (controller *Schedule) ResetPair(c *fiber.Ctx) error {
	accountID := c.Params("account_id")
	platform := c.Params("platform")
	err := validations.ValidatePair(c.UserContext(), accountID, platform)
	utils.PanicIfNeeded(err)

	err = controller.Engine.ResetPair(c.UserContext(), accountID, domainAutopilot.Platform(platform))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success reset pair checkpoint",
	})
}

func (controller *Schedule) ResetAccount(c *fiber.Ctx) error {
	accountID := c.Params("account_id")
	if accountID == "" {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: "account_id is required",
		})
	}

	err := controller.Engine.ResetAccount(c.UserContext(), accountID)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success reset account checkpoints",
	})
}
