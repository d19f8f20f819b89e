package rest

import (
	"errors"

	domainAutopilot "github.com/AzielCF/az-pilot/autopilot/domain"
	"github.com/AzielCF/az-pilot/pkg/utils"
	"github.com/AzielCF/az-pilot/validations"
	"github.com/gofiber/fiber/v2"
)

type PairSettings struct {
	Service domainAutopilot.ISettingsRepository
}

func InitRestPairSettings(app fiber.Router, service domainAutopilot.ISettingsRepository) PairSettings {
	rest := PairSettings{Service: service}
	app.Get("/pairs", rest.ListSchedulable)
	app.Put("/pairs/settings", rest.UpsertSettings)
	app.Get("/pairs/:account_id/:platform/settings", rest.GetSettings)
	app.Patch("/pairs/:account_id/:platform/connection", rest.SetConnection)
	return rest
}

func (controller *PairSettings) ListSchedulable(c *fiber.Ctx) error {
	pairs, err := controller.Service.ListAutoSchedulable(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch auto-schedulable pairs",
		Results: pairs,
	})
}

func (controller *PairSettings) UpsertSettings(c *fiber.Ctx) error {
	var request domainAutopilot.SettingsUpsertRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	err = validations.ValidateUpsertSettings(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	settings := domainAutopilot.AutopilotSettings{
		AccountID:           request.AccountID,
		Platform:            domainAutopilot.Platform(request.Platform),
		Enabled:             request.Enabled,
		AutoScheduleEnabled: request.AutoScheduleEnabled,
		AutoReplyEnabled:    request.AutoReplyEnabled,
		IntervalHours:       request.IntervalHours,
		Connected:           request.Connected,
	}
	err = controller.Service.Upsert(c.UserContext(), settings)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success save pair settings",
		Results: settings,
	})
}

func (controller *PairSettings) GetSettings(c *fiber.Ctx) error {
	accountID := c.Params("account_id")
	platform := c.Params("platform")
	err := validations.ValidatePair(c.UserContext(), accountID, platform)
	utils.PanicIfNeeded(err)

	settings, err := controller.Service.Get(c.UserContext(), accountID, domainAutopilot.Platform(platform))
	if errors.Is(err, domainAutopilot.ErrSettingsNotFound) {
		return c.Status(404).JSON(utils.ResponseData{
			Status:  404,
			Code:    "NOT_FOUND",
			Message: "Pair settings not found",
		})
	}
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch pair settings",
		Results: settings,
	})
}

func (controller *PairSettings) SetConnection(c *fiber.Ctx) error {
	accountID := c.Params("account_id")
	platform := c.Params("platform")
	err := validations.ValidatePair(c.UserContext(), accountID, platform)
	utils.PanicIfNeeded(err)

	var request domainAutopilot.ConnectionUpdateRequest
	err = c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	err = controller.Service.SetConnected(c.UserContext(), accountID, domainAutopilot.Platform(platform), request.Connected)
	if errors.Is(err, domainAutopilot.ErrSettingsNotFound) {
		return c.Status(404).JSON(utils.ResponseData{
			Status:  404,
			Code:    "NOT_FOUND",
			Message: "Pair settings not found",
		})
	}
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success update pair connection",
	})
}
