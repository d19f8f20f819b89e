package rest

import (
	domainAutopilot "github.com/AzielCF/az-pilot/autopilot/domain"
	coreconfig "github.com/AzielCF/az-pilot/core/config"
	coreSettings "github.com/AzielCF/az-pilot/core/settings/application"
	"github.com/AzielCF/az-pilot/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// System exposes the runtime operator switches: pausing the sweep and the
// dispatch loops without restarting the process.
type System struct {
	Service *coreSettings.SettingsService
}

func InitRestSystem(app fiber.Router, service *coreSettings.SettingsService) System {
	rest := System{Service: service}
	app.Get("/system/settings", rest.GetSettings)
	app.Put("/system/settings", rest.UpdateSettings)
	app.Get("/system/config", rest.GetRuntimeConfig)
	return rest
}

func (controller *System) GetSettings(c *fiber.Ctx) error {
	settings, err := controller.Service.GetOperationalSettings(c.UserContext())
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch system settings",
		Results: SystemSettingsResponse{
			SweepPaused:    boolOrFalse(settings.SweepPaused),
			DispatchPaused: boolOrFalse(settings.DispatchPaused),
			PauseReason:    settings.PauseReason,
		},
	})
}

func (controller *System) UpdateSettings(c *fiber.Ctx) error {
	var request domainAutopilot.OperationalUpdateRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	ctx := c.UserContext()
	if request.SweepPaused != nil {
		err = controller.Service.SetSweepPaused(ctx, *request.SweepPaused)
		utils.PanicIfNeeded(err)
	}
	if request.DispatchPaused != nil {
		err = controller.Service.SetDispatchPaused(ctx, *request.DispatchPaused)
		utils.PanicIfNeeded(err)
	}
	if request.PauseReason != "" || request.SweepPaused != nil || request.DispatchPaused != nil {
		err = controller.Service.SetPauseReason(ctx, request.PauseReason)
		utils.PanicIfNeeded(err)
	}

	settings, err := controller.Service.GetOperationalSettings(ctx)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success update system settings",
		Results: SystemSettingsResponse{
			SweepPaused:    boolOrFalse(settings.SweepPaused),
			DispatchPaused: boolOrFalse(settings.DispatchPaused),
			PauseReason:    settings.PauseReason,
		},
	})
}

// GetRuntimeConfig reports the tunables the process booted with. Read-only:
// these change through the environment or flags, not this API.
func (controller *System) GetRuntimeConfig(c *fiber.Ctx) error {
	return c.JSON(coreconfig.GetAllSettings())
}

func boolOrFalse(v *bool) bool {
	return v != nil && *v
}
