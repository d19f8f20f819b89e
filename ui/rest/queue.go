package rest

import (
	"errors"

	domainAutopilot "github.com/AzielCF/az-pilot/autopilot/domain"
	"github.com/AzielCF/az-pilot/pkg/utils"
	"github.com/AzielCF/az-pilot/validations"
	"github.com/gofiber/fiber/v2"
)

type ContentQueue struct {
	Service domainAutopilot.IContentQueue
}

func InitRestContentQueue(app fiber.Router, service domainAutopilot.IContentQueue) ContentQueue {
	rest := ContentQueue{Service: service}
	app.Post("/queue/items", rest.SubmitItem)
	app.Get("/queue/:account_id/:platform/ready", rest.ListReady)
	return rest
}

func (controller *ContentQueue) SubmitItem(c *fiber.Ctx) error {
	var request domainAutopilot.QueueSubmitRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	err = validations.ValidateSubmitQueueItem(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	item := domainAutopilot.QueueItem{
		Fingerprint: request.Fingerprint,
		AccountID:   request.AccountID,
		Platform:    domainAutopilot.Platform(request.Platform),
		CaptionText: request.CaptionText,
		Status:      domainAutopilot.QueueItemStatusReady,
	}
	err = controller.Service.Submit(c.UserContext(), item)
	if errors.Is(err, domainAutopilot.ErrDuplicateItem) {
		return c.Status(400).JSON(utils.ResponseData{
			Status:  400,
			Code:    "BAD_REQUEST",
			Message: "Queue item with this fingerprint already exists",
		})
	}
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success submit queue item",
		Results: item,
	})
}

func (controller *ContentQueue) ListReady(c *fiber.Ctx) error {
	accountID := c.Params("account_id")
	platform := c.Params("platform")
	err := validations.ValidatePair(c.UserContext(), accountID, platform)
	utils.PanicIfNeeded(err)

	limit := c.QueryInt("limit", 0)
	items, err := controller.Service.ListReady(c.UserContext(), accountID, domainAutopilot.Platform(platform), limit)
	utils.PanicIfNeeded(err)

	count, err := controller.Service.CountReady(c.UserContext(), accountID, domainAutopilot.Platform(platform))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Success fetch ready queue items",
		Results: QueueStateResponse{
			AccountID:  accountID,
			Platform:   platform,
			ReadyCount: count,
			Items:      items,
		},
	})
}
