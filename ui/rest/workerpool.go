package rest

import (
	"github.com/AzielCF/az-pilot/pkg/pairworker"
	"github.com/gofiber/fiber/v2"
)

var pairPool *pairworker.PairWorkerPool

// SetPairPool wires the running pair worker pool into the stats endpoint.
func SetPairPool(pool *pairworker.PairWorkerPool) {
	pairPool = pool
}

// GetWorkerPoolStats returns real-time pair worker pool statistics
func GetWorkerPoolStats(c *fiber.Ctx) error {
	if pairPool == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Pair worker pool not initialized",
		})
	}

	stats := pairPool.GetStats()
	return c.JSON(stats)
}
