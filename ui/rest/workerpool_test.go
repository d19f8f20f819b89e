package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AzielCF/az-pilot/pkg/pairworker"
	"github.com/gofiber/fiber/v2"
)

func TestGetWorkerPoolStats_Uninitialized(t *testing.T) {
	app := fiber.New()
	app.Get("/api/worker-pool/stats", GetWorkerPoolStats)

	origPool := pairPool
	t.Cleanup(func() { pairPool = origPool })
	pairPool = nil

	req := httptest.NewRequest(http.MethodGet, "/api/worker-pool/stats", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
}

func TestGetWorkerPoolStats_Initialized(t *testing.T) {
	app := fiber.New()
	app.Get("/api/worker-pool/stats", GetWorkerPoolStats)

	ctx, cancel := context.WithCancel(context.Background())
	pool := pairworker.NewPairWorkerPool(2, 10)
	pool.Start(ctx)

	origPool := pairPool
	t.Cleanup(func() {
		cancel()
		pool.Stop()
		pairPool = origPool
	})
	SetPairPool(pool)

	req := httptest.NewRequest(http.MethodGet, "/api/worker-pool/stats", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
}
