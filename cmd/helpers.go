package cmd

import (
	"fmt"
	"strings"

	"github.com/AzielCF/az-pilot/autopilot/application"
	domainAutopilot "github.com/AzielCF/az-pilot/autopilot/domain"
	coreconfig "github.com/AzielCF/az-pilot/core/config"
	"github.com/AzielCF/az-pilot/infrastructure/platform"
)

// engineTiming maps the loaded configuration onto the engine timing knobs.
func engineTiming(cfg *coreconfig.Config) application.EngineConfig {
	return application.EngineConfig{
		UniversalMinGap: cfg.Autopilot.UniversalMinGap,
		ImmediateBuffer: cfg.Autopilot.ImmediateBuffer,
		DedupWindow:     cfg.Autopilot.DedupWindow,
		LockTTL:         cfg.Autopilot.LockTTL,
		MaxBatch:        cfg.Autopilot.MaxBatch,
	}
}

// newPublisher picks the outbound publisher: webhooks when configured,
// otherwise a log-only publisher so the loops still run end to end.
func newPublisher(cfg *coreconfig.Config) domainAutopilot.IPlatformPublisher {
	if len(cfg.Publisher.WebhookURLs) > 0 {
		return platform.NewWebhookPublisher(platform.Config{
			WebhookURLs:        cfg.Publisher.WebhookURLs,
			Secret:             cfg.Publisher.WebhookSecret,
			InsecureSkipVerify: cfg.Publisher.WebhookInsecureSkipVerify,
		})
	}
	return platform.NewLogPublisher()
}

func parsePlatform(v string) (domainAutopilot.Platform, error) {
	p := domainAutopilot.Platform(strings.ToLower(strings.TrimSpace(v)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown platform %q (expected one of: %s)", v, strings.Join(platformNames(), ", "))
	}
	return p, nil
}

func platformNames() []string {
	names := make([]string, 0, len(domainAutopilot.AllPlatforms))
	for _, p := range domainAutopilot.AllPlatforms {
		names = append(names, string(p))
	}
	return names
}
